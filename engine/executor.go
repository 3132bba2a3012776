package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// EXECUTOR — One dashboard interaction, end to end
// ============================================================================
// Entry point: Execute(view, req, opts...)
//
// Pipeline:
//   1. Validate the request (criteria, parameter names)
//   2. Apply filters → SubView
//   3. KPIs, series, status, daily, correlation, cumulative trend
//   4. Dispatch each section to its builder (tiles / charts)
//   5. Return Dashboard
//
// Empty results and insufficient data never fail the call: the affected
// section carries NoData (or Insufficient) and a message is added.
// ============================================================================

// User-facing messages for degraded sections.
const (
	MsgNoRecords          = "No data available for the selected filters."
	MsgNoDrillDown        = "No data available for the selected drill-down window."
	MsgInsufficientCorr   = "Not enough data to compute correlations (need at least 2 records)."
	MsgConstantParameters = "Some parameters are constant in this range; their correlations are shown as 0."
)

// DashboardRequest is everything one dashboard refresh needs.
// Nil Criteria selects DefaultCriteria of the view. Empty Series.Params
// plots the configured default parameters; empty CorrelationParams
// correlates every sensor parameter.
type DashboardRequest struct {
	Criteria          *FilterCriteria `json:"criteria,omitempty"`
	Series            SeriesRequest   `json:"series"`
	CorrelationParams []Measure       `json:"correlation_params,omitempty"`
}

// DashboardCharts holds one render-ready chart per section. A nil chart
// means the section had nothing to draw.
type DashboardCharts struct {
	Trends      *ChartConfig `json:"trends"`
	Status      *ChartConfig `json:"status"`
	Daily       *ChartConfig `json:"daily"`
	Correlation *ChartConfig `json:"correlation"`
	Cumulative  *ChartConfig `json:"cumulative"`
}

// Dashboard is the complete, render-ready result of one interaction.
type Dashboard struct {
	Source       string             `json:"source,omitempty"`
	Criteria     FilterCriteria     `json:"criteria"`
	TotalRecords int                `json:"totalRecords"`
	Records      int                `json:"records"`
	NoData       bool               `json:"noData"`
	Period       string             `json:"period"`
	KPI          KPISummary         `json:"kpi"`
	Tiles        []KPITile          `json:"tiles"`
	Series       SeriesBundle       `json:"series"`
	Status       StatusDistribution `json:"status"`
	Daily        DailySummary       `json:"daily"`
	Correlation  CorrelationMatrix  `json:"correlation"`
	Cumulative   CumulativeTrend    `json:"cumulative"`
	Charts       DashboardCharts    `json:"charts"`
	Messages     []string           `json:"messages,omitempty"`
	Elapsed      time.Duration      `json:"elapsedNs"`
}

// Execute runs req against view and returns every dashboard section.
// Only request errors are returned: ErrInvalidCriteria, ErrUnknownMeasure.
func Execute(view RecordView, req DashboardRequest, opts ...Option) (*Dashboard, error) {
	started := time.Now()
	cfg := applyOptions(opts)

	// 1. Validate
	criteria := DefaultCriteria(view)
	if req.Criteria != nil {
		criteria = *req.Criteria
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	seriesReq := req.Series
	if len(seriesReq.Params) == 0 {
		seriesReq.Params = cfg.DefaultParams
	}
	for _, p := range append(append([]Measure{}, seriesReq.Params...), req.CorrelationParams...) {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMeasure, p)
		}
	}

	// 2. Filter
	filtered := ApplyFilters(view, criteria)

	dash := &Dashboard{
		Criteria:     criteria,
		TotalRecords: view.Len(),
		Records:      filtered.Len(),
		NoData:       filtered.Len() == 0,
		Period:       DerivePeriod(filtered),
	}
	if src, ok := view.(interface{ Source() string }); ok {
		dash.Source = src.Source()
	}

	cfg.Logger.Debug("filtered records",
		zap.Int("records", filtered.Len()), zap.Int("total", view.Len()))

	if dash.NoData {
		dash.Messages = append(dash.Messages, MsgNoRecords)
	}

	// 3. Derive sections
	dash.KPI = ComputeKPIs(filtered, opts...)
	dash.Tiles = BuildKPITiles(dash.KPI, dash.Period)

	series, err := ProjectSeries(filtered, seriesReq, opts...)
	if err != nil {
		return nil, err
	}
	dash.Series = series
	if series.NoData && !dash.NoData && seriesReq.DrillDown != nil {
		dash.Messages = append(dash.Messages, MsgNoDrillDown)
	}

	dash.Status = StatusBreakdown(filtered)
	dash.Daily = DailyTotals(filtered, cfg.ProductionMode)
	dash.Cumulative = ProjectCumulative(filtered, cfg.ProductionMode)

	dash.Correlation, err = Correlate(filtered, req.CorrelationParams)
	switch {
	case errors.Is(err, ErrInsufficientData):
		if !dash.NoData {
			dash.Messages = append(dash.Messages, MsgInsufficientCorr)
		}
	case err != nil:
		return nil, err
	case len(dash.Correlation.Constant) > 0:
		dash.Messages = append(dash.Messages, MsgConstantParameters)
	}

	// 4. Build charts
	dash.Charts = DashboardCharts{
		Trends:      BuildTimeSeriesChart(dash.Series),
		Status:      BuildStatusPie(dash.Status),
		Daily:       BuildDailyBar(dash.Daily),
		Correlation: BuildCorrelationHeatmap(dash.Correlation),
		Cumulative:  BuildCumulativeChart(dash.Cumulative),
	}

	dash.Elapsed = time.Since(started)
	cfg.Logger.Info("dashboard computed",
		zap.Int("records", dash.Records),
		zap.Int("total", dash.TotalRecords),
		zap.Float64("production", dash.KPI.TotalProduction),
		zap.Int("faults", dash.KPI.FaultCount),
		zap.Duration("elapsed", dash.Elapsed))

	return dash, nil
}

// Err returns ErrEmptyResult when no record matched the criteria.
func (d *Dashboard) Err() error {
	if d.NoData {
		return ErrEmptyResult
	}
	return nil
}
