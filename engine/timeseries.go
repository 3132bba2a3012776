package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// TIME-SERIES PROJECTOR — Long-form series per parameter
// ============================================================================
// Optional drill-down narrows the view to one day and a time window first.
// Every series gets a trailing moving average aligned to the same
// timestamps; the first Window-1 points have no average and are omitted.
// ============================================================================

// DrillDown selects a single day and an inclusive time-of-day window.
// Zero Start and End select the whole day.
type DrillDown struct {
	Day   Date      `json:"day"`
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// SeriesRequest names the parameters to project.
// Window 0 falls back to the engine's configured moving-average window.
type SeriesRequest struct {
	Params    []Measure  `json:"params"`
	DrillDown *DrillDown `json:"drilldown,omitempty"`
	Window    int        `json:"window,omitempty"`
}

// SeriesPoint is one (timestamp, value) pair.
type SeriesPoint struct {
	Timestamp time.Time `json:"t"`
	Value     float64   `json:"v"`
}

// Series is the projection of one parameter.
type Series struct {
	Param         Measure       `json:"param"`
	Label         string        `json:"label"`
	Points        []SeriesPoint `json:"points"`
	MovingAverage []SeriesPoint `json:"movingAverage"`
}

// SeriesBundle maps each selected parameter to its series, in request order.
type SeriesBundle struct {
	NoData    bool       `json:"noData"`
	Window    int        `json:"window"`
	DrillDown *DrillDown `json:"drilldown,omitempty"`
	Series    []Series   `json:"series"`
}

// Lookup returns the series for p.
func (b SeriesBundle) Lookup(p Measure) (Series, bool) {
	for _, s := range b.Series {
		if s.Param == p {
			return s, true
		}
	}
	return Series{}, false
}

// DrillDownView restricts view to dd's day and time window.
func DrillDownView(view RecordView, dd DrillDown) RecordView {
	wholeDay := (dd.Start == 0 && dd.End == 0) || (dd.Start == 0 && dd.End == EndOfDay)
	return Select(view, func(i int) bool {
		ts := view.Timestamp(i)
		if DateOf(ts) != dd.Day {
			return false
		}
		return wholeDay || inTimeWindow(ClockOf(ts), dd.Start, dd.End)
	})
}

// ProjectSeries builds a SeriesBundle for req.Params over view.
// Unknown parameters and an empty selection are request errors; an empty
// (possibly drilled-down) view is reported through NoData.
func ProjectSeries(view RecordView, req SeriesRequest, opts ...Option) (SeriesBundle, error) {
	cfg := applyOptions(opts)

	if len(req.Params) == 0 {
		return SeriesBundle{}, ErrNoParameters
	}
	for _, p := range req.Params {
		if !p.Valid() {
			return SeriesBundle{}, fmt.Errorf("%w: %s", ErrUnknownMeasure, p)
		}
	}

	window := req.Window
	if window <= 0 {
		window = cfg.MovingAverageWindow
	}

	if req.DrillDown != nil {
		if !req.DrillDown.Start.Valid() || !req.DrillDown.End.Valid() {
			return SeriesBundle{}, fmt.Errorf("%w: drill-down window outside a day", ErrInvalidCriteria)
		}
		view = DrillDownView(view, *req.DrillDown)
	}

	bundle := SeriesBundle{
		NoData:    view.Len() == 0,
		Window:    window,
		DrillDown: req.DrillDown,
		Series:    make([]Series, 0, len(req.Params)),
	}

	for _, p := range req.Params {
		points := make([]SeriesPoint, view.Len())
		for i := range points {
			points[i] = SeriesPoint{Timestamp: view.Timestamp(i), Value: view.Measure(i, p)}
		}
		bundle.Series = append(bundle.Series, Series{
			Param:         p,
			Label:         LabelForMeasure(p),
			Points:        points,
			MovingAverage: MovingAverage(points, window),
		})
	}

	cfg.Logger.Debug("projected series",
		zap.Int("records", view.Len()), zap.Int("params", len(req.Params)), zap.Int("window", window))

	return bundle, nil
}

// MovingAverage returns the trailing mean of n points, one output per input
// point starting at index n-1. Fewer than n points yields an empty slice.
func MovingAverage(points []SeriesPoint, n int) []SeriesPoint {
	if n < 1 || len(points) < n {
		return []SeriesPoint{}
	}
	out := make([]SeriesPoint, 0, len(points)-n+1)
	var sum float64
	for i, p := range points {
		sum += p.Value
		if i >= n {
			sum -= points[i-n].Value
		}
		if i >= n-1 {
			out = append(out, SeriesPoint{Timestamp: p.Timestamp, Value: sum / float64(n)})
		}
	}
	return out
}

// ============================================================================
// CUMULATIVE TREND
// ============================================================================

// CumulativeTrend is the running production total across a view.
type CumulativeTrend struct {
	NoData bool          `json:"noData"`
	Total  float64       `json:"total"`
	Points []SeriesPoint `json:"points"`
}

// ProjectCumulative accumulates production record by record. In cumulative
// mode the counter is rebased so the trend starts at zero.
func ProjectCumulative(view RecordView, mode ProductionMode) CumulativeTrend {
	n := view.Len()
	if n == 0 {
		return CumulativeTrend{NoData: true, Points: []SeriesPoint{}}
	}

	points := make([]SeriesPoint, n)
	if mode == ProductionCumulative {
		base := MinMeasure(view, MeasureProduction)
		for i := 0; i < n; i++ {
			points[i] = SeriesPoint{Timestamp: view.Timestamp(i), Value: view.Measure(i, MeasureProduction) - base}
		}
	} else {
		var running float64
		for i := 0; i < n; i++ {
			if view.Status(i) == StatusRunning {
				running += view.Measure(i, MeasureProduction)
			}
			points[i] = SeriesPoint{Timestamp: view.Timestamp(i), Value: running}
		}
	}

	return CumulativeTrend{
		Total:  TotalProduction(view, mode),
		Points: points,
	}
}
