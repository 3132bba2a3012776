package engine

import (
	"fmt"
	"time"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig from derived structures
// ============================================================================
// Builders emit plain data only. Rendering (Plotly, Vega, a terminal) lives
// with the caller; nothing here knows about a charting library.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Fixed colors for machine states, so a fault is red on every chart.
var statusColors = map[Status]string{
	StatusRunning: "#10B981",
	StatusIdle:    "#F59E0B",
	StatusFault:   "#EF4444",
}

// Point labels for time axes.
const (
	timestampLabelLayout = "2006-01-02 15:04:05"
	dayLabelLayout       = "2006-01-02"
)

// BuildTimeSeriesChart draws one line per parameter plus a dashed moving
// average line when the average has points. Returns nil for an empty bundle.
func BuildTimeSeriesChart(bundle SeriesBundle) *ChartConfig {
	if bundle.NoData || len(bundle.Series) == 0 {
		return nil
	}

	title := "Key Parameter Trends"
	if bundle.DrillDown != nil {
		title = fmt.Sprintf("Drill-down: %s %s to %s",
			bundle.DrillDown.Day, bundle.DrillDown.Start, bundle.DrillDown.End)
	}

	config := &ChartConfig{
		ChartType:  "line",
		Title:      title,
		XAxis:      "Timestamp",
		YAxis:      "Value",
		ShowLegend: true,
		ShowGrid:   true,
	}

	for i, s := range bundle.Series {
		color := defaultColors[i%len(defaultColors)]
		config.Series = append(config.Series, ChartSeries{
			Name:  s.Label,
			Data:  pointsToChart(s.Points),
			Color: color,
		})
		if len(s.MovingAverage) > 0 {
			config.Series = append(config.Series, ChartSeries{
				Name:  fmt.Sprintf("%s (%d-pt MA)", s.Label, bundle.Window),
				Data:  pointsToChart(s.MovingAverage),
				Color: color,
				Dash:  true,
			})
		}
	}

	config.Colors = seriesColors(config.Series)
	return config
}

// BuildStatusPie draws the status distribution as a donut.
func BuildStatusPie(dist StatusDistribution) *ChartConfig {
	if dist.NoData || len(dist.Counts) == 0 {
		return nil
	}

	points := make([]ChartPoint, 0, len(dist.Counts))
	colors := make([]string, 0, len(dist.Counts))
	for i, c := range dist.Counts {
		points = append(points, ChartPoint{Label: string(c.Status), Value: float64(c.Count)})
		color, ok := statusColors[c.Status]
		if !ok {
			color = defaultColors[(i+5)%len(defaultColors)]
		}
		colors = append(colors, color)
	}

	return &ChartConfig{
		ChartType:  "pie",
		Title:      "Machine Status Distribution",
		Series:     []ChartSeries{{Name: "Records", Data: points}},
		Colors:     colors,
		ShowLegend: true,
		Hole:       0.3,
	}
}

// BuildDailyBar draws production and fault counts side by side per day.
func BuildDailyBar(daily DailySummary) *ChartConfig {
	if daily.NoData || len(daily.Days) == 0 {
		return nil
	}

	production := make([]ChartPoint, 0, len(daily.Days))
	faults := make([]ChartPoint, 0, len(daily.Days))
	for _, d := range daily.Days {
		label := d.Day.String()
		production = append(production, ChartPoint{Label: label, Value: RoundTo2(d.Production)})
		faults = append(faults, ChartPoint{Label: label, Value: float64(d.Faults)})
	}

	config := &ChartConfig{
		ChartType: "bar",
		Title:     "Daily Production vs. Faults",
		XAxis:     "Date",
		YAxis:     "Count",
		Series: []ChartSeries{
			{Name: "Production", Data: production, Color: statusColors[StatusRunning]},
			{Name: "Faults", Data: faults, Color: statusColors[StatusFault]},
		},
		ShowLegend: true,
		ShowGrid:   true,
		BarMode:    "group",
	}
	config.Colors = seriesColors(config.Series)
	return config
}

// BuildCorrelationHeatmap emits one series per matrix row; point labels
// name the column parameter.
func BuildCorrelationHeatmap(m CorrelationMatrix) *ChartConfig {
	if m.Insufficient || len(m.Params) == 0 {
		return nil
	}

	config := &ChartConfig{
		ChartType:  "heatmap",
		Title:      "Sensor Correlation Heatmap",
		ShowLegend: false,
		Colors:     []string{"#2166AC", "#F7F7F7", "#B2182B"},
	}
	for i, row := range m.Params {
		points := make([]ChartPoint, 0, len(m.Params))
		for j, col := range m.Params {
			points = append(points, ChartPoint{
				Label: LabelForMeasure(col),
				Value: RoundTo2(m.Values[i][j]),
			})
		}
		config.Series = append(config.Series, ChartSeries{Name: LabelForMeasure(row), Data: points})
	}
	return config
}

// BuildCumulativeChart draws the running production total as an area.
func BuildCumulativeChart(trend CumulativeTrend) *ChartConfig {
	if trend.NoData || len(trend.Points) == 0 {
		return nil
	}
	return &ChartConfig{
		ChartType:  "area",
		Title:      "Cumulative Production Trend",
		XAxis:      "Timestamp",
		YAxis:      "Units",
		Series:     []ChartSeries{{Name: "Production", Data: pointsToChart(trend.Points), Color: defaultColors[1]}},
		Colors:     []string{defaultColors[1]},
		ShowLegend: false,
		ShowGrid:   true,
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func pointsToChart(points []SeriesPoint) []ChartPoint {
	out := make([]ChartPoint, 0, len(points))
	for _, p := range points {
		out = append(out, ChartPoint{Label: formatTimestamp(p.Timestamp), Value: RoundTo2(p.Value)})
	}
	return out
}

func formatTimestamp(t time.Time) string {
	return t.Format(timestampLabelLayout)
}

func seriesColors(series []ChartSeries) []string {
	colors := make([]string, len(series))
	for i, s := range series {
		colors[i] = s.Color
		if colors[i] == "" {
			colors[i] = defaultColors[i%len(defaultColors)]
		}
	}
	return colors
}
