package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// BUILDER TESTS
// ============================================================================

func TestBuildTimeSeriesChart(t *testing.T) {
	bundle, err := ProjectSeries(shiftWeek(t), SeriesRequest{Params: []Measure{MeasureSpindleSpeed}, Window: 5})
	require.NoError(t, err)

	chart := BuildTimeSeriesChart(bundle)
	require.NotNil(t, chart)
	assert.Equal(t, "line", chart.ChartType)
	require.Len(t, chart.Series, 2)
	assert.Equal(t, "Spindle Speed Rpm", chart.Series[0].Name)
	assert.Equal(t, "Spindle Speed Rpm (5-pt MA)", chart.Series[1].Name)
	assert.True(t, chart.Series[1].Dash)
	assert.Equal(t, chart.Series[0].Color, chart.Series[1].Color)
	assert.Equal(t, "2024-03-04 06:00:00", chart.Series[0].Data[0].Label)

	assert.Nil(t, BuildTimeSeriesChart(SeriesBundle{NoData: true}))
}

func TestBuildStatusPie(t *testing.T) {
	chart := BuildStatusPie(StatusBreakdown(threeRecordDay(t)))
	require.NotNil(t, chart)
	assert.Equal(t, "pie", chart.ChartType)
	assert.Equal(t, 0.3, chart.Hole)
	assert.Equal(t, []ChartPoint{{Label: "Running", Value: 2}, {Label: "Fault", Value: 1}}, chart.Series[0].Data)
	assert.Equal(t, []string{statusColors[StatusRunning], statusColors[StatusFault]}, chart.Colors)

	assert.Nil(t, BuildStatusPie(StatusDistribution{NoData: true}))
}

func TestBuildDailyBar(t *testing.T) {
	chart := BuildDailyBar(DailyTotals(shiftWeek(t), ProductionPerRecord))
	require.NotNil(t, chart)
	assert.Equal(t, "group", chart.BarMode)
	require.Len(t, chart.Series, 2)
	assert.Equal(t, "Production", chart.Series[0].Name)
	assert.Equal(t, "Faults", chart.Series[1].Name)
	assert.Len(t, chart.Series[0].Data, 3)
	assert.Equal(t, 2.0, chart.Series[1].Data[0].Value)
}

func TestBuildCorrelationHeatmap(t *testing.T) {
	m, err := Correlate(shiftWeek(t), []Measure{MeasureSpindleSpeed, MeasureServoLoad})
	require.NoError(t, err)

	chart := BuildCorrelationHeatmap(m)
	require.NotNil(t, chart)
	assert.Equal(t, "heatmap", chart.ChartType)
	require.Len(t, chart.Series, 2)
	assert.Equal(t, 1.0, chart.Series[0].Data[0].Value)
	assert.Equal(t, -1.0, chart.Series[0].Data[1].Value)

	assert.Nil(t, BuildCorrelationHeatmap(CorrelationMatrix{Insufficient: true}))
}

func TestBuildCumulativeChart(t *testing.T) {
	chart := BuildCumulativeChart(ProjectCumulative(threeRecordDay(t), ProductionPerRecord))
	require.NotNil(t, chart)
	assert.Equal(t, "area", chart.ChartType)
	assert.Equal(t, 8.0, chart.Series[0].Data[2].Value)
}

func TestBuildRecordTable(t *testing.T) {
	week := shiftWeek(t)

	t.Run("first page", func(t *testing.T) {
		table := BuildRecordTable(week, 0, 10)
		assert.Equal(t, 36, table.Total)
		assert.Len(t, table.Rows, 10)
		assert.Len(t, table.Columns, 3+len(week.MeasureKeys()))
		assert.Equal(t, "Timestamp", table.Columns[0].Label)
		assert.Equal(t, "Running", table.Rows[0][1])
		assert.Equal(t, "Showing 1–10 of 36 records", table.Summary.Label)
		assert.Equal(t, "24", table.Summary.Values[string(MeasureProduction)])
	})

	t.Run("last partial page", func(t *testing.T) {
		table := BuildRecordTable(week, 30, 10)
		assert.Len(t, table.Rows, 6)
		assert.Equal(t, 30, table.Offset)
	})

	t.Run("offset past end", func(t *testing.T) {
		table := BuildRecordTable(week, 100, 10)
		assert.Empty(t, table.Rows)
		assert.Equal(t, 36, table.Total)
	})

	t.Run("default limit", func(t *testing.T) {
		table := BuildRecordTable(week, -5, 0)
		assert.Len(t, table.Rows, 36)
		assert.Equal(t, 0, table.Offset)
	})
}

func TestBuildKPITiles(t *testing.T) {
	ds := threeRecordDay(t)
	tiles := BuildKPITiles(ComputeKPIs(ds), DerivePeriod(ds))

	require.Len(t, tiles, 4)
	assert.Equal(t, TileUptime, tiles[0].Key)
	assert.Equal(t, "50.00%", tiles[0].Value)
	assert.Equal(t, "8 units", tiles[1].Value)
	assert.Equal(t, "1", tiles[2].Value)
	assert.Equal(t, "2024-01-01", tiles[0].Period)

	empty := BuildKPITiles(KPISummary{NoData: true}, "No data")
	for _, tile := range empty {
		assert.Equal(t, "No data", tile.Value)
	}
}

func TestDerivePeriod(t *testing.T) {
	assert.Equal(t, "2024-03-04 – 2024-03-06", DerivePeriod(shiftWeek(t)))
	assert.Equal(t, "No data", DerivePeriod(NewDataset("empty", nil, nil)))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatNumber(1234567.891, 2))
	assert.Equal(t, "-1,000", FormatNumber(-1000, 0))
	assert.Equal(t, "12,345", FormatInt(12345))
}
