package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TIME-SERIES TESTS
// ============================================================================

func seriesPoints(values ...float64) []SeriesPoint {
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	out := make([]SeriesPoint, len(values))
	for i, v := range values {
		out[i] = SeriesPoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Value: v}
	}
	return out
}

func TestMovingAverage(t *testing.T) {
	points := seriesPoints(1, 2, 3, 4, 5)

	t.Run("warm-up points are omitted", func(t *testing.T) {
		ma := MovingAverage(points, 3)
		require.Len(t, ma, 3)
		assert.Equal(t, points[2].Timestamp, ma[0].Timestamp)
		assert.InDelta(t, 2.0, ma[0].Value, 1e-9)
		assert.InDelta(t, 3.0, ma[1].Value, 1e-9)
		assert.InDelta(t, 4.0, ma[2].Value, 1e-9)
	})

	t.Run("window of one is the identity", func(t *testing.T) {
		assert.Equal(t, points, MovingAverage(points, 1))
	})

	t.Run("fewer points than window", func(t *testing.T) {
		assert.Empty(t, MovingAverage(points, 10))
		assert.NotNil(t, MovingAverage(points, 10))
	})
}

func TestProjectSeries(t *testing.T) {
	week := shiftWeek(t)

	t.Run("one series per parameter in request order", func(t *testing.T) {
		params := []Measure{MeasureServoLoad, MeasureSpindleSpeed}
		bundle, err := ProjectSeries(week, SeriesRequest{Params: params})
		require.NoError(t, err)

		require.Len(t, bundle.Series, 2)
		assert.Equal(t, MeasureServoLoad, bundle.Series[0].Param)
		assert.Equal(t, "Servo Motor Load Pct", bundle.Series[0].Label)
		assert.Len(t, bundle.Series[0].Points, week.Len())
		assert.Equal(t, DefaultMovingAverageWindow, bundle.Window)
		assert.Len(t, bundle.Series[0].MovingAverage, week.Len()-DefaultMovingAverageWindow+1)

		s, ok := bundle.Lookup(MeasureSpindleSpeed)
		require.True(t, ok)
		assert.Equal(t, 1000.0, s.Points[0].Value)
	})

	t.Run("configured window", func(t *testing.T) {
		bundle, err := ProjectSeries(week, SeriesRequest{Params: []Measure{MeasurePower}}, WithMovingAverageWindow(4))
		require.NoError(t, err)
		assert.Equal(t, 4, bundle.Window)

		bundle, err = ProjectSeries(week, SeriesRequest{Params: []Measure{MeasurePower}, Window: 2}, WithMovingAverageWindow(4))
		require.NoError(t, err)
		assert.Equal(t, 2, bundle.Window)
	})

	t.Run("request errors", func(t *testing.T) {
		_, err := ProjectSeries(week, SeriesRequest{})
		assert.ErrorIs(t, err, ErrNoParameters)

		_, err = ProjectSeries(week, SeriesRequest{Params: []Measure{"warp_drive"}})
		assert.ErrorIs(t, err, ErrUnknownMeasure)
	})

	t.Run("drill-down narrows to one day window", func(t *testing.T) {
		dd := &DrillDown{Day: mustDate(t, "2024-03-05"), Start: mustClock(t, "09:00"), End: mustClock(t, "11:00")}
		bundle, err := ProjectSeries(week, SeriesRequest{Params: []Measure{MeasureVibration}, DrillDown: dd})
		require.NoError(t, err)

		points := bundle.Series[0].Points
		require.Len(t, points, 3)
		for _, p := range points {
			assert.Equal(t, dd.Day, DateOf(p.Timestamp))
		}
	})

	t.Run("drill-down without data", func(t *testing.T) {
		dd := &DrillDown{Day: mustDate(t, "2024-03-09")}
		bundle, err := ProjectSeries(week, SeriesRequest{Params: []Measure{MeasureVibration}, DrillDown: dd})
		require.NoError(t, err)
		assert.True(t, bundle.NoData)
		assert.Empty(t, bundle.Series[0].Points)
	})
}

func TestProjectCumulative(t *testing.T) {
	t.Run("per record", func(t *testing.T) {
		trend := ProjectCumulative(threeRecordDay(t), ProductionPerRecord)
		require.Len(t, trend.Points, 3)
		assert.Equal(t, []float64{5, 5, 8}, pointValues(trend.Points))
		assert.Equal(t, 8.0, trend.Total)
	})

	t.Run("counter is rebased", func(t *testing.T) {
		ds := NewDataset("counter", []Record{
			rec(t, "2024-01-01 08:00:00", StatusRunning, 10),
			rec(t, "2024-01-01 08:10:00", StatusRunning, 12),
			rec(t, "2024-01-01 08:20:00", StatusIdle, 15),
		}, nil)
		trend := ProjectCumulative(ds, ProductionCumulative)
		assert.Equal(t, []float64{0, 2, 5}, pointValues(trend.Points))
		assert.Equal(t, 5.0, trend.Total)
	})

	t.Run("empty view", func(t *testing.T) {
		trend := ProjectCumulative(NewDataset("empty", nil, nil), ProductionPerRecord)
		assert.True(t, trend.NoData)
		assert.Empty(t, trend.Points)
	})
}

func pointValues(points []SeriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
