package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// KPI TESTS
// ============================================================================

func TestComputeKPIsThreeRecordDay(t *testing.T) {
	kpi := ComputeKPIs(threeRecordDay(t))

	require.False(t, kpi.NoData)
	assert.Equal(t, 3, kpi.Records)
	assert.Equal(t, 8.0, kpi.TotalProduction)
	assert.Equal(t, 1, kpi.FaultCount)
	assert.Equal(t, ProductionPerRecord, kpi.ProductionMode)

	// 08:00 Running owns one minute, 08:01 Fault owns one minute
	assert.InDelta(t, 120.0, kpi.ElapsedS, 1e-9)
	assert.InDelta(t, 60.0, kpi.RunningS, 1e-9)
	assert.InDelta(t, 0.5, kpi.Utilization, 1e-9)
	assert.InDelta(t, 50.0, kpi.UtilizationPct, 1e-9)
}

func TestComputeKPIsEmptyView(t *testing.T) {
	empty := ApplyFilters(threeRecordDay(t), FilterCriteria{Statuses: []Status{StatusIdle}})
	kpi := ComputeKPIs(empty)

	assert.True(t, kpi.NoData)
	assert.Zero(t, kpi.TotalProduction)
	assert.Zero(t, kpi.FaultCount)
	assert.Zero(t, kpi.Utilization)
}

func TestUtilizationCapsGaps(t *testing.T) {
	kpi := ComputeKPIs(shiftWeek(t))

	// 33 in-shift hours plus 2 overnight gaps capped at the 1h median
	assert.InDelta(t, 35*3600.0, kpi.ElapsedS, 1e-6)
	assert.InDelta(t, 23*3600.0, kpi.RunningS, 1e-6)
	assert.InDelta(t, 23.0/35.0, kpi.Utilization, 1e-9)
	assert.GreaterOrEqual(t, kpi.Utilization, 0.0)
	assert.LessOrEqual(t, kpi.Utilization, 1.0)
}

func TestTotalProductionModes(t *testing.T) {
	ds := threeRecordDay(t)
	assert.Equal(t, 8.0, TotalProduction(ds, ProductionPerRecord))
	assert.Equal(t, 5.0, TotalProduction(ds, ProductionCumulative))

	kpi := ComputeKPIs(ds, WithProductionMode(ProductionCumulative))
	assert.Equal(t, ProductionCumulative, kpi.ProductionMode)
	assert.Equal(t, 5.0, kpi.TotalProduction)
}

func TestAverageCycleTime(t *testing.T) {
	t.Run("from cycle time column", func(t *testing.T) {
		kpi := ComputeKPIs(shiftWeek(t))
		assert.Equal(t, CycleTimeFromField, kpi.CycleTimeSource)
		assert.InDelta(t, 600.0, kpi.AvgCycleTimeS, 1e-9)
	})

	t.Run("from production timestamps", func(t *testing.T) {
		src := threeRecordDay(t)
		records := make([]Record, src.Len())
		for i := range records {
			records[i] = src.Record(i)
		}
		ds := NewDataset("no-cycle", records, append([]Measure{MeasureProduction}, SensorParams()...))

		kpi := ComputeKPIs(ds)
		assert.Equal(t, CycleTimeFromTimestamps, kpi.CycleTimeSource)
		assert.InDelta(t, 120.0, kpi.AvgCycleTimeS, 1e-9)
	})
}

func TestParseProductionMode(t *testing.T) {
	m, err := ParseProductionMode("Cumulative")
	require.NoError(t, err)
	assert.Equal(t, ProductionCumulative, m)

	_, err = ParseProductionMode("weekly")
	assert.Error(t, err)
}
