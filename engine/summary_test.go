package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// OPERATIONAL SUMMARY TESTS
// ============================================================================

func TestStatusBreakdown(t *testing.T) {
	dist := StatusBreakdown(threeRecordDay(t))

	require.False(t, dist.NoData)
	assert.Equal(t, 3, dist.Total)
	assert.Equal(t, 2, dist.Count(StatusRunning))
	assert.Equal(t, 1, dist.Count(StatusFault))
	assert.Equal(t, 0, dist.Count(StatusIdle))
	require.Len(t, dist.Counts, 2, "statuses with no records are left out")
	assert.Equal(t, StatusRunning, dist.Counts[0].Status)
	assert.InDelta(t, 200.0/3.0, dist.Counts[0].Percent, 1e-9)
}

func TestStatusBreakdownSumsToTotal(t *testing.T) {
	week := shiftWeek(t)
	for _, c := range []FilterCriteria{
		{},
		{Statuses: []Status{StatusIdle, StatusFault}},
		{DateStart: mustDate(t, "2024-03-06")},
	} {
		v := ApplyFilters(week, c)
		dist := StatusBreakdown(v)

		sum := 0
		for _, sc := range dist.Counts {
			sum += sc.Count
		}
		assert.Equal(t, v.Len(), sum)
		assert.Equal(t, v.Len(), dist.Total)
	}
}

func TestStatusBreakdownOrdersUnknownLast(t *testing.T) {
	ds := NewDataset("odd", []Record{
		rec(t, "2024-01-01 08:00:00", "Maintenance", 0),
		rec(t, "2024-01-01 08:01:00", StatusFault, 0),
		rec(t, "2024-01-01 08:02:00", StatusIdle, 0),
	}, nil)

	dist := StatusBreakdown(ds)
	require.Len(t, dist.Counts, 3)
	assert.Equal(t, StatusIdle, dist.Counts[0].Status)
	assert.Equal(t, StatusFault, dist.Counts[1].Status)
	assert.Equal(t, Status("Maintenance"), dist.Counts[2].Status)
}

func TestStatusBreakdownEmpty(t *testing.T) {
	dist := StatusBreakdown(NewDataset("empty", nil, nil))
	assert.True(t, dist.NoData)
	assert.Empty(t, dist.Counts)
}

func TestDailyTotals(t *testing.T) {
	daily := DailyTotals(shiftWeek(t), ProductionPerRecord)

	require.Len(t, daily.Days, 3)
	for i, want := range []string{"2024-03-04", "2024-03-05", "2024-03-06"} {
		assert.Equal(t, want, daily.Days[i].Day.String())
		assert.Equal(t, 8.0, daily.Days[i].Production)
		assert.Equal(t, 2, daily.Days[i].Faults)
		assert.Equal(t, 12, daily.Days[i].Records)
	}

	fromOneDay := DailyTotals(threeRecordDay(t), ProductionPerRecord)
	require.Len(t, fromOneDay.Days, 1)
	assert.Equal(t, 8.0, fromOneDay.Days[0].Production)
	assert.Equal(t, 1, fromOneDay.Days[0].Faults)

	assert.True(t, DailyTotals(NewDataset("empty", nil, nil), ProductionPerRecord).NoData)
}
