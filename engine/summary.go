package engine

import (
	"sort"
)

// ============================================================================
// OPERATIONAL SUMMARIZER — Status distribution + daily production vs faults
// ============================================================================
// A fault is counted per record: every row whose status is Fault adds one.
// ============================================================================

// StatusCount is one slice of the status pie.
type StatusCount struct {
	Status  Status  `json:"status"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// StatusDistribution counts records per status. Counts sum to Total.
type StatusDistribution struct {
	NoData bool          `json:"noData"`
	Total  int           `json:"total"`
	Counts []StatusCount `json:"counts"`
}

// Count returns the number of records with status st.
func (d StatusDistribution) Count(st Status) int {
	for _, c := range d.Counts {
		if c.Status == st {
			return c.Count
		}
	}
	return 0
}

// StatusBreakdown counts view per status. Known statuses come first in
// Running, Idle, Fault order; statuses with no records are left out.
func StatusBreakdown(view RecordView) StatusDistribution {
	n := view.Len()
	dist := StatusDistribution{Total: n, Counts: []StatusCount{}}
	if n == 0 {
		dist.NoData = true
		return dist
	}

	counts := make(map[Status]int)
	var order []Status
	for i := 0; i < n; i++ {
		st := view.Status(i)
		if _, seen := counts[st]; !seen {
			order = append(order, st)
		}
		counts[st]++
	}

	rank := make(map[Status]int, len(KnownStatuses))
	for i, st := range KnownStatuses {
		rank[st] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		ri, okI := rank[order[i]]
		rj, okJ := rank[order[j]]
		switch {
		case okI && okJ:
			return ri < rj
		case okI:
			return true
		default:
			return false
		}
	})

	for _, st := range order {
		dist.Counts = append(dist.Counts, StatusCount{
			Status:  st,
			Count:   counts[st],
			Percent: float64(counts[st]) / float64(n) * 100,
		})
	}
	return dist
}

// DayTotals aggregates one calendar day.
type DayTotals struct {
	Day        Date    `json:"day"`
	Production float64 `json:"production"`
	Faults     int     `json:"faults"`
	Records    int     `json:"records"`
}

// DailySummary lists days in chronological order.
type DailySummary struct {
	NoData bool        `json:"noData"`
	Days   []DayTotals `json:"days"`
}

// DailyTotals groups view by calendar day. Days without records are not
// emitted. Production follows the same mode rules as TotalProduction,
// applied within each day.
func DailyTotals(view RecordView, mode ProductionMode) DailySummary {
	if view.Len() == 0 {
		return DailySummary{NoData: true, Days: []DayTotals{}}
	}

	grouped := make(map[Date][]int)
	var order []Date
	for i := 0; i < view.Len(); i++ {
		day := DateOf(view.Timestamp(i))
		if _, exists := grouped[day]; !exists {
			order = append(order, day)
		}
		grouped[day] = append(grouped[day], i)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	summary := DailySummary{Days: make([]DayTotals, 0, len(order))}
	for _, day := range order {
		dayView := newSubView(view, grouped[day])
		summary.Days = append(summary.Days, DayTotals{
			Day:        day,
			Production: TotalProduction(dayView, mode),
			Faults:     CountStatus(dayView, StatusFault),
			Records:    dayView.Len(),
		})
	}
	return summary
}
