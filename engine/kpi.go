package engine

import (
	"time"
)

// ============================================================================
// KPI AGGREGATOR — Scalar summaries of a filtered view
// ============================================================================
// Utilization is time-weighted: each record owns the interval up to the next
// record, capped at the view's median sampling interval so that the gaps a
// time-of-day filter leaves (overnight, lunch breaks) are not credited to
// whichever state happened to be logged last.
// ============================================================================

// Cycle time sources reported in KPISummary.CycleTimeSource.
const (
	CycleTimeFromField      = "cycle_time_field"
	CycleTimeFromTimestamps = "production_timestamps"
)

// KPISummary holds the headline metrics for a view.
// NoData is set, and every metric is zero, when the view is empty.
type KPISummary struct {
	NoData          bool           `json:"noData"`
	Records         int            `json:"records"`
	From            time.Time      `json:"from,omitempty"`
	To              time.Time      `json:"to,omitempty"`
	TotalProduction float64        `json:"totalProduction"`
	ProductionMode  ProductionMode `json:"productionMode"`
	AvgCycleTimeS   float64        `json:"avgCycleTimeS"`
	CycleTimeSource string         `json:"cycleTimeSource,omitempty"`
	ElapsedS        float64        `json:"elapsedS"`
	RunningS        float64        `json:"runningS"`
	Utilization     float64        `json:"utilization"`    // fraction in [0, 1]
	UtilizationPct  float64        `json:"utilizationPct"` // Utilization × 100
	FaultCount      int            `json:"faultCount"`
}

// ComputeKPIs summarizes view. It never fails: an empty view yields NoData.
func ComputeKPIs(view RecordView, opts ...Option) KPISummary {
	cfg := applyOptions(opts)
	kpi := KPISummary{ProductionMode: cfg.ProductionMode}

	n := view.Len()
	if n == 0 {
		kpi.NoData = true
		return kpi
	}

	kpi.Records = n
	kpi.From = view.Timestamp(0)
	kpi.To = view.Timestamp(n - 1)
	kpi.TotalProduction = TotalProduction(view, cfg.ProductionMode)
	kpi.FaultCount = CountStatus(view, StatusFault)
	kpi.AvgCycleTimeS, kpi.CycleTimeSource = averageCycleTime(view, cfg.ProductionMode)

	elapsed, running := runningTime(view)
	kpi.ElapsedS = elapsed.Seconds()
	kpi.RunningS = running.Seconds()
	if elapsed > 0 {
		kpi.Utilization = running.Seconds() / elapsed.Seconds()
		kpi.UtilizationPct = kpi.Utilization * 100
	}

	return kpi
}

// TotalProduction totals units produced in view.
// Per-record mode sums production_count over Running records; cumulative
// mode reports the counter's rise (max − min) across the view.
func TotalProduction(view RecordView, mode ProductionMode) float64 {
	if view.Len() == 0 {
		return 0
	}
	if mode == ProductionCumulative {
		return MaxMeasure(view, MeasureProduction) - MinMeasure(view, MeasureProduction)
	}
	var total float64
	for i := 0; i < view.Len(); i++ {
		if view.Status(i) == StatusRunning {
			total += view.Measure(i, MeasureProduction)
		}
	}
	return total
}

// averageCycleTime prefers the dedicated cycle-time column (positive values
// only, zero marks "no cycle completed"); without it, the mean gap between
// consecutive production events is used.
func averageCycleTime(view RecordView, mode ProductionMode) (float64, string) {
	if hasMeasure(view, MeasureCycleTime) {
		var sum float64
		var count int
		for i := 0; i < view.Len(); i++ {
			if v := view.Measure(i, MeasureCycleTime); v > 0 {
				sum += v
				count++
			}
		}
		if count == 0 {
			return 0, CycleTimeFromField
		}
		return sum / float64(count), CycleTimeFromField
	}

	events := productionEvents(view, mode)
	if len(events) < 2 {
		return 0, CycleTimeFromTimestamps
	}
	var total time.Duration
	for i := 1; i < len(events); i++ {
		total += events[i].Sub(events[i-1])
	}
	return total.Seconds() / float64(len(events)-1), CycleTimeFromTimestamps
}

// productionEvents returns the timestamps at which units were completed.
func productionEvents(view RecordView, mode ProductionMode) []time.Time {
	var events []time.Time
	for i := 0; i < view.Len(); i++ {
		if mode == ProductionCumulative {
			if i > 0 && view.Measure(i, MeasureProduction) > view.Measure(i-1, MeasureProduction) {
				events = append(events, view.Timestamp(i))
			}
			continue
		}
		if view.Status(i) == StatusRunning && view.Measure(i, MeasureProduction) > 0 {
			events = append(events, view.Timestamp(i))
		}
	}
	return events
}

// runningTime returns the credited elapsed time and the part spent Running.
func runningTime(view RecordView) (elapsed, running time.Duration) {
	limit := medianInterval(view)
	if limit <= 0 {
		return 0, 0
	}
	for i := 0; i+1 < view.Len(); i++ {
		d := view.Timestamp(i + 1).Sub(view.Timestamp(i))
		if d <= 0 {
			continue
		}
		if d > limit {
			d = limit
		}
		elapsed += d
		if view.Status(i) == StatusRunning {
			running += d
		}
	}
	return elapsed, running
}
