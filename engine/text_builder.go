package engine

import (
	"fmt"
)

// ============================================================================
// TEXT BUILDER — Metric tiles for the KPI row
// ============================================================================

// Tile keys, stable for clients that lay tiles out themselves.
const (
	TileUptime       = "uptime"
	TileProduction   = "total_production"
	TileFaults       = "faults"
	TileAvgCycleTime = "avg_cycle_time"
)

// BuildKPITiles formats kpi as display tiles in dashboard order.
// An empty summary yields tiles reading "No data".
func BuildKPITiles(kpi KPISummary, period string) []KPITile {
	if kpi.NoData {
		tiles := []KPITile{
			{Key: TileUptime, Label: "Machine Uptime", Unit: "%"},
			{Key: TileProduction, Label: "Total Production", Unit: "units"},
			{Key: TileFaults, Label: "Number of Faults"},
			{Key: TileAvgCycleTime, Label: "Avg Cycle Time", Unit: "s"},
		}
		for i := range tiles {
			tiles[i].Value = "No data"
			tiles[i].Period = period
		}
		return tiles
	}

	return []KPITile{
		{
			Key:      TileUptime,
			Label:    "Machine Uptime",
			Value:    fmt.Sprintf("%.2f%%", kpi.UtilizationPct),
			RawValue: kpi.UtilizationPct,
			Unit:     "%",
			Period:   period,
		},
		{
			Key:      TileProduction,
			Label:    "Total Production",
			Value:    FormatNumber(kpi.TotalProduction, 0) + " units",
			RawValue: kpi.TotalProduction,
			Unit:     "units",
			Period:   period,
		},
		{
			Key:      TileFaults,
			Label:    "Number of Faults",
			Value:    FormatInt(kpi.FaultCount),
			RawValue: float64(kpi.FaultCount),
			Period:   period,
		},
		{
			Key:      TileAvgCycleTime,
			Label:    "Avg Cycle Time",
			Value:    FormatNumber(kpi.AvgCycleTimeS, 1) + " s",
			RawValue: kpi.AvgCycleTimeS,
			Unit:     "s",
			Period:   period,
		},
	}
}

// ============================================================================
// PERIOD HELPER
// ============================================================================

// DerivePeriod builds a human-readable period string from a view.
func DerivePeriod(view RecordView) string {
	if view.Len() == 0 {
		return "No data"
	}
	first := DateOf(view.Timestamp(0))
	last := DateOf(view.Timestamp(view.Len() - 1))
	if first == last {
		return first.String()
	}
	return fmt.Sprintf("%s – %s", first, last)
}
