package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST FIXTURES
// ============================================================================

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04:05", s)
	require.NoError(t, err)
	return parsed
}

func rec(t *testing.T, at string, st Status, production float64) Record {
	t.Helper()
	return Record{Timestamp: ts(t, at), Status: st, ProductionCount: production}
}

// threeRecordDay is the canonical single-day sample:
// Running/Fault/Running with production 5, 0, 3.
func threeRecordDay(t *testing.T) *Dataset {
	t.Helper()
	records := []Record{
		rec(t, "2024-01-01 08:00:00", StatusRunning, 5),
		rec(t, "2024-01-01 08:01:00", StatusFault, 0),
		rec(t, "2024-01-01 08:02:00", StatusRunning, 3),
	}
	records[1].ErrorCode = "2034"
	return NewDataset("sample", records, nil)
}

// shiftWeek spans three days with two faults and varied sensor readings.
func shiftWeek(t *testing.T) *Dataset {
	t.Helper()
	var records []Record
	start := ts(t, "2024-03-04 06:00:00")
	statuses := []Status{StatusRunning, StatusRunning, StatusIdle, StatusRunning, StatusFault, StatusRunning}
	for day := 0; day < 3; day++ {
		for i := 0; i < 12; i++ {
			at := start.AddDate(0, 0, day).Add(time.Duration(i) * time.Hour)
			st := statuses[i%len(statuses)]
			r := Record{Timestamp: at, Status: st}
			if st == StatusRunning {
				r.ProductionCount = 1
				r.CycleTimeS = 600
			}
			if st == StatusFault {
				r.ErrorCode = "1001"
			}
			r.Readings.SpindleSpeedRPM = 1000 + float64(i*10)
			r.Readings.SpindleTemperatureC = 40 + float64(i)
			r.Readings.PowerConsumptionKW = 5 + float64(i)*0.5
			r.Readings.ServoMotorLoadPct = 60 - float64(i)
			r.Readings.LubricationLevelPct = 80
			records = append(records, r)
		}
	}
	return NewDataset("week", records, nil)
}
