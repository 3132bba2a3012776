package simulator

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/cncwatch/engine"
	"github.com/spektr-org/cncwatch/helpers"
	"github.com/spektr-org/cncwatch/schema"
)

func generateDefault(t *testing.T) []engine.Record {
	t.Helper()
	records, err := Generate(DefaultConfig())
	require.NoError(t, err)
	return records
}

// ============================================================================
// Timeline shape
// ============================================================================

func TestGenerateLength(t *testing.T) {
	records := generateDefault(t)
	require.Len(t, records, 7*24*60)

	cfg := DefaultConfig()
	assert.True(t, records[0].Timestamp.Equal(cfg.Start))
	for i := 1; i < len(records); i++ {
		assert.Equal(t, time.Minute, records[i].Timestamp.Sub(records[i-1].Timestamp))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := generateDefault(t)
	b := generateDefault(t)
	assert.Equal(t, a, b)

	cfg := DefaultConfig()
	cfg.Seed = 99
	c, err := Generate(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGenerateIdleOutsideShifts(t *testing.T) {
	for _, rec := range generateDefault(t) {
		wd := rec.Timestamp.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			assert.Equal(t, engine.StatusIdle, rec.Status, rec.Timestamp)
			continue
		}
		if rec.Timestamp.Hour() < 6 {
			assert.Equal(t, engine.StatusIdle, rec.Status, rec.Timestamp)
		}
	}
}

func TestGenerateCustomShiftAndProfile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Days = 1
	cfg.Shifts = []Shift{{Start: 8, End: 12}}
	cfg.Profiles = []JobProfile{{
		Name:       "Slot",
		SpindleRPM: [2]float64{2000, 2001}, FeedRate: [2]float64{100, 200},
		ServoLoadPct: [2]float64{40, 50}, Vibration: [2]float64{1, 2},
		BasePowerKW: 10,
	}}
	records, err := Generate(cfg)
	require.NoError(t, err)

	var running int
	for _, rec := range records {
		if rec.Status != engine.StatusRunning {
			continue
		}
		running++
		assert.True(t, rec.Timestamp.Hour() >= 8 && rec.Timestamp.Hour() < 12, rec.Timestamp)
		assert.Equal(t, 2000.0, rec.Readings.SpindleSpeedRPM)
	}
	assert.Positive(t, running)
}

func TestGenerateWorkdaysRun(t *testing.T) {
	running := 0
	for _, rec := range generateDefault(t) {
		if rec.Status == engine.StatusRunning {
			running++
			assert.Positive(t, rec.Readings.SpindleSpeedRPM)
		}
	}
	// five days of two shifts, less setups and faults
	assert.Greater(t, running, 5*16*60/2)
}

// ============================================================================
// Faults and production
// ============================================================================

func TestGenerateErrorCodesOnlyOnFaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FaultProbability = 0.05
	records, err := Generate(cfg)
	require.NoError(t, err)

	faults := 0
	for _, rec := range records {
		if rec.Status == engine.StatusFault {
			faults++
			assert.Contains(t, cfg.ErrorCodes, rec.ErrorCode)
		} else {
			assert.Empty(t, rec.ErrorCode)
		}
	}
	assert.Positive(t, faults)
}

func TestGenerateNoFaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FaultProbability = 0
	records, err := Generate(cfg)
	require.NoError(t, err)
	for _, rec := range records {
		assert.NotEqual(t, engine.StatusFault, rec.Status)
	}
}

func TestGenerateProductionCounter(t *testing.T) {
	records := generateDefault(t)
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		assert.GreaterOrEqual(t, cur.ProductionCount, prev.ProductionCount)
		if cur.ProductionCount > prev.ProductionCount {
			assert.Equal(t, engine.StatusRunning, cur.Status)
			assert.InDelta(t, 600, cur.CycleTimeS, 100)
		} else {
			assert.Zero(t, cur.CycleTimeS)
		}
	}
	assert.Positive(t, records[len(records)-1].ProductionCount)
}

func TestGenerateProductionFollowsRunningTime(t *testing.T) {
	for _, interval := range []time.Duration{30 * time.Second, time.Minute, 90 * time.Second} {
		t.Run(interval.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Days = 1
			cfg.Interval = interval
			records, err := Generate(cfg)
			require.NoError(t, err)

			var running int
			for _, r := range records {
				if r.Status == engine.StatusRunning {
					running++
				}
				if r.CycleTimeS != 0 {
					assert.InDelta(t, 600, r.CycleTimeS, 100)
				}
			}
			require.Positive(t, running)

			cycle := time.Duration(cfg.CycleMinutes) * time.Minute
			want := float64(time.Duration(running) * interval / cycle)
			assert.Equal(t, want, records[len(records)-1].ProductionCount)
			assert.Positive(t, want)
		})
	}
}

func TestGeneratedDataReportsUnitsProduced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Days = 1
	records, err := Generate(cfg)
	require.NoError(t, err)
	require.Zero(t, records[0].ProductionCount)
	final := records[len(records)-1].ProductionCount

	ds := engine.NewDataset("sim", records, nil)
	dash, err := engine.Execute(ds, engine.DashboardRequest{}, engine.WithProductionMode(engine.ProductionCumulative))
	require.NoError(t, err)
	assert.Equal(t, final, dash.KPI.TotalProduction)

	var daily float64
	for _, d := range dash.Daily.Days {
		daily += d.Production
	}
	assert.Equal(t, final, daily)
}

func TestGenerateDriftAndCorrelation(t *testing.T) {
	records := generateDefault(t)

	for i := 1; i < len(records); i++ {
		assert.LessOrEqual(t, records[i].Readings.LubricationLevelPct, records[i-1].Readings.LubricationLevelPct)
	}

	var load, power []float64
	for _, rec := range records {
		if rec.Status == engine.StatusRunning {
			load = append(load, rec.Readings.ServoMotorLoadPct)
			power = append(power, rec.Readings.PowerConsumptionKW)
		}
	}
	r, ok := engine.Pearson(load, power)
	require.True(t, ok)
	assert.Greater(t, r, 0.5)
}

// ============================================================================
// Validation
// ============================================================================

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cases := map[string]func(*Config){
		"days":      func(c *Config) { c.Days = 0 },
		"interval":  func(c *Config) { c.Interval = 0 },
		"profiles":  func(c *Config) { c.Profiles = nil },
		"fault p":   func(c *Config) { c.FaultProbability = 2 },
		"job hours": func(c *Config) { c.JobHours = [2]int{3, 3} },
		"cycle":     func(c *Config) { c.CycleMinutes = 0 },
		"codes":     func(c *Config) { c.ErrorCodes = nil },
		"shift":     func(c *Config) { c.Shifts = []Shift{{Start: 14, End: 6}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := Generate(cfg)
			assert.Error(t, err)
		})
	}
}

// ============================================================================
// CSV output
// ============================================================================

func TestWriteCSVRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Days = 1
	cfg.FaultProbability = 0.05
	records, err := Generate(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	ds, err := helpers.ParseCSV(&buf, "sim.csv", schema.Default())
	require.NoError(t, err)
	require.Equal(t, len(records), ds.Len())

	for i := range records {
		got := ds.Record(i)
		assert.True(t, got.Timestamp.Equal(records[i].Timestamp))
		assert.Equal(t, records[i].Status, got.Status)
		assert.Equal(t, records[i].ErrorCode, got.ErrorCode)
		assert.Equal(t, records[i].ProductionCount, got.ProductionCount)
		assert.Equal(t, records[i].Readings, got.Readings)
	}
}
