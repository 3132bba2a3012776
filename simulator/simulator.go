// Package simulator generates synthetic CNC telemetry with realistic
// structure: shift schedules, alternating job profiles with setup gaps,
// random faults with error codes, correlated power and temperature, and a
// cumulative production counter. Output is deterministic for a seed.
//
// production_count never resets, so reports over simulated data should run
// the engine in cumulative production mode.
package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/spektr-org/cncwatch/engine"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

// Shift is a half-open range of hours [Start, End).
type Shift struct {
	Start int
	End   int
}

// JobProfile bounds the parameters a job runs at.
type JobProfile struct {
	Name         string
	SpindleRPM   [2]float64
	FeedRate     [2]float64
	ServoLoadPct [2]float64
	Vibration    [2]float64
	BasePowerKW  float64
}

// Config controls a simulation run.
type Config struct {
	Start            time.Time
	Days             int
	Interval         time.Duration
	Shifts           []Shift
	Profiles         []JobProfile
	FaultProbability float64
	FaultDuration    time.Duration
	SetupTime        time.Duration
	JobHours         [2]int // job length drawn from [min, max) hours
	CycleMinutes     int    // running minutes per produced part
	ErrorCodes       []string
	Seed             int64
}

// DefaultProfiles are a finishing job (fast, light) and a roughing job
// (slow, heavy).
var DefaultProfiles = []JobProfile{
	{
		Name:       "Job_A",
		SpindleRPM: [2]float64{3500, 5000}, FeedRate: [2]float64{400, 600},
		ServoLoadPct: [2]float64{25, 45}, Vibration: [2]float64{0.5, 1.5},
		BasePowerKW: 8,
	},
	{
		Name:       "Job_B",
		SpindleRPM: [2]float64{800, 1500}, FeedRate: [2]float64{50, 150},
		ServoLoadPct: [2]float64{60, 90}, Vibration: [2]float64{1.5, 3.0},
		BasePowerKW: 12,
	},
}

// DefaultConfig simulates one week from Monday 2025-09-15 at one-minute
// resolution with two shifts on weekdays.
func DefaultConfig() Config {
	return Config{
		Start:            time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
		Days:             7,
		Interval:         time.Minute,
		Shifts:           []Shift{{Start: 6, End: 14}, {Start: 14, End: 22}},
		Profiles:         DefaultProfiles,
		FaultProbability: 0.005,
		FaultDuration:    30 * time.Minute,
		SetupTime:        15 * time.Minute,
		JobHours:         [2]int{2, 5},
		CycleMinutes:     10,
		ErrorCodes:       []string{"1001", "2034", "4500", "5012"},
		Seed:             1,
	}
}

// Validate rejects configurations that cannot produce a timeline.
func (c Config) Validate() error {
	switch {
	case c.Days < 1:
		return fmt.Errorf("days must be >= 1, got %d", c.Days)
	case c.Interval <= 0:
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	case len(c.Profiles) == 0:
		return fmt.Errorf("at least one job profile is required")
	case c.FaultProbability < 0 || c.FaultProbability > 1:
		return fmt.Errorf("fault probability must be within [0, 1], got %g", c.FaultProbability)
	case c.JobHours[0] < 1 || c.JobHours[1] <= c.JobHours[0]:
		return fmt.Errorf("job hours must satisfy 1 <= min < max, got %v", c.JobHours)
	case c.CycleMinutes < 1:
		return fmt.Errorf("cycle minutes must be >= 1, got %d", c.CycleMinutes)
	case c.FaultProbability > 0 && len(c.ErrorCodes) == 0:
		return fmt.Errorf("faults enabled but no error codes configured")
	}
	for _, s := range c.Shifts {
		if s.Start < 0 || s.End > 24 || s.Start >= s.End {
			return fmt.Errorf("invalid shift %d-%d", s.Start, s.End)
		}
	}
	return nil
}

// ============================================================================
// STATE MACHINE
// ============================================================================

type machine struct {
	cfg *Config
	rng *rand.Rand

	job        *JobProfile
	jobEnd     time.Time
	inSetup    bool
	setupEnd   time.Time
	faultUntil time.Time
	faultCode  string
	running    time.Duration // running time since the last completed part
	produced   float64
}

// Generate runs the simulation and returns records in timestamp order.
func Generate(cfg Config) ([]engine.Record, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	steps := int(time.Duration(cfg.Days) * 24 * time.Hour / cfg.Interval)
	m := &machine{cfg: &cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
	records := make([]engine.Record, 0, steps)

	prev := engine.Record{
		Timestamp: cfg.Start,
		Status:    engine.StatusIdle,
		Readings: engine.Readings{
			SpindleTemperatureC: 25,
			LubricationLevelPct: 100,
			AmbientHumidityPct:  60,
			AmbientDustUGM3:     20,
		},
	}
	records = append(records, prev)

	for i := 1; i < steps; i++ {
		ts := cfg.Start.Add(time.Duration(i) * cfg.Interval)
		rec := m.step(ts, prev)
		records = append(records, rec)
		prev = rec
	}
	return records, nil
}

func (m *machine) workHour(ts time.Time) bool {
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	for _, s := range m.cfg.Shifts {
		if ts.Hour() >= s.Start && ts.Hour() < s.End {
			return true
		}
	}
	return false
}

// nextStatus advances the job and fault state for ts.
func (m *machine) nextStatus(ts time.Time) engine.Status {
	if ts.Before(m.faultUntil) {
		return engine.StatusFault
	}
	if m.inSetup && !ts.Before(m.setupEnd) {
		m.inSetup = false
		m.job = nil
	}

	status := engine.StatusIdle
	if m.workHour(ts) && !m.inSetup {
		if m.job == nil {
			m.job = &m.cfg.Profiles[m.rng.Intn(len(m.cfg.Profiles))]
			hours := m.cfg.JobHours[0] + m.rng.Intn(m.cfg.JobHours[1]-m.cfg.JobHours[0])
			m.jobEnd = ts.Add(time.Duration(hours) * time.Hour)
		}
		if !ts.Before(m.jobEnd) {
			m.inSetup = true
			m.setupEnd = ts.Add(m.cfg.SetupTime)
			m.job = nil
		} else {
			status = engine.StatusRunning
		}
	}

	if status == engine.StatusRunning && m.rng.Float64() < m.cfg.FaultProbability {
		m.faultUntil = ts.Add(m.cfg.FaultDuration)
		m.faultCode = m.cfg.ErrorCodes[m.rng.Intn(len(m.cfg.ErrorCodes))]
		m.job = nil
		return engine.StatusFault
	}
	return status
}

func (m *machine) step(ts time.Time, prev engine.Record) engine.Record {
	rec := engine.Record{Timestamp: ts, Status: m.nextStatus(ts)}
	r := &rec.Readings
	p := prev.Readings

	if rec.Status == engine.StatusRunning {
		job := m.job
		r.SpindleSpeedRPM = math.Floor(m.uniform(job.SpindleRPM))
		r.FeedRateMMMin = m.uniform(job.FeedRate)
		r.ServoMotorLoadPct = m.uniform(job.ServoLoadPct) + m.rng.NormFloat64()*2
		r.VibrationMMS = m.uniform(job.Vibration) + m.rng.NormFloat64()*0.1
		r.PowerConsumptionKW = job.BasePowerKW + r.ServoMotorLoadPct/50 + r.SpindleSpeedRPM/1000 + m.rng.NormFloat64()*0.5
		r.SpindleTemperatureC = math.Min(85, p.SpindleTemperatureC+0.1+r.ServoMotorLoadPct/100*0.5)
		r.CoolantFlowLMin = m.uniform([2]float64{10, 20})
		r.CoolantPressureBar = m.uniform([2]float64{2, 4})
		r.AxisPositionXMM = math.Mod(p.AxisPositionXMM+r.FeedRateMMMin/60, 500)

		cycle := time.Duration(m.cfg.CycleMinutes) * time.Minute
		m.running += m.cfg.Interval
		if m.running >= cycle {
			rec.CycleTimeS = cycle.Seconds() + m.rng.NormFloat64()*15
		}
		for m.running >= cycle {
			m.produced++
			m.running -= cycle
		}
	} else {
		r.ServoMotorLoadPct = m.uniform([2]float64{0, 2})
		r.VibrationMMS = m.uniform([2]float64{0.1, 0.5})
		r.PowerConsumptionKW = m.uniform([2]float64{1, 2})
		r.SpindleTemperatureC = math.Max(25, p.SpindleTemperatureC-0.2)
		r.AxisPositionXMM = p.AxisPositionXMM
		if rec.Status == engine.StatusFault {
			rec.ErrorCode = m.faultCode
			r.VibrationMMS = m.uniform([2]float64{3, 6})
		}
	}

	r.LubricationLevelPct = math.Max(0, p.LubricationLevelPct-0.002)
	r.AmbientHumidityPct = 60 + 15*math.Sin(2*math.Pi*float64(ts.Hour())/24) + m.rng.NormFloat64()*2
	r.AmbientDustUGM3 = 20 + 5*math.Sin(2*math.Pi*float64(ts.YearDay())/365) + m.rng.NormFloat64()

	rec.ProductionCount = m.produced
	roundReadings(&rec)
	return rec
}

func (m *machine) uniform(bounds [2]float64) float64 {
	return bounds[0] + m.rng.Float64()*(bounds[1]-bounds[0])
}

func roundReadings(rec *engine.Record) {
	rec.CycleTimeS = round3(rec.CycleTimeS)
	for _, key := range engine.SensorParams() {
		_ = key.Set(rec, round3(key.Value(rec)))
	}
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
