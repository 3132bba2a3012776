package engine

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// CNCWATCH ENGINE TYPES — Typed CNC Telemetry
// ============================================================================
// Every column of the telemetry CSV has a typed home here. Numeric columns
// are addressed through Measure keys backed by a fixed accessor table, so a
// schema mismatch is caught once at load time instead of at each use site.
// ============================================================================

// ============================================================================
// STATUS
// ============================================================================

// Status is the machine state reported by a record.
type Status string

const (
	StatusRunning Status = "Running"
	StatusIdle    Status = "Idle"
	StatusFault   Status = "Fault"
)

// KnownStatuses lists the enumerated statuses in display order.
var KnownStatuses = []Status{StatusRunning, StatusIdle, StatusFault}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range KnownStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// ============================================================================
// RECORD — One timestamped observation
// ============================================================================

// Readings holds the sensor parameters of one observation.
type Readings struct {
	SpindleSpeedRPM     float64 `json:"spindle_speed_rpm"`
	FeedRateMMMin       float64 `json:"feed_rate_mm_min"`
	AxisPositionXMM     float64 `json:"axis_position_x_mm"`
	SpindleTemperatureC float64 `json:"spindle_temperature_c"`
	VibrationMMS        float64 `json:"vibration_mm_s"`
	ServoMotorLoadPct   float64 `json:"servo_motor_load_pct"`
	PowerConsumptionKW  float64 `json:"power_consumption_kw"`
	CoolantFlowLMin     float64 `json:"coolant_flow_l_min"`
	CoolantPressureBar  float64 `json:"coolant_pressure_bar"`
	LubricationLevelPct float64 `json:"lubrication_level_pct"`
	AmbientHumidityPct  float64 `json:"ambient_humidity_pct"`
	AmbientDustUGM3     float64 `json:"ambient_dust_ug_m3"`
}

// Record is a single telemetry row.
// ErrorCode is empty when the machine reported no error.
type Record struct {
	Timestamp       time.Time `json:"timestamp"`
	Status          Status    `json:"machine_status"`
	ErrorCode       string    `json:"error_code"`
	ProductionCount float64   `json:"production_count"`
	CycleTimeS      float64   `json:"cycle_time_s"`
	Readings        Readings  `json:"readings"`
}

// ============================================================================
// MEASURES — Fixed accessor table for numeric columns
// ============================================================================

// Measure names a numeric column of a Record.
type Measure string

const (
	MeasureProduction Measure = "production_count"
	MeasureCycleTime  Measure = "cycle_time_s"

	MeasureSpindleSpeed       Measure = "spindle_speed_rpm"
	MeasureFeedRate           Measure = "feed_rate_mm_min"
	MeasureAxisPositionX      Measure = "axis_position_x_mm"
	MeasureSpindleTemperature Measure = "spindle_temperature_c"
	MeasureVibration          Measure = "vibration_mm_s"
	MeasureServoLoad          Measure = "servo_motor_load_pct"
	MeasurePower              Measure = "power_consumption_kw"
	MeasureCoolantFlow        Measure = "coolant_flow_l_min"
	MeasureCoolantPressure    Measure = "coolant_pressure_bar"
	MeasureLubrication        Measure = "lubrication_level_pct"
	MeasureHumidity           Measure = "ambient_humidity_pct"
	MeasureDust               Measure = "ambient_dust_ug_m3"
)

var sensorParams = []Measure{
	MeasureSpindleSpeed, MeasureFeedRate, MeasureAxisPositionX, MeasureSpindleTemperature,
	MeasureVibration, MeasureServoLoad, MeasurePower, MeasureCoolantFlow,
	MeasureCoolantPressure, MeasureLubrication, MeasureHumidity, MeasureDust,
}

var measureFields = map[Measure]func(*Record) *float64{
	MeasureProduction:         func(r *Record) *float64 { return &r.ProductionCount },
	MeasureCycleTime:          func(r *Record) *float64 { return &r.CycleTimeS },
	MeasureSpindleSpeed:       func(r *Record) *float64 { return &r.Readings.SpindleSpeedRPM },
	MeasureFeedRate:           func(r *Record) *float64 { return &r.Readings.FeedRateMMMin },
	MeasureAxisPositionX:      func(r *Record) *float64 { return &r.Readings.AxisPositionXMM },
	MeasureSpindleTemperature: func(r *Record) *float64 { return &r.Readings.SpindleTemperatureC },
	MeasureVibration:          func(r *Record) *float64 { return &r.Readings.VibrationMMS },
	MeasureServoLoad:          func(r *Record) *float64 { return &r.Readings.ServoMotorLoadPct },
	MeasurePower:              func(r *Record) *float64 { return &r.Readings.PowerConsumptionKW },
	MeasureCoolantFlow:        func(r *Record) *float64 { return &r.Readings.CoolantFlowLMin },
	MeasureCoolantPressure:    func(r *Record) *float64 { return &r.Readings.CoolantPressureBar },
	MeasureLubrication:        func(r *Record) *float64 { return &r.Readings.LubricationLevelPct },
	MeasureHumidity:           func(r *Record) *float64 { return &r.Readings.AmbientHumidityPct },
	MeasureDust:               func(r *Record) *float64 { return &r.Readings.AmbientDustUGM3 },
}

// SensorParams returns the sensor parameters in canonical column order.
func SensorParams() []Measure {
	out := make([]Measure, len(sensorParams))
	copy(out, sensorParams)
	return out
}

// LookupMeasure resolves a column key (case-insensitive) to a Measure.
func LookupMeasure(key string) (Measure, bool) {
	m := Measure(strings.ToLower(strings.TrimSpace(key)))
	_, ok := measureFields[m]
	return m, ok
}

// Valid reports whether m has a registered accessor.
func (m Measure) Valid() bool {
	_, ok := measureFields[m]
	return ok
}

// Value reads m from r. Unknown measures read as 0.
func (m Measure) Value(r *Record) float64 {
	if fn, ok := measureFields[m]; ok {
		return *fn(r)
	}
	return 0
}

// Set writes v into the field of r named by m.
func (m Measure) Set(r *Record, v float64) error {
	fn, ok := measureFields[m]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMeasure, m)
	}
	*fn(r) = v
	return nil
}

// ============================================================================
// DATE / TIME-OF-DAY — Calendar values used by filters
// ============================================================================

// Date is a calendar day with no time or zone. The zero Date means "unset".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

func (d Date) ordinal() int { return d.Year*10000 + int(d.Month)*100 + d.Day }

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.ordinal() < o.ordinal() }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.ordinal() > o.ordinal() }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Empty text is the zero Date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is the offset from midnight.
type TimeOfDay time.Duration

// EndOfDay is the last representable instant of a day.
const EndOfDay = TimeOfDay(24*time.Hour - time.Nanosecond)

var clockLayouts = []string{"15:04:05", "15:04"}

// ClockOf returns the time-of-day of t in t's location.
func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond()))
}

// ParseTimeOfDay parses "15:04" or "15:04:05". "24:00" is accepted as EndOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" || s == "24:00:00" {
		return EndOfDay, nil
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q (want HH:MM or HH:MM:SS)", s)
}

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool { return t >= 0 && t <= EndOfDay }

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ============================================================================
// CHART TYPES — Plain data handed to the charting layer
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"` // "line", "pie", "bar", "heatmap", "area"
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
	BarMode    string        `json:"barMode,omitempty"` // "group" for side-by-side bars
	Hole       float64       `json:"hole,omitempty"`    // donut hole ratio for pie charts
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
	Dash  bool         `json:"dash,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
	Offset  int        `json:"offset"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "time", "text", "number"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// TEXT TYPES
// ============================================================================

// KPITile is one formatted metric card.
type KPITile struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Value    string  `json:"value"`
	RawValue float64 `json:"rawValue"`
	Unit     string  `json:"unit,omitempty"`
	Period   string  `json:"period"`
}
