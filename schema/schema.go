package schema

import (
	"fmt"
	"strings"
)

// ============================================================================
// SCHEMA — Fixed column contract of the CNC telemetry CSV
// ============================================================================
// The loader binds CSV headers against this contract once per load. Keys are
// snake_case; headers are normalized before matching, so "Spindle Speed RPM"
// and "spindle_speed_rpm" bind to the same column.
// ============================================================================

// Role says how the loader interprets a column.
type Role string

const (
	RoleTimestamp Role = "timestamp"
	RoleStatus    Role = "status"
	RoleErrorCode Role = "error_code"
	RoleMeasure   Role = "measure"
)

// Config describes the complete shape of a telemetry dataset.
type Config struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Columns     []ColumnMeta `json:"columns"`

	// TimestampLayouts are tried in order for every timestamp cell.
	TimestampLayouts []string `json:"timestampLayouts"`

	// Columns in the input that matched nothing, filled in by Bind.
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty"`
}

// ColumnMeta describes one expected column.
type ColumnMeta struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	Unit        string `json:"unit,omitempty"`
	Required    bool   `json:"required"`
}

// SkippedColumn records why an input column was not bound.
type SkippedColumn struct {
	Column string `json:"column"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// DefaultTimestampLayouts are the layouts accepted by Default.
var DefaultTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

// Default returns the column contract written by the machine data logger
// (and by the cncgen simulator).
func Default() Config {
	return Config{
		Name:        "cnc_telemetry",
		Description: "Timestamped CNC machine telemetry, one row per sample",
		Columns: []ColumnMeta{
			{Key: "timestamp", DisplayName: "Timestamp", Role: RoleTimestamp, Required: true},
			{Key: "machine_status", DisplayName: "Machine Status", Role: RoleStatus, Required: true},
			{Key: "error_code", DisplayName: "Error Code", Role: RoleErrorCode},
			{Key: "production_count", DisplayName: "Production Count", Role: RoleMeasure, Unit: "units", Required: true},
			{Key: "cycle_time_s", DisplayName: "Cycle Time", Role: RoleMeasure, Unit: "s"},
			measure("spindle_speed_rpm", "Spindle Speed", "rpm"),
			measure("feed_rate_mm_min", "Feed Rate", "mm/min"),
			measure("axis_position_x_mm", "Axis Position X", "mm"),
			measure("spindle_temperature_c", "Spindle Temperature", "°C"),
			measure("vibration_mm_s", "Vibration", "mm/s"),
			measure("servo_motor_load_pct", "Servo Motor Load", "%"),
			measure("power_consumption_kw", "Power Consumption", "kW"),
			measure("coolant_flow_l_min", "Coolant Flow", "l/min"),
			measure("coolant_pressure_bar", "Coolant Pressure", "bar"),
			measure("lubrication_level_pct", "Lubrication Level", "%"),
			measure("ambient_humidity_pct", "Ambient Humidity", "%"),
			measure("ambient_dust_ug_m3", "Ambient Dust", "µg/m³"),
		},
		TimestampLayouts: append([]string(nil), DefaultTimestampLayouts...),
	}
}

func measure(key, display, unit string) ColumnMeta {
	return ColumnMeta{Key: key, DisplayName: display, Role: RoleMeasure, Unit: unit}
}

// Column returns the column with the given key.
func (c Config) Column(key string) (ColumnMeta, bool) {
	key = toSnakeCase(key)
	for _, col := range c.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return ColumnMeta{}, false
}

// MeasureKeys returns the keys of every measure column, in declared order.
func (c Config) MeasureKeys() []string {
	var keys []string
	for _, col := range c.Columns {
		if col.Role == RoleMeasure {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// RequiredKeys returns the keys the loader cannot work without.
func (c Config) RequiredKeys() []string {
	var keys []string
	for _, col := range c.Columns {
		if col.Required {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// Validate checks the contract itself: unique keys, exactly one timestamp
// and one status column, and at least one timestamp layout.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Columns))
	roles := make(map[Role]int)
	for _, col := range c.Columns {
		if col.Key == "" {
			return fmt.Errorf("schema %s: column with empty key", c.Name)
		}
		if col.Key != toSnakeCase(col.Key) {
			return fmt.Errorf("schema %s: key %q is not snake_case", c.Name, col.Key)
		}
		if seen[col.Key] {
			return fmt.Errorf("schema %s: duplicate column %q", c.Name, col.Key)
		}
		seen[col.Key] = true
		roles[col.Role]++
	}
	for _, r := range []Role{RoleTimestamp, RoleStatus} {
		if roles[r] != 1 {
			return fmt.Errorf("schema %s: want exactly one %s column, have %d", c.Name, r, roles[r])
		}
	}
	if roles[RoleErrorCode] > 1 {
		return fmt.Errorf("schema %s: more than one error_code column", c.Name)
	}
	if len(c.TimestampLayouts) == 0 {
		return fmt.Errorf("schema %s: no timestamp layouts", c.Name)
	}
	return nil
}

// MissingColumnsError lists required columns absent from a header row.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}
