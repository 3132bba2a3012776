package translator

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/cncwatch/engine"
)

// ============================================================================
// TRANSLATOR TESTS
// ============================================================================

func TestFromValuesDefaults(t *testing.T) {
	req, err := FromValues(url.Values{})
	require.NoError(t, err)

	assert.Nil(t, req.Criteria, "no controls set means default criteria")
	assert.Empty(t, req.Series.Params)
	assert.Nil(t, req.Series.DrillDown)
	assert.Zero(t, req.Series.Window)
}

func TestFromValuesFullState(t *testing.T) {
	v := url.Values{
		"from":       {"2025-09-15"},
		"to":         {"2025-09-19"},
		"time_start": {"22:00"},
		"time_end":   {"06:00"},
		"status":     {"Running,fault"},
		"error":      {"1001", "2034"},
		"param":      {"spindle_speed_rpm", "Servo_Motor_Load_Pct"},
		"window":     {"5"},
		"day":        {"2025-09-16"},
		"day_start":  {"08:00"},
		"day_end":    {"12:30"},
		"corr":       {"power_consumption_kw,spindle_temperature_c"},
	}

	req, err := FromValues(v)
	require.NoError(t, err)
	require.NotNil(t, req.Criteria)

	c := req.Criteria
	assert.Equal(t, "2025-09-15", c.DateStart.String())
	assert.Equal(t, "2025-09-19", c.DateEnd.String())
	assert.Equal(t, "22:00:00", c.TimeStart.String())
	assert.Equal(t, "06:00:00", c.TimeEnd.String())
	assert.Equal(t, []engine.Status{engine.StatusRunning, engine.StatusFault}, c.Statuses)
	assert.Equal(t, []string{"1001", "2034"}, c.ErrorCodes)

	assert.Equal(t, []engine.Measure{engine.MeasureSpindleSpeed, engine.MeasureServoLoad}, req.Series.Params)
	assert.Equal(t, 5, req.Series.Window)
	require.NotNil(t, req.Series.DrillDown)
	assert.Equal(t, "2025-09-16", req.Series.DrillDown.Day.String())
	assert.Equal(t, "12:30:00", req.Series.DrillDown.End.String())
	assert.Equal(t, []engine.Measure{engine.MeasurePower, engine.MeasureSpindleTemperature}, req.CorrelationParams)
}

func TestFromValuesOpenBounds(t *testing.T) {
	req, err := FromValues(url.Values{"status": {"Idle"}})
	require.NoError(t, err)
	require.NotNil(t, req.Criteria)
	assert.True(t, req.Criteria.DateStart.IsZero())
	assert.True(t, req.Criteria.DateEnd.IsZero())
	assert.Equal(t, engine.EndOfDay, req.Criteria.TimeEnd)
}

func TestFromValuesErrors(t *testing.T) {
	cases := map[string]url.Values{
		"from":      {"from": {"15/09/2025"}},
		"time_end":  {"time_end": {"25:99"}},
		"status":    {"status": {"Asleep"}},
		"param":     {"param": {"warp_factor"}},
		"corr":      {"corr": {"flux"}},
		"window":    {"window": {"ten"}},
		"day":       {"day_start": {"08:00"}},
		"criteria":  {"from": {"2025-09-20"}, "to": {"2025-09-01"}},
		"day_start": {"day": {"2025-09-16"}, "day_start": {"8am"}},
	}

	for field, v := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := FromValues(v)
			require.Error(t, err)

			var ie *InputError
			require.True(t, errors.As(err, &ie), "got %T", err)
			assert.Equal(t, field, ie.Field)
		})
	}

	_, err := FromValues(url.Values{"param": {"nope"}})
	assert.ErrorIs(t, err, engine.ErrUnknownMeasure)

	_, err = FromValues(url.Values{"from": {"2025-09-20"}, "to": {"2025-09-01"}})
	assert.ErrorIs(t, err, engine.ErrInvalidCriteria)
}

func TestFromJSON(t *testing.T) {
	body := []byte(`{
		"from": "2025-09-15",
		"to": "2025-09-15",
		"status": ["Fault"],
		"error": ["4500"],
		"param": ["vibration_mm_s"],
		"window": 20
	}`)

	req, err := FromJSON(body)
	require.NoError(t, err)
	require.NotNil(t, req.Criteria)
	assert.Equal(t, []engine.Status{engine.StatusFault}, req.Criteria.Statuses)
	assert.Equal(t, []engine.Measure{engine.MeasureVibration}, req.Series.Params)
	assert.Equal(t, 20, req.Series.Window)
}

func TestFromJSONEmptyBody(t *testing.T) {
	req, err := FromJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, req.Criteria)
}

func TestFromJSONSchemaViolations(t *testing.T) {
	for name, body := range map[string]string{
		"unknown field":   `{"colour": "red"}`,
		"bad date":        `{"from": "yesterday"}`,
		"window type":     `{"window": "5"}`,
		"window too big":  `{"window": 5000}`,
		"status not list": `{"status": "Running"}`,
		"not json":        `{"from": `,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromJSON([]byte(body))
			var ie *InputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, "body", ie.Field)
		})
	}
}

func TestInputErrorMessage(t *testing.T) {
	err := &InputError{Field: "from", Value: "x", Err: errors.New("want YYYY-MM-DD")}
	assert.Equal(t, `invalid from "x": want YYYY-MM-DD`, err.Error())
	assert.NotEmpty(t, RequestSchema())
}
