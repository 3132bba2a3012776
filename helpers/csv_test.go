package helpers

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/cncwatch/engine"
	"github.com/spektr-org/cncwatch/schema"
)

// ============================================================================
// CSV PARSING TESTS
// ============================================================================

func TestParseCSVSample(t *testing.T) {
	f, err := os.Open("testdata/sample.csv")
	require.NoError(t, err)
	defer f.Close()

	ds, err := ParseCSV(f, "sample.csv", schema.Default())
	require.NoError(t, err)

	require.Equal(t, 6, ds.Len())
	assert.Equal(t, "sample.csv", ds.Source())
	assert.Len(t, ds.MeasureKeys(), 14)

	first := ds.Record(0)
	assert.Equal(t, "2025-09-15 06:01:00", first.Timestamp.Format("2006-01-02 15:04:05"))
	assert.Equal(t, engine.StatusRunning, first.Status)
	assert.Empty(t, first.ErrorCode)
	assert.Equal(t, 4210.0, first.Readings.SpindleSpeedRPM)
	assert.Equal(t, 99.998, first.Readings.LubricationLevelPct)

	assert.Equal(t, "2034", ds.ErrorCode(3))
	assert.Equal(t, "2034", ds.ErrorCode(4), "1001.0-style codes are normalized")
	assert.Equal(t, engine.StatusIdle, ds.Status(5))
	assert.Equal(t, 611.2, ds.Measure(2, engine.MeasureCycleTime))
}

func TestParseCSVOrdersByTimestamp(t *testing.T) {
	in := "timestamp,machine_status,production_count\n" +
		"2024-01-01 08:02:00,Running,3\n" +
		"2024-01-01 08:00:00,running,5\n" +
		"2024-01-01T08:01:00,FAULT,0\n"

	ds, err := ParseCSV(strings.NewReader(in), "inline", schema.Default())
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, 5.0, ds.Measure(0, engine.MeasureProduction))
	assert.Equal(t, engine.StatusFault, ds.Status(1))
	assert.Equal(t, []engine.Measure{engine.MeasureProduction}, ds.MeasureKeys())
}

func TestParseCSVErrors(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		kind   engine.LoadErrorKind
		row    int
		column string
	}{
		{
			name: "empty file",
			in:   "",
			kind: engine.KindSchema,
		},
		{
			name: "missing required column",
			in:   "timestamp,production_count\n2024-01-01 08:00:00,1\n",
			kind: engine.KindSchema,
		},
		{
			name:   "bad timestamp",
			in:     "timestamp,machine_status,production_count\n2024-01-01 08:00:00,Running,1\nnoon,Running,1\n",
			kind:   engine.KindParse,
			row:    2,
			column: "timestamp",
		},
		{
			name:   "unknown status",
			in:     "timestamp,machine_status,production_count\n2024-01-01 08:00:00,Sleeping,1\n",
			kind:   engine.KindParse,
			row:    1,
			column: "machine_status",
		},
		{
			name:   "non-numeric measure",
			in:     "timestamp,machine_status,production_count,vibration_mm_s\n2024-01-01 08:00:00,Idle,1,high\n",
			kind:   engine.KindParse,
			row:    1,
			column: "vibration_mm_s",
		},
		{
			name:   "empty numeric cell",
			in:     "timestamp,machine_status,production_count\n2024-01-01 08:00:00,Idle,\n",
			kind:   engine.KindParse,
			row:    1,
			column: "production_count",
		},
		{
			name: "ragged row",
			in:   "timestamp,machine_status,production_count\n2024-01-01 08:00:00,Idle\n",
			kind: engine.KindParse,
			row:  1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tc.in), "inline", schema.Default())
			require.Error(t, err)
			assert.True(t, engine.IsLoadError(err, tc.kind), "got %v", err)

			var le *engine.LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tc.row, le.Row)
			assert.Equal(t, tc.column, le.Column)
		})
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	ds, err := ParseCSV(strings.NewReader("timestamp,machine_status,production_count\n"), "inline", schema.Default())
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestNormalizeErrorCode(t *testing.T) {
	cases := map[string]string{
		"":       "",
		"0":      "",
		"0.0":    "",
		" 0 ":    "",
		"1001":   "1001",
		"1001.0": "1001",
		"12.5":   "12.5",
		"E-42":   "E-42",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeErrorCode(in), in)
	}
}
