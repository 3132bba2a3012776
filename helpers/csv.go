package helpers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/cncwatch/engine"
	"github.com/spektr-org/cncwatch/schema"
)

// ============================================================================
// CSV HELPER — Parses telemetry CSV into an engine.Dataset
// ============================================================================
// The caller opens the bytes from wherever they live (file, S3, gzip).
// This helper binds the header once, then converts every row into a typed
// engine.Record. The first bad cell aborts the load with a LoadError that
// names the row and column; nothing is silently skipped.
// ============================================================================

// ParseCSV reads every row of r into a Dataset named source.
func ParseCSV(r io.Reader, source string, sch schema.Config) (*engine.Dataset, error) {
	if err := sch.Validate(); err != nil {
		return nil, &engine.LoadError{Kind: engine.KindSchema, Source: source, Err: err}
	}

	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, &engine.LoadError{Kind: engine.KindSchema, Source: source, Err: errors.New("no header row")}
	}
	if err != nil {
		return nil, &engine.LoadError{Kind: engine.KindParse, Source: source, Err: err}
	}
	headers = append([]string(nil), headers...)

	p, err := newRowParser(headers, sch)
	if err != nil {
		return nil, &engine.LoadError{Kind: engine.KindSchema, Source: source, Err: err}
	}

	var records []engine.Record
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &engine.LoadError{Kind: engine.KindParse, Source: source, Row: row, Err: unwrapCSV(err)}
		}

		rec, column, err := p.parse(fields)
		if err != nil {
			return nil, &engine.LoadError{Kind: engine.KindParse, Source: source, Row: row, Column: column, Err: err}
		}
		records = append(records, rec)
	}

	return engine.NewDataset(source, records, p.present), nil
}

// ============================================================================
// ROW PARSER
// ============================================================================

type measureColumn struct {
	key     string
	index   int
	measure engine.Measure
}

type rowParser struct {
	layouts   []string
	timestamp int
	status    int
	errorCode int // -1 when the file has no error_code column
	measures  []measureColumn
	present   []engine.Measure
}

func newRowParser(headers []string, sch schema.Config) (*rowParser, error) {
	binding, err := sch.Bind(headers)
	if err != nil {
		return nil, err
	}

	p := &rowParser{layouts: sch.TimestampLayouts, errorCode: -1, present: []engine.Measure{}}
	for _, col := range sch.Columns {
		i, ok := binding.Lookup(col.Key)
		if !ok {
			continue
		}
		switch col.Role {
		case schema.RoleTimestamp:
			p.timestamp = i
		case schema.RoleStatus:
			p.status = i
		case schema.RoleErrorCode:
			p.errorCode = i
		case schema.RoleMeasure:
			m, ok := engine.LookupMeasure(col.Key)
			if !ok {
				return nil, fmt.Errorf("column %q has no record field", col.Key)
			}
			p.measures = append(p.measures, measureColumn{key: col.Key, index: i, measure: m})
			p.present = append(p.present, m)
		}
	}
	return p, nil
}

// parse converts one row. On failure it also returns the offending column.
func (p *rowParser) parse(fields []string) (engine.Record, string, error) {
	var rec engine.Record

	ts, err := parseTimestamp(fields[p.timestamp], p.layouts)
	if err != nil {
		return rec, "timestamp", err
	}
	rec.Timestamp = ts

	st, ok := engine.ParseStatus(fields[p.status])
	if !ok {
		return rec, "machine_status", fmt.Errorf("unknown machine status %q", strings.TrimSpace(fields[p.status]))
	}
	rec.Status = st

	if p.errorCode >= 0 {
		rec.ErrorCode = NormalizeErrorCode(fields[p.errorCode])
	}

	for _, mc := range p.measures {
		v, err := parseNumber(fields[mc.index])
		if err != nil {
			return rec, mc.key, err
		}
		if err := mc.measure.Set(&rec, v); err != nil {
			return rec, mc.key, err
		}
	}
	return rec, "", nil
}

func parseTimestamp(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value in numeric column")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

// NormalizeErrorCode maps the "no error" encodings ("", "0", "0.0") to ""
// and strips a zero fraction from numeric codes ("1001.0" → "1001").
// Non-numeric codes are kept as written.
func NormalizeErrorCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	if v == 0 {
		return ""
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return s
}

// unwrapCSV drops the csv package's own line prefix; LoadError carries the row.
func unwrapCSV(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
