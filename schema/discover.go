package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ============================================================================
// BINDING + INSPECTION — Matching a CSV header row against the contract
// ============================================================================
// Bind is what the loader runs on every load. Inspect reads the header plus
// a sample of rows and reports, column by column, how the file lines up
// with the contract; it backs `cncwatch --describe`.
//
// Header matching:
//   1. Normalize to snake_case ("Spindle Speed RPM" → "spindle_speed_rpm")
//   2. An unnamed first column is the timestamp (a dataframe index)
//   3. First occurrence wins; later duplicates are skipped
//   4. Headers outside the contract are skipped, not rejected
// ============================================================================

// Binding maps schema keys to column positions in one CSV file.
type Binding struct {
	Headers []string        `json:"headers"`
	Index   map[string]int  `json:"index"`
	Skipped []SkippedColumn `json:"skipped,omitempty"`
}

// Lookup returns the column position bound to key.
func (b *Binding) Lookup(key string) (int, bool) {
	i, ok := b.Index[key]
	return i, ok
}

// Bind matches headers against c. Missing required columns are reported
// together in a *MissingColumnsError.
func (c Config) Bind(headers []string) (*Binding, error) {
	if len(headers) == 0 {
		return nil, errors.New("CSV has no columns")
	}

	b := &Binding{
		Headers: headers,
		Index:   make(map[string]int, len(c.Columns)),
	}
	timestampKey := c.keyForRole(RoleTimestamp)

	for i, h := range headers {
		key := toSnakeCase(strings.TrimPrefix(h, "\ufeff"))
		if key == "" && i == 0 && timestampKey != "" {
			key = timestampKey
		}
		if key == "" {
			b.Skipped = append(b.Skipped, SkippedColumn{Column: h, Index: i, Reason: "empty header"})
			continue
		}
		if _, ok := c.Column(key); !ok {
			b.Skipped = append(b.Skipped, SkippedColumn{Column: h, Index: i, Reason: "not part of schema " + c.Name})
			continue
		}
		if prev, dup := b.Index[key]; dup {
			b.Skipped = append(b.Skipped, SkippedColumn{
				Column: h,
				Index:  i,
				Reason: fmt.Sprintf("duplicate of column %d", prev),
			})
			continue
		}
		b.Index[key] = i
	}

	var missing []string
	for _, key := range c.RequiredKeys() {
		if _, ok := b.Index[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return b, &MissingColumnsError{Columns: missing}
	}
	return b, nil
}

func (c Config) keyForRole(r Role) string {
	for _, col := range c.Columns {
		if col.Role == r {
			return col.Key
		}
	}
	return ""
}

// ============================================================================
// INSPECTION
// ============================================================================

// Detected cell types.
const (
	TypeEmpty     = "empty"
	TypeNumeric   = "numeric"
	TypeTimestamp = "timestamp"
	TypeText      = "text"
)

// ColumnReport describes one input column.
type ColumnReport struct {
	Header   string   `json:"header"`
	Key      string   `json:"key,omitempty"` // empty when unbound
	Index    int      `json:"index"`
	Role     Role     `json:"role,omitempty"`
	Detected string   `json:"detected"`
	Unique   int      `json:"unique"`
	Nulls    int      `json:"nulls"`
	Samples  []string `json:"samples"`
	Problem  string   `json:"problem,omitempty"`
}

// Report is the result of Inspect.
type Report struct {
	Schema  string          `json:"schema"`
	Rows    int             `json:"rowsSampled"`
	Columns []ColumnReport  `json:"columns"`
	Missing []string        `json:"missing,omitempty"`
	Skipped []SkippedColumn `json:"skipped,omitempty"`
}

// OK reports whether the file would load: no missing columns and no column
// whose sampled values contradict its role.
func (r *Report) OK() bool {
	if len(r.Missing) > 0 {
		return false
	}
	for _, col := range r.Columns {
		if col.Problem != "" {
			return false
		}
	}
	return true
}

// Inspect reads the header and up to sampleSize rows (0 = 1000) from r.
func Inspect(r io.Reader, c Config, sampleSize int) (*Report, error) {
	if sampleSize <= 0 {
		sampleSize = 1000
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	binding, bindErr := c.Bind(headers)
	var missing *MissingColumnsError
	if bindErr != nil && !errors.As(bindErr, &missing) {
		return nil, bindErr
	}

	var rows [][]string
	for len(rows) < sampleSize {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}

	report := &Report{
		Schema:  c.Name,
		Rows:    len(rows),
		Skipped: binding.Skipped,
	}
	if missing != nil {
		report.Missing = missing.Columns
	}

	bound := make(map[int]string, len(binding.Index))
	for key, i := range binding.Index {
		bound[i] = key
	}

	for i, h := range headers {
		col := analyzeColumn(h, i, rows, c.TimestampLayouts)
		if key, ok := bound[i]; ok {
			meta, _ := c.Column(key)
			col.Key = key
			col.Role = meta.Role
			col.Problem = roleProblem(meta.Role, col.Detected)
		}
		report.Columns = append(report.Columns, col)
	}
	return report, nil
}

// analyzeColumn inspects all sampled values of one column.
func analyzeColumn(header string, index int, rows [][]string, layouts []string) ColumnReport {
	col := ColumnReport{Header: header, Index: index, Samples: []string{}}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) {
			col.Nulls++
			continue
		}
		val := strings.TrimSpace(row[index])
		if isNull(val) {
			col.Nulls++
			continue
		}
		values = append(values, val)
		uniqueSet[val] = true
	}

	col.Unique = len(uniqueSet)
	col.Samples = collectSamples(uniqueSet, 5)
	col.Detected = detectType(values, layouts)
	return col
}

func roleProblem(role Role, detected string) string {
	switch {
	case detected == TypeEmpty && role != RoleErrorCode:
		return "no values in sample"
	case role == RoleTimestamp && detected != TypeTimestamp:
		return "expected timestamps, found " + detected
	case role == RoleMeasure && detected != TypeNumeric:
		return "expected numbers, found " + detected
	case role == RoleStatus && detected != TypeText:
		return "expected status names, found " + detected
	}
	return ""
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectType returns the narrowest type that every value satisfies.
func detectType(values []string, layouts []string) string {
	if len(values) == 0 {
		return TypeEmpty
	}
	numeric, stamp := true, true
	for _, v := range values {
		if numeric && !isNumeric(v) {
			numeric = false
		}
		if stamp && !isTimestamp(v, layouts) {
			stamp = false
		}
		if !numeric && !stamp {
			return TypeText
		}
	}
	if numeric {
		return TypeNumeric
	}
	return TypeTimestamp
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func isTimestamp(s string, layouts []string) bool {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isNull(s string) bool {
	switch s {
	case "", "null", "NULL", "N/A", "n/a", "NaN", "nan":
		return true
	}
	return false
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase normalizes a header.
// "Spindle Speed RPM" → "spindle_speed_rpm", "feedRateMmMin" → "feed_rate_mm_min"
func toSnakeCase(s string) string {
	s = strings.TrimSpace(s)
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = strings.ToLower(result.String())
	s = strings.NewReplacer(" ", "_", "-", "_", "/", "_", ".", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// NormalizeHeader exposes the header normalization used by Bind.
func NormalizeHeader(h string) string { return toSnakeCase(h) }

// collectSamples picks up to maxSamples values, sorted for determinism.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
