package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ============================================================================
// AGGREGATORS — Measure reductions over a RecordView
// ============================================================================
// All functions operate on RecordView: zero-copy access to any data source.
// Empty views reduce to 0 rather than NaN or ±Inf.
// ============================================================================

// SumMeasure sums a named measure across a view.
func SumMeasure(view RecordView, m Measure) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		total += view.Measure(i, m)
	}
	return total
}

// MaxMeasure returns the largest value of a named measure.
func MaxMeasure(view RecordView, m Measure) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	max := math.Inf(-1)
	for i := 0; i < n; i++ {
		if v := view.Measure(i, m); v > max {
			max = v
		}
	}
	return max
}

// MinMeasure returns the smallest value of a named measure.
func MinMeasure(view RecordView, m Measure) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	min := math.Inf(1)
	for i := 0; i < n; i++ {
		if v := view.Measure(i, m); v < min {
			min = v
		}
	}
	return min
}

// CountStatus counts records of view with status st.
func CountStatus(view RecordView, st Status) int {
	n := 0
	for i := 0; i < view.Len(); i++ {
		if view.Status(i) == st {
			n++
		}
	}
	return n
}

// medianInterval returns the median positive gap between consecutive
// timestamps, or 0 when the view has fewer than two distinct timestamps.
func medianInterval(view RecordView) time.Duration {
	gaps := make([]time.Duration, 0, view.Len())
	for i := 1; i < view.Len(); i++ {
		if d := view.Timestamp(i).Sub(view.Timestamp(i - 1)); d > 0 {
			gaps = append(gaps, d)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid]
	}
	return (gaps[mid-1] + gaps[mid]) / 2
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatNumber formats v with comma separators and the given decimals.
func FormatNumber(v float64, decimals int) string {
	negative := v < 0
	if negative {
		v = -v
	}
	s := fmt.Sprintf("%.*f", decimals, v)
	intPart, frac := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, frac = s[:dot], s[dot:]
	}
	if len(intPart) > 3 {
		var parts []string
		for len(intPart) > 3 {
			parts = append([]string{intPart[len(intPart)-3:]}, parts...)
			intPart = intPart[:len(intPart)-3]
		}
		parts = append([]string{intPart}, parts...)
		intPart = strings.Join(parts, ",")
	}
	if negative {
		return "-" + intPart + frac
	}
	return intPart + frac
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LabelForMeasure turns "spindle_speed_rpm" into "Spindle Speed Rpm".
func LabelForMeasure(m Measure) string {
	words := strings.Fields(strings.ReplaceAll(string(m), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
