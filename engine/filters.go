package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// FILTERS — Date / Time-of-Day / Status / Error-Code Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL constraints per record in one loop.
// Returns a SubView (index list into parent), zero data copy.
// ============================================================================

// FilterCriteria is the user's filter selection as an immutable value.
//
// Zero DateStart or DateEnd leaves that side of the range open. When both
// TimeStart and TimeEnd are zero the whole day is selected; TimeStart after
// TimeEnd selects an overnight window. Empty Statuses or ErrorCodes apply
// no restriction on that field.
type FilterCriteria struct {
	DateStart  Date      `json:"date_start"`
	DateEnd    Date      `json:"date_end"`
	TimeStart  TimeOfDay `json:"time_start"`
	TimeEnd    TimeOfDay `json:"time_end"`
	Statuses   []Status  `json:"selected_statuses"`
	ErrorCodes []string  `json:"selected_error_codes"`
}

// Validate rejects criteria that can never be meaningful.
func (c FilterCriteria) Validate() error {
	if !c.DateStart.IsZero() && !c.DateEnd.IsZero() && c.DateEnd.Before(c.DateStart) {
		return fmt.Errorf("%w: date_end %s is before date_start %s", ErrInvalidCriteria, c.DateEnd, c.DateStart)
	}
	if !c.TimeStart.Valid() || !c.TimeEnd.Valid() {
		return fmt.Errorf("%w: time of day must be within 00:00:00 and 23:59:59", ErrInvalidCriteria)
	}
	for _, s := range c.Statuses {
		if _, ok := ParseStatus(string(s)); !ok {
			return fmt.Errorf("%w: unknown status %q", ErrInvalidCriteria, s)
		}
	}
	return nil
}

// wholeDay reports whether the time-of-day window spans the full day.
func (c FilterCriteria) wholeDay() bool {
	return (c.TimeStart == 0 && c.TimeEnd == 0) || (c.TimeStart == 0 && c.TimeEnd == EndOfDay)
}

// ApplyFilters returns a view of records matching every criterion.
// The result may be empty; the parent view is never modified.
func ApplyFilters(view RecordView, c FilterCriteria) RecordView {
	statuses := statusSet(c.Statuses)
	codes := toLowerSet(c.ErrorCodes)
	wholeDay := c.wholeDay()

	return Select(view, func(i int) bool {
		ts := view.Timestamp(i)

		day := DateOf(ts)
		if !c.DateStart.IsZero() && day.Before(c.DateStart) {
			return false
		}
		if !c.DateEnd.IsZero() && day.After(c.DateEnd) {
			return false
		}

		if !wholeDay && !inTimeWindow(ClockOf(ts), c.TimeStart, c.TimeEnd) {
			return false
		}

		if len(statuses) > 0 && !statuses[strings.ToLower(string(view.Status(i)))] {
			return false
		}
		if len(codes) > 0 && !codes[strings.ToLower(view.ErrorCode(i))] {
			return false
		}
		return true
	})
}

// inTimeWindow checks start <= t <= end, wrapping past midnight when start > end.
func inTimeWindow(t, start, end TimeOfDay) bool {
	if start <= end {
		return t >= start && t <= end
	}
	return t >= start || t <= end
}

// DefaultCriteria reproduces the dashboard's initial sidebar state: the full
// date range of the view (one extra day when it spans a single date), the
// whole day, and no status or error-code restriction.
func DefaultCriteria(view RecordView) FilterCriteria {
	c := FilterCriteria{TimeStart: 0, TimeEnd: EndOfDay}
	if view.Len() == 0 {
		return c
	}
	c.DateStart = DateOf(view.Timestamp(0))
	c.DateEnd = DateOf(view.Timestamp(view.Len() - 1))
	if c.DateStart == c.DateEnd {
		c.DateEnd = c.DateEnd.AddDays(1)
	}
	return c
}

// ============================================================================
// FILTER OPTIONS — what the UI may offer
// ============================================================================

// FilterOptions lists the selectable values present in a view.
type FilterOptions struct {
	MinDate       Date      `json:"min_date"`
	MaxDate       Date      `json:"max_date"`
	Statuses      []Status  `json:"statuses"`
	ErrorCodes    []string  `json:"error_codes"`
	Params        []Measure `json:"params"`
	DefaultParams []Measure `json:"default_params"`
	Records       int       `json:"records"`
}

// AvailableOptions scans view for the statuses, error codes (excluding "no
// error"), date bounds and sensor parameters a user can pick from.
func AvailableOptions(view RecordView, opts ...Option) FilterOptions {
	cfg := applyOptions(opts)
	out := FilterOptions{
		Statuses:      []Status{},
		ErrorCodes:    []string{},
		Params:        []Measure{},
		DefaultParams: cfg.DefaultParams,
		Records:       view.Len(),
	}
	for _, m := range view.MeasureKeys() {
		if m != MeasureProduction && m != MeasureCycleTime {
			out.Params = append(out.Params, m)
		}
	}
	if view.Len() == 0 {
		return out
	}

	out.MinDate = DateOf(view.Timestamp(0))
	out.MaxDate = DateOf(view.Timestamp(view.Len() - 1))

	seenStatus := make(map[Status]bool)
	seenCode := make(map[string]bool)
	for i := 0; i < view.Len(); i++ {
		seenStatus[view.Status(i)] = true
		if code := view.ErrorCode(i); code != "" && !seenCode[code] {
			seenCode[code] = true
			out.ErrorCodes = append(out.ErrorCodes, code)
		}
	}
	for _, st := range KnownStatuses {
		if seenStatus[st] {
			out.Statuses = append(out.Statuses, st)
		}
	}
	sortCodes(out.ErrorCodes)
	return out
}

// sortCodes orders numeric codes numerically and the rest lexically after them.
func sortCodes(codes []string) {
	sort.SliceStable(codes, func(i, j int) bool {
		a, errA := strconv.ParseFloat(codes[i], 64)
		b, errB := strconv.ParseFloat(codes[j], 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return codes[i] < codes[j]
		}
	})
}

func statusSet(statuses []Status) map[string]bool {
	set := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		set[strings.ToLower(string(s))] = true
	}
	return set
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(strings.TrimSpace(item))] = true
	}
	return set
}
