package translator

import (
	"fmt"
)

// ============================================================================
// TRANSLATOR — UI control state → engine.DashboardRequest
// ============================================================================
// The dashboard's controls (date pickers, time sliders, multiselects,
// drill-down day) arrive as loosely typed strings, either as a query
// string or a JSON body. The translator is the only place that parses
// them; the engine only ever sees typed, validated values.
// ============================================================================

// Request is the raw control state, field names as sent by clients.
// Every field is optional. Multi-valued fields accept repeated values or
// comma-separated lists.
type Request struct {
	From      string `json:"from,omitempty"`       // first day, YYYY-MM-DD
	To        string `json:"to,omitempty"`         // last day, inclusive
	TimeStart string `json:"time_start,omitempty"` // HH:MM[:SS]
	TimeEnd   string `json:"time_end,omitempty"`

	Statuses   []string `json:"status,omitempty"`
	ErrorCodes []string `json:"error,omitempty"`

	Params []string `json:"param,omitempty"`
	Window int      `json:"window,omitempty"`

	Day      string `json:"day,omitempty"` // drill-down day
	DayStart string `json:"day_start,omitempty"`
	DayEnd   string `json:"day_end,omitempty"`

	CorrelationParams []string `json:"corr,omitempty"`
}

// hasCriteria reports whether any filter control was set. Without one the
// engine applies its default criteria (the whole dataset).
func (r Request) hasCriteria() bool {
	return r.From != "" || r.To != "" || r.TimeStart != "" || r.TimeEnd != "" ||
		len(r.Statuses) > 0 || len(r.ErrorCodes) > 0
}

// InputError reports a control value that could not be translated.
type InputError struct {
	Field string
	Value string
	Err   error
}

func (e *InputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
