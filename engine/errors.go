package engine

import (
	"errors"
	"fmt"
)

// Non-fatal pipeline conditions. Aggregators degrade to "no data" on these;
// callers use errors.Is to pick the message shown in place of a chart.
var (
	ErrEmptyResult      = errors.New("no records match the selected filters")
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnknownMeasure   = errors.New("unknown measure")
	ErrNoParameters     = errors.New("no parameters selected")
	ErrInvalidCriteria  = errors.New("invalid filter criteria")
)

// LoadErrorKind classifies a fatal dataset load failure.
type LoadErrorKind string

const (
	KindNotFound LoadErrorKind = "not_found"
	KindSource   LoadErrorKind = "source"
	KindSchema   LoadErrorKind = "schema"
	KindParse    LoadErrorKind = "parse"
)

// LoadError reports why a dataset could not be loaded.
// Row is 1-based over data rows (header excluded); 0 means not row-specific.
type LoadError struct {
	Kind   LoadErrorKind
	Source string
	Row    int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("load %s", e.Source)
	if e.Row > 0 {
		msg += fmt.Sprintf(": row %d", e.Row)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(": column %q", e.Column)
	}
	return fmt.Sprintf("%s: %s: %v", msg, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err carries a *LoadError of the given kind.
// An empty kind matches any LoadError.
func IsLoadError(err error, kind LoadErrorKind) bool {
	var le *LoadError
	if !errors.As(err, &le) {
		return false
	}
	return kind == "" || le.Kind == kind
}
