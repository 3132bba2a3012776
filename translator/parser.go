package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spektr-org/cncwatch/engine"
)

// ============================================================================
// PARSER — Query strings and JSON bodies into DashboardRequest
// ============================================================================

// MaxWindow bounds the moving-average window a client may ask for.
const MaxWindow = 1000

// FromValues translates a query string.
func FromValues(v url.Values) (engine.DashboardRequest, error) {
	window := 0
	if w := strings.TrimSpace(v.Get("window")); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return engine.DashboardRequest{}, &InputError{Field: "window", Value: w, Err: errors.New("not an integer")}
		}
		window = n
	}

	req := Request{
		From:              v.Get("from"),
		To:                v.Get("to"),
		TimeStart:         v.Get("time_start"),
		TimeEnd:           v.Get("time_end"),
		Statuses:          splitList(v["status"]),
		ErrorCodes:        splitList(v["error"]),
		Params:            splitList(v["param"]),
		Window:            window,
		Day:               v.Get("day"),
		DayStart:          v.Get("day_start"),
		DayEnd:            v.Get("day_end"),
		CorrelationParams: splitList(v["corr"]),
	}
	return req.Translate()
}

// FromJSON validates body against the request schema, then translates it.
// An empty body is the default request.
func FromJSON(body []byte) (engine.DashboardRequest, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Request{}.Translate()
	}

	result, err := requestSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return engine.DashboardRequest{}, &InputError{Field: "body", Err: err}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return engine.DashboardRequest{}, &InputError{Field: "body", Err: errors.New(strings.Join(msgs, "; "))}
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return engine.DashboardRequest{}, &InputError{Field: "body", Err: err}
	}
	return req.Translate()
}

// Translate converts r into a typed engine request.
func (r Request) Translate() (engine.DashboardRequest, error) {
	var out engine.DashboardRequest

	if r.hasCriteria() {
		c, err := r.criteria()
		if err != nil {
			return out, err
		}
		out.Criteria = &c
	}

	params, err := measures("param", r.Params)
	if err != nil {
		return out, err
	}
	out.Series.Params = params

	if r.Window < 0 || r.Window > MaxWindow {
		return out, &InputError{Field: "window", Value: strconv.Itoa(r.Window), Err: fmt.Errorf("must be between 0 and %d", MaxWindow)}
	}
	out.Series.Window = r.Window

	dd, err := r.drillDown()
	if err != nil {
		return out, err
	}
	out.Series.DrillDown = dd

	corr, err := measures("corr", r.CorrelationParams)
	if err != nil {
		return out, err
	}
	out.CorrelationParams = corr

	return out, nil
}

func (r Request) criteria() (engine.FilterCriteria, error) {
	var c engine.FilterCriteria
	var err error

	if c.DateStart, err = optionalDate("from", r.From); err != nil {
		return c, err
	}
	if c.DateEnd, err = optionalDate("to", r.To); err != nil {
		return c, err
	}
	if c.TimeStart, err = optionalClock("time_start", r.TimeStart, 0); err != nil {
		return c, err
	}
	if c.TimeEnd, err = optionalClock("time_end", r.TimeEnd, engine.EndOfDay); err != nil {
		return c, err
	}

	for _, s := range r.Statuses {
		st, ok := engine.ParseStatus(s)
		if !ok {
			return c, &InputError{Field: "status", Value: s, Err: errors.New("unknown machine status")}
		}
		c.Statuses = append(c.Statuses, st)
	}
	c.ErrorCodes = append(c.ErrorCodes, r.ErrorCodes...)

	if err := c.Validate(); err != nil {
		return c, &InputError{Field: "criteria", Err: err}
	}
	return c, nil
}

func (r Request) drillDown() (*engine.DrillDown, error) {
	if r.Day == "" {
		if r.DayStart != "" || r.DayEnd != "" {
			return nil, &InputError{Field: "day", Err: errors.New("day_start and day_end need a day")}
		}
		return nil, nil
	}

	day, err := optionalDate("day", r.Day)
	if err != nil {
		return nil, err
	}
	start, err := optionalClock("day_start", r.DayStart, 0)
	if err != nil {
		return nil, err
	}
	end, err := optionalClock("day_end", r.DayEnd, engine.EndOfDay)
	if err != nil {
		return nil, err
	}
	return &engine.DrillDown{Day: day, Start: start, End: end}, nil
}

// ============================================================================
// VALUE PARSERS
// ============================================================================

func optionalDate(field, s string) (engine.Date, error) {
	if strings.TrimSpace(s) == "" {
		return engine.Date{}, nil
	}
	d, err := engine.ParseDate(s)
	if err != nil {
		return d, &InputError{Field: field, Value: s, Err: errors.New("want YYYY-MM-DD")}
	}
	return d, nil
}

func optionalClock(field, s string, fallback engine.TimeOfDay) (engine.TimeOfDay, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	t, err := engine.ParseTimeOfDay(s)
	if err != nil {
		return 0, &InputError{Field: field, Value: s, Err: errors.New("want HH:MM or HH:MM:SS")}
	}
	return t, nil
}

func measures(field string, keys []string) ([]engine.Measure, error) {
	var out []engine.Measure
	for _, k := range keys {
		m, ok := engine.LookupMeasure(k)
		if !ok {
			return nil, &InputError{Field: field, Value: k, Err: engine.ErrUnknownMeasure}
		}
		out = append(out, m)
	}
	return out, nil
}

// splitList flattens repeated and comma-separated values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
