package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/cncwatch/engine"
	"github.com/spektr-org/cncwatch/translator"
)

// MaxPageSize caps the limit of /records.
const MaxPageSize = 1000

var (
	errNotFound         = errors.New("not found")
	errMethodNotAllowed = errors.New("method not allowed")
	errRateLimited      = errors.New("rate limit exceeded")
)

// ============================================================================
// HEALTH + OPTIONS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ds, err := s.source.Get(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"source":   ds.Source(),
		"records":  ds.Len(),
		"loadedAt": ds.LoadedAt().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, engine.AvailableOptions(ds, s.engineOpts...))
}

func (s *Server) handleRequestSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, translator.RequestSchema())
}

// ============================================================================
// DASHBOARD + SECTIONS
// ============================================================================

// sectionResponse wraps one dashboard section with the context a client
// needs to label it.
type sectionResponse struct {
	Records  int                 `json:"records"`
	Period   string              `json:"period"`
	NoData   bool                `json:"noData"`
	Messages []string            `json:"messages,omitempty"`
	Data     interface{}         `json:"data"`
	Chart    *engine.ChartConfig `json:"chart,omitempty"`
}

func section(d *engine.Dashboard, data interface{}, chart *engine.ChartConfig) sectionResponse {
	return sectionResponse{
		Records:  d.Records,
		Period:   d.Period,
		NoData:   d.NoData,
		Messages: d.Messages,
		Data:     data,
		Chart:    chart,
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r, "dashboard"); ok {
		respondJSON(w, http.StatusOK, d)
	}
}

func (s *Server) handleKPI(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r, "kpi"); ok {
		respondJSON(w, http.StatusOK, section(d, map[string]interface{}{
			"kpi":   d.KPI,
			"tiles": d.Tiles,
		}, nil))
	}
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r, "series"); ok {
		respondJSON(w, http.StatusOK, section(d, d.Series, d.Charts.Trends))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r, "status"); ok {
		respondJSON(w, http.StatusOK, section(d, d.Status, d.Charts.Status))
	}
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r, "daily"); ok {
		respondJSON(w, http.StatusOK, section(d, d.Daily, d.Charts.Daily))
	}
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r, "correlation"); ok {
		respondJSON(w, http.StatusOK, section(d, d.Correlation, d.Charts.Correlation))
	}
}

func (s *Server) handleCumulative(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r, "cumulative"); ok {
		respondJSON(w, http.StatusOK, section(d, d.Cumulative, d.Charts.Cumulative))
	}
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r, "charts"); ok {
		respondJSON(w, http.StatusOK, section(d, d.Charts, nil))
	}
}

// handleRecords pages through the filtered records without running the
// aggregators.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return
	}
	req, err := translator.FromValues(r.URL.Query())
	if err != nil {
		respondError(w, r, statusFor(err), err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err)
		return
	}
	limit, err := queryInt(r, "limit", engine.DefaultPageSize)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err)
		return
	}
	if offset < 0 || limit < 1 || limit > MaxPageSize {
		respondError(w, r, http.StatusBadRequest, &translator.InputError{
			Field: "limit",
			Value: strconv.Itoa(limit),
			Err:   errors.New("offset must be >= 0 and limit between 1 and " + strconv.Itoa(MaxPageSize)),
		})
		return
	}

	started := time.Now()
	criteria := engine.DefaultCriteria(ds)
	if req.Criteria != nil {
		criteria = *req.Criteria
	}
	if err := criteria.Validate(); err != nil {
		respondError(w, r, http.StatusBadRequest, err)
		return
	}
	table := engine.BuildRecordTable(engine.ApplyFilters(ds, criteria), offset, limit)
	s.metrics.ObservePipeline("records", time.Since(started))

	respondJSON(w, http.StatusOK, table)
}

// dashboard runs the full pipeline for r. On failure it has already
// written the response.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request, name string) (*engine.Dashboard, bool) {
	ds, ok := s.dataset(w, r)
	if !ok {
		return nil, false
	}

	req, err := s.parseRequest(w, r)
	if err != nil {
		respondError(w, r, statusFor(err), err)
		return nil, false
	}

	d, err := engine.Execute(ds, req, s.engineOpts...)
	if err != nil {
		respondError(w, r, statusFor(err), err)
		return nil, false
	}
	s.metrics.ObservePipeline(name, d.Elapsed)
	return d, true
}

func (s *Server) parseRequest(w http.ResponseWriter, r *http.Request) (engine.DashboardRequest, error) {
	if r.Method != http.MethodPost {
		return translator.FromValues(r.URL.Query())
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return engine.DashboardRequest{}, err
	}
	return translator.FromJSON(body)
}

func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (*engine.Dataset, bool) {
	ds, err := s.source.Get(r.Context())
	if err != nil {
		s.logger.Warn("dataset unavailable", zap.String("request_id", RequestIDFrom(r.Context())), zap.Error(err))
		respondError(w, r, http.StatusServiceUnavailable, err)
		return nil, false
	}
	return ds, true
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &translator.InputError{Field: key, Value: v, Err: errors.New("not an integer")}
	}
	return n, nil
}

// ============================================================================
// RESPONSES
// ============================================================================

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var inputErr *translator.InputError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &inputErr),
		errors.Is(err, engine.ErrInvalidCriteria),
		errors.Is(err, engine.ErrUnknownMeasure),
		errors.Is(err, engine.ErrNoParameters):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := map[string]string{"error": err.Error()}
	if id := RequestIDFrom(r.Context()); id != "" {
		body["requestId"] = id
	}
	var inputErr *translator.InputError
	if errors.As(err, &inputErr) {
		body["field"] = inputErr.Field
	}
	respondJSON(w, status, body)
}
