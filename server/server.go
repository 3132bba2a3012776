// Package server exposes the dashboard pipeline over HTTP. Every request
// recomputes its sections from the shared, read-only dataset.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spektr-org/cncwatch/engine"
)

// DatasetSource hands out the dataset to serve. *helpers.Store satisfies it.
type DatasetSource interface {
	Get(ctx context.Context) (*engine.Dataset, error)
}

// Server routes API requests to the engine.
type Server struct {
	source      DatasetSource
	logger      *zap.Logger
	metrics     *Metrics
	engineOpts  []engine.Option
	limiter     *rate.Limiter
	compression bool
	maxBody     int64
	router      chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger routes request logs to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics uses m instead of a fresh collector set.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithEngineOptions passes opts to every engine call.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Server) { s.engineOpts = append(s.engineOpts, opts...) }
}

// WithRateLimit allows rps requests per second with the given burst
// across all clients. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCompression toggles gzip response compression.
func WithCompression(on bool) Option {
	return func(s *Server) { s.compression = on }
}

// DefaultMaxBody caps POST bodies.
const DefaultMaxBody = 1 << 20

// New creates a Server reading datasets from source.
func New(source DatasetSource, opts ...Option) *Server {
	s := &Server{
		source:  source,
		logger:  zap.NewNop(),
		metrics: NewMetrics(),
		maxBody: DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engineOpts = append([]engine.Option{engine.WithLogger(s.logger)}, s.engineOpts...)
	s.router = s.routes()
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the root handler, compressed when enabled.
func (s *Server) Handler() http.Handler {
	if s.compression {
		return gzhttp.GzipHandler(s.router)
	}
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(Instrument(s.logger, s.metrics))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(s.limiter, s.metrics))

		r.Get("/options", s.handleOptions)
		r.Get("/schema", s.handleRequestSchema)

		r.Get("/dashboard", s.handleDashboard)
		r.Post("/dashboard", s.handleDashboard)

		r.Get("/kpi", s.handleKPI)
		r.Get("/series", s.handleSeries)
		r.Get("/status", s.handleStatus)
		r.Get("/daily", s.handleDaily)
		r.Get("/correlation", s.handleCorrelation)
		r.Get("/cumulative", s.handleCumulative)
		r.Get("/charts", s.handleCharts)
		r.Get("/records", s.handleRecords)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})
	return r
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Timeouts bound the HTTP server.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Shutdown time.Duration
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully within t.Shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string, t Timeouts) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, t)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, t Timeouts) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: t.Read,
		WriteTimeout:      t.Write,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx := context.Background()
	if t.Shutdown > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, t.Shutdown)
		defer cancel()
	}
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
