package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute() and the aggregators
// ============================================================================

// ProductionMode selects how the production_count column is interpreted.
type ProductionMode string

const (
	// ProductionPerRecord: each record carries the units it completed.
	ProductionPerRecord ProductionMode = "per_record"
	// ProductionCumulative: the column is a running machine counter.
	ProductionCumulative ProductionMode = "cumulative"
)

// ParseProductionMode accepts "per_record" or "cumulative" (empty = per_record).
func ParseProductionMode(s string) (ProductionMode, error) {
	switch ProductionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProductionPerRecord:
		return ProductionPerRecord, nil
	case ProductionCumulative:
		return ProductionCumulative, nil
	default:
		return "", fmt.Errorf("unknown production mode %q", s)
	}
}

// DefaultMovingAverageWindow is the number of points averaged when no window is configured.
const DefaultMovingAverageWindow = 10

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Logger              *zap.Logger
	MovingAverageWindow int
	ProductionMode      ProductionMode
	DefaultParams       []Measure
}

// WithLogger routes engine diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMovingAverageWindow sets the moving-average window used when a request
// does not name one. Values below 1 are ignored.
func WithMovingAverageWindow(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.MovingAverageWindow = n
		}
	}
}

// WithProductionMode sets how production counts are totalled.
func WithProductionMode(m ProductionMode) Option {
	return func(c *config) {
		if m != "" {
			c.ProductionMode = m
		}
	}
}

// WithDefaultParams sets the parameters plotted when a request selects none.
func WithDefaultParams(params ...Measure) Option {
	return func(c *config) {
		if len(params) > 0 {
			c.DefaultParams = params
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger:              zap.NewNop(),
		MovingAverageWindow: DefaultMovingAverageWindow,
		ProductionMode:      ProductionPerRecord,
		DefaultParams:       []Measure{MeasureSpindleSpeed, MeasureServoLoad, MeasureSpindleTemperature},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
