package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "CNCWATCH_"

// LoadFromEnv applies CNCWATCH_* overrides to cfg. Unset variables leave
// the current value alone; malformed values are errors.
func LoadFromEnv(cfg *Config) error {
	e := envReader{}

	e.str("DATASET_PATH", &cfg.Dataset.Path)
	e.boolean("DATASET_WATCH", &cfg.Dataset.Watch)
	e.duration("DATASET_DEBOUNCE", &cfg.Dataset.Debounce)
	e.str("PRODUCTION_MODE", &cfg.Dataset.ProductionMode)

	e.str("S3_ENDPOINT", &cfg.S3.Endpoint)
	e.str("S3_REGION", &cfg.S3.Region)
	e.str("S3_ACCESS_KEY", &cfg.S3.AccessKey)
	e.str("S3_SECRET_KEY", &cfg.S3.SecretKey)
	e.boolean("S3_USE_PATH_STYLE", &cfg.S3.UsePathStyle)

	e.integer("MOVING_AVERAGE_WINDOW", &cfg.Engine.MovingAverageWindow)
	if v, ok := lookup("DEFAULT_PARAMS"); ok {
		cfg.Engine.DefaultParams = splitList(v)
	}

	e.str("ADDR", &cfg.Server.Addr)
	e.float("RATE_LIMIT", &cfg.Server.RateLimit)
	e.integer("RATE_BURST", &cfg.Server.RateBurst)
	e.boolean("COMPRESSION", &cfg.Server.Compression)
	e.duration("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	e.duration("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	e.duration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.boolean("LOG_DEVELOPMENT", &cfg.Log.Development)

	return e.err
}

// lookup reports a CNCWATCH_ variable. Blank values count as unset.
func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// envReader keeps the first parse error so call sites stay flat.
type envReader struct{ err error }

func (e *envReader) fail(name, v string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s%s=%q: %w", EnvPrefix, name, v, err)
	}
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func (e *envReader) boolean(name string, dst *bool) {
	if v, ok := lookup(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) integer(name string, dst *int) {
	if v, ok := lookup(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(name string, dst *float64) {
	if v, ok := lookup(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if v, ok := lookup(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = d
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
