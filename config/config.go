// Package config loads cncwatch settings from a YAML file, a .env file and
// CNCWATCH_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/cncwatch/engine"
)

type Config struct {
	Dataset DatasetConfig `yaml:"dataset"`
	S3      S3Config      `yaml:"s3"`
	Engine  EngineConfig  `yaml:"engine"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

type DatasetConfig struct {
	Path           string        `yaml:"path"` // local path or s3://bucket/key
	Watch          bool          `yaml:"watch"`
	Debounce       time.Duration `yaml:"debounce"`
	ProductionMode string        `yaml:"production_mode"` // per_record | cumulative
}

type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

type EngineConfig struct {
	MovingAverageWindow int      `yaml:"moving_average_window"`
	DefaultParams       []string `yaml:"default_params"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst       int           `yaml:"rate_burst"`
	Compression     bool          `yaml:"compression"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Debounce:       250 * time.Millisecond,
			ProductionMode: string(engine.ProductionPerRecord),
		},
		Engine: EngineConfig{
			MovingAverageWindow: engine.DefaultMovingAverageWindow,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       20,
			RateBurst:       40,
			Compression:     true,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (optional), then .env, then the environment, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// a missing .env is normal
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if _, err := engine.ParseProductionMode(c.Dataset.ProductionMode); err != nil {
		return fmt.Errorf("dataset.production_mode: %w", err)
	}
	if c.Dataset.Watch && strings.Contains(c.Dataset.Path, "://") {
		return fmt.Errorf("dataset.watch: only local files can be watched, got %s", c.Dataset.Path)
	}
	if c.Engine.MovingAverageWindow < 1 {
		return fmt.Errorf("engine.moving_average_window must be >= 1, got %d", c.Engine.MovingAverageWindow)
	}
	if _, err := c.DefaultParams(); err != nil {
		return fmt.Errorf("engine.default_params: %w", err)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be >= 0, got %g", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be >= 1 when rate limiting, got %d", c.Server.RateBurst)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// DefaultParams resolves engine.default_params to measures.
func (c *Config) DefaultParams() ([]engine.Measure, error) {
	params := make([]engine.Measure, 0, len(c.Engine.DefaultParams))
	for _, key := range c.Engine.DefaultParams {
		m, ok := engine.LookupMeasure(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", engine.ErrUnknownMeasure, key)
		}
		params = append(params, m)
	}
	return params, nil
}

// EngineOptions turns the engine and dataset sections into engine options.
func (c *Config) EngineOptions(logger *zap.Logger) []engine.Option {
	mode, _ := engine.ParseProductionMode(c.Dataset.ProductionMode)
	params, _ := c.DefaultParams()
	return []engine.Option{
		engine.WithLogger(logger),
		engine.WithMovingAverageWindow(c.Engine.MovingAverageWindow),
		engine.WithProductionMode(mode),
		engine.WithDefaultParams(params...),
	}
}

// NewLogger builds the process logger described by the log section.
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
