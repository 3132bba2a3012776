package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/spektr-org/cncwatch/engine"
	"github.com/spektr-org/cncwatch/simulator"
)

// cncgen writes a synthetic CNC telemetry CSV. The output is compressed
// when its name ends in .gz or .zst, matching what cncwatch can read.
func main() {
	cfg := simulator.DefaultConfig()

	out := flag.String("out", "cnc_data.csv", "Output path, - for stdout (.gz and .zst are compressed)")
	start := flag.String("start", cfg.Start.Format("2006-01-02"), "First simulated day, YYYY-MM-DD")
	flag.IntVar(&cfg.Days, "days", cfg.Days, "Number of days to simulate")
	flag.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Sampling interval")
	flag.Float64Var(&cfg.FaultProbability, "fault-prob", cfg.FaultProbability, "Per-sample fault probability while running")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cncgen [--out cnc_data.csv] [--days 7] [--seed 1]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
production_count is a running counter. Report on the output with
  cncwatch --file cnc_data.csv --production-mode cumulative
or dataset.production_mode: cumulative in the config.
`)
	}
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	day, err := time.Parse("2006-01-02", *start)
	if err != nil {
		logger.Fatal("invalid --start", zap.String("start", *start), zap.Error(err))
	}
	cfg.Start = day

	records, err := simulator.Generate(cfg)
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}

	if err := writeOutput(*out, records); err != nil {
		logger.Fatal("write failed", zap.String("out", *out), zap.Error(err))
	}
	logger.Info("dataset generated",
		zap.String("out", *out),
		zap.Int("records", len(records)),
		zap.Float64("production", records[len(records)-1].ProductionCount),
		zap.Int64("seed", cfg.Seed))
}

func writeOutput(path string, records []engine.Record) error {
	if path == "-" {
		w := flushCloser{bufio.NewWriter(os.Stdout)}
		if err := simulator.WriteCSV(w, records); err != nil {
			return err
		}
		return w.Close()
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := compressor(f, path)
	if err != nil {
		return err
	}
	if err := simulator.WriteCSV(w, records); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}

// flushCloser flushes on Close so every writer is finished the same way.
type flushCloser struct{ *bufio.Writer }

func (f flushCloser) Close() error { return f.Flush() }

func compressor(w io.Writer, path string) (io.WriteCloser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case ".zst", ".zstd":
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	default:
		return flushCloser{bufio.NewWriter(w)}, nil
	}
}
