package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/spektr-org/cncwatch/config"
	"github.com/spektr-org/cncwatch/engine"
	"github.com/spektr-org/cncwatch/helpers"
	"github.com/spektr-org/cncwatch/schema"
	"github.com/spektr-org/cncwatch/server"
	"github.com/spektr-org/cncwatch/translator"
)

// ============================================================================
// CNCWATCH CLI — One-shot reports and the dashboard API
// ============================================================================

const version = "0.3.0"

type reportFlags struct {
	from, to           string
	timeStart, timeEnd string
	statuses, codes    string
	params, corr       string
	day                string
	dayStart, dayEnd   string
	window             int
}

// values renders the flags as the query string the API accepts, so both
// surfaces share one translator.
func (f reportFlags) values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(key, val)
		}
	}
	set("from", f.from)
	set("to", f.to)
	set("time_start", f.timeStart)
	set("time_end", f.timeEnd)
	set("status", f.statuses)
	set("error", f.codes)
	set("param", f.params)
	set("corr", f.corr)
	set("day", f.day)
	set("day_start", f.dayStart)
	set("day_end", f.dayEnd)
	if f.window > 0 {
		v.Set("window", strconv.Itoa(f.window))
	}
	return v
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the exit code. Deferred cleanup
// (output file, logger, signal handler) completes before main exits.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cncwatch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── Flags ─────────────────────────────────────────────────────────────
	var rf reportFlags
	filePath := fs.String("file", "", "CSV dataset: local path or s3://bucket/key (.gz/.zst accepted)")
	configPath := fs.String("config", "", "Path to YAML config file")
	serve := fs.Bool("serve", false, "Serve the dashboard API instead of printing a report")
	describe := fs.Bool("describe", false, "Report how the file's columns bind to the telemetry schema and exit")
	format := fs.String("format", "json", "Output format: json, pretty, text, csv")
	chart := fs.String("chart", "", "With --format csv: trends, status, daily, correlation or cumulative instead of records")
	productionMode := fs.String("production-mode", "", "per_record, or cumulative for running counters such as cncgen output (default from config)")
	outFile := fs.String("out", "", "Write output to file instead of stdout")
	showVersion := fs.Bool("version", false, "Print version and exit")

	fs.StringVar(&rf.from, "from", "", "First day, YYYY-MM-DD")
	fs.StringVar(&rf.to, "to", "", "Last day (inclusive), YYYY-MM-DD")
	fs.StringVar(&rf.timeStart, "time-start", "", "Time-of-day window start, HH:MM[:SS]")
	fs.StringVar(&rf.timeEnd, "time-end", "", "Time-of-day window end, HH:MM[:SS]")
	fs.StringVar(&rf.statuses, "status", "", "Comma-separated machine statuses (Running,Idle,Fault)")
	fs.StringVar(&rf.codes, "errors", "", "Comma-separated error codes")
	fs.StringVar(&rf.params, "params", "", "Comma-separated parameters to plot")
	fs.StringVar(&rf.corr, "corr", "", "Comma-separated parameters to correlate (default: all sensors)")
	fs.StringVar(&rf.day, "day", "", "Drill-down day, YYYY-MM-DD")
	fs.StringVar(&rf.dayStart, "day-start", "", "Drill-down window start, HH:MM[:SS]")
	fs.StringVar(&rf.dayEnd, "day-end", "", "Drill-down window end, HH:MM[:SS]")
	fs.IntVar(&rf.window, "window", 0, "Moving-average window in points (default from config)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `cncwatch — CNC machine telemetry dashboard

Usage:
  cncwatch --file cnc_data.csv --from 2025-09-15 --to 2025-09-19 --format text
  cncwatch --file cnc_data.csv --status Fault --format csv --out faults.csv
  cncwatch --file cnc_data.csv --format csv --chart daily
  cncwatch --file sim.csv --production-mode cumulative --format text
  cncwatch --file s3://telemetry/cnc_data.csv.gz --serve
  cncwatch --file cnc_data.csv --describe --format pretty

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Environment:
  CNCWATCH_*        Overrides config keys, e.g. CNCWATCH_ADDR, CNCWATCH_DATASET_PATH
  .env              Loaded from the working directory when present

Formats:
  json      Full dashboard JSON (default)
  pretty    Pretty-printed JSON
  text      KPI tiles and messages
  csv       Filtered records, or one chart's data with --chart
`)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *showVersion {
		fmt.Fprintf(stdout, "cncwatch %s\n", version)
		return 0
	}

	// ── Config + logger ───────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fail(stderr, fmt.Errorf("config: %w", err))
	}
	if *filePath != "" {
		cfg.Dataset.Path = *filePath
	}
	if *productionMode != "" {
		mode, err := engine.ParseProductionMode(*productionMode)
		if err != nil {
			return fail(stderr, err)
		}
		cfg.Dataset.ProductionMode = string(mode)
	}
	if cfg.Dataset.Path == "" {
		fmt.Fprintln(stderr, "Error: --file (or dataset.path) is required")
		fs.Usage()
		return 1
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return fail(stderr, fmt.Errorf("logger: %w", err))
	}
	defer func() { _ = logger.Sync() }()

	loader := helpers.NewLoader(
		helpers.WithS3Config(helpers.S3Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		}),
		helpers.WithLoaderLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := runServer(ctx, cfg, loader, logger); err != nil {
			logger.Error("server stopped", zap.Error(err))
			return exitCode(err)
		}
		return 0
	}

	// ── Output writer ─────────────────────────────────────────────────────
	writer := stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			return fail(stderr, fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		writer = f
	}

	if *describe {
		ok, err := runDescribe(ctx, loader, cfg.Dataset.Path, writer, *format)
		if err != nil {
			return fail(stderr, err)
		}
		if !ok {
			return 1
		}
		return 0
	}

	// ── One-shot report ───────────────────────────────────────────────────
	ds, err := loader.Load(ctx, cfg.Dataset.Path)
	if err != nil {
		return fail(stderr, err)
	}

	req, err := translator.FromValues(rf.values())
	if err != nil {
		return fail(stderr, err)
	}

	dash, err := engine.Execute(ds, req, cfg.EngineOptions(logger)...)
	if err != nil {
		return fail(stderr, err)
	}

	switch *format {
	case "csv":
		if *chart != "" {
			c, ok := chartByName(dash.Charts, *chart)
			if !ok {
				return fail(stderr, fmt.Errorf("unknown chart %q", *chart))
			}
			writeChartCSV(writer, c)
		} else {
			limit := dash.Records
			if limit == 0 {
				limit = 1
			}
			writeTableCSV(writer, engine.BuildRecordTable(engine.ApplyFilters(ds, dash.Criteria), 0, limit))
		}
	case "text":
		writeText(writer, dash)
	case "json", "pretty":
		if err := writeJSON(writer, dash, *format); err != nil {
			return fail(stderr, err)
		}
	default:
		return fail(stderr, fmt.Errorf("unknown format %q", *format))
	}
	return 0
}

// ============================================================================
// MODES
// ============================================================================

func runServer(ctx context.Context, cfg *config.Config, loader *helpers.Loader, logger *zap.Logger) error {
	metrics := server.NewMetrics()
	store := helpers.NewStore(loader, cfg.Dataset.Path,
		helpers.WithStoreLogger(logger),
		helpers.WithDebounce(cfg.Dataset.Debounce),
		helpers.WithReloadHook(metrics.ObserveLoad),
	)

	// the server refuses to start without a dataset
	ds, err := store.Get(ctx)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded", zap.String("source", store.URI()), zap.Int("records", ds.Len()))

	if cfg.Dataset.Watch {
		go func() {
			if err := store.Watch(ctx); err != nil {
				logger.Error("dataset watch stopped", zap.Error(err))
			}
		}()
	}

	srv := server.New(store,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithEngineOptions(cfg.EngineOptions(logger)...),
		server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		server.WithCompression(cfg.Server.Compression),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr, server.Timeouts{
		Read:     cfg.Server.ReadTimeout,
		Write:    cfg.Server.WriteTimeout,
		Shutdown: cfg.Server.ShutdownTimeout,
	})
}

// runDescribe prints the column report. ok is false when required columns
// are missing or unusable.
func runDescribe(ctx context.Context, loader *helpers.Loader, uri string, w io.Writer, format string) (ok bool, err error) {
	rc, err := loader.Open(ctx, uri)
	if err != nil {
		return false, err
	}
	defer rc.Close()

	report, err := schema.Inspect(rc, loader.Schema(), 0)
	if err != nil {
		return false, fmt.Errorf("describe failed: %w", err)
	}
	if format == "text" {
		for _, col := range report.Columns {
			status := "ok"
			switch {
			case col.Key == "":
				status = "skipped"
			case col.Problem != "":
				status = col.Problem
			}
			fmt.Fprintf(w, "%-28s %-10s %s\n", col.Header, col.Detected, status)
		}
		if len(report.Missing) > 0 {
			fmt.Fprintf(w, "missing: %s\n", strings.Join(report.Missing, ", "))
		}
	} else if err := writeJSON(w, report, format); err != nil {
		return false, err
	}
	return report.OK(), nil
}

// ============================================================================
// TEXT OUTPUT
// ============================================================================

func writeText(w io.Writer, d *engine.Dashboard) {
	fmt.Fprintf(w, "Period: %s (%d of %d records)\n", d.Period, d.Records, d.TotalRecords)
	for _, tile := range d.Tiles {
		fmt.Fprintf(w, "%-20s %s\n", tile.Label+":", tile.Value)
	}
	for _, msg := range d.Messages {
		fmt.Fprintln(w, msg)
	}
}

// ============================================================================
// CSV OUTPUT — Sheets-ready chart and table data
// ============================================================================

func chartByName(charts engine.DashboardCharts, name string) (*engine.ChartConfig, bool) {
	switch strings.ToLower(name) {
	case "trends":
		return charts.Trends, true
	case "status":
		return charts.Status, true
	case "daily":
		return charts.Daily, true
	case "correlation":
		return charts.Correlation, true
	case "cumulative":
		return charts.Cumulative, true
	}
	return nil, false
}

func writeChartCSV(w io.Writer, chart *engine.ChartConfig) {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if chart == nil || len(chart.Series) == 0 {
		cw.Write([]string{"Result", "No data"})
		return
	}

	xLabel := chart.XAxis
	yLabel := chart.YAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	if yLabel == "" {
		yLabel = "Value"
	}

	// Single series → two columns
	if len(chart.Series) == 1 {
		cw.Write([]string{xLabel, yLabel})
		for _, d := range chart.Series[0].Data {
			cw.Write([]string{d.Label, fmtNum(d.Value)})
		}
		return
	}

	// Multi-series → label + one column per series, joined on label
	headers := []string{xLabel}
	for _, s := range chart.Series {
		headers = append(headers, s.Name)
	}
	cw.Write(headers)

	var labels []string
	rows := make(map[string][]string)
	for i, s := range chart.Series {
		for _, d := range s.Data {
			row, ok := rows[d.Label]
			if !ok {
				row = make([]string, len(chart.Series))
				rows[d.Label] = row
				labels = append(labels, d.Label)
			}
			row[i] = fmtNum(d.Value)
		}
	}
	for _, label := range labels {
		cw.Write(append([]string{label}, rows[label]...))
	}
}

func writeTableCSV(w io.Writer, table *engine.TableData) {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	headers := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		headers[i] = col.Key
	}
	cw.Write(headers)
	for _, row := range table.Rows {
		cw.Write(row)
	}
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v interface{}, format string) error {
	var out []byte
	var err error

	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func fmtNum(v float64) string {
	// Whole numbers → no decimals, fractional → 2 decimals
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// exitCode maps err to the process status: 2 when the dataset could not be
// loaded, 1 otherwise.
func exitCode(err error) int {
	var loadErr *engine.LoadError
	if errors.As(err, &loadErr) {
		return 2
	}
	return 1
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}
