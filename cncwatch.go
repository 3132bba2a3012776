// Package cncwatch analyses CNC machine telemetry.
//
// Usage:
//
//	import "github.com/spektr-org/cncwatch/engine"
//
//	dash, err := engine.Execute(dataset, engine.DashboardRequest{Criteria: &criteria},
//	    engine.WithProductionMode(engine.ProductionCumulative),
//	    engine.WithMovingAverageWindow(10),
//	)
//
// The helpers package loads a telemetry CSV (local, s3://, .gz or .zst)
// into an immutable engine.Dataset. The engine filters it through
// zero-copy views and derives KPIs, parameter trends, the status
// distribution, daily production against faults, correlations and the
// cumulative production curve, each with a render-ready chart. The
// translator turns query strings and JSON bodies into engine requests and
// the server package serves them over HTTP. Nothing in the engine performs
// I/O.
package cncwatch
