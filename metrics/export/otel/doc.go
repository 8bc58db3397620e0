// Package otel publishes gateAuth engine metrics through an OpenTelemetry
// [metric.Meter] supplied by the caller.
//
// Each engine counter becomes an Int64ObservableCounter and the restore
// latency histogram becomes one cumulative gauge per bucket. A single
// callback reads the engine snapshot on every collection.
package otel
