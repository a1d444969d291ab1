// Package otel binds goSession metrics to an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter. The
// wait latency histogram becomes a cumulative bucket gauge labelled "le"
// and a count gauge. A single callback reads
// [goSession.Manager.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate manager state.
package otel
