// Package otel exposes cosyncjwt Client metrics through OpenTelemetry.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family and
// observes each Client counter under operation/outcome or reason attributes.
// Latency buckets are one gauge with an le attribute. One callback reads
// [cosyncjwt.Client.MetricsSnapshot] and [cosyncjwt.Client.AuditStats] on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate Client state.
package otel
