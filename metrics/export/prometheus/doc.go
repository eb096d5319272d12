// Package prometheus renders cosyncjwt Client metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [cosyncjwt.Client] and exposes an
// [http.Handler]. Operation counters share the cosyncjwt_operations_total
// family and are labelled by operation and outcome; guard rejections use
// cosyncjwt_rejected_calls_total{reason}. Audit delivery is exported as
// cosyncjwt_audit_events_total{result} and cosyncjwt_audit_dropped_total{event}.
// The single histogram is cosyncjwt_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate Client state.
package prometheus
