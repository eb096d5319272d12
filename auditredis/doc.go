// Package auditredis stores cosyncjwt audit events in a Redis stream.
//
// [StreamSink] implements [cosyncjwt.AuditSink]. Each event becomes one XADD
// entry whose fields mirror [cosyncjwt.AuditEvent]; the stream is trimmed
// approximately to a maximum length. Install it with Builder.WithAuditSink and
// enable Config.Audit.
//
// # What this package must NOT do
//
//   - Block Client operations. The Client's audit dispatcher calls Emit from its
//     own goroutine and Emit bounds each write with a timeout.
//   - Store anything the AuditEvent does not already carry.
package auditredis
