package internaldefs

import (
	"sort"

	"github.com/cosync/cosyncjwt"
)

// Label is one name/value pair attached to an exported series.
type Label struct {
	Name  string
	Value string
}

// Family is an exported metric name shared by several labelled series.
type Family struct {
	Name string
	Help string
}

// CounterDef binds a Client counter to one labelled series of a Family.
type CounterDef struct {
	ID     cosyncjwt.MetricID
	Family string
	Labels []Label
}

// HistogramDef binds a Client histogram to its exported name.
type HistogramDef struct {
	ID   cosyncjwt.MetricID
	Name string
	Help string
}

// Exported family names.
const (
	OperationsFamily    = "cosyncjwt_operations_total"
	RejectedCallsFamily = "cosyncjwt_rejected_calls_total"
	AuditEventsFamily   = "cosyncjwt_audit_events_total"
	AuditDroppedFamily  = "cosyncjwt_audit_dropped_total"
)

// Label names.
const (
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelReason    = "reason"
	LabelResult    = "result"
	LabelEvent     = "event"
	LabelLe        = "le"
)

// Audit delivery results, the values of LabelResult.
const (
	AuditResultDelivered = "delivered"
	AuditResultDropped   = "dropped"
	AuditResultSinkPanic = "sink_panic"
)

// CounterFamilies lists the counter families in output order.
var CounterFamilies = []Family{
	{Name: OperationsFamily, Help: "Client operations by operation and outcome."},
	{Name: RejectedCallsFamily, Help: "Calls rejected before reaching the backend."},
}

// AuditFamilies lists the audit delivery families in output order.
var AuditFamilies = []Family{
	{Name: AuditEventsFamily, Help: "Audit events by delivery result."},
	{Name: AuditDroppedFamily, Help: "Audit events dropped by the dispatcher, by event type."},
}

func op(id cosyncjwt.MetricID, operation, outcome string) CounterDef {
	return CounterDef{
		ID:     id,
		Family: OperationsFamily,
		Labels: []Label{{Name: LabelOperation, Value: operation}, {Name: LabelOutcome, Value: outcome}},
	}
}

func rejected(id cosyncjwt.MetricID, reason string) CounterDef {
	return CounterDef{
		ID:     id,
		Family: RejectedCallsFamily,
		Labels: []Label{{Name: LabelReason, Value: reason}},
	}
}

// CounterDefs lists every exported counter, grouped by family in output order.
var CounterDefs = []CounterDef{
	op(cosyncjwt.MetricLoginSuccess, "login", "success"),
	op(cosyncjwt.MetricLoginFailure, "login", "failure"),
	op(cosyncjwt.MetricLoginCompletionRequired, "login", "completion_required"),
	op(cosyncjwt.MetricLoginCompleteSuccess, "login_complete", "success"),
	op(cosyncjwt.MetricLoginCompleteFailure, "login_complete", "failure"),
	op(cosyncjwt.MetricAnonymousLoginSuccess, "login_anonymous", "success"),
	op(cosyncjwt.MetricAnonymousLoginFailure, "login_anonymous", "failure"),
	op(cosyncjwt.MetricForgotPassword, "forgot_password", "success"),
	op(cosyncjwt.MetricSignupSuccess, "signup", "success"),
	op(cosyncjwt.MetricSignupPending, "signup", "pending"),
	op(cosyncjwt.MetricSignupFailure, "signup", "failure"),
	op(cosyncjwt.MetricRegisterSuccess, "register", "success"),
	op(cosyncjwt.MetricRegisterPending, "register", "pending"),
	op(cosyncjwt.MetricRegisterFailure, "register", "failure"),
	op(cosyncjwt.MetricSignupCompleteSuccess, "complete_signup", "success"),
	op(cosyncjwt.MetricSignupCompleteFailure, "complete_signup", "failure"),
	op(cosyncjwt.MetricPasswordPolicyRejected, "password_check", "rejected"),
	op(cosyncjwt.MetricInviteSent, "invite", "success"),
	op(cosyncjwt.MetricAccountUpdateSuccess, "account_update", "success"),
	op(cosyncjwt.MetricAccountUpdateFailure, "account_update", "failure"),
	op(cosyncjwt.MetricLogout, "logout", "success"),
	op(cosyncjwt.MetricAccountDeleted, "delete_account", "success"),
	rejected(cosyncjwt.MetricNotConfigured, "not_configured"),
	rejected(cosyncjwt.MetricNoAccessToken, "no_access_token"),
}

// AuditResult is one delivery-result series value.
type AuditResult struct {
	Result string
	Value  uint64
}

// AuditResults returns the per-result delivery counts of stats in output order.
func AuditResults(stats cosyncjwt.AuditStats) []AuditResult {
	return []AuditResult{
		{Result: AuditResultDelivered, Value: stats.Delivered},
		{Result: AuditResultDropped, Value: stats.Dropped},
		{Result: AuditResultSinkPanic, Value: stats.SinkPanics},
	}
}

// SortedDropEvents returns the event types of stats.DroppedByEvent in order.
func SortedDropEvents(stats cosyncjwt.AuditStats) []string {
	events := make([]string, 0, len(stats.DroppedByEvent))
	for ev := range stats.DroppedByEvent {
		events = append(events, ev)
	}
	sort.Strings(events)
	return events
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: cosyncjwt.MetricRequestLatency, Name: "cosyncjwt_request_latency_seconds", Help: "Backend round-trip latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the eight latency buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling or truncating.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
