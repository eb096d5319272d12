package cosyncjwt

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a Client counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that returned tokens.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts failed Login calls.
	MetricLoginFailure
	// MetricLoginCompletionRequired counts logins that returned only a login token.
	MetricLoginCompletionRequired
	// MetricLoginCompleteSuccess counts successful LoginComplete calls.
	MetricLoginCompleteSuccess
	// MetricLoginCompleteFailure counts failed LoginComplete calls.
	MetricLoginCompleteFailure
	// MetricAnonymousLoginSuccess counts successful LoginAnonymous calls.
	MetricAnonymousLoginSuccess
	// MetricAnonymousLoginFailure counts failed LoginAnonymous calls.
	MetricAnonymousLoginFailure
	// MetricForgotPassword counts ForgotPassword requests accepted by the backend.
	MetricForgotPassword
	// MetricSignupSuccess counts signups that completed in one call.
	MetricSignupSuccess
	// MetricSignupPending counts signups accepted but awaiting completion.
	MetricSignupPending
	// MetricSignupFailure counts failed Signup calls.
	MetricSignupFailure
	// MetricRegisterSuccess counts registrations that completed in one call.
	MetricRegisterSuccess
	// MetricRegisterPending counts registrations accepted but awaiting completion.
	MetricRegisterPending
	// MetricRegisterFailure counts failed Register calls.
	MetricRegisterFailure
	// MetricSignupCompleteSuccess counts successful CompleteSignup calls.
	MetricSignupCompleteSuccess
	// MetricSignupCompleteFailure counts failed CompleteSignup calls.
	MetricSignupCompleteFailure
	// MetricPasswordPolicyRejected counts passwords rejected locally by the policy.
	MetricPasswordPolicyRejected
	// MetricInviteSent counts Invite calls accepted by the backend.
	MetricInviteSent
	// MetricAccountUpdateSuccess counts successful access-token operations.
	MetricAccountUpdateSuccess
	// MetricAccountUpdateFailure counts failed access-token operations.
	MetricAccountUpdateFailure
	// MetricNotConfigured counts calls rejected with ErrNotConfigured.
	MetricNotConfigured
	// MetricNoAccessToken counts calls rejected with ErrNoAccessToken.
	MetricNoAccessToken
	// MetricLogout counts Logout calls.
	MetricLogout
	// MetricAccountDeleted counts successful DeleteAccount calls.
	MetricAccountDeleted
	// MetricRequestLatency is the backend round-trip latency histogram.
	MetricRequestLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the request latency histogram.
//
// A nil or disabled Metrics accepts every call and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricRequestLatency is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRequestLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot returns empty maps when metrics are disabled. Each value is read
// atomically; the snapshot as a whole is not.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRequestLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto the upper bounds 50ms, 100ms, 250ms, 500ms, 1s,
// 2.5s, 5s and +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
