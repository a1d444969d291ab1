package goSession

import (
	"sort"
	"sync/atomic"
	"time"
)

// MetricID identifies a Manager counter or histogram.
type MetricID uint16

const (
	MetricStatusTransition MetricID = iota
	MetricRecoveryStarted
	MetricRecoverySucceeded
	MetricRecoveryReplaced
	MetricRecoveryTimedOut
	MetricBootstrapAttempt
	MetricBootstrapFailure
	MetricBootstrapExhausted
	MetricLoginUIShown
	MetricRenewTriggered
	MetricLogout
	MetricLogoutFailure
	MetricSSOStart
	MetricSSOComplete
	MetricSSOProviderAuth
	MetricSSOFailure
	MetricCredentialsReplaced
	MetricGUIDMismatch
	MetricTenantPrepared
	MetricTenantChanged
	MetricWiringFailure
	// MetricWaitLatency is the only histogram: time spent in WaitForAuthentication.
	MetricWaitLatency
	metricIDCount
)

// WaitLatencyBounds are the upper bounds of the wait latency histogram.
// Samples above the last bound land in a final overflow bucket.
var WaitLatencyBounds = []time.Duration{
	10 * time.Millisecond,
	50 * time.Millisecond,
	250 * time.Millisecond,
	time.Second,
	5 * time.Second,
	15 * time.Second,
	time.Minute,
}

const cacheLineSize = 64

// counter sits on its own cache line; the counters are hammered from
// every goroutine that touches the session.
type counter struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

// Metrics is a lock-free set of counters and one latency histogram.
type Metrics struct {
	enabled bool
	latency bool
	counts  [metricIDCount]counter
	wait    []atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of Metrics. Histogram buckets
// are per-bucket counts, not cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	m := &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
	if m.latency {
		m.wait = make([]atomic.Uint64, len(WaitLatencyBounds)+1)
	}
	return m
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments counter id. It is a no-op when metrics are disabled.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricWaitLatency {
		return
	}
	m.counts[id].Add(1)
}

// Observe records d into the wait latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.latency || id != MetricWaitLatency {
		return
	}
	i := sort.Search(len(WaitLatencyBounds), func(i int) bool { return d <= WaitLatencyBounds[i] })
	m.wait[i].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricWaitLatency {
		return 0
	}
	return m.counts[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := MetricID(0); id < MetricWaitLatency; id++ {
		s.Counters[id] = m.counts[id].Load()
	}
	if m.latency {
		buckets := make([]uint64, len(m.wait))
		for i := range m.wait {
			buckets[i] = m.wait[i].Load()
		}
		s.Histograms[MetricWaitLatency] = buckets
	}
	return s
}
