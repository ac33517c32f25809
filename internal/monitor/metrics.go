// Package monitor tracks runtime metrics for the /metrics endpoint.
package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks overall service performance.
type SystemMetrics struct {
	mu sync.RWMutex

	// Latency histograms
	RequestLatency    *LatencyHistogram
	EvaluationLatency *LatencyHistogram
	DBLatency         *LatencyHistogram

	// Counters
	requestsServed    uint64
	tradesRecorded    uint64
	evaluationsRun    uint64
	statusTransitions uint64
	insightsGenerated uint64
	errorsCount       uint64

	// Lock registry size (updated periodically from main).
	accountLocks int

	lastUpdate time.Time
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		RequestLatency:    NewLatencyHistogram(1000),
		EvaluationLatency: NewLatencyHistogram(1000),
		DBLatency:         NewLatencyHistogram(1000),
		lastUpdate:        time.Now(),
	}
}

// LatencyHistogram tracks latency samples in a sliding window. Stats are
// recomputed lazily, only when samples changed.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts a duration to ms and records it.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// Stats returns min, max, avg, p50, p95, p99 over the current window.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// IncrementRequests increments the served request counter.
func (m *SystemMetrics) IncrementRequests() {
	atomic.AddUint64(&m.requestsServed, 1)
}

// IncrementTrades increments the recorded trade counter.
func (m *SystemMetrics) IncrementTrades() {
	atomic.AddUint64(&m.tradesRecorded, 1)
}

// IncrementEvaluations increments the evaluation cycle counter.
func (m *SystemMetrics) IncrementEvaluations() {
	atomic.AddUint64(&m.evaluationsRun, 1)
}

// IncrementTransitions increments the status transition counter.
func (m *SystemMetrics) IncrementTransitions() {
	atomic.AddUint64(&m.statusTransitions, 1)
}

// IncrementInsights increments the generated insight counter.
func (m *SystemMetrics) IncrementInsights() {
	atomic.AddUint64(&m.insightsGenerated, 1)
}

// IncrementErrors increments the error counter.
func (m *SystemMetrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// SetAccountLocks updates the live per-account lock count.
func (m *SystemMetrics) SetAccountLocks(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountLocks = n
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	RequestLatency    LatencyStats `json:"request_latency"`
	EvaluationLatency LatencyStats `json:"evaluation_latency"`
	DBLatency         LatencyStats `json:"db_latency"`
	RequestsServed    uint64       `json:"requests_served"`
	TradesRecorded    uint64       `json:"trades_recorded"`
	EvaluationsRun    uint64       `json:"evaluations_run"`
	StatusTransitions uint64       `json:"status_transitions"`
	InsightsGenerated uint64       `json:"insights_generated"`
	ErrorsCount       uint64       `json:"errors_count"`
	AccountLocks      int          `json:"account_locks"`
	GoroutineCount    int          `json:"goroutine_count"`
	HeapAlloc         uint64       `json:"heap_alloc_bytes"`
	HeapSys           uint64       `json:"heap_sys_bytes"`
	Timestamp         time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	locks := m.accountLocks
	m.mu.RUnlock()

	return MetricsSnapshot{
		RequestLatency:    m.RequestLatency.Stats(),
		EvaluationLatency: m.EvaluationLatency.Stats(),
		DBLatency:         m.DBLatency.Stats(),
		RequestsServed:    atomic.LoadUint64(&m.requestsServed),
		TradesRecorded:    atomic.LoadUint64(&m.tradesRecorded),
		EvaluationsRun:    atomic.LoadUint64(&m.evaluationsRun),
		StatusTransitions: atomic.LoadUint64(&m.statusTransitions),
		InsightsGenerated: atomic.LoadUint64(&m.insightsGenerated),
		ErrorsCount:       atomic.LoadUint64(&m.errorsCount),
		AccountLocks:      locks,
		GoroutineCount:    runtime.NumGoroutine(),
		HeapAlloc:         memStats.HeapAlloc,
		HeapSys:           memStats.HeapSys,
		Timestamp:         time.Now(),
	}
}

// Timer measures one operation's duration into a histogram.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer starts a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{start: time.Now(), histogram: h}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
