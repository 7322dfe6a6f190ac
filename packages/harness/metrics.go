package harness

import (
	"math/rand"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Metrics aggregates request latencies across a run. The runner is
// sequential but console rendering may read while a run records, so
// access is guarded.
type Metrics struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	count     int64
	failures  int64
}

// LatencySummary is a point-in-time snapshot of the latency distribution.
type LatencySummary struct {
	Count    int64
	Failures int64
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
	Max      time.Duration
}

// NewMetrics returns an empty collector. The histogram tracks 1us to 60s
// at 3 significant digits, which comfortably covers the request timeout.
func NewMetrics() *Metrics {
	return &Metrics{
		histogram: hdrhistogram.New(1, 60_000_000, 3),
	}
}

// Record adds one request's latency. Failed cases count separately so the
// summary can report a pass rate alongside the distribution.
func (m *Metrics) Record(duration time.Duration, passed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latencyUs := duration.Microseconds()
	if latencyUs < 1 {
		latencyUs = 1
	}
	if latencyUs > 60_000_000 {
		latencyUs = 60_000_000
	}
	_ = m.histogram.RecordValue(latencyUs)
	m.count++
	if !passed {
		m.failures++
	}
}

// Summary snapshots the distribution recorded so far.
func (m *Metrics) Summary() LatencySummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	us := func(v int64) time.Duration {
		return time.Duration(v) * time.Microsecond
	}
	return LatencySummary{
		Count:    m.count,
		Failures: m.failures,
		P50:      us(m.histogram.ValueAtQuantile(50)),
		P95:      us(m.histogram.ValueAtQuantile(95)),
		P99:      us(m.histogram.ValueAtQuantile(99)),
		Max:      us(m.histogram.Max()),
	}
}

func seededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
