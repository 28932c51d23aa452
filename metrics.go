package mainloop

import (
	"slices"
	"sync"
	"time"
)

// Metrics tracks runtime statistics for a context. All methods are
// thread-safe; collection is enabled with [WithMetrics] and read via
// [Context.Metrics], which returns a copy.
type Metrics struct {
	mu sync.Mutex

	iterations uint64
	dispatches uint64

	sourcesCurrent int
	sourcesMax     int

	latency LatencyMetrics
	rate    *RateCounter
}

// MetricsSnapshot is a point-in-time copy of a context's metrics.
type MetricsSnapshot struct {
	// Iterations is the number of iterations started.
	Iterations uint64
	// Dispatches is the number of dispatch callbacks invoked.
	Dispatches uint64

	// SourcesCurrent and SourcesMax are the current and maximum
	// observed source-registry depths.
	SourcesCurrent int
	SourcesMax     int

	// Latency holds dispatch-callback latency percentiles over a
	// rolling sample window.
	Latency LatencySnapshot

	// DispatchRate is the dispatch rate (per second) over a rolling
	// window.
	DispatchRate float64
}

func newMetrics() *Metrics {
	return &Metrics{
		rate: NewRateCounter(10*time.Second, 100*time.Millisecond),
	}
}

func (m *Metrics) iterationStarted() {
	m.mu.Lock()
	m.iterations++
	m.mu.Unlock()
}

func (m *Metrics) dispatchDone(d time.Duration) {
	m.mu.Lock()
	m.dispatches++
	m.mu.Unlock()
	m.latency.Record(d)
	m.rate.Increment()
}

func (m *Metrics) sourceAdded() {
	m.mu.Lock()
	m.sourcesCurrent++
	if m.sourcesCurrent > m.sourcesMax {
		m.sourcesMax = m.sourcesCurrent
	}
	m.mu.Unlock()
}

func (m *Metrics) sourceRemoved() {
	m.mu.Lock()
	m.sourcesCurrent--
	m.mu.Unlock()
}

func (m *Metrics) snapshot() MetricsSnapshot {
	m.latency.Sample()

	m.mu.Lock()
	snap := MetricsSnapshot{
		Iterations:     m.iterations,
		Dispatches:     m.dispatches,
		SourcesCurrent: m.sourcesCurrent,
		SourcesMax:     m.sourcesMax,
		DispatchRate:   m.rate.Rate(),
	}
	m.mu.Unlock()

	snap.Latency = m.latency.Snapshot()
	return snap
}

// sampleSize is the maximum number of latency samples to retain.
// A rolling buffer of 1000 samples is kept to compute percentiles.
const sampleSize = 1000

// LatencyMetrics tracks latency distribution with percentiles.
type LatencyMetrics struct {
	mu          sync.RWMutex
	sampleIdx   int
	sampleCount int
	samples     [sampleSize]time.Duration

	// Computed percentiles (cached after Sample() call)
	p50  time.Duration
	p90  time.Duration
	p95  time.Duration
	p99  time.Duration
	max  time.Duration
	mean time.Duration
	sum  time.Duration
}

// LatencySnapshot is a copy of the cached latency percentiles.
type LatencySnapshot struct {
	P50  time.Duration
	P90  time.Duration
	P95  time.Duration
	P99  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// Record records a latency sample.
func (l *LatencyMetrics) Record(duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// If the buffer is full, subtract the sample being replaced.
	if l.sampleCount >= sampleSize {
		l.sum -= l.samples[l.sampleIdx]
	}

	l.samples[l.sampleIdx] = duration
	l.sum += duration
	l.sampleIdx++
	if l.sampleIdx >= sampleSize {
		l.sampleIdx = 0
	}
	if l.sampleCount < sampleSize {
		l.sampleCount++
	}
}

// Sample computes percentiles from collected samples, caching the
// result. Returns the number of samples used.
//
// Sorting is O(n log n); with sampleSize=1000 this is ~100-200
// microseconds, so call no more than about once per second.
func (l *LatencyMetrics) Sample() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.sampleCount
	if count == 0 {
		return 0
	}

	sorted := make([]time.Duration, count)
	copy(sorted, l.samples[:count])
	slices.Sort(sorted)

	l.p50 = sorted[percentileIndex(count, 50)]
	l.p90 = sorted[percentileIndex(count, 90)]
	l.p95 = sorted[percentileIndex(count, 95)]
	l.p99 = sorted[percentileIndex(count, 99)]
	l.max = sorted[count-1]
	l.mean = l.sum / time.Duration(count)

	return count
}

// Snapshot returns the cached percentiles from the last Sample call.
func (l *LatencyMetrics) Snapshot() LatencySnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return LatencySnapshot{
		P50:  l.p50,
		P90:  l.p90,
		P95:  l.p95,
		P99:  l.p99,
		Max:  l.max,
		Mean: l.mean,
	}
}

// percentileIndex computes the index for a given percentile (0-100).
func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}

// RateCounter tracks events per second with a rolling window of
// fixed-size buckets.
//
// The rate is always the event count in the window divided by the full
// window length, so until the window has filled it under-reports the
// recent rate. All methods are thread-safe.
type RateCounter struct {
	mu           sync.Mutex
	lastRotation time.Time
	buckets      []int64
	bucketSize   time.Duration
	windowSize   time.Duration
}

// NewRateCounter creates a rate counter with the given window and
// bucket granularity (e.g. a 10-second window with 100ms buckets).
func NewRateCounter(windowSize, bucketSize time.Duration) *RateCounter {
	bucketCount := int(windowSize / bucketSize)
	if bucketCount < 1 {
		bucketCount = 1
	}
	return &RateCounter{
		lastRotation: time.Now(),
		buckets:      make([]int64, bucketCount),
		bucketSize:   bucketSize,
		windowSize:   windowSize,
	}
}

// Increment records one event.
func (r *RateCounter) Increment() {
	r.mu.Lock()
	r.rotateLocked()
	r.buckets[len(r.buckets)-1]++
	r.mu.Unlock()
}

// rotateLocked advances the bucket window if time has passed.
// HOLDS: r.mu.
func (r *RateCounter) rotateLocked() {
	now := time.Now()
	advance := int(now.Sub(r.lastRotation) / r.bucketSize)

	if advance >= len(r.buckets) {
		for i := range r.buckets {
			r.buckets[i] = 0
		}
		r.lastRotation = now
		return
	}

	if advance > 0 {
		copy(r.buckets, r.buckets[advance:])
		for i := len(r.buckets) - advance; i < len(r.buckets); i++ {
			r.buckets[i] = 0
		}
		r.lastRotation = r.lastRotation.Add(time.Duration(advance) * r.bucketSize)
	}
}

// Rate returns the current rate in events per second.
func (r *RateCounter) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rotateLocked()

	var sum int64
	for _, count := range r.buckets {
		sum += count
	}
	if sum == 0 {
		return 0
	}
	return float64(sum) / r.windowSize.Seconds()
}
