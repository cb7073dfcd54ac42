// Package stats implements swap pipeline telemetry: atomic per-action
// counters and a ring-buffered slow-swap log. Request counts and
// durations are also exported as Prometheus metrics; the slow-swap log
// is read through SlowLog only (github.com/prometheus/client_golang; see
// DESIGN.md for why Prometheus rather than a pull-based REST surface).
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/swapdb/swapcore/internal/swap/types"
)

// ActionCounters holds the atomic totals for one RIO action kind.
type ActionCounters struct {
	Count      atomic.Int64
	BatchCount atomic.Int64
	Memory     atomic.Int64
	TotalNanos atomic.Int64
}

// SlowEntry is one ring-buffer sample recorded when a swap request's
// wall-clock duration exceeds the configured threshold.
type SlowEntry struct {
	ID       uuid.UUID
	TxID     types.TxID
	Identity string
	Duration time.Duration
	// PerfReport / IOStatsReport hold opaque rocksdb diagnostic text,
	// already formatted by the caller (grocksdb exposes them as
	// strings, not structured types).
	PerfReport    string
	IOStatsReport string
	At            time.Time
}

// Stats is the C11 telemetry surface: one set of per-intention atomic
// counters plus a sampled, ring-buffered slow-swap log.
type Stats struct {
	byIntention map[types.Intention]*ActionCounters

	mu          sync.Mutex
	ring        []SlowEntry
	ringNext    int
	ringFilled  bool
	sampleRate  int // 0..100
	slowThresh  time.Duration

	promCounters  *prometheus.CounterVec
	promHistogram *prometheus.HistogramVec
}

// New builds a Stats with a fixed-size slow-log ring, a sample rate in
// [0,100], and a duration threshold above which a sample is eligible.
func New(ringSize, sampleRate int, slowThreshold time.Duration) *Stats {
	if ringSize <= 0 {
		ringSize = 128
	}
	s := &Stats{
		byIntention: make(map[types.Intention]*ActionCounters),
		ring:        make([]SlowEntry, ringSize),
		sampleRate:  clampPercent(sampleRate),
		slowThresh:  slowThreshold,
		promCounters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swapcore",
			Name:      "swap_requests_total",
			Help:      "Total swap requests processed, by intention.",
		}, []string{"intention"}),
		promHistogram: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swapcore",
			Name:      "swap_request_duration_seconds",
			Help:      "Swap request duration in seconds, by intention.",
		}, []string{"intention"}),
	}
	for _, in := range []types.Intention{types.NOP, types.IN, types.OUT, types.DEL, types.UTIL} {
		s.byIntention[in] = &ActionCounters{}
	}
	return s
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Collectors returns the Prometheus collectors callers should register
// on their registry.
func (s *Stats) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.promCounters, s.promHistogram}
}

// Counters returns the atomic counter set for intention. For an
// intention outside NOP..UTIL it returns a fresh set that is not kept,
// so counts recorded on it are not retained.
func (s *Stats) Counters(intention types.Intention) *ActionCounters {
	if c, ok := s.byIntention[intention]; ok {
		return c
	}
	return &ActionCounters{}
}

// Observe records one completed request: bumps the atomic counters,
// exports to Prometheus, and samples it into the slow-swap ring if it
// crossed the threshold and the sampler says yes.
func (s *Stats) Observe(txid types.TxID, identity string, intention types.Intention, duration time.Duration, memory int64, sample func() bool) {
	c := s.Counters(intention)
	c.Count.Add(1)
	c.Memory.Add(memory)
	c.TotalNanos.Add(duration.Nanoseconds())

	label := intention.String()
	s.promCounters.WithLabelValues(label).Inc()
	s.promHistogram.WithLabelValues(label).Observe(duration.Seconds())

	if duration < s.slowThresh {
		return
	}
	if s.sampleRate == 0 {
		return
	}
	if s.sampleRate < 100 && (sample == nil || !sample()) {
		return
	}
	s.recordSlow(SlowEntry{ID: uuid.New(), TxID: txid, Identity: identity, Duration: duration, At: time.Now()})
}

// BumpBatch records one completed batch for intention, independent of
// per-request Observe calls.
func (s *Stats) BumpBatch(intention types.Intention) {
	s.Counters(intention).BatchCount.Add(1)
}

func (s *Stats) recordSlow(e SlowEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring[s.ringNext] = e
	s.ringNext = (s.ringNext + 1) % len(s.ring)
	if s.ringNext == 0 {
		s.ringFilled = true
	}
}

// SlowLog returns the ring's contents, oldest first.
func (s *Stats) SlowLog() []SlowEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ringFilled {
		out := make([]SlowEntry, s.ringNext)
		copy(out, s.ring[:s.ringNext])
		return out
	}
	out := make([]SlowEntry, len(s.ring))
	copy(out, s.ring[s.ringNext:])
	copy(out[len(s.ring)-s.ringNext:], s.ring[:s.ringNext])
	return out
}
