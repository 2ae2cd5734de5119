package generation

import (
	"maps"
	"sync"
	"time"
)

// UsageStats accumulates per-provider usage since creation or the last reset.
type UsageStats struct {
	TotalRequests      int64               `json:"total_requests"`
	SuccessfulRequests int64               `json:"successful_requests"`
	FailedRequests     int64               `json:"failed_requests"`
	TotalTokens        int64               `json:"total_tokens"`
	AverageLatency     time.Duration       `json:"average_latency"`
	ErrorsByKind       map[ErrorKind]int64 `json:"errors_by_kind"`
	LastRequestAt      time.Time           `json:"last_request_at,omitempty"`
}

// statsTracker guards UsageStats for concurrent Generate calls.
type statsTracker struct {
	mu    sync.Mutex
	stats UsageStats
}

func newStatsTracker() *statsTracker {
	return &statsTracker{stats: UsageStats{ErrorsByKind: map[ErrorKind]int64{}}}
}

// recordSuccess updates counters and the running average latency, which is
// taken over successful requests only.
func (t *statsTracker) recordSuccess(at time.Time, latency time.Duration, tokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.stats
	s.TotalRequests++
	s.SuccessfulRequests++
	s.TotalTokens += int64(tokens)
	n := s.SuccessfulRequests
	s.AverageLatency = time.Duration((int64(s.AverageLatency)*(n-1) + int64(latency)) / n)
	s.LastRequestAt = at
}

func (t *statsTracker) recordFailure(at time.Time, kind ErrorKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.stats
	s.TotalRequests++
	s.FailedRequests++
	s.ErrorsByKind[kind]++
	s.LastRequestAt = at
}

// snapshot returns a copy safe to hand to callers.
func (t *statsTracker) snapshot() UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.stats
	out.ErrorsByKind = maps.Clone(t.stats.ErrorsByKind)
	return out
}

func (t *statsTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats = UsageStats{ErrorsByKind: map[ErrorKind]int64{}}
}
