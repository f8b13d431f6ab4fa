package gateway

import (
	"slices"
	"sync"
	"time"
)

const latencyWindow = 128

// OperationStats counts calls of one gateway operation.
type OperationStats struct {
	Calls    int64 `json:"calls"`
	Failures int64 `json:"failures"`
}

type UpstreamStats struct {
	BaseURL          string                    `json:"base_url"`
	TotalRequests    int64                     `json:"total_requests"`
	SuccessfulReqs   int64                     `json:"successful_requests"`
	FailedReqs       int64                     `json:"failed_requests"`
	SuccessRate      float64                   `json:"success_rate"`
	AvgLatencyMs     int64                     `json:"avg_latency_ms"`
	P95LatencyMs     int64                     `json:"p95_latency_ms"`
	ConsecutiveFails int32                     `json:"consecutive_fails"`
	LastFailureAt    *time.Time                `json:"last_failure_at,omitempty"`
	LastSuccessAt    *time.Time                `json:"last_success_at,omitempty"`
	Operations       map[string]OperationStats `json:"operations"`
}

// upstreamTracker keeps what the stats endpoint shows about the billing API.
// Latencies of the last latencyWindow successful calls feed the p95.
type upstreamTracker struct {
	mu sync.Mutex

	ok, failed  int64
	okLatency   time.Duration
	streak      int32
	lastFailure time.Time
	lastSuccess time.Time
	ops         map[string]OperationStats

	window [latencyWindow]time.Duration
	filled int
	next   int

	now func() time.Time
}

func newUpstreamTracker() *upstreamTracker {
	return &upstreamTracker{ops: make(map[string]OperationStats), now: time.Now}
}

func (t *upstreamTracker) record(op string, success bool, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.ops[op]
	s.Calls++
	if !success {
		s.Failures++
		t.ops[op] = s
		t.failed++
		t.streak++
		t.lastFailure = t.now()
		return
	}
	t.ops[op] = s
	t.ok++
	t.streak = 0
	t.lastSuccess = t.now()
	t.okLatency += latency

	t.window[t.next] = latency
	t.next = (t.next + 1) % latencyWindow
	if t.filled < latencyWindow {
		t.filled++
	}
}

func (t *upstreamTracker) p95() time.Duration {
	if t.filled == 0 {
		return 0
	}
	sorted := slices.Clone(t.window[:t.filled])
	slices.Sort(sorted)
	i := t.filled * 95 / 100
	if i >= t.filled {
		i = t.filled - 1
	}
	return sorted[i]
}

func (t *upstreamTracker) snapshot(baseURL string) UpstreamStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := UpstreamStats{
		BaseURL:          baseURL,
		TotalRequests:    t.ok + t.failed,
		SuccessfulReqs:   t.ok,
		FailedReqs:       t.failed,
		SuccessRate:      1,
		P95LatencyMs:     t.p95().Milliseconds(),
		ConsecutiveFails: t.streak,
		Operations:       make(map[string]OperationStats, len(t.ops)),
	}
	if total := t.ok + t.failed; total > 0 {
		st.SuccessRate = float64(t.ok) / float64(total)
	}
	if t.ok > 0 {
		st.AvgLatencyMs = (t.okLatency / time.Duration(t.ok)).Milliseconds()
	}
	if !t.lastFailure.IsZero() {
		at := t.lastFailure
		st.LastFailureAt = &at
	}
	if !t.lastSuccess.IsZero() {
		at := t.lastSuccess
		st.LastSuccessAt = &at
	}
	for op, s := range t.ops {
		st.Operations[op] = s
	}
	return st
}

// GetStats snapshots the upstream counters.
func (c *Client) GetStats() UpstreamStats {
	return c.metrics.snapshot(c.baseURL)
}
