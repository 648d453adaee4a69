package metrics

import (
	"sort"
	"sync"
	"time"
)

// =============================================================================
// Latency Tracker with Percentiles
// =============================================================================

// LatencyTracker tracks message processing latencies over a sliding window
// and calculates percentiles on demand.
type LatencyTracker struct {
	mu         sync.RWMutex
	samples    []int64 // microseconds
	maxSamples int
	sorted     bool
}

// NewLatencyTracker creates a tracker keeping the last windowSize samples.
func NewLatencyTracker(windowSize int) *LatencyTracker {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &LatencyTracker{
		samples:    make([]int64, 0, windowSize),
		maxSamples: windowSize,
	}
}

// Record records a latency measurement.
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.samples) >= lt.maxSamples {
		// Drop the oldest 10% in one shift instead of shifting per sample.
		removeCount := lt.maxSamples / 10
		if removeCount < 1 {
			removeCount = 1
		}
		lt.samples = lt.samples[removeCount:]
	}

	lt.samples = append(lt.samples, d.Microseconds())
	lt.sorted = false
}

// Stats returns latency statistics including percentiles.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.samples) == 0 {
		return LatencyStats{}
	}

	if !lt.sorted {
		sort.Slice(lt.samples, func(i, j int) bool {
			return lt.samples[i] < lt.samples[j]
		})
		lt.sorted = true
	}

	n := len(lt.samples)
	var sum int64
	for _, v := range lt.samples {
		sum += v
	}

	return LatencyStats{
		Count: int64(n),
		Min:   time.Duration(lt.samples[0]) * time.Microsecond,
		Max:   time.Duration(lt.samples[n-1]) * time.Microsecond,
		Avg:   time.Duration(sum/int64(n)) * time.Microsecond,
		P50:   time.Duration(lt.percentile(0.50)) * time.Microsecond,
		P95:   time.Duration(lt.percentile(0.95)) * time.Microsecond,
		P99:   time.Duration(lt.percentile(0.99)) * time.Microsecond,
	}
}

// percentile requires the lock held and samples sorted.
func (lt *LatencyTracker) percentile(p float64) int64 {
	if len(lt.samples) == 0 {
		return 0
	}
	idx := int(float64(len(lt.samples)-1) * p)
	return lt.samples[idx]
}

// Reset clears all samples.
func (lt *LatencyTracker) Reset() {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.samples = lt.samples[:0]
	lt.sorted = false
}

// LatencyStats holds latency statistics.
type LatencyStats struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// ToMap converts stats to millisecond-valued fields for logging.
func (s LatencyStats) ToMap() map[string]any {
	return map[string]any{
		"count":  s.Count,
		"min_ms": float64(s.Min.Microseconds()) / 1000,
		"max_ms": float64(s.Max.Microseconds()) / 1000,
		"avg_ms": float64(s.Avg.Microseconds()) / 1000,
		"p50_ms": float64(s.P50.Microseconds()) / 1000,
		"p95_ms": float64(s.P95.Microseconds()) / 1000,
		"p99_ms": float64(s.P99.Microseconds()) / 1000,
	}
}
