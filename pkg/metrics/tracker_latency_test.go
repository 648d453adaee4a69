package metrics

import (
	"testing"
	"time"
)

func TestLatencyTrackerStats(t *testing.T) {
	lt := NewLatencyTracker(100)

	for i := 1; i <= 10; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	stats := lt.Stats()
	if stats.Count != 10 {
		t.Fatalf("Count = %d, want 10", stats.Count)
	}
	if stats.Min != 1*time.Millisecond {
		t.Errorf("Min = %v, want 1ms", stats.Min)
	}
	if stats.Max != 10*time.Millisecond {
		t.Errorf("Max = %v, want 10ms", stats.Max)
	}
	if stats.P50 != 5*time.Millisecond {
		t.Errorf("P50 = %v, want 5ms", stats.P50)
	}
	if stats.Avg != 5500*time.Microsecond {
		t.Errorf("Avg = %v, want 5.5ms", stats.Avg)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	lt := NewLatencyTracker(10)
	stats := lt.Stats()
	if stats.Count != 0 {
		t.Errorf("Count = %d, want 0", stats.Count)
	}
}

func TestLatencyTrackerWindowEviction(t *testing.T) {
	lt := NewLatencyTracker(10)

	// fill past capacity; the oldest tenth is evicted on overflow
	for i := 0; i < 25; i++ {
		lt.Record(time.Millisecond)
	}

	stats := lt.Stats()
	if stats.Count > 10 {
		t.Errorf("Count = %d, want at most window size 10", stats.Count)
	}
}

func TestLatencyTrackerReset(t *testing.T) {
	lt := NewLatencyTracker(10)
	lt.Record(time.Millisecond)
	lt.Reset()
	if got := lt.Stats().Count; got != 0 {
		t.Errorf("Count after reset = %d, want 0", got)
	}
}

func TestAssessDBPoolHealth(t *testing.T) {
	tests := []struct {
		name  string
		stats DBPoolStats
		want  PoolHealthStatus
	}{
		{"unlimited", DBPoolStats{}, PoolHealthy},
		{"normal", DBPoolStats{InUse: 5, MaxOpenConnections: 25}, PoolHealthy},
		{"degraded", DBPoolStats{InUse: 21, MaxOpenConnections: 25}, PoolDegraded},
		{"exhausted", DBPoolStats{InUse: 24, MaxOpenConnections: 25}, PoolUnhealthy},
		{
			"slow waits",
			DBPoolStats{InUse: 1, MaxOpenConnections: 25, WaitCount: 3, WaitDuration: 10 * time.Second},
			PoolDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssessDBPoolHealth(tt.stats).Status; got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}
