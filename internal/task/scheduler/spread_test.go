package scheduler

import (
	"testing"
	"time"
)

func TestStartupJitterBounded(t *testing.T) {
	t.Parallel()
	for _, every := range []time.Duration{time.Second, 10 * time.Second, time.Hour} {
		limit := min(every, maxStartupSpread)
		for i := 0; i < 50; i++ {
			j := startupJitter(every, "heartbeat")
			if j < 0 || j >= limit {
				t.Fatalf("startupJitter(%v) = %v, want in [0, %v)", every, j, limit)
			}
		}
	}
	if j := startupJitter(0, "x"); j != 0 {
		t.Fatalf("startupJitter(0) = %v, want 0", j)
	}
}

func TestSpreadScheduleDelaysOnlyFirstRun(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newSpreadSchedule(10*time.Second, now, 3*time.Second)

	first := s.Next(now)
	if want := now.Add(13 * time.Second); !first.Equal(want) {
		t.Fatalf("first Next = %v, want %v", first, want)
	}
	second := s.Next(first)
	if want := first.Add(10 * time.Second); !second.Equal(want) {
		t.Fatalf("second Next = %v, want %v", second, want)
	}
}
