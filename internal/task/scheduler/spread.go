package scheduler

import (
	"hash/fnv"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

const maxStartupSpread = 30 * time.Second

// spreadSchedule is cron.Every with a delayed first run.
type spreadSchedule struct {
	base  cron.Schedule
	first time.Time
}

func newSpreadSchedule(every time.Duration, now time.Time, jitter time.Duration) *spreadSchedule {
	return &spreadSchedule{base: cron.Every(every), first: now.Add(every + jitter)}
}

func (s *spreadSchedule) Next(t time.Time) time.Time {
	if !s.first.IsZero() && t.Before(s.first) {
		return s.first
	}
	return s.base.Next(t)
}

var spreadSeq atomic.Uint64

// startupJitter picks a delay in [0, min(every, maxStartupSpread)).
// The name is mixed into the seed so schedulers created in the same
// nanosecond still diverge.
func startupJitter(every time.Duration, name string) time.Duration {
	limit := min(every, maxStartupSpread)
	if limit <= 0 {
		return 0
	}
	seed := time.Now().UnixNano() ^ int64(spreadSeq.Add(1)) ^ int64(fnv64a(name))
	return time.Duration(rand.New(rand.NewSource(seed)).Int63n(int64(limit)))
}

func fnv64a(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
