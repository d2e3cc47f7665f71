package scheduler

import (
	"context"
	"fmt"
	"time"

	"pacer/pkg/clock"
	logx "pacer/pkg/logx"
)

// ManualScheduler fires its job only when RunIfNeeded is called, once for
// every whole interval of virtual time since the previous catch-up.
//
// It holds no goroutines or timers. It is not safe for concurrent use;
// callers serialize access.
type ManualScheduler struct {
	clock clock.Clock
	log   logx.Logger
	name  string

	interval   time.Duration
	job        Job
	lastRun    int64
	configured bool

	runs  uint64
	fired uint64
}

var _ Scheduler = (*ManualScheduler)(nil)

type ManualOption func(*ManualScheduler)

func WithManualLogger(log logx.Logger) ManualOption {
	return func(s *ManualScheduler) { s.log = log }
}

func WithManualName(name string) ManualOption {
	return func(s *ManualScheduler) { s.name = name }
}

// NewManual returns an unconfigured scheduler reading from c.
func NewManual(c clock.Clock, opts ...ManualOption) *ManualScheduler {
	s := &ManualScheduler{clock: c, name: "manual"}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

// Start stores interval and job and anchors the next catch-up window at the
// current clock reading. Only a zero interval is rejected.
func (s *ManualScheduler) Start(interval time.Duration, job Job) error {
	if interval == 0 {
		return fmt.Errorf("%w: interval must be > 0 seconds", ErrInvalidConfiguration)
	}
	s.interval = interval
	s.job = job
	s.lastRun = s.clock.Seconds()
	s.configured = true
	s.runs = 0
	s.fired = 0
	s.log.Debug("manual schedule configured",
		logx.String("name", s.name),
		logx.Duration("interval", interval),
		logx.Int64("last_run", s.lastRun),
	)
	return nil
}

// RunIfNeeded fires the job floor(elapsed/interval) times on the calling
// goroutine and then moves lastRun to the clock reading taken on entry.
// Time past the last whole interval is dropped, not carried into the next window.
//
// Every firing of one call shares a single context, which is never cancelled
// while a firing is running. The first job error stops the loop, is returned
// as-is, and leaves lastRun untouched.
//
// Calling RunIfNeeded before Start panics.
func (s *ManualScheduler) RunIfNeeded() error {
	if !s.configured {
		panic("scheduler: RunIfNeeded called before Start")
	}
	now := s.clock.Seconds()
	count := dueCount(now-s.lastRun, s.interval)
	s.runs++

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := int64(0); i < count; i++ {
		if err := s.job(ctx); err != nil {
			return err
		}
		s.fired++
	}

	if count > 0 {
		s.log.Debug("manual catch-up",
			logx.String("name", s.name),
			logx.Int64("fired", count),
			logx.Int64("now", now),
			logx.Int64("elapsed", now-s.lastRun),
		)
	}
	s.lastRun = now
	return nil
}

// dueCount is floor(elapsed seconds / interval) for non-negative elapsed.
// A negative interval yields a non-positive count, so nothing fires.
func dueCount(elapsed int64, interval time.Duration) int64 {
	if interval%time.Second == 0 {
		return elapsed / int64(interval/time.Second)
	}
	return int64(time.Duration(elapsed) * time.Second / interval)
}

// Stop is a no-op: there is nothing running in the background.
func (s *ManualScheduler) Stop() {}

// Close is a no-op and never fails.
func (s *ManualScheduler) Close() error { return nil }

// LastRun returns the virtual second the current catch-up window starts at.
func (s *ManualScheduler) LastRun() int64 { return s.lastRun }

func (s *ManualScheduler) Interval() time.Duration { return s.interval }

func (s *ManualScheduler) Snapshot() Snapshot {
	return Snapshot{
		Kind:       KindManual,
		Name:       s.name,
		Configured: s.configured,
		Interval:   s.interval,
		LastRun:    s.lastRun,
		Runs:       s.runs,
		Fired:      s.fired,
	}
}
