package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"pacer/internal/eventbus"
	logx "pacer/pkg/logx"
)

// CronScheduler runs its job on a real timer via robfig/cron.
//
// Firings of the same job never overlap (a tick that lands while the previous
// run is still going is skipped), and a panicking job is recovered and logged.
// Each firing gets a context that is cancelled on timeout or on Stop.
type CronScheduler struct {
	mu sync.Mutex

	name    string
	log     logx.Logger
	bus     eventbus.Bus
	loc     *time.Location
	timeout time.Duration
	spread  bool

	c        *cron.Cron
	entryID  cron.EntryID
	interval time.Duration
	jitter   time.Duration
	base     context.Context
	cancel   context.CancelFunc

	failLimiter *rate.Limiter
	fired       atomic.Uint64
	failed      atomic.Uint64
}

var _ Scheduler = (*CronScheduler)(nil)

type CronOption func(*CronScheduler)

func WithLogger(log logx.Logger) CronOption {
	return func(s *CronScheduler) { s.log = log }
}

func WithBus(bus eventbus.Bus) CronOption {
	return func(s *CronScheduler) { s.bus = bus }
}

func WithLocation(loc *time.Location) CronOption {
	return func(s *CronScheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithTimeout bounds each firing. 0 disables the bound.
func WithTimeout(d time.Duration) CronOption {
	return func(s *CronScheduler) { s.timeout = max(d, 0) }
}

func WithStartupSpread(enabled bool) CronOption {
	return func(s *CronScheduler) { s.spread = enabled }
}

func WithName(name string) CronOption {
	return func(s *CronScheduler) {
		if n := strings.TrimSpace(name); n != "" {
			s.name = n
		}
	}
}

func NewCron(opts ...CronOption) *CronScheduler {
	s := &CronScheduler{
		name:        "schedule",
		loc:         time.Local,
		spread:      true,
		failLimiter: rate.NewLimiter(rate.Every(failWarnThrottle), 1),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("schedule", s.name))
	return s
}

// Start registers job to run every interval, replacing any previous
// registration, and starts the cron engine if it is not running yet.
// Intervals below one second are rounded up to one second by cron.Every.
func (s *CronScheduler) Start(interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be > 0, got %s", ErrInvalidConfiguration, interval)
	}
	if job == nil {
		return fmt.Errorf("%w: job required", ErrInvalidConfiguration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.c == nil {
		cl := cronLogger{log: s.log}
		s.c = cron.New(
			cron.WithLocation(s.loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		)
		s.base, s.cancel = context.WithCancel(context.Background())
		s.c.Start()
	} else {
		// Upsert: drop the previous registration, keep the engine and base context.
		s.c.Remove(s.entryID)
	}
	s.entryID = s.c.Schedule(s.schedule(interval), s.wrap(s.base, job))
	s.interval = interval

	args := []logx.Field{logx.Duration("interval", interval), logx.Duration("timeout", s.timeout)}
	if s.jitter > 0 {
		args = append(args, logx.Duration("startup_spread", s.jitter))
	}
	if e := s.c.Entry(s.entryID); !e.Next.IsZero() {
		args = append(args, logx.Time("next", e.Next))
	}
	s.log.Debug("schedule registered", args...)
	return nil
}

// schedule builds the cron schedule for interval. Call with s.mu held.
func (s *CronScheduler) schedule(interval time.Duration) cron.Schedule {
	s.jitter = 0
	if !s.spread {
		return cron.Every(interval)
	}
	s.jitter = startupJitter(interval, s.name)
	return newSpreadSchedule(interval, time.Now().In(s.loc), s.jitter)
}

func (s *CronScheduler) wrap(base context.Context, job Job) cron.Job {
	return cron.FuncJob(func() { s.fire(base, job) })
}

func (s *CronScheduler) fire(base context.Context, job Job) {
	if base.Err() != nil {
		return
	}
	ctx, cancel := base, context.CancelFunc(func() {})
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(base, s.timeout)
	}
	defer cancel()

	started := time.Now()
	err := job(ctx)
	ev := eventbus.FireEvent{Name: s.name, Started: started, Duration: time.Since(started)}

	if err != nil {
		s.failed.Add(1)
		ev.Error = err.Error()
		s.reportFailure(base, err)
		s.publish(eventbus.TypeScheduleFailed, ev)
		return
	}
	s.fired.Add(1)
	s.log.Trace("schedule fired", logx.Duration("took", ev.Duration))
	s.publish(eventbus.TypeScheduleFired, ev)
}

func (s *CronScheduler) publish(typ string, ev eventbus.FireEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}

// Stop halts triggering, cancels in-flight job contexts and waits for running
// jobs to return. It is safe to call repeatedly.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.base = nil
	s.cancel = nil
	s.entryID = 0
	s.interval = 0
	s.jitter = 0
	s.mu.Unlock()

	if c == nil {
		return
	}
	start := time.Now()
	if cancel != nil {
		cancel()
	}
	<-c.Stop().Done()
	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

func (s *CronScheduler) Close() error {
	s.Stop()
	return nil
}

func (s *CronScheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Kind:       KindCron,
		Name:       s.name,
		Configured: s.c != nil,
		Interval:   s.interval,
		Fired:      s.fired.Load(),
		Failed:     s.failed.Load(),
		Timezone:   s.loc.String(),
		Spread:     s.jitter,
	}
	if s.c != nil && s.entryID != 0 {
		e := s.c.Entry(s.entryID)
		snap.Next = e.Next
		snap.Prev = e.Prev
	}
	return snap
}

// cronLogger routes robfig/cron's internal logging into logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Trace("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	fields := make([]logx.Field, 0, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
