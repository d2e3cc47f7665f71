package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pacer/internal/config"
	"pacer/internal/eventbus"
	"pacer/internal/runtime/supervisor"
	"pacer/internal/task/scheduler"
	"pacer/pkg/clock"
	logx "pacer/pkg/logx"
)

// manualPoll is how often the manual catch-up loop calls RunIfNeeded.
const manualPoll = time.Second

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	// mu guards the scheduler fields and serializes RunIfNeeded with
	// re-Start on reload.
	mu     sync.Mutex
	cfg    config.SchedulerConfig
	sched  scheduler.Scheduler
	manual *scheduler.ManualScheduler

	ticks atomic.Uint64
}

// New loads the config at cfgPath and starts the configured scheduler.
// Config watching begins with Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logConfig(cfg))
	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		bus:     eventbus.New(),
	}
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	if err := a.applyScheduler(cfg.Scheduler); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// Done is closed when the app supervisor context is cancelled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Bus() eventbus.Bus { return a.bus }

// Ticks is the number of times the job has run since New.
func (a *App) Ticks() uint64 { return a.ticks.Load() }

func (a *App) Snapshot() scheduler.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch s := a.sched.(type) {
	case *scheduler.CronScheduler:
		return s.Snapshot()
	case *scheduler.ManualScheduler:
		return s.Snapshot()
	}
	return scheduler.Snapshot{}
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	updates := a.cfgm.Subscribe(1)
	a.sup.GoRestart("config.watch", 250*time.Millisecond, 30*time.Second, a.cfgm.Watch)
	a.sup.Go0("config.apply", func(ctx context.Context) {
		defer a.cfgm.Unsubscribe(updates)
		prev := a.cfgm.Get()
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				a.reload(prev, cfg)
				prev = cfg
			}
		}
	})

	events, unsub := a.bus.Subscribe(64)
	a.sup.Go0("schedule.events", func(ctx context.Context) {
		defer unsub()
		a.logEvents(ctx, events)
	})

	a.sup.Go0("manual.catchup", a.catchUpLoop)

	a.log.Info("started", logx.String("config", a.cfgPath), logx.String("mode", a.Snapshot().Kind))
	return nil
}

// reload applies a newly published config. A rejected scheduler section
// keeps the running scheduler.
func (a *App) reload(prev, cfg *config.Config) {
	changed, attrs := config.SummarizeConfigChange(prev, cfg)
	if len(changed) == 0 {
		return
	}
	attrs = append(attrs, logx.String("sections", strings.Join(changed, ",")))
	a.log.Info("config reloaded", attrs...)

	a.logs.Apply(logConfig(cfg))
	if err := a.applyScheduler(cfg.Scheduler); err != nil {
		a.log.Warn("scheduler reload rejected", logx.Err(err))
	}
}

// applyScheduler starts sc. The running scheduler is restarted in place when
// only the interval changed and rebuilt otherwise.
func (a *App) applyScheduler(sc config.SchedulerConfig) error {
	interval, err := scheduler.ParseInterval(sc.Interval)
	if err != nil {
		return fmt.Errorf("scheduler.interval: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sched != nil && sameEngine(a.cfg, sc) {
		if err := a.sched.Start(interval, a.tick); err != nil {
			return err
		}
		a.cfg = sc
		return nil
	}

	next, manual, err := a.build(sc)
	if err != nil {
		return err
	}
	if err := next.Start(interval, a.tick); err != nil {
		_ = next.Close()
		return err
	}
	if a.sched != nil {
		a.sched.Stop()
	}
	a.sched, a.manual, a.cfg = next, manual, sc
	a.log.Info("scheduler configured",
		logx.String("mode", sc.EffectiveMode()),
		logx.Duration("interval", interval),
	)
	return nil
}

// sameEngine reports whether a and b differ only in interval.
func sameEngine(a, b config.SchedulerConfig) bool {
	return a.EffectiveMode() == b.EffectiveMode() &&
		strings.TrimSpace(a.Name) == strings.TrimSpace(b.Name) &&
		strings.TrimSpace(a.Timeout) == strings.TrimSpace(b.Timeout) &&
		strings.TrimSpace(a.Timezone) == strings.TrimSpace(b.Timezone) &&
		a.Spread() == b.Spread()
}

func (a *App) build(sc config.SchedulerConfig) (scheduler.Scheduler, *scheduler.ManualScheduler, error) {
	name := strings.TrimSpace(sc.Name)
	if name == "" {
		name = "tick"
	}
	log := a.log.With(logx.String("comp", "scheduler"))

	if sc.EffectiveMode() == config.ModeManual {
		m := scheduler.NewManual(clock.NewSystem(),
			scheduler.WithManualLogger(log),
			scheduler.WithManualName(name),
		)
		return m, m, nil
	}

	timeout, err := config.ParseDurationField("scheduler.timeout", sc.Timeout)
	if err != nil {
		return nil, nil, err
	}
	loc := time.Local
	if tz := strings.TrimSpace(sc.Timezone); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, nil, fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	c := scheduler.NewCron(
		scheduler.WithLogger(log),
		scheduler.WithBus(a.bus),
		scheduler.WithName(name),
		scheduler.WithTimeout(timeout),
		scheduler.WithLocation(loc),
		scheduler.WithStartupSpread(sc.Spread()),
	)
	return c, nil, nil
}

// tick is the job every scheduler runs.
func (a *App) tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := a.ticks.Add(1)
	a.log.Info("tick", logx.Uint64("n", n))
	return nil
}

// catchUpLoop drives the manual scheduler from real time. It idles while
// the app runs in cron mode.
func (a *App) catchUpLoop(ctx context.Context) {
	t := time.NewTicker(manualPoll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		a.mu.Lock()
		if a.manual != nil {
			if err := a.manual.RunIfNeeded(); err != nil {
				a.log.Warn("manual catch-up failed", logx.Err(err))
			}
		}
		a.mu.Unlock()
	}
}

func (a *App) logEvents(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			fe, _ := ev.Data.(eventbus.FireEvent)
			switch ev.Type {
			case eventbus.TypeScheduleFired:
				a.log.Trace("schedule fired", logx.String("name", fe.Name), logx.Duration("took", fe.Duration))
			case eventbus.TypeScheduleFailed:
				a.log.Debug("schedule failed", logx.String("name", fe.Name), logx.String("err", fe.Error))
			}
		}
	}
}

// Stop halts config watching and the scheduler, waiting for running firings
// until ctx is done.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	a.mu.Lock()
	sched := a.sched
	a.sched, a.manual = nil, nil
	a.mu.Unlock()

	if sched != nil {
		done := make(chan struct{})
		go func() {
			sched.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("scheduler stop: %w", ctx.Err()))
		}
		if err := sched.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	a.log.Info("stopped", logx.Uint64("ticks", a.ticks.Load()))
	if err := a.logs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
