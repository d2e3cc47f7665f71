package scheduler

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidConfiguration is returned by Start when the interval is unusable.
var ErrInvalidConfiguration = errors.New("invalid scheduler configuration")

// Job is the canonical shape of a scheduled callback.
//
// ctx is the cancellation signal for the firing. Implementations that never
// cancel still pass one so jobs look the same under every scheduler.
type Job func(ctx context.Context) error

// Scheduler is the capability both the manual and the timer-driven
// implementations satisfy.
type Scheduler interface {
	// Start (re)configures the schedule. A second call fully replaces the first.
	Start(interval time.Duration, job Job) error
	Stop()
	Close() error
}

const (
	KindManual = "manual"
	KindCron   = "cron"
)

// Snapshot is a lightweight view for diagnostics and tests.
type Snapshot struct {
	Kind       string
	Name       string
	Configured bool
	Interval   time.Duration

	// Manual only: virtual seconds of the last catch-up (or of Start).
	LastRun int64
	// Manual only: RunIfNeeded calls since Start.
	Runs uint64

	Fired  uint64
	Failed uint64

	// Cron only.
	Timezone string
	Spread   time.Duration
	Prev     time.Time
	Next     time.Time
}
