package scheduler

import (
	"context"
	"errors"
	"time"

	logx "pacer/pkg/logx"
)

const failWarnThrottle = 5 * time.Second

// reportFailure logs a failed firing. Failures caused by Stop are expected and
// stay at debug; the rest are warned about at most once per failWarnThrottle.
func (s *CronScheduler) reportFailure(base context.Context, err error) {
	if err == nil {
		return
	}
	if base.Err() != nil && errors.Is(err, context.Canceled) {
		s.log.Debug("scheduled job cancelled by stop", logx.Err(err))
		return
	}
	if !s.failLimiter.Allow() {
		s.log.Debug("scheduled job failed", logx.Err(err), logx.Bool("throttled", true))
		return
	}
	s.log.Warn("scheduled job failed",
		logx.Err(err),
		logx.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
		logx.Uint64("failed_total", s.failed.Load()),
	)
}
