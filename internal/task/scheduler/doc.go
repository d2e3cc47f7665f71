// Package scheduler defines the "run this job every interval" capability and
// its two implementations.
//
// ManualScheduler is the deterministic one: it never starts a timer. Tests
// advance a virtual clock (pkg/clock) and call RunIfNeeded, which fires the
// job once per whole interval that elapsed since the previous catch-up.
//
// CronScheduler is timer-driven (robfig/cron). It is what production code
// gets, and it cancels the job context on timeout and on Stop.
//
// Both normalize every callback shape to Job; see Action, Func, Async and
// AsyncFunc.
package scheduler
