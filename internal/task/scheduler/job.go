package scheduler

import (
	"context"
	"time"
)

// Action adapts a cancellation-aware callback that cannot fail.
func Action(fn func(ctx context.Context)) Job {
	return func(ctx context.Context) error {
		fn(ctx)
		return nil
	}
}

// Func adapts a plain callback.
func Func(fn func()) Job {
	return func(context.Context) error {
		fn()
		return nil
	}
}

// Async adapts a cancellation-aware asynchronous unit of work. The returned
// Job blocks until the unit reports completion on its channel.
func Async(fn func(ctx context.Context) <-chan error) Job {
	return func(ctx context.Context) error {
		return await(fn(ctx))
	}
}

// AsyncFunc adapts a plain asynchronous unit of work.
func AsyncFunc(fn func() <-chan error) Job {
	return func(context.Context) error {
		return await(fn())
	}
}

// await waits for the first value or for close. A nil channel means the unit
// already finished.
func await(done <-chan error) error {
	if done == nil {
		return nil
	}
	err, ok := <-done
	if !ok {
		return nil
	}
	return err
}

func StartAction(s Scheduler, interval time.Duration, fn func(ctx context.Context)) error {
	return s.Start(interval, Action(fn))
}

func StartFunc(s Scheduler, interval time.Duration, fn func()) error {
	return s.Start(interval, Func(fn))
}

func StartAsync(s Scheduler, interval time.Duration, fn func(ctx context.Context) <-chan error) error {
	return s.Start(interval, Async(fn))
}

func StartAsyncFunc(s Scheduler, interval time.Duration, fn func() <-chan error) error {
	return s.Start(interval, AsyncFunc(fn))
}
