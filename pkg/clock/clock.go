// Package clock provides the elapsed-seconds time sources schedulers read from.
//
// Manual is advanced explicitly by test code; System follows the wall clock.
package clock

import (
	"sync"
	"time"
)

// Clock reports elapsed time in whole seconds. Readings never decrease.
type Clock interface {
	Seconds() int64
}

// Manual is a virtual clock that only moves when told to.
// It is safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	sec int64
}

func NewManual(start int64) *Manual {
	return &Manual{sec: start}
}

func (c *Manual) Seconds() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sec
}

// Advance moves the clock forward by d, truncated to whole seconds.
// Negative durations are ignored.
func (c *Manual) Advance(d time.Duration) {
	c.AdvanceSeconds(int64(d / time.Second))
}

func (c *Manual) AdvanceSeconds(n int64) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.sec += n
	c.mu.Unlock()
}

// Set jumps to an absolute reading. Moving backwards is ignored and reported as false.
func (c *Manual) Set(sec int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sec < c.sec {
		return false
	}
	c.sec = sec
	return true
}

// System counts whole seconds elapsed since it was created.
type System struct {
	start time.Time
	now   func() time.Time
}

func NewSystem() *System {
	return &System{start: time.Now(), now: time.Now}
}

func (c *System) Seconds() int64 {
	// time.Since uses the monotonic reading, so NTP steps cannot move this backwards.
	return int64(c.now().Sub(c.start) / time.Second)
}
