package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"pacer/internal/task/scheduler"
	"pacer/pkg/clock"
)

// ReplayStep is the outcome of one catch-up during a replay.
type ReplayStep struct {
	Now     int64
	Fired   int64
	LastRun int64
}

// ParseReadings parses a comma separated list of clock readings in seconds.
func ParseReadings(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("no readings")
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Replay starts a manual scheduler at virtual second 0, then for each reading
// moves the clock there and calls RunIfNeeded once. Readings must not
// decrease. Each step is written to w when w is non-nil.
func Replay(w io.Writer, interval time.Duration, readings []int64) ([]ReplayStep, error) {
	clk := clock.NewManual(0)
	s := scheduler.NewManual(clk, scheduler.WithManualName("replay"))

	var fired int64
	if err := scheduler.StartFunc(s, interval, func() { fired++ }); err != nil {
		return nil, err
	}

	steps := make([]ReplayStep, 0, len(readings))
	for _, r := range readings {
		if !clk.Set(r) {
			return steps, fmt.Errorf("reading %d is before %d", r, clk.Seconds())
		}
		before := fired
		if err := s.RunIfNeeded(); err != nil {
			return steps, err
		}
		st := ReplayStep{Now: r, Fired: fired - before, LastRun: s.LastRun()}
		steps = append(steps, st)
		if w != nil {
			fmt.Fprintf(w, "t=%d fired=%d last_run=%d\n", st.Now, st.Fired, st.LastRun)
		}
	}
	return steps, nil
}
