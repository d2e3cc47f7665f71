package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pacer/internal/task/scheduler"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

const cronConfig = `
logging:
  level: error
scheduler:
  mode: cron
  name: heartbeat
  interval: 1s
  startup_spread: false
`

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	p := filepath.Join(t.TempDir(), "pacer.yaml")
	writeConfig(t, p, "scheduler:\n  interval: 0s\n")
	if _, err := New(p); err == nil {
		t.Fatal("New succeeded with a zero interval")
	}
}

func TestAppRunsCronSchedule(t *testing.T) {
	t.Parallel()
	p := filepath.Join(t.TempDir(), "pacer.yaml")
	writeConfig(t, p, cronConfig)

	a, err := New(p)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := a.Start(testContext(t)); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if snap := a.Snapshot(); snap.Kind != scheduler.KindCron || snap.Name != "heartbeat" {
		t.Fatalf("Snapshot = %+v, want cron heartbeat", snap)
	}

	waitFor(t, "first tick", func() bool { return a.Ticks() > 0 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if a.Snapshot().Configured {
		t.Fatal("scheduler still configured after Stop")
	}
}

func TestAppReloadSwitchesMode(t *testing.T) {
	t.Parallel()
	p := filepath.Join(t.TempDir(), "pacer.yaml")
	writeConfig(t, p, strings.Replace(cronConfig, "interval: 1s", "interval: 1h", 1))

	a, err := New(p)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := a.Start(testContext(t)); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(ctx)
	})

	// Give the watcher a moment to register before editing.
	time.Sleep(300 * time.Millisecond)
	writeConfig(t, p, "logging:\n  level: error\nscheduler:\n  mode: manual\n  interval: 1s\n")

	waitFor(t, "manual mode", func() bool { return a.Snapshot().Kind == scheduler.KindManual })
	waitFor(t, "manual tick", func() bool { return a.Ticks() > 0 })
	if got := a.Snapshot().Interval; got != time.Second {
		t.Fatalf("Interval = %v, want 1s", got)
	}
}

func TestReplayScenario(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	steps, err := Replay(&out, 10*time.Second, []int64{25, 30, 41})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}
	want := []ReplayStep{
		{Now: 25, Fired: 2, LastRun: 25},
		{Now: 30, Fired: 0, LastRun: 30},
		{Now: 41, Fired: 1, LastRun: 41},
	}
	if len(steps) != len(want) {
		t.Fatalf("steps = %+v, want %+v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("step %d = %+v, want %+v", i, steps[i], want[i])
		}
	}
	if !strings.Contains(out.String(), "t=25 fired=2 last_run=25") {
		t.Fatalf("output = %q, missing first step", out.String())
	}
}

func TestReplayRejectsBadInput(t *testing.T) {
	t.Parallel()
	if _, err := Replay(nil, 0, []int64{1}); err == nil {
		t.Fatal("Replay with zero interval succeeded")
	}
	steps, err := Replay(nil, time.Second, []int64{5, 3})
	if err == nil {
		t.Fatal("Replay with decreasing readings succeeded")
	}
	if len(steps) != 1 {
		t.Fatalf("steps before error = %d, want 1", len(steps))
	}
}

func TestParseReadings(t *testing.T) {
	t.Parallel()
	got, err := ParseReadings(" 25, 30,41 ")
	if err != nil {
		t.Fatalf("ParseReadings error: %v", err)
	}
	if len(got) != 3 || got[0] != 25 || got[1] != 30 || got[2] != 41 {
		t.Fatalf("ParseReadings = %v, want [25 30 41]", got)
	}
	for _, raw := range []string{"", "1,x", "1,,2"} {
		if _, err := ParseReadings(raw); err == nil {
			t.Fatalf("ParseReadings(%q) succeeded, want error", raw)
		}
	}
}
