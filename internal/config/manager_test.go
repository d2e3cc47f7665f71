package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

const yamlConfig = `
logging:
  level: debug
  console: true
scheduler:
  mode: manual
  name: heartbeat
  interval: 10s
  timeout: 2s
  timezone: UTC
  startup_spread: false
`

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "pacer.yaml", yamlConfig)
	m := NewConfigManager(p)

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	sc := cfg.Scheduler
	if sc.EffectiveMode() != ModeManual || sc.Name != "heartbeat" || sc.Interval != "10s" {
		t.Fatalf("unexpected scheduler config: %+v", sc)
	}
	if sc.Spread() {
		t.Fatal("Spread() = true, want false")
	}
	if m.Get() != cfg {
		t.Fatal("Load did not commit the config")
	}
}

func TestLoadJSONDefaults(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "pacer.json", `{"logging":{"level":"info"},"scheduler":{"interval":"01:30"}}`)
	cfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Scheduler.EffectiveMode() != ModeCron {
		t.Fatalf("EffectiveMode() = %s, want %s", cfg.Scheduler.EffectiveMode(), ModeCron)
	}
	if !cfg.Scheduler.Spread() {
		t.Fatal("Spread() = false, want default true")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "unknown json field", file: "c.json", body: `{"scheduler":{"interval":"1s","workers":2}}`},
		{name: "unknown yaml field", file: "c.yml", body: "scheduler:\n  interval: 1s\n  retry_max: 3\n"},
		{name: "trailing data", file: "c.json", body: `{"scheduler":{"interval":"1s"}} {}`},
		{name: "bad yaml", file: "c.yaml", body: "scheduler: [\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := writeFile(t, t.TempDir(), tt.file, tt.body)
			if _, err := NewConfigManager(p).Parse(); err == nil {
				t.Fatal("Parse succeeded, want error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	ok := &Config{Scheduler: SchedulerConfig{Interval: "10s"}}
	if err := Validate(ok); err != nil {
		t.Fatalf("Validate(valid) error: %v", err)
	}

	bad := &Config{
		Logging: LoggingConfig{Level: "loud"},
		Scheduler: SchedulerConfig{
			Mode:     "realtime",
			Interval: "*/5 * * * *",
			Timeout:  "-1s",
			Timezone: "Mars/Olympus",
		},
	}
	err := Validate(bad)
	if err == nil {
		t.Fatal("Validate(invalid) succeeded")
	}
	for _, path := range []string{"logging.level", "scheduler.mode", "scheduler.interval", "scheduler.timeout", "scheduler.timezone"} {
		if !strings.Contains(err.Error(), path) {
			t.Fatalf("error %q does not mention %s", err, path)
		}
	}
}

func TestReloadPublishesOnlyChangedValidConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeFile(t, dir, "pacer.json", `{"scheduler":{"interval":"10s"}}`)
	m := NewConfigManager(p)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	// Unchanged content: nothing published.
	m.reload(testContext(t))
	select {
	case <-ch:
		t.Fatal("published unchanged config")
	default:
	}

	// Invalid content: rejected.
	writeFile(t, dir, "pacer.json", `{"scheduler":{"interval":"nope"}}`)
	m.reload(testContext(t))
	select {
	case <-ch:
		t.Fatal("published invalid config")
	default:
	}

	writeFile(t, dir, "pacer.json", `{"scheduler":{"interval":"20s"}}`)
	m.reload(testContext(t))
	select {
	case cfg := <-ch:
		if cfg.Scheduler.Interval != "20s" {
			t.Fatalf("published interval %s, want 20s", cfg.Scheduler.Interval)
		}
	case <-time.After(time.Second):
		t.Fatal("changed config not published")
	}
	if m.Get().Scheduler.Interval != "20s" {
		t.Fatal("changed config not committed")
	}
}

func TestPublishKeepsNewestForSlowSubscriber(t *testing.T) {
	t.Parallel()
	m := NewConfigManager("unused.json")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	first := &Config{Scheduler: SchedulerConfig{Interval: "1s"}}
	second := &Config{Scheduler: SchedulerConfig{Interval: "2s"}}
	m.publish(first)
	m.publish(second)

	if got := <-ch; got != second {
		t.Fatalf("subscriber got %+v, want newest config", got.Scheduler)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Scheduler: SchedulerConfig{Interval: "10s"}}
	newCfg := &Config{Scheduler: SchedulerConfig{Interval: "20s"}}

	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if len(changed) != 1 || changed[0] != "scheduler" {
		t.Fatalf("changed = %v, want [scheduler]", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("no attrs for changed scheduler section")
	}

	changed, _ = SummarizeConfigChange(oldCfg, oldCfg)
	if len(changed) != 0 {
		t.Fatalf("changed = %v for identical configs, want none", changed)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("ParseDurationField(\"\") = %v, %v; want 0, nil", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("expected error for negative duration")
	}
	if d, err := ParseDurationOrDefault("x", "0s", 5*time.Second); err != nil || d != 5*time.Second {
		t.Fatalf("ParseDurationOrDefault = %v, %v; want 5s, nil", d, err)
	}
}
