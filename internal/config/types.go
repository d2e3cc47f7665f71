package config

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

const (
	ModeCron   = "cron"
	ModeManual = "manual"
)

// SchedulerConfig selects and configures the scheduler the app runs.
//
// Interval accepts a Go duration ("10s"), HH:MM ("01:30"), or the
// "interval:", "every:" and "@every " prefixes.
//
// Timeout, Timezone and StartupSpread only apply to cron mode. Manual mode
// reads a clock that counts whole seconds since the process started.
type SchedulerConfig struct {
	Mode     string `json:"mode,omitempty"` // default: cron
	Name     string `json:"name,omitempty"`
	Interval string `json:"interval"`

	// Timeout is a Go duration string. "0s" or empty disables the per-firing bound.
	Timeout  string `json:"timeout,omitempty"`
	Timezone string `json:"timezone,omitempty"`

	// StartupSpread is a pointer so an omitted key (default: true) differs
	// from an explicit false.
	StartupSpread *bool `json:"startup_spread,omitempty"`
}

// Spread reports the effective startup_spread setting.
func (c SchedulerConfig) Spread() bool {
	return c.StartupSpread == nil || *c.StartupSpread
}

// EffectiveMode returns the mode with the default applied.
func (c SchedulerConfig) EffectiveMode() string {
	if c.Mode == "" {
		return ModeCron
	}
	return c.Mode
}
