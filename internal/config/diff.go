package config

import (
	"strings"

	logx "pacer/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and
// structured fields describing the new values, for reload logging.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 2)
	attrs := make([]logx.Field, 0, 8)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	o, n := oldCfg.Scheduler, newCfg.Scheduler
	if o.EffectiveMode() != n.EffectiveMode() ||
		strings.TrimSpace(o.Name) != strings.TrimSpace(n.Name) ||
		strings.TrimSpace(o.Interval) != strings.TrimSpace(n.Interval) ||
		strings.TrimSpace(o.Timeout) != strings.TrimSpace(n.Timeout) ||
		strings.TrimSpace(o.Timezone) != strings.TrimSpace(n.Timezone) ||
		o.Spread() != n.Spread() {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.mode", n.EffectiveMode()),
			logx.String("scheduler.interval", strings.TrimSpace(n.Interval)),
			logx.String("scheduler.timeout", strings.TrimSpace(n.Timeout)),
			logx.String("scheduler.timezone", strings.TrimSpace(n.Timezone)),
			logx.Bool("scheduler.startup_spread", n.Spread()),
		)
	}
	return changed, attrs
}
