package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pacer/internal/task/scheduler"
	logx "pacer/pkg/logx"
)

// Validate checks a parsed config. All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if !logx.ValidLevel(cfg.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}

	sc := cfg.Scheduler
	switch sc.EffectiveMode() {
	case ModeCron, ModeManual:
	default:
		errs = append(errs, fmt.Errorf("scheduler.mode: unknown mode %q (want %q or %q)", sc.Mode, ModeCron, ModeManual))
	}
	if _, err := scheduler.ParseInterval(sc.Interval); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.interval: %w", err))
	}
	if _, err := ParseDurationField("scheduler.timeout", sc.Timeout); err != nil {
		errs = append(errs, err)
	}
	if tz := strings.TrimSpace(sc.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	return errors.Join(errs...)
}
