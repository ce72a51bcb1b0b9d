package config

import (
	"bytes"
	"strings"

	logx "yogrt/pkg/logx"
)

// SummarizeConfigChange returns the changed sections and structured attrs for logging.
// Backend config contents are never logged, only whether they changed.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.IntervalFar != newCfg.IntervalFar ||
		oldCfg.IntervalNear != newCfg.IntervalNear ||
		oldCfg.NearThreshold != newCfg.NearThreshold ||
		oldCfg.FailedBackoff != newCfg.FailedBackoff {
		changed = append(changed, "policy")
		attrs = append(attrs,
			logx.Int("policy.interval_far", newCfg.IntervalFar),
			logx.Int("policy.interval_near", newCfg.IntervalNear),
			logx.Int("policy.near_threshold", newCfg.NearThreshold),
			logx.Int("policy.failed_backoff", newCfg.FailedBackoff),
		)
	}

	if oldCfg.Debug != newCfg.Debug || oldCfg.LogConfig() != newCfg.LogConfig() {
		changed = append(changed, "logging")
		lc := newCfg.LogConfig()
		attrs = append(attrs,
			logx.Int("logging.debug", newCfg.Debug),
			logx.String("logging.level", lc.Level),
			logx.Bool("logging.console", lc.Console),
			logx.Bool("logging.file_enabled", lc.File.Enabled),
		)
	}

	if !strings.EqualFold(strings.TrimSpace(oldCfg.Backend.Name), strings.TrimSpace(newCfg.Backend.Name)) ||
		!bytes.Equal(bytes.TrimSpace(oldCfg.Backend.Config), bytes.TrimSpace(newCfg.Backend.Config)) {
		changed = append(changed, "backend")
		attrs = append(attrs, logx.String("backend.name", newCfg.Backend.Name))
	}

	if !equalLimit(oldCfg.DefaultLimit, newCfg.DefaultLimit) {
		changed = append(changed, "default_limit")
	}

	return changed, attrs
}

func equalLimit(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
