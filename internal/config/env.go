package config

import (
	"strings"

	"github.com/spf13/viper"

	logx "yogrt/pkg/logx"
)

// Environment keys, read with the YOGRT_ prefix (YOGRT_INTERVAL1, ...).
const (
	envPrefix = "YOGRT"

	envDebug          = "debug"
	envIntervalFar    = "interval1"
	envIntervalNear   = "interval2"
	envNearThreshold  = "interval2_start"
	envDefaultLimit   = "default_limit"
	envBackend        = "backend"
	envFailedBackoff  = "failed_backoff"
	envConfigFilePath = "config"
)

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	for _, k := range []string{
		envDebug, envIntervalFar, envIntervalNear, envNearThreshold,
		envDefaultLimit, envBackend, envFailedBackoff, envConfigFilePath,
	} {
		_ = v.BindEnv(k)
	}
	return v
}

// ConfigPathFromEnv returns YOGRT_CONFIG, if set.
func ConfigPathFromEnv() string {
	return strings.TrimSpace(newEnv().GetString(envConfigFilePath))
}

// ApplyEnv overlays YOGRT_* environment variables on cfg.
// Values that do not parse as integers read as 0, and are clamped later by Normalize.
func ApplyEnv(cfg *Config, log logx.Logger) {
	v := newEnv()

	if v.IsSet(envDebug) {
		cfg.Debug = v.GetInt(envDebug)
		log.Debug("found YOGRT_DEBUG", logx.Int("value", cfg.Debug))
	}
	overlay := func(key string, dst *int) {
		if !v.IsSet(key) {
			return
		}
		*dst = v.GetInt(key)
		log.Debug("found "+envPrefix+"_"+strings.ToUpper(key), logx.Int("value", *dst))
	}
	overlay(envIntervalFar, &cfg.IntervalFar)
	overlay(envIntervalNear, &cfg.IntervalNear)
	overlay(envNearThreshold, &cfg.NearThreshold)
	overlay(envFailedBackoff, &cfg.FailedBackoff)

	if v.IsSet(envDefaultLimit) {
		n := v.GetInt(envDefaultLimit)
		cfg.DefaultLimit = &n
		log.Debug("found YOGRT_DEFAULT_LIMIT", logx.Int("value", n))
	}
	if v.IsSet(envBackend) {
		cfg.Backend.Name = strings.TrimSpace(v.GetString(envBackend))
		log.Debug("found YOGRT_BACKEND", logx.String("value", cfg.Backend.Name))
	}
}

// FromEnvironment builds the process configuration: defaults, then the file named by
// YOGRT_CONFIG (if any), then YOGRT_* overrides.
func FromEnvironment(log logx.Logger) (*Config, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if path := ConfigPathFromEnv(); path != "" {
		return NewConfigManager(path).Parse()
	}
	cfg := Defaults()
	ApplyEnv(cfg, log)
	cfg.Normalize(log)
	return cfg, nil
}
