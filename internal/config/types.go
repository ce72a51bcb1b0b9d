package config

import (
	"encoding/json"
	"strings"

	logx "yogrt/pkg/logx"
)

// Defaults for the polling policy, in seconds.
const (
	DefaultIntervalFar   = 900  // 15 minutes
	DefaultIntervalNear  = 300  // 5 minutes
	DefaultNearThreshold = 1800 // 30 minutes before the end
	DefaultFailedBackoff = 300
)

// Config is the full yogrt configuration.
//
// All intervals are whole seconds. Negative values are clamped to 0 by Normalize;
// a negative default_limit is dropped.
//
// Example (YAML):
//
//	debug: 1
//	interval_far: 900
//	interval_near: 300
//	near_threshold: 1800
//	backend:
//	  name: command
//	  config: { argv: ["squeue", "-h", "-j", "{job_id}", "-o", "%L"] }
type Config struct {
	Debug         int `json:"debug"`
	IntervalFar   int `json:"interval_far"`
	IntervalNear  int `json:"interval_near"`
	NearThreshold int `json:"near_threshold"`
	FailedBackoff int `json:"failed_backoff"`

	// DefaultLimit seeds the cache at load time so the first query does not
	// have to hit the backend.
	DefaultLimit *int `json:"default_limit,omitempty"`

	Logging LoggingConfig `json:"logging"`
	Backend BackendConfig `json:"backend"`
}

type LoggingConfig struct {
	// Level overrides the level derived from Debug when set.
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// BackendConfig selects the backend. An empty or "auto" name auto-detects.
type BackendConfig struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Defaults returns a config with the built-in policy values.
func Defaults() *Config {
	return &Config{
		IntervalFar:   DefaultIntervalFar,
		IntervalNear:  DefaultIntervalNear,
		NearThreshold: DefaultNearThreshold,
		FailedBackoff: DefaultFailedBackoff,
		Logging:       LoggingConfig{Console: true},
	}
}

// Normalize clamps every interval independently and drops a negative default limit.
func (c *Config) Normalize(log logx.Logger) {
	clamp := func(name string, v *int) {
		if *v < 0 {
			log.Debug("negative number not allowed, using 0", logx.String("field", name), logx.Int("value", *v))
			*v = 0
		}
	}
	clamp("interval_far", &c.IntervalFar)
	clamp("interval_near", &c.IntervalNear)
	clamp("near_threshold", &c.NearThreshold)
	clamp("failed_backoff", &c.FailedBackoff)

	if c.DefaultLimit != nil && *c.DefaultLimit < 0 {
		log.Debug("negative number not allowed, leaving default_limit unset", logx.Int("value", *c.DefaultLimit))
		c.DefaultLimit = nil
	}
}

// LogConfig converts the logging section into a logx config.
func (c *Config) LogConfig() logx.Config {
	lvl := strings.TrimSpace(c.Logging.Level)
	if lvl == "" {
		lvl = logx.LevelForVerbosity(c.Debug)
	}
	return logx.Config{
		Level:   lvl,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}
