// Package systemd derives the remaining time from a unit's RuntimeMaxSec=
// limit, for jobs launched as transient services or scopes (systemd-run).
package systemd

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"yogrt/pkg/backend"
)

const Name = "systemd"

var ErrUnsupported = errors.New("systemd backend: unsupported OS (linux only)")

// Config selects the unit. An empty Unit means the unit owning this process.
type Config struct {
	Unit     string   `json:"unit,omitempty"`
	User     bool     `json:"user,omitempty"`
	RankVars []string `json:"rank_vars,omitempty"`
}

func Factory() backend.Factory {
	return backend.Factory{
		Name:   Name,
		Detect: detect,
		New: func(raw json.RawMessage) (backend.Backend, error) {
			var cfg Config
			if err := backend.DecodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return New(cfg)
		},
	}
}

// detect reports whether this process was started by systemd as a unit.
func detect() bool {
	return supported && strings.TrimSpace(os.Getenv("INVOCATION_ID")) != ""
}

// unitType maps a unit name to the D-Bus interface carrying RuntimeMaxUSec.
func unitType(unit string) string {
	switch {
	case strings.HasSuffix(unit, ".scope"):
		return "Scope"
	default:
		return "Service"
	}
}
