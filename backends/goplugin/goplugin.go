// Package goplugin loads a backend from a Go plugin (.so built with
// -buildmode=plugin). The plugin exports:
//
//	func Init(verbosity int) int                              // 0 on success
//	func Name() string
//	func Remaining(now, lastUpdate int64, cached int) int     // -1 when unknown
//	func Rank() int
//
// Init, Name and Remaining are required; Rank defaults to the environment.
package goplugin

import (
	"encoding/json"
	"errors"
	"strings"

	"yogrt/pkg/backend"
)

const Name = "goplugin"

var ErrUnsupported = errors.New("goplugin backend: plugins are not supported on this platform")

type Config struct {
	Path     string   `json:"path"`
	RankVars []string `json:"rank_vars,omitempty"`
}

func Factory() backend.Factory {
	return backend.Factory{
		Name: Name,
		New: func(raw json.RawMessage) (backend.Backend, error) {
			var cfg Config
			if err := backend.DecodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return New(cfg)
		},
	}
}

// Symbols is the resolved plugin surface.
type Symbols struct {
	Init      func(verbosity int) int
	Name      func() string
	Remaining func(now, lastUpdate int64, cached int) int
	Rank      func() int
}

func (s Symbols) validate() error {
	switch {
	case s.Init == nil:
		return errors.New("plugin: missing Init")
	case s.Name == nil:
		return errors.New("plugin: missing Name")
	case s.Remaining == nil:
		return errors.New("plugin: missing Remaining")
	}
	return nil
}

func New(cfg Config) (*Backend, error) {
	cfg.Path = strings.TrimSpace(cfg.Path)
	if cfg.Path == "" {
		return nil, errors.New("goplugin backend: path is required")
	}
	return &Backend{cfg: cfg}, nil
}
