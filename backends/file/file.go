// Package file reads the allocation deadline from a file, typically written by a
// job prolog.
//
// The file holds an absolute end time (Unix seconds or RFC 3339). With Relative
// set it instead holds a remaining duration (see backend.ParseRemaining) measured
// from the file's modification time.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"yogrt/pkg/backend"
)

const Name = "file"

type Config struct {
	Path     string   `json:"path"`
	Relative bool     `json:"relative,omitempty"`
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

type Backend struct {
	cfg  Config
	rank int
}

func New(cfg Config) (*Backend, error) {
	cfg.Path = strings.TrimSpace(cfg.Path)
	if cfg.Path == "" {
		return nil, errors.New("file backend: path is required")
	}
	return &Backend{cfg: cfg}, nil
}

// Init only checks that the path can be stat'ed; the content may appear later.
func (b *Backend) Init(context.Context, int) error {
	if _, err := os.Stat(b.cfg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file backend: %w", err)
	}
	b.rank = backend.RankFromEnv(b.cfg.RankVars...)
	return nil
}

func (b *Backend) Name() string { return Name }
func (b *Backend) Rank() int    { return b.rank }

func (b *Backend) Remaining(_ context.Context, q backend.Query) (int, error) {
	st, err := os.Stat(b.cfg.Path)
	if err != nil {
		return backend.Unknown, err
	}
	data, err := os.ReadFile(b.cfg.Path)
	if err != nil {
		return backend.Unknown, err
	}
	content := strings.TrimSpace(string(data))

	if b.cfg.Relative {
		rem, err := backend.ParseRemaining(content)
		if err != nil {
			return backend.Unknown, fmt.Errorf("%s: %w", b.cfg.Path, err)
		}
		end := st.ModTime().Add(time.Duration(rem) * time.Second)
		return backend.Until(end, q.Now), nil
	}

	end, err := backend.ParseEndTime(content)
	if err != nil {
		return backend.Unknown, fmt.Errorf("%s: %w", b.cfg.Path, err)
	}
	return backend.Until(end, q.Now), nil
}
