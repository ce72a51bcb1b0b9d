// Package env reads the allocation end time from environment variables.
//
// Launchers that export the deadline (e.g. SLURM_JOB_END_TIME) need no further
// integration. The value is Unix seconds or RFC 3339.
package env

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"yogrt/pkg/backend"
	logx "yogrt/pkg/logx"
)

const Name = "env"

// DefaultEndVars are consulted in order.
var DefaultEndVars = []string{"YOGRT_END_TIME", "SLURM_JOB_END_TIME"}

type Config struct {
	EndVars  []string `json:"end_vars,omitempty"`
	RankVars []string `json:"rank_vars,omitempty"`
}

func Factory() backend.Factory {
	return backend.Factory{
		Name:   Name,
		Detect: func() bool { _, _, ok := lookup(DefaultEndVars); return ok },
		New: func(raw json.RawMessage) (backend.Backend, error) {
			var cfg Config
			if err := backend.DecodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return New(cfg), nil
		},
	}
}

type Backend struct {
	cfg  Config
	rank int
	log  logx.Logger
}

func New(cfg Config) *Backend {
	if len(cfg.EndVars) == 0 {
		cfg.EndVars = DefaultEndVars
	}
	return &Backend{cfg: cfg, log: logx.Nop()}
}

func (b *Backend) Init(_ context.Context, verbosity int) error {
	b.log = logx.NewConsole(logx.LevelForVerbosity(verbosity)).With(logx.String("backend", Name))
	b.rank = backend.RankFromEnv(b.cfg.RankVars...)
	return nil
}

func (b *Backend) Name() string { return Name }
func (b *Backend) Rank() int    { return b.rank }

func (b *Backend) Remaining(_ context.Context, q backend.Query) (int, error) {
	key, val, ok := lookup(b.cfg.EndVars)
	if !ok {
		return backend.Unknown, fmt.Errorf("none of %s set: %w", strings.Join(b.cfg.EndVars, ", "), backend.ErrUnknown)
	}
	end, err := backend.ParseEndTime(val)
	if err != nil {
		return backend.Unknown, fmt.Errorf("%s: %w", key, err)
	}
	rem := backend.Until(end, q.Now)
	b.log.Trace("end time from environment", logx.String("var", key), logx.Int("remaining", rem))
	return rem, nil
}

func lookup(vars []string) (key, val string, ok bool) {
	for _, k := range vars {
		if v, found := os.LookupEnv(k); found && strings.TrimSpace(v) != "" {
			return k, v, true
		}
	}
	return "", "", false
}
