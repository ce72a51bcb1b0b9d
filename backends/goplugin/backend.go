package goplugin

import (
	"context"
	"fmt"

	"yogrt/pkg/backend"
)

// Backend adapts plugin symbols to backend.Backend. The plugin's name is
// reported once bound.
type Backend struct {
	cfg  Config
	sym  Symbols
	name string
	rank int
}

// NewFromSymbols wraps already resolved symbols, e.g. a backend linked into
// the program instead of loaded from disk.
func NewFromSymbols(sym Symbols, rankVars ...string) (*Backend, error) {
	if err := sym.validate(); err != nil {
		return nil, err
	}
	return &Backend{cfg: Config{RankVars: rankVars}, sym: sym}, nil
}

func (b *Backend) Init(_ context.Context, verbosity int) error {
	if b.sym.Init == nil {
		sym, err := open(b.cfg.Path)
		if err != nil {
			return err
		}
		if err := sym.validate(); err != nil {
			return fmt.Errorf("%s: %w", b.cfg.Path, err)
		}
		b.sym = sym
	}
	if rc := b.sym.Init(verbosity); rc != 0 {
		return fmt.Errorf("plugin init returned %d", rc)
	}
	b.name = b.sym.Name()
	if b.sym.Rank != nil {
		b.rank = b.sym.Rank()
	} else {
		b.rank = backend.RankFromEnv(b.cfg.RankVars...)
	}
	return nil
}

func (b *Backend) Name() string {
	if b.name != "" {
		return b.name
	}
	return Name
}

func (b *Backend) Rank() int { return b.rank }

func (b *Backend) Remaining(_ context.Context, q backend.Query) (int, error) {
	var last int64
	if !q.LastUpdate.IsZero() {
		last = q.LastUpdate.Unix()
	}
	v := b.sym.Remaining(q.Now.Unix(), last, q.Cached)
	if v < 0 {
		return backend.Unknown, backend.ErrUnknown
	}
	return v, nil
}
