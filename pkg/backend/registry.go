package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	logx "yogrt/pkg/logx"
)

// Registry holds backend factories by name, in registration order.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry is filled by importing yogrt/backends/all (or individual backends).
var DefaultRegistry = NewRegistry()

// Register adds factories to DefaultRegistry.
func Register(f ...Factory) { DefaultRegistry.Register(f...) }

// Register adds factories. A factory with an existing name replaces the old one
// but keeps its position.
func (r *Registry) Register(fs ...Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range fs {
		name := normalizeName(f.Name)
		if name == "" || f.New == nil {
			continue
		}
		if _, ok := r.factories[name]; !ok {
			r.order = append(r.order, name)
		}
		r.factories[name] = f
	}
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[normalizeName(name)]
	return f, ok
}

// Open locates and binds exactly one backend.
//
// An empty name or "auto" picks the first factory whose Detect reports true.
// Every failure yields the unloaded handle; the caller is expected not to retry.
func (r *Registry) Open(ctx context.Context, name string, raw json.RawMessage, verbosity int, log logx.Logger) Handle {
	if log.IsZero() {
		log = logx.Nop()
	}
	f, err := r.resolve(name)
	if err != nil {
		log.Debug("no backend loaded", logx.String("backend", name), logx.Err(err))
		return Unloaded()
	}
	b, err := f.New(raw)
	if err != nil {
		log.Debug("backend construction failed", logx.String("backend", f.Name), logx.Err(err))
		return Unloaded()
	}
	h, err := Bind(ctx, b, verbosity)
	if err != nil {
		log.Debug("backend init failed", logx.String("backend", f.Name), logx.Err(err))
		return h
	}
	log.Debug("backend loaded", logx.String("backend", h.Name()), logx.Int("rank", h.Rank()))
	return h
}

func (r *Registry) resolve(name string) (Factory, error) {
	name = normalizeName(name)
	if name != "" && name != "auto" {
		f, ok := r.Lookup(name)
		if !ok {
			return Factory{}, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return f, nil
	}

	r.mu.RLock()
	order := append([]string(nil), r.order...)
	r.mu.RUnlock()
	for _, n := range order {
		f, _ := r.Lookup(n)
		if f.Detect != nil && f.Detect() {
			return f, nil
		}
	}
	return Factory{}, fmt.Errorf("auto-detect: %w", ErrNotFound)
}

func normalizeName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
