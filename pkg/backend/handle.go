package backend

import (
	"context"
	"fmt"
	"io"
)

// Handle is a bound backend. It is either loaded or unloaded for its whole lifetime.
type Handle interface {
	Loaded() bool
	Name() string
	// Rank is fixed at bind time. An unloaded handle reports 0.
	Rank() int
	// Query asks the backend for the remaining seconds. Any failure, including a
	// negative answer, yields (Unknown, non-nil error).
	Query(ctx context.Context, q Query) (int, error)
	Close() error
}

// Bind initializes b once and caches its identity and rank. A backend that
// fails to initialize is closed if it implements io.Closer.
func Bind(ctx context.Context, b Backend, verbosity int) (Handle, error) {
	if b == nil {
		return Unloaded(), fmt.Errorf("bind: nil backend")
	}
	if err := b.Init(ctx, verbosity); err != nil {
		if c, ok := b.(io.Closer); ok {
			_ = c.Close()
		}
		return Unloaded(), fmt.Errorf("init %s: %w", b.Name(), err)
	}
	return &loaded{b: b, name: b.Name(), rank: b.Rank()}, nil
}

// Unloaded returns the handle used when no backend is available.
func Unloaded() Handle { return unloaded{} }

type loaded struct {
	b    Backend
	name string
	rank int
}

func (h *loaded) Loaded() bool { return true }
func (h *loaded) Name() string { return h.name }
func (h *loaded) Rank() int    { return h.rank }

func (h *loaded) Query(ctx context.Context, q Query) (int, error) {
	v, err := h.b.Remaining(ctx, q)
	if err != nil {
		return Unknown, err
	}
	if v < 0 {
		return Unknown, fmt.Errorf("%s returned %d: %w", h.name, v, ErrUnknown)
	}
	return v, nil
}

func (h *loaded) Close() error {
	if c, ok := h.b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type unloaded struct{}

func (unloaded) Loaded() bool { return false }
func (unloaded) Name() string { return "" }
func (unloaded) Rank() int    { return 0 }
func (unloaded) Query(context.Context, Query) (int, error) {
	return Unknown, ErrUnknown
}
func (unloaded) Close() error { return nil }
