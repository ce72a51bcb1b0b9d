// Package none is the backend for environments without a resource manager.
// It binds successfully but never knows the remaining time, so every task of
// rank 0 sees an unbounded allocation.
package none

import (
	"context"
	"encoding/json"

	"yogrt/pkg/backend"
)

const Name = "none"

func Factory() backend.Factory {
	return backend.Factory{
		Name: Name,
		New:  func(json.RawMessage) (backend.Backend, error) { return New(), nil },
	}
}

type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) Init(context.Context, int) error { return nil }
func (*Backend) Name() string                    { return Name }
func (*Backend) Rank() int                       { return 0 }

func (*Backend) Remaining(context.Context, backend.Query) (int, error) {
	return backend.Unknown, backend.ErrUnknown
}
