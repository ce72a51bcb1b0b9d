//go:build !linux

package systemd

import (
	"context"

	"yogrt/pkg/backend"
)

const supported = false

type Backend struct{}

func New(Config) (*Backend, error) { return nil, ErrUnsupported }

func (*Backend) Init(context.Context, int) error { return ErrUnsupported }
func (*Backend) Name() string                    { return Name }
func (*Backend) Rank() int                       { return 0 }

func (*Backend) Remaining(context.Context, backend.Query) (int, error) {
	return backend.Unknown, ErrUnsupported
}
