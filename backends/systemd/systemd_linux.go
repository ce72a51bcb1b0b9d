//go:build linux

package systemd

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"

	"yogrt/pkg/backend"
)

const supported = true

type Backend struct {
	cfg Config

	mu   sync.Mutex
	conn *dbus.Conn
	unit string
	rank int
}

func New(cfg Config) (*Backend, error) {
	cfg.Unit = strings.TrimSpace(cfg.Unit)
	return &Backend{cfg: cfg}, nil
}

func (b *Backend) Init(ctx context.Context, _ int) error {
	var (
		conn *dbus.Conn
		err  error
	)
	if b.cfg.User {
		conn, err = dbus.NewUserConnectionContext(ctx)
	} else {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}

	unit := b.cfg.Unit
	if unit == "" {
		unit, err = conn.GetUnitNameByPID(ctx, uint32(os.Getpid()))
		if err != nil {
			conn.Close()
			return fmt.Errorf("resolve own unit: %w", err)
		}
	}

	b.mu.Lock()
	b.conn = conn
	b.unit = unit
	b.mu.Unlock()
	b.rank = backend.RankFromEnv(b.cfg.RankVars...)
	return nil
}

func (b *Backend) Name() string { return Name }
func (b *Backend) Rank() int    { return b.rank }

func (b *Backend) Remaining(ctx context.Context, q backend.Query) (int, error) {
	b.mu.Lock()
	conn, unit := b.conn, b.unit
	b.mu.Unlock()
	if conn == nil {
		return backend.Unknown, fmt.Errorf("systemd backend: not connected")
	}

	typed, err := conn.GetUnitTypePropertiesContext(ctx, unit, unitType(unit))
	if err != nil {
		return backend.Unknown, fmt.Errorf("%s: %w", unit, err)
	}
	limit, ok := typed["RuntimeMaxUSec"].(uint64)
	if !ok || limit == 0 || limit == math.MaxUint64 {
		return backend.Unknown, fmt.Errorf("%s has no runtime limit: %w", unit, backend.ErrUnknown)
	}

	props, err := conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return backend.Unknown, fmt.Errorf("%s: %w", unit, err)
	}
	started := parseTimestamp(props, "ActiveEnterTimestamp")
	if started.IsZero() {
		return backend.Unknown, fmt.Errorf("%s is not active: %w", unit, backend.ErrUnknown)
	}
	return remaining(started, limit, q.Now), nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	return nil
}

// parseTimestamp reads a systemd timestamp (microseconds since the epoch).
func parseTimestamp(props map[string]interface{}, key string) time.Time {
	if ts, ok := props[key].(uint64); ok && ts > 0 {
		return time.Unix(int64(ts/1_000_000), 0)
	}
	return time.Time{}
}

func remaining(started time.Time, limitUSec uint64, now time.Time) int {
	end := started.Add(time.Duration(limitUSec/1_000_000) * time.Second)
	return backend.Until(end, now)
}
