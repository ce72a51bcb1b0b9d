package goplugin

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yogrt/pkg/backend"
)

func symbols(rc int, remaining int) (Symbols, *[3]int64) {
	var seen [3]int64
	return Symbols{
		Init: func(int) int { return rc },
		Name: func() string { return "lsf" },
		Remaining: func(now, last int64, cached int) int {
			seen = [3]int64{now, last, int64(cached)}
			return remaining
		},
		Rank: func() int { return 5 },
	}, &seen
}

func TestBoundSymbols(t *testing.T) {
	t.Parallel()
	sym, seen := symbols(0, 120)
	b, err := NewFromSymbols(sym)
	require.NoError(t, err)

	h, err := backend.Bind(context.Background(), b, 1)
	require.NoError(t, err)
	assert.Equal(t, "lsf", h.Name())
	assert.Equal(t, 5, h.Rank())

	now := time.Unix(1_700_000_100, 0)
	v, err := h.Query(context.Background(), backend.Query{Now: now, Cached: 3})
	require.NoError(t, err)
	assert.Equal(t, 120, v)
	assert.Equal(t, [3]int64{1_700_000_100, 0, 3}, *seen)

	_, err = h.Query(context.Background(), backend.Query{Now: now, LastUpdate: now.Add(-time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_040), seen[1])
}

func TestPluginFailures(t *testing.T) {
	t.Parallel()
	sym, _ := symbols(1, 0)
	b, err := NewFromSymbols(sym)
	require.NoError(t, err)
	_, err = backend.Bind(context.Background(), b, 0)
	assert.Error(t, err)

	sym, _ = symbols(0, -1)
	b, err = NewFromSymbols(sym)
	require.NoError(t, err)
	v, err := b.Remaining(context.Background(), backend.Query{Now: time.Now()})
	assert.ErrorIs(t, err, backend.ErrUnknown)
	assert.Equal(t, backend.Unknown, v)

	_, err = NewFromSymbols(Symbols{Name: func() string { return "x" }})
	assert.Error(t, err)
}

func TestOpenMissingPlugin(t *testing.T) {
	t.Parallel()
	_, err := New(Config{})
	assert.Error(t, err)

	b, err := New(Config{Path: filepath.Join(t.TempDir(), "missing.so")})
	require.NoError(t, err)
	h, err := backend.Bind(context.Background(), b, 0)
	assert.Error(t, err)
	assert.False(t, h.Loaded())
}
