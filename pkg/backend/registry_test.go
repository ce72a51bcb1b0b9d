package backend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "yogrt/pkg/logx"
)

type stubBackend struct {
	name      string
	rank      int
	initErr   error
	initCalls int
	rankCalls int
	remaining func(q Query) (int, error)
}

func (s *stubBackend) Init(ctx context.Context, verbosity int) error {
	s.initCalls++
	return s.initErr
}
func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Rank() int {
	s.rankCalls++
	return s.rank
}
func (s *stubBackend) Remaining(ctx context.Context, q Query) (int, error) {
	return s.remaining(q)
}

func factoryFor(b *stubBackend, detect bool) Factory {
	return Factory{
		Name:   b.name,
		Detect: func() bool { return detect },
		New:    func(json.RawMessage) (Backend, error) { return b, nil },
	}
}

func TestBindCachesRankAndInitsOnce(t *testing.T) {
	b := &stubBackend{name: "stub", rank: 2, remaining: func(Query) (int, error) { return 10, nil }}
	h, err := Bind(context.Background(), b, 1)
	require.NoError(t, err)

	assert.True(t, h.Loaded())
	assert.Equal(t, "stub", h.Name())
	for i := 0; i < 3; i++ {
		assert.Equal(t, 2, h.Rank())
	}
	assert.Equal(t, 1, b.initCalls)
	assert.Equal(t, 1, b.rankCalls)
}

type closingBackend struct {
	stubBackend
	closed int
}

func (c *closingBackend) Close() error {
	c.closed++
	return nil
}

func TestBindClosesBackendOnInitFailure(t *testing.T) {
	b := &closingBackend{stubBackend: stubBackend{name: "pool", initErr: errors.New("connection refused")}}
	h, err := Bind(context.Background(), b, 0)
	assert.Error(t, err)
	assert.False(t, h.Loaded())
	assert.Equal(t, 1, b.closed)

	r := NewRegistry()
	r.Register(Factory{Name: "pool", New: func(json.RawMessage) (Backend, error) { return b, nil }})
	h = r.Open(context.Background(), "pool", nil, 0, logx.Nop())
	assert.False(t, h.Loaded())
	assert.Equal(t, 2, b.closed)
}

func TestLoadedQueryTreatsNegativeAsUnknown(t *testing.T) {
	answers := []int{-7, -1, 0, 42}
	i := 0
	b := &stubBackend{name: "stub", remaining: func(Query) (int, error) {
		v := answers[i]
		i++
		return v, nil
	}}
	h, err := Bind(context.Background(), b, 0)
	require.NoError(t, err)

	v, err := h.Query(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrUnknown)
	assert.Equal(t, Unknown, v)

	v, err = h.Query(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrUnknown)
	assert.Equal(t, Unknown, v)

	v, err = h.Query(context.Background(), Query{})
	assert.NoError(t, err)
	assert.Equal(t, 0, v)

	v, err = h.Query(context.Background(), Query{})
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestUnloadedHandle(t *testing.T) {
	h := Unloaded()
	assert.False(t, h.Loaded())
	assert.Equal(t, 0, h.Rank())
	v, err := h.Query(context.Background(), Query{})
	assert.Equal(t, Unknown, v)
	assert.Error(t, err)
	assert.NoError(t, h.Close())
}

func TestRegistryOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("by name", func(t *testing.T) {
		r := NewRegistry()
		b := &stubBackend{name: "stub", remaining: func(Query) (int, error) { return 1, nil }}
		r.Register(factoryFor(b, false))
		h := r.Open(ctx, " STUB ", nil, 0, logx.Nop())
		assert.True(t, h.Loaded())
	})

	t.Run("unknown name", func(t *testing.T) {
		r := NewRegistry()
		h := r.Open(ctx, "missing", nil, 0, logx.Nop())
		assert.False(t, h.Loaded())
	})

	t.Run("auto picks first detected", func(t *testing.T) {
		r := NewRegistry()
		a := &stubBackend{name: "a"}
		b := &stubBackend{name: "b"}
		c := &stubBackend{name: "c"}
		r.Register(factoryFor(a, false), factoryFor(b, true), factoryFor(c, true))
		h := r.Open(ctx, "", nil, 0, logx.Nop())
		require.True(t, h.Loaded())
		assert.Equal(t, "b", h.Name())
		assert.Equal(t, []string{"a", "b", "c"}, r.Names())
	})

	t.Run("auto without detection", func(t *testing.T) {
		r := NewRegistry()
		r.Register(factoryFor(&stubBackend{name: "a"}, false))
		assert.False(t, r.Open(ctx, "auto", nil, 0, logx.Nop()).Loaded())
	})

	t.Run("init failure is unloaded", func(t *testing.T) {
		r := NewRegistry()
		b := &stubBackend{name: "stub", initErr: errors.New("boom")}
		r.Register(factoryFor(b, false))
		h := r.Open(ctx, "stub", nil, 0, logx.Nop())
		assert.False(t, h.Loaded())
		assert.Equal(t, 0, h.Rank())
	})

	t.Run("constructor failure is unloaded", func(t *testing.T) {
		r := NewRegistry()
		r.Register(Factory{Name: "bad", New: func(json.RawMessage) (Backend, error) {
			return nil, errors.New("bad config")
		}})
		assert.False(t, r.Open(ctx, "bad", nil, 0, logx.Nop()).Loaded())
	})
}

func TestDecodeConfig(t *testing.T) {
	var cfg struct {
		Path string `json:"path"`
	}
	cfg.Path = "default"
	require.NoError(t, DecodeConfig(nil, &cfg))
	assert.Equal(t, "default", cfg.Path)

	require.NoError(t, DecodeConfig(json.RawMessage(`{"path":"/tmp/x"}`), &cfg))
	assert.Equal(t, "/tmp/x", cfg.Path)

	assert.Error(t, DecodeConfig(json.RawMessage(`{"nope":1}`), &cfg))
	assert.Error(t, DecodeConfig(json.RawMessage(`{"path":"a"}{}`), &cfg))
}
