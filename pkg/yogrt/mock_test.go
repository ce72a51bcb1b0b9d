package yogrt

import (
	"context"
	"encoding/json"

	"yogrt/pkg/backend"
)

// mockBackend delegates to its function fields and counts queries.
type mockBackend struct {
	name       string
	rank       int
	initErr    error
	MRemaining func(q backend.Query) (int, error)

	queries []backend.Query
	closed  bool
}

func (m *mockBackend) Init(ctx context.Context, verbosity int) error { return m.initErr }
func (m *mockBackend) Name() string                                  { return m.name }
func (m *mockBackend) Rank() int                                     { return m.rank }
func (m *mockBackend) Remaining(ctx context.Context, q backend.Query) (int, error) {
	m.queries = append(m.queries, q)
	return m.MRemaining(q)
}
func (m *mockBackend) Close() error {
	m.closed = true
	return nil
}

// fixed answers with the given values in order, then repeats the last one.
func fixed(values ...int) func(backend.Query) (int, error) {
	i := 0
	return func(backend.Query) (int, error) {
		v := values[min(i, len(values)-1)]
		i++
		return v, nil
	}
}

func registryWith(m *mockBackend) *backend.Registry {
	r := backend.NewRegistry()
	r.Register(backend.Factory{
		Name: m.name,
		New:  func(json.RawMessage) (backend.Backend, error) { return m, nil },
	})
	return r
}
