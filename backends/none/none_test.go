package none

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yogrt/pkg/backend"
)

func TestNoneNeverKnows(t *testing.T) {
	t.Parallel()
	h, err := backend.Bind(context.Background(), New(), 0)
	require.NoError(t, err)
	assert.True(t, h.Loaded())
	assert.Equal(t, Name, h.Name())
	assert.Equal(t, 0, h.Rank())

	v, err := h.Query(context.Background(), backend.Query{Now: time.Now()})
	assert.ErrorIs(t, err, backend.ErrUnknown)
	assert.Equal(t, backend.Unknown, v)
}
