package env

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yogrt/pkg/backend"
)

var base = time.Unix(1_700_000_000, 0)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range DefaultEndVars {
		t.Setenv(k, "")
	}
	for _, k := range backend.RankVars {
		t.Setenv(k, "")
	}
}

func TestRemainingFromEndTime(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLURM_JOB_END_TIME", strconv.FormatInt(base.Unix()+3600, 10))
	t.Setenv("SLURM_PROCID", "3")

	b := New(Config{})
	require.NoError(t, b.Init(context.Background(), 0))
	assert.Equal(t, 3, b.Rank())

	v, err := b.Remaining(context.Background(), backend.Query{Now: base})
	require.NoError(t, err)
	assert.Equal(t, 3600, v)

	v, err = b.Remaining(context.Background(), backend.Query{Now: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestFirstSetVariableWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOGRT_END_TIME", base.Add(10*time.Minute).UTC().Format(time.RFC3339))
	t.Setenv("SLURM_JOB_END_TIME", strconv.FormatInt(base.Unix()+3600, 10))

	b := New(Config{})
	require.NoError(t, b.Init(context.Background(), 0))
	v, err := b.Remaining(context.Background(), backend.Query{Now: base})
	require.NoError(t, err)
	assert.Equal(t, 600, v)
}

func TestUnsetIsUnknown(t *testing.T) {
	clearEnv(t)
	assert.False(t, Factory().Detect())

	b := New(Config{EndVars: []string{"YOGRT_TEST_NO_SUCH_VAR"}})
	require.NoError(t, b.Init(context.Background(), 0))
	v, err := b.Remaining(context.Background(), backend.Query{Now: base})
	assert.ErrorIs(t, err, backend.ErrUnknown)
	assert.Equal(t, backend.Unknown, v)
}

func TestDetectAndFactoryConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOGRT_END_TIME", "1700003600")
	assert.True(t, Factory().Detect())

	_, err := Factory().New([]byte(`{"end_vars":["A"],"bogus":1}`))
	assert.Error(t, err)

	b, err := Factory().New([]byte(`{"end_vars":["YOGRT_END_TIME"],"rank_vars":["MY_RANK"]}`))
	require.NoError(t, err)
	t.Setenv("MY_RANK", "2")
	require.NoError(t, b.Init(context.Background(), 0))
	assert.Equal(t, 2, b.Rank())
}
