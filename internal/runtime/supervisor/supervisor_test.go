package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelOnFirstError(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))

	boom := errors.New("boom")
	s.Go("fails", func(context.Context) error { return boom })
	s.Go0("waits", func(ctx context.Context) { <-ctx.Done() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fails")
	assert.Equal(t, int64(0), s.Active())
}

func TestPanicIsRecovered(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go0("panics", func(context.Context) { panic("bad") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in panics")
	assert.NoError(t, s.Context().Err(), "without cancel-on-error the context stays live")
}

func TestStopTreatsCancellationAsClean(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestWaitHonorsDeadline(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	release := make(chan struct{})
	s.Go0("stuck", func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
	close(release)
}
