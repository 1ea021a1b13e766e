package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazy_ConcurrentFirstCallsShareOneAttempt(t *testing.T) {
	var dials atomic.Int32
	release := make(chan struct{})

	lazy := NewLazy(func(ctx context.Context) (string, error) {
		dials.Add(1)
		<-release
		return "client", nil
	})

	const callers = 50
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = lazy.Get(context.Background())
		}(i)
	}

	// let the goroutines pile up on the in-flight attempt
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, int64(1), lazy.Attempts())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "client", results[i])
	}
}

func TestLazy_MemoizesSuccess(t *testing.T) {
	var dials atomic.Int32
	lazy := NewLazy(func(ctx context.Context) (int, error) {
		return int(dials.Add(1)), nil
	})

	first, err := lazy.Get(context.Background())
	require.NoError(t, err)
	second, err := lazy.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, int32(1), dials.Load())
}

func TestLazy_FailureIsSharedThenRetried(t *testing.T) {
	dialErr := errors.New("connection refused")
	var dials atomic.Int32
	release := make(chan struct{})

	lazy := NewLazy(func(ctx context.Context) (string, error) {
		n := dials.Add(1)
		if n == 1 {
			<-release
			return "", dialErr
		}
		return "client", nil
	})

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = lazy.Get(context.Background())
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, dialErr)
	}
	assert.Equal(t, int32(1), dials.Load())

	value, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "client", value)
	assert.Equal(t, int64(2), lazy.Attempts())
}

func TestLazy_CancelledWaiterDoesNotAbortAttempt(t *testing.T) {
	release := make(chan struct{})
	lazy := NewLazy(func(ctx context.Context) (string, error) {
		select {
		case <-release:
			return "client", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := lazy.Get(ctx)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	value, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "client", value)
	assert.Equal(t, int64(1), lazy.Attempts())
}

func TestLazy_ResetForcesReconnect(t *testing.T) {
	var dials atomic.Int32
	lazy := NewLazy(func(ctx context.Context) (int32, error) {
		return dials.Add(1), nil
	})

	_, ok := lazy.Peek()
	assert.False(t, ok)

	_, err := lazy.Get(context.Background())
	require.NoError(t, err)

	old, ok := lazy.Reset()
	assert.True(t, ok)
	assert.Equal(t, int32(1), old)

	value, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), value)
}
