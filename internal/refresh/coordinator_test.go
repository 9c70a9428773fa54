// FilePath: internal/refresh/coordinator_test.go
package refresh

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/traksense/hub/internal/errors"
)

const testClass Class = "test"

func newTestCoordinator(pollInterval time.Duration) (*Coordinator, *clock.Mock) {
	mock := clock.NewMock()
	policies := map[Class]Policy{
		testClass: {StaleTTL: 30 * time.Second, PollInterval: pollInterval},
	}
	return NewCoordinator(policies, mock), mock
}

func waitForState(t *testing.T, c *Coordinator, key string, want State) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		s, ok := c.Get(key)
		if !ok {
			return false
		}
		snap = s
		return s.State == want
	}, time.Second, time.Millisecond)
	return snap
}

func TestRefreshAppliesFetchedValue(t *testing.T) {
	c, mock := newTestCoordinator(0)
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})

	snap, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, StateIdle, snap.State)

	c.Refresh(context.Background(), "k")
	snap = waitForState(t, c, "k", StateFresh)
	require.Equal(t, 42, snap.Value)
	require.Equal(t, mock.Now(), snap.FetchedAt)
	require.NoError(t, snap.Err)
}

func TestGetOnUnknownKey(t *testing.T) {
	c, _ := newTestCoordinator(0)
	_, ok := c.Get("never-registered")
	require.False(t, ok)
}

func TestValueCrossesFreshToStaleWithClock(t *testing.T) {
	c, mock := newTestCoordinator(0)
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		return "v", nil
	})
	c.Refresh(context.Background(), "k")
	waitForState(t, c, "k", StateFresh)

	mock.Add(29 * time.Second)
	snap, _ := c.Get("k")
	require.Equal(t, StateFresh, snap.State)

	mock.Add(time.Second)
	snap, _ = c.Get("k")
	require.Equal(t, StateStale, snap.State)
	// The stale value stays readable
	require.Equal(t, "v", snap.Value)
}

func TestSingleFetchInFlightPerKey(t *testing.T) {
	c, _ := newTestCoordinator(0)
	release := make(chan struct{})
	var calls int64
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return "done", nil
	})

	ctx := context.Background()
	c.Refresh(ctx, "k")
	waitForState(t, c, "k", StateFetching)

	// Further refreshes while one is in flight are no-ops
	c.Refresh(ctx, "k")
	c.EnsureFresh(ctx, "k")
	close(release)

	waitForState(t, c, "k", StateFresh)
	require.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestInvalidateDropsInFlightResponse(t *testing.T) {
	c, _ := newTestCoordinator(0)
	release := make(chan struct{})
	var calls int64
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			<-release
			return "old", nil
		}
		return "new", nil
	})

	ctx := context.Background()
	c.Refresh(ctx, "k")
	waitForState(t, c, "k", StateFetching)

	// Invalidation clears the in-flight marker so a new fetch can start
	c.Invalidate("k")
	c.Refresh(ctx, "k")
	snap := waitForState(t, c, "k", StateFresh)
	require.Equal(t, "new", snap.Value)

	// The pre-invalidation response must never overwrite the newer one
	close(release)
	require.Never(t, func() bool {
		s, _ := c.Get("k")
		return s.Value == "old"
	}, 100*time.Millisecond, 5*time.Millisecond)
}

func TestNonRetryableErrorIsNotRefetched(t *testing.T) {
	c, _ := newTestCoordinator(0)
	var calls int64
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return nil, errors.NewFetchError("sensor not found", nil, 404)
	})

	ctx := context.Background()
	c.Refresh(ctx, "k")
	snap := waitForState(t, c, "k", StateError)
	require.Error(t, snap.Err)

	// A rejected request stays rejected until invalidated
	c.EnsureFresh(ctx, "k")
	require.Never(t, func() bool {
		return atomic.LoadInt64(&calls) > 1
	}, 100*time.Millisecond, 5*time.Millisecond)

	// Invalidate clears the error and allows the retry
	c.Invalidate("k")
	c.EnsureFresh(ctx, "k")
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) == 2
	}, time.Second, time.Millisecond)
}

func TestRetryableErrorIsRefetchedByEnsureFresh(t *testing.T) {
	c, _ := newTestCoordinator(0)
	var calls int64
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return nil, errors.NewFetchError("gateway timeout", nil, 504)
		}
		return "recovered", nil
	})

	ctx := context.Background()
	c.Refresh(ctx, "k")
	waitForState(t, c, "k", StateError)

	c.EnsureFresh(ctx, "k")
	snap := waitForState(t, c, "k", StateFresh)
	require.Equal(t, "recovered", snap.Value)
	require.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestUnknownErrorShapesAreRetryable(t *testing.T) {
	c, _ := newTestCoordinator(0)
	var calls int64
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return nil, fmt.Errorf("connection reset")
		}
		return "ok", nil
	})

	ctx := context.Background()
	c.Refresh(ctx, "k")
	waitForState(t, c, "k", StateError)
	c.EnsureFresh(ctx, "k")
	waitForState(t, c, "k", StateFresh)
}

func TestMutateRestoresValueOnFailure(t *testing.T) {
	c, _ := newTestCoordinator(0)
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		return []string{"a", "b"}, nil
	})
	c.Refresh(context.Background(), "k")
	waitForState(t, c, "k", StateFresh)

	err := c.Mutate(context.Background(), "k",
		func(v interface{}) interface{} {
			return append(append([]string{}, v.([]string)...), "c")
		},
		func(ctx context.Context) error {
			// Optimistic value is visible while the backend call runs
			s, _ := c.Get("k")
			require.Equal(t, []string{"a", "b", "c"}, s.Value)
			return fmt.Errorf("backend rejected")
		})
	require.Error(t, err)

	snap, _ := c.Get("k")
	require.Equal(t, []string{"a", "b"}, snap.Value)
}

func TestMutateSuccessRefetchesAuthoritativeState(t *testing.T) {
	c, _ := newTestCoordinator(0)
	var calls int64
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return "before", nil
		}
		return "after", nil
	})
	c.Refresh(context.Background(), "k")
	waitForState(t, c, "k", StateFresh)

	err := c.Mutate(context.Background(), "k", nil, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := c.Get("k")
		return s.Value == "after"
	}, time.Second, time.Millisecond)
	require.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestMutateOnUnknownKey(t *testing.T) {
	c, _ := newTestCoordinator(0)
	err := c.Mutate(context.Background(), "nope", nil, func(ctx context.Context) error {
		return nil
	})
	require.Error(t, err)
	require.True(t, errors.IsNotFound(err))
}

func TestDeregisterForgetsKey(t *testing.T) {
	c, _ := newTestCoordinator(0)
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		return 1, nil
	})
	c.Deregister("k")
	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestRegisterExistingKeyKeepsCachedValue(t *testing.T) {
	c, _ := newTestCoordinator(0)
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		return "first", nil
	})
	c.Refresh(context.Background(), "k")
	waitForState(t, c, "k", StateFresh)

	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		return "second", nil
	})
	snap, _ := c.Get("k")
	require.Equal(t, StateFresh, snap.State)
	require.Equal(t, "first", snap.Value)
}

func TestPollLoopRefetchesAtInterval(t *testing.T) {
	c, mock := newTestCoordinator(60 * time.Second)
	var calls int64
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt64(&calls, 1), nil
	})

	c.Start()
	defer c.Stop()

	// First tick picks up the never-fetched key
	mock.Add(time.Second)
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) == 1
	}, time.Second, time.Millisecond)
	waitForState(t, c, "k", StateFresh)

	// Next refetch only once the poll interval has elapsed
	mock.Add(30 * time.Second)
	require.Never(t, func() bool {
		return atomic.LoadInt64(&calls) > 1
	}, 100*time.Millisecond, 5*time.Millisecond)

	mock.Add(30 * time.Second)
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) == 2
	}, time.Second, time.Millisecond)
}

func TestPollOverrideReplacesClassInterval(t *testing.T) {
	c, mock := newTestCoordinator(60 * time.Second)
	var calls int64
	c.Register("k", testClass, 5*time.Second, func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt64(&calls, 1), nil
	})

	c.Start()
	defer c.Stop()

	mock.Add(time.Second)
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) == 1
	}, time.Second, time.Millisecond)
	waitForState(t, c, "k", StateFresh)

	mock.Add(5 * time.Second)
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) == 2
	}, time.Second, time.Millisecond)
}

func TestStopDrainsInFlightFetches(t *testing.T) {
	c, _ := newTestCoordinator(0)
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c.Start()
	c.Refresh(context.Background(), "k")
	waitForState(t, c, "k", StateFetching)

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not drain in-flight fetches")
	}
}

func TestStartAfterStopResumesPolling(t *testing.T) {
	c, mock := newTestCoordinator(60 * time.Second)
	var calls int64
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt64(&calls, 1), nil
	})

	c.Start()
	mock.Add(time.Second)
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) == 1
	}, time.Second, time.Millisecond)
	c.Stop()

	// A restarted coordinator keeps polling instead of exiting immediately
	c.Start()
	defer c.Stop()
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		return atomic.LoadInt64(&calls) >= 2
	}, time.Second, time.Millisecond)
}

func TestEnsureFreshConcurrentWithCompletions(t *testing.T) {
	c, _ := newTestCoordinator(0)
	var calls int64
	c.Register("k", testClass, 0, func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt64(&calls, 1)%2 == 1 {
			return nil, errors.NewFetchError("upstream down", nil, 504)
		}
		return "ok", nil
	})

	// Hammer EnsureFresh from many goroutines while fetches flip the entry
	// between error and fresh; the race detector keeps this honest.
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.EnsureFresh(ctx, "k")
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		s, ok := c.Get("k")
		return ok && (s.State == StateFresh || s.State == StateError)
	}, time.Second, time.Millisecond)
}
