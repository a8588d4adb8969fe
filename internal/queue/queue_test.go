// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_NeverExceedsMaxConcurrent(t *testing.T) {
	for _, k := range []int{1, 2, 4} {
		q := New(k, 0)

		var active, peak int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := q.Execute(context.Background(), func(context.Context) error {
					n := atomic.AddInt32(&active, 1)
					for {
						p := atomic.LoadInt32(&peak)
						if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
							break
						}
					}
					time.Sleep(3 * time.Millisecond)
					atomic.AddInt32(&active, -1)
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, int(atomic.LoadInt32(&peak)), k, "k=%d", k)
		stats := q.Stats()
		assert.Equal(t, int64(20), stats.Total)
		assert.Equal(t, int64(20), stats.Success)
		assert.Equal(t, 0, stats.Active)
	}
}

func TestExecute_SpacesAdmissions(t *testing.T) {
	const interval = 20 * time.Millisecond
	q := New(5, interval)

	var mu sync.Mutex
	var starts []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, q.Execute(context.Background(), func(context.Context) error {
				mu.Lock()
				starts = append(starts, time.Now())
				mu.Unlock()
				return nil
			}))
		}()
	}
	wg.Wait()

	require.Len(t, starts, 5)
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		// Start times are taken inside the task, a little after admission.
		assert.GreaterOrEqual(t, gap, interval-2*time.Millisecond, "gap %d", i)
	}
}

func TestExecute_CancelledWhileWaitingForSlot(t *testing.T) {
	q := New(1, 0)

	release := make(chan struct{})
	running := make(chan struct{})
	go func() {
		_ = q.Execute(context.Background(), func(context.Context) error {
			close(running)
			<-release
			return nil
		})
	}()
	<-running

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	ran := false
	err := q.Execute(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	close(release)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestExecute_CancelledDuringInterval(t *testing.T) {
	q := New(2, time.Hour)
	require.NoError(t, q.Execute(context.Background(), func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := q.Execute(ctx, func(context.Context) error {
		t.Fatal("task must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecute_AlreadyCancelled(t *testing.T) {
	q := New(1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Execute(ctx, func(context.Context) error {
		t.Fatal("task must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, int64(0), q.Stats().Total)
}

func TestExecute_CountsErrorsAndReleasesSlot(t *testing.T) {
	q := New(1, 0)
	boom := errors.New("boom")

	assert.NoError(t, q.Execute(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, q.Execute(context.Background(), func(context.Context) error { return boom }), boom)

	stats := q.Stats()
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Success)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, 0, stats.Active)
	assert.InDelta(t, 0.5, stats.SuccessRate(), 1e-9)
	assert.Equal(t, 0.0, stats.Load())
}

func TestExecute_PanicReleasesSlot(t *testing.T) {
	q := New(1, 0)

	func() {
		defer func() { _ = recover() }()
		_ = q.Execute(context.Background(), func(context.Context) error {
			panic("task failed")
		})
	}()

	stats := q.Stats()
	assert.Equal(t, 0, stats.Active)
	assert.Equal(t, int64(1), stats.Errors)

	assert.NoError(t, q.Execute(context.Background(), func(context.Context) error { return nil }))
}

func TestConfigure_AppliesToWaiters(t *testing.T) {
	q := New(1, 0)

	release := make(chan struct{})
	running := make(chan struct{})
	go func() {
		_ = q.Execute(context.Background(), func(context.Context) error {
			close(running)
			<-release
			return nil
		})
	}()
	<-running

	admitted := make(chan struct{})
	go func() {
		_ = q.Execute(context.Background(), func(context.Context) error {
			close(admitted)
			return nil
		})
	}()

	select {
	case <-admitted:
		t.Fatal("second task admitted past the limit")
	case <-time.After(20 * time.Millisecond):
	}

	q.Configure(2, 0)

	select {
	case <-admitted:
	case <-time.After(time.Second):
		t.Fatal("second task not admitted after raising the limit")
	}
	close(release)

	stats := q.Stats()
	assert.Equal(t, 2, stats.MaxConcurrent)
}

func TestQueues_ShareNoState(t *testing.T) {
	a := New(1, time.Hour)
	b := New(1, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.Execute(ctx, func(context.Context) error { return nil }))
	require.NoError(t, b.Execute(ctx, func(context.Context) error { return nil }))
	assert.Equal(t, int64(1), a.Stats().Total)
	assert.Equal(t, int64(1), b.Stats().Total)
}

func TestResetStats(t *testing.T) {
	q := New(2, 0)
	require.NoError(t, q.Execute(context.Background(), func(context.Context) error { return nil }))
	q.ResetStats()

	stats := q.Stats()
	assert.Equal(t, int64(0), stats.Total)
	assert.Equal(t, 2, stats.MaxConcurrent)
}
