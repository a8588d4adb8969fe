// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errThrottled = errors.New("429 too many requests")

func isThrottled(err error) bool { return errors.Is(err, errThrottled) }

func failWith(err error) Task {
	return func(context.Context) error { return err }
}

func TestBackoff_DelayGrowsAndCaps(t *testing.T) {
	b := NewBackoff(New(1, 0), 5*time.Millisecond, 25*time.Millisecond, isThrottled)
	assert.Equal(t, 5*time.Millisecond, b.Delay())

	start := time.Now()
	err := b.Execute(context.Background(), failWith(errThrottled))
	assert.ErrorIs(t, err, errThrottled)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	assert.Equal(t, 1, b.Consecutive())
	assert.Equal(t, 10*time.Millisecond, b.Delay())

	_ = b.Execute(context.Background(), failWith(errThrottled))
	assert.Equal(t, 20*time.Millisecond, b.Delay())

	_ = b.Execute(context.Background(), failWith(errThrottled))
	assert.Equal(t, 25*time.Millisecond, b.Delay(), "capped")
	assert.Equal(t, int64(3), b.Throttled())
}

func TestBackoff_SuccessDecays(t *testing.T) {
	b := NewBackoff(New(1, 0), time.Millisecond, 0, isThrottled)

	_ = b.Execute(context.Background(), failWith(errThrottled))
	_ = b.Execute(context.Background(), failWith(errThrottled))
	require.Equal(t, 2, b.Consecutive())

	require.NoError(t, b.Execute(context.Background(), failWith(nil)))
	assert.Equal(t, 1, b.Consecutive())
	require.NoError(t, b.Execute(context.Background(), failWith(nil)))
	require.NoError(t, b.Execute(context.Background(), failWith(nil)))
	assert.Equal(t, 0, b.Consecutive())
	assert.Equal(t, time.Millisecond, b.Delay())
}

func TestBackoff_IgnoresOtherErrors(t *testing.T) {
	b := NewBackoff(New(1, 0), time.Hour, 0, isThrottled)
	other := errors.New("connection reset")

	start := time.Now()
	err := b.Execute(context.Background(), failWith(other))
	assert.ErrorIs(t, err, other)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, b.Consecutive())
}

func TestBackoff_CooldownInterruptedByContext(t *testing.T) {
	b := NewBackoff(New(1, 0), time.Second, 10*time.Second, isThrottled)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.Execute(ctx, failWith(errThrottled))
	assert.ErrorIs(t, err, errThrottled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBackoff_LeavesMinIntervalAlone(t *testing.T) {
	q := New(2, 7*time.Millisecond)
	b := NewBackoff(q, time.Millisecond, 0, isThrottled)

	_ = b.Execute(context.Background(), failWith(errThrottled))
	_ = b.Execute(context.Background(), failWith(errThrottled))

	stats := q.Stats()
	assert.Equal(t, 7*time.Millisecond, stats.MinInterval)
	assert.Equal(t, int64(2), stats.Errors)
	assert.Same(t, q, b.Queue())
}

func TestBackoff_ResetStats(t *testing.T) {
	q := New(1, 0)
	b := NewBackoff(q, time.Millisecond, 0, isThrottled)
	_ = b.Execute(context.Background(), failWith(errThrottled))

	b.ResetStats()
	assert.Equal(t, 0, b.Consecutive())
	assert.Equal(t, int64(0), b.Throttled())
	assert.Equal(t, int64(0), q.Stats().Total)
}
