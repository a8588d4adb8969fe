// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queue

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxBackoff caps the cooldown applied after throttling errors.
const DefaultMaxBackoff = 5 * time.Second

// Backoff wraps a Queue and adds a cooldown after throttling errors.
//
// Each error classified by IsThrottled increments a consecutive-error count
// and sleeps Base × 2^count (capped at Max) before the error is returned.
// Each success decrements the count by one. The wrapped queue's MinInterval
// is never changed; the cooldown runs after the slot has been released.
type Backoff struct {
	queue       *Queue
	base        time.Duration
	max         time.Duration
	isThrottled func(error) bool

	mu          sync.Mutex
	consecutive int
	throttled   int64
}

// NewBackoff returns a backoff wrapper around q. A zero max selects
// DefaultMaxBackoff. isThrottled decides which task errors count.
func NewBackoff(q *Queue, base, max time.Duration, isThrottled func(error) bool) *Backoff {
	if max <= 0 {
		max = DefaultMaxBackoff
	}
	return &Backoff{queue: q, base: base, max: max, isThrottled: isThrottled}
}

// Queue returns the wrapped queue.
func (b *Backoff) Queue() *Queue { return b.queue }

// Execute runs task through the wrapped queue and applies the cooldown on
// throttling errors. A cancelled cooldown returns as soon as ctx ends,
// still reporting the original task error.
func (b *Backoff) Execute(ctx context.Context, task Task) error {
	err := b.queue.Execute(ctx, task)
	if err == nil {
		b.mu.Lock()
		if b.consecutive > 0 {
			b.consecutive--
		}
		b.mu.Unlock()
		return nil
	}

	if b.isThrottled == nil || !b.isThrottled(err) {
		return err
	}

	b.mu.Lock()
	b.consecutive++
	b.throttled++
	delay := b.delayLocked()
	b.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return err
}

// Delay returns the cooldown the next throttling error would start from,
// that is Base × 2^consecutive capped at Max.
func (b *Backoff) Delay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delayLocked()
}

// Consecutive returns the current consecutive-throttle count.
func (b *Backoff) Consecutive() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutive
}

// Throttled returns how many throttling errors have been observed.
func (b *Backoff) Throttled() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.throttled
}

// ResetStats clears the throttle state and the wrapped queue's counters.
func (b *Backoff) ResetStats() {
	b.mu.Lock()
	b.consecutive = 0
	b.throttled = 0
	b.mu.Unlock()
	b.queue.ResetStats()
}

func (b *Backoff) delayLocked() time.Duration {
	if b.base <= 0 {
		return 0
	}
	d := b.base
	for i := 0; i < b.consecutive; i++ {
		d *= 2
		if d >= b.max {
			return b.max
		}
	}
	if d > b.max {
		return b.max
	}
	return d
}
