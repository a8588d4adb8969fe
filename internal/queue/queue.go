// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package queue bounds concurrency and request spacing against one upstream.
//
// A Queue admits a task only when fewer than MaxConcurrent tasks are in
// flight and at least MinInterval has passed since the previous admission.
// Independent Queue values share no state; callers create one per upstream.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCancelled is returned when the caller's context ends while a task waits
// for admission. The task is never run in that case.
var ErrCancelled = errors.New("queue wait cancelled")

// errPanicked is recorded when a task panics before returning.
var errPanicked = errors.New("task panicked")

// Task is the unit of work run by a Queue.
type Task func(ctx context.Context) error

// Stats is a snapshot of queue configuration and counters.
type Stats struct {
	MaxConcurrent int           `json:"max_concurrent"`
	MinInterval   time.Duration `json:"min_interval"`
	Active        int           `json:"active"`
	Total         int64         `json:"total"`
	Success       int64         `json:"success"`
	Errors        int64         `json:"errors"`
}

// SuccessRate returns Success/Total, or 0 before any admission.
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total)
}

// Load returns the in-flight share of the concurrency limit, 0-100.
func (s Stats) Load() float64 {
	if s.MaxConcurrent <= 0 {
		return 0
	}
	return float64(s.Active) / float64(s.MaxConcurrent) * 100
}

// Queue is a slot-and-interval gate. The zero value is not usable; call New.
type Queue struct {
	mu            sync.Mutex
	maxConcurrent int
	minInterval   time.Duration
	active        int
	last          time.Time

	// changed is closed and replaced whenever a slot frees up or the
	// configuration changes, waking every waiter to re-check.
	changed chan struct{}

	total, success, errs int64
}

// New returns a queue allowing maxConcurrent tasks in flight with at least
// minInterval between admissions. maxConcurrent below 1 is treated as 1.
func New(maxConcurrent int, minInterval time.Duration) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if minInterval < 0 {
		minInterval = 0
	}
	return &Queue{
		maxConcurrent: maxConcurrent,
		minInterval:   minInterval,
		changed:       make(chan struct{}),
	}
}

// Configure changes the limits. Tasks already in flight are unaffected;
// the new values apply from the next admission.
func (q *Queue) Configure(maxConcurrent int, minInterval time.Duration) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if minInterval < 0 {
		minInterval = 0
	}
	q.mu.Lock()
	q.maxConcurrent = maxConcurrent
	q.minInterval = minInterval
	q.broadcastLocked()
	q.mu.Unlock()
}

// Execute waits for admission, runs task, and returns its error. A wait
// interrupted by ctx returns an error wrapping both ErrCancelled and the
// context error. The slot is released even if task panics.
func (q *Queue) Execute(ctx context.Context, task Task) error {
	if err := q.acquire(ctx); err != nil {
		return err
	}

	err := errPanicked
	defer func() { q.release(err) }()

	err = task(ctx)
	return err
}

func (q *Queue) acquire(ctx context.Context) error {
	q.mu.Lock()
	for {
		if err := ctx.Err(); err != nil {
			q.mu.Unlock()
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		changed := q.changed
		if q.active < q.maxConcurrent {
			wait := time.Duration(0)
			if !q.last.IsZero() {
				wait = q.minInterval - time.Since(q.last)
			}
			if wait <= 0 {
				q.active++
				q.last = time.Now()
				q.total++
				q.mu.Unlock()
				return nil
			}

			q.mu.Unlock()
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
			case <-timer.C:
			case <-changed:
			}
			timer.Stop()
			q.mu.Lock()
			continue
		}

		q.mu.Unlock()
		select {
		case <-ctx.Done():
		case <-changed:
		}
		q.mu.Lock()
	}
}

func (q *Queue) release(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.active--
	if err == nil {
		q.success++
	} else {
		q.errs++
	}
	q.broadcastLocked()
}

func (q *Queue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// Stats returns a snapshot of the queue.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		MaxConcurrent: q.maxConcurrent,
		MinInterval:   q.minInterval,
		Active:        q.active,
		Total:         q.total,
		Success:       q.success,
		Errors:        q.errs,
	}
}

// ResetStats zeroes the counters. Limits and in-flight tasks are kept.
func (q *Queue) ResetStats() {
	q.mu.Lock()
	q.total, q.success, q.errs = 0, 0, 0
	q.mu.Unlock()
}
