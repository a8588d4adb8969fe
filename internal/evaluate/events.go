// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// EventKind names a run event.
type EventKind string

const (
	EventRunStarted      EventKind = "run.started"
	EventBatchCompleted  EventKind = "batch.completed"
	EventCandidateFailed EventKind = "candidate.failed"
	EventRunFinished     EventKind = "run.finished"
)

// Event is one structured notification published by the Runner.
type Event struct {
	Kind  EventKind
	RunID string
	Time  time.Time

	// Batch is the 1-based batch number and Size its candidate count;
	// zero for run-level events.
	Batch int
	Size  int

	// Candidate and Err are set for EventCandidateFailed.
	Candidate string
	Err       error

	State State
	Stats Stats
}

// Emitter receives run events. Emit is called from the Runner goroutine
// for run and batch events and from task goroutines for candidate events,
// so implementations must be safe for concurrent use.
type Emitter interface {
	Emit(Event)
}

// MultiEmitter fans events out to several emitters in order.
type MultiEmitter []Emitter

// Emit forwards e to every non-nil emitter.
func (m MultiEmitter) Emit(e Event) {
	for _, em := range m {
		if em != nil {
			em.Emit(e)
		}
	}
}

// LogEmitter writes events as structured log records.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit logs e. Candidate failures are warnings; everything else is info.
func (l LogEmitter) Emit(e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run", e.RunID)

	switch e.Kind {
	case EventRunStarted:
		logger.Info("evaluation started", "candidates", e.Stats.Total, "batches", e.Stats.Batches)
	case EventBatchCompleted:
		logger.Info("batch completed",
			"batch", e.Batch, "size", e.Size,
			"processed", e.Stats.Processed, "matched", e.Stats.Matched, "failed", e.Stats.Failed,
			"throughput", fmt.Sprintf("%.2f/s", e.Stats.Throughput()))
	case EventCandidateFailed:
		logger.Warn("candidate failed", "batch", e.Batch, "candidate", e.Candidate, "error", e.Err)
	case EventRunFinished:
		logger.Info("evaluation finished", "state", e.State.String(),
			"processed", e.Stats.Processed, "matched", e.Stats.Matched,
			"elapsed", e.Stats.Elapsed.Round(time.Millisecond))
	}
}

// LineEmitter prints one human-readable progress line per batch and a
// summary at the end of the run.
type LineEmitter struct {
	W io.Writer

	mu sync.Mutex
}

// Emit prints e when it is a batch or run-finished event.
func (l *LineEmitter) Emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := e.Stats
	switch e.Kind {
	case EventBatchCompleted:
		fmt.Fprintf(l.W, "batch %d/%d: %d/%d processed, %d matched, %.2f/s, eta %s\n",
			e.Batch, s.Batches, s.Processed, s.Total, s.Matched, s.Throughput(), s.ETA().Round(time.Second))
	case EventRunFinished:
		fmt.Fprintf(l.W, "\nRun summary: %d processed, %d matched, %d failed (total: %d) in %s [%s]\n",
			s.Processed, s.Matched, s.Failed, s.Total, s.Elapsed.Round(time.Millisecond), e.State)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Of returns the recorded events of kind k.
func (r *Recorder) Of(k EventKind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
