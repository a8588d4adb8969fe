// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate runs candidates through reconciliation and scoring in
// sequential batches. Candidates inside a batch run concurrently; the
// batch size is the parallelism.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/profmatch/internal/publication"
	"github.com/pdiddy/profmatch/internal/scoring"
	"github.com/pdiddy/profmatch/pkg/types"
)

var (
	// ErrEmptyQuery is returned when the run has no target query.
	ErrEmptyQuery = errors.New("empty target query")

	// ErrCancelled is wrapped by the error Run returns after cancellation.
	// The Outcome returned alongside it still holds the partial results.
	ErrCancelled = errors.New("evaluation cancelled")

	// ErrRunning is returned when Run is called on a Runner that is busy.
	ErrRunning = errors.New("evaluation already running")
)

const (
	DefaultWorkers   = 10
	DefaultThreshold = 0.6
	DefaultCooldown  = time.Second
)

// State is the lifecycle state of a Runner.
type State int

const (
	Idle State = iota
	Running
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Enricher attaches publication data to a candidate. It returns an error
// only when ctx is done. *publication.Service implements it.
type Enricher interface {
	Reconcile(ctx context.Context, c types.Candidate) (publication.Result, error)
}

// Scorer scores one enriched candidate. *scoring.Scorer implements it.
type Scorer interface {
	Score(ctx context.Context, c types.Candidate, query string) (scoring.Result, error)
	Ready(ctx context.Context) error
}

// Resetter is anything with per-run statistics, such as a request queue.
type Resetter interface {
	ResetStats()
}

// PartialFunc receives, after every batch, all candidates scored so far
// that reach the match threshold, and the running counters.
type PartialFunc func(matches []types.Candidate, stats Stats)

// Outcome is what a run produced. Results are in input order for the
// batches that ran; candidates interrupted by cancellation are absent.
type Outcome struct {
	RunID   string            `json:"run_id" yaml:"run_id"`
	State   State             `json:"-" yaml:"-"`
	Query   string            `json:"query" yaml:"query"`
	Results []types.Candidate `json:"results" yaml:"results"`
	Stats   Stats             `json:"stats" yaml:"stats"`
}

// Matches returns the results scoring at least threshold.
func (o Outcome) Matches(threshold float64) []types.Candidate {
	var out []types.Candidate
	for _, c := range o.Results {
		if c.MatchScore >= threshold {
			out = append(out, c)
		}
	}
	return out
}

// Runner is the batch orchestrator. A Runner may be reused for several
// runs but never runs two at once.
type Runner struct {
	Enricher Enricher
	Scorer   Scorer
	Config   types.RunConfig

	// Emitter receives run events; nil discards them.
	Emitter Emitter

	// Resetters are reset at the start of every run.
	Resetters []Resetter

	Logger *slog.Logger

	mu    sync.Mutex
	state State
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) emit(e Event) {
	if r.Emitter == nil {
		return
	}
	e.Time = time.Now()
	r.Emitter.Emit(e)
}

func (r *Runner) workers() int {
	if r.Config.Workers > 0 {
		return r.Config.Workers
	}
	return DefaultWorkers
}

func (r *Runner) threshold() float64 {
	if r.Config.Threshold > 0 {
		return r.Config.Threshold
	}
	return DefaultThreshold
}

// cooldown is the pause between batches; zero selects the default and a
// negative value disables it.
func (r *Runner) cooldown() time.Duration {
	switch {
	case r.Config.Cooldown < 0:
		return 0
	case r.Config.Cooldown == 0:
		return DefaultCooldown
	default:
		return r.Config.Cooldown
	}
}

// Partition splits candidates into consecutive batches of at most size
// elements. The last batch may be shorter.
func Partition(candidates []types.Candidate, size int) [][]types.Candidate {
	if size <= 0 {
		size = 1
	}
	var batches [][]types.Candidate
	for start := 0; start < len(candidates); start += size {
		end := min(start+size, len(candidates))
		batches = append(batches, candidates[start:end])
	}
	return batches
}

// Run evaluates candidates against Config.Query. The caller's candidates
// are never modified; results are enriched copies.
//
// Precondition failures (empty query, provider not ready) return before
// any work with state Failed. Per-candidate failures are recorded as a
// zero score with the error as reasoning. When ctx is cancelled the
// in-flight batch drains, no further batch starts, and Run returns the
// partial Outcome together with an error wrapping ErrCancelled.
func (r *Runner) Run(ctx context.Context, candidates []types.Candidate, onBatch PartialFunc) (Outcome, error) {
	r.mu.Lock()
	if r.state == Running {
		r.mu.Unlock()
		return Outcome{}, ErrRunning
	}
	r.state = Running
	r.mu.Unlock()

	query := strings.TrimSpace(r.Config.Query)
	out := Outcome{RunID: uuid.NewString(), Query: query, State: Running}

	if query == "" {
		return r.fail(out, ErrEmptyQuery)
	}
	if r.Scorer == nil {
		return r.fail(out, errors.New("no scorer configured"))
	}
	if err := r.Scorer.Ready(ctx); err != nil {
		return r.fail(out, fmt.Errorf("scoring provider not ready: %w", err))
	}

	for _, rs := range r.Resetters {
		if rs != nil {
			rs.ResetStats()
		}
	}

	batches := Partition(candidates, r.workers())
	out.Stats = Stats{Total: len(candidates), Batches: len(batches)}
	start := time.Now()
	r.emit(Event{Kind: EventRunStarted, RunID: out.RunID, State: Running, Stats: out.Stats})

	threshold := r.threshold()
	var matches []types.Candidate

	for i, batch := range batches {
		if ctx.Err() != nil {
			return r.cancel(ctx, out, start)
		}

		results, failed := r.runBatch(ctx, out.RunID, i+1, batch, query)
		for _, c := range results {
			out.Results = append(out.Results, c)
			if c.MatchScore >= threshold {
				matches = append(matches, c)
			}
		}

		out.Stats.Processed += len(results)
		out.Stats.Failed += failed
		out.Stats.Matched = len(matches)
		out.Stats.BatchesDone = i + 1
		out.Stats.Elapsed = time.Since(start)
		r.emit(Event{Kind: EventBatchCompleted, RunID: out.RunID, Batch: i + 1, Size: len(batch), State: Running, Stats: out.Stats})

		if onBatch != nil {
			onBatch(append([]types.Candidate(nil), matches...), out.Stats)
		}

		if ctx.Err() != nil {
			return r.cancel(ctx, out, start)
		}
		if i < len(batches)-1 {
			if d := r.cooldown(); d > 0 {
				timer := time.NewTimer(d)
				select {
				case <-ctx.Done():
					timer.Stop()
					return r.cancel(ctx, out, start)
				case <-timer.C:
				}
			}
		}
	}

	out.State = Completed
	out.Stats.Elapsed = time.Since(start)
	r.setState(Completed)
	r.emit(Event{Kind: EventRunFinished, RunID: out.RunID, State: Completed, Stats: out.Stats})
	return out, nil
}

func (r *Runner) fail(out Outcome, err error) (Outcome, error) {
	out.State = Failed
	r.setState(Failed)
	r.logger().Error("evaluation not started", "run", out.RunID, "error", err)
	return out, err
}

func (r *Runner) cancel(ctx context.Context, out Outcome, start time.Time) (Outcome, error) {
	out.State = Cancelled
	out.Stats.Elapsed = time.Since(start)
	r.setState(Cancelled)
	r.emit(Event{Kind: EventRunFinished, RunID: out.RunID, State: Cancelled, Stats: out.Stats})
	return out, fmt.Errorf("%w after %d of %d batches: %w", ErrCancelled, out.Stats.BatchesDone, out.Stats.Batches, context.Cause(ctx))
}

// runBatch evaluates every candidate of batch concurrently and returns
// the finished ones in batch order plus how many of them failed.
func (r *Runner) runBatch(ctx context.Context, runID string, n int, batch []types.Candidate, query string) ([]types.Candidate, int) {
	type slot struct {
		c      types.Candidate
		done   bool
		failed bool
	}
	slots := make([]slot, len(batch))

	var g errgroup.Group
	for j := range batch {
		g.Go(func() error {
			c, ok, err := r.evaluateOne(ctx, batch[j], query)
			if !ok {
				return nil
			}
			slots[j] = slot{c: c, done: true, failed: err != nil}
			if err != nil {
				r.emit(Event{Kind: EventCandidateFailed, RunID: runID, Batch: n, Candidate: c.Name, Err: err, State: Running})
			}
			return nil
		})
	}
	_ = g.Wait()

	var (
		results []types.Candidate
		failed  int
	)
	for _, s := range slots {
		if !s.done {
			continue
		}
		results = append(results, s.c)
		if s.failed {
			failed++
		}
	}
	return results, failed
}

// evaluateOne runs enrichment and scoring on a copy of in. ok is false when
// the task was interrupted by cancellation and must not be recorded. A
// non-nil err with ok true means the candidate was recorded as failed; a
// panic in the enricher or scorer is recorded the same way.
func (r *Runner) evaluateOne(ctx context.Context, in types.Candidate, query string) (c types.Candidate, ok bool, err error) {
	c = in.Clone()
	defer func() {
		if p := recover(); p != nil {
			r.logger().Error("candidate task panicked", "candidate", c.Name, "panic", p)
			c, ok, err = failure(c, fmt.Errorf("candidate task panicked: %v", p))
		}
	}()

	if r.Enricher != nil {
		res, err := r.Enricher.Reconcile(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return c, false, nil
			}
			return failure(c, fmt.Errorf("reconciling publications: %w", err))
		}
		c.PaperList = res.Papers
		c.Sources = res.Sources
		c.DataQuality = res.Quality
	}

	if ctx.Err() != nil {
		return c, false, nil
	}

	res, err := r.Scorer.Score(ctx, c, query)
	if err != nil {
		if ctx.Err() != nil {
			return c, false, nil
		}
		return failure(c, err)
	}
	res.Apply(&c)
	return c, true, nil
}

func failure(c types.Candidate, err error) (types.Candidate, bool, error) {
	c.MatchScore = 0
	c.MatchReasoning = "Error: " + err.Error()
	return c, true, err
}
