// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/profmatch/internal/httputil"
	"github.com/pdiddy/profmatch/internal/queue"
	"github.com/pdiddy/profmatch/pkg/types"
)

const (
	defaultQueueConcurrent = 5
	defaultQueueInterval   = 200 * time.Millisecond
)

// Scorer pairs a provider with a scheme. Provider calls go through Queue
// when it is set.
type Scorer struct {
	Provider Provider
	Scheme   Scheme
	Queue    *queue.Backoff
	Logger   *slog.Logger
}

// NewQueue builds the provider queue from cfg (default 5 concurrent, 200ms
// apart) with a backoff on HTTP 429.
func NewQueue(cfg types.QueueConfig) *queue.Backoff {
	n, interval := cfg.MaxConcurrent, cfg.MinInterval
	if n <= 0 {
		n = defaultQueueConcurrent
	}
	if interval <= 0 {
		interval = defaultQueueInterval
	}
	return queue.NewBackoff(queue.New(n, interval), interval, cfg.MaxBackoff, httputil.IsRateLimited)
}

// New builds a scorer from cfg.
func New(cfg types.ScoringConfig, logger *slog.Logger) (*Scorer, error) {
	provider, err := NewProvider(cfg, nil)
	if err != nil {
		return nil, err
	}
	scheme, err := NewScheme(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	return &Scorer{
		Provider: provider,
		Scheme:   scheme,
		Queue:    NewQueue(cfg.Queue),
		Logger:   logger,
	}, nil
}

func (s *Scorer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Ready checks the provider's credentials or model readiness.
func (s *Scorer) Ready(ctx context.Context) error {
	return s.Provider.Ready(ctx)
}

// Score evaluates c against query. Transport and provider errors are
// returned; unparseable replies are not errors and yield the scheme's
// default result.
func (s *Scorer) Score(ctx context.Context, c types.Candidate, query string) (Result, error) {
	prompt, err := s.Scheme.BuildPrompt(c, query)
	if err != nil {
		return Result{}, err
	}

	var raw string
	call := func(ctx context.Context) error {
		var err error
		raw, err = s.Provider.Complete(ctx, s.Scheme.SystemPrompt(), prompt)
		return err
	}
	if s.Queue != nil {
		err = s.Queue.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return Result{}, fmt.Errorf("scoring %s with %s: %w", c.Name, s.Provider.Name(), err)
	}

	res := s.Scheme.Parse(raw)
	if res.Corrected {
		s.logger().Warn("score corrected to decision path range",
			"candidate", c.Name, "path", res.DecisionPath,
			"reported", res.OriginalScore, "corrected", res.Score)
	}
	if res.DecisionPath == "ERROR" || res.Reasoning == "Failed to parse score from response" {
		s.logger().Debug("unparseable provider reply", "candidate", c.Name, "reply", raw)
	}
	return res, nil
}

// ResetStats clears the provider queue statistics.
func (s *Scorer) ResetStats() {
	if s.Queue != nil {
		s.Queue.ResetStats()
	}
}
