// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publication reconciles a candidate's publication list from the
// bibliographic upstream, the scholar cache and the local histogram.
//
// Reconcile tries, in order:
//
//  1. DBLP name search disambiguated by affiliation. 15 or more papers are
//     used directly; 5 to 14 are merged into the synthesized list.
//  2. The scholar cache for the candidate's alternate id (10 or more papers).
//  3. Placeholder papers synthesized from the histogram.
//  4. Nothing, with zero quality.
//
// Upstream failures other than cancellation are recorded on the result and
// fall through to the next level.
package publication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pdiddy/profmatch/internal/affiliation"
	"github.com/pdiddy/profmatch/internal/cache"
	"github.com/pdiddy/profmatch/internal/dblp"
	"github.com/pdiddy/profmatch/internal/httputil"
	"github.com/pdiddy/profmatch/internal/queue"
	"github.com/pdiddy/profmatch/pkg/types"
)

// Quality tiers reported on a Result.
const (
	QualityScholar   = 95
	QualityUpstream  = 90
	QualityMerged    = 75
	QualitySynthesis = 60
	QualityNone      = 0
)

const (
	// DefaultMaxPapers bounds the papers attached to a candidate.
	DefaultMaxPapers = 20

	upstreamDirectMin = 15
	upstreamMergeMin  = 5
	scholarMin        = 10

	defaultQueueConcurrent = 3
	defaultQueueInterval   = 500 * time.Millisecond
)

// Searcher runs an upstream name search grouped by author. *dblp.Client
// implements it.
type Searcher interface {
	SearchAuthors(ctx context.Context, name string) ([]dblp.Author, error)
}

// Profiles fetches publication lists by author id. *dblp.Client implements it.
type Profiles interface {
	FetchByPID(ctx context.Context, pid string) ([]types.Paper, error)
	ResolveProfile(ctx context.Context, profileURL string) (string, error)
}

// SourceError records a level that failed without stopping reconciliation.
type SourceError struct {
	Source string `json:"source" yaml:"source"`
	Error  string `json:"error" yaml:"error"`
}

// Result is the reconciled publication list of one candidate.
type Result struct {
	Papers  []types.Paper       `json:"papers" yaml:"papers"`
	Sources []types.PaperSource `json:"sources" yaml:"sources"`
	Errors  []SourceError       `json:"errors,omitempty" yaml:"errors,omitempty"`
	Quality int                 `json:"quality" yaml:"quality"`
}

// Counters is a snapshot of how reconciliations were resolved.
type Counters struct {
	Upstream       int64
	Merged         int64
	Scholar        int64
	Synthesized    int64
	Empty          int64
	CacheHits      int64
	UpstreamErrors int64
	Throttled      int64
}

type counters struct {
	upstream, merged, scholar, synthesized, empty atomic.Int64
	cacheHits, upstreamErrors, throttled          atomic.Int64
}

// Service reconciles publication data. All fields except Config are
// optional: a nil Upstream skips level 1, a nil cache is never consulted,
// a nil Queue runs upstream calls directly.
type Service struct {
	Upstream  Searcher
	Profiles  Profiles
	Cache     *cache.PaperCache
	Scholar   *cache.PaperCache
	Redirects *cache.RedirectCache
	Queue     *queue.Backoff
	Matcher   *affiliation.Matcher
	Config    types.ReconcileConfig
	Logger    *slog.Logger

	counters counters
}

// NewQueue builds the upstream queue from cfg (default 3 concurrent,
// 500ms apart) with a backoff on HTTP 429.
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

// New wires a service around a DBLP client and the three caches.
func New(cfg types.ReconcileConfig, client *dblp.Client, papers, scholar *cache.PaperCache, redirects *cache.RedirectCache, logger *slog.Logger) *Service {
	return &Service{
		Upstream:  client,
		Profiles:  client,
		Cache:     papers,
		Scholar:   scholar,
		Redirects: redirects,
		Queue:     NewQueue(cfg.Queue),
		Matcher:   affiliation.Default,
		Config:    cfg,
		Logger:    logger,
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) maxPapers() int {
	if s.Config.MaxPapers > 0 {
		return s.Config.MaxPapers
	}
	return DefaultMaxPapers
}

// Counters returns a snapshot of the reconciliation counters.
func (s *Service) Counters() Counters {
	c := &s.counters
	return Counters{
		Upstream:       c.upstream.Load(),
		Merged:         c.merged.Load(),
		Scholar:        c.scholar.Load(),
		Synthesized:    c.synthesized.Load(),
		Empty:          c.empty.Load(),
		CacheHits:      c.cacheHits.Load(),
		UpstreamErrors: c.upstreamErrors.Load(),
		Throttled:      c.throttled.Load(),
	}
}

// ResetStats zeroes the counters and the upstream queue statistics.
func (s *Service) ResetStats() {
	c := &s.counters
	for _, v := range []*atomic.Int64{
		&c.upstream, &c.merged, &c.scholar, &c.synthesized, &c.empty,
		&c.cacheHits, &c.upstreamErrors, &c.throttled,
	} {
		v.Store(0)
	}
	if s.Queue != nil {
		s.Queue.ResetStats()
	}
}

// Reconcile produces the publication list for c. The returned error is
// non-nil only when ctx was cancelled.
func (s *Service) Reconcile(ctx context.Context, c types.Candidate) (Result, error) {
	log := s.logger().With("candidate", c.Name)
	limit := s.maxPapers()
	var res Result

	if s.Config.EnableUpstream && s.Upstream != nil {
		papers, err := s.SearchUpstream(ctx, c.Name, c.Affiliation)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrCancelled) {
				return res, err
			}
			s.counters.upstreamErrors.Add(1)
			res.Errors = append(res.Errors, SourceError{Source: "dblp", Error: err.Error()})
			log.Warn("DBLP lookup failed, falling back", "error", err)
		}

		switch {
		case len(papers) >= upstreamDirectMin:
			s.counters.upstream.Add(1)
			res.Papers = truncate(papers, limit)
			res.Sources = []types.PaperSource{upstreamSource(papers)}
			res.Quality = QualityUpstream
			log.Debug("publications from DBLP", "papers", len(papers))
			return res, nil

		case len(papers) >= upstreamMergeMin:
			s.counters.merged.Add(1)
			merged := Enrich(Synthesize(c.Name, c.Publications), papers)
			if len(merged) == 0 {
				merged = papers
			}
			res.Papers = truncate(merged, limit)
			res.Sources = []types.PaperSource{types.SourceLocalSynthesis, upstreamSource(papers)}
			res.Quality = QualityMerged
			log.Debug("publications from DBLP merged with histogram", "upstream", len(papers), "papers", len(res.Papers))
			return res, nil

		default:
			if err == nil {
				log.Debug("DBLP data insufficient", "papers", len(papers))
			}
		}
	}

	if s.Scholar != nil {
		if id := s.profileID(c); id != "" {
			if cached, ok := s.Scholar.Get(cache.ScholarKey(id)); ok && len(cached) >= scholarMin {
				s.counters.scholar.Add(1)
				res.Papers = truncate(withSource(cached, types.SourceCacheHit), limit)
				res.Sources = []types.PaperSource{types.SourceCacheHit}
				res.Quality = QualityScholar
				log.Debug("publications from scholar cache", "papers", len(cached))
				return res, nil
			}
		}
	}

	if local := Synthesize(c.Name, c.Publications); len(local) > 0 {
		s.counters.synthesized.Add(1)
		res.Papers = truncate(local, limit)
		res.Sources = []types.PaperSource{types.SourceLocalSynthesis}
		res.Quality = QualitySynthesis
		log.Debug("publications synthesized from histogram", "papers", len(local))
		return res, nil
	}

	s.counters.empty.Add(1)
	log.Info("no publication data")
	res.Quality = QualityNone
	return res, nil
}

// upstreamSource reports SourceCacheHit when papers came from the DBLP name
// cache rather than a live search.
func upstreamSource(papers []types.Paper) types.PaperSource {
	if len(papers) > 0 && papers[0].Source == types.SourceCacheHit {
		return types.SourceCacheHit
	}
	return types.SourceUpstream
}

// SearchUpstream returns the papers of the DBLP author that best matches
// name and affiliation. The affiliation-matched group wins; without a match
// the group with the most papers is used. Results are cached under
// CacheKey(name) and a cache hit skips the upstream call.
func (s *Service) SearchUpstream(ctx context.Context, name, affil string) ([]types.Paper, error) {
	if s.Upstream == nil {
		return nil, nil
	}

	key := CacheKey(name)
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(key); ok {
			s.counters.cacheHits.Add(1)
			return withSource(cached, types.SourceCacheHit), nil
		}
	}

	var papers []types.Paper
	err := s.run(ctx, func(ctx context.Context) error {
		authors, err := s.Upstream.SearchAuthors(ctx, name)
		if err != nil {
			return err
		}
		papers = s.pick(authors, affil)
		return nil
	})
	if err != nil {
		if httputil.IsRateLimited(err) {
			s.counters.throttled.Add(1)
		}
		return nil, fmt.Errorf("searching DBLP for %s: %w", name, err)
	}

	if len(papers) > 0 && s.Cache != nil {
		s.Cache.Set(key, papers)
	}
	return papers, nil
}

func (s *Service) pick(authors []dblp.Author, affil string) []types.Paper {
	if len(authors) == 0 {
		return nil
	}
	if affil != "" {
		m := s.Matcher
		if m == nil {
			m = affiliation.Default
		}
		affs := make([]string, len(authors))
		for i, a := range authors {
			affs[i] = a.Affiliation
		}
		if i, score := m.BestMatch(affs, affil, affiliation.DefaultThreshold); i >= 0 {
			s.logger().Debug("DBLP author matched by affiliation",
				"author", authors[i].Name, "affiliation", authors[i].Affiliation, "score", score)
			return authors[i].Papers
		}
	}
	return authors[0].Papers
}

func (s *Service) run(ctx context.Context, task queue.Task) error {
	if s.Queue != nil {
		return s.Queue.Execute(ctx, task)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", queue.ErrCancelled, err)
	}
	return task(ctx)
}

// profileID is the scholar cache id for c: its ScholarID, or else the
// DBLP author id from its profile URL after applying a cached redirect.
func (s *Service) profileID(c types.Candidate) string {
	if c.ScholarID != "" {
		return c.ScholarID
	}
	if c.DBLP == "" {
		return ""
	}
	profile := c.DBLP
	if s.Redirects != nil {
		if target, ok := s.Redirects.Get(profile); ok {
			profile = target
		}
	}
	return dblp.ExtractPID(profile)
}
