// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"log/slog"

	"github.com/pdiddy/profmatch/pkg/types"
)

// Namespaces under which the caches persist.
const (
	DBLPNamespace     = "profmatch-dblp-cache"
	ScholarNamespace  = "profmatch-scholar-cache"
	RedirectNamespace = "profmatch-redirect-cache"
)

// MaxCachedPapers bounds each cached paper list.
const MaxCachedPapers = 30

// PaperCache caches paper lists.
type PaperCache = Store[[]types.Paper]

// RedirectCache maps an original profile URL to the URL it now redirects to.
type RedirectCache = Store[string]

// CompressPapers keeps the first MaxCachedPapers papers and only their
// title, year and venue.
func CompressPapers(papers []types.Paper) []types.Paper {
	if len(papers) > MaxCachedPapers {
		papers = papers[:MaxCachedPapers]
	}
	out := make([]types.Paper, len(papers))
	for i, p := range papers {
		out[i] = types.Paper{Title: p.Title, Year: p.Year, Venue: p.Venue}
	}
	return out
}

// NewPaperCache returns a compressing paper cache persisted under namespace.
func NewPaperCache(backend Backend, namespace string, cfg types.CacheConfig, logger *slog.Logger) *PaperCache {
	return New(backend, Options[[]types.Paper]{
		Namespace: namespace,
		TTL:       cfg.TTL,
		Compress:  CompressPapers,
		Logger:    logger,
	})
}

// NewRedirectCache returns the profile redirect cache.
func NewRedirectCache(backend Backend, cfg types.CacheConfig, logger *slog.Logger) *RedirectCache {
	return New(backend, Options[string]{
		Namespace: RedirectNamespace,
		TTL:       cfg.TTL,
		Logger:    logger,
	})
}

// ScholarKey is the scholar cache key for a profile id.
func ScholarKey(scholarID string) string {
	return "papers_" + scholarID
}
