// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publication

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/profmatch/internal/cache"
	"github.com/pdiddy/profmatch/internal/dblp"
	"github.com/pdiddy/profmatch/internal/httputil"
	"github.com/pdiddy/profmatch/internal/queue"
	"github.com/pdiddy/profmatch/pkg/types"
)

// --- fakes ---

type fakeSearcher struct {
	authors []dblp.Author
	err     error
	calls   atomic.Int32
}

func (f *fakeSearcher) SearchAuthors(ctx context.Context, name string) ([]dblp.Author, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.authors, nil
}

type fakeProfiles struct {
	byPID        map[string][]types.Paper
	redirects    map[string]string
	resolveCalls atomic.Int32
	fetchCalls   atomic.Int32
}

func (f *fakeProfiles) FetchByPID(ctx context.Context, pid string) ([]types.Paper, error) {
	f.fetchCalls.Add(1)
	return f.byPID[pid], nil
}

func (f *fakeProfiles) ResolveProfile(ctx context.Context, profileURL string) (string, error) {
	f.resolveCalls.Add(1)
	if to, ok := f.redirects[profileURL]; ok {
		return to, nil
	}
	return profileURL, nil
}

func upstream(n int, venue string, year int) []types.Paper {
	out := make([]types.Paper, n)
	for i := range out {
		out[i] = types.Paper{
			Title:   fmt.Sprintf("Real Paper %d", i),
			Year:    year,
			Venue:   venue,
			Authors: []string{"Jane Doe", "Co Author"},
			Source:  types.SourceUpstream,
		}
	}
	return out
}

func single(papers []types.Paper) []dblp.Author {
	return []dblp.Author{{Name: "Jane Doe", Papers: papers}}
}

func newService(s Searcher) *Service {
	return &Service{
		Upstream:  s,
		Cache:     cache.NewPaperCache(nil, cache.DBLPNamespace, types.CacheConfig{}, nil),
		Scholar:   cache.NewPaperCache(nil, cache.ScholarNamespace, types.CacheConfig{}, nil),
		Redirects: cache.NewRedirectCache(nil, types.CacheConfig{}, nil),
		Queue:     NewQueue(types.QueueConfig{MaxConcurrent: 2, MinInterval: time.Millisecond}),
		Config:    types.ReconcileConfig{EnableUpstream: true},
	}
}

var jane = types.Candidate{
	Name:        "Jane Doe",
	Affiliation: "Stanford University",
	Publications: types.Histogram{
		"cvpr": {"2023": 1.5, "2022": 1},
		"icml": {"2021": 0.2},
	},
}

// --- Reconcile levels ---

func TestReconcile_UpstreamDirect(t *testing.T) {
	f := &fakeSearcher{authors: single(upstream(25, "CVPR", 2024))}
	s := newService(f)

	res, err := s.Reconcile(context.Background(), jane)
	require.NoError(t, err)
	assert.Equal(t, QualityUpstream, res.Quality)
	assert.Equal(t, []types.PaperSource{types.SourceUpstream}, res.Sources)
	assert.Len(t, res.Papers, DefaultMaxPapers)
	assert.Equal(t, "Real Paper 0", res.Papers[0].Title)

	// Second lookup is served from the DBLP cache.
	res, err = s.Reconcile(context.Background(), jane)
	require.NoError(t, err)
	assert.Equal(t, QualityUpstream, res.Quality)
	assert.Equal(t, types.SourceCacheHit, res.Papers[0].Source)
	assert.Equal(t, []types.PaperSource{types.SourceCacheHit}, res.Sources)
	assert.Equal(t, int32(1), f.calls.Load())

	c := s.Counters()
	assert.Equal(t, int64(2), c.Upstream)
	assert.Equal(t, int64(1), c.CacheHits)
}

func TestReconcile_UpstreamMergedWithHistogram(t *testing.T) {
	papers := []types.Paper{
		{Title: "Vision A.", Year: 2023, Venue: "CVPR", Authors: []string{"Jane Doe", "Bob Roe"}},
		{Title: "Vision B.", Year: 2023, Venue: "CVPR", Authors: []string{"Jane Doe"}},
		{Title: "Kernels.", Year: 2021, Venue: "International Conference on Machine Learning"},
	}
	papers = append(papers, upstream(5, "OTHER", 2010)...)
	s := newService(&fakeSearcher{authors: single(papers)})

	res, err := s.Reconcile(context.Background(), jane)
	require.NoError(t, err)
	assert.Equal(t, QualityMerged, res.Quality)
	assert.Equal(t, []types.PaperSource{types.SourceLocalSynthesis, types.SourceUpstream}, res.Sources)

	require.Len(t, res.Papers, 4)
	assert.Equal(t, types.Paper{Title: "Vision A.", Year: 2023, Venue: "cvpr", Authors: []string{"Jane Doe", "Bob Roe"}, Source: types.SourceMerged}, res.Papers[0])
	assert.Equal(t, "Vision B.", res.Papers[1].Title)
	assert.Equal(t, types.Paper{Title: "Publication in CVPR 2022", Year: 2022, Venue: "cvpr", Authors: []string{"Jane Doe"}, Source: types.SourceLocalSynthesis}, res.Papers[2])
	assert.Equal(t, "Kernels.", res.Papers[3].Title)
	assert.Equal(t, []string{"Jane Doe"}, res.Papers[3].Authors, "upstream without authors keeps local authors")
	assert.Equal(t, int64(1), s.Counters().Merged)
}

func TestReconcile_MergeWithoutHistogramUsesUpstream(t *testing.T) {
	s := newService(&fakeSearcher{authors: single(upstream(7, "CVPR", 2022))})

	res, err := s.Reconcile(context.Background(), types.Candidate{Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, QualityMerged, res.Quality)
	assert.Len(t, res.Papers, 7)
	assert.Equal(t, "Real Paper 0", res.Papers[0].Title)
	assert.Equal(t, []types.PaperSource{types.SourceLocalSynthesis, types.SourceUpstream}, res.Sources)

	res, err = s.Reconcile(context.Background(), types.Candidate{Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, []types.PaperSource{types.SourceLocalSynthesis, types.SourceCacheHit}, res.Sources)
}

func TestReconcile_ScholarCache(t *testing.T) {
	s := newService(&fakeSearcher{authors: single(upstream(3, "CVPR", 2024))})
	s.Scholar.Set(cache.ScholarKey("abc"), upstream(12, "NeurIPS", 2023))

	c := jane
	c.ScholarID = "abc"
	res, err := s.Reconcile(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, QualityScholar, res.Quality)
	assert.Equal(t, []types.PaperSource{types.SourceCacheHit}, res.Sources)
	require.Len(t, res.Papers, 12)
	for _, p := range res.Papers {
		assert.Equal(t, types.SourceCacheHit, p.Source)
	}
}

func TestReconcile_ScholarCacheViaRedirect(t *testing.T) {
	s := newService(nil)
	s.Redirects.Set("https://dblp.org/pers/hd/d/Doe:Jane", "https://dblp.org/pid/01/2345.html")
	s.Scholar.Set(cache.ScholarKey("01/2345"), upstream(10, "ICLR", 2024))

	res, err := s.Reconcile(context.Background(), types.Candidate{
		Name: "Jane Doe",
		DBLP: "https://dblp.org/pers/hd/d/Doe:Jane",
	})
	require.NoError(t, err)
	assert.Equal(t, QualityScholar, res.Quality)
	assert.Len(t, res.Papers, 10)
}

func TestReconcile_SmallScholarCacheFallsThrough(t *testing.T) {
	s := newService(&fakeSearcher{})
	s.Scholar.Set(cache.ScholarKey("abc"), upstream(9, "CVPR", 2023))

	c := jane
	c.ScholarID = "abc"
	res, err := s.Reconcile(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, QualitySynthesis, res.Quality)
	assert.Equal(t, []types.PaperSource{types.SourceLocalSynthesis}, res.Sources)
	assert.Len(t, res.Papers, 4)
}

func TestReconcile_NoData(t *testing.T) {
	s := newService(&fakeSearcher{})

	res, err := s.Reconcile(context.Background(), types.Candidate{Name: "Nobody"})
	require.NoError(t, err)
	assert.Equal(t, QualityNone, res.Quality)
	assert.Empty(t, res.Papers)
	assert.Empty(t, res.Sources)
	assert.Equal(t, int64(1), s.Counters().Empty)
}

func TestReconcile_UpstreamDisabled(t *testing.T) {
	f := &fakeSearcher{authors: single(upstream(30, "CVPR", 2024))}
	s := newService(f)
	s.Config.EnableUpstream = false

	res, err := s.Reconcile(context.Background(), jane)
	require.NoError(t, err)
	assert.Equal(t, QualitySynthesis, res.Quality)
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestReconcile_MaxPapersAppliesToEveryLevel(t *testing.T) {
	s := newService(&fakeSearcher{})
	s.Config.MaxPapers = 2

	res, err := s.Reconcile(context.Background(), jane)
	require.NoError(t, err)
	assert.Equal(t, QualitySynthesis, res.Quality)
	assert.Len(t, res.Papers, 2)
}

func TestReconcile_UpstreamFailureFallsBack(t *testing.T) {
	s := newService(&fakeSearcher{err: &httputil.StatusError{Service: "DBLP", Code: http.StatusBadGateway}})

	res, err := s.Reconcile(context.Background(), jane)
	require.NoError(t, err)
	assert.Equal(t, QualitySynthesis, res.Quality)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "dblp", res.Errors[0].Source)
	assert.Contains(t, res.Errors[0].Error, "HTTP 502")
	assert.Equal(t, int64(1), s.Counters().UpstreamErrors)
	assert.Equal(t, int64(0), s.Counters().Throttled)
}

func TestReconcile_ThrottledFeedsBackoff(t *testing.T) {
	s := newService(&fakeSearcher{err: &httputil.StatusError{Service: "DBLP", Code: http.StatusTooManyRequests}})

	res, err := s.Reconcile(context.Background(), jane)
	require.NoError(t, err)
	assert.Equal(t, QualitySynthesis, res.Quality)
	assert.Equal(t, int64(1), s.Counters().Throttled)
	assert.Equal(t, 1, s.Queue.Consecutive())

	s.ResetStats()
	assert.Equal(t, Counters{}, s.Counters())
}

func TestReconcile_Cancelled(t *testing.T) {
	f := &fakeSearcher{authors: single(upstream(20, "CVPR", 2024))}
	s := newService(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Reconcile(ctx, jane)
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestReconcile_AffiliationPicksAuthorGroup(t *testing.T) {
	authors := []dblp.Author{
		{Name: "Jane Doe", Papers: upstream(20, "CVPR", 2024)},
		{Name: "Jane Doe 0001", Affiliation: "Stanford", Papers: upstream(16, "ICML", 2023)},
	}
	s := newService(&fakeSearcher{authors: authors})

	res, err := s.Reconcile(context.Background(), jane)
	require.NoError(t, err)
	require.Len(t, res.Papers, 16)
	assert.Equal(t, "ICML", res.Papers[0].Venue)

	other := newService(&fakeSearcher{authors: authors})
	res, err = other.Reconcile(context.Background(), types.Candidate{Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, "CVPR", res.Papers[0].Venue, "largest group without an affiliation")
}

func TestReconcile_DoesNotMutateCandidate(t *testing.T) {
	s := newService(&fakeSearcher{authors: single(upstream(20, "CVPR", 2024))})
	c := jane.Clone()
	_, err := s.Reconcile(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, c.PaperList)
	assert.Empty(t, c.Sources)
}

// --- Warm ---

func TestWarm_ResolvesRecordsAndStores(t *testing.T) {
	const old = "https://dblp.org/pers/hd/d/Doe:Jane"
	p := &fakeProfiles{
		byPID:     map[string][]types.Paper{"01/2345": upstream(35, "CVPR", 2024)},
		redirects: map[string]string{old: "https://dblp.org/pid/01/2345.html"},
	}
	s := newService(nil)
	s.Profiles = p

	c := types.Candidate{Name: "Jane Doe", ScholarID: "abc", DBLP: old}
	n, err := s.Warm(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, cache.MaxCachedPapers, n)

	got, ok := s.Scholar.Get(cache.ScholarKey("abc"))
	require.True(t, ok)
	assert.Len(t, got, cache.MaxCachedPapers)

	target, ok := s.Redirects.Get(old)
	require.True(t, ok)
	assert.Equal(t, "https://dblp.org/pid/01/2345.html", target)

	_, err = s.Warm(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.resolveCalls.Load(), "recorded redirect skips resolution")
	assert.Equal(t, int32(2), p.fetchCalls.Load())

	res, err := s.Reconcile(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, QualityScholar, res.Quality)
}

func TestWarm_KeysByPIDWithoutScholarID(t *testing.T) {
	p := &fakeProfiles{byPID: map[string][]types.Paper{"01/2345": upstream(3, "CVPR", 2024)}}
	s := newService(nil)
	s.Profiles = p

	n, err := s.Warm(context.Background(), types.Candidate{Name: "Jane Doe", DBLP: "https://dblp.org/pid/01/2345.html"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, ok := s.Scholar.Get(cache.ScholarKey("01/2345"))
	assert.True(t, ok)
	assert.Equal(t, int32(0), p.resolveCalls.Load())
}

func TestWarm_NoProfile(t *testing.T) {
	s := newService(nil)
	s.Profiles = &fakeProfiles{}

	_, err := s.Warm(context.Background(), types.Candidate{Name: "Jane Doe"})
	assert.ErrorIs(t, err, ErrNoProfile)

	_, err = s.Warm(context.Background(), types.Candidate{Name: "Jane Doe", DBLP: "https://example.org/jane"})
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestSearchUpstream_CachesByNormalizedName(t *testing.T) {
	f := &fakeSearcher{authors: single(upstream(3, "cvpr", 2023))}
	s := newService(f)
	ctx := context.Background()

	first, err := s.SearchUpstream(ctx, "Jane Doe", "")
	require.NoError(t, err)
	require.Len(t, first, 3)

	again, err := s.SearchUpstream(ctx, "  jane   DOE ", "")
	require.NoError(t, err)
	require.Len(t, again, 3)
	assert.Equal(t, types.SourceCacheHit, again[0].Source)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, int64(1), s.Counters().CacheHits)
}

func TestSearchUpstream_NoUpstream(t *testing.T) {
	s := newService(nil)
	papers, err := s.SearchUpstream(context.Background(), "Jane Doe", "")
	require.NoError(t, err)
	assert.Empty(t, papers)
}
