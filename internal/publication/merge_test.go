// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/profmatch/pkg/types"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "dblp_jane_doe", CacheKey("Jane Doe"))
	assert.Equal(t, "dblp_jane_doe", CacheKey("  Jane \t Doe "))
	assert.Equal(t, "dblp_jose_garcia", CacheKey("José García"))
}

func TestVenueMatch(t *testing.T) {
	tests := []struct {
		upstream, local string
		want            bool
	}{
		{"CVPR", "cvpr", true},
		{"CVPR (1)", "cvpr", true},
		{"NeurIPS", "neurips", true},
		{"NIPS", "neurips", true},
		{"Advances in Neural Information Processing Systems", "neurips", true},
		{"ICCV", "cvpr", false},
		{"European Conference on Computer Vision", "eccv", true},
		{"ACM Trans. Graph.", "siggraph", false},
		{"SIGGRAPH Asia", "siggraph", true},
		{"ICML", "", false},
		{"", "icml", false},
	}
	for _, tt := range tests {
		t.Run(tt.upstream+"/"+tt.local, func(t *testing.T) {
			assert.Equal(t, tt.want, VenueMatch(tt.upstream, tt.local))
		})
	}
}

func TestSynthesize(t *testing.T) {
	h := types.Histogram{
		"icml":  {"2019": 0.5},
		"cvpr":  {"2021": 2, "2023": 0.1},
		"bogus": {"n/a": 3},
		"chi":   {"2020": 0},
	}
	papers := Synthesize("Jane Doe", h)

	require.Len(t, papers, 4)
	years := []int{papers[0].Year, papers[1].Year, papers[2].Year, papers[3].Year}
	assert.Equal(t, []int{2023, 2021, 2021, 2019}, years)
	assert.Equal(t, types.Paper{
		Title:   "Publication in CVPR 2023",
		Year:    2023,
		Venue:   "cvpr",
		Authors: []string{"Jane Doe"},
		Source:  types.SourceLocalSynthesis,
	}, papers[0])
	assert.Equal(t, "Publication in ICML 2019", papers[3].Title)

	assert.Empty(t, Synthesize("Jane Doe", nil))
}

func TestEnrich_PairsOneToOne(t *testing.T) {
	local := Synthesize("Jane Doe", types.Histogram{"cvpr": {"2022": 3}})
	up := []types.Paper{
		{Title: "Only One.", Year: 2022, Venue: "CVPR", Authors: []string{"Jane Doe", "Bob Roe"}},
		{Title: "Wrong Year.", Year: 2021, Venue: "CVPR"},
	}

	got := Enrich(local, up)
	require.Len(t, got, 3)
	assert.Equal(t, "Only One.", got[0].Title)
	assert.Equal(t, types.SourceMerged, got[0].Source)
	assert.Equal(t, []string{"Jane Doe", "Bob Roe"}, got[0].Authors)
	assert.Equal(t, "Publication in CVPR 2022", got[1].Title)
	assert.Equal(t, "Publication in CVPR 2022", got[2].Title)

	// The inputs are untouched.
	assert.Equal(t, "Publication in CVPR 2022", local[0].Title)
	got[0].Authors[0] = "changed"
	assert.Equal(t, "Jane Doe", up[0].Authors[0])
}
