// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publication

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/pdiddy/profmatch/internal/affiliation"
	"github.com/pdiddy/profmatch/pkg/types"
)

// venueAliases maps a local venue code to substrings that identify it in
// upstream venue names.
var venueAliases = map[string][]string{
	"siggraph": {"siggraph", "sig graph"},
	"neurips":  {"nips", "neurips", "neural information processing"},
	"icml":     {"icml", "international conference on machine learning"},
	"iclr":     {"iclr", "international conference on learning representations"},
	"cvpr":     {"cvpr", "computer vision and pattern recognition"},
	"eccv":     {"eccv", "european conference on computer vision"},
	"iccv":     {"iccv", "international conference on computer vision"},
}

// CacheKey is the DBLP cache key for a candidate name:
// "dblp_" + the folded name with whitespace runs replaced by "_".
func CacheKey(name string) string {
	return "dblp_" + strings.Join(strings.Fields(affiliation.Fold(name)), "_")
}

// Synthesize builds placeholder papers from a histogram: ceil(count)
// records per (venue, year) cell, newest first.
func Synthesize(name string, h types.Histogram) []types.Paper {
	var papers []types.Paper
	for _, e := range h.Entries() {
		n := int(math.Ceil(e.Count))
		for range n {
			papers = append(papers, types.Paper{
				Title:   fmt.Sprintf("Publication in %s %d", strings.ToUpper(e.Area), e.Year),
				Year:    e.Year,
				Venue:   e.Area,
				Authors: []string{name},
				Source:  types.SourceLocalSynthesis,
			})
		}
	}
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].Year > papers[j].Year
	})
	return papers
}

// Enrich replaces placeholder titles with real upstream ones. A local paper
// pairs with the first unused upstream paper of the same year whose venue
// matches; each upstream paper is used at most once. Paired records take
// the upstream title, and its authors when it has any.
func Enrich(local, upstream []types.Paper) []types.Paper {
	used := make([]bool, len(upstream))
	out := make([]types.Paper, len(local))
	for i, lp := range local {
		out[i] = lp
		for j, up := range upstream {
			if used[j] || up.Title == "" || up.Year != lp.Year || !VenueMatch(up.Venue, lp.Venue) {
				continue
			}
			used[j] = true
			out[i].Title = up.Title
			if len(up.Authors) > 0 {
				out[i].Authors = slices.Clone(up.Authors)
			}
			out[i].Source = types.SourceMerged
			break
		}
	}
	return out
}

// VenueMatch reports whether an upstream venue name and a local venue code
// refer to the same venue: either contains the other (case-insensitive), or
// the code is a known alias whose variant appears in the upstream name.
func VenueMatch(upstream, local string) bool {
	if upstream == "" || local == "" {
		return false
	}
	u, l := strings.ToLower(upstream), strings.ToLower(local)
	if strings.Contains(u, l) || strings.Contains(l, u) {
		return true
	}
	for _, v := range venueAliases[l] {
		if strings.Contains(u, v) {
			return true
		}
	}
	return false
}

func truncate(papers []types.Paper, n int) []types.Paper {
	if len(papers) > n {
		papers = papers[:n]
	}
	return slices.Clone(papers)
}

func withSource(papers []types.Paper, src types.PaperSource) []types.Paper {
	out := make([]types.Paper, len(papers))
	for i, p := range papers {
		p.Authors = slices.Clone(p.Authors)
		p.Source = src
		out[i] = p
	}
	return out
}
