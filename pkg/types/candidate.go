// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"strconv"
)

// Histogram is the legacy publication histogram: area or venue code → year → fractional count.
// Years are kept as strings so the JSON shape of the input files round-trips.
type Histogram map[string]map[string]float64

// HistogramEntry is one (area, year, count) cell of a Histogram.
type HistogramEntry struct {
	Area  string
	Year  int
	Count float64
}

// Entries returns the histogram cells in a stable order (area ascending,
// year ascending). Cells with an unparseable year are skipped.
func (h Histogram) Entries() []HistogramEntry {
	areas := make([]string, 0, len(h))
	for a := range h {
		areas = append(areas, a)
	}
	sort.Strings(areas)

	var out []HistogramEntry
	for _, a := range areas {
		years := make([]string, 0, len(h[a]))
		for y := range h[a] {
			years = append(years, y)
		}
		sort.Strings(years)
		for _, y := range years {
			year, err := strconv.Atoi(y)
			if err != nil {
				continue
			}
			out = append(out, HistogramEntry{Area: a, Year: year, Count: h[a][y]})
		}
	}
	return out
}

// Candidate is one researcher being evaluated against the target query.
// The pipeline treats it as a value: enrichment and scoring fill in the
// optional fields on a copy, never on the caller's record.
type Candidate struct {
	Name         string    `json:"name" yaml:"name"`
	Affiliation  string    `json:"affiliation" yaml:"affiliation"`
	Areas        []string  `json:"areas" yaml:"areas"`
	Publications Histogram `json:"publications,omitempty" yaml:"publications,omitempty"`

	// ScholarID is the alternate profile identifier used by the scholar cache.
	ScholarID string `json:"scholarid,omitempty" yaml:"scholarid,omitempty"`

	// DBLP is the candidate's DBLP profile URL, when known.
	DBLP string `json:"dblp,omitempty" yaml:"dblp,omitempty"`

	// Set by reconciliation.
	PaperList   []Paper       `json:"paperList,omitempty" yaml:"paper_list,omitempty"`
	Sources     []PaperSource `json:"sources,omitempty" yaml:"sources,omitempty"`
	DataQuality int           `json:"dataQuality,omitempty" yaml:"data_quality,omitempty"`

	// Set by the evaluation run.
	MatchScore      float64 `json:"matchScore" yaml:"match_score"`
	MatchReasoning  string  `json:"matchReasoning,omitempty" yaml:"match_reasoning,omitempty"`
	ResearchSummary string  `json:"researchSummary,omitempty" yaml:"research_summary,omitempty"`
	DecisionPath    string  `json:"decisionPath,omitempty" yaml:"decision_path,omitempty"`
	MatchLevel      string  `json:"matchLevel,omitempty" yaml:"match_level,omitempty"`
	ScoreCorrected  bool    `json:"scoreCorrected,omitempty" yaml:"score_corrected,omitempty"`
}

// Clone returns a copy whose slices can be modified without touching c.
// The histogram is shared; nothing in the pipeline writes to it.
func (c Candidate) Clone() Candidate {
	out := c
	out.Areas = append([]string(nil), c.Areas...)
	out.PaperList = append([]Paper(nil), c.PaperList...)
	out.Sources = append([]PaperSource(nil), c.Sources...)
	return out
}
