// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report ranks evaluated candidates and writes them as a table,
// JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/profmatch/internal/evaluate"
	"github.com/pdiddy/profmatch/pkg/types"
)

// Report is the document written by FormatJSON and FormatYAML.
type Report struct {
	RunID     string            `json:"run_id" yaml:"run_id"`
	Query     string            `json:"query" yaml:"query"`
	State     string            `json:"state" yaml:"state"`
	Threshold float64           `json:"threshold" yaml:"threshold"`
	Stats     evaluate.Stats    `json:"stats" yaml:"stats"`
	Matches   []types.Candidate `json:"matches" yaml:"matches"`
}

// New builds a report from a run outcome, keeping the ranked matches.
// With all set every result is kept, not only the matches.
func New(out evaluate.Outcome, threshold float64, all bool) Report {
	kept := out.Results
	if !all {
		kept = out.Matches(threshold)
	}
	return Report{
		RunID:     out.RunID,
		Query:     out.Query,
		State:     out.State.String(),
		Threshold: threshold,
		Stats:     out.Stats,
		Matches:   Rank(kept),
	}
}

// Rank returns a copy of cs sorted by score descending, then name.
func Rank(cs []types.Candidate) []types.Candidate {
	out := append([]types.Candidate(nil), cs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FormatTable writes the report as a human-readable table to w.
func FormatTable(r Report, w io.Writer) {
	if len(r.Matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-28s  %-32s  %-6s  %-14s  %s\n",
		"Rank", "Name", "Affiliation", "Score", "Level", "Reasoning")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, c := range r.Matches {
		level := c.MatchLevel
		if c.ScoreCorrected {
			level += "*"
		}
		fmt.Fprintf(w, "%-4d  %-28s  %-32s  %-6.2f  %-14s  %s\n",
			i+1, truncate(c.Name, 28), truncate(c.Affiliation, 32), c.MatchScore, level, truncate(oneLine(c.MatchReasoning), 40))
	}

	fmt.Fprintf(w, "\n%d matches (threshold %.2f, %d evaluated)", len(r.Matches), r.Threshold, r.Stats.Processed)
	if r.Stats.Failed > 0 {
		fmt.Fprintf(w, ", %d failed", r.Stats.Failed)
	}
	if r.State != evaluate.Completed.String() {
		fmt.Fprintf(w, " [%s]", r.State)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the report as indented JSON to w.
func FormatJSON(r Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// FormatYAML writes the report as YAML to w.
func FormatYAML(r Report, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	return enc.Encode(r)
}

// Write dispatches on format: table (default), json or yaml.
func Write(r Report, format string, w io.Writer) error {
	switch strings.ToLower(format) {
	case "", "table":
		FormatTable(r, w)
		return nil
	case "json":
		return FormatJSON(r, w)
	case "yaml", "yml":
		return FormatYAML(r, w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
