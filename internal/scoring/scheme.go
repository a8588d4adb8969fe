// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/profmatch/pkg/types"
)

// ErrUnknownScheme is returned by NewScheme for an unsupported name.
var ErrUnknownScheme = errors.New("unknown scoring scheme")

const (
	recentYear       = 2020
	maxRecentPapers  = 20
	noPublicationMsg = "No publication data available"
)

// Result is the uniform outcome of parsing one provider reply.
type Result struct {
	// Score is the match score in [0,1].
	Score     float64 `json:"score" yaml:"score"`
	Reasoning string  `json:"reasoning" yaml:"reasoning"`
	Summary   string  `json:"research_summary,omitempty" yaml:"research_summary,omitempty"`

	// Decision-tree metadata; empty for the continuous scheme.
	DecisionPath string          `json:"decision_path,omitempty" yaml:"decision_path,omitempty"`
	MatchLevel   string          `json:"match_level,omitempty" yaml:"match_level,omitempty"`
	Decisions    map[string]bool `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	ScoreRange   [2]float64      `json:"score_range,omitempty" yaml:"score_range,omitempty"`

	// Corrected is set when the reported score fell outside the range its
	// decision path allows and was replaced by the range midpoint.
	Corrected     bool    `json:"score_corrected,omitempty" yaml:"score_corrected,omitempty"`
	OriginalScore float64 `json:"original_score,omitempty" yaml:"original_score,omitempty"`
}

// Apply copies the result onto c.
func (r Result) Apply(c *types.Candidate) {
	c.MatchScore = r.Score
	c.MatchReasoning = r.Reasoning
	c.ResearchSummary = r.Summary
	c.DecisionPath = r.DecisionPath
	c.MatchLevel = r.MatchLevel
	c.ScoreCorrected = r.Corrected
}

// Scheme builds the prompt for a candidate and parses the reply.
type Scheme interface {
	Name() string
	SystemPrompt() string
	BuildPrompt(c types.Candidate, query string) (string, error)
	Parse(raw string) Result
}

// NewScheme returns the scheme with the given name: "continuous" (default)
// or "decision-tree".
func NewScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "continuous", "basic", "original":
		return Continuous{}, nil
	case "decision-tree", "decision_tree", "tree":
		return DecisionTree{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// promptData is the template input shared by both schemes.
type promptData struct {
	Name         string
	Affiliation  string
	Areas        string
	Publications string
	Query        string
}

func newPromptData(c types.Candidate, query string) promptData {
	return promptData{
		Name:         c.Name,
		Affiliation:  c.Affiliation,
		Areas:        strings.Join(c.Areas, ", "),
		Publications: recentPublications(c),
		Query:        query,
	}
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// recentPublications lists the candidate's papers from 2020 on (first 20,
// "title (venue, year)"). Without a paper list it falls back to the
// histogram cells from 2020 on ("area (year): N papers").
func recentPublications(c types.Candidate) string {
	var lines []string
	for _, p := range c.PaperList {
		if p.Year < recentYear {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%s, %d)", p.Title, p.Venue, p.Year))
		if len(lines) == maxRecentPapers {
			break
		}
	}
	if len(lines) == 0 {
		for _, e := range c.Publications.Entries() {
			if e.Year >= recentYear && e.Count > 0 {
				lines = append(lines, fmt.Sprintf("%s (%d): %s papers", e.Area, e.Year, strconv.FormatFloat(e.Count, 'f', -1, 64)))
			}
		}
	}
	if len(lines) == 0 {
		return noPublicationMsg
	}
	return strings.Join(lines, "\n")
}

var (
	fencePattern      = regexp.MustCompile("```(?:json|JSON)?\\s*")
	doubledKeyQuotes  = regexp.MustCompile(`""(\w+)"\s*:`)
	trailingCommas    = regexp.MustCompile(`,(\s*[}\]])`)
	scoreFieldPattern = regexp.MustCompile(`(?i)score["']?[:\s]+([0-9.]+)`)
)

func stripFences(s string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
}

// errNoObject is returned by firstObject when s holds no "{".
var errNoObject = errors.New("no JSON object")

// firstObject returns the first well-formed JSON object in s, trying each
// "{" in turn after repairJSON. Text after the object is ignored. When no
// candidate decodes, the error from the first attempt is returned.
func firstObject(s string) (json.RawMessage, error) {
	var firstErr error
	for i := strings.IndexByte(s, '{'); i >= 0; {
		var obj json.RawMessage
		err := json.NewDecoder(strings.NewReader(repairJSON(s[i:]))).Decode(&obj)
		if err == nil {
			return obj, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		next := strings.IndexByte(s[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	if firstErr == nil {
		return nil, errNoObject
	}
	return nil, firstErr
}

// repairJSON fixes doubled quotes before keys and trailing commas.
func repairJSON(s string) string {
	s = doubledKeyQuotes.ReplaceAllString(s, `"$1":`)
	return trailingCommas.ReplaceAllString(s, "$1")
}

// number accepts a JSON number or a numeric string.
type number struct {
	value float64
	ok    bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		n.value, n.ok = x, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			n.value, n.ok = f, true
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
