// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"encoding/json"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/profmatch/pkg/types"
)

const continuousSystemPrompt = `You are an academic research matching assistant. Your task is to evaluate how well a professor's research profile matches a given research direction. Be objective and consider:
1. Research area alignment
2. Recent publication activity
3. Specific topics and techniques
4. Research impact and focus

Provide accurate scores and concise reasoning.`

var continuousPromptTmpl = template.Must(template.New("continuous").Parse(`
Professor: {{.Name}}
Institution: {{.Affiliation}}
Research Areas: {{.Areas}}
Recent Publications (2020-2025):
{{.Publications}}

Research Direction to Match:
{{.Query}}

Task: Evaluate how well this professor's research aligns with the specified research direction.
Provide a match score between 0.0 and 1.0, where:
- 0.0-0.3: Poor match (different field or focus)
- 0.4-0.6: Moderate match (related but not core)
- 0.7-0.9: Good match (closely aligned)
- 0.9-1.0: Excellent match (perfectly aligned)

Respond with ONLY a JSON object in this format:
{
  "score": 0.X,
  "reasoning": "Brief explanation (max 100 words)"
}
`))

// Continuous asks for a direct score and free-text reasoning.
type Continuous struct{}

// Name returns the scheme identifier.
func (Continuous) Name() string { return "continuous" }

// SystemPrompt returns the evaluator instructions.
func (Continuous) SystemPrompt() string { return continuousSystemPrompt }

// BuildPrompt renders the user prompt for c.
func (Continuous) BuildPrompt(c types.Candidate, query string) (string, error) {
	return render(continuousPromptTmpl, newPromptData(c, query))
}

// Parse reads a continuous reply with ParseContinuous.
func (Continuous) Parse(raw string) Result { return ParseContinuous(raw) }

// ParseContinuous extracts the score and reasoning from a reply. It reads
// the first JSON object, then falls back to a "score: X" pattern, then to
// a zero score. Scores above 1 are taken as a 0-10 scale; the result is
// clamped to [0,1].
func ParseContinuous(raw string) Result {
	cleaned := stripFences(raw)

	if obj, err := firstObject(cleaned); err == nil {
		var parsed struct {
			Score           number `json:"score"`
			Reasoning       string `json:"reasoning"`
			ResearchSummary string `json:"research_summary"`
		}
		if err := json.Unmarshal(obj, &parsed); err == nil {
			return Result{
				Score:     scaleScore(parsed.Score.value),
				Reasoning: parsed.Reasoning,
				Summary:   parsed.ResearchSummary,
			}
		}
	}

	if m := scoreFieldPattern.FindStringSubmatch(cleaned); m != nil {
		if v, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64); err == nil {
			return Result{Score: scaleScore(v), Reasoning: strings.TrimSpace(raw)}
		}
	}

	return Result{Score: 0, Reasoning: "Failed to parse score from response"}
}

func scaleScore(v float64) float64 {
	if v > 1 {
		v /= 10
	}
	return clamp01(v)
}
