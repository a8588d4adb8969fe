// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"encoding/json"
	"errors"
	"strings"
	"text/template"

	"github.com/pdiddy/profmatch/pkg/types"
)

const decisionTreeSystemPrompt = `You are an academic research evaluator using a binary decision tree methodology.

Your task is to answer YES/NO questions objectively to determine research alignment.

CRITICAL RULES:
1. Each question has a clear YES or NO answer - avoid ambiguity
2. Base your answers ONLY on the provided data (publication areas, counts, years)
3. Follow the decision tree logic strictly - previous answers determine which questions apply
4. The decision path automatically determines the score range
5. Be consistent - same facts should always lead to same decisions

Think systematically: read the data carefully, answer each question based on objective criteria, and let the decision tree determine the score.`

var decisionTreePromptTmpl = template.Must(template.New("decision-tree").Parse(`
Professor: {{.Name}}
Institution: {{.Affiliation}}
Research Areas: {{.Areas}}
Recent Publications (2020-2025):
{{.Publications}}

Target Research Direction:
{{.Query}}

TASK 1: Answer YES/NO questions to evaluate research alignment.

QUESTION 1: Is the professor's PRIMARY research area directly related to the target direction?
- Answer YES if: The main research area explicitly matches or is central to the target
- Answer NO if: The main research area is different, though may have some overlap

[If Q1 = YES, continue to Q2]
QUESTION 2: Does the professor have RECENT publications (2024-2025) in this direction?
- Answer YES if: Has 2 or more papers in 2024-2025
- Answer NO if: Has 0-1 papers in 2024-2025, or only older papers

[If Q2 = YES, continue to Q3]
QUESTION 3: Is this direction a MAJOR focus (50%+ of their work)?
- Answer YES if: More than half of their publications are in this area
- Answer NO if: Less than half of their publications are in this area

[If Q1 = NO, continue to Q4]
QUESTION 4: Is the professor's research SIGNIFICANTLY related to the target?
- Answer YES if: Clear overlap in techniques, methods, or applications
- Answer NO if: Only loosely related or tangential

[If Q4 = YES, continue to Q5]
QUESTION 5: Does the professor have ANY publications in this direction?
- Answer YES if: Has 1 or more relevant papers
- Answer NO if: No directly relevant papers found

SCORING LOGIC (auto-determined by answers):
- Q1=YES, Q2=YES, Q3=YES → Score: 0.90-1.00 (Perfect Match)
- Q1=YES, Q2=YES, Q3=NO  → Score: 0.75-0.89 (Strong Match)
- Q1=YES, Q2=NO          → Score: 0.60-0.74 (Good Match, but not recent)
- Q1=NO, Q4=YES, Q5=YES  → Score: 0.40-0.59 (Moderate Match)
- Q1=NO, Q4=YES, Q5=NO   → Score: 0.20-0.39 (Weak Match)
- Q1=NO, Q4=NO           → Score: 0.00-0.19 (No Match)

TASK 2: Generate a PRECISE research direction summary for this professor.

RESEARCH SUMMARY GUIDELINES:
- Be SPECIFIC and DETAILED (not vague like "machine learning" or "computer vision")
- Include concrete techniques, methods, and applications
- Focus on their ACTUAL research topics based on publication areas
- Use technical terminology
- Format as a flowing paragraph (NOT a list)
- Length: 30-50 words
- Language: English only

REQUIRED OUTPUT FORMAT (JSON only):
{
  "q1": "YES|NO",
  "q2": "YES|NO|N/A",
  "q3": "YES|NO|N/A",
  "q4": "YES|NO|N/A",
  "q5": "YES|NO|N/A",
  "decision_path": "Q1=YES→Q2=YES→Q3=NO",
  "score": 0.XX,
  "reasoning": "Brief explanation of each decision (2-3 sentences max)",
  "research_summary": "Precise research direction summary as described above (30-50 words)"
}

CRITICAL RULES:
- Answer each question based ONLY on the facts provided
- Use N/A for questions that don't apply based on previous answers
- The score MUST match the decision path
- Be objective and consistent
`))

// Branch is one leaf of the decision tree.
type Branch struct {
	Path  string
	Level string
	Min   float64
	Max   float64
}

// Midpoint is the score used when a reported score falls outside the branch.
func (b Branch) Midpoint() float64 { return (b.Min + b.Max) / 2 }

// Contains reports whether score lies in [Min, Max].
func (b Branch) Contains(score float64) bool { return score >= b.Min && score <= b.Max }

// Branches lists the six leaves of the tree.
var (
	PerfectMatch  = Branch{"Q1=YES→Q2=YES→Q3=YES", "Perfect Match", 0.90, 1.00}
	StrongMatch   = Branch{"Q1=YES→Q2=YES→Q3=NO", "Strong Match", 0.75, 0.89}
	GoodMatch     = Branch{"Q1=YES→Q2=NO", "Good Match", 0.60, 0.74}
	ModerateMatch = Branch{"Q1=NO→Q4=YES→Q5=YES", "Moderate Match", 0.40, 0.59}
	WeakMatch     = Branch{"Q1=NO→Q4=YES→Q5=NO", "Weak Match", 0.20, 0.39}
	NoMatch       = Branch{"Q1=NO→Q4=NO", "No Match", 0.00, 0.19}
)

// Decide walks the tree for answers q1..q5. Answers to questions that do
// not apply on the chosen path are ignored.
func Decide(q1, q2, q3, q4, q5 bool) Branch {
	switch {
	case q1 && q2 && q3:
		return PerfectMatch
	case q1 && q2:
		return StrongMatch
	case q1:
		return GoodMatch
	case q4 && q5:
		return ModerateMatch
	case q4:
		return WeakMatch
	default:
		return NoMatch
	}
}

// DecisionTree asks fixed YES/NO questions whose answers bound the score.
type DecisionTree struct{}

// Name returns the scheme identifier.
func (DecisionTree) Name() string { return "decision-tree" }

// SystemPrompt returns the evaluator instructions.
func (DecisionTree) SystemPrompt() string { return decisionTreeSystemPrompt }

// BuildPrompt renders the user prompt for c.
func (DecisionTree) BuildPrompt(c types.Candidate, query string) (string, error) {
	return render(decisionTreePromptTmpl, newPromptData(c, query))
}

// Parse reads a decision-tree reply with ParseDecisionTree.
func (DecisionTree) Parse(raw string) Result { return ParseDecisionTree(raw) }

type treeReply struct {
	Q1              string `json:"q1"`
	Q2              string `json:"q2"`
	Q3              string `json:"q3"`
	Q4              string `json:"q4"`
	Q5              string `json:"q5"`
	Score           number `json:"score"`
	Reasoning       string `json:"reasoning"`
	ResearchSummary string `json:"research_summary"`
}

func yes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "YES")
}

// ParseDecisionTree reads the YES/NO answers from a reply and recomputes
// the branch. The branch decides the score: a reported score outside the
// branch range is replaced by the range midpoint and the result is marked
// Corrected. Doubled key quotes and trailing commas are repaired before
// parsing.
func ParseDecisionTree(raw string) Result {
	obj, err := firstObject(stripFences(raw))
	if errors.Is(err, errNoObject) {
		return Result{
			Reasoning:    "Failed to parse response - no JSON found",
			Summary:      "Unable to generate research summary",
			DecisionPath: "ERROR",
			Decisions:    map[string]bool{},
		}
	}

	var reply treeReply
	if err == nil {
		err = json.Unmarshal(obj, &reply)
	}
	if err != nil {
		return Result{
			Reasoning:    "Error parsing response: " + err.Error(),
			Summary:      "Error generating research summary",
			DecisionPath: "ERROR",
			Decisions:    map[string]bool{},
		}
	}

	q1, q2, q3, q4, q5 := yes(reply.Q1), yes(reply.Q2), yes(reply.Q3), yes(reply.Q4), yes(reply.Q5)
	branch := Decide(q1, q2, q3, q4, q5)

	reported := reply.Score.value
	score := reported
	corrected := false
	if !branch.Contains(score) {
		score = branch.Midpoint()
		corrected = true
	}

	summary := reply.ResearchSummary
	if summary == "" {
		summary = "Research summary not available"
	}

	return Result{
		Score:         clamp01(score),
		Reasoning:     reply.Reasoning,
		Summary:       summary,
		DecisionPath:  branch.Path,
		MatchLevel:    branch.Level,
		Decisions:     map[string]bool{"q1": q1, "q2": q2, "q3": q3, "q4": q4, "q5": q5},
		ScoreRange:    [2]float64{branch.Min, branch.Max},
		Corrected:     corrected,
		OriginalScore: reported,
	}
}
