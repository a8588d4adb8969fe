// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// Mock is a deterministic offline provider for dry runs and tests. With
// Respond set it returns whatever Respond returns; otherwise it answers
// in both the continuous and decision-tree shapes with a score derived
// from a hash of the prompt.
type Mock struct {
	Respond func(systemPrompt, prompt string) (string, error)

	mu    sync.Mutex
	calls int
}

// Name returns the provider identifier.
func (m *Mock) Name() string { return "mock" }

// Ready always succeeds.
func (m *Mock) Ready(ctx context.Context) error { return nil }

// Calls returns the number of Complete calls so far.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete returns the canned or derived reply.
func (m *Mock) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Respond != nil {
		return m.Respond(systemPrompt, prompt)
	}

	h := fnv.New32a()
	h.Write([]byte(prompt))
	score := float64(h.Sum32()%101) / 100

	yes := func(b bool) string {
		if b {
			return "YES"
		}
		return "NO"
	}
	q1 := score >= 0.6
	return fmt.Sprintf(`{"score": %.2f, "reasoning": "offline mock evaluation", "q1": %q, "q2": %q, "q3": %q, "q4": %q, "q5": %q, "research_summary": "mock summary"}`,
		score, yes(q1), yes(score >= 0.75), yes(score >= 0.9), yes(!q1 && score >= 0.2), yes(!q1 && score >= 0.4)), nil
}
