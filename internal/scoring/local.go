// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/profmatch/internal/httputil"
)

var localBaseURL = "http://localhost:8000"

// Local talks to a self-hosted model server that exposes GET /health and
// an OpenAI-compatible /v1/chat/completions endpoint. No key is required.
type Local struct {
	Options
}

// Health is the reply of the local server's /health endpoint.
type Health struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	CurrentModel string `json:"current_model"`
}

// Name returns the provider identifier.
func (l *Local) Name() string { return "local" }

// CheckHealth queries /health.
func (l *Local) CheckHealth(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL(localBaseURL)+"/health", nil)
	if err != nil {
		return Health{}, fmt.Errorf("creating request: %w", err)
	}
	resp, err := l.client().Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("local model health check: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckResponse("local model server", resp); err != nil {
		return Health{}, err
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("decoding health response: %w", err)
	}
	return h, nil
}

// Ready reports ErrModelNotReady unless the server has a model loaded.
func (l *Local) Ready(ctx context.Context) error {
	h, err := l.CheckHealth(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelNotReady, err)
	}
	if !h.ModelLoaded {
		return fmt.Errorf("%w: server status %q", ErrModelNotReady, h.Status)
	}
	return nil
}

// Complete sends the prompts to the server's chat completions endpoint.
// An empty Model lets the server use its loaded model.
func (l *Local) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return chatCompletion(ctx, l.Options, "local model server", l.baseURL(localBaseURL)+"/v1", l.Model, nil, systemPrompt, prompt)
}
