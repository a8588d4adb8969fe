// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"context"
	"fmt"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const defaultClaudeModel = "claude-3-sonnet-20240229"

// Claude calls the Anthropic Messages API. The system prompt goes in the
// top-level system field.
type Claude struct {
	Options
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Name returns the provider identifier.
func (c *Claude) Name() string { return "claude" }

// Ready checks that an API key is configured.
func (c *Claude) Ready(ctx context.Context) error {
	return c.requireKey("Claude")
}

// Complete calls the Messages API and returns the first text block.
func (c *Claude) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if err := c.requireKey("Claude"); err != nil {
		return "", err
	}

	url := claudeAPIURL
	if c.BaseURL != "" {
		url = c.baseURL("") + "/messages"
	}

	reqBody := claudeRequest{
		Model:     c.model(defaultClaudeModel),
		MaxTokens: c.maxTokens(),
		System:    systemPrompt,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.Temperature,
	}
	headers := map[string]string{
		"x-api-key":         c.APIKey,
		"anthropic-version": "2023-06-01",
	}

	var cResp claudeResponse
	if err := c.postJSON(ctx, "Claude", url, headers, reqBody, &cResp); err != nil {
		return "", err
	}

	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Claude API response")
}
