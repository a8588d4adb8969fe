// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"context"
	"fmt"
	"net/url"
)

var geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls generateContent. The API has no separate system turn here,
// so the system prompt is prepended to the user prompt.
type Gemini struct {
	Options
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig geminiGeneration `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGeneration struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Name returns the provider identifier.
func (g *Gemini) Name() string { return "gemini" }

// Ready checks that an API key is configured.
func (g *Gemini) Ready(ctx context.Context) error {
	return g.requireKey("Gemini")
}

// Complete calls models/<model>:generateContent.
func (g *Gemini) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if err := g.requireKey("Gemini"); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL(geminiBaseURL), g.model("gemini-pro"), url.QueryEscape(g.APIKey))

	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: systemPrompt + "\n\n" + prompt}}}},
		GenerationConfig: geminiGeneration{
			Temperature:     g.Temperature,
			MaxOutputTokens: g.maxTokens(),
		},
	}

	var resp geminiResponse
	if err := g.postJSON(ctx, "Gemini", endpoint, nil, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini API returned no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
