// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"context"
	"fmt"
)

// Default endpoints for the OpenAI-compatible vendors.
var (
	openAIBaseURL   = "https://api.openai.com/v1"
	deepSeekBaseURL = "https://api.deepseek.com/v1"
	groqBaseURL     = "https://api.groq.com/openai/v1"
)

// OpenAICompatible speaks the chat completions protocol with bearer auth.
// OpenAI, DeepSeek and Groq share it and differ only in endpoint and
// default model.
type OpenAICompatible struct {
	Options

	name         string
	service      string
	defaultURL   string
	defaultModel string
}

// NewOpenAI returns an OpenAI provider (default model gpt-4).
func NewOpenAI(opts Options) *OpenAICompatible {
	return &OpenAICompatible{Options: opts, name: "openai", service: "OpenAI", defaultURL: openAIBaseURL, defaultModel: "gpt-4"}
}

// NewDeepSeek returns a DeepSeek provider (default model deepseek-chat).
func NewDeepSeek(opts Options) *OpenAICompatible {
	return &OpenAICompatible{Options: opts, name: "deepseek", service: "DeepSeek", defaultURL: deepSeekBaseURL, defaultModel: "deepseek-chat"}
}

// NewGroq returns a Groq provider (default model llama-3.1-8b-instant).
func NewGroq(opts Options) *OpenAICompatible {
	return &OpenAICompatible{Options: opts, name: "groq", service: "Groq", defaultURL: groqBaseURL, defaultModel: "llama-3.1-8b-instant"}
}

// Name returns the provider identifier.
func (p *OpenAICompatible) Name() string { return p.name }

// Ready checks that an API key is configured.
func (p *OpenAICompatible) Ready(ctx context.Context) error {
	return p.requireKey(p.service)
}

// Complete sends one system and one user message.
func (p *OpenAICompatible) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if err := p.requireKey(p.service); err != nil {
		return "", err
	}
	headers := map[string]string{"Authorization": "Bearer " + p.APIKey}
	return chatCompletion(ctx, p.Options, p.service, p.baseURL(p.defaultURL), p.model(p.defaultModel), headers, systemPrompt, prompt)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func chatCompletion(ctx context.Context, o Options, service, base, model string, headers map[string]string, systemPrompt, prompt string) (string, error) {
	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: o.Temperature,
		MaxTokens:   o.maxTokens(),
	}

	var resp chatResponse
	if err := o.postJSON(ctx, service, base+"/chat/completions", headers, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s API returned no choices", service)
	}
	return resp.Choices[0].Message.Content, nil
}
