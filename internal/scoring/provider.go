// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring turns an enriched candidate into a match score by calling
// an LLM provider with a scheme-specific prompt and parsing the reply.
//
// Provider (which vendor protocol to speak) and Scheme (which prompt to send
// and how to read the answer) are independent: any provider pairs with any
// scheme.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/profmatch/internal/httputil"
	"github.com/pdiddy/profmatch/pkg/types"
)

var (
	// ErrMissingCredentials is returned when a remote provider has no API key.
	ErrMissingCredentials = errors.New("missing API credentials")

	// ErrModelNotReady is returned when the local model server has no model loaded.
	ErrModelNotReady = errors.New("local model not ready")

	// ErrUnknownProvider is returned by NewProvider for an unsupported name.
	ErrUnknownProvider = errors.New("unknown provider")
)

const (
	// DefaultTemperature is the sampling temperature used when none is configured.
	DefaultTemperature = 0.3

	// DefaultMaxTokens is the output token limit used when none is configured.
	DefaultMaxTokens = 500

	defaultTimeout = 30 * time.Second
)

// Provider sends one system + user prompt pair to an LLM and returns the
// raw reply text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)

	// Ready reports whether the provider can serve requests: credentials
	// are present, or the local model is loaded.
	Ready(ctx context.Context) error
}

// Options holds the settings shared by the HTTP providers.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int

	// MaxRetries is passed to httputil.DoWithRetry for HTTP 429.
	MaxRetries int

	Client *http.Client
}

func (o Options) model(fallback string) string {
	if o.Model != "" {
		return o.Model
	}
	return fallback
}

func (o Options) baseURL(fallback string) string {
	if o.BaseURL != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}
	return fallback
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return DefaultMaxTokens
}

func (o Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (o Options) requireKey(service string) error {
	if strings.TrimSpace(o.APIKey) == "" {
		return fmt.Errorf("%s: %w", service, ErrMissingCredentials)
	}
	return nil
}

// postJSON sends body as JSON and decodes a 2xx reply into out.
func (o Options) postJSON(ctx context.Context, service, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httputil.DoWithRetry(ctx, o.client(), req, o.MaxRetries)
	if err != nil {
		return fmt.Errorf("calling %s API: %w", service, err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckResponse(service, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", service, err)
	}
	return nil
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg types.ScoringConfig, client *http.Client) (Provider, error) {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	opts := Options{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		MaxRetries:  cfg.MaxRetries,
		Client:      client,
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAI(opts), nil
	case "deepseek":
		return NewDeepSeek(opts), nil
	case "groq":
		return NewGroq(opts), nil
	case "claude", "anthropic":
		return &Claude{Options: opts}, nil
	case "gemini":
		return &Gemini{Options: opts}, nil
	case "local":
		return &Local{Options: opts}, nil
	case "mock":
		return &Mock{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
