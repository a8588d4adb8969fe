package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "profmatch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// QueueConfig bounds concurrency and request spacing against one upstream.
type QueueConfig struct {
	// MaxConcurrent is the number of requests allowed in flight at once.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`

	// MinInterval is the minimum gap between two admissions.
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval"`

	// MaxBackoff caps the cooldown applied after throttling errors (default 5s).
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

// CacheConfig holds settings for the durable cache database.
type CacheConfig struct {
	// Path is the sqlite database file (default "profmatch-cache.db").
	Path string `json:"path" yaml:"path"`

	// MaxPages caps the database size in pages; 0 means unlimited.
	// Writes beyond the cap surface as capacity failures.
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// TTL is the entry lifetime (default 7 days).
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// ReconcileConfig holds settings for publication reconciliation.
type ReconcileConfig struct {
	HTTPConfig `yaml:",inline"`

	// Queue gates calls to the bibliographic upstream (default 3 concurrent, 500ms).
	Queue QueueConfig `json:"queue" yaml:"queue"`

	// EnableUpstream controls whether the DBLP search level runs.
	EnableUpstream bool `json:"enable_upstream" yaml:"enable_upstream"`

	// MaxPapers is the maximum number of papers attached to a candidate (default 20).
	MaxPapers int `json:"max_papers" yaml:"max_papers"`
}

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier; empty selects the provider default.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ScoringConfig holds settings for the scoring stage.
type ScoringConfig struct {
	AIConfig   `yaml:",inline"`
	HTTPConfig `yaml:",inline"`

	// Provider selects the vendor protocol: openai, deepseek, groq, claude, gemini, local, or mock.
	Provider string `json:"provider" yaml:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Scheme selects the scoring scheme: continuous or decision-tree.
	Scheme string `json:"scheme" yaml:"scheme"`

	// Temperature is the sampling temperature (default 0.3).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens is the output token limit (default 500).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Queue gates calls to the provider (default 5 concurrent, 200ms).
	Queue QueueConfig `json:"queue" yaml:"queue"`
}

// RunConfig holds settings for one batch evaluation run.
type RunConfig struct {
	// Query is the natural-language research direction candidates are matched against.
	Query string `json:"query" yaml:"query"`

	// Workers is the batch size and therefore the per-batch parallelism (default 10).
	Workers int `json:"workers" yaml:"workers"`

	// Threshold is the minimum score reported as a match (default 0.6).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Cooldown is the pause between batches (default 1s).
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
}

// PipelineConfig groups all component configurations for the pipeline.
type PipelineConfig struct {
	Run       RunConfig       `json:"run" yaml:"run"`
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
}
