package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/profmatch/internal/affiliation"
	"github.com/pdiddy/profmatch/internal/cache"
	"github.com/pdiddy/profmatch/internal/dblp"
	"github.com/pdiddy/profmatch/internal/kvstore"
	"github.com/pdiddy/profmatch/internal/publication"
	"github.com/pdiddy/profmatch/pkg/types"
)

// mustBind binds a flag to a viper key. A nil flag is a programming error.
func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding %s: %v", key, err))
	}
}

func setDefaults() {
	viper.SetDefault("log_level", "info")

	viper.SetDefault("run.workers", 10)
	viper.SetDefault("run.threshold", 0.6)
	viper.SetDefault("run.cooldown", "1s")

	viper.SetDefault("reconcile.enable_upstream", true)
	viper.SetDefault("reconcile.max_papers", publication.DefaultMaxPapers)
	viper.SetDefault("reconcile.timeout", "30s")
	viper.SetDefault("reconcile.user_agent", "profmatch/"+version)
	viper.SetDefault("reconcile.queue.max_concurrent", 3)
	viper.SetDefault("reconcile.queue.min_interval", "500ms")
	viper.SetDefault("reconcile.queue.max_backoff", "5s")

	viper.SetDefault("scoring.provider", "openai")
	viper.SetDefault("scoring.scheme", "continuous")
	viper.SetDefault("scoring.temperature", 0.3)
	viper.SetDefault("scoring.max_tokens", 500)
	viper.SetDefault("scoring.max_retries", 3)
	viper.SetDefault("scoring.timeout", "30s")
	viper.SetDefault("scoring.queue.max_concurrent", 5)
	viper.SetDefault("scoring.queue.min_interval", "200ms")
	viper.SetDefault("scoring.queue.max_backoff", "5s")

	viper.SetDefault("cache.path", "profmatch-cache.db")
	viper.SetDefault("cache.ttl", "168h")
}

func queueConfig(prefix string) types.QueueConfig {
	return types.QueueConfig{
		MaxConcurrent: viper.GetInt(prefix + ".max_concurrent"),
		MinInterval:   viper.GetDuration(prefix + ".min_interval"),
		MaxBackoff:    viper.GetDuration(prefix + ".max_backoff"),
	}
}

// loadPipelineConfig assembles the typed configuration from viper.
func loadPipelineConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Run: types.RunConfig{
			Query:     viper.GetString("run.query"),
			Workers:   viper.GetInt("run.workers"),
			Threshold: viper.GetFloat64("run.threshold"),
			Cooldown:  viper.GetDuration("run.cooldown"),
		},
		Reconcile: types.ReconcileConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("reconcile.timeout"),
				UserAgent: viper.GetString("reconcile.user_agent"),
			},
			Queue:          queueConfig("reconcile.queue"),
			EnableUpstream: viper.GetBool("reconcile.enable_upstream"),
			MaxPapers:      viper.GetInt("reconcile.max_papers"),
		},
		Scoring: types.ScoringConfig{
			AIConfig: types.AIConfig{
				Model:      viper.GetString("scoring.model"),
				APIKey:     viper.GetString("scoring.api_key"),
				MaxRetries: viper.GetInt("scoring.max_retries"),
			},
			HTTPConfig: types.HTTPConfig{
				Timeout: viper.GetDuration("scoring.timeout"),
			},
			Provider:    viper.GetString("scoring.provider"),
			BaseURL:     viper.GetString("scoring.base_url"),
			Scheme:      viper.GetString("scoring.scheme"),
			Temperature: viper.GetFloat64("scoring.temperature"),
			MaxTokens:   viper.GetInt("scoring.max_tokens"),
			Queue:       queueConfig("scoring.queue"),
		},
		Cache: types.CacheConfig{
			Path:     viper.GetString("cache.path"),
			MaxPages: viper.GetInt("cache.max_pages"),
			TTL:      viper.GetDuration("cache.ttl"),
		},
	}
	if cfg.Scoring.APIKey == "" {
		cfg.Scoring.APIKey = loadedSecrets.KeyFor(cfg.Scoring.Provider)
	}
	return cfg
}

// caches groups the three persisted caches over one store.
type caches struct {
	store     *kvstore.Store
	papers    *cache.PaperCache
	scholar   *cache.PaperCache
	redirects *cache.RedirectCache
}

// openCaches opens the sqlite store and the caches persisted in it. With
// noPersist set the caches live in memory only.
func openCaches(cfg types.CacheConfig, noPersist bool, logger *slog.Logger) (*caches, error) {
	c := &caches{}
	var backend cache.Backend
	if !noPersist {
		store, err := kvstore.Open(cfg)
		if err != nil {
			return nil, err
		}
		c.store = store
		backend = store
	}
	c.papers = cache.NewPaperCache(backend, cache.DBLPNamespace, cfg, logger)
	c.scholar = cache.NewPaperCache(backend, cache.ScholarNamespace, cfg, logger)
	c.redirects = cache.NewRedirectCache(backend, cfg, logger)
	return c, nil
}

func (c *caches) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// newService wires the reconciliation service. The DBLP client does not
// retry 429 itself so throttling reaches the queue's backoff.
func newService(cfg types.ReconcileConfig, c *caches, logger *slog.Logger) (*publication.Service, error) {
	client := dblp.New(cfg.HTTPConfig, logger)
	client.MaxRetries = -1

	svc := publication.New(cfg, client, c.papers, c.scholar, c.redirects, logger)

	if path := viper.GetString("reconcile.aliases"); path != "" {
		extra, err := affiliation.LoadAliases(path)
		if err != nil {
			return nil, err
		}
		svc.Matcher = affiliation.NewMatcher(append(extra, affiliation.DefaultAliases...))
	}
	return svc, nil
}
