package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/profmatch/internal/candidates"
	"github.com/pdiddy/profmatch/internal/evaluate"
	"github.com/pdiddy/profmatch/internal/report"
	"github.com/pdiddy/profmatch/internal/scoring"
	"github.com/pdiddy/profmatch/pkg/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate --query <direction> --input <candidates.json>",
	Short: "Score candidates against a research direction",
	Long: `Evaluate loads candidates from a JSON ({"professors": [...]} or a bare list)
or YAML file, reconciles each candidate's publications and scores them with the
configured provider and scheme. Matches at or above the threshold are printed
ranked by score.

Interrupting the run (Ctrl-C) lets the current batch finish, writes the
partial results and exits with a non-zero status.`,
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.StringP("query", "q", "", "research direction to match (required)")
	f.StringP("input", "i", "", "candidates file, JSON or YAML (required)")
	f.StringP("output", "o", "", "write the report to this file instead of stdout")
	f.String("format", "table", "report format: table, json or yaml")
	f.Bool("all", false, "report every candidate, not only matches")

	f.String("provider", "openai", "scoring provider: openai, deepseek, groq, claude, gemini, local or mock")
	f.String("scheme", "continuous", "scoring scheme: continuous or decision-tree")
	f.String("model", "", "provider model (default: provider specific)")
	f.String("base-url", "", "override the provider endpoint")
	f.Bool("dry-run", false, "score with the offline mock provider")

	f.Int("workers", 10, "candidates per batch, evaluated in parallel")
	f.Float64("threshold", 0.6, "minimum score reported as a match")
	f.Duration("cooldown", evaluate.DefaultCooldown, "pause between batches")

	f.Bool("upstream", true, "search DBLP for publications")
	f.Int("max-papers", 20, "maximum papers attached to a candidate")
	f.Int("dblp-concurrency", 3, "concurrent DBLP requests")
	f.Duration("dblp-interval", 0, "minimum gap between DBLP requests (default 500ms)")
	f.Int("llm-concurrency", 5, "concurrent provider requests")
	f.Duration("llm-interval", 0, "minimum gap between provider requests (default 200ms)")
	f.Bool("no-cache", false, "keep caches in memory only")

	bindings := map[string]string{
		"run.query":                      "query",
		"run.workers":                    "workers",
		"run.threshold":                  "threshold",
		"run.cooldown":                   "cooldown",
		"scoring.provider":               "provider",
		"scoring.scheme":                 "scheme",
		"scoring.model":                  "model",
		"scoring.base_url":               "base-url",
		"scoring.queue.max_concurrent":   "llm-concurrency",
		"scoring.queue.min_interval":     "llm-interval",
		"reconcile.enable_upstream":      "upstream",
		"reconcile.max_papers":           "max-papers",
		"reconcile.queue.max_concurrent": "dblp-concurrency",
		"reconcile.queue.min_interval":   "dblp-interval",
		"output.format":                  "format",
	}
	for key, name := range bindings {
		mustBind(key, f.Lookup(name))
	}

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		return fmt.Errorf("--input is required")
	}

	cfg := loadPipelineConfig()
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		cfg.Scoring.Provider = "mock"
	}
	logger := slog.Default()

	cands, err := candidates.Load(input)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		return fmt.Errorf("%s: no candidates", input)
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	cs, err := openCaches(cfg.Cache, noCache, logger)
	if err != nil {
		return err
	}
	defer cs.Close()

	svc, err := newService(cfg.Reconcile, cs, logger)
	if err != nil {
		return err
	}
	scorer, err := scoring.New(cfg.Scoring, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &evaluate.Runner{
		Enricher: svc,
		Scorer:   scorer,
		Config:   cfg.Run,
		Emitter: evaluate.MultiEmitter{
			evaluate.LogEmitter{Logger: logger},
			&evaluate.LineEmitter{W: cmd.ErrOrStderr()},
		},
		Resetters: []evaluate.Resetter{svc, scorer},
		Logger:    logger,
	}

	out, runErr := runner.Run(ctx, cands, func(matches []types.Candidate, s evaluate.Stats) {
		logger.Debug("partial results", "matches", len(matches), "processed", s.Processed)
	})
	if runErr != nil && !errors.Is(runErr, evaluate.ErrCancelled) {
		return runErr
	}

	c := svc.Counters()
	logger.Info("reconciliation summary",
		"upstream", c.Upstream, "merged", c.Merged, "scholar", c.Scholar,
		"synthesized", c.Synthesized, "empty", c.Empty,
		"cache_hits", c.CacheHits, "upstream_errors", c.UpstreamErrors, "throttled", c.Throttled)

	all, _ := cmd.Flags().GetBool("all")
	threshold := cfg.Run.Threshold
	if threshold <= 0 {
		threshold = evaluate.DefaultThreshold
	}
	if err := writeReport(cmd, report.New(out, threshold, all)); err != nil {
		return err
	}
	return runErr
}

func writeReport(cmd *cobra.Command, r report.Report) error {
	path, _ := cmd.Flags().GetString("output")
	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating report: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := report.Write(r, viper.GetString("output.format"), w); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", path)
	}
	return nil
}

// commandContext returns cmd's context, or Background when cobra has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
