package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/profmatch/internal/cache"
	"github.com/pdiddy/profmatch/internal/candidates"
	"github.com/pdiddy/profmatch/internal/publication"
	"github.com/pdiddy/profmatch/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the publication caches",
	Long: `The cache database holds three namespaces: DBLP search results keyed by
candidate name, scholar publication lists keyed by profile id, and DBLP profile
redirects. Entries expire after the configured TTL (default 7 days).`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadPipelineConfig()
		cs, err := openCaches(cfg.Cache, false, slog.Default())
		if err != nil {
			return err
		}
		defer cs.Close()

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Database: %s\n\n", cs.store.Path())
		fmt.Fprintf(w, "%-28s  %8s  %8s\n", "Namespace", "Entries", "Bytes")

		sizes := map[string]int{}
		entries, err := cs.store.Entries()
		if err != nil {
			return err
		}
		for _, e := range entries {
			sizes[e.Key] = e.Size
		}
		for _, st := range []cache.Stats{cs.papers.Stats(), cs.scholar.Stats(), cs.redirects.Stats()} {
			fmt.Fprintf(w, "%-28s  %8d  %8d\n", st.Namespace, st.Size, sizes[st.Namespace])
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadPipelineConfig()
		cs, err := openCaches(cfg.Cache, false, slog.Default())
		if err != nil {
			return err
		}
		defer cs.Close()

		err = errors.Join(cs.papers.Clear(), cs.scholar.Clear(), cs.redirects.Clear())
		if err != nil {
			return fmt.Errorf("clearing caches: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "caches cleared")
		return nil
	},
}

var cacheImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load scholar publication lists into the scholar cache",
	Long: `Import reads a JSON or YAML document mapping profile ids to paper lists:

  {"abc123": [{"title": "...", "year": 2024, "venue": "cvpr"}]}

Each list is stored in the scholar cache under that id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading import file: %w", err)
		}
		// YAML is a superset of JSON, so one decoder reads both.
		var lists map[string][]types.Paper
		if err := yaml.Unmarshal(data, &lists); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		cfg := loadPipelineConfig()
		cs, err := openCaches(cfg.Cache, false, slog.Default())
		if err != nil {
			return err
		}
		defer cs.Close()

		ids := make([]string, 0, len(lists))
		for id := range lists {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		imported := 0
		for _, id := range ids {
			if id == "" || len(lists[id]) == 0 {
				continue
			}
			cs.scholar.Set(cache.ScholarKey(id), lists[id])
			imported++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d scholar profiles (%d skipped)\n", imported, len(ids)-imported)
		return nil
	},
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm <candidates-file>",
	Short: "Fetch DBLP profiles into the scholar cache",
	Long: `Warm fetches the publication list behind every candidate's DBLP profile URL
and stores it in the scholar cache, so later evaluations can use it when the
name search is ambiguous. Candidates without a DBLP URL are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cands, err := candidates.Load(args[0])
		if err != nil {
			return err
		}

		cfg := loadPipelineConfig()
		logger := slog.Default()
		cs, err := openCaches(cfg.Cache, false, logger)
		if err != nil {
			return err
		}
		defer cs.Close()

		svc, err := newService(cfg.Reconcile, cs, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := cmd.OutOrStdout()
		var warmed, skipped, failed int
		for _, c := range cands {
			n, err := svc.Warm(ctx, c)
			switch {
			case errors.Is(err, publication.ErrNoProfile):
				skipped++
			case err != nil:
				if ctx.Err() != nil {
					return err
				}
				fmt.Fprintf(w, "failed:  %s (%v)\n", c.Name, err)
				failed++
			default:
				fmt.Fprintf(w, "warmed:  %s (%d papers)\n", c.Name, n)
				warmed++
			}
		}
		fmt.Fprintf(w, "\nWarm summary: %d warmed, %d skipped, %d failed (total: %d)\n",
			warmed, skipped, failed, len(cands))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheImportCmd, cacheWarmCmd)
	rootCmd.AddCommand(cacheCmd)
}
