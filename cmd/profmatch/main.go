// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the profmatch CLI.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/profmatch/internal/evaluate"
	"github.com/pdiddy/profmatch/internal/logging"
	"github.com/pdiddy/profmatch/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the profmatch CLI.
var rootCmd = &cobra.Command{
	Use:   "profmatch",
	Short: "Rank researchers against a research direction",
	Long: `profmatch scores a list of researchers against a natural-language research
direction. Each candidate's publication list is reconciled from DBLP, a local
scholar cache and their publication histogram, then scored by an LLM provider
with either a continuous or a decision-tree scheme.

Candidates are processed in batches; a batch's candidates run in parallel and
calls to DBLP and the provider go through rate-limited queues.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(viper.GetString("log_level"))
		if err != nil {
			return err
		}
		slog.SetDefault(logging.New(os.Stderr, level, viper.GetBool("log_json")))

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			slog.Debug("loaded secrets", "keys", s.Names())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./profmatch.yaml or ~/.config/profmatch/profmatch.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.Bool("log-json", false, "write logs as JSON")
	pf.String("cache-db", "", "sqlite cache database (default: profmatch-cache.db)")

	mustBind("log_level", pf.Lookup("log-level"))
	mustBind("log_json", pf.Lookup("log-json"))
	mustBind("cache.path", pf.Lookup("cache-db"))

	setDefaults()
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load(".env")

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("profmatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "profmatch"))
		}
	}

	viper.SetEnvPrefix("PROFMATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, evaluate.ErrCancelled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
