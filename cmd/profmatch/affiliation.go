package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/profmatch/internal/affiliation"
)

var affiliationCmd = &cobra.Command{
	Use:   "affiliation <a> <b>",
	Short: "Compare two affiliation strings",
	Long: `Affiliation prints the normalized form of both strings and their similarity
score. Scores at or above the threshold (default 0.6) count as the same
institution during author disambiguation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := affiliation.Default
		if path, _ := cmd.Flags().GetString("aliases"); path != "" {
			extra, err := affiliation.LoadAliases(path)
			if err != nil {
				return err
			}
			m = affiliation.NewMatcher(append(extra, affiliation.DefaultAliases...))
		}
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		w := cmd.OutOrStdout()
		sim := m.Similarity(args[0], args[1])
		fmt.Fprintf(w, "a:          %q -> %q\n", args[0], m.Normalize(args[0]))
		fmt.Fprintf(w, "b:          %q -> %q\n", args[1], m.Normalize(args[1]))
		fmt.Fprintf(w, "similarity: %.2f\n", sim)
		fmt.Fprintf(w, "match:      %t\n", sim >= threshold)
		return nil
	},
}

func init() {
	affiliationCmd.Flags().String("aliases", "", "YAML alias table added before the built-in one")
	affiliationCmd.Flags().Float64("threshold", affiliation.DefaultThreshold, "similarity needed to count as a match")
	rootCmd.AddCommand(affiliationCmd)
}
