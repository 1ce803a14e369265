package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	opts := &compareOptions{}

	rootCmd := &cobra.Command{
		Use:   "docsim FILE1 FILE2 [FILE...]",
		Short: "Compare documents for textual similarity",
		Long: `docsim scores document pairs with TF-IDF weighted cosine similarity
to flag likely plagiarism or near-duplicate text.

With exactly two files it runs a self-contained pair comparison. With
three or more it scans every pair against IDF weights computed over the
whole set, so common vocabulary is discounted corpus-wide.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.threshold < 0 || opts.threshold > 1 {
				return fmt.Errorf("threshold must be between 0 and 1, got %g", opts.threshold)
			}
			return runCompare(cmd, args, opts)
		},
	}

	rootCmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "only report pairs scoring at or above this value (0-1)")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "show word counts and summary statistics")
	rootCmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "emit machine-readable JSON")

	return rootCmd
}
