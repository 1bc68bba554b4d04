package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	fetchURL      string
	fetchMaxChars int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the paragraph excerpt the reporter would send for a URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		maxChars := fetchMaxChars
		if maxChars <= 0 {
			maxChars = cfg.Fetch.MaxChars
		}

		text := newScraper().FetchText(cmd.Context(), fetchURL, maxChars)
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "page URL (required)")
	fetchCmd.Flags().IntVar(&fetchMaxChars, "max-chars", 0, "excerpt character budget (default from config)")
	_ = fetchCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(fetchCmd)
}
