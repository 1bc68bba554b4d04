package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-report/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "site-report",
	Short: "Consultant-style website reports from a single page",
	Long: `site-report fetches one company web page, takes the text of its <p> elements
and asks a chat model (OpenAI or Anthropic) for a consultant-style SEO, design
and branding report. A failed fetch still produces a report from the error text.

  analyze   report on a single URL and print it, or the run as JSON
  fetch     print the page excerpt the model would see
  serve     HTML form on / and a JSON API under /api (analyze, runs, stats)
  batch     report on every URL in a file with bounded concurrency
  runs      list, show and summarize recorded runs (needs store.driver)

Configuration comes from config.yaml and SITEREPORT_* environment variables.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
