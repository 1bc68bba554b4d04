package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-report/internal/action"
)

var (
	analyzeURL      string
	analyzeNotes    string
	analyzeMaxChars int
	analyzeJSON     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Generate a website report for one URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if analyzeMaxChars > 0 {
			cfg.Fetch.MaxChars = analyzeMaxChars
		}
		notes := analyzeNotes
		if !cmd.Flags().Changed("notes") {
			notes = cfg.Form.DefaultNotes
		}

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		return runAnalyze(ctx, cmd.OutOrStdout(), env.Handler, analyzeURL, notes, analyzeJSON)
	},
}

// runAnalyze runs one trigger and writes it to out. In-band failures are
// part of the output, not an error.
func runAnalyze(ctx context.Context, out io.Writer, h *action.Handler, url, notes string, asJSON bool) error {
	if !asJSON {
		_, err := h.Trigger(ctx, out, url, notes)
		return err
	}

	o := h.Run(ctx, url, notes)
	zap.L().Debug("analyze: done", zap.String("url", url), zap.String("run_id", o.RunID))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "company website URL (required)")
	analyzeCmd.Flags().StringVar(&analyzeNotes, "notes", "", "free-text notes for the consultant (default from form.default_notes)")
	analyzeCmd.Flags().IntVar(&analyzeMaxChars, "max-chars", 0, "excerpt character budget (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the outcome as JSON")
	_ = analyzeCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(analyzeCmd)
}
