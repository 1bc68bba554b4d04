package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/internal/monitoring"
	"github.com/sells-group/site-report/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect report run history",
	Long:  "Commands for listing and viewing recorded analysis runs. Requires store.driver sqlite or postgres.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		url, _ := cmd.Flags().GetString("url")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			URL:    url,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		format, _ := cmd.Flags().GetString("format")
		return writeRun(cmd.OutOrStdout(), run, format)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		snap, err := monitoring.NewCollector(st).Collect(ctx, int(since.Hours()))
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(cmd.OutOrStdout(), snap)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().String("url", "", "filter by page URL")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsShowCmd.Flags().String("format", "json", "output format: json or yaml")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats, 0 for all history (e.g. 24h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tURL\tSTATUS\tERROR_KIND\tMODEL\tCOST\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t---\t------\t----------\t-----\t----\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		var errKind, modelID, costUSD string
		if r.Outcome != nil {
			errKind = string(r.Outcome.ErrorKind)
			modelID = r.Outcome.Model
			costUSD = fmt.Sprintf("$%.4f", r.Outcome.CostUSD)
			dur = (time.Duration(r.Outcome.DurationMs) * time.Millisecond).Round(time.Second).String()
		}

		url := r.URL
		if len(url) > 40 {
			url = url[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			url,
			r.Status,
			errKind,
			modelID,
			costUSD,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Fetch failures:\t%d\n", s.FetchFailures)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	_, _ = fmt.Fprintf(w, "Fail rate:\t%.1f%%\n", s.FailRate*100)
	_, _ = fmt.Fprintf(w, "Total cost:\t$%.4f\n", s.CostUSD)
	if s.AvgDurationMs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", float64(s.AvgDurationMs)/1000)
	}
	if s.AvgTokens > 0 {
		_, _ = fmt.Fprintf(w, "Avg tokens:\t%d\n", s.AvgTokens)
	}
	_ = w.Flush()
}

// writeRun encodes a single run as json or yaml.
func writeRun(w io.Writer, run *model.Run, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(run); err != nil {
			return eris.Wrap(err, "runs show: encode yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("runs show: unsupported format %q", format)
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
