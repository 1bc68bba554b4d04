package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/site-report/internal/action"
)

var (
	batchFile        string
	batchNotes       string
	batchLimit       int
	batchConcurrency int
	batchOutput      string
	batchFormat      string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate reports for every URL in a file",
	Long:  "Reads one URL per line (optionally \"url,notes\"), skipping blanks and # comments, and analyzes each page independently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchFormat != "json" && batchFormat != "yaml" {
			return eris.Errorf("batch: unsupported format %q", batchFormat)
		}
		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrent = batchConcurrency
		}

		env, err := initEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := os.Open(batchFile)
		if err != nil {
			return eris.Wrap(err, "batch: open input")
		}
		defer f.Close() //nolint:errcheck

		items, err := readBatchItems(f, batchNotes)
		if err != nil {
			return err
		}

		results, err := processBatch(ctx, items, batchLimit, cfg.Batch.MaxConcurrent, env.Handler.Run)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if batchOutput != "" {
			of, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrap(err, "batch: create output")
			}
			defer of.Close() //nolint:errcheck
			out = of
		}
		return writeBatchResults(out, results, batchFormat)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "input file with one URL per line (required)")
	batchCmd.Flags().StringVar(&batchNotes, "notes", "", "notes used for lines without their own")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of URLs to process")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel analyses (default from batch.max_concurrent)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results to this file instead of stdout")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "output format: json or yaml")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// batchItem is one input line.
type batchItem struct {
	URL   string
	Notes string
}

// batchResult is one output record, in input order.
type batchResult struct {
	URL         string `json:"url" yaml:"url"`
	Notes       string `json:"notes" yaml:"notes"`
	RunID       string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Report      string `json:"report" yaml:"report"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	FetchFailed bool   `json:"fetch_failed" yaml:"fetch_failed"`
}

// readBatchItems parses "url" or "url,notes" lines. defaultNotes fills in
// lines without notes.
func readBatchItems(r io.Reader, defaultNotes string) ([]batchItem, error) {
	var items []batchItem
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		item := batchItem{URL: line, Notes: defaultNotes}
		if u, n, ok := strings.Cut(line, ","); ok {
			item.URL = strings.TrimSpace(u)
			item.Notes = strings.TrimSpace(n)
		}
		if item.URL == "" {
			continue
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "batch: read input")
	}
	return items, nil
}

// runFunc is the callback signature for running one trigger.
type runFunc func(ctx context.Context, url, notes string) *action.Outcome

// processBatch applies limit, then runs items concurrently. Results keep
// input order. An in-band failure never aborts the batch.
func processBatch(ctx context.Context, items []batchItem, limit, concurrency int, run runFunc) ([]batchResult, error) {
	if len(items) == 0 {
		zap.L().Info("no urls to process")
		return nil, nil
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("urls", len(items)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]batchResult, len(items))
	var succeeded, failed atomic.Int64

	for i, item := range items {
		g.Go(func() error {
			o := run(gctx, item.URL, item.Notes)
			results[i] = batchResult{
				URL:         item.URL,
				Notes:       item.Notes,
				RunID:       o.RunID,
				Report:      o.Report,
				Error:       o.Error,
				ErrorKind:   string(o.ErrorKind),
				FetchFailed: o.FetchFailed,
			}
			if o.Error != "" {
				failed.Add(1)
			} else {
				succeeded.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results, nil
}

// writeBatchResults encodes results as json or yaml.
func writeBatchResults(w io.Writer, results []batchResult, format string) error {
	if results == nil {
		results = []batchResult{}
	}
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return eris.Wrap(err, "batch: encode yaml")
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(results), "batch: encode json")
	}
}
