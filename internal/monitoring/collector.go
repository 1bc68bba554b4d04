// Package monitoring summarizes the recorded run history.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/internal/store"
)

// MetricsSnapshot holds a point-in-time view of report activity.
type MetricsSnapshot struct {
	Total         int     `json:"total" yaml:"total"`
	Complete      int     `json:"complete" yaml:"complete"`
	Failed        int     `json:"failed" yaml:"failed"`
	Running       int     `json:"running" yaml:"running"`
	FetchFailures int     `json:"fetch_failures" yaml:"fetch_failures"`
	FailRate      float64 `json:"fail_rate" yaml:"fail_rate"`
	CostUSD       float64 `json:"cost_usd" yaml:"cost_usd"`
	AvgTokens     int64   `json:"avg_tokens" yaml:"avg_tokens"`
	AvgDurationMs int64   `json:"avg_duration_ms" yaml:"avg_duration_ms"`

	LookbackHours int       `json:"lookback_hours" yaml:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at" yaml:"collected_at"`
}

// collectPageSize is how many runs Collect reads per ListRuns call.
const collectPageSize = 500

// Collector gathers metrics from the run store.
type Collector struct {
	store    store.Store
	pageSize int
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, pageSize: collectPageSize}
}

// Collect gathers a snapshot over the given lookback window. Zero hours
// means all history.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	filter := store.RunFilter{Limit: c.pageSize}
	if lookbackHours > 0 {
		filter.CreatedAfter = time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)
	}

	// Page until a short page so the window is never silently capped.
	var runs []model.Run
	for {
		page, err := c.store.ListRuns(ctx, filter)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list runs")
		}
		runs = append(runs, page...)
		if len(page) < filter.Limit {
			break
		}
		filter.Offset += len(page)
	}

	snap := Summarize(runs)
	snap.LookbackHours = lookbackHours
	snap.CollectedAt = time.Now().UTC()
	return snap, nil
}

// Summarize computes counts, cost and averages from runs. Averages only
// cover finished runs.
func Summarize(runs []model.Run) *MetricsSnapshot {
	snap := &MetricsSnapshot{Total: len(runs)}

	var tokens, durMs int64
	var finished int64
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
		case model.RunStatusFailed:
			snap.Failed++
		default:
			snap.Running++
		}

		if r.Outcome == nil {
			continue
		}
		finished++
		if r.Outcome.FetchError != "" {
			snap.FetchFailures++
		}
		snap.CostUSD += r.Outcome.CostUSD
		tokens += r.Outcome.Usage.Total()
		durMs += r.Outcome.DurationMs
	}

	if done := snap.Complete + snap.Failed; done > 0 {
		snap.FailRate = float64(snap.Failed) / float64(done)
	}
	if finished > 0 {
		snap.AvgTokens = tokens / finished
		snap.AvgDurationMs = durMs / finished
	}
	return snap
}
