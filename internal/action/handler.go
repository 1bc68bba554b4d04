// Package action runs one analysis trigger and renders it for display.
package action

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/site-report/internal/cost"
	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/internal/report"
	"github.com/sells-group/site-report/internal/store"
)

const (
	// StatusLine is shown while a trigger is in flight.
	StatusLine = "🔎 Analyzing website... please wait."

	// Heading precedes the report text.
	Heading = "📊 Website Report"
)

// Analyzer is the reporter contract the handler depends on.
type Analyzer interface {
	Analyze(ctx context.Context, url, notes string) (*model.AnalysisResult, error)
	Provider() string
	Model() string
}

// Outcome is everything a surface needs to render one trigger.
type Outcome struct {
	RunID       string                `json:"run_id,omitempty"`
	URL         string                `json:"url"`
	Notes       string                `json:"notes"`
	Report      string                `json:"report"`
	Error       string                `json:"error,omitempty"`
	ErrorKind   model.ErrorKind       `json:"error_kind,omitempty"`
	FetchFailed bool                  `json:"fetch_failed"`
	Result      *model.AnalysisResult `json:"result,omitempty"`
	CostUSD     float64               `json:"cost_usd"`
}

// Text is the display text: the report, or the in-band analysis error.
func (o *Outcome) Text() string {
	if o.Error != "" {
		return o.Error
	}
	return o.Report
}

// Handler runs triggers. It is safe for concurrent use when its
// collaborators are.
type Handler struct {
	analyzer Analyzer
	store    store.Store
	costs    *cost.Calculator
}

// Option configures a Handler.
type Option func(*Handler)

// WithStore records every trigger in s. A nil store disables recording.
func WithStore(s store.Store) Option {
	return func(h *Handler) { h.store = s }
}

// WithCalculator attributes a cost to every successful analysis.
func WithCalculator(c *cost.Calculator) Option {
	return func(h *Handler) { h.costs = c }
}

// NewHandler creates a Handler around analyzer.
func NewHandler(analyzer Analyzer, opts ...Option) *Handler {
	h := &Handler{analyzer: analyzer, costs: cost.NewCalculator(nil)}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Run executes one trigger synchronously. It never fails: analysis and
// fetch failures come back as displayable text on the Outcome, and store
// failures are only logged.
func (h *Handler) Run(ctx context.Context, url, notes string) *Outcome {
	start := time.Now()
	log := zap.L().With(zap.String("url", url))

	runID := h.createRun(ctx, log, url, notes)
	if runID != "" {
		log = log.With(zap.String("run_id", runID))
	}

	result, err := h.analyzer.Analyze(ctx, url, notes)

	out := &Outcome{RunID: runID, URL: url, Notes: notes, Result: result}
	rec := &model.RunOutcome{
		Provider:   h.analyzer.Provider(),
		Model:      h.analyzer.Model(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err != nil {
		out.Error = report.Text(nil, err)
		out.ErrorKind = model.ErrorKindAnalysis
		rec.Error = out.Error
		rec.ErrorKind = model.ErrorKindAnalysis
		if ae, ok := report.AsAnalysisError(err); ok {
			out.FetchFailed = ae.FetchFailed
			if ae.FetchFailed {
				rec.FetchError = ae.Request.Excerpt
			}
		}
	} else {
		out.Report = result.Report
		out.FetchFailed = result.FetchFailed
		out.CostUSD = h.costs.Log(result.Provider, h.pricedModel(result.Model), result.Usage)
		if result.FetchFailed {
			out.ErrorKind = model.ErrorKindFetch
			rec.FetchError = result.Request.Excerpt
			rec.ErrorKind = model.ErrorKindFetch
		}
		rec.Model = result.Model
		rec.Report = result.Report
		rec.Usage = result.Usage
		rec.CostUSD = out.CostUSD
	}

	h.finishRun(ctx, log, runID, rec)
	return out
}

// pricedModel picks the id to price by. Providers may echo a dated snapshot
// (gpt-5-2025-08-07) that has no rate; the configured id is used then.
func (h *Handler) pricedModel(returned string) string {
	if returned != "" && h.costs.Known(returned) {
		return returned
	}
	return h.analyzer.Model()
}

func (h *Handler) createRun(ctx context.Context, log *zap.Logger, url, notes string) string {
	if h.store == nil {
		return ""
	}
	run, err := h.store.CreateRun(ctx, model.AnalysisRequest{URL: url, Notes: notes})
	if err != nil {
		log.Warn("action: record run failed", zap.Error(err))
		return ""
	}
	return run.ID
}

func (h *Handler) finishRun(ctx context.Context, log *zap.Logger, runID string, rec *model.RunOutcome) {
	if h.store == nil || runID == "" {
		return
	}
	// Record even if the trigger's context was cancelled mid-analysis.
	ctx = context.WithoutCancel(ctx)
	if err := h.store.FinishRun(ctx, runID, rec); err != nil {
		log.Warn("action: finish run failed", zap.Error(err))
	}
}

// Trigger runs one trigger against w the way the interactive surface shows
// it: the status line first, then the heading and report once the analysis
// returns.
func (h *Handler) Trigger(ctx context.Context, w io.Writer, url, notes string) (*Outcome, error) {
	if err := RenderStatus(w); err != nil {
		return nil, err
	}
	out := h.Run(ctx, url, notes)
	return out, RenderReport(w, out)
}

// RenderStatus writes the in-flight status line.
func RenderStatus(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\n\n", StatusLine)
	return err
}

// RenderReport writes the heading and the display text.
func RenderReport(w io.Writer, o *Outcome) error {
	_, err := fmt.Fprintf(w, "%s\n\n%s\n", Heading, o.Text())
	return err
}

// Render writes a complete output region.
func Render(w io.Writer, o *Outcome) error {
	if err := RenderStatus(w); err != nil {
		return err
	}
	return RenderReport(w, o)
}
