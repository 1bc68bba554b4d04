// Package report turns a URL and notes into a consultant-style website report.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/site-report/internal/llm"
	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/internal/scrape"
)

const (
	// SystemPrompt frames the model as a website consultant.
	SystemPrompt = "You are a professional consultant analyzing a company's website for SEO, design, and branding."

	userPromptFormat = "Company URL: %s\nNotes: %s\n\nWebsite Extract: %s\n\nTask: Provide a structured consultant-style report."

	// ErrorPrefix starts every in-band analysis failure message.
	ErrorPrefix = "Error during GPT analysis: "
)

// AnalysisError is a provider failure: auth, network, rate limit, bad model
// or malformed response.
type AnalysisError struct {
	Request     model.AnalysisRequest
	FetchFailed bool
	Err         error
}

func (e *AnalysisError) Error() string { return e.Err.Error() }
func (e *AnalysisError) Unwrap() error { return e.Err }

// Kind reports the failure class for display and run records.
func (e *AnalysisError) Kind() model.ErrorKind { return model.ErrorKindAnalysis }

// Text renders the outcome of Analyze as display text: the report on
// success, the prefixed error otherwise.
func Text(result *model.AnalysisResult, err error) string {
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	if result == nil {
		return ErrorPrefix + "no result"
	}
	return result.Report
}

// BuildUserPrompt fills the fixed user template.
func BuildUserPrompt(req model.AnalysisRequest) string {
	return fmt.Sprintf(userPromptFormat, req.URL, req.Notes, req.Excerpt)
}

// BuildMessages returns the system and user messages, in that order.
func BuildMessages(req model.AnalysisRequest) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: BuildUserPrompt(req)},
	}
}

// Reporter wires a fetcher to a provider. It holds no per-call state, so one
// Reporter serves concurrent triggers.
type Reporter struct {
	fetcher  scrape.Fetcher
	provider llm.Provider
	model    string
	maxChars int
	timeout  time.Duration
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithMaxChars sets the excerpt budget passed to the fetcher.
func WithMaxChars(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.maxChars = n
		}
	}
}

// WithTimeout bounds the provider call. Zero means no bound beyond ctx.
func WithTimeout(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a Reporter for modelID on provider.
func New(fetcher scrape.Fetcher, provider llm.Provider, modelID string, opts ...Option) *Reporter {
	r := &Reporter{
		fetcher:  fetcher,
		provider: provider,
		model:    modelID,
		maxChars: scrape.DefaultMaxChars,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Provider returns the provider name.
func (r *Reporter) Provider() string { return r.provider.Name() }

// Model returns the configured model identifier.
func (r *Reporter) Model() string { return r.model }

// Excerpt fetches url and returns the excerpt to embed in the prompt. A
// fetch failure becomes the in-band error text and fetchErr is set.
func (r *Reporter) Excerpt(ctx context.Context, url string) (excerpt string, fetchErr error) {
	page, err := r.fetcher.Fetch(ctx, url, r.maxChars)
	if err != nil {
		return scrape.InBand(err), err
	}
	return page.Text, nil
}

// Analyze fetches url, submits the prompt once and returns the first
// choice's content verbatim. A fetch failure is embedded in the prompt
// rather than stopping the call. Provider failures come back as
// *AnalysisError.
func (r *Reporter) Analyze(ctx context.Context, url, notes string) (*model.AnalysisResult, error) {
	start := time.Now()
	log := zap.L().With(zap.String("url", url), zap.String("provider", r.provider.Name()), zap.String("model", r.model))

	excerpt, fetchErr := r.Excerpt(ctx, url)
	if fetchErr != nil {
		log.Warn("report: fetch failed, continuing with error text", zap.Error(fetchErr))
	}

	req := model.AnalysisRequest{URL: url, Notes: notes, Excerpt: excerpt}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	completion, err := r.provider.Complete(callCtx, r.model, BuildMessages(req))
	if err != nil {
		log.Error("report: analysis failed", zap.Error(err))
		return nil, &AnalysisError{Request: req, FetchFailed: fetchErr != nil, Err: err}
	}

	result := &model.AnalysisResult{
		Request:     req,
		Report:      completion.Text,
		Provider:    r.provider.Name(),
		Model:       completion.Model,
		Usage:       completion.Usage,
		FetchFailed: fetchErr != nil,
		Duration:    time.Since(start),
	}

	log.Info("report: analysis complete",
		zap.Bool("fetch_failed", result.FetchFailed),
		zap.Int64("input_tokens", result.Usage.InputTokens),
		zap.Int64("output_tokens", result.Usage.OutputTokens),
		zap.Duration("elapsed", result.Duration),
	)
	return result, nil
}

// AsAnalysisError unwraps err to an *AnalysisError if it is one.
func AsAnalysisError(err error) (*AnalysisError, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
