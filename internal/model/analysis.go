package model

import "time"

// ErrorKind classifies the two failure modes of an analysis.
type ErrorKind string

const (
	ErrorKindFetch    ErrorKind = "fetch_failure"
	ErrorKindAnalysis ErrorKind = "analysis_failure"
)

// AnalysisRequest is the input to a single report. Built once, never mutated.
type AnalysisRequest struct {
	URL     string `json:"url"`
	Notes   string `json:"notes"`
	Excerpt string `json:"excerpt"`
}

// AnalysisResult is the outcome of a successful provider call.
type AnalysisResult struct {
	Request     AnalysisRequest `json:"request"`
	Report      string          `json:"report"`
	Provider    string          `json:"provider"`
	Model       string          `json:"model"`
	Usage       TokenUsage      `json:"usage"`
	FetchFailed bool            `json:"fetch_failed"`
	Duration    time.Duration   `json:"duration"`
}

// TokenUsage tracks token consumption for one provider call.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}
