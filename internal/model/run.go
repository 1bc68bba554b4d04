package model

import "time"

// RunStatus represents the current state of a recorded analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded trigger of the analysis pipeline.
type Run struct {
	ID        string      `json:"id" yaml:"id"`
	URL       string      `json:"url" yaml:"url"`
	Notes     string      `json:"notes" yaml:"notes"`
	Status    RunStatus   `json:"status" yaml:"status"`
	Outcome   *RunOutcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" yaml:"updated_at"`
}

// RunOutcome holds everything recorded once a run finishes.
type RunOutcome struct {
	Provider   string     `json:"provider" yaml:"provider"`
	Model      string     `json:"model" yaml:"model"`
	Report     string     `json:"report,omitempty" yaml:"report,omitempty"`
	FetchError string     `json:"fetch_error,omitempty" yaml:"fetch_error,omitempty"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind  ErrorKind  `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Usage      TokenUsage `json:"usage" yaml:"usage"`
	CostUSD    float64    `json:"cost_usd" yaml:"cost_usd"`
	DurationMs int64      `json:"duration_ms" yaml:"duration_ms"`
}

// Status derives the final run status from the outcome.
// A fetch failure alone does not fail the run.
func (o *RunOutcome) Status() RunStatus {
	if o == nil || o.ErrorKind == ErrorKindAnalysis {
		return RunStatusFailed
	}
	return RunStatusComplete
}
