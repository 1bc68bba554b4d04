package cost

import (
	"go.uber.org/zap"

	"github.com/sells-group/site-report/internal/config"
	"github.com/sells-group/site-report/internal/model"
)

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps model identifiers to their pricing.
type Rates map[string]ModelRate

// Calculator computes costs for chat completion usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	if rates == nil {
		rates = Rates{}
	}
	return &Calculator{rates: rates}
}

// Known reports whether the calculator has a rate for modelID.
func (c *Calculator) Known(modelID string) bool {
	_, ok := c.rates[modelID]
	return ok
}

// Completion computes the cost of one chat completion. Unknown models cost 0.
func (c *Calculator) Completion(modelID string, usage model.TokenUsage) float64 {
	rate, ok := c.rates[modelID]
	if !ok {
		return 0
	}
	inCost := (float64(usage.InputTokens) / 1e6) * rate.Input
	outCost := (float64(usage.OutputTokens) / 1e6) * rate.Output
	return inCost + outCost
}

// Log records token usage and estimated cost with structured zap fields.
func (c *Calculator) Log(provider, modelID string, usage model.TokenUsage) float64 {
	cost := c.Completion(modelID, usage)
	zap.L().Info("cost attribution",
		zap.String("provider", provider),
		zap.String("model", modelID),
		zap.Int64("input_tokens", usage.InputTokens),
		zap.Int64("output_tokens", usage.OutputTokens),
		zap.Float64("estimated_cost_usd", cost),
	)
	return cost
}

// RatesFromConfig converts pricing.models into Rates. A later entry for the
// same model overrides an earlier one.
func RatesFromConfig(p config.PricingConfig) Rates {
	out := make(Rates, len(p.Models))
	for _, m := range p.Models {
		out[m.Model] = ModelRate{Input: m.Input, Output: m.Output}
	}
	return out
}
