// Package llm puts the chat-completion vendors behind one interface.
package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-report/internal/config"
	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/pkg/anthropic"
	"github.com/sells-group/site-report/pkg/openai"
)

// Roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the first choice of a chat completion.
type Completion struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

// Provider submits a message list to a chat-completion model exactly once.
type Provider interface {
	Name() string
	Complete(ctx context.Context, modelID string, msgs []Message) (*Completion, error)
}

// New builds the provider selected by cfg.Provider. The credential may be
// empty; the API rejects the first call in that case.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		if cfg.OpenAI.Key == "" {
			zap.L().Warn("llm: openai key is empty, analysis calls will fail")
		}
		return NewOpenAI(openai.NewClient(cfg.OpenAI.Key, openai.WithBaseURL(cfg.OpenAI.BaseURL))), nil
	case config.ProviderAnthropic:
		if cfg.Anthropic.Key == "" {
			zap.L().Warn("llm: anthropic key is empty, analysis calls will fail")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		return NewAnthropic(client, cfg.Anthropic.MaxTokens), nil
	default:
		return nil, eris.Errorf("llm: provider %q is not supported", cfg.Provider)
	}
}

func logCompletion(provider, modelID string, c *Completion, start time.Time) {
	zap.L().Debug("llm: completion received",
		zap.String("provider", provider),
		zap.String("model", modelID),
		zap.Int64("input_tokens", c.Usage.InputTokens),
		zap.Int64("output_tokens", c.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
}
