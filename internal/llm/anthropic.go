package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-report/internal/config"
	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/pkg/anthropic"
)

// DefaultAnthropicMaxTokens is used when no max_tokens is configured.
// The Messages API requires one.
const DefaultAnthropicMaxTokens int64 = 4096

// Anthropic adapts pkg/anthropic to Provider.
type Anthropic struct {
	client    anthropic.Client
	maxTokens int64
}

// NewAnthropic wraps an Anthropic client.
func NewAnthropic(client anthropic.Client, maxTokens int64) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}
	return &Anthropic{client: client, maxTokens: maxTokens}
}

// Name implements Provider.
func (p *Anthropic) Name() string { return config.ProviderAnthropic }

// Complete moves system messages into system blocks and sends the rest in order.
func (p *Anthropic) Complete(ctx context.Context, modelID string, msgs []Message) (*Completion, error) {
	start := time.Now()

	req := anthropic.MessageRequest{Model: modelID, MaxTokens: p.maxTokens}
	for _, m := range msgs {
		if m.Role == RoleSystem {
			req.System = append(req.System, anthropic.SystemBlock{Text: m.Content})
			continue
		}
		req.Messages = append(req.Messages, anthropic.Message{Role: m.Role, Content: m.Content})
	}
	if len(req.Messages) == 0 {
		return nil, eris.New("llm: anthropic request has no user message")
	}

	resp, err := p.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic complete")
	}

	out := &Completion{
		Text:  resp.Text(),
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	if out.Model == "" {
		out.Model = modelID
	}
	logCompletion(p.Name(), modelID, out, start)
	return out, nil
}
