package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-report/internal/config"
	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/pkg/openai"
)

// OpenAI adapts pkg/openai to Provider.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI wraps an OpenAI client.
func NewOpenAI(client openai.Client) *OpenAI {
	return &OpenAI{client: client}
}

// Name implements Provider.
func (p *OpenAI) Name() string { return config.ProviderOpenAI }

// Complete sends msgs as-is and returns the first choice's content verbatim.
func (p *OpenAI) Complete(ctx context.Context, modelID string, msgs []Message) (*Completion, error) {
	start := time.Now()

	req := openai.ChatRequest{Model: modelID, Messages: make([]openai.Message, len(msgs))}
	for i, m := range msgs {
		req.Messages[i] = openai.Message{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai complete")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("llm: openai response contained no choices")
	}

	out := &Completion{
		Text:  resp.Choices[0].Content,
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if out.Model == "" {
		out.Model = modelID
	}
	logCompletion(p.Name(), modelID, out, start)
	return out, nil
}
