package openai

import (
	"context"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rotisserie/eris"
)

// Client defines the OpenAI API operations used by the reporter.
type Client interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is our own request type for CreateChatCompletion.
type ChatRequest struct {
	Model    string
	Messages []Message
}

// Message represents a single role-tagged chat message.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// ChatResponse is our own response type from CreateChatCompletion.
type ChatResponse struct {
	ID      string
	Model   string
	Choices []Choice
	Usage   TokenUsage
}

// Choice is one completion candidate.
type Choice struct {
	Index        int64
	Content      string
	FinishReason string
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Option configures the SDK client.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at a different API root (proxies, test servers).
func WithBaseURL(url string) Option {
	return func(opts *[]option.RequestOption) {
		if url != "" {
			*opts = append(*opts, option.WithBaseURL(url))
		}
	}
}

// sdkClient implements Client using the official openai-go SDK.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new OpenAI client backed by the SDK. An empty apiKey is
// accepted; the API rejects the first call instead. SDK retries are always
// off.
func NewClient(apiKey string, opts ...Option) Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	for _, o := range opts {
		o(&reqOpts)
	}
	return &sdkClient{
		client: sdk.NewClient(reqOpts...),
	}
}

func (c *sdkClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, eris.New("openai: no messages")
	}

	resp, err := c.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: toSDKMessages(req.Messages),
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}

	out := fromSDKCompletion(resp)
	if len(out.Choices) == 0 {
		return nil, eris.New("openai: response contained no choices")
	}
	return out, nil
}

// --- SDK type conversion helpers ---

func toSDKMessages(msgs []Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case "system":
			out[i] = sdk.SystemMessage(m.Content)
		case "assistant":
			out[i] = sdk.AssistantMessage(m.Content)
		default:
			out[i] = sdk.UserMessage(m.Content)
		}
	}
	return out
}

func fromSDKCompletion(resp *sdk.ChatCompletion) *ChatResponse {
	choices := make([]Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, Choice{
			Index:        c.Index,
			Content:      c.Message.Content,
			FinishReason: c.FinishReason,
		})
	}
	return &ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}
