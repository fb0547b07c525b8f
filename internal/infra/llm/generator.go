package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/yanqian/clinic-assistant/internal/domain/conversation"
	"github.com/yanqian/clinic-assistant/internal/infra/llm/chatgpt"
	"github.com/yanqian/clinic-assistant/pkg/metrics"
)

// ErrUnavailable is returned when no generator is configured.
var ErrUnavailable = errors.New("llm generator not configured")

// ChatGPTGenerator adapts the ChatGPT client to the conversation domain.
type ChatGPTGenerator struct {
	client      *chatgpt.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewChatGPTGenerator constructs the adapter.
func NewChatGPTGenerator(client *chatgpt.Client, model string, temperature float32, maxTokens int) *ChatGPTGenerator {
	return &ChatGPTGenerator{client: client, model: model, temperature: temperature, maxTokens: maxTokens}
}

// Generate sends the system prompt, prior turns and the message as one
// chat completion.
func (g *ChatGPTGenerator) Generate(ctx context.Context, req conversation.GenerationRequest) (conversation.Generation, error) {
	messages := make([]chatgpt.Message, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, chatgpt.Message{Role: "system", Content: req.System})
	}
	for _, turn := range req.History {
		messages = append(messages, chatgpt.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatgpt.Message{Role: "user", Content: req.Message})

	resp, err := g.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return conversation.Generation{}, err
	}
	out := conversation.Generation{Usage: metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}}
	if len(resp.Choices) > 0 {
		out.Text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	return out, nil
}

// UnavailableGenerator stands in when no API key is configured, so every
// fallback turns into the apology reply.
type UnavailableGenerator struct{}

// Generate always fails with ErrUnavailable.
func (UnavailableGenerator) Generate(context.Context, conversation.GenerationRequest) (conversation.Generation, error) {
	return conversation.Generation{}, ErrUnavailable
}

var (
	_ conversation.Generator = (*ChatGPTGenerator)(nil)
	_ conversation.Generator = UnavailableGenerator{}
)
