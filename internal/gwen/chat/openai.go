package chat

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures the OpenAI-compatible chat backend.
type OpenAIConfig struct {
	// APIKey is the bearer token used to authenticate against the API.
	APIKey string

	// BaseURL overrides the API endpoint. Useful for Azure OpenAI or any
	// other OpenAI-compatible endpoint. Empty uses the public API.
	BaseURL string
}

// NewOpenAI returns a Func backed by the OpenAI (or compatible) chat API.
// The returned function is safe for concurrent use.
func NewOpenAI(cfg OpenAIConfig) Func {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	return func(ctx context.Context, model string, messages []Message) (Completion, error) {
		if model == "" {
			model = defaultOpenAIModel
		}

		reqMessages := make([]openai.ChatCompletionMessage, len(messages))
		for i, m := range messages {
			reqMessages[i] = openai.ChatCompletionMessage{
				Role:    m.Role,
				Content: m.Content,
			}
		}

		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    model,
			Messages: reqMessages,
		})
		if err != nil {
			return Completion{}, fmt.Errorf("openai: chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Completion{}, fmt.Errorf("openai: no choices returned")
		}

		choice := resp.Choices[0].Message
		return Completion{Message: &AssistantMessage{
			Role:    choice.Role,
			Content: choice.Content,
		}}, nil
	}
}
