package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOllamaBase  = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
	defaultTimeout     = 120 * time.Second
)

// OllamaConfig configures the Ollama chat backend.
type OllamaConfig struct {
	// BaseURL is the Ollama server address.
	// Defaults to http://localhost:11434 when empty.
	BaseURL string

	// Timeout is the HTTP request timeout. Local model inference can take
	// a while on modest hardware, so the default is generous (120 s).
	Timeout time.Duration
}

// ollamaClient talks to the Ollama /api/chat endpoint without streaming.
type ollamaClient struct {
	cfg    OllamaConfig
	client *http.Client
}

// NewOllama returns a Func backed by a local or remote Ollama server.
// The returned function is safe for concurrent use.
func NewOllama(cfg OllamaConfig) Func {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &ollamaClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	return c.chat
}

// --- minimal Ollama wire types ---

type ollamaRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaResponse struct {
	Message AssistantMessage `json:"message"`
	Done    bool             `json:"done"`
	Error   string           `json:"error,omitempty"`
}

// chat sends the message window to Ollama and returns the completion.
// The call is made exactly once; errors are not retried here.
func (c *ollamaClient) chat(ctx context.Context, model string, messages []Message) (Completion, error) {
	if model == "" {
		model = defaultOllamaModel
	}

	body := ollamaRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Completion{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/chat",
		bytes.NewReader(data),
	)
	if err != nil {
		return Completion{}, fmt.Errorf("ollama: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("ollama: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("ollama: read response body: %w", err)
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return Completion{}, fmt.Errorf("ollama: decode API response: %w", err)
	}

	if ollamaResp.Error != "" {
		return Completion{}, fmt.Errorf("ollama: API error (HTTP %d): %s", resp.StatusCode, ollamaResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return Completion{}, fmt.Errorf("ollama: unexpected status %d: %.200s", resp.StatusCode, respBody)
	}

	msg := ollamaResp.Message
	return Completion{Message: &msg}, nil
}
