package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultInferenceBase    = "https://api-inference.huggingface.co/models"
	defaultInferenceTimeout = 30 * time.Second
)

// InferenceConfig configures the hosted text-classification backend.
type InferenceConfig struct {
	// Model is the repository ID of the classification model.
	Model string

	// BaseURL overrides the inference endpoint. Useful for self-hosted
	// text-classification servers exposing the same API shape.
	// Defaults to the Hugging Face inference API when empty.
	BaseURL string

	// APIKey is an optional bearer token.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to 30 s.
	Timeout time.Duration
}

// inferenceRequest is the wire request for a hosted classification call.
type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	Truncation bool `json:"truncation"`
	MaxLength  int  `json:"max_length"`
	TopK       int  `json:"top_k"`
}

// NewInferencePipeline returns a PipelineFunc backed by a hosted
// text-classification endpoint. The response body is returned raw; the
// Classifier decodes and unwraps it.
func NewInferencePipeline(cfg InferenceConfig) PipelineFunc {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultInferenceBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultInferenceTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return func(ctx context.Context, text string, truncate bool, maxLength int) (json.RawMessage, error) {
		resp, err := client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(inferenceRequest{
				Inputs: text,
				Parameters: inferenceParameters{
					Truncation: truncate,
					MaxLength:  maxLength,
					TopK:       1,
				},
			}).
			Post("/" + cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("inference request: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("inference request failed (HTTP %d): %.200s", resp.StatusCode(), resp.Body())
		}
		return json.RawMessage(resp.Body()), nil
	}
}
