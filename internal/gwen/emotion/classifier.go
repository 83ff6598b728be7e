// Package emotion maps free text to a single best emotion label, used to
// pick the character sprite shown in the visual novel overlay.
package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultModel is the text-classification model used when none is configured.
const DefaultModel = "bhadresh-savani/distilbert-base-uncased-finetuned-emotion"

// maxInputLength is the truncation bound passed to the backend on every call.
const maxInputLength = 512

// ErrNoPrediction is returned by Predict when the backend produces an empty
// candidate list.
var ErrNoPrediction = errors.New("emotion: classifier returned no predictions")

// ErrMalformedPrediction is returned by Predict when the backend's top
// candidate is not a label/score pair.
var ErrMalformedPrediction = errors.New("emotion: unexpected classifier result format")

// Prediction is the single best label for a piece of text.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// PipelineFunc runs the underlying classification backend. It returns the
// raw candidate JSON, either a flat candidate array or one nested a single
// level deep, as inference APIs commonly shape it:
//
//	[{"label": "joy", "score": 0.92}]
//	[[{"label": "joy", "score": 0.92}]]
type PipelineFunc func(ctx context.Context, text string, truncate bool, maxLength int) (json.RawMessage, error)

// PipelineFactory builds a PipelineFunc. It is invoked at most once, on the
// first Predict call, so expensive backend setup is deferred until needed.
type PipelineFactory func() (PipelineFunc, error)

// Classifier wraps a lazily-constructed, swappable classification backend.
// It holds no history and no other state; Predict is a pure function of its
// input modulo the memoized backend handle.
type Classifier struct {
	model   string
	factory PipelineFactory
	logger  *slog.Logger

	once        sync.Once
	pipeline    PipelineFunc
	pipelineErr error
}

// New creates a Classifier. A nil factory selects the default HTTP inference
// backend for the given model; an empty model selects DefaultModel. If
// logger is nil, the default slog logger is used.
func New(factory PipelineFactory, model string, logger *slog.Logger) *Classifier {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Classifier{model: model, factory: factory, logger: logger}
	if c.factory == nil {
		c.factory = func() (PipelineFunc, error) {
			return NewInferencePipeline(InferenceConfig{Model: model}), nil
		}
	}
	return c
}

// Model returns the model identifier this classifier was built with.
func (c *Classifier) Model() string {
	return c.model
}

// Predict returns the most likely emotion for text. The backend is invoked
// with truncation enabled and a fixed maximum input length; its top
// candidate becomes the prediction. The call is never retried.
func (c *Classifier) Predict(ctx context.Context, text string) (Prediction, error) {
	c.once.Do(func() {
		c.logger.Debug("initialising emotion classification backend", "model", c.model)
		c.pipeline, c.pipelineErr = c.factory()
	})
	if c.pipelineErr != nil {
		return Prediction{}, fmt.Errorf("emotion: build pipeline: %w", c.pipelineErr)
	}

	raw, err := c.pipeline(ctx, text, true, maxInputLength)
	if err != nil {
		return Prediction{}, fmt.Errorf("emotion: classify: %w", err)
	}

	top, err := topCandidate(raw)
	if err != nil {
		return Prediction{}, err
	}

	c.logger.Debug("emotion prediction", "label", top.Label, "score", top.Score, "text_len", len(text))
	return top, nil
}

// topCandidate decodes the raw backend result and selects the first
// candidate, unwrapping one level of nesting when present.
func topCandidate(raw json.RawMessage) (Prediction, error) {
	var candidates []json.RawMessage
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrMalformedPrediction, err)
	}
	if len(candidates) == 0 {
		return Prediction{}, ErrNoPrediction
	}

	first := candidates[0]

	// Singly-nested shape: the first element is itself a candidate array.
	var nested []json.RawMessage
	if err := json.Unmarshal(first, &nested); err == nil {
		if len(nested) == 0 {
			return Prediction{}, ErrNoPrediction
		}
		first = nested[0]
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(first, &fields); err != nil {
		return Prediction{}, fmt.Errorf("%w: top candidate is not an object", ErrMalformedPrediction)
	}
	if _, ok := fields["label"]; !ok {
		return Prediction{}, fmt.Errorf("%w: top candidate has no label", ErrMalformedPrediction)
	}
	if _, ok := fields["score"]; !ok {
		return Prediction{}, fmt.Errorf("%w: top candidate has no score", ErrMalformedPrediction)
	}

	var p Prediction
	if err := json.Unmarshal(first, &p); err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrMalformedPrediction, err)
	}
	return p, nil
}
