package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClassifier_PredictNestedResult(t *testing.T) {
	var calls []struct {
		text      string
		truncate  bool
		maxLength int
	}
	factory := func() (PipelineFunc, error) {
		return func(ctx context.Context, text string, truncate bool, maxLength int) (json.RawMessage, error) {
			calls = append(calls, struct {
				text      string
				truncate  bool
				maxLength int
			}{text, truncate, maxLength})
			return json.RawMessage(`[[{"label": "joy", "score": 0.92}]]`), nil
		}, nil
	}

	c := New(factory, "", nil)
	p, err := c.Predict(context.Background(), "I am so happy")
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}

	if p.Label != "joy" {
		t.Errorf("expected label joy, got %q", p.Label)
	}
	if math.Abs(p.Score-0.92) > 1e-9 {
		t.Errorf("expected score 0.92, got %v", p.Score)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(calls))
	}
	if !calls[0].truncate || calls[0].maxLength != 512 {
		t.Errorf("expected truncation with max length 512, got %+v", calls[0])
	}
	if calls[0].text != "I am so happy" {
		t.Errorf("unexpected input text %q", calls[0].text)
	}
}

func TestClassifier_PredictFlatResult(t *testing.T) {
	factory := func() (PipelineFunc, error) {
		return func(ctx context.Context, text string, truncate bool, maxLength int) (json.RawMessage, error) {
			return json.RawMessage(`[{"label": "anger", "score": 0.71}, {"label": "joy", "score": 0.2}]`), nil
		}, nil
	}

	c := New(factory, "", nil)
	p, err := c.Predict(context.Background(), "grr")
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if p.Label != "anger" {
		t.Errorf("expected top candidate anger, got %q", p.Label)
	}
}

func TestClassifier_FactoryInvokedOnce(t *testing.T) {
	built := 0
	factory := func() (PipelineFunc, error) {
		built++
		return func(ctx context.Context, text string, truncate bool, maxLength int) (json.RawMessage, error) {
			return json.RawMessage(`[{"label": "love", "score": 1.0}]`), nil
		}, nil
	}

	c := New(factory, "", nil)
	if built != 0 {
		t.Fatalf("factory invoked eagerly: %d builds before first Predict", built)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Predict(context.Background(), "hi"); err != nil {
			t.Fatalf("Predict(%d) error: %v", i, err)
		}
	}
	if built != 1 {
		t.Errorf("expected factory memoized after one build, got %d builds", built)
	}
}

func TestClassifier_FactoryErrorPropagates(t *testing.T) {
	wantErr := errors.New("no backend available")
	factory := func() (PipelineFunc, error) {
		return nil, wantErr
	}

	c := New(factory, "", nil)
	for i := 0; i < 2; i++ {
		_, err := c.Predict(context.Background(), "hi")
		if !errors.Is(err, wantErr) {
			t.Fatalf("call %d: expected factory error, got %v", i, err)
		}
	}
}

func TestClassifier_EmptyResult(t *testing.T) {
	for _, raw := range []string{`[]`, `[[]]`} {
		factory := func() (PipelineFunc, error) {
			return func(ctx context.Context, text string, truncate bool, maxLength int) (json.RawMessage, error) {
				return json.RawMessage(raw), nil
			}, nil
		}
		c := New(factory, "", nil)
		_, err := c.Predict(context.Background(), "hi")
		if !errors.Is(err, ErrNoPrediction) {
			t.Errorf("result %s: expected ErrNoPrediction, got %v", raw, err)
		}
	}
}

func TestClassifier_MalformedResult(t *testing.T) {
	malformed := []string{
		`"just a string"`,
		`[42]`,
		`[{"score": 0.9}]`,
		`[{"label": "joy"}]`,
	}
	for _, raw := range malformed {
		factory := func() (PipelineFunc, error) {
			return func(ctx context.Context, text string, truncate bool, maxLength int) (json.RawMessage, error) {
				return json.RawMessage(raw), nil
			}, nil
		}
		c := New(factory, "", nil)
		_, err := c.Predict(context.Background(), "hi")
		if !errors.Is(err, ErrMalformedPrediction) {
			t.Errorf("result %s: expected ErrMalformedPrediction, got %v", raw, err)
		}
	}
}

func TestClassifier_DefaultModel(t *testing.T) {
	c := New(nil, "", nil)
	if c.Model() != DefaultModel {
		t.Errorf("expected default model, got %q", c.Model())
	}

	c = New(nil, "custom/model", nil)
	if c.Model() != "custom/model" {
		t.Errorf("expected custom model, got %q", c.Model())
	}
}

func TestInferencePipeline_Request(t *testing.T) {
	var gotPath string
	var gotReq inferenceRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`[[{"label": "sadness", "score": 0.8}]]`))
	}))
	defer server.Close()

	pipeline := NewInferencePipeline(InferenceConfig{
		Model:   "some/model",
		BaseURL: server.URL,
	})

	raw, err := pipeline(context.Background(), "feeling blue", true, 512)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}

	if gotPath != "/some/model" {
		t.Errorf("expected path /some/model, got %q", gotPath)
	}
	if gotReq.Inputs != "feeling blue" {
		t.Errorf("unexpected inputs %q", gotReq.Inputs)
	}
	if !gotReq.Parameters.Truncation || gotReq.Parameters.MaxLength != 512 {
		t.Errorf("unexpected parameters %+v", gotReq.Parameters)
	}

	p, err := topCandidate(raw)
	if err != nil {
		t.Fatalf("topCandidate error: %v", err)
	}
	if p.Label != "sadness" {
		t.Errorf("expected sadness, got %q", p.Label)
	}
}

func TestInferencePipeline_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	pipeline := NewInferencePipeline(InferenceConfig{Model: "m", BaseURL: server.URL})
	if _, err := pipeline(context.Background(), "hi", true, 512); err == nil {
		t.Fatal("expected error for HTTP failure")
	}
}
