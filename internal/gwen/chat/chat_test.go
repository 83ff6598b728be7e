package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompletion_AssistantText(t *testing.T) {
	tests := []struct {
		name       string
		completion Completion
		want       string
		wantErr    bool
	}{
		{
			name:       "raw string",
			completion: TextCompletion("hello"),
			want:       "hello",
		},
		{
			name:       "empty raw string",
			completion: TextCompletion(""),
			want:       "",
		},
		{
			name:       "empty typed message content",
			completion: Completion{Message: &AssistantMessage{Role: "assistant"}},
			want:       "",
		},
		{
			name:       "typed message object",
			completion: Completion{Message: &AssistantMessage{Role: "assistant", Content: "hi there"}},
			want:       "hi there",
		},
		{
			name: "raw mapping with nested content",
			completion: Completion{Raw: map[string]any{
				"message": map[string]any{"role": "assistant", "content": "from the map"},
			}},
			want: "from the map",
		},
		{
			name:       "empty completion",
			completion: Completion{},
			wantErr:    true,
		},
		{
			name:       "mapping without message entry",
			completion: Completion{Raw: map[string]any{"choices": []any{}}},
			wantErr:    true,
		},
		{
			name: "mapping with message but no content",
			completion: Completion{Raw: map[string]any{
				"message": map[string]any{"role": "assistant"},
			}},
			wantErr: true,
		},
		{
			name: "mapping with non-string content",
			completion: Completion{Raw: map[string]any{
				"message": map[string]any{"content": 42},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.completion.AssistantText()
			if tt.wantErr {
				if !errors.Is(err, ErrUnrecognizedShape) {
					t.Fatalf("expected ErrUnrecognizedShape, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AssistantText() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestOllama_Chat(t *testing.T) {
	var gotReq ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaResponse{
			Message: AssistantMessage{Role: "assistant", Content: "response text"},
			Done:    true,
		})
	}))
	defer server.Close()

	fn := NewOllama(OllamaConfig{BaseURL: server.URL})
	completion, err := fn(context.Background(), "llama3.2", []Message{
		{Role: "system", Content: "persona"},
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("chat error: %v", err)
	}

	if gotReq.Model != "llama3.2" {
		t.Errorf("expected model llama3.2, got %q", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("expected streaming disabled")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("unexpected message window: %+v", gotReq.Messages)
	}

	text, err := completion.AssistantText()
	if err != nil {
		t.Fatalf("AssistantText() error: %v", err)
	}
	if text != "response text" {
		t.Errorf("expected %q, got %q", "response text", text)
	}
}

func TestOpenAI_Chat(t *testing.T) {
	var gotReq struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hi from api"}}]}`)
	}))
	defer server.Close()

	fn := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	completion, err := fn(context.Background(), "", []Message{{Role: "user", Content: "hello"}})
	if err != nil {
		t.Fatalf("chat error: %v", err)
	}

	if gotReq.Model != defaultOpenAIModel {
		t.Errorf("expected default model %q, got %q", defaultOpenAIModel, gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "hello" {
		t.Errorf("unexpected message window: %+v", gotReq.Messages)
	}

	text, err := completion.AssistantText()
	if err != nil {
		t.Fatalf("AssistantText() error: %v", err)
	}
	if text != "hi from api" {
		t.Errorf("expected %q, got %q", "hi from api", text)
	}
}

func TestOllama_ChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "model not found"})
	}))
	defer server.Close()

	fn := NewOllama(OllamaConfig{BaseURL: server.URL})
	_, err := fn(context.Background(), "missing-model", []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestOllama_DefaultModel(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		json.NewEncoder(w).Encode(ollamaResponse{
			Message: AssistantMessage{Role: "assistant", Content: "ok"},
			Done:    true,
		})
	}))
	defer server.Close()

	fn := NewOllama(OllamaConfig{BaseURL: server.URL})
	if _, err := fn(context.Background(), "", []Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("chat error: %v", err)
	}
	if gotModel != defaultOllamaModel {
		t.Errorf("expected default model %q, got %q", defaultOllamaModel, gotModel)
	}
}
