package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func geminiJSONBody(t *testing.T, content string) string {
	t.Helper()
	resp := map[string]any{
		"candidates": []map[string]any{
			{
				"content":      map[string]any{"parts": []map[string]any{{"text": content}}},
				"finishReason": "STOP",
			},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     100,
			"candidatesTokenCount": 50,
			"totalTokenCount":      150,
		},
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return string(b)
}

func TestGeminiClient_Analyze(t *testing.T) {
	extraction := `{"characters":[{"name":"Ishmael","description":"The narrator."}]}`

	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
				t.Errorf("api key header = %q, want test-key", got)
			}
			var req geminiRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.GenerationConfig.Temperature != Temperature {
				t.Errorf("temperature = %v, want %v", req.GenerationConfig.Temperature, Temperature)
			}
			if req.GenerationConfig.ResponseMimeType != "application/json" {
				t.Errorf("responseMimeType = %q", req.GenerationConfig.ResponseMimeType)
			}
			w.Write([]byte(geminiJSONBody(t, extraction)))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
		result, err := client.Analyze(context.Background(), &AnalysisRequest{System: "sys", Prompt: "chunk"})
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if result.Extraction == nil || len(result.Extraction.Characters) != 1 {
			t.Fatalf("extraction = %+v, want one character", result.Extraction)
		}
		if result.Extraction.Characters[0].Name != "Ishmael" {
			t.Errorf("character name = %q", result.Extraction.Characters[0].Name)
		}
		if result.TotalTokens != 150 {
			t.Errorf("total tokens = %d, want 150", result.TotalTokens)
		}
		if result.Attempts != 1 {
			t.Errorf("attempts = %d, want 1", result.Attempts)
		}
	})

	t.Run("retries 503 then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(geminiJSONBody(t, extraction)))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL, RetryDelay: time.Millisecond})
		result, err := client.Analyze(context.Background(), &AnalysisRequest{Prompt: "chunk"})
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if result.Attempts != 3 {
			t.Errorf("attempts = %d, want 3", result.Attempts)
		}
		if calls.Load() != 3 {
			t.Errorf("server saw %d calls, want 3", calls.Load())
		}
	})

	t.Run("exhausts retry budget on 503", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL, RetryDelay: time.Millisecond})
		_, err := client.Analyze(context.Background(), &AnalysisRequest{Prompt: "chunk"})
		var provErr *ProviderError
		if !errors.As(err, &provErr) || provErr.Code != http.StatusServiceUnavailable {
			t.Fatalf("error = %v, want ProviderError 503", err)
		}
		if calls.Load() != 4 {
			t.Errorf("server saw %d calls, want 4", calls.Load())
		}
	})

	t.Run("terminal status is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"invalid argument"}}`))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL, RetryDelay: time.Millisecond})
		_, err := client.Analyze(context.Background(), &AnalysisRequest{Prompt: "chunk"})
		var provErr *ProviderError
		if !errors.As(err, &provErr) || provErr.Code != http.StatusBadRequest {
			t.Fatalf("error = %v, want ProviderError 400", err)
		}
		if calls.Load() != 1 {
			t.Errorf("server saw %d calls, want 1", calls.Load())
		}
	})

	t.Run("safety block yields empty extraction", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
		result, err := client.Analyze(context.Background(), &AnalysisRequest{Prompt: "chunk"})
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if !result.Blocked {
			t.Error("expected Blocked result")
		}
		if result.Extraction == nil || !result.Extraction.Empty() {
			t.Errorf("extraction = %+v, want empty", result.Extraction)
		}
	})

	t.Run("malformed content is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(geminiJSONBody(t, "I could not produce structured output.")))
		}))
		defer server.Close()

		client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL, RetryDelay: time.Millisecond})
		_, err := client.Analyze(context.Background(), &AnalysisRequest{Prompt: "chunk"})
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("error = %v, want ErrMalformedResponse", err)
		}
		if calls.Load() != 1 {
			t.Errorf("server saw %d calls, want 1", calls.Load())
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		client := NewGeminiClient(GeminiConfig{})
		_, err := client.Analyze(context.Background(), &AnalysisRequest{Prompt: "chunk"})
		if !errors.Is(err, ErrNoAPIKey) {
			t.Fatalf("error = %v, want ErrNoAPIKey", err)
		}
	})
}
