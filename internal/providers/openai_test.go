package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAIClient_Analyze(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id":"chatcmpl-1",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"locations\":[{\"name\":\"Nantucket\",\"description\":\"A whaling port.\"}]}"}}],
				"usage":{"prompt_tokens":60,"completion_tokens":30,"total_tokens":90}
			}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
		result, err := client.Analyze(context.Background(), &AnalysisRequest{System: "sys", Prompt: "chunk"})
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if len(result.Extraction.Locations) != 1 || result.Extraction.Locations[0].Name != "Nantucket" {
			t.Errorf("locations = %+v", result.Extraction.Locations)
		}
		if result.TotalTokens != 90 {
			t.Errorf("total tokens = %d, want 90", result.TotalTokens)
		}
	})

	t.Run("rate limit retried once", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
				return
			}
			w.Write([]byte(`{
				"id":"chatcmpl-2",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{}"}}],
				"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}
			}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1", RetryAfter: time.Millisecond})
		result, err := client.Analyze(context.Background(), &AnalysisRequest{Prompt: "chunk"})
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if result.Attempts != 2 {
			t.Errorf("attempts = %d, want 2", result.Attempts)
		}
		if calls.Load() != 2 {
			t.Errorf("server saw %d calls, want 2", calls.Load())
		}
	})

	t.Run("content filter yields blocked result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id":"chatcmpl-3",
				"choices":[{"index":0,"finish_reason":"content_filter","message":{"role":"assistant","content":""}}],
				"usage":{"prompt_tokens":10,"completion_tokens":0,"total_tokens":10}
			}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
		result, err := client.Analyze(context.Background(), &AnalysisRequest{Prompt: "chunk"})
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if !result.Blocked {
			t.Error("expected Blocked result")
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{})
		_, err := client.Analyze(context.Background(), &AnalysisRequest{Prompt: "chunk"})
		if !errors.Is(err, ErrNoAPIKey) {
			t.Fatalf("error = %v, want ErrNoAPIKey", err)
		}
	})
}
