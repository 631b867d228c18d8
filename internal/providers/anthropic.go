package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkbound/xray/internal/xray"
)

const (
	AnthropicName    = "anthropic"
	AnthropicBaseURL = "https://api.anthropic.com"

	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-haiku-4-5"
	anthropicMaxTokens    = 8192
)

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// AnthropicClient implements Analyzer against the Anthropic Messages API.
// Unlike the Gemini path it makes a single attempt per chunk; the
// orchestrator decides whether a failed chunk degrades the run.
type AnthropicClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.Model == "" {
		cfg.Model = anthropicDefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = AnthropicBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &AnthropicClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the client identifier.
func (c *AnthropicClient) Name() string {
	return AnthropicName
}

// Analyze sends one chunk prompt to the Messages API.
func (c *AnthropicClient) Analyze(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error) {
	start := time.Now()

	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if err := checkConnectivity(c.baseURL); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	body := anthropicRequest{
		Model:       c.model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: Temperature,
		TopP:        TopP,
		System:      req.System,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	result := &AnalysisResult{
		Provider:  AnthropicName,
		ModelUsed: c.model,
		RequestID: requestID,
		Attempts:  1,
	}

	resp, err := c.doRequest(ctx, &body)
	result.ExecutionTime = time.Since(start)
	if err != nil {
		if isTimeout(err) {
			return result, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return result, err
	}

	result.PromptTokens = resp.Usage.InputTokens
	result.CompletionTokens = resp.Usage.OutputTokens
	result.TotalTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens

	if resp.StopReason == "refusal" {
		result.Blocked = true
		result.Extraction = &xray.Extraction{Blocked: true}
		return result, nil
	}

	content := resp.text()
	result.Content = content

	raw, err := ExtractJSON(content)
	if err != nil {
		return result, err
	}
	ext, err := xray.ParseExtraction(raw)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	result.Extraction = ext
	return result, nil
}

func (c *AnthropicClient) doRequest(ctx context.Context, body *anthropicRequest) (*anthropicResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: AnthropicName,
			Code:     resp.StatusCode,
			Detail:   strings.TrimSpace(string(respBody)),
		}
	}

	var aResp anthropicResponse
	if err := json.Unmarshal(respBody, &aResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &aResp, nil
}

// Anthropic API types

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	TopP        float64            `json:"top_p,omitempty"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r *anthropicResponse) text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// Verify interface
var _ Analyzer = (*AnthropicClient)(nil)
