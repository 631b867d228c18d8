package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/inkbound/xray/internal/xray"
)

const (
	OpenAIName = "openai"

	openaiDefaultModel = "gpt-4o-mini"
	openaiRetryAfter   = 5 * time.Second
)

// OpenAIConfig holds configuration for an OpenAI-compatible endpoint.
// BaseURL may point at any server that speaks the chat completions
// protocol; an empty value uses the official API.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	RetryAfter time.Duration // sleep before retrying a rate limit (default: 5s)
}

// OpenAIClient implements Analyzer over the chat completions protocol.
type OpenAIClient struct {
	client     openai.Client
	model      string
	baseURL    string
	apiKey     string
	retryAfter time.Duration
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openaiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryAfter == 0 {
		cfg.RetryAfter = openaiRetryAfter
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0), // rate-limit handling is ours
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		retryAfter: cfg.RetryAfter,
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Analyze sends one chunk prompt. A 429 is retried once after a short
// delay; other API errors are terminal.
func (c *OpenAIClient) Analyze(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error) {
	start := time.Now()

	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	endpoint := c.baseURL
	if endpoint == "" {
		endpoint = "https://api.openai.com"
	}
	if err := checkConnectivity(endpoint); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(Temperature),
		TopP:        openai.Float(TopP),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}

	result := &AnalysisResult{
		Provider:  OpenAIName,
		ModelUsed: c.model,
		RequestID: requestID,
		Attempts:  1,
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil && isRateLimited(err) {
		select {
		case <-ctx.Done():
			result.ExecutionTime = time.Since(start)
			return result, ctx.Err()
		case <-time.After(c.retryAfter):
		}
		result.Attempts = 2
		completion, err = c.client.Chat.Completions.New(ctx, params)
	}
	result.ExecutionTime = time.Since(start)
	if err != nil {
		if isTimeout(err) {
			return result, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return result, &ProviderError{Provider: OpenAIName, Code: apiErr.StatusCode, Detail: apiErr.Message}
		}
		return result, fmt.Errorf("request failed: %w", err)
	}

	result.PromptTokens = int(completion.Usage.PromptTokens)
	result.CompletionTokens = int(completion.Usage.CompletionTokens)
	result.TotalTokens = int(completion.Usage.TotalTokens)

	if len(completion.Choices) == 0 {
		return result, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}
	choice := completion.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)

	// Compatible servers signal refusal via the finish reason or by
	// returning empty content.
	if choice.FinishReason == "content_filter" || content == "" {
		result.Blocked = true
		result.Extraction = &xray.Extraction{Blocked: true}
		return result, nil
	}
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

func isRateLimited(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// Verify interface
var _ Analyzer = (*OpenAIClient)(nil)
