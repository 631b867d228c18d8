package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/inkbound/xray/internal/xray"
)

const (
	GeminiName    = "gemini"
	GeminiBaseURL = "https://generativelanguage.googleapis.com"

	geminiDefaultModel = "gemini-2.5-flash-lite"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration // per attempt
	MaxRetries int           // additional attempts after the first (default: 3)
	RetryDelay time.Duration // fixed sleep between attempts (default: 3s)
}

// GeminiClient implements Analyzer against the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = geminiDefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 3 * time.Second
	}

	return &GeminiClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Analyze sends one chunk prompt. Transport failures and 503/504 are
// retried with a fixed delay up to the retry budget; all other non-2xx
// statuses are terminal.
func (c *GeminiClient) Analyze(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error) {
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

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      Temperature,
			TopP:             TopP,
			ResponseMimeType: "application/json",
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	attempts := 0
	var resp *geminiResponse
	err := retry.Do(
		func() error {
			attempts++
			r, err := c.doRequest(ctx, &body)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries+1)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)

	result := &AnalysisResult{
		Provider:  GeminiName,
		ModelUsed: c.model,
		RequestID: requestID,
		Attempts:  attempts,
	}

	if err != nil {
		result.ExecutionTime = time.Since(start)
		if isTimeout(err) {
			return result, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return result, err
	}

	result.PromptTokens = resp.UsageMetadata.PromptTokenCount
	result.CompletionTokens = resp.UsageMetadata.CandidatesTokenCount
	result.TotalTokens = resp.UsageMetadata.TotalTokenCount
	result.ExecutionTime = time.Since(start)

	// Safety block: absorb into an empty-but-valid extraction. Partial
	// silence is preferable to halting progressive analysis.
	if resp.blocked() {
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

// doRequest performs one HTTP attempt. Transport errors and retryable
// statuses return plain errors; terminal statuses are unrecoverable.
func (c *GeminiClient) doRequest(ctx context.Context, body *geminiRequest) (*geminiResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if retryableStatus(resp.StatusCode) {
		return nil, &ProviderError{Provider: GeminiName, Code: resp.StatusCode, Detail: strings.TrimSpace(string(respBody))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Unrecoverable(&ProviderError{
			Provider: GeminiName,
			Code:     resp.StatusCode,
			Detail:   strings.TrimSpace(string(respBody)),
		})
	}

	var gResp geminiResponse
	if err := json.Unmarshal(respBody, &gResp); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	return &gResp, nil
}

// isTimeout reports whether an error chain contains a network timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Gemini API types

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// blocked reports whether the prompt or response was refused by the
// content-safety policy.
func (r *geminiResponse) blocked() bool {
	if r.PromptFeedback.BlockReason != "" {
		return true
	}
	for _, c := range r.Candidates {
		if strings.EqualFold(c.FinishReason, "SAFETY") {
			return true
		}
	}
	return false
}

// text concatenates all candidate parts of the first candidate.
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Verify interface
var _ Analyzer = (*GeminiClient)(nil)
