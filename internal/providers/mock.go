package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/inkbound/xray/internal/xray"
)

const MockClientName = "mock"

// MockClient is an Analyzer for testing.
type MockClient struct {
	// Configurable behavior
	Latency    time.Duration
	ShouldFail bool
	FailAfter  int // fail after N requests (0 = never)
	Blocked    bool
	Extraction *xray.Extraction
	Content    string

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:    time.Millisecond,
		Extraction: &xray.Extraction{},
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// RequestCount returns the number of Analyze calls made so far.
func (c *MockClient) RequestCount() int {
	return int(c.requestCount.Load())
}

// Analyze returns the configured extraction after the configured latency.
func (c *MockClient) Analyze(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.Latency):
	}

	result := &AnalysisResult{
		Provider:  MockClientName,
		ModelUsed: "mock-model",
		RequestID: fmt.Sprintf("mock-%d", count),
		Attempts:  1,
	}

	if c.ShouldFail || (c.FailAfter > 0 && int(count) > c.FailAfter) {
		result.ExecutionTime = time.Since(start)
		return result, &ProviderError{Provider: MockClientName, Code: 500, Detail: "mock client configured to fail"}
	}

	if c.Blocked {
		result.Blocked = true
		result.Extraction = &xray.Extraction{Blocked: true}
		result.ExecutionTime = time.Since(start)
		return result, nil
	}

	result.Content = c.Content
	result.Extraction = c.Extraction
	result.PromptTokens = len(req.Prompt) / 4
	result.CompletionTokens = 64
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// Verify interface
var _ Analyzer = (*MockClient)(nil)
