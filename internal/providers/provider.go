// Package providers implements the AI backends that turn a text chunk
// into a structured extraction, behind a single Analyzer interface.
package providers

import (
	"context"
	"time"

	"github.com/inkbound/xray/internal/xray"
)

// Sampling parameters are fixed low for extraction work across all
// providers; structured output does not benefit from creative sampling.
const (
	Temperature = 0.4
	TopP        = 0.95
)

// DefaultTimeout is the per-attempt request timeout.
const DefaultTimeout = 60 * time.Second

// Analyzer is the uniform interface over AI backends.
type Analyzer interface {
	// Analyze sends one chunk's prompt and returns the parsed
	// extraction. A content-safety block is not an error: the result
	// carries an empty extraction with Blocked set, so the pipeline
	// continues rather than aborting the session.
	Analyze(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error)

	// Name returns the client identifier (e.g., "gemini").
	Name() string
}

// AnalysisRequest is one chunk-analysis request.
type AnalysisRequest struct {
	// System is the system instruction establishing the extraction task.
	System string

	// Prompt is the user prompt: accumulated context plus chunk text.
	Prompt string

	// RequestID is generated when empty.
	RequestID string
}

// AnalysisResult is the complete response from one provider call.
type AnalysisResult struct {
	// Extraction is the parsed payload. Always non-nil on success;
	// empty when the provider blocked the content.
	Extraction *xray.Extraction

	// Content is the raw text reply before JSON extraction.
	Content string

	// Blocked marks a content-safety refusal absorbed into an empty
	// extraction.
	Blocked bool

	// Token counts, when the provider reports them.
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	Provider  string
	ModelUsed string
	RequestID string
	Attempts  int

	ExecutionTime time.Duration
}
