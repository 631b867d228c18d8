// Package llmcall provides provider call recording for traceability.
// Every analysis API call is appended to a JSONL log with its timing,
// token usage, and outcome.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/inkbound/xray/internal/providers"
)

// Call represents a recorded provider API call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	BookTitle  string `json:"book_title,omitempty"`
	ChunkIndex int    `json:"chunk_index,omitempty"`

	// Model info
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Status
	Attempts int    `json:"attempts"`
	Blocked  bool   `json:"blocked,omitempty"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// RecordOptions provides context for recording a provider call.
type RecordOptions struct {
	BookTitle  string
	ChunkIndex int
}

// FromResult creates a Call from an AnalysisResult. The result may be
// partially populated when the call failed; err carries the outcome.
// Returns nil if result is nil.
func FromResult(result *providers.AnalysisResult, err error, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(result.ExecutionTime.Milliseconds()),
		BookTitle:    opts.BookTitle,
		ChunkIndex:   opts.ChunkIndex,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		Attempts:     result.Attempts,
		Blocked:      result.Blocked,
		Success:      err == nil,
	}
	if err != nil {
		call.Error = err.Error()
	}
	return call
}
