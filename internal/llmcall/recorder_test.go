package llmcall

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inkbound/xray/internal/providers"
)

func TestRecorder_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	r := NewRecorder(path)

	r.Record(&providers.AnalysisResult{
		Provider:         "gemini",
		ModelUsed:        "gemini-2.5-flash-lite",
		PromptTokens:     100,
		CompletionTokens: 40,
		Attempts:         1,
		ExecutionTime:    1200 * time.Millisecond,
	}, nil, RecordOptions{BookTitle: "Moby-Dick", ChunkIndex: 3})

	r.Record(&providers.AnalysisResult{
		Provider: "gemini",
		Attempts: 4,
	}, errors.New("request failed: connection refused"), RecordOptions{BookTitle: "Moby-Dick", ChunkIndex: 4})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var calls []Call
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var c Call
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		calls = append(calls, c)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d records, want 2", len(calls))
	}

	first := calls[0]
	if !first.Success || first.Provider != "gemini" || first.LatencyMs != 1200 {
		t.Errorf("first record = %+v", first)
	}
	if first.ID == "" {
		t.Error("record missing id")
	}

	second := calls[1]
	if second.Success || second.Error == "" || second.Attempts != 4 {
		t.Errorf("second record = %+v", second)
	}
}

func TestRecorder_NilSafety(t *testing.T) {
	var r *Recorder
	// Must not panic.
	r.Record(&providers.AnalysisResult{Provider: "mock"}, nil, RecordOptions{})
	r.RecordCall(nil)
	r.SetLogger(nil)

	live := NewRecorder(filepath.Join(t.TempDir(), "calls.jsonl"))
	live.Record(nil, nil, RecordOptions{})
}
