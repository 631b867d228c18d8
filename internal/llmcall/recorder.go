package llmcall

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/inkbound/xray/internal/providers"
)

// Recorder handles fire-and-forget call recording to a JSONL file.
// A nil Recorder is safe to use and records nothing.
type Recorder struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewRecorder creates a recorder appending to the given file path.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path, logger: slog.Default()}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger *slog.Logger) {
	if r == nil {
		return
	}
	r.logger = logger
}

// Record captures a provider call. Failures to write are logged, never
// surfaced; recording must not affect the analysis session.
func (r *Recorder) Record(result *providers.AnalysisResult, err error, opts RecordOptions) {
	if r == nil {
		return
	}
	r.RecordCall(FromResult(result, err, opts))
}

// RecordCall appends an already-constructed Call.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || call == nil {
		return
	}

	line, err := json.Marshal(call)
	if err != nil {
		r.logger.Warn("failed to serialize call record", "error", err)
		return
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		r.logger.Warn("failed to open call log", "path", r.path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		r.logger.Warn("failed to append call record", "path", r.path, "error", err)
	}
}
