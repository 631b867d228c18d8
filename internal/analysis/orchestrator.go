// Package analysis drives a progressive, spoiler-bounded extraction
// session: it resolves the best resume point from cache, splits the
// remaining byte range into chunks, calls the provider once per chunk
// in order, folds each reply into the running snapshot, and persists a
// resumable percent-indexed entry after every chunk.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inkbound/xray/internal/cache"
	"github.com/inkbound/xray/internal/chunk"
	"github.com/inkbound/xray/internal/llmcall"
	"github.com/inkbound/xray/internal/providers"
	"github.com/inkbound/xray/internal/xray"
)

// Request describes one analysis session. TargetPercent bounds how far
// into Source the session may read; nothing past that boundary is ever
// sent to a provider.
type Request struct {
	Title  string
	Author string
	Source []byte

	// TargetPercent is the reading position to analyze up to (1-100).
	TargetPercent int

	// Existing is an optional caller-supplied snapshot to resume from,
	// competing with the cache for the best start point.
	Existing *xray.Snapshot

	Provider providers.Analyzer
	Store    *cache.Store
	Recorder *llmcall.Recorder

	// ChunkSize overrides the default chunk byte size when positive.
	ChunkSize int

	// OnProgress, when set, is called before each chunk with the
	// 1-based chunk index and total; returning false aborts the
	// session at that boundary.
	OnProgress func(chunkIndex, totalChunks int) bool

	Logger *slog.Logger
}

// Run starts a session and returns its Task handle. The session runs
// on its own goroutine; cancellation via ctx or Task.Abort is honored
// at chunk boundaries, never mid-request.
func Run(ctx context.Context, req *Request) *Task {
	task := newTask()
	go run(ctx, req, task)
	return task
}

func run(ctx context.Context, req *Request, task *Task) {
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if req.Provider == nil {
		task.finish(Result{Status: StatusFailed, Err: errors.New("no provider configured")})
		return
	}
	if req.Store == nil {
		task.finish(Result{Status: StatusFailed, Err: errors.New("no cache store configured")})
		return
	}
	total := len(req.Source)
	if total == 0 {
		task.finish(Result{Status: StatusFailed, Err: errors.New("empty source text")})
		return
	}

	target := req.TargetPercent
	if target < 1 {
		target = 1
	}
	if target > 100 {
		target = 100
	}

	task.emit(ProgressEvent{State: StateResolving})

	snap, startPct := resolveStart(req, target, logger)
	targetByte := total * target / 100

	// A fully covering resume point means no provider work at all.
	if startPct >= target {
		snap.AnalysisProgress = target
		if err := finalize(req.Store, snap, target); err != nil {
			task.finish(Result{Status: StatusFailed, Err: err})
			return
		}
		task.emit(ProgressEvent{State: StateCompleted, Percent: target})
		task.finish(Result{Status: StatusCompleted, Snapshot: snap})
		return
	}

	startByte := 0
	if startPct > 0 {
		startByte = alignStart(req.Source, total*startPct/target)
	}
	if startByte >= targetByte {
		snap.AnalysisProgress = target
		if err := finalize(req.Store, snap, target); err != nil {
			task.finish(Result{Status: StatusFailed, Err: err})
			return
		}
		task.emit(ProgressEvent{State: StateCompleted, Percent: target})
		task.finish(Result{Status: StatusCompleted, Snapshot: snap})
		return
	}

	size := req.ChunkSize
	if size <= 0 {
		size = chunk.DefaultSize
	}
	chunks := chunk.Split(req.Source, startByte, targetByte, size)
	n := len(chunks)

	logger.Info("analysis session starting",
		"book", req.Title,
		"target_percent", target,
		"start_percent", startPct,
		"start_byte", startByte,
		"target_byte", targetByte,
		"chunks", n,
		"provider", req.Provider.Name())

	hadData := !snap.Empty()
	for _, c := range chunks {
		if task.aborted() || ctx.Err() != nil {
			logger.Info("analysis aborted", "book", req.Title, "chunk", c.Index, "chunks", n)
			task.emit(ProgressEvent{State: StateAborted, ChunkIndex: c.Index, TotalChunks: n})
			task.finish(Result{Status: StatusAborted, Snapshot: snap})
			return
		}
		if req.OnProgress != nil && !req.OnProgress(c.Index, n) {
			task.emit(ProgressEvent{State: StateAborted, ChunkIndex: c.Index, TotalChunks: n})
			task.finish(Result{Status: StatusAborted, Snapshot: snap})
			return
		}

		task.emit(ProgressEvent{State: StateProcessing, ChunkIndex: c.Index, TotalChunks: n})

		pct := c.End * target / total
		result, err := req.Provider.Analyze(ctx, &providers.AnalysisRequest{
			System: systemPrompt,
			Prompt: buildChunkPrompt(snap, c.Text, pct, c.Index, n),
		})
		req.Recorder.Record(result, err, llmcall.RecordOptions{
			BookTitle:  req.Title,
			ChunkIndex: c.Index,
		})
		if err != nil {
			// Cancellation surfacing through the in-flight call is an
			// abort, not a chunk failure.
			if ctx.Err() != nil || task.aborted() {
				task.emit(ProgressEvent{State: StateAborted, ChunkIndex: c.Index, TotalChunks: n})
				task.finish(Result{Status: StatusAborted, Snapshot: snap})
				return
			}
			if !hadData {
				logger.Error("chunk failed with no prior data",
					"book", req.Title, "chunk", c.Index, "error", err)
				task.emit(ProgressEvent{State: StateFailed, ChunkIndex: c.Index, TotalChunks: n})
				task.finish(Result{Status: StatusFailed, Err: err})
				return
			}
			// One bad chunk must not discard earlier progress.
			logger.Warn("chunk failed, completing with prior data",
				"book", req.Title, "chunk", c.Index, "error", err)
			break
		}

		if result.Blocked {
			logger.Warn("chunk blocked by content-safety policy, continuing",
				"book", req.Title, "chunk", c.Index)
		}
		if result.Extraction != nil {
			// Events without a model-supplied position anchor at the
			// chunk's percent.
			for i := range result.Extraction.Events {
				if result.Extraction.Events[i].PositionPct == 0 {
					result.Extraction.Events[i].PositionPct = pct
				}
			}
			xray.Merge(snap, result.Extraction)
		}
		if !snap.Empty() {
			hadData = true
		}

		// Persist before the next chunk starts so a crash always
		// leaves a consistent resume point behind.
		task.emit(ProgressEvent{State: StatePersisting, ChunkIndex: c.Index, TotalChunks: n, Percent: pct})
		snap.AnalysisProgress = pct
		if err := req.Store.Save(pct, snap); err != nil {
			task.finish(Result{Status: StatusFailed, Err: fmt.Errorf("failed to persist chunk snapshot: %w", err)})
			return
		}
	}

	snap.AnalysisProgress = target
	if err := finalize(req.Store, snap, target); err != nil {
		task.finish(Result{Status: StatusFailed, Err: err})
		return
	}

	logger.Info("analysis session completed",
		"book", req.Title,
		"target_percent", target,
		"characters", len(snap.Characters),
		"locations", len(snap.Locations),
		"themes", len(snap.Themes))

	task.emit(ProgressEvent{State: StateCompleted, TotalChunks: n, Percent: target})
	task.finish(Result{Status: StatusCompleted, Snapshot: snap})
}

// resolveStart picks the best usable resume point below the target:
// the larger of the caller-supplied snapshot's recorded progress and
// the best valid cached percent. Returns a snapshot safe to mutate.
func resolveStart(req *Request, target int, logger *slog.Logger) (*xray.Snapshot, int) {
	snap := xray.NewSnapshot(req.Title, req.Author)
	startPct := 0

	if req.Existing != nil && !req.Existing.Empty() && req.Existing.AnalysisProgress > 0 {
		snap = req.Existing.Clone()
		startPct = req.Existing.AnalysisProgress
	}

	if p, cached, ok := req.Store.NearestAtOrBelow(target); ok && p > startPct {
		logger.Info("resuming from cached snapshot", "percent", p)
		snap = cached
		startPct = p
	}

	if snap.BookTitle == "" {
		snap.BookTitle = req.Title
	}
	if snap.Author == "" {
		snap.Author = req.Author
	}
	snap.FormatVersion = xray.FormatVersion
	return snap, startPct
}

// finalize writes the completed snapshot as the target percent entry
// and the consolidated main cache, then seeds the 0% entry.
func finalize(store *cache.Store, snap *xray.Snapshot, target int) error {
	if err := store.Save(target, snap); err != nil {
		return fmt.Errorf("failed to persist final snapshot: %w", err)
	}
	if err := store.SaveMain(snap); err != nil {
		return fmt.Errorf("failed to persist main cache: %w", err)
	}
	if err := store.SeedZero(); err != nil {
		return fmt.Errorf("failed to seed zero entry: %w", err)
	}
	return nil
}

// alignStart walks a byte offset backward off UTF-8 continuation bytes
// so a resumed session never starts mid-codepoint.
func alignStart(text []byte, pos int) int {
	for pos > 0 && pos < len(text) && text[pos]&0xC0 == 0x80 {
		pos--
	}
	return pos
}
