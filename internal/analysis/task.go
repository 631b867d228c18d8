package analysis

import (
	"sync"

	"github.com/inkbound/xray/internal/xray"
)

// State is the orchestrator's position in the session state machine.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateProcessing
	StatePersisting
	StateCompleted
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateProcessing:
		return "processing"
	case StatePersisting:
		return "persisting"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressEvent is one step of a running session. ChunkIndex and
// TotalChunks are populated during processing/persisting; Percent is
// the percent marker persisted for the chunk.
type ProgressEvent struct {
	State       State
	ChunkIndex  int
	TotalChunks int
	Percent     int
}

// Status classifies a session's terminal state.
type Status int

const (
	StatusCompleted Status = iota
	StatusAborted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusAborted:
		return "aborted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of a session. Completed and Aborted
// carry the best snapshot obtained; Failed carries the error.
type Result struct {
	Status   Status
	Snapshot *xray.Snapshot
	Err      error
}

// Task is a handle on a running analysis session. Progress events
// stream until the session reaches a terminal state; Wait blocks for
// the Result. Abort requests cooperative cancellation, honored at the
// next chunk boundary.
type Task struct {
	progress  chan ProgressEvent
	done      chan struct{}
	abort     chan struct{}
	abortOnce sync.Once
	result    Result
}

func newTask() *Task {
	return &Task{
		progress: make(chan ProgressEvent, 64),
		done:     make(chan struct{}),
		abort:    make(chan struct{}),
	}
}

// Progress returns the event stream. The channel is closed when the
// session ends.
func (t *Task) Progress() <-chan ProgressEvent {
	return t.progress
}

// Abort requests cancellation. Safe to call more than once.
func (t *Task) Abort() {
	t.abortOnce.Do(func() { close(t.abort) })
}

// Wait blocks until the session ends and returns its Result.
func (t *Task) Wait() Result {
	<-t.done
	return t.result
}

func (t *Task) aborted() bool {
	select {
	case <-t.abort:
		return true
	default:
		return false
	}
}

// emit delivers an event without ever blocking the session; a slow
// consumer drops events rather than stalling chunk processing.
func (t *Task) emit(ev ProgressEvent) {
	select {
	case t.progress <- ev:
	default:
	}
}

func (t *Task) finish(res Result) {
	t.result = res
	close(t.progress)
	close(t.done)
}
