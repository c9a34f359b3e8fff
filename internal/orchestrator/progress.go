package orchestrator

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// progressBuffer is how many events may wait for a slow consumer.
const progressBuffer = 64

// ProgressReporter emits progress events through a buffered channel.
// Resolver workers never wait on the consumer: an event that does not fit
// is dropped and counted.
type ProgressReporter struct {
	ch      chan ProgressEvent
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewProgressReporter creates a ProgressReporter.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, progressBuffer),
	}
}

// Emit sends a progress event without blocking. Events emitted after Close
// are ignored.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- event:
	default:
		pr.dropped.Add(1)
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (pr *ProgressReporter) Dropped() int64 {
	return pr.dropped.Load()
}

// Close closes the progress event channel. It is safe to call more than once.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if !pr.closed {
		pr.closed = true
		close(pr.ch)
	}
}

// doneVerb is what a completed section of each stage reports.
var doneVerb = map[Stage]string{
	StageIngest:  "read",
	StageBuild:   "built",
	StageCluster: "clustered",
	StageResolve: "resolved",
	StageEmit:    "written",
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Section)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Section)
	case ProgressComplete:
		verb, ok := doneVerb[event.Stage]
		if !ok {
			verb = "complete"
		}
		if event.Message != "" {
			return fmt.Sprintf("  ✓ %s %s (%s)", event.Section, verb, event.Message)
		}
		return fmt.Sprintf("  ✓ %s %s", event.Section, verb)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Section, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Section)
	}
}

// FormatStageHeader formats a stage header, counting stages from 1.
// Returns: "Stage {N}/{total}: {stage.String()}"
func FormatStageHeader(stage Stage) string {
	return fmt.Sprintf("Stage %d/%d: %s", int(stage)+1, stageCount, stage)
}
