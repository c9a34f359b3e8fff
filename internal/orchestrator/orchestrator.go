package orchestrator

import "context"

// Stage identifies a pipeline stage.
type Stage int

const (
	StageIngest Stage = iota
	StageBuild
	StageCluster
	StageResolve
	StageEmit
)

const stageCount = int(StageEmit) + 1

func (s Stage) String() string {
	names := [...]string{
		"ingest",
		"build",
		"cluster",
		"resolve",
		"emit",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// ProgressEvent is emitted to the user during pipeline execution.
type ProgressEvent struct {
	Stage   Stage
	Section string
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of a section within a stage.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// Orchestrator runs a reconciliation over a set of assembly graph files.
type Orchestrator interface {
	// Run ingests the inputs and produces the consensus report.
	Run(ctx context.Context, inputs []string) (*Report, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
