package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a pipeline run.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// TaskResultLabel is the outcome of a single asset task.
type TaskResultLabel string

const (
	TaskSkipped TaskResultLabel = "skipped"
	TaskRan     TaskResultLabel = "ran"
	TaskFailed  TaskResultLabel = "failed"
)

// Recorder defines observability hooks for build, stage and task metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	// compiler is the compiler name, e.g. "texture".
	ObserveTaskDuration(compiler string, d time.Duration)
	IncTaskResult(compiler string, result TaskResultLabel)
	IncToolGateForced(compiler string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) ObserveTaskDuration(string, time.Duration)  {}
func (NoopRecorder) IncTaskResult(string, TaskResultLabel)      {}
func (NoopRecorder) IncToolGateForced(string)                   {}
