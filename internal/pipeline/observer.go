package pipeline

import (
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Observer receives callbacks around stage execution and the run lifecycle.
type Observer interface {
	OnRunStart(report *RunReport)
	OnStageStart(stage StageName)
	OnStageComplete(result StageResult)
	OnToolGate(group, compiler string)
	OnTaskComplete(rec TaskRecord)
	OnRunComplete(report *RunReport)
}

// NoopObserver is a no-op implementation, also useful for embedding.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(*RunReport)       {}
func (NoopObserver) OnStageStart(StageName)      {}
func (NoopObserver) OnStageComplete(StageResult) {}
func (NoopObserver) OnToolGate(string, string)   {}
func (NoopObserver) OnTaskComplete(TaskRecord)   {}
func (NoopObserver) OnRunComplete(*RunReport)    {}

// MultiObserver fans callbacks out in order.
type MultiObserver []Observer

func (m MultiObserver) OnRunStart(report *RunReport) {
	for _, o := range m {
		o.OnRunStart(report)
	}
}

func (m MultiObserver) OnStageStart(stage StageName) {
	for _, o := range m {
		o.OnStageStart(stage)
	}
}

func (m MultiObserver) OnStageComplete(result StageResult) {
	for _, o := range m {
		o.OnStageComplete(result)
	}
}

func (m MultiObserver) OnToolGate(group, compiler string) {
	for _, o := range m {
		o.OnToolGate(group, compiler)
	}
}

func (m MultiObserver) OnTaskComplete(rec TaskRecord) {
	for _, o := range m {
		o.OnTaskComplete(rec)
	}
}

func (m MultiObserver) OnRunComplete(report *RunReport) {
	for _, o := range m {
		o.OnRunComplete(report)
	}
}

// RecorderObserver adapts metrics.Recorder into an Observer.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnRunStart(*RunReport) {}

func (r RecorderObserver) OnStageStart(StageName) {}

func (r RecorderObserver) OnStageComplete(res StageResult) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveStageDuration(string(res.Name), res.Elapsed)
	r.Recorder.IncStageResult(string(res.Name), metrics.ResultLabel(res.Label()))
}

func (r RecorderObserver) OnToolGate(_ string, compiler string) {
	if r.Recorder != nil {
		r.Recorder.IncToolGateForced(compiler)
	}
}

func (r RecorderObserver) OnTaskComplete(rec TaskRecord) {
	if r.Recorder == nil {
		return
	}
	switch {
	case rec.Failed():
		r.Recorder.IncTaskResult(rec.Compiler, metrics.TaskFailed)
	case rec.Status == task.StatusSkipped:
		r.Recorder.IncTaskResult(rec.Compiler, metrics.TaskSkipped)
		return
	default:
		r.Recorder.IncTaskResult(rec.Compiler, metrics.TaskRan)
	}
	r.Recorder.ObserveTaskDuration(rec.Compiler, rec.Duration)
}

func (r RecorderObserver) OnRunComplete(report *RunReport) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveBuildDuration(report.Elapsed())
	r.Recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(report.Outcome))
}
