package pipeline

import (
	"context"
	"fmt"
	"time"
)

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageTools   StageName = "tools"
	StageData    StageName = "data"
	StageProject StageName = "project"
)

// StageErrorKind classifies the outcome of a failed stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation between steps.
)

// StageError is a structured error carrying kind, stage and the failing step.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Step  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s stage %s (%s): %v", e.Kind, e.Stage, e.Step, e.Err)
	}
	return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewFatalStageError creates a new fatal stage error.
func NewFatalStageError(stage StageName, step string, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Step: step, Err: err}
}

// NewCanceledStageError creates a new canceled stage error.
func NewCanceledStageError(stage StageName, step string, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Step: step, Err: err}
}

// StageResultLabel captures the high-level outcome of a stage.
type StageResultLabel string

const (
	StageResultSuccess  StageResultLabel = "success"
	StageResultFatal    StageResultLabel = "fatal"
	StageResultCanceled StageResultLabel = "canceled"
)

// StageResult is the terminal record of one stage run.
type StageResult struct {
	Name       StageName
	Success    bool
	Elapsed    time.Duration
	Ran        int
	Skipped    int
	FailedStep string
	Err        *StageError
}

// Label maps the result onto its metrics label.
func (r StageResult) Label() StageResultLabel {
	switch {
	case r.Success:
		return StageResultSuccess
	case r.Err != nil && r.Err.Kind == StageErrorCanceled:
		return StageResultCanceled
	default:
		return StageResultFatal
	}
}

// StepStatus reports whether a successful step did work.
type StepStatus string

const (
	StepRan     StepStatus = "ran"
	StepSkipped StepStatus = "skipped"
)

// Step is one ordered unit of a stage: an asset task, a solution build, a
// layout operation or a nested group.
type Step interface {
	Name() string
	Run(ctx context.Context) (StepStatus, error)
}

// StepFunc adapts a function into a Step.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context) (StepStatus, error)
}

func (s StepFunc) Name() string { return s.StepName }

func (s StepFunc) Run(ctx context.Context) (StepStatus, error) { return s.Fn(ctx) }

// Stage is a named phase with ordered steps.
type Stage struct {
	Name     StageName
	Steps    []Step
	Executor Executor // nil means SequentialExecutor
}

// Run executes the steps and measures the stage. All-skipped is success.
func (s *Stage) Run(ctx context.Context) StageResult {
	exec := s.Executor
	if exec == nil {
		exec = SequentialExecutor{}
	}
	t0 := time.Now()
	res := exec.Execute(ctx, s.Steps)
	out := StageResult{
		Name:       s.Name,
		Success:    res.Err == nil,
		Elapsed:    time.Since(t0),
		Ran:        res.Ran,
		Skipped:    res.Skipped,
		FailedStep: res.FailedStep,
	}
	if res.Err != nil {
		if res.Canceled {
			out.Err = NewCanceledStageError(s.Name, res.FailedStep, res.Err)
		} else {
			out.Err = NewFatalStageError(s.Name, res.FailedStep, res.Err)
		}
	}
	return out
}

// Pipeline is a fluent builder for ordered stages.
type Pipeline struct{ stages []*Stage }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{stages: make([]*Stage, 0, 3)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(st *Stage) *Pipeline {
	p.stages = append(p.stages, st)
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, st *Stage) *Pipeline {
	if cond {
		p.Add(st)
	}
	return p
}

// Build returns a copy of the stage list.
func (p *Pipeline) Build() []*Stage {
	out := make([]*Stage, len(p.stages))
	copy(out, p.stages)
	return out
}
