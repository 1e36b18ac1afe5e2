package pipeline

import (
	"context"
	"errors"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Outcome is the typed enumeration of final run states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// TaskRecord is the observable result of one asset task.
type TaskRecord struct {
	Group    string
	Compiler string
	Kind     asset.Kind
	Asset    string
	Artifact string
	Status   task.Status
	Reason   incremental.Reason
	ExitCode int
	Duration time.Duration
	Err      error
}

// Failed reports whether the task stopped its stage.
func (t TaskRecord) Failed() bool {
	return t.Err != nil || (t.Status == task.StatusRan && t.ExitCode != 0)
}

// RunReport captures one pipeline run.
type RunReport struct {
	RunID    string
	Options  Options
	Revision string
	Start    time.Time
	End      time.Time
	Stages   []StageResult
	Tasks    []TaskRecord
	Outcome  Outcome
	Err      error
	// AdvancedGroups lists the groups whose markers moved to End.
	AdvancedGroups []string
	// MarkersDiscarded is set when stored markers were dropped on load.
	MarkersDiscarded bool
}

// Elapsed is the total wall-clock time of the run.
func (r *RunReport) Elapsed() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// TaskCounts returns how many tasks ran, were skipped and failed.
func (r *RunReport) TaskCounts() (ran, skipped, failed int) {
	for _, t := range r.Tasks {
		switch {
		case t.Failed():
			failed++
		case t.Status == task.StatusSkipped:
			skipped++
		default:
			ran++
		}
	}
	return ran, skipped, failed
}

// FailedStage returns the failing stage result, if any.
func (r *RunReport) FailedStage() (StageResult, bool) {
	for _, s := range r.Stages {
		if !s.Success {
			return s, true
		}
	}
	return StageResult{}, false
}

// deriveOutcome sets Outcome from the stage results and the run error.
func (r *RunReport) deriveOutcome() {
	st, failed := r.FailedStage()
	switch {
	case !failed && r.Err == nil:
		r.Outcome = OutcomeSuccess
	case failed && st.Label() == StageResultCanceled:
		r.Outcome = OutcomeCanceled
	case errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded):
		r.Outcome = OutcomeCanceled
	default:
		r.Outcome = OutcomeFailed
	}
}
