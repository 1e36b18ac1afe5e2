package pipeline

import (
	"context"
	"errors"
)

// ExecResult summarizes an executor pass over a step list.
type ExecResult struct {
	Ran        int
	Skipped    int
	FailedStep string
	Err        error
	Canceled   bool
}

// Executor runs a stage's steps. The default is strictly sequential; a
// bounded concurrent scheduler can be swapped in without touching stages.
type Executor interface {
	Execute(ctx context.Context, steps []Step) ExecResult
}

// SequentialExecutor runs steps in order and stops at the first failure.
// Cancellation is observed only between steps.
type SequentialExecutor struct{}

func (SequentialExecutor) Execute(ctx context.Context, steps []Step) ExecResult {
	var res ExecResult
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			res.FailedStep = st.Name()
			res.Err = err
			res.Canceled = true
			return res
		}
		status, err := st.Run(ctx)
		if err != nil {
			res.FailedStep = failedStepName(st, err)
			res.Err = err
			res.Canceled = errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			return res
		}
		if status == StepSkipped {
			res.Skipped++
		} else {
			res.Ran++
		}
	}
	return res
}

// StepError attributes a failure to a step nested inside the failing one.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }

// failedStepName joins nested step names with "/", e.g. group/asset.
func failedStepName(st Step, err error) string {
	var se *StepError
	if errors.As(err, &se) && se.Step != "" {
		return st.Name() + "/" + se.Step
	}
	return st.Name()
}
