package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/msbuild"
	"git.home.luguber.info/inful/assetbuilder/internal/process"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// SolutionStep builds one solution with the located toolchain.
type SolutionStep struct {
	rc      *RunContext
	builder msbuild.Builder
	req     msbuild.Request
}

// NewSolutionStep creates a step building solution. The toolchain is
// resolved when the step runs.
func NewSolutionStep(rc *RunContext, builder msbuild.Builder, solution, configuration, platform string) *SolutionStep {
	return &SolutionStep{
		rc:      rc,
		builder: builder,
		req: msbuild.Request{
			Solution:      solution,
			Platform:      platform,
			Configuration: configuration,
			Rebuild:       rc.Options.ForceRebuild,
		},
	}
}

func (s *SolutionStep) Name() string { return filepath.Base(s.req.Solution) }

func (s *SolutionStep) Run(ctx context.Context) (StepStatus, error) {
	tc, err := s.rc.Toolchain(ctx)
	if err != nil {
		return "", err
	}
	req := s.req
	req.ToolchainPath = tc

	log := s.rc.Log(ctx).With(logfields.Path(req.Solution))
	log.Info(fmt.Sprintf("Building %s (%s|%s)", s.Name(), req.Configuration, req.Platform),
		logfields.ForceRebuild(req.Rebuild))

	tail := process.NewTail(task.DefaultTailLines)
	code, err := s.builder.Build(ctx, req, func(line string) {
		tail.Add(line)
		log.Info(line)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", foundationerrors.WrapError(err, foundationerrors.CategoryCanceled, "canceled before solution build").Build()
		}
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryLaunch, "failed to launch solution build").
			WithContext("shell", s.builder.Shell).
			Build()
	}
	if code != 0 {
		log.Error("Solution build failed", logfields.ExitCode(code))
		return "", foundationerrors.CompileError(fmt.Sprintf("%s failed with exit code %d", s.Name(), code)).
			WithContext("solution", req.Solution).
			WithContext("exit_code", code).
			WithContext("output", tail.String()).
			Build()
	}
	return StepRan, nil
}

// NewToolsStage builds the asset compiler solutions. Tools always build in
// configuration for the tools platform of the run architecture; a forced run
// rebuilds them.
func NewToolsStage(rc *RunContext, builder msbuild.Builder, solutions []string, configuration string) *Stage {
	steps := make([]Step, 0, len(solutions))
	for _, sln := range solutions {
		steps = append(steps, NewSolutionStep(rc, builder, sln, configuration, rc.Options.Architecture.ToolsPlatform()))
	}
	return &Stage{Name: StageTools, Steps: steps}
}
