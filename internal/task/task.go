// Package task runs a single asset compilation when the asset is stale.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	"git.home.luguber.info/inful/assetbuilder/internal/fsutil"
	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/process"
	"git.home.luguber.info/inful/assetbuilder/internal/rules"
)

// DefaultTailLines is how many output lines a failed task keeps.
const DefaultTailLines = 20

// Compiler is an external asset compiler.
type Compiler struct {
	Name       string
	Kind       asset.Kind
	Executable string
	Extension  string
}

// Status is the outcome class of a task.
type Status string

const (
	StatusSkipped Status = "skipped"
	StatusRan     Status = "ran"
)

// Outcome describes what a task did.
type Outcome struct {
	Status   Status
	ExitCode int
	Reason   incremental.Reason
	Options  string
	Duration time.Duration
	// Output holds the last lines of compiler output.
	Output string
}

// Failed reports whether the compiler ran and exited non-zero.
func (o Outcome) Failed() bool {
	return o.Status == StatusRan && o.ExitCode != 0
}

// AssetTask compiles one asset with one compiler.
type AssetTask struct {
	Asset     asset.Asset
	Compiler  Compiler
	OutputDir string
	LogDir    string
	Resolver  *rules.Resolver
	Runner    process.Runner
	// CompareArtifact enables the artifact-mtime staleness rule.
	CompareArtifact bool
	TailLines       int
	Logger          *slog.Logger
}

// ArtifactPath is the expected compiled output.
func (t *AssetTask) ArtifactPath() string {
	return asset.ArtifactPath(t.OutputDir, t.Asset, t.Compiler.Extension)
}

// Command renders the compiler invocation for options:
// <options...> -d <output dir> -log <log dir> <source>.
func (t *AssetTask) Command(res rules.Resolution) process.Command {
	args := res.Args()
	args = append(args, "-d", t.OutputDir, "-log", t.LogDir, t.Asset.Path)
	return process.Command{Path: t.Compiler.Executable, Args: args}
}

func (t *AssetTask) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}

// Execute compiles the asset if it is stale against marker. The error is
// reserved for failures to observe the artifact or launch the compiler; a
// non-zero exit is reported through the outcome.
func (t *AssetTask) Execute(ctx context.Context, marker time.Time, force bool) (Outcome, error) {
	log := t.logger().With(logfields.Asset(t.Asset.Path), logfields.Compiler(t.Compiler.Name))

	artifact, err := asset.Observe(t.ArtifactPath())
	if err != nil {
		return Outcome{}, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to observe artifact").
			WithContext("artifact", t.ArtifactPath()).
			Build()
	}

	decision := incremental.Evaluate(incremental.Inputs{
		Source:          t.Asset.ModTime,
		ArtifactExists:  artifact.Exists,
		Artifact:        artifact.ModTime,
		Marker:          marker,
		Force:           force,
		CompareArtifact: t.CompareArtifact,
	})
	if !decision.Stale {
		log.Info(fmt.Sprintf("%s %q is up to date", kindLabel(t.Asset.Kind), t.Asset.Name))
		return Outcome{Status: StatusSkipped, Reason: decision.Reason}, nil
	}

	res := t.resolve()
	if err := fsutil.EnsureDir(t.OutputDir); err != nil {
		return Outcome{}, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create output directory").Build()
	}

	log.Info(fmt.Sprintf("Compiling %s %q", kindLabel(t.Asset.Kind), t.Asset.Name),
		logfields.Reason(string(decision.Reason)),
		logfields.Options(res.Options))

	tail := process.NewTail(t.tailLines())
	runner := t.Runner
	if runner == nil {
		runner = process.ExecRunner{}
	}
	start := time.Now()
	code, err := runner.Run(ctx, t.Command(res), func(line string) {
		tail.Add(line)
		log.Info(line)
	})
	outcome := Outcome{
		Status:   StatusRan,
		ExitCode: code,
		Reason:   decision.Reason,
		Options:  res.Options,
		Duration: time.Since(start),
		Output:   tail.String(),
	}
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil && errors.Is(err, ctxErr) {
		return outcome, foundationerrors.WrapError(err, foundationerrors.CategoryCanceled, "canceled before compiler launch").Build()
	}
	if err != nil {
		return outcome, foundationerrors.WrapError(err, foundationerrors.CategoryLaunch, "failed to launch compiler").
			WithContext("executable", t.Compiler.Executable).
			Build()
	}
	if code != 0 {
		log.Error("Compiler failed", logfields.ExitCode(code))
	}
	return outcome, nil
}

func (t *AssetTask) resolve() rules.Resolution {
	if t.Resolver == nil {
		return rules.Resolution{}
	}
	return t.Resolver.Resolve(t.Asset.Name)
}

func (t *AssetTask) tailLines() int {
	if t.TailLines <= 0 {
		return DefaultTailLines
	}
	return t.TailLines
}

func kindLabel(k asset.Kind) string {
	switch k {
	case asset.KindModel:
		return "Model"
	case asset.KindTexture:
		return "Texture"
	default:
		return "Asset"
	}
}

// CompileFailure builds the error for a task whose compiler exited non-zero.
func CompileFailure(t *AssetTask, o Outcome) error {
	return foundationerrors.CompileError(fmt.Sprintf("%s compiler exited with code %d for %s", t.Compiler.Name, o.ExitCode, t.Asset.Name)).
		WithContext("asset", t.Asset.Path).
		WithContext("exit_code", o.ExitCode).
		WithContext("output", o.Output).
		Build()
}
