package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/observability"
	"git.home.luguber.info/inful/assetbuilder/internal/process"
	"git.home.luguber.info/inful/assetbuilder/internal/rules"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// AssetSet is one source compiled by one compiler into one output directory.
type AssetSet struct {
	Compiler  task.Compiler
	Source    asset.Source
	OutputDir string
	Resolver  *rules.Resolver
}

// Group is an ordered data-build group sharing one marker.
type Group struct {
	Name string
	Sets []AssetSet
}

// DataSettings apply to every task of the data stage.
type DataSettings struct {
	LogDir          string
	CompareArtifact bool
	Runner          process.Runner
	TailLines       int
}

// NewDataStage creates the data stage: one step per group, in order.
func NewDataStage(rc *RunContext, settings DataSettings, groups []Group) *Stage {
	steps := make([]Step, 0, len(groups))
	for _, g := range groups {
		steps = append(steps, &GroupStep{rc: rc, settings: settings, group: g})
	}
	return &Stage{Name: StageData, Steps: steps}
}

// GroupStep runs the asset tasks of one group and marks the group completed
// when every task succeeded.
type GroupStep struct {
	rc       *RunContext
	settings DataSettings
	group    Group
}

func (g *GroupStep) Name() string { return g.group.Name }

func (g *GroupStep) Run(ctx context.Context) (StepStatus, error) {
	ctx = observability.WithGroup(ctx, g.group.Name)
	log := g.rc.Log(ctx)
	marker := g.rc.Markers.Marker(g.group.Name)
	log.Info(fmt.Sprintf("Building %s", g.group.Name), logfields.Marker(marker))

	gated := make(map[string]bool)
	var steps []Step
	for _, set := range g.group.Sets {
		force, err := g.force(ctx, set.Compiler, marker, gated)
		if err != nil {
			return "", err
		}
		assets, err := asset.Enumerate(set.Source)
		if err != nil {
			return "", foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to enumerate assets").
				WithContext("source", set.Source.Dir).
				Build()
		}
		for _, a := range assets {
			steps = append(steps, &TaskStep{
				rc:     g.rc,
				group:  g.group.Name,
				label:  assetLabel(set.Source.Dir, a.Path),
				marker: marker,
				force:  force || g.rc.Options.Forces(a.Path),
				task: &task.AssetTask{
					Asset:           a,
					Compiler:        set.Compiler,
					OutputDir:       set.OutputDir,
					LogDir:          g.settings.LogDir,
					Resolver:        set.Resolver,
					Runner:          g.settings.Runner,
					CompareArtifact: g.settings.CompareArtifact,
					TailLines:       g.settings.TailLines,
				},
			})
		}
	}

	res := SequentialExecutor{}.Execute(ctx, steps)
	if res.Err != nil {
		return "", &StepError{Step: res.FailedStep, Err: res.Err}
	}
	g.rc.CompleteGroup(g.group.Name)
	if res.Ran == 0 {
		log.Info(fmt.Sprintf("%s is up to date", g.group.Name), slog.Int("skipped", res.Skipped))
		return StepSkipped, nil
	}
	log.Info(fmt.Sprintf("Done with %s", g.group.Name), slog.Int("ran", res.Ran), slog.Int("skipped", res.Skipped))
	return StepRan, nil
}

// force decides the forced-rebuild flag for a compiler within this group. A
// compiler newer than the group marker forces every asset it compiles.
func (g *GroupStep) force(ctx context.Context, c task.Compiler, marker time.Time, gated map[string]bool) (bool, error) {
	if g.rc.Options.ForceRebuild {
		return true, nil
	}
	info, err := os.Stat(c.Executable)
	if err != nil {
		return false, foundationerrors.WrapError(err, foundationerrors.CategoryLaunch, "asset compiler not found").
			WithContext("compiler", c.Name).
			WithContext("executable", c.Executable).
			Build()
	}
	if !incremental.ShouldForceRebuildForTool(info.ModTime(), marker) {
		return false, nil
	}
	if !gated[c.Name] {
		gated[c.Name] = true
		g.rc.Log(ctx).Info(fmt.Sprintf("%s has changed since the last build, forcing rebuild of %s", c.Name, g.group.Name),
			logfields.Compiler(c.Name), logfields.Executable(c.Executable))
		if g.rc.Observer != nil {
			g.rc.Observer.OnToolGate(g.group.Name, c.Name)
		}
	}
	return true, nil
}

// assetLabel names an asset by its slash path below the source directory.
func assetLabel(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return path
	}
	return filepath.ToSlash(rel)
}

// TaskStep adapts an asset task to a Step and records its outcome.
type TaskStep struct {
	rc     *RunContext
	group  string
	label  string
	marker time.Time
	force  bool
	task   *task.AssetTask
}

func (t *TaskStep) Name() string {
	if t.label != "" {
		return t.label
	}
	return t.task.Asset.Path
}

func (t *TaskStep) Run(ctx context.Context) (StepStatus, error) {
	t.task.Logger = t.rc.Log(ctx)
	outcome, err := t.task.Execute(ctx, t.marker, t.force)
	if err == nil && outcome.Failed() {
		err = task.CompileFailure(t.task, outcome)
	}
	t.rc.RecordTask(TaskRecord{
		Group:    t.group,
		Compiler: t.task.Compiler.Name,
		Kind:     t.task.Asset.Kind,
		Asset:    t.task.Asset.Path,
		Artifact: t.task.ArtifactPath(),
		Status:   outcome.Status,
		Reason:   outcome.Reason,
		ExitCode: outcome.ExitCode,
		Duration: outcome.Duration,
		Err:      err,
	})
	if err != nil {
		return "", err
	}
	if outcome.Status == task.StatusSkipped {
		return StepSkipped, nil
	}
	return StepRan, nil
}
