package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/fsutil"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/msbuild"
)

// Layout describes the distribution tree produced after the project build.
type Layout struct {
	Project    string
	BinSource  string   // directory holding the built binaries
	Artifacts  []string // patterns copied from BinSource, non-recursive
	DataSource string   // compiled data copied into <DistRoot>/data
	DistRoot   string
	Launchers  bool
}

// BinDir is the binary directory relative to the distribution root:
// bin/<arch>, or bin/<configuration>/<arch> for non-Release builds.
func BinDir(opts Options) string {
	arch := opts.Architecture.MSBuildPlatform()
	if opts.Configuration == ConfigRelease {
		return path.Join("bin", arch)
	}
	return path.Join("bin", string(opts.Configuration), arch)
}

// LauncherName is run_<arch>.bat, or run_<configuration>_<arch>.bat for
// non-Release builds, lowercased.
func LauncherName(opts Options) string {
	arch := strings.ToLower(opts.Architecture.MSBuildPlatform())
	if opts.Configuration == ConfigRelease {
		return "run_" + arch + ".bat"
	}
	return "run_" + strings.ToLower(string(opts.Configuration)) + "_" + arch + ".bat"
}

// LayoutStep copies binaries and data into the distribution tree and writes
// the launcher.
type LayoutStep struct {
	rc     *RunContext
	layout Layout
}

func (l *LayoutStep) Name() string { return "layout" }

func (l *LayoutStep) Run(ctx context.Context) (StepStatus, error) {
	log := l.rc.Log(ctx).With(logfields.Path(l.layout.DistRoot))
	opts := l.rc.Options
	binRel := BinDir(opts)
	binDir := filepath.Join(l.layout.DistRoot, filepath.FromSlash(binRel))

	log.Info("Copying binaries", slog.String("from", l.layout.BinSource), slog.String("to", binDir))
	if err := fsutil.EnsureDir(binDir); err != nil {
		return "", layoutError(err, "failed to create binary directory", binDir)
	}
	copied := 0
	for _, pattern := range l.layout.Artifacts {
		files, err := fsutil.CopyMatching(l.layout.BinSource, binDir, pattern)
		if err != nil {
			return "", layoutError(err, "failed to copy binaries", l.layout.BinSource)
		}
		copied += len(files)
	}
	if copied == 0 {
		log.Warn("No binaries matched", slog.Any("patterns", l.layout.Artifacts), slog.String("from", l.layout.BinSource))
	}

	dataDir := filepath.Join(l.layout.DistRoot, "data")
	log.Info("Copying data", slog.String("from", l.layout.DataSource), slog.String("to", dataDir))
	n, err := fsutil.CopyTree(l.layout.DataSource, dataDir)
	if err != nil {
		return "", layoutError(err, "failed to copy data", l.layout.DataSource)
	}
	log.Debug("Copied data", slog.Int("files", n))

	if l.layout.Launchers {
		p, err := fsutil.WriteLauncher(l.layout.DistRoot, LauncherName(opts), binRel, l.layout.Project)
		if err != nil {
			return "", layoutError(err, "failed to write launcher", l.layout.DistRoot)
		}
		log.Info(fmt.Sprintf("Wrote %s", filepath.Base(p)))
	}
	return StepRan, nil
}

func layoutError(err error, msg, path string) error {
	return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, msg).
		WithContext("path", path).
		Build()
}

// NewProjectStage builds the project solutions in the run configuration and
// architecture, then lays out the distribution tree.
func NewProjectStage(rc *RunContext, builder msbuild.Builder, solutions []string, layout Layout) *Stage {
	steps := make([]Step, 0, len(solutions)+1)
	for _, sln := range solutions {
		steps = append(steps, NewSolutionStep(rc, builder, sln, string(rc.Options.Configuration), rc.Options.Architecture.MSBuildPlatform()))
	}
	if layout.DistRoot != "" {
		steps = append(steps, &LayoutStep{rc: rc, layout: layout})
	}
	return &Stage{Name: StageProject, Steps: steps}
}
