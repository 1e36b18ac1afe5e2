package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/msbuild"
	"git.home.luguber.info/inful/assetbuilder/internal/process"
	"git.home.luguber.info/inful/assetbuilder/internal/toolchain"
)

type shellRunner struct {
	calls []process.Command
	code  int
	err   error
}

func (s *shellRunner) Run(_ context.Context, c process.Command, onLine func(string)) (int, error) {
	s.calls = append(s.calls, c)
	if s.err != nil {
		return -1, s.err
	}
	onLine("Build started")
	return s.code, nil
}

func quietContext(opts Options, finder toolchain.Finder) *RunContext {
	return &RunContext{
		RunID:    "test",
		Options:  opts,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Observer: NoopObserver{},
		finder:   finder,
	}
}

func testBuilder(r process.Runner) msbuild.Builder {
	return msbuild.Builder{Shell: "cmd.exe", SetupScript: "VsDevCmd.bat", MSBuild: "MSBuild.exe", Runner: r}
}

func TestToolsStageBuildsReleaseForToolsPlatform(t *testing.T) {
	runner := &shellRunner{}
	opts, _ := ParseArgs([]string{"profile", "x86", "rebuild"})
	rc := quietContext(opts, toolchain.Static(`C:\VS\Common7\Tools`))

	st := NewToolsStage(rc, testBuilder(runner), []string{`Code\Solutions\Synesthesia3DTools.sln`}, "Release")
	res := st.Run(context.Background())

	require.True(t, res.Success, "%v", res.Err)
	require.Len(t, runner.calls, 1)
	script := runner.calls[0].Args[1]
	assert.Contains(t, script, "/p:Configuration=Release")
	assert.Contains(t, script, "/p:Platform=Win32")
	assert.Contains(t, script, "/t:rebuild")
	assert.True(t, strings.HasSuffix(script, `"Code\Solutions\Synesthesia3DTools.sln"`))
}

func TestSolutionFailureIsCompileError(t *testing.T) {
	runner := &shellRunner{code: 1}
	rc := quietContext(DefaultOptions(), toolchain.Static("/vs"))

	res := NewToolsStage(rc, testBuilder(runner), []string{"Tools.sln"}, "Release").Run(context.Background())

	require.False(t, res.Success)
	assert.Equal(t, "Tools.sln", res.FailedStep)
	assert.True(t, foundationerrors.HasCategory(res.Err, foundationerrors.CategoryCompile))
}

func TestSolutionLaunchFailure(t *testing.T) {
	runner := &shellRunner{err: errors.New("exec: cmd.exe not found")}
	rc := quietContext(DefaultOptions(), toolchain.Static("/vs"))

	res := NewToolsStage(rc, testBuilder(runner), []string{"Tools.sln"}, "Release").Run(context.Background())

	require.False(t, res.Success)
	assert.True(t, foundationerrors.HasCategory(res.Err, foundationerrors.CategoryLaunch))
}

func TestMissingToolchainFailsOnlyWhenNeeded(t *testing.T) {
	runner := &shellRunner{}
	rc := quietContext(DefaultOptions(), toolchain.Chain{toolchain.Static(""), toolchain.Env{Lookup: func(string) (string, bool) { return "", false }}})

	empty := NewToolsStage(rc, testBuilder(runner), nil, "Release").Run(context.Background())
	assert.True(t, empty.Success)

	res := NewToolsStage(rc, testBuilder(runner), []string{"Tools.sln"}, "Release").Run(context.Background())
	require.False(t, res.Success)
	assert.True(t, foundationerrors.HasCategory(res.Err, foundationerrors.CategoryToolchain))
	assert.Empty(t, runner.calls)
}

func TestBinDirAndLauncherName(t *testing.T) {
	tests := []struct {
		args     []string
		bin      string
		launcher string
	}{
		{nil, "bin/x64", "run_x64.bat"},
		{[]string{"x86"}, "bin/Win32", "run_win32.bat"},
		{[]string{"profile"}, "bin/Profile/x64", "run_profile_x64.bat"},
		{[]string{"profile", "x86"}, "bin/Profile/Win32", "run_profile_win32.bat"},
	}
	for _, tt := range tests {
		opts, _ := ParseArgs(tt.args)
		assert.Equal(t, tt.bin, BinDir(opts))
		assert.Equal(t, tt.launcher, LauncherName(opts))
	}
}

func TestProjectStageLayout(t *testing.T) {
	root := t.TempDir()
	past := time.Now().Add(-time.Hour)
	writeFile(t, root, "Bin/Win32/Profile/GITechDemo/GITechDemo.exe", past)
	writeFile(t, root, "Bin/Win32/Profile/GITechDemo/Synesthesia3D.DLL", past)
	writeFile(t, root, "Bin/Win32/Profile/GITechDemo/GITechDemo.pdb", past)
	writeFile(t, root, "Data/models/sponza.s3dmdl", past)
	writeFile(t, root, "Data/textures/wall.s3dtex", past)

	runner := &shellRunner{}
	opts, _ := ParseArgs([]string{"profile", "x86"})
	rc := quietContext(opts, toolchain.Static("/vs"))
	dist := filepath.Join(root, "Build", "Windows", "GITechDemo")

	st := NewProjectStage(rc, testBuilder(runner), []string{"GITechDemo.sln"}, Layout{
		Project:    "GITechDemo",
		BinSource:  filepath.Join(root, "Bin", "Win32", "Profile", "GITechDemo"),
		Artifacts:  []string{"*.exe", "*.dll"},
		DataSource: filepath.Join(root, "Data"),
		DistRoot:   dist,
		Launchers:  true,
	})
	res := st.Run(context.Background())
	require.True(t, res.Success, "%v", res.Err)
	assert.Equal(t, 2, res.Ran)

	require.Len(t, runner.calls, 1)
	assert.Contains(t, runner.calls[0].Args[1], "/p:Configuration=Profile /p:Platform=Win32")
	assert.NotContains(t, runner.calls[0].Args[1], "/t:rebuild")

	bin := filepath.Join(dist, "bin", "Profile", "Win32")
	assert.FileExists(t, filepath.Join(bin, "GITechDemo.exe"))
	assert.FileExists(t, filepath.Join(bin, "Synesthesia3D.DLL"))
	assert.NoFileExists(t, filepath.Join(bin, "GITechDemo.pdb"))
	assert.FileExists(t, filepath.Join(dist, "data", "models", "sponza.s3dmdl"))
	assert.FileExists(t, filepath.Join(dist, "data", "textures", "wall.s3dtex"))

	launcher, err := os.ReadFile(filepath.Join(dist, "run_profile_win32.bat"))
	require.NoError(t, err)
	assert.Contains(t, string(launcher), "start %1../bin/Profile/Win32/GITechDemo.exe")
}

func TestProjectLayoutMissingDataFails(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Bin/x64/Release/Demo/Demo.exe", time.Now())
	rc := quietContext(DefaultOptions(), nil)

	res := NewProjectStage(rc, testBuilder(&shellRunner{}), nil, Layout{
		Project:    "Demo",
		BinSource:  filepath.Join(root, "Bin", "x64", "Release", "Demo"),
		Artifacts:  []string{"*.exe"},
		DataSource: filepath.Join(root, "Data"),
		DistRoot:   filepath.Join(root, "Build"),
	}).Run(context.Background())

	require.False(t, res.Success)
	assert.Equal(t, "layout", res.FailedStep)
	assert.True(t, foundationerrors.HasCategory(res.Err, foundationerrors.CategoryFileSystem))
}
