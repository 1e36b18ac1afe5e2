package task

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/asset"
	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/incremental"
	"git.home.luguber.info/inful/assetbuilder/internal/process"
	"git.home.luguber.info/inful/assetbuilder/internal/rules"
)

type fakeRunner struct {
	calls  []process.Command
	output []string
	code   int
	err    error
	// produce writes the artifact like a real compiler would.
	produce string
}

func (f *fakeRunner) Run(_ context.Context, c process.Command, onLine func(string)) (int, error) {
	f.calls = append(f.calls, c)
	if f.err != nil {
		return -1, f.err
	}
	for _, l := range f.output {
		onLine(l)
	}
	if f.produce != "" && f.code == 0 {
		_ = os.WriteFile(f.produce, []byte("compiled"), 0o600)
	}
	return f.code, nil
}

func newTask(t *testing.T, runner process.Runner, name string, mtime time.Time) *AssetTask {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "DataSrc", "textures", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o750))
	require.NoError(t, os.WriteFile(src, []byte("src"), 0o600))
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	resolver, err := rules.NewResolver("-q -f A8R8G8B8", rules.Contains("_roughness.", "-q -f L8"))
	require.NoError(t, err)

	return &AssetTask{
		Asset:     asset.Asset{Path: src, Name: name, Kind: asset.KindTexture, ModTime: mtime},
		Compiler:  Compiler{Name: "texture", Kind: asset.KindTexture, Executable: "/tools/TextureCompiler.exe", Extension: ".s3dtex"},
		OutputDir: filepath.Join(root, "Data", "textures"),
		LogDir:    filepath.Join(root, "DataSrc", "Logs"),
		Resolver:  resolver,
		Runner:    runner,
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}
}

func TestExecuteCompilesMissingArtifact(t *testing.T) {
	t0 := time.Unix(1_000_000, 0)
	runner := &fakeRunner{output: []string{"Loading", "Done"}}
	tk := newTask(t, runner, "metal_roughness.png", t0.Add(-time.Second))
	runner.produce = tk.ArtifactPath()

	out, err := tk.Execute(context.Background(), t0, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRan, out.Status)
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, incremental.ReasonMissingArtifact, out.Reason)
	assert.Equal(t, "-q -f L8", out.Options)
	assert.Equal(t, "Loading\nDone", out.Output)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/tools/TextureCompiler.exe", runner.calls[0].Path)
	assert.Equal(t, []string{"-q", "-f", "L8", "-d", tk.OutputDir, "-log", tk.LogDir, tk.Asset.Path}, runner.calls[0].Args)

	// Second run: artifact exists, marker advanced past the source.
	out, err = tk.Execute(context.Background(), t0.Add(time.Minute), false)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Equal(t, incremental.ReasonUpToDate, out.Reason)
	assert.Len(t, runner.calls, 1)
}

func TestExecuteForce(t *testing.T) {
	t0 := time.Unix(2_000_000, 0)
	runner := &fakeRunner{}
	tk := newTask(t, runner, "wall.png", t0.Add(-time.Hour))
	require.NoError(t, os.MkdirAll(tk.OutputDir, 0o750))
	require.NoError(t, os.WriteFile(tk.ArtifactPath(), nil, 0o600))

	out, err := tk.Execute(context.Background(), t0, false)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)

	out, err = tk.Execute(context.Background(), t0, true)
	require.NoError(t, err)
	assert.Equal(t, StatusRan, out.Status)
	assert.Equal(t, incremental.ReasonForced, out.Reason)
	assert.Equal(t, "-q -f A8R8G8B8", out.Options)
}

func TestExecuteNonZeroExit(t *testing.T) {
	runner := &fakeRunner{code: 2, output: []string{"error: bad header"}}
	tk := newTask(t, runner, "broken.dds", time.Now())

	out, err := tk.Execute(context.Background(), time.Time{}, false)
	require.NoError(t, err)
	assert.True(t, out.Failed())
	assert.Equal(t, 2, out.ExitCode)

	failure := CompileFailure(tk, out)
	assert.True(t, foundationerrors.HasCategory(failure, foundationerrors.CategoryCompile))
	ce, ok := foundationerrors.AsClassified(failure)
	require.True(t, ok)
	output, _ := ce.Context().GetString("output")
	assert.Equal(t, "error: bad header", output)
}

func TestExecuteLaunchFailure(t *testing.T) {
	runner := &fakeRunner{err: &process.LaunchError{Path: "/tools/TextureCompiler.exe", Err: errors.New("not found")}}
	tk := newTask(t, runner, "x.png", time.Now())

	_, err := tk.Execute(context.Background(), time.Time{}, false)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryLaunch))
	assert.True(t, process.IsLaunchError(err))
}

func TestExecuteCanceledBeforeLaunch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tk := newTask(t, &fakeRunner{err: context.Canceled}, "x.png", time.Now())

	_, err := tk.Execute(ctx, time.Time{}, false)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryCanceled))
}

func TestCommandWithoutResolver(t *testing.T) {
	tk := &AssetTask{
		Asset:     asset.Asset{Path: "/src/sponza.obj", Name: "sponza.obj"},
		Compiler:  Compiler{Executable: "ModelCompiler.exe", Extension: ".s3dmdl"},
		OutputDir: "/out",
		LogDir:    "/logs",
	}
	cmd := tk.Command(tk.resolve())
	assert.Equal(t, []string{"-d", "/out", "-log", "/logs", "/src/sponza.obj"}, cmd.Args)
	assert.Equal(t, filepath.Join("/out", "sponza.s3dmdl"), tk.ArtifactPath())
}
