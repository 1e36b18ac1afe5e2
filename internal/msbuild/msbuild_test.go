package msbuild

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/process"
)

func testBuilder(r process.Runner) Builder {
	return Builder{Shell: "cmd.exe", SetupScript: "VsDevCmd.bat", MSBuild: "MSBuild.exe", Runner: r}
}

func TestCommand(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	cmd := testBuilder(nil).Command(Request{
		Solution:      "/proj/Code/Solutions/Synesthesia3DTools.sln",
		ToolchainPath: "/vs/Common7/Tools",
		Platform:      "x64",
		Configuration: "Release",
	})

	assert.Equal(t, "cmd.exe", cmd.Path)
	require.Len(t, cmd.Args, 2)
	assert.Equal(t, "/C", cmd.Args[0])
	assert.Equal(t,
		`VsDevCmd.bat && MSBuild.exe /maxcpucount /p:Configuration=Release /p:Platform=x64 "/proj/Code/Solutions/Synesthesia3DTools.sln"`,
		cmd.Args[1])
	assert.Equal(t, []string{"PATH=/usr/bin" + string(os.PathListSeparator) + "/vs/Common7/Tools"}, cmd.Env)
}

func TestCommandRebuild(t *testing.T) {
	cmd := testBuilder(nil).Command(Request{Solution: "a.sln", Platform: "Win32", Configuration: "Profile", Rebuild: true})
	assert.True(t, strings.Contains(cmd.Args[1], "/p:Platform=Win32 /t:rebuild \"a.sln\""))
	assert.Empty(t, cmd.Env)
}

type recordingRunner struct {
	got  process.Command
	code int
}

func (r *recordingRunner) Run(_ context.Context, c process.Command, onLine func(string)) (int, error) {
	r.got = c
	onLine("Build succeeded.")
	return r.code, nil
}

func TestBuildDelegatesToRunner(t *testing.T) {
	runner := &recordingRunner{code: 1}
	var lines []string
	code, err := testBuilder(runner).Build(context.Background(), Request{Solution: "x.sln"}, func(l string) { lines = append(lines, l) })
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Equal(t, []string{"Build succeeded."}, lines)
	assert.Equal(t, "cmd.exe", runner.got.Path)
}
