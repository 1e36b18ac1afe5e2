package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetbuilder/internal/process"
)

type scriptedRunner struct {
	lines []string
	code  int
	err   error
	calls []process.Command
}

func (s *scriptedRunner) Run(_ context.Context, c process.Command, onLine func(string)) (int, error) {
	s.calls = append(s.calls, c)
	for _, l := range s.lines {
		onLine(l)
	}
	return s.code, s.err
}

func locator(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vswhere.exe")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

func TestVSWhereParsesInstallationPath(t *testing.T) {
	runner := &scriptedRunner{lines: []string{
		"Visual Studio Locator version 2.5.2",
		"instanceId: 1234",
		"installationPath: C:/VS/2017/Community",
		"installationPath: C:/VS/other",
	}}
	exe := locator(t)

	got, err := VSWhere{Executable: exe, Runner: runner}.Find(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("C:/VS/2017/Community", "Common7", "Tools"), got)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, exe, runner.calls[0].Path)
}

func TestVSWhereNotFound(t *testing.T) {
	ctx := context.Background()

	_, err := VSWhere{}.Find(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = VSWhere{Executable: filepath.Join(t.TempDir(), "missing.exe")}.Find(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = VSWhere{Executable: locator(t), Runner: &scriptedRunner{lines: []string{"nothing"}}}.Find(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = VSWhere{Executable: locator(t), Runner: &scriptedRunner{code: 1}}.Find(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnvFinder(t *testing.T) {
	env := map[string]string{"VS120COMNTOOLS": `C:\VS12\Tools\`, "VS140COMNTOOLS": "  "}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	got, err := Env{Vars: []string{"VS140COMNTOOLS", "VS120COMNTOOLS", "VS110COMNTOOLS"}, Lookup: lookup}.Find(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `C:\VS12\Tools\`, got)

	_, err = Env{Vars: []string{"VS100COMNTOOLS"}, Lookup: lookup}.Find(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	got, err := Chain{Static(""), Static("/opt/tools")}.Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/opt/tools", got)

	_, err = Chain{Static(""), Env{}}.Find(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Chain{}.Find(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	boom := errors.New("locator crashed")
	_, err = Chain{VSWhere{Executable: locator(t), Runner: &scriptedRunner{err: boom}}, Static("/never")}.Find(ctx)
	require.ErrorIs(t, err, boom)
}
