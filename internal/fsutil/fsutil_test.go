package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestCopyMatchingIsFlatAndFiltered(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "bin", "x64")
	write(t, filepath.Join(src, "GITechDemo.exe"), "exe")
	write(t, filepath.Join(src, "Engine.DLL"), "dll")
	write(t, filepath.Join(src, "GITechDemo.pdb"), "pdb")
	write(t, filepath.Join(src, "sub", "nested.exe"), "nested")

	at := time.Date(2022, 2, 2, 2, 2, 2, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(src, "GITechDemo.exe"), at, at))

	exes, err := CopyMatching(src, dst, "*.exe")
	require.NoError(t, err)
	assert.Equal(t, []string{"GITechDemo.exe"}, exes)

	dlls, err := CopyMatching(src, dst, "*.dll")
	require.NoError(t, err)
	assert.Equal(t, []string{"Engine.DLL"}, dlls)

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"Engine.DLL", "GITechDemo.exe"}, names)

	info, err := os.Stat(filepath.Join(dst, "GITechDemo.exe"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(at), "mtime preserved")
}

func TestCopyMatchingMissingSource(t *testing.T) {
	_, err := CopyMatching(filepath.Join(t.TempDir(), "missing"), t.TempDir(), "*.exe")
	require.Error(t, err)
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "data")
	write(t, filepath.Join(src, "models", "sponza", "sponza.s3dmdl"), "m")
	write(t, filepath.Join(src, "textures", "sky.s3dtex"), "t")
	write(t, filepath.Join(src, "readme.txt"), "r")

	n, err := CopyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(filepath.Join(dst, "models", "sponza", "sponza.s3dmdl"))
	require.NoError(t, err)
	assert.Equal(t, "m", string(data))

	// Copying again overwrites in place.
	n, err = CopyTree(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = CopyTree(filepath.Join(src, "readme.txt"), dst)
	require.Error(t, err)
}

func TestWriteLauncher(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteLauncher(dir, "run_x64.bat", "bin/x64", "GITechDemo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run_x64.bat"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "@echo off\r\n:A\r\ncls\r\ncd %~dp0/data\r\nstart %1../bin/x64/GITechDemo.exe\r\nexit\r\n", string(data))
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(path))
	require.NoError(t, EnsureDir(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
