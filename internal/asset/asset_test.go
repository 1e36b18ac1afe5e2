package asset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestArtifactPathFlattensAndSwapsExtension(t *testing.T) {
	a := Asset{Path: "/src/textures/sub/wall.diffuse.png", Name: "wall.diffuse.png"}
	assert.Equal(t, filepath.Join("/out", "wall.diffuse.s3dtex"), ArtifactPath("/out", a, ".s3dtex"))
	assert.Equal(t, filepath.Join("/out", "noext.s3dmdl"), ArtifactPath("/out", Asset{Name: "noext"}, ".s3dmdl"))
}

func TestObserve(t *testing.T) {
	dir := t.TempDir()
	missing, err := Observe(filepath.Join(dir, "none.s3dtex"))
	require.NoError(t, err)
	assert.False(t, missing.Exists)

	at := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, "wall.s3dtex")
	touch(t, path, at)
	got, err := Observe(path)
	require.NoError(t, err)
	assert.True(t, got.Exists)
	assert.True(t, got.ModTime.Equal(at))

	_, err = Observe(dir)
	require.Error(t, err)
}

func TestEnumerateWalk(t *testing.T) {
	dir := t.TempDir()
	at := time.Unix(1_700_000_000, 0)
	touch(t, filepath.Join(dir, "b.png"), at)
	touch(t, filepath.Join(dir, "a.dds"), at)
	touch(t, filepath.Join(dir, "thumbs.DB"), at)
	touch(t, filepath.Join(dir, "nested", "c.png"), at)

	flat, err := Enumerate(Source{Dir: dir, Kind: KindTexture, Ignore: []string{"Thumbs.db"}})
	require.NoError(t, err)
	require.Len(t, flat, 2)
	assert.Equal(t, "a.dds", flat[0].Name)
	assert.Equal(t, "b.png", flat[1].Name)
	assert.Equal(t, KindTexture, flat[0].Kind)
	assert.True(t, flat[0].ModTime.Equal(at))

	deep, err := Enumerate(Source{Dir: dir, Kind: KindTexture, Recursive: true, Ignore: []string{"Thumbs.db"}})
	require.NoError(t, err)
	assert.Len(t, deep, 3)
}

func TestEnumerateMissingDirIsEmpty(t *testing.T) {
	got, err := Enumerate(Source{Dir: filepath.Join(t.TempDir(), "nope")})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnumerateExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "sponza.obj"), time.Unix(100, 0))
	touch(t, filepath.Join(dir, "other.obj"), time.Unix(100, 0))

	got, err := Enumerate(Source{Dir: dir, Kind: KindModel, Files: []string{"sponza.obj"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sponza.obj", got[0].Name)
	assert.Equal(t, KindModel, got[0].Kind)

	_, err = Enumerate(Source{Dir: dir, Files: []string{"missing.obj"}})
	require.Error(t, err)
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindModel, ParseKind("Model"))
	assert.Equal(t, KindTexture, ParseKind("texture"))
	assert.Equal(t, KindOther, ParseKind("audio"))
}
