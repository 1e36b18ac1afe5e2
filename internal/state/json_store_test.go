package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "state.json"), "1")

	m, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Discarded)
	assert.True(t, m.Marker("anything").IsZero())
}

func TestAdvanceAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewJSONStore(path, "1")
	t1 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.Advance(ctx, []string{"models", "textures"}, t1, "run-1"))

	m, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"models", "textures"}, m.Groups())
	assert.True(t, m.Marker("models").Equal(t1))
	assert.Equal(t, "run-1", m.RunID)

	// Advancing one group keeps the other.
	t2 := t1.Add(time.Hour)
	require.NoError(t, store.Advance(ctx, []string{"textures"}, t2, "run-2"))
	m, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, m.Marker("models").Equal(t1))
	assert.True(t, m.Marker("textures").Equal(t2))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")
}

func TestPipelineVersionMismatchDiscardsMarkers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, NewJSONStore(path, "1").Advance(ctx, []string{"models"}, time.Now(), "run-1"))

	store := NewJSONStore(path, "2")
	m, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, m.Discarded)
	assert.Equal(t, 0, m.Len())

	require.NoError(t, store.Advance(ctx, []string{"textures"}, time.Now(), "run-2"))
	m, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"textures"}, m.Groups())
	assert.Equal(t, "2", m.PipelineVersion)
}

func TestCorruptStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewJSONStore(path, "1").Load(context.Background())
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryState))
}

func TestSnapshotIsImmutable(t *testing.T) {
	src := map[string]time.Time{"g": time.Unix(10, 0)}
	m := NewMarkers("1", src)
	src["g"] = time.Unix(20, 0)
	assert.True(t, m.Marker("g").Equal(time.Unix(10, 0)))
	assert.True(t, m.Has("g"))
	assert.False(t, m.Has("other"))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewJSONStore(filepath.Join(t.TempDir(), "state.json"), "1")
	_, err := store.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, store.Advance(ctx, nil, time.Now(), ""), context.Canceled)
}
