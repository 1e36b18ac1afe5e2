package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// SchemaVersion is the state file layout version.
const SchemaVersion = 1

// Store loads and advances build markers.
type Store interface {
	Load(ctx context.Context) (Markers, error)
	Advance(ctx context.Context, groups []string, at time.Time, runID string) error
}

// stateFile is the on-disk layout.
type stateFile struct {
	SchemaVersion   int                  `json:"schema_version"`
	PipelineVersion string               `json:"pipeline_version"`
	RunID           string               `json:"run_id,omitempty"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Markers         map[string]time.Time `json:"markers"`
}

// JSONStore keeps markers in a single JSON file written atomically.
type JSONStore struct {
	path            string
	pipelineVersion string
	mu              sync.Mutex
	now             func() time.Time
}

// NewJSONStore creates a store for path. pipelineVersion is compared with the
// stored value on every Load.
func NewJSONStore(path, pipelineVersion string) *JSONStore {
	return &JSONStore{path: path, pipelineVersion: pipelineVersion, now: time.Now}
}

// Path returns the state file location.
func (js *JSONStore) Path() string { return js.path }

// Load returns the current marker snapshot. A missing file yields an empty
// snapshot; a version mismatch yields an empty snapshot with Discarded set.
func (js *JSONStore) Load(ctx context.Context) (Markers, error) {
	if err := ctx.Err(); err != nil {
		return Markers{}, err
	}
	js.mu.Lock()
	defer js.mu.Unlock()

	sf, err := js.readUnsafe()
	if err != nil {
		return Markers{}, err
	}
	if sf == nil {
		return NewMarkers(js.pipelineVersion, nil), nil
	}
	if sf.SchemaVersion != SchemaVersion || sf.PipelineVersion != js.pipelineVersion {
		m := NewMarkers(js.pipelineVersion, nil)
		m.Discarded = true
		return m, nil
	}
	m := NewMarkers(sf.PipelineVersion, sf.Markers)
	m.RunID = sf.RunID
	m.UpdatedAt = sf.UpdatedAt
	return m, nil
}

// Advance sets the marker of every listed group to at and persists the file.
// Markers of groups not listed are kept unless the stored version differs.
func (js *JSONStore) Advance(ctx context.Context, groups []string, at time.Time, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	js.mu.Lock()
	defer js.mu.Unlock()

	sf, err := js.readUnsafe()
	if err != nil {
		return err
	}
	if sf == nil || sf.SchemaVersion != SchemaVersion || sf.PipelineVersion != js.pipelineVersion {
		sf = &stateFile{}
	}
	if sf.Markers == nil {
		sf.Markers = make(map[string]time.Time, len(groups))
	}
	for _, g := range groups {
		sf.Markers[g] = at.UTC()
	}
	sf.SchemaVersion = SchemaVersion
	sf.PipelineVersion = js.pipelineVersion
	sf.RunID = runID
	sf.UpdatedAt = js.now().UTC()

	return js.writeUnsafe(sf)
}

// readUnsafe reads the state file without acquiring the lock. A missing file
// returns nil, nil.
func (js *JSONStore) readUnsafe() (*stateFile, error) {
	data, err := os.ReadFile(js.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryState, "failed to read state file").
			WithContext("path", js.path).
			Build()
	}
	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryState, "failed to unmarshal state file").
			WithContext("path", js.path).
			Build()
	}
	return &sf, nil
}

// writeUnsafe saves the state file without acquiring the lock.
func (js *JSONStore) writeUnsafe(sf *stateFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(js.path), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryState, "failed to create state directory").Build()
	}

	// Atomic write using temporary file
	tempPath := js.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryState, "failed to write temporary state file").Build()
	}
	if err := os.Rename(tempPath, js.path); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryState, "failed to replace state file").Build()
	}
	return nil
}
