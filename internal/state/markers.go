package state

import (
	"maps"
	"slices"
	"time"
)

// Markers is an immutable snapshot of per-group build markers.
type Markers struct {
	PipelineVersion string
	RunID           string
	UpdatedAt       time.Time
	// Discarded is set when stored markers were dropped because the schema or
	// pipeline version changed.
	Discarded bool
	groups    map[string]time.Time
}

// NewMarkers builds a snapshot from a group-to-time map. The map is copied.
func NewMarkers(pipelineVersion string, groups map[string]time.Time) Markers {
	return Markers{PipelineVersion: pipelineVersion, groups: maps.Clone(groups)}
}

// Marker returns the marker for group. The zero time means the group never
// completed, so every asset in it is stale.
func (m Markers) Marker(group string) time.Time {
	return m.groups[group]
}

// Has reports whether a marker is recorded for group.
func (m Markers) Has(group string) bool {
	_, ok := m.groups[group]
	return ok
}

// Groups returns the recorded group names, sorted.
func (m Markers) Groups() []string {
	return slices.Sorted(maps.Keys(m.groups))
}

// Len returns the number of recorded markers.
func (m Markers) Len() int { return len(m.groups) }
