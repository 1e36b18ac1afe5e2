package incremental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsStaleTruthTable(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	before := t0.Add(-time.Second)
	after := t0.Add(time.Second)

	for _, force := range []bool{false, true} {
		for _, exists := range []bool{false, true} {
			for _, src := range []time.Time{before, t0, after} {
				for _, art := range []time.Time{{}, before, after} {
					want := force || !exists || src.After(t0)
					got := IsStale(src, exists, art, t0, force)
					assert.Equal(t, want, got, "force=%v exists=%v src=%v art=%v", force, exists, src, art)
				}
			}
		}
	}
}

func TestEvaluateReasons(t *testing.T) {
	marker := time.Unix(1000, 0)
	tests := []struct {
		name string
		in   Inputs
		want Decision
	}{
		{"force dominates", Inputs{Force: true, ArtifactExists: true, Source: marker.Add(-time.Hour), Marker: marker}, Decision{true, ReasonForced}},
		{"missing artifact", Inputs{ArtifactExists: false, Source: marker.Add(-time.Hour), Marker: marker}, Decision{true, ReasonMissingArtifact}},
		{"source newer", Inputs{ArtifactExists: true, Source: marker.Add(time.Second), Marker: marker}, Decision{true, ReasonSourceNewer}},
		{"equal is up to date", Inputs{ArtifactExists: true, Source: marker, Marker: marker}, Decision{false, ReasonUpToDate}},
		{"zero marker", Inputs{ArtifactExists: true, Source: marker}, Decision{true, ReasonSourceNewer}},
		{"artifact older ignored by default", Inputs{ArtifactExists: true, Source: marker.Add(-time.Minute), Artifact: marker.Add(-time.Hour), Marker: marker}, Decision{false, ReasonUpToDate}},
		{"artifact older opt-in", Inputs{ArtifactExists: true, Source: marker.Add(-time.Minute), Artifact: marker.Add(-time.Hour), Marker: marker, CompareArtifact: true}, Decision{true, ReasonArtifactOlder}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.in))
		})
	}
}

func TestShouldForceRebuildForTool(t *testing.T) {
	t0 := time.Unix(5000, 0)
	assert.True(t, ShouldForceRebuildForTool(t0.Add(time.Nanosecond), t0))
	assert.False(t, ShouldForceRebuildForTool(t0, t0))
	assert.False(t, ShouldForceRebuildForTool(t0.Add(-time.Hour), t0))
	assert.True(t, ShouldForceRebuildForTool(t0, time.Time{}), "zero marker forces every tool")
}

// wall.obj: first run with no artifact compiles; second run with the marker
// advanced past the source skips.
func TestWallScenario(t *testing.T) {
	t0 := time.Unix(10_000, 0)
	src := t0.Add(-time.Second)

	assert.True(t, IsStale(src, false, time.Time{}, t0, false))

	t1 := t0.Add(time.Minute)
	assert.False(t, IsStale(src, true, t0.Add(time.Second), t1, false))
}
