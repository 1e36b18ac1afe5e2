// Package incremental decides which compiled artifacts must be rebuilt.
//
// All decisions are pure timestamp comparisons against the run's marker; no
// content hashing is performed.
package incremental

import "time"

// Reason explains a staleness verdict.
type Reason string

const (
	ReasonForced          Reason = "forced"
	ReasonMissingArtifact Reason = "missing_artifact"
	ReasonSourceNewer     Reason = "source_newer"
	ReasonArtifactOlder   Reason = "artifact_older"
	ReasonUpToDate        Reason = "up_to_date"
)

// Inputs are the observations a staleness verdict is computed from.
type Inputs struct {
	Source         time.Time
	ArtifactExists bool
	Artifact       time.Time
	Marker         time.Time
	Force          bool
	// CompareArtifact also treats a source newer than its own artifact as stale.
	CompareArtifact bool
}

// Decision is a staleness verdict.
type Decision struct {
	Stale  bool
	Reason Reason
}

// Evaluate applies the rules in precedence order: force, missing artifact,
// source newer than marker, and (opt-in) source newer than artifact.
func Evaluate(in Inputs) Decision {
	switch {
	case in.Force:
		return Decision{Stale: true, Reason: ReasonForced}
	case !in.ArtifactExists:
		return Decision{Stale: true, Reason: ReasonMissingArtifact}
	case in.Source.After(in.Marker):
		return Decision{Stale: true, Reason: ReasonSourceNewer}
	case in.CompareArtifact && in.Source.After(in.Artifact):
		return Decision{Stale: true, Reason: ReasonArtifactOlder}
	default:
		return Decision{Stale: false, Reason: ReasonUpToDate}
	}
}

// IsStale reports whether an artifact must be rebuilt. The artifact timestamp
// is accepted for interface symmetry but ignored.
func IsStale(source time.Time, artifactExists bool, artifact, marker time.Time, force bool) bool {
	return Evaluate(Inputs{
		Source:         source,
		ArtifactExists: artifactExists,
		Artifact:       artifact,
		Marker:         marker,
		Force:          force,
	}).Stale
}

// ShouldForceRebuildForTool reports whether a compiler executable changed
// after the marker, forcing every asset it produces to be rebuilt.
func ShouldForceRebuildForTool(tool, marker time.Time) bool {
	return tool.After(marker)
}
