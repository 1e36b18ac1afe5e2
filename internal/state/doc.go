// Package state persists build markers between pipeline runs.
//
// A marker is the completion time of the last fully successful pass over a
// data group. Markers are read once at the start of a run into an immutable
// Markers snapshot and advanced only after every stage succeeded. The state
// file also records the pipeline version; a mismatch discards every marker so
// the next run rebuilds everything.
package state
