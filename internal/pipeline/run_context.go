package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/observability"
	"git.home.luguber.info/inful/assetbuilder/internal/state"
	"git.home.luguber.info/inful/assetbuilder/internal/toolchain"
)

// RunContext is the per-run state threaded through every stage: options,
// the marker snapshot read at start, and the collected task records.
type RunContext struct {
	RunID    string
	Options  Options
	Markers  state.Markers
	Logger   *slog.Logger
	Observer Observer

	finder  toolchain.Finder
	tcOnce  sync.Once
	tcPath  string
	tcErr   error
	mu      sync.Mutex
	groups  []string
	records []TaskRecord
}

// Log returns the run logger enriched with the stage and group carried by ctx.
func (rc *RunContext) Log(ctx context.Context) *slog.Logger {
	return observability.LoggerFrom(ctx, rc.Logger)
}

// Toolchain locates the toolchain once per run.
func (rc *RunContext) Toolchain(ctx context.Context) (string, error) {
	rc.tcOnce.Do(func() {
		if rc.finder == nil {
			rc.tcErr = toolchain.ErrNotFound
		} else {
			rc.tcPath, rc.tcErr = rc.finder.Find(ctx)
		}
		if rc.tcErr != nil && errors.Is(rc.tcErr, toolchain.ErrNotFound) {
			rc.tcErr = foundationerrors.WrapError(rc.tcErr, foundationerrors.CategoryToolchain, "no compatible build toolchain found").Build()
		}
	})
	return rc.tcPath, rc.tcErr
}

// CompleteGroup records that a data group finished successfully in this run.
func (rc *RunContext) CompleteGroup(name string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.groups = append(rc.groups, name)
}

// CompletedGroups returns the groups completed so far, in order.
func (rc *RunContext) CompletedGroups() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.groups...)
}

// RecordTask stores a task record and forwards it to the observer.
func (rc *RunContext) RecordTask(rec TaskRecord) {
	rc.mu.Lock()
	rc.records = append(rc.records, rec)
	rc.mu.Unlock()
	if rc.Observer != nil {
		rc.Observer.OnTaskComplete(rec)
	}
}

func (rc *RunContext) taskRecords() []TaskRecord {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]TaskRecord(nil), rc.records...)
}
