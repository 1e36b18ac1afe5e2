package eventstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
)

// Appender persists typed events.
type Appender interface {
	AppendEvent(ctx context.Context, e Event) error
}

// Recorder is a pipeline observer that appends every run event to the store.
// History failures never fail a build; they are logged and kept in Err.
type Recorder struct {
	pipeline.NoopObserver

	store      Appender
	projection *RunHistoryProjection
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	runID string
	errs  []error
}

// NewRecorder creates a recorder. projection may be nil.
func NewRecorder(store Appender, projection *RunHistoryProjection, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, projection: projection, logger: logger, now: time.Now}
}

// Err returns the history write failures seen so far.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

func (r *Recorder) append(e Event, err error) {
	if err == nil {
		err = r.store.AppendEvent(context.Background(), e)
	}
	if err != nil {
		r.mu.Lock()
		r.errs = append(r.errs, err)
		r.mu.Unlock()
		r.logger.Warn("Failed to record run history", logfields.Error(err))
		return
	}
	if r.projection != nil {
		r.projection.Apply(e)
	}
}

func (r *Recorder) currentRun() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

func (r *Recorder) OnRunStart(report *pipeline.RunReport) {
	r.mu.Lock()
	r.runID = report.RunID
	r.mu.Unlock()

	e, err := NewRunStarted(report.RunID, report.Start, RunStartedMeta{
		ForceRebuild:  report.Options.ForceRebuild,
		Configuration: string(report.Options.Configuration),
		Architecture:  string(report.Options.Architecture),
		Platform:      string(report.Options.Platform),
		Revision:      report.Revision,
	})
	r.append(e, err)
}

func (r *Recorder) OnStageComplete(res pipeline.StageResult) {
	meta := StageCompletedMeta{
		Stage:      string(res.Name),
		Result:     string(res.Label()),
		ElapsedMS:  res.Elapsed.Milliseconds(),
		Ran:        res.Ran,
		Skipped:    res.Skipped,
		FailedStep: res.FailedStep,
	}
	if res.Err != nil {
		meta.Error = res.Err.Error()
	}
	e, err := NewStageCompleted(r.currentRun(), r.now(), meta)
	r.append(e, err)
}

func (r *Recorder) OnToolGate(group, compiler string) {
	e, err := NewToolGateForced(r.currentRun(), r.now(), group, compiler)
	r.append(e, err)
}

func (r *Recorder) OnTaskComplete(rec pipeline.TaskRecord) {
	meta := TaskCompletedMeta{
		Group:      rec.Group,
		Compiler:   rec.Compiler,
		Kind:       string(rec.Kind),
		Asset:      rec.Asset,
		Artifact:   rec.Artifact,
		Status:     string(rec.Status),
		Reason:     string(rec.Reason),
		ExitCode:   rec.ExitCode,
		DurationMS: rec.Duration.Milliseconds(),
	}
	if rec.Err != nil {
		meta.Error = rec.Err.Error()
	}
	e, err := NewTaskCompleted(r.currentRun(), r.now(), meta)
	r.append(e, err)
}

func (r *Recorder) OnRunComplete(report *pipeline.RunReport) {
	ran, skipped, failed := report.TaskCounts()
	meta := RunCompletedMeta{
		Outcome:          string(report.Outcome),
		ElapsedMS:        report.Elapsed().Milliseconds(),
		Ran:              ran,
		Skipped:          skipped,
		Failed:           failed,
		AdvancedGroups:   report.AdvancedGroups,
		MarkersDiscarded: report.MarkersDiscarded,
	}
	if st, ok := report.FailedStage(); ok {
		meta.FailedStage = string(st.Name)
	}
	if report.Err != nil {
		meta.Error = report.Err.Error()
	}
	e, err := NewRunCompleted(report.RunID, report.End, meta)
	r.append(e, err)
}
