package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/observability"
	"git.home.luguber.info/inful/assetbuilder/internal/state"
	"git.home.luguber.info/inful/assetbuilder/internal/toolchain"
)

// Plan produces the stages of one run from its run context.
type Plan interface {
	Stages(rc *RunContext) ([]*Stage, error)
}

// PlanFunc adapts a function into a Plan.
type PlanFunc func(rc *RunContext) ([]*Stage, error)

func (f PlanFunc) Stages(rc *RunContext) ([]*Stage, error) { return f(rc) }

// Runner sequences stages, owns the marker snapshot and advances markers on
// full success.
type Runner struct {
	plan     Plan
	store    state.Store
	finder   toolchain.Finder
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	revision string
}

// Option configures a Runner.
type Option func(*Runner)

// WithFinder sets the toolchain finder used by stages that build solutions.
func WithFinder(f toolchain.Finder) Option { return func(r *Runner) { r.finder = f } }

// WithObserver sets the run observer.
func WithObserver(o Observer) Option { return func(r *Runner) { r.observer = o } }

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithClock overrides the clock used for timing and marker advancement.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) Option { return func(r *Runner) { r.newID = fn } }

// WithRevision records the source revision in every report.
func WithRevision(rev string) Option { return func(r *Runner) { r.revision = rev } }

// NewRunner creates a runner for plan persisting markers in store.
func NewRunner(plan Plan, store state.Store, opts ...Option) *Runner {
	r := &Runner{
		plan:     plan,
		store:    store,
		observer: NoopObserver{},
		logger:   slog.Default(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run parses argv, executes the pipeline and returns the process exit code.
func (r *Runner) Run(ctx context.Context, argv []string) int {
	opts, unknown := ParseArgs(argv)
	for _, arg := range unknown {
		r.logger.Warn("Ignoring unrecognized argument", slog.String("arg", arg))
	}
	if _, err := r.Execute(ctx, opts); err != nil {
		return 1
	}
	return 0
}

// Execute runs every planned stage in order. It stops at the first failing
// stage; later stages never run. Markers advance only when all stages succeed.
func (r *Runner) Execute(ctx context.Context, opts Options) (*RunReport, error) {
	report := &RunReport{RunID: r.newID(), Options: opts, Revision: r.revision, Start: r.now()}
	ctx = observability.WithRunID(ctx, report.RunID)
	log := observability.LoggerFrom(ctx, r.logger)

	log.Info("Starting build",
		logfields.ForceRebuild(opts.ForceRebuild),
		logfields.Configuration(string(opts.Configuration)),
		logfields.Architecture(string(opts.Architecture)),
		logfields.Platform(string(opts.Platform)))
	r.observer.OnRunStart(report)

	markers, err := r.store.Load(ctx)
	if err != nil {
		return r.finish(log, report, fmt.Errorf("load build markers: %w", err))
	}
	if markers.Discarded {
		report.MarkersDiscarded = true
		log.Warn("Pipeline version changed; discarding build markers", slog.String("pipeline_version", markers.PipelineVersion))
	}

	rc := &RunContext{
		RunID:    report.RunID,
		Options:  opts,
		Markers:  markers,
		Logger:   r.logger,
		Observer: r.observer,
		finder:   r.finder,
	}
	stages, err := r.plan.Stages(rc)
	if err != nil {
		return r.finish(log, report, fmt.Errorf("plan stages: %w", err))
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			res := StageResult{Name: st.Name, Err: NewCanceledStageError(st.Name, "", err)}
			report.Stages = append(report.Stages, res)
			r.observer.OnStageComplete(res)
			report.Err = res.Err
			break
		}

		sctx := observability.WithStage(ctx, string(st.Name))
		stageLog := observability.LoggerFrom(sctx, r.logger)
		r.observer.OnStageStart(st.Name)
		stageLog.Info("Starting stage")

		res := st.Run(sctx)
		report.Stages = append(report.Stages, res)
		r.observer.OnStageComplete(res)

		if !res.Success {
			stageLog.Error("Stage failed", logfields.Step(res.FailedStep), logfields.Elapsed(res.Elapsed), logfields.Error(res.Err))
			report.Err = res.Err
			break
		}
		stageLog.Info(fmt.Sprintf("Done with %s stage in %.2f seconds", st.Name, res.Elapsed.Seconds()),
			slog.Int("ran", res.Ran), slog.Int("skipped", res.Skipped))
	}

	report.Tasks = rc.taskRecords()
	if report.Err != nil {
		return r.finish(log, report, report.Err)
	}

	completedAt := r.now()
	if groups := rc.CompletedGroups(); len(groups) > 0 {
		if err := r.store.Advance(ctx, groups, completedAt, report.RunID); err != nil {
			report.End = completedAt
			return r.finish(log, report, fmt.Errorf("advance build markers: %w", err))
		}
		report.AdvancedGroups = groups
		log.Debug("Advanced build markers", slog.Any("groups", groups), logfields.Marker(completedAt))
	}
	report.End = completedAt
	return r.finish(log, report, nil)
}

func (r *Runner) finish(log *slog.Logger, report *RunReport, err error) (*RunReport, error) {
	report.Err = err
	if report.End.IsZero() {
		report.End = r.now()
	}
	report.deriveOutcome()

	ran, skipped, failed := report.TaskCounts()
	attrs := []any{
		slog.String("outcome", string(report.Outcome)),
		slog.Int("ran", ran), slog.Int("skipped", skipped), slog.Int("failed", failed),
	}
	if err != nil {
		log.Error(fmt.Sprintf("Build failed after %.2f seconds", report.Elapsed().Seconds()), append(attrs, logfields.Error(err))...)
	} else {
		log.Info(fmt.Sprintf("Done in %.2f seconds", report.Elapsed().Seconds()), attrs...)
	}
	r.observer.OnRunComplete(report)
	return report, err
}
