// Package watch re-runs builds when asset sources change and on a schedule.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Trigger names what started a build.
type Trigger string

const (
	TriggerInitial  Trigger = "initial"
	TriggerChange   Trigger = "change"
	TriggerSchedule Trigger = "schedule"
)

// BuildFunc runs one build. changed lists the paths seen since the previous
// change build; it is empty for initial and scheduled builds.
type BuildFunc func(ctx context.Context, trigger Trigger, changed []string) error

// Settings configures a Watcher.
type Settings struct {
	Paths    []string
	Debounce time.Duration
	// Interval schedules periodic builds; zero disables the scheduler.
	Interval time.Duration
	// Initial runs one build before watching.
	Initial bool
	// Ignore reports paths whose events are dropped.
	Ignore func(path string) bool
}

// Watcher serializes change-triggered and scheduled builds.
type Watcher struct {
	settings Settings
	build    BuildFunc
	logger   *slog.Logger

	fsw   *fsnotify.Watcher
	sched gocron.Scheduler

	buildMu sync.Mutex // one build at a time

	pendingMu sync.Mutex
	pending   map[string]struct{}
	kick      chan struct{}

	builds int
}

// New creates a watcher; Run starts it.
func New(settings Settings, build BuildFunc, logger *slog.Logger) (*Watcher, error) {
	if build == nil {
		return nil, errors.New("watch: nil build function")
	}
	if len(settings.Paths) == 0 {
		return nil, errors.New("watch: no paths to watch")
	}
	if settings.Debounce <= 0 {
		settings.Debounce = 300 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		settings: settings,
		build:    build,
		logger:   logger,
		fsw:      fsw,
		pending:  make(map[string]struct{}),
		kick:     make(chan struct{}, 1),
	}, nil
}

// Run watches until ctx is done. Build errors are logged, not returned.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	for _, p := range w.settings.Paths {
		if err := w.addTree(p); err != nil {
			return err
		}
	}
	w.logger.Info("Watching asset sources",
		slog.Int("paths", len(w.settings.Paths)),
		slog.Duration("debounce", w.settings.Debounce))

	if w.settings.Interval > 0 {
		if err := w.startScheduler(ctx); err != nil {
			return err
		}
		defer func() {
			if err := w.sched.Shutdown(); err != nil {
				w.logger.Error("Error stopping scheduler", logfields.Error(err))
			}
		}()
	}

	if w.settings.Initial {
		w.runBuild(ctx, TriggerInitial, nil)
	}

	go w.debounceLoop(ctx)
	return w.eventLoop(ctx)
}

// Builds returns how many builds have run.
func (w *Watcher) Builds() int {
	w.buildMu.Lock()
	defer w.buildMu.Unlock()
	return w.builds
}

func (w *Watcher) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.fsw.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) && path != root {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	return w.settings.Ignore != nil && w.settings.Ignore(path)
}

func (w *Watcher) eventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || w.ignored(event.Name) {
		return
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
		}
	}
	w.logger.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))

	w.pendingMu.Lock()
	w.pending[event.Name] = struct{}{}
	w.pendingMu.Unlock()

	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// debounceLoop starts a change build once events stop arriving for the
// debounce window.
func (w *Watcher) debounceLoop(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
			timer.Reset(w.settings.Debounce)
		case <-timer.C:
			changed := w.drain()
			if len(changed) == 0 {
				continue
			}
			w.runBuild(ctx, TriggerChange, changed)
		}
	}
}

func (w *Watcher) drain() []string {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	clear(w.pending)
	slices.Sort(out)
	return out
}

func (w *Watcher) startScheduler(ctx context.Context) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.settings.Interval),
		gocron.NewTask(func() { w.runBuild(ctx, TriggerSchedule, nil) }),
		gocron.WithName("periodic-build"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to create periodic build job: %w", err)
	}
	w.sched = s
	s.Start()
	w.logger.Info("Scheduled periodic builds", slog.Duration("every", w.settings.Interval))
	return nil
}

func (w *Watcher) runBuild(ctx context.Context, trigger Trigger, changed []string) {
	w.buildMu.Lock()
	defer w.buildMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	w.builds++
	w.logger.Info("Build triggered", slog.String("trigger", string(trigger)), slog.Int("changed", len(changed)))
	if err := w.build(ctx, trigger, changed); err != nil {
		w.logger.Error("Triggered build failed", slog.String("trigger", string(trigger)), logfields.Error(err))
	}
}
