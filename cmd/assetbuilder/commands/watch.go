package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Tokens    []string `arg:"" optional:"" help:"Run options applied to every triggered build"`
	NoInitial bool     `name:"no-initial" help:"Skip the full build on startup"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	s, err := openSession(g, root, "WatchBuild")
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := g.context()
	opts := parseTokens(w.Tokens, s.logger)
	prometheus := metrics.NewPrometheusRecorder(s.registry)
	full := s.runner(prometheus, nil)
	dataOnly := s.runner(prometheus, []pipeline.StageName{pipeline.StageData})

	paths := s.plan.SourceDirs(opts)
	if len(s.cfg.Watch.Paths) > 0 {
		paths = paths[:0]
		vars := s.plan.Vars(opts)
		for _, p := range s.cfg.Watch.Paths {
			paths = append(paths, s.cfg.Path(p, vars))
		}
	}

	watcher, err := watch.New(watch.Settings{
		Paths:    paths,
		Debounce: s.cfg.Watch.DebounceDuration(),
		Interval: s.cfg.Watch.Interval(),
		Initial:  !w.NoInitial,
		Ignore:   s.ignoreFunc(),
	}, s.watchBuild(full, dataOnly, opts), s.logger)
	if err != nil {
		return err
	}

	if s.cfg.Metrics.Listen != "" {
		stop := serveMetrics(s, s.cfg.Metrics.Listen)
		defer stop()
	}
	return watcher.Run(ctx)
}

// watchBuild runs a full build for initial and scheduled triggers. A change
// runs the data stage with the changed files forced: an edit landing while
// the previous build ran is older than the marker that build wrote.
func (s *session) watchBuild(full, dataOnly *pipeline.Runner, opts pipeline.Options) watch.BuildFunc {
	return func(ctx context.Context, trigger watch.Trigger, changed []string) error {
		runner, run := full, opts
		if trigger == watch.TriggerChange {
			runner = dataOnly
			run.ForcePaths = changed
		}
		_, err := s.execute(ctx, runner, run)
		return err
	}
}

// serveMetrics exposes the session registry over HTTP until the returned
// function is called.
func serveMetrics(s *session, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		s.logger.Info("Serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("Failed to stop metrics server", logfields.Error(fmt.Errorf("shutdown: %w", err)))
		}
	}
}
