package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	"git.home.luguber.info/inful/assetbuilder/internal/git"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/notify"
	"git.home.luguber.info/inful/assetbuilder/internal/observability"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/process"
	"git.home.luguber.info/inful/assetbuilder/internal/state"
)

// Global is passed to every subcommand.
type Global struct {
	Ctx    context.Context
	Logger *slog.Logger
	// Runner launches external processes; nil runs real processes.
	Runner process.Runner
}

func (g *Global) context() context.Context {
	if g == nil || g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"assetbuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"withargs" help:"Build tools, data and project (tokens: rebuild, release, profile, x64, x86)"`
	Tools   ToolsCmd   `cmd:"" help:"Build the asset compiler solutions only"`
	Data    DataCmd    `cmd:"" help:"Compile changed assets only"`
	Project ProjectCmd `cmd:"" help:"Build the project and its distribution layout only"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild data whenever asset sources change"`
	History HistoryCmd `cmd:"" help:"Show recorded build runs"`
	Init    InitCmd    `cmd:"" help:"Write the default configuration file"`
}

// AfterApply runs after flag parsing; setup console logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.level(slog.LevelInfo)})))
	return nil
}

func (c *CLI) level(configured slog.Level) slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return configured
}

// parseTokens resolves run options and reports tokens it did not recognise.
func parseTokens(tokens []string, logger *slog.Logger) pipeline.Options {
	opts, unknown := pipeline.ParseArgs(tokens)
	if len(unknown) > 0 {
		logger.Warn("Ignoring unknown arguments", slog.String("args", strings.Join(unknown, " ")))
	}
	return opts
}

// session holds everything one command invocation wires together.
type session struct {
	cfg      *config.Config
	plan     pipeline.ConfigPlan
	logs     *observability.LogSink
	logger   *slog.Logger
	registry *prom.Registry
	store    state.Store
	history  *eventstore.SQLiteStore
	recorder *eventstore.Recorder
	notifier *notify.Notifier
	revision string
}

// openSession loads the configuration and opens the per-run log file named
// logName plus the optional history store and notifier.
func openSession(g *Global, root *CLI, logName string, only ...pipeline.StageName) (*session, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}

	logs, err := observability.SetupLogging(observability.LogOptions{
		Dir:   cfg.Path(cfg.Logging.Dir, config.Vars{}),
		Name:  logName,
		Level: root.level(cfg.Logging.SlogLevel()),
	})
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	s := &session{
		cfg:      cfg,
		plan:     pipeline.ConfigPlan{Config: cfg, Runner: g.Runner, Only: only},
		logs:     logs,
		logger:   logs.Logger,
		registry: prom.NewRegistry(),
		store:    state.NewJSONStore(cfg.Path(cfg.StateFile, config.Vars{}), cfg.PipelineVersion),
	}
	if logs.Path != "" {
		s.logger.Debug("Writing log file", logfields.Path(logs.Path))
	}

	if rev, err := git.HeadRevision(cfg.RootDir()); err == nil {
		s.revision = rev.String()
	} else if !errors.Is(err, git.ErrNotRepository) {
		s.logger.Debug("Source revision unavailable", logfields.Error(err))
	}

	if cfg.History.IsEnabled() {
		hist, err := eventstore.NewSQLiteStore(cfg.Path(cfg.History.Path, config.Vars{}))
		if err != nil {
			s.logger.Warn("Run history disabled", logfields.Error(err))
		} else {
			s.history = hist
			s.recorder = eventstore.NewRecorder(hist, nil, s.logger)
		}
	}

	n, err := notify.Connect(cfg.Notify, cfg.Project.Name, s.logger)
	if err != nil {
		s.logger.Warn("Run notifications disabled", logfields.Error(err))
	} else {
		s.notifier = n
	}
	return s, nil
}

func (s *session) observer(prometheus *metrics.PrometheusRecorder) pipeline.Observer {
	obs := pipeline.MultiObserver{pipeline.RecorderObserver{Recorder: prometheus}}
	if s.recorder != nil {
		obs = append(obs, s.recorder)
	}
	if s.notifier != nil && s.notifier.Enabled() {
		obs = append(obs, s.notifier)
	}
	return obs
}

// runner returns a pipeline runner restricted to only; nil keeps the
// session's stage selection.
func (s *session) runner(prometheus *metrics.PrometheusRecorder, only []pipeline.StageName) *pipeline.Runner {
	plan := s.plan
	if only != nil {
		plan.Only = only
	}
	return pipeline.NewRunner(plan, s.store,
		pipeline.WithFinder(pipeline.NewFinder(s.cfg, s.plan.Runner)),
		pipeline.WithObserver(s.observer(prometheus)),
		pipeline.WithLogger(s.logger),
		pipeline.WithRevision(s.revision),
	)
}

// execute runs one build and exports metrics afterwards.
func (s *session) execute(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.RunReport, error) {
	report, err := runner.Execute(ctx, opts)
	s.writeTextfile()
	return report, err
}

func (s *session) writeTextfile() {
	path := s.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	path = s.cfg.Path(path, config.Vars{})
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		s.logger.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
		return
	}
	if err := metrics.WriteTextfile(s.registry, path); err != nil {
		s.logger.Warn("Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

// ignoreFunc drops watch events for ignored names and compiler log output.
func (s *session) ignoreFunc() func(string) bool {
	logDir := s.cfg.Path(s.cfg.Data.LogDir, config.Vars{})
	return func(path string) bool {
		base := filepath.Base(path)
		if slices.ContainsFunc(s.cfg.Data.Ignore, func(name string) bool { return strings.EqualFold(name, base) }) {
			return true
		}
		if logDir == "" {
			return false
		}
		rel, err := filepath.Rel(logDir, path)
		return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
	}
}

func (s *session) Close() {
	if s.notifier != nil {
		s.notifier.Close()
	}
	if s.recorder != nil {
		if err := s.recorder.Err(); err != nil {
			s.logger.Warn("Run history incomplete", logfields.Error(err))
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("Failed to close run history", logfields.Error(err))
		}
	}
	if err := s.logs.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
	}
}

// runStages executes one build of the given stages with tokens as options.
func runStages(g *Global, root *CLI, logName string, tokens []string, only ...pipeline.StageName) error {
	s, err := openSession(g, root, logName, only...)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := parseTokens(tokens, s.logger)
	prometheus := metrics.NewPrometheusRecorder(s.registry)
	_, err = s.execute(g.context(), s.runner(prometheus, nil), opts)
	return err
}
