package config

import (
	"log/slog"
	"strings"
	"time"
)

// Config is the assetbuilder configuration file (assetbuilder.yaml).
type Config struct {
	Version string `yaml:"version"`
	// Root is the project root all relative paths resolve against. A relative
	// root is taken relative to the directory holding the config file.
	Root string `yaml:"root"`
	// PipelineVersion is stored next to the markers; changing it discards them.
	PipelineVersion string `yaml:"pipeline_version"`
	StateFile       string `yaml:"state_file"`

	Logging   LoggingConfig    `yaml:"logging"`
	Toolchain ToolchainConfig  `yaml:"toolchain"`
	Tools     ToolsConfig      `yaml:"tools"`
	Compilers []CompilerConfig `yaml:"compilers"`
	Data      DataConfig       `yaml:"data"`
	Project   ProjectConfig    `yaml:"project"`
	History   HistoryConfig    `yaml:"history"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Notify    NotifyConfig     `yaml:"notify"`
	Watch     WatchConfig      `yaml:"watch"`

	// baseDir is the directory of the loaded config file.
	baseDir string
}

// LoggingConfig controls console and per-run log files.
type LoggingConfig struct {
	Dir   string `yaml:"dir"`   // Per-run log files, e.g. "Logs"
	Level string `yaml:"level"` // debug|info|warn|error
}

// ToolchainConfig locates and drives the native build toolchain.
type ToolchainConfig struct {
	Path        string   `yaml:"path,omitempty"` // Explicit toolchain directory, skips discovery
	VSWhere     string   `yaml:"vswhere"`        // Locator executable printing installationPath
	EnvVars     []string `yaml:"env_vars"`       // Legacy environment variables, in preference order
	Shell       string   `yaml:"shell"`
	SetupScript string   `yaml:"setup_script"`
	MSBuild     string   `yaml:"msbuild"`
}

// ToolsConfig describes the tools stage.
type ToolsConfig struct {
	SolutionDir   string   `yaml:"solution_dir"`
	Solutions     []string `yaml:"solutions"`
	Configuration string   `yaml:"configuration"` // Tools always build in one configuration
}

// CompilerConfig describes one asset compiler executable.
type CompilerConfig struct {
	Name           string       `yaml:"name"`
	Kind           string       `yaml:"kind"` // model|texture|other
	Executable     string       `yaml:"executable"`
	Extension      string       `yaml:"extension"`
	DefaultOptions string       `yaml:"default_options"`
	Rules          []RuleConfig `yaml:"rules,omitempty"`
}

// RuleConfig maps matching filenames to compiler options. Exactly one of
// Exact, Contains or Glob is set.
type RuleConfig struct {
	Name     string `yaml:"name,omitempty"`
	Exact    string `yaml:"exact,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Glob     string `yaml:"glob,omitempty"`
	Options  string `yaml:"options"`
}

// DataConfig describes the data stage.
type DataConfig struct {
	LogDir string `yaml:"log_dir"` // Passed to compilers as -log
	// CompareArtifactMtime additionally rebuilds assets newer than their artifact.
	CompareArtifactMtime bool          `yaml:"compare_artifact_mtime"`
	Ignore               []string      `yaml:"ignore"`
	Groups               []GroupConfig `yaml:"groups"`
}

// GroupConfig is one ordered data-build group with its own marker.
type GroupConfig struct {
	Name string           `yaml:"name"`
	Sets []AssetSetConfig `yaml:"sets"`
}

// AssetSetConfig is a source directory compiled by one compiler into one output directory.
type AssetSetConfig struct {
	Compiler  string       `yaml:"compiler"`
	Source    string       `yaml:"source"`
	Output    string       `yaml:"output"`
	Files     []string     `yaml:"files,omitempty"` // Explicit file list; empty walks Source
	Recursive bool         `yaml:"recursive,omitempty"`
	Rules     []RuleConfig `yaml:"rules,omitempty"` // Evaluated before the compiler's rules
}

// ProjectConfig describes the project stage and its distribution layout.
type ProjectConfig struct {
	Name        string   `yaml:"name"`
	SolutionDir string   `yaml:"solution_dir"`
	Solutions   []string `yaml:"solutions"`
	BinDir      string   `yaml:"bin_dir"`
	DataDir     string   `yaml:"data_dir"`
	DistDir     string   `yaml:"dist_dir"`
	Artifacts   []string `yaml:"artifacts"`
	Launchers   bool     `yaml:"launchers"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path"`
}

// IsEnabled reports whether run history is recorded (default true).
func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// MetricsConfig controls Prometheus export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"` // Written after each run
	Listen   string `yaml:"listen,omitempty"`   // HTTP address in watch mode
}

// NotifyConfig controls NATS run notifications.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
	// Retries is the number of publish retries after a failure.
	Retries    int    `yaml:"retries,omitempty"`
	Backoff    string `yaml:"backoff,omitempty"` // fixed|linear|exponential
	RetryDelay string `yaml:"retry_delay,omitempty"`
}

// RetryDelayDuration returns the parsed initial retry delay, zero when unset.
func (n NotifyConfig) RetryDelayDuration() time.Duration {
	d, err := time.ParseDuration(n.RetryDelay)
	if err != nil {
		return 0
	}
	return d
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce string   `yaml:"debounce"`
	Every    string   `yaml:"every,omitempty"` // Periodic full build interval
	Paths    []string `yaml:"paths,omitempty"` // Defaults to every asset set source
}

// Compiler returns the compiler named name.
func (c *Config) Compiler(name string) (CompilerConfig, bool) {
	for _, comp := range c.Compilers {
		if comp.Name == name {
			return comp, true
		}
	}
	return CompilerConfig{}, false
}

// SlogLevel maps Level onto slog; unknown values fall back to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DebounceDuration returns the parsed debounce window (300ms when unparsable).
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// Interval returns the periodic build interval, zero when disabled.
func (w WatchConfig) Interval() time.Duration {
	d, err := time.ParseDuration(w.Every)
	if err != nil {
		return 0
	}
	return d
}
