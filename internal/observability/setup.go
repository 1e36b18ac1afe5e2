package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LogFileTimeFormat is the timestamp layout embedded in per-run log file names.
const LogFileTimeFormat = "20060102150405"

// LogOptions configures SetupLogging.
type LogOptions struct {
	// Dir receives the per-run log file. Empty disables the file sink.
	Dir string
	// Name prefixes the log file name, e.g. "DataBuild".
	Name  string
	Level slog.Level
	// Console receives the mirrored records; defaults to os.Stderr.
	Console io.Writer
	// Now overrides the clock used for the file name.
	Now func() time.Time
}

// LogSink is the result of SetupLogging.
type LogSink struct {
	Logger *slog.Logger
	// Path of the per-run log file, empty when no file sink is configured.
	Path string
	file *os.File
}

// Close flushes and closes the log file, if any.
func (s *LogSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// LogFilePath returns <dir>/<name>_<timestamp>.log.
func LogFilePath(dir, name string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, at.Format(LogFileTimeFormat)))
}

// SetupLogging creates a text logger writing to the console and, when Dir is
// set, to a fresh timestamped log file.
func SetupLogging(opts LogOptions) (*LogSink, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	sink := &LogSink{}
	var out io.Writer = console
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := opts.Name
		if name == "" {
			name = "Build"
		}
		sink.Path = LogFilePath(opts.Dir, name, now())
		// #nosec G304 -- path is built from configured log dir
		f, err := os.OpenFile(sink.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		sink.file = f
		out = io.MultiWriter(console, f)
	}

	sink.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: opts.Level}))
	return sink, nil
}
