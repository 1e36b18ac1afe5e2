package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID         = "run_id"
	KeyStage         = "stage"
	KeyStep          = "step"
	KeyGroup         = "group"
	KeyAsset         = "asset"
	KeyKind          = "kind"
	KeyCompiler      = "compiler"
	KeyExecutable    = "executable"
	KeyOptions       = "options"
	KeyReason        = "reason"
	KeyExitCode      = "exit_code"
	KeySolution      = "solution"
	KeyPlatform      = "platform"
	KeyArchitecture  = "architecture"
	KeyConfiguration = "configuration"
	KeyForceRebuild  = "force_rebuild"
	KeyPath          = "path"
	KeyMarker        = "marker"
	KeyDurationMS    = "duration_ms"
	KeyElapsed       = "elapsed"
	KeyOutput        = "output"
	KeyError         = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr        { return slog.String(KeyStage, name) }
func Step(name string) slog.Attr         { return slog.String(KeyStep, name) }
func Group(name string) slog.Attr        { return slog.String(KeyGroup, name) }
func Asset(path string) slog.Attr        { return slog.String(KeyAsset, path) }
func Kind(k string) slog.Attr            { return slog.String(KeyKind, k) }
func Compiler(name string) slog.Attr     { return slog.String(KeyCompiler, name) }
func Executable(path string) slog.Attr   { return slog.String(KeyExecutable, path) }
func Options(opts string) slog.Attr      { return slog.String(KeyOptions, opts) }
func Reason(r string) slog.Attr          { return slog.String(KeyReason, r) }
func ExitCode(code int) slog.Attr        { return slog.Int(KeyExitCode, code) }
func Solution(name string) slog.Attr     { return slog.String(KeySolution, name) }
func Platform(p string) slog.Attr        { return slog.String(KeyPlatform, p) }
func Architecture(a string) slog.Attr    { return slog.String(KeyArchitecture, a) }
func Configuration(c string) slog.Attr   { return slog.String(KeyConfiguration, c) }
func ForceRebuild(f bool) slog.Attr      { return slog.Bool(KeyForceRebuild, f) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Marker(ts time.Time) slog.Attr      { return slog.Time(KeyMarker, ts) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Elapsed(d time.Duration) slog.Attr  { return slog.Duration(KeyElapsed, d) }
func Output(line string) slog.Attr       { return slog.String(KeyOutput, line) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
