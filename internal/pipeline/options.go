package pipeline

import (
	"path/filepath"
	"slices"
	"strings"
)

// Architecture is the target CPU architecture.
type Architecture string

const (
	ArchX64 Architecture = "x64"
	ArchX86 Architecture = "x86"
)

// MSBuildPlatform is the solution platform name: x64 or Win32.
func (a Architecture) MSBuildPlatform() string {
	if a == ArchX86 {
		return "Win32"
	}
	return "x64"
}

// ToolsPlatform is the platform directory the asset compilers are built into.
func (a Architecture) ToolsPlatform() string { return a.MSBuildPlatform() }

// Configuration is the project build configuration.
type Configuration string

const (
	ConfigRelease Configuration = "Release"
	ConfigProfile Configuration = "Profile"
)

// Platform is the target operating system.
type Platform string

const PlatformWindows Platform = "Windows"

// Options are the run flags. Later tokens win within a category.
type Options struct {
	ForceRebuild  bool
	Configuration Configuration
	Architecture  Architecture
	Platform      Platform
	// ForcePaths are sources compiled regardless of staleness. Watch mode
	// sets them to the files changed since the last build.
	ForcePaths []string
}

// Forces reports whether path is listed in ForcePaths.
func (o Options) Forces(path string) bool {
	path = filepath.Clean(path)
	return slices.ContainsFunc(o.ForcePaths, func(p string) bool { return filepath.Clean(p) == path })
}

// DefaultOptions returns Release, x64, Windows without forced rebuild.
func DefaultOptions() Options {
	return Options{Configuration: ConfigRelease, Architecture: ArchX64, Platform: PlatformWindows}
}

// ParseArgs applies recognised tokens to the defaults. Matching is
// case-insensitive and exact; unknown tokens are returned for reporting.
func ParseArgs(args []string) (Options, []string) {
	opts := DefaultOptions()
	var unknown []string
	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "rebuild":
			opts.ForceRebuild = true
		case "release":
			opts.Configuration = ConfigRelease
		case "profile":
			opts.Configuration = ConfigProfile
		case "x64":
			opts.Architecture = ArchX64
		case "x86", "win32":
			opts.Architecture = ArchX86
		case "windows":
			opts.Platform = PlatformWindows
		default:
			unknown = append(unknown, arg)
		}
	}
	return opts, unknown
}
