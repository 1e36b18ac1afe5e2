package config

import (
	"os"
	"path/filepath"
)

// Vars are the per-run placeholder values substituted into configured paths.
type Vars struct {
	Arch          string // MSBuild platform name: x64|Win32
	ToolsPlatform string // Same as Arch; kept for tool paths
	Configuration string
	Platform      string // e.g. Windows
	Project       string
}

func (v Vars) lookup(name string) (string, bool) {
	switch name {
	case "arch":
		return v.Arch, true
	case "tools_platform":
		return v.ToolsPlatform, true
	case "configuration":
		return v.Configuration, true
	case "platform":
		return v.Platform, true
	case "project":
		return v.Project, true
	}
	return "", false
}

// Expand substitutes ${name} placeholders, then environment variables.
func (v Vars) Expand(s string) string {
	return os.Expand(s, func(name string) string {
		if val, ok := v.lookup(name); ok {
			return val
		}
		return os.Getenv(name)
	})
}

// BaseDir is the directory holding the loaded config file.
func (c *Config) BaseDir() string {
	if c.baseDir == "" {
		return "."
	}
	return c.baseDir
}

// RootDir returns the absolute-or-base-relative project root.
func (c *Config) RootDir() string {
	root := filepath.FromSlash(os.ExpandEnv(c.Root))
	if filepath.IsAbs(root) {
		return filepath.Clean(root)
	}
	return filepath.Join(c.BaseDir(), root)
}

// Path expands p with v and resolves it against the project root.
func (c *Config) Path(p string, v Vars) string {
	if p == "" {
		return ""
	}
	expanded := filepath.FromSlash(v.Expand(p))
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded)
	}
	return filepath.Join(c.RootDir(), expanded)
}
