// Package msbuild builds Visual Studio solutions through the developer
// command prompt.
package msbuild

import (
	"context"
	"fmt"
	"os"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/process"
)

// Request describes one solution build.
type Request struct {
	Solution      string // Path to the .sln file
	ToolchainPath string // Directory holding the setup script
	Platform      string // x64|Win32
	Configuration string
	Rebuild       bool
}

// Builder turns requests into shell invocations and runs them.
type Builder struct {
	Shell       string // e.g. cmd.exe
	SetupScript string // e.g. VsDevCmd.bat
	MSBuild     string // e.g. MSBuild.exe
	Runner      process.Runner
}

// Command renders the invocation for req without running it.
func (b Builder) Command(req Request) process.Command {
	script := fmt.Sprintf("%s && %s /maxcpucount /p:Configuration=%s /p:Platform=%s",
		b.SetupScript, b.MSBuild, req.Configuration, req.Platform)
	if req.Rebuild {
		script += " /t:rebuild"
	}
	script += ` "` + req.Solution + `"`

	var env []string
	if req.ToolchainPath != "" {
		env = []string{"PATH=" + joinPath(os.Getenv("PATH"), req.ToolchainPath)}
	}
	return process.Command{
		Path: b.Shell,
		Args: []string{"/C", script},
		Env:  env,
	}
}

func joinPath(current, extra string) string {
	if current == "" {
		return extra
	}
	return strings.TrimRight(current, string(os.PathListSeparator)) + string(os.PathListSeparator) + extra
}

// Build runs the solution build and returns its exit code.
func (b Builder) Build(ctx context.Context, req Request, onLine func(string)) (int, error) {
	runner := b.Runner
	if runner == nil {
		runner = process.ExecRunner{}
	}
	return runner.Run(ctx, b.Command(req), onLine)
}
