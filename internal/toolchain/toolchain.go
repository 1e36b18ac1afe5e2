// Package toolchain locates the native build environment (the directory
// holding the developer command prompt setup script).
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/process"
)

// ErrNotFound is returned when no finder located a toolchain.
var ErrNotFound = errors.New("toolchain not found")

// Finder locates the toolchain directory.
type Finder interface {
	Find(ctx context.Context) (string, error)
}

// Static returns a fixed path. An empty path yields ErrNotFound.
type Static string

func (s Static) Find(context.Context) (string, error) {
	if s == "" {
		return "", ErrNotFound
	}
	return string(s), nil
}

// installationPathPrefix is the vswhere output line carrying the install root.
const installationPathPrefix = "installationPath: "

// VSWhere runs a vswhere-style locator and derives <installationPath>/Common7/Tools.
type VSWhere struct {
	Executable string
	Runner     process.Runner
}

func (v VSWhere) Find(ctx context.Context) (string, error) {
	if v.Executable == "" {
		return "", ErrNotFound
	}
	if _, err := os.Stat(v.Executable); err != nil {
		return "", fmt.Errorf("%w: locator %s: %w", ErrNotFound, v.Executable, err)
	}
	runner := v.Runner
	if runner == nil {
		runner = process.ExecRunner{}
	}

	var install string
	code, err := runner.Run(ctx, process.Command{Path: v.Executable}, func(line string) {
		if install == "" && strings.HasPrefix(line, installationPathPrefix) {
			install = strings.TrimSpace(strings.TrimPrefix(line, installationPathPrefix))
		}
	})
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("%w: %s exited with code %d", ErrNotFound, v.Executable, code)
	}
	if install == "" {
		return "", fmt.Errorf("%w: %s reported no installation", ErrNotFound, v.Executable)
	}
	return filepath.Join(install, "Common7", "Tools"), nil
}

// Env checks environment variables in order, returning the first that is set.
type Env struct {
	Vars   []string
	Lookup func(string) (string, bool)
}

func (e Env) Find(context.Context) (string, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, name := range e.Vars {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", ErrNotFound
}

// Chain tries finders in order. Errors other than ErrNotFound stop the search.
type Chain []Finder

func (c Chain) Find(ctx context.Context) (string, error) {
	var tried []error
	for _, f := range c {
		path, err := f.Find(ctx)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
		tried = append(tried, err)
	}
	if len(tried) == 0 {
		return "", ErrNotFound
	}
	return "", errors.Join(tried...)
}
