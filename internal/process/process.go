// Package process launches external tools and streams their combined output.
//
// A started process is always drained and waited on before the caller moves
// on. There is no timeout and no cancellation once the child is running.
package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"strings"
)

// Command describes an external invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Env entries are appended to the current environment.
	Env []string
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// LaunchError reports a process that could not be started at all. It is
// distinct from a process that ran and exited non-zero.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// IsLaunchError reports whether err wraps a LaunchError.
func IsLaunchError(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// Process is a running child whose stdout and stderr share one pipe.
type Process struct {
	cmd    *exec.Cmd
	out    *os.File
	reader *bufio.Reader
}

// Start launches c with stdout and stderr merged into a single stream.
func Start(c Command) (*Process, error) {
	// #nosec G204 -- executables come from the build configuration
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{Path: c.Path, Err: err}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, &LaunchError{Path: c.Path, Err: err}
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	return &Process{cmd: cmd, out: pr, reader: bufio.NewReader(pr)}, nil
}

// Lines yields each output line with its line terminator removed, until the
// child closes its output.
func (p *Process) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			line, err := p.reader.ReadString('\n')
			if line != "" {
				if !yield(strings.TrimRight(line, "\r\n")) {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}
}

// Wait drains any unread output, waits for the child and returns its exit
// code. A non-zero exit is not an error.
func (p *Process) Wait() (int, error) {
	_, _ = io.Copy(io.Discard, p.reader)
	_ = p.out.Close()

	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("wait for %s: %w", p.cmd.Path, err)
}
