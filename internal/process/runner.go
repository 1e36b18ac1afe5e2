package process

import (
	"context"
	"strings"
	"sync"
)

// Runner runs a command to completion, handing every output line to onLine.
// It returns the exit code; the error is reserved for launch and I/O failures.
type Runner interface {
	Run(ctx context.Context, c Command, onLine func(string)) (int, error)
}

// ExecRunner runs real processes. The context is only checked before launch.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command, onLine func(string)) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	p, err := Start(c)
	if err != nil {
		return -1, err
	}
	for line := range p.Lines() {
		if onLine != nil {
			onLine(line)
		}
	}
	return p.Wait()
}

// Tail keeps the last N lines written to it.
type Tail struct {
	mu    sync.Mutex
	max   int
	lines []string
	next  int
	full  bool
}

// NewTail returns a Tail holding at most n lines (minimum 1).
func NewTail(n int) *Tail {
	if n < 1 {
		n = 1
	}
	return &Tail{max: n, lines: make([]string, n)}
}

// Add records a line.
func (t *Tail) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines[t.next] = line
	t.next = (t.next + 1) % t.max
	if t.next == 0 {
		t.full = true
	}
}

// Lines returns the retained lines, oldest first.
func (t *Tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]string(nil), t.lines[:t.next]...)
	}
	out := make([]string, 0, t.max)
	out = append(out, t.lines[t.next:]...)
	return append(out, t.lines[:t.next]...)
}

// String joins the retained lines with newlines.
func (t *Tail) String() string {
	return strings.Join(t.Lines(), "\n")
}
