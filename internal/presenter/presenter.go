// Package presenter is the single seam human-facing progress and summary
// output crosses (spec.md §9: "none of the core components should format
// human strings directly"). The orchestrator and its collaborators call a
// Presenter; only this package decides what reaches stdout/stderr and in
// what shape.
package presenter

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Presenter is the interface core components depend on. Quiet mode and
// any future output format (JSON progress for scripting, say) are
// implementations of this, not special-cased call sites.
type Presenter interface {
	Section(name string)
	Step(format string, args ...any)
	Warn(format string, args ...any)
	RecordFailure(kind, name string, err error)
	Summary() Summary
}

// Summary is the end-of-run per-record failure tally spec §7 requires on
// partial success ("exit success and print a summary of failed records").
type Summary struct {
	Failures []Failure
}

type Failure struct {
	Kind string
	Name string
	Err  error
}

func (s Summary) String() string {
	if len(s.Failures) == 0 {
		return "all records applied successfully"
	}
	out := fmt.Sprintf("%d record(s) failed:\n", len(s.Failures))
	for _, f := range s.Failures {
		out += fmt.Sprintf("  - %s %q: %v\n", f.Kind, f.Name, f.Err)
	}
	return out
}

// Console is the default Presenter: writes to an io.Writer, optionally
// silencing Section and Step (but never Warn or the final Summary — spec §9 only
// gates "progress output", not warnings or the failure report).
type Console struct {
	out    io.Writer
	quiet  bool
	logger *slog.Logger

	mu       sync.Mutex
	failures []Failure
}

// NewConsole returns a Presenter writing to out. logger receives every
// Warn and RecordFailure call as structured log lines as well, mirroring
// the teacher's dual human-output/slog convention.
func NewConsole(out io.Writer, quiet bool, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{out: out, quiet: quiet, logger: logger}
}

func (c *Console) Section(name string) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "== %s ==\n", name)
}

func (c *Console) Step(format string, args ...any) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "  "+format+"\n", args...)
}

func (c *Console) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(c.out, "WARN: %s\n", msg)
	c.logger.Warn(msg)
}

func (c *Console) RecordFailure(kind, name string, err error) {
	c.mu.Lock()
	c.failures = append(c.failures, Failure{Kind: kind, Name: name, Err: err})
	c.mu.Unlock()
	c.logger.Error("record apply failed", "kind", kind, "name", name, "error", err)
}

func (c *Console) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Failure, len(c.failures))
	copy(out, c.failures)
	return Summary{Failures: out}
}
