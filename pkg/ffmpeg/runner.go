package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes commands with a configurable ffmpeg binary.
type Runner struct {
	// Path to the ffmpeg executable. Defaults to "ffmpeg" (PATH lookup).
	Path string

	execFn func(ctx context.Context, name string, args ...string) (stderr []byte, err error)
}

func NewRunner(path string) *Runner {
	return &Runner{Path: path}
}

// PathOrDefault returns the configured path or "ffmpeg" if unset.
func (r *Runner) PathOrDefault() string {
	if r == nil || strings.TrimSpace(r.Path) == "" {
		return "ffmpeg"
	}
	return r.Path
}

// RunResult contains the outcome of an ffmpeg invocation, including captured stderr.
type RunResult struct {
	// Logs contains the full ffmpeg stderr output (codec info, encoding stats, warnings, etc.).
	// Available regardless of success or failure.
	Logs string
	// Err is non-nil when ffmpeg exited with a non-zero status.
	Err error
}

// Run executes cmd and waits for completion.
func (r *Runner) Run(ctx context.Context, cmd *Command) RunResult {
	args := cmd.Build()
	name := r.PathOrDefault()

	var stderr []byte
	var err error
	if r != nil && r.execFn != nil {
		stderr, err = r.execFn(ctx, name, args...)
	} else {
		var buf bytes.Buffer
		c := exec.CommandContext(ctx, name, args...)
		c.Stderr = &buf
		err = c.Run()
		stderr = buf.Bytes()
	}

	res := RunResult{Logs: string(stderr)}
	if err != nil {
		res.Err = &Error{Path: name, Args: args, Stderr: string(stderr), Err: err}
	}
	return res
}

// Error represents an ffmpeg execution error with context.
type Error struct {
	Path   string
	Args   []string
	Stderr string
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	// Extract just the last few lines of stderr for the error message
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	var lastLines string
	if len(lines) > 3 {
		lastLines = strings.Join(lines[len(lines)-3:], "\n")
	} else {
		lastLines = strings.Join(lines, "\n")
	}

	if lastLines != "" {
		return fmt.Sprintf("ffmpeg: %v: %s", e.Err, lastLines)
	}
	return fmt.Sprintf("ffmpeg: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode is the process exit status, or -1 when ffmpeg never ran.
func (e *Error) ExitCode() int {
	var ee interface{ ExitCode() int }
	if errors.As(e.Err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// Command returns the command that was executed.
func (e *Error) Command() string {
	return e.Path + " " + strings.Join(e.Args, " ")
}
