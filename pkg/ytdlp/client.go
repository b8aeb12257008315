// Package ytdlp wraps the yt-dlp executable used to fetch reels.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

const defaultPath = "yt-dlp"

// ExecError is a failed yt-dlp invocation.
type ExecError struct {
	Cmd      string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	b.WriteString("ytdlp: ")
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, "exit %d: ", e.ExitCode)
	}
	b.WriteString(e.Cmd)
	if len(e.Args) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(e.Args, " "))
	}
	// Only the final stderr line; the rest is usually progress and warnings.
	if tail := finalLine(e.Stderr); tail != "" {
		b.WriteString(": ")
		b.WriteString(tail)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error { return e.Cause }

func finalLine(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

type execFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Client runs yt-dlp. The zero value uses "yt-dlp" from PATH.
type Client struct {
	// Path to the executable.
	Path string

	// CookiesFile is a Netscape cookies.txt passed with --cookies. yt-dlp
	// rewrites it, so it must be writable.
	CookiesFile string

	// ExtraArgs go in front of every invocation's own arguments.
	ExtraArgs []string

	execFn execFunc
}

func New() *Client {
	return &Client{Path: defaultPath}
}

// PathOrDefault returns the configured path or "yt-dlp" if unset.
func (c *Client) PathOrDefault() string {
	if p := strings.TrimSpace(c.Path); p != "" {
		return p
	}
	return defaultPath
}

func (c *Client) argv(args []string) []string {
	out := make([]string, 0, len(c.ExtraArgs)+len(args)+2)
	out = append(out, c.ExtraArgs...)
	if strings.TrimSpace(c.CookiesFile) != "" {
		out = append(out, "--cookies", c.CookiesFile)
	}
	return append(out, args...)
}

// run executes yt-dlp and converts a failure into an *ExecError.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	name := c.PathOrDefault()
	argv := c.argv(args)

	run := c.execFn
	if run == nil {
		run = runCommand
	}
	slog.Debug("ytdlp: running", "cmd", name, "args", argv)
	stdout, stderr, err := run(ctx, name, argv...)
	if err != nil {
		return stdout, newExecError(name, argv, stdout, stderr, err)
	}
	return stdout, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Version returns the output of yt-dlp --version.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func newExecError(cmd string, args []string, stdout, stderr []byte, cause error) *ExecError {
	e := &ExecError{
		Cmd:    cmd,
		Args:   args,
		Stdout: strings.TrimSpace(string(stdout)),
		Stderr: strings.TrimSpace(string(stderr)),
		Cause:  cause,
	}
	var exit interface{ ExitCode() int }
	if errors.As(cause, &exit) {
		e.ExitCode = exit.ExitCode()
	}
	return e
}
