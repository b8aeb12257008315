// Package ffmpeg builds and runs ffmpeg invocations.
package ffmpeg

import (
	"strconv"
	"strings"
)

// Command is an ffmpeg invocation with a single input and output.
type Command struct {
	input   string
	output  string
	global  []string // before -i
	encode  []string // after -i
	filters []string // joined into one -af
}

// Option configures a Command. Options may be given in any order; Build
// places each argument on the correct side of -i.
type Option interface {
	Apply(cmd *Command)
}

// OptionFunc adapts a function to Option.
type OptionFunc func(cmd *Command)

func (f OptionFunc) Apply(cmd *Command) { f(cmd) }

func NewCommand(input, output string, opts ...Option) *Command {
	cmd := &Command{input: input, output: output}
	for _, opt := range opts {
		opt.Apply(cmd)
	}
	return cmd
}

// Build returns the argument list, without the executable.
func (c *Command) Build() []string {
	args := make([]string, 0, 6+len(c.global)+len(c.encode))
	args = append(args, "-hide_banner", "-y")
	args = append(args, c.global...)
	args = append(args, "-i", c.input)
	args = append(args, c.encode...)
	if len(c.filters) > 0 {
		args = append(args, "-af", strings.Join(c.filters, ","))
	}
	return append(args, c.output)
}

func encodeArgs(args ...string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.encode = append(cmd.encode, args...)
	})
}

// AudioCodec sets -c:a.
func AudioCodec(codec string) Option { return encodeArgs("-c:a", codec) }

// AudioBitrate sets -b:a, e.g. "64k".
func AudioBitrate(bitrate string) Option { return encodeArgs("-b:a", bitrate) }

func AudioChannels(n int) Option { return encodeArgs("-ac", strconv.Itoa(n)) }

func AudioSampleRate(hz int) Option { return encodeArgs("-ar", strconv.Itoa(hz)) }

// Format forces the output container, for outputs whose name doesn't carry
// the container's extension.
func Format(name string) Option { return encodeArgs("-f", name) }

// NoVideo drops video streams.
var NoVideo Option = encodeArgs("-vn")

// AudioFilter appends f to the -af chain.
func AudioFilter(f string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.filters = append(cmd.filters, f)
	})
}

// LogLevel sets -loglevel ahead of the input.
func LogLevel(level string) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.global = append([]string{"-loglevel", level}, cmd.global...)
	})
}
