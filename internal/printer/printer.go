// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package printer writes coursework CLI output. Results go to the out
// stream. Progress, warnings and failures go to the err stream so they
// never mix with output a script may parse.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kptdev/coursework/internal/types"
)

// Printer displays content in the coursework CLI.
type Printer interface {
	Printf(format string, args ...interface{})
	OptPrintf(opt *Options, format string, args ...interface{})
	OutStream() io.Writer
	ErrStream() io.Writer
}

// Stream selects where a message is written.
type Stream int

const (
	Out Stream = iota
	Err
)

// Options change how OptPrintf renders a single message. The zero value
// prints the message unchanged to the out stream.
type Options struct {
	Stream Stream
	// Indentation is the number of spaces put in front of every
	// non-empty line.
	Indentation int
	// Prefix is written before the path and the message.
	Prefix string
	// Path, when set, is shown relative to the working directory in
	// front of the message.
	Path types.UniquePath
}

func NewOpt() *Options {
	return &Options{}
}

func (opt *Options) WithPath(p types.UniquePath) *Options {
	opt.Path = p
	return opt
}

func (opt *Options) Indent(i int) *Options {
	opt.Indentation = i
	return opt
}

func (opt *Options) Stderr() *Options {
	opt.Stream = Err
	return opt
}

// Warning marks the message as a warning.
func (opt *Options) Warning() *Options {
	opt.Stream = Err
	opt.Prefix = "warning: "
	return opt
}

// render applies opt to an already formatted message.
func (opt *Options) render(msg string) string {
	if !opt.Path.Empty() {
		rel, err := opt.Path.RelativePath()
		if err != nil {
			rel = opt.Path.String()
		}
		msg = rel + ": " + msg
	}
	msg = opt.Prefix + msg
	if opt.Indentation > 0 {
		msg = indent(msg, strings.Repeat(" ", opt.Indentation))
	}
	return msg
}

// indent pads every non-empty line of s, leaving line breaks as they are.
func indent(s, pad string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if line != "" && line != "\n" {
			b.WriteString(pad)
		}
		b.WriteString(line)
	}
	return b.String()
}

// New returns a Printer writing to out and errOut. Nil streams fall back
// to the process stdout and stderr.
func New(out, errOut io.Writer) Printer {
	w := &writer{streams: [2]io.Writer{os.Stdout, os.Stderr}}
	if out != nil {
		w.streams[Out] = out
	}
	if errOut != nil {
		w.streams[Err] = errOut
	}
	return w
}

type writer struct {
	streams [2]io.Writer
}

func (w *writer) OutStream() io.Writer { return w.streams[Out] }

func (w *writer) ErrStream() io.Writer { return w.streams[Err] }

func (w *writer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(w.streams[Out], format, args...)
}

func (w *writer) OptPrintf(opt *Options, format string, args ...interface{}) {
	if opt == nil {
		opt = NewOpt()
	}
	s := opt.Stream
	if s != Err {
		s = Out
	}
	_, _ = io.WriteString(w.streams[s], opt.render(fmt.Sprintf(format, args...)))
}

// Render formats a message the way OptPrintf would write it. Printer
// implementations that record output use it to stay faithful.
func Render(opt *Options, format string, args ...interface{}) string {
	if opt == nil {
		opt = NewOpt()
	}
	return opt.render(fmt.Sprintf(format, args...))
}

// Progressf prints an intermediate progress line to the err stream of the
// printer found in ctx.
func Progressf(ctx context.Context, format string, args ...interface{}) {
	FromContextOrDie(ctx).OptPrintf(NewOpt().Stderr().Indent(2), format+"\n", args...)
}

// Warnf prints a warning line to the err stream of the printer found in
// ctx.
func Warnf(ctx context.Context, format string, args ...interface{}) {
	FromContextOrDie(ctx).OptPrintf(NewOpt().Warning(), format+"\n", args...)
}

type printerKey struct{}

// FromContextOrDie returns the Printer stored in ctx. It panics if there
// is none.
func FromContextOrDie(ctx context.Context) Printer {
	if pr, ok := ctx.Value(printerKey{}).(Printer); ok {
		return pr
	}
	panic("printer missing in context")
}

// WithContext returns a copy of ctx carrying pr.
func WithContext(ctx context.Context, pr Printer) context.Context {
	return context.WithValue(ctx, printerKey{}, pr)
}
