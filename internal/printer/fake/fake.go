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

package fake

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kptdev/coursework/internal/printer"
)

// Printer implements the printer.Printer interface and records every
// message instead of writing it anywhere. Messages printed to stderr
// are recorded as progress.
type Printer struct {
	mu       sync.Mutex
	Messages []string
	Progress []string
}

func (p *Printer) Printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, fmt.Sprintf(format, args...))
}

func (p *Printer) OptPrintf(opt *printer.Options, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := printer.Render(opt, format, args...)
	if opt != nil && opt.Stream == printer.Err {
		p.Progress = append(p.Progress, msg)
		return
	}
	p.Messages = append(p.Messages, msg)
}

func (p *Printer) OutStream() io.Writer { return io.Discard }

func (p *Printer) ErrStream() io.Writer { return io.Discard }

// CtxWithDefaultPrinter returns a new context with a printer that discards
// all output.
func CtxWithDefaultPrinter() context.Context {
	return CtxWithPrinter(io.Discard, io.Discard)
}

// CtxWithPrinter returns a new context with Printer added.
func CtxWithPrinter(outStream, errStream io.Writer) context.Context {
	return printer.WithContext(context.Background(), printer.New(outStream, errStream))
}

// CtxWithRecorder returns a new context carrying a recording Printer.
func CtxWithRecorder() (context.Context, *Printer) {
	p := &Printer{}
	return printer.WithContext(context.Background(), p), p
}
