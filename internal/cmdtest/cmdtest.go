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


// Package cmdtest contains the test command
package cmdtest

import (
	"context"

	"github.com/kptdev/coursework/internal/docs/coursedocs"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/resultview"
	"github.com/kptdev/coursework/internal/submission"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

const command = "cmdtest"

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, f *cmdutil.Factory, parent string) *Runner {
	r := &Runner{ctx: ctx, factory: f}
	c := &cobra.Command{
		Use:     "test [DIR] [flags]",
		Short:   coursedocs.TestShort,
		Long:    coursedocs.TestShort + "\n" + coursedocs.TestLong,
		Example: coursedocs.TestExamples,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}
	c.Flags().StringVar(&r.group, "group", "",
		"id of the submission group. Defaults to the group recorded for DIR in the workspace.")
	c.Flags().StringVar(&r.content, "content", "",
		"id of the course content DIR belongs to. Used to show the latest result when a run is already in progress.")
	cmdutil.FixDocs("coursework", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, f *cmdutil.Factory, parent string) *cobra.Command {
	return NewRunner(ctx, f, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	factory *cmdutil.Factory
	group   string
	content string

	Request submission.Request
	Command *cobra.Command
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = command + ".preRunE"
	dir, err := cmdutil.DirArg(args)
	if err != nil {
		return errors.E(op, err)
	}
	r.Request, err = r.factory.Request(r.ctx, dir, r.group, r.content, "")
	if err != nil {
		return errors.E(op, err)
	}
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = command + ".runE"
	pr := printer.FromContextOrDie(r.ctx)
	o, err := r.factory.Orchestrator(r.ctx, resultview.New(c.OutOrStdout()))
	if err != nil {
		return errors.E(op, err)
	}
	report, err := o.Run(r.ctx, r.Request)
	if err != nil {
		return errors.E(op, err)
	}
	for _, w := range report.Warnings {
		printer.Warnf(r.ctx, "%s", w)
	}
	if report.Cancelled {
		pr.OptPrintf(printer.NewOpt().Stderr(),
			"stopped waiting for test run %s, it keeps running on the server\n", report.ResultID)
	}
	return nil
}
