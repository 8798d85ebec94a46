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


// Package cmdcommit contains the commit command
package cmdcommit

import (
	"context"

	"github.com/kptdev/coursework/internal/docs/coursedocs"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/gitutil"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/submission"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

const command = "cmdcommit"

func NewRunner(ctx context.Context, f *cmdutil.Factory, parent string) *Runner {
	r := &Runner{ctx: ctx, factory: f}
	c := &cobra.Command{
		Use:     "commit [DIR]",
		Short:   coursedocs.CommitShort,
		Long:    coursedocs.CommitShort + "\n" + coursedocs.CommitLong,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}
	cmdutil.FixDocs("coursework", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, f *cmdutil.Factory, parent string) *cobra.Command {
	return NewRunner(ctx, f, parent).Command
}

type Runner struct {
	ctx     context.Context
	factory *cmdutil.Factory
	Request submission.Request
	Command *cobra.Command
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = command + ".preRunE"
	dir, err := cmdutil.DirArg(args)
	if err != nil {
		return errors.E(op, err)
	}
	r.Request, err = r.factory.Request(r.ctx, dir, "", "", "")
	if err != nil {
		return errors.E(op, err)
	}
	return nil
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = command + ".runE"
	pr := printer.FromContextOrDie(r.ctx)
	s, err := r.factory.Submitter(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}
	res, err := s.Commit(r.ctx, r.Request)
	if err != nil {
		return errors.E(op, err)
	}
	if res.Committed {
		pr.Printf("committed and pushed %s\n", gitutil.ShortHash(res.CommitHash))
	} else {
		pr.Printf("nothing to commit in %s, pushed %s\n", r.Request.Directory, gitutil.ShortHash(res.CommitHash))
	}
	return nil
}
