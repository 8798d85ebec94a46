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


// Package cmdsubmit contains the submit command
package cmdsubmit

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

const command = "cmdsubmit"

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, f *cmdutil.Factory, parent string) *Runner {
	r := &Runner{ctx: ctx, factory: f}
	c := &cobra.Command{
		Use:     "submit [DIR] [flags]",
		Short:   coursedocs.SubmitShort,
		Long:    coursedocs.SubmitShort + "\n" + coursedocs.SubmitLong,
		Example: coursedocs.SubmitExamples,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}
	c.Flags().StringVar(&r.group, "group", "",
		"id of the submission group. Defaults to the group recorded for DIR in the workspace.")
	c.Flags().StringVar(&r.content, "content", "",
		"id of the course content DIR belongs to.")
	c.Flags().StringVar(&r.title, "title", "",
		"assignment title used in the commit message. Defaults to the directory name.")
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
	title   string

	Request submission.Request
	Command *cobra.Command
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = command + ".preRunE"
	dir, err := cmdutil.DirArg(args)
	if err != nil {
		return errors.E(op, err)
	}
	r.Request, err = r.factory.Request(r.ctx, dir, r.group, r.content, r.title)
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
	res, err := s.Submit(r.ctx, r.Request)
	if err != nil {
		return errors.E(op, err)
	}

	commit := gitutil.ShortHash(res.CommitHash)
	if res.Committed {
		pr.Printf("committed and pushed %s\n", commit)
	}
	title := r.Request.DisplayTitle()
	switch res.Outcome {
	case submission.AlreadySubmitted:
		pr.Printf("%s at %s is already submitted\n", title, commit)
	case submission.Promoted:
		pr.Printf("submitted %s at %s using the tested artifact %s\n", title, commit, res.Artifact.ID)
	default:
		pr.Printf("submitted %s at %s as artifact %s\n", title, commit, res.Artifact.ID)
	}
	return nil
}
