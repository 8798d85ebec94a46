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


// Package cmdreposync contains the repo sync command
package cmdreposync

import (
	"context"
	"fmt"

	"github.com/kptdev/coursework/internal/docs/coursedocs"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/provision"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

const command = "cmdreposync"

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, f *cmdutil.Factory, parent string) *Runner {
	r := &Runner{
		ctx:     ctx,
		factory: f,
	}
	c := &cobra.Command{
		Use:     "sync [flags]",
		Short:   coursedocs.SyncShort,
		Long:    coursedocs.SyncShort + "\n" + coursedocs.SyncLong,
		Example: coursedocs.SyncExamples,
		Args:    cobra.NoArgs,
		RunE:    r.runE,
	}
	c.Flags().StringSliceVar(&r.Courses, "course", nil,
		"id of a course to provision. May be repeated. Defaults to all courses.")
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
	Courses []string
	Command *cobra.Command
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = command + ".runE"
	pr := printer.FromContextOrDie(r.ctx)

	api, err := r.factory.Backend(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}
	m, err := r.factory.Manager()
	if err != nil {
		return errors.E(op, err)
	}

	courses, err := api.ListCourses(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}
	enrolled := make(map[string]bool, len(courses))
	for _, c := range courses {
		enrolled[c.ID] = true
	}
	for _, id := range r.Courses {
		if !enrolled[id] {
			return errors.E(op, errors.InvalidParam, fmt.Errorf("you are not enrolled in course %q", id))
		}
	}

	restriction := provision.NewRestriction(r.Courses...)
	var assignments []provision.Assignment
	for _, c := range courses {
		contents, err := api.ListCourseContents(r.ctx, c.ID)
		if err != nil {
			return errors.E(op, err)
		}
		if restriction.Allows(c.ID) {
			if err := m.UpdateExistingRepositoryPaths(c.ID, contents); err != nil {
				return errors.E(op, err)
			}
		}
		assignments = append(assignments, provision.AssignmentsFromContents(c, contents)...)
	}

	report, err := m.Ensure(r.ctx, assignments, restriction)
	if err != nil {
		return errors.E(op, err)
	}
	printReport(pr, report)

	switch failed := report.Failed(); len(failed) {
	case 0:
		return nil
	case 1:
		return errors.E(op, failed[0].Err)
	default:
		return errors.E(op, fmt.Errorf("%d of %d repositories could not be provisioned",
			len(failed), len(report.Repositories)))
	}
}

func printReport(pr printer.Printer, report provision.Report) {
	for _, rr := range report.Repositories {
		opt := printer.NewOpt()
		switch {
		case rr.Err != nil:
			pr.OptPrintf(opt.Stderr(), "failed     %s: %v\n", rr.Path, rr.Err)
		case rr.Deferred:
			pr.OptPrintf(opt, "deferred   %s\n", rr.Path)
		case rr.Cloned:
			pr.OptPrintf(opt, "cloned     %s\n", rr.Path)
		case rr.Update.Updated:
			pr.OptPrintf(opt, "updated    %s\n", rr.Path)
		default:
			pr.OptPrintf(opt, "up to date %s\n", rr.Path)
		}
	}
	for _, w := range report.Warnings() {
		pr.OptPrintf(printer.NewOpt().Warning(), "%s\n", w)
	}
}
