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


// Package cmdrepolist contains the repo list command
package cmdrepolist

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/kptdev/coursework/internal/docs/coursedocs"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/provision"
	"github.com/kptdev/coursework/internal/types"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
)

const command = "cmdrepolist"

func NewRunner(ctx context.Context, f *cmdutil.Factory, parent string) *Runner {
	r := &Runner{ctx: ctx, factory: f}
	c := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   coursedocs.ListShort,
		Long:    coursedocs.ListShort + "\n" + coursedocs.ListLong,
		Args:    cobra.NoArgs,
		RunE:    r.runE,
	}
	c.Flags().StringSliceVar(&r.Courses, "course", nil,
		"clone the deferred repositories of these courses before listing")
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
	Courses []string
	Command *cobra.Command
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = command + ".runE"
	cfg, err := r.factory.Config()
	if err != nil {
		return errors.E(op, err)
	}
	m, err := r.factory.Manager()
	if err != nil {
		return errors.E(op, err)
	}
	workspace, err := types.NewUniquePath(cfg.Workspace)
	if err != nil {
		return errors.E(op, errors.InvalidParam, err)
	}

	if err := r.expand(m); err != nil {
		return errors.E(op, err)
	}

	repos, deferred := m.Repositories(), m.DeferredRepositories()
	if len(repos) == 0 && len(deferred) == 0 {
		_, err := fmt.Fprintf(c.OutOrStdout(),
			"no repositories in %s, run 'coursework repo sync' to provision them\n", workspace)
		return err
	}
	if err := writeTree(c.OutOrStdout(), workspace.String(), m, repos, deferred); err != nil {
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// expand provisions the deferred courses named with --course.
func (r *Runner) expand(m *provision.Manager) error {
	deferred := provision.NewRestriction(m.DeferredCourses()...)
	known := map[string]bool{}
	for _, repo := range m.Repositories() {
		known[repo.CourseID] = true
	}
	for _, id := range r.Courses {
		if !deferred[id] {
			if known[id] {
				continue
			}
			return errors.E(errors.InvalidParam, fmt.Errorf("course %q is not in the workspace, run 'coursework repo sync' first", id))
		}
		report, err := m.EnsureCourse(r.ctx, id)
		if err != nil {
			return err
		}
		for _, w := range report.Warnings() {
			printer.Warnf(r.ctx, "%s", w)
		}
		if failed := report.Failed(); len(failed) > 0 {
			return failed[0].Err
		}
	}
	return nil
}

// writeTree prints the repositories below workspace with their assignment
// directories as leaves, followed by the deferred repositories.
func writeTree(w io.Writer, workspace string, m *provision.Manager, repos, deferred []provision.RepositoryEntry) error {
	tree := treeprint.New()
	tree.SetValue(workspace)
	rel := func(p string) string {
		r, err := filepath.Rel(workspace, p)
		if err != nil {
			return p
		}
		return filepath.ToSlash(r)
	}
	for _, repo := range repos {
		branch := tree.AddMetaBranch(repo.CourseID, rel(repo.Path))
		for _, a := range m.Assignments(repo.Path) {
			dir := a.Directory
			if dir == "" {
				dir = "."
			}
			label := dir
			if a.Title != "" {
				label = fmt.Sprintf("%s (%s)", dir, a.Title)
			}
			branch.AddMetaNode(a.SubmissionGroupID, label)
		}
	}
	for _, repo := range deferred {
		tree.AddMetaNode(repo.CourseID, rel(repo.Path)+" (deferred, cloned on first use)")
	}
	_, err := io.WriteString(w, tree.String())
	return err
}
