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


// Package cmdforkupdate contains the repo fork-update command
package cmdforkupdate

import (
	"context"
	"fmt"
	"strings"

	"github.com/kptdev/coursework/internal/docs/coursedocs"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/forkupdate"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/types"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

const command = "cmdforkupdate"

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, f *cmdutil.Factory, parent string) *Runner {
	r := &Runner{ctx: ctx, factory: f}
	c := &cobra.Command{
		Use:     "fork-update [PATH] [flags]",
		Short:   coursedocs.ForkUpdateShort,
		Long:    coursedocs.ForkUpdateShort + "\n" + coursedocs.ForkUpdateLong,
		Example: coursedocs.ForkUpdateExamples,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: r.preRunE,
		RunE:    r.runE,
	}
	c.Flags().BoolVar(&r.autoResolve, "auto-resolve", false,
		"resolve merge conflicts with the conflict policy instead of aborting the merge.")
	c.Flags().StringVar(&r.policy, "policy", "",
		"the conflict policy used with --auto-resolve -- must be one of: "+
			strings.Join(forkupdate.Policies(), ","))
	c.Flags().StringVar(&r.mergeTool, "merge-tool", "",
		"command run for every conflicted file by the external-tool policy.")
	cmdutil.FixDocs("coursework", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, f *cmdutil.Factory, parent string) *cobra.Command {
	return NewRunner(ctx, f, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx         context.Context
	factory     *cmdutil.Factory
	autoResolve bool
	policy      string
	mergeTool   string

	Path    types.UniquePath
	Options forkupdate.Options
	Command *cobra.Command
}

func (r *Runner) preRunE(c *cobra.Command, args []string) error {
	const op errors.Op = command + ".preRunE"
	p, err := cmdutil.DirArg(args)
	if err != nil {
		return errors.E(op, err)
	}
	r.Path = p

	cfg, err := r.factory.Config()
	if err != nil {
		return errors.E(op, err)
	}
	r.Options = forkupdate.Options{
		AutoResolve: cfg.AutoResolve,
		Policy:      cfg.Policy(),
		MergeTool:   cfg.MergeTool,
	}
	if c.Flags().Changed("auto-resolve") {
		r.Options.AutoResolve = r.autoResolve
	}
	if c.Flags().Changed("policy") {
		policy, err := forkupdate.ParsePolicy(r.policy)
		if err != nil {
			return errors.E(op, err)
		}
		r.Options.Policy = policy
	}
	if c.Flags().Changed("merge-tool") {
		r.Options.MergeTool = r.mergeTool
	}
	if r.Options.AutoResolve && r.Options.Policy == forkupdate.ExternalTool && r.Options.MergeTool == "" {
		return errors.E(op, errors.MissingParam, "the external-tool policy requires --merge-tool")
	}
	return nil
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op errors.Op = command + ".runE"
	pr := printer.FromContextOrDie(r.ctx)
	m, err := r.factory.Manager()
	if err != nil {
		return errors.E(op, err)
	}

	rr, err := m.ForkUpdate(r.ctx, r.Path.String(), r.Options)
	if err != nil {
		return errors.E(op, err)
	}
	switch {
	case rr.Update.Updated:
		msg := "updated " + rr.Path
		if rr.Update.UpstreamRef != "" {
			msg = fmt.Sprintf("merged %s into %s", rr.Update.UpstreamRef, rr.Path)
		}
		if rr.Pushed {
			msg += " and pushed to " + forkupdate.OriginRemote
		}
		pr.Printf("%s\n", msg)
	case rr.Update.Conflict == forkupdate.None:
		pr.Printf("%s is up to date\n", rr.Path)
	}
	for _, w := range rr.Warnings {
		printer.Warnf(r.ctx, "%s", w)
	}
	if rr.Update.Conflict == forkupdate.Unresolved {
		return errors.E(op, types.UniquePath(rr.Path), fmt.Errorf("upstream changes conflict with %s",
			strings.Join(rr.Update.Conflicts, ", ")))
	}
	return nil
}
