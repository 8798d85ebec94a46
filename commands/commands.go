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


// Package commands assembles the coursework sub-commands.
package commands

import (
	"context"
	"strings"

	"github.com/kptdev/coursework/internal/cmdcommit"
	"github.com/kptdev/coursework/internal/cmdforkupdate"
	"github.com/kptdev/coursework/internal/cmdrepolist"
	"github.com/kptdev/coursework/internal/cmdreposync"
	"github.com/kptdev/coursework/internal/cmdsubmit"
	"github.com/kptdev/coursework/internal/cmdtest"
	"github.com/kptdev/coursework/internal/cmdtoken"
	"github.com/kptdev/coursework/internal/docs/coursedocs"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

// GetRepoCommand returns the repo command with the provisioning
// sub-commands.
func GetRepoCommand(ctx context.Context, f *cmdutil.Factory, name string) *cobra.Command {
	repo := &cobra.Command{
		Use:     "repo",
		Short:   coursedocs.RepoShort,
		Long:    coursedocs.RepoLong,
		Aliases: []string{"repository"},
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cmd.Flags().GetBool("help")
			if err != nil {
				return err
			}
			if h {
				return cmd.Help()
			}
			return cmd.Usage()
		},
	}
	repo.AddCommand(
		cmdreposync.NewCommand(ctx, f, name),
		cmdrepolist.NewCommand(ctx, f, name),
		cmdforkupdate.NewCommand(ctx, f, name),
	)
	return repo
}

// GetCommands returns the set of coursework commands to be registered
func GetCommands(ctx context.Context, f *cmdutil.Factory, name string) []*cobra.Command {
	c := []*cobra.Command{
		GetRepoCommand(ctx, f, name),
		cmdsubmit.NewCommand(ctx, f, name),
		cmdcommit.NewCommand(ctx, f, name),
		cmdtest.NewCommand(ctx, f, name),
		cmdtoken.NewCommand(ctx, f, name),
	}

	// apply cross-cutting issues to commands
	NormalizeCommand(c...)
	return c
}

// NormalizeCommand will modify commands to be consistent, e.g. trimming
// the trailing period of short descriptions
func NormalizeCommand(c ...*cobra.Command) {
	for i := range c {
		cmd := c[i]
		cmd.Short = strings.TrimSuffix(cmd.Short, ".")
		NormalizeCommand(cmd.Commands()...)
	}
}
