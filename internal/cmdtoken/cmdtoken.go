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


// Package cmdtoken contains the token commands
package cmdtoken

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/kptdev/coursework/internal/docs/coursedocs"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/gitutil"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/spf13/cobra"
)

const command = "cmdtoken"

// NewCommand returns the token command with its set and delete
// sub-commands.
func NewCommand(ctx context.Context, f *cmdutil.Factory, parent string) *cobra.Command {
	c := &cobra.Command{
		Use:   "token",
		Short: coursedocs.TokenShort,
		Long:  coursedocs.TokenShort + "\n" + coursedocs.TokenLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}
	c.AddCommand(NewSetRunner(ctx, f, parent).Command, NewDeleteRunner(ctx, f, parent).Command)
	cmdutil.FixDocs("coursework", parent, c)
	return c
}

// SetRunner stores a token read from stdin.
type SetRunner struct {
	ctx     context.Context
	factory *cmdutil.Factory
	Command *cobra.Command
}

func NewSetRunner(ctx context.Context, f *cmdutil.Factory, parent string) *SetRunner {
	r := &SetRunner{ctx: ctx, factory: f}
	c := &cobra.Command{
		Use:     "set ORIGIN",
		Short:   coursedocs.TokenSetShort,
		Example: coursedocs.TokenSetExamples,
		Args:    cobra.ExactArgs(1),
		RunE:    r.runE,
	}
	cmdutil.FixDocs("coursework", parent, c)
	r.Command = c
	return r
}

func (r *SetRunner) runE(c *cobra.Command, args []string) error {
	const op errors.Op = command + ".set"
	origin, err := parseOrigin(args[0])
	if err != nil {
		return errors.E(op, err)
	}
	token, err := readToken(c)
	if err != nil {
		return errors.E(op, err)
	}
	store, err := r.factory.Credentials(true)
	if err != nil {
		return errors.E(op, err)
	}
	if err := store.Set(r.ctx, origin, token); err != nil {
		return errors.E(op, err)
	}
	printer.FromContextOrDie(r.ctx).Printf("stored token for %s\n", origin)
	return nil
}

// DeleteRunner removes a stored token.
type DeleteRunner struct {
	ctx     context.Context
	factory *cmdutil.Factory
	Command *cobra.Command
}

func NewDeleteRunner(ctx context.Context, f *cmdutil.Factory, parent string) *DeleteRunner {
	r := &DeleteRunner{ctx: ctx, factory: f}
	c := &cobra.Command{
		Use:     "delete ORIGIN",
		Aliases: []string{"rm"},
		Short:   coursedocs.TokenDeleteShort,
		Args:    cobra.ExactArgs(1),
		RunE:    r.runE,
	}
	cmdutil.FixDocs("coursework", parent, c)
	r.Command = c
	return r
}

func (r *DeleteRunner) runE(_ *cobra.Command, args []string) error {
	const op errors.Op = command + ".delete"
	origin, err := parseOrigin(args[0])
	if err != nil {
		return errors.E(op, err)
	}
	store, err := r.factory.Credentials(true)
	if err != nil {
		return errors.E(op, err)
	}
	if err := store.Delete(r.ctx, origin); err != nil {
		return errors.E(op, err)
	}
	printer.FromContextOrDie(r.ctx).Printf("deleted token for %s\n", origin)
	return nil
}

// parseOrigin accepts an origin or any URL below it.
func parseOrigin(s string) (string, error) {
	origin := gitutil.Origin(s)
	if origin == "" {
		return "", errors.E(errors.InvalidParam, fmt.Errorf("%q is not a remote URL", gitutil.Redact(s)))
	}
	return origin, nil
}

// readToken returns the first line of stdin.
func readToken(c *cobra.Command) (string, error) {
	sc := bufio.NewScanner(c.InOrStdin())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", errors.E(errors.IO, err)
		}
	}
	token := strings.TrimSpace(sc.Text())
	if token == "" {
		return "", errors.E(errors.MissingParam, "no token on stdin")
	}
	return token, nil
}
