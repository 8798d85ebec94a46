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

// Package cmdutil holds helpers shared by the coursework commands.
package cmdutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/types"
	"github.com/spf13/cobra"
)

// StackTraceEnv enables stack traces on failure, like --stack-trace.
const StackTraceEnv = "COURSEWORK_STACK_TRACE"

// StackOnError is bound to the --stack-trace flag.
var StackOnError bool

// PrintErrorStacktrace reports whether main should print the stack of the
// returned error.
func PrintErrorStacktrace() bool {
	if StackOnError {
		return true
	}
	on, err := strconv.ParseBool(os.Getenv(StackTraceEnv))
	return err == nil && on
}

// FixDocs rewrites the command name in the help of c so that it matches
// the name of the parent binary.
func FixDocs(name, parent string, c *cobra.Command) {
	r := strings.NewReplacer(name, parent)
	for _, s := range []*string{&c.Use, &c.Short, &c.Long, &c.Example} {
		*s = r.Replace(*s)
	}
}

// DirArg returns the absolute directory named by the first argument, or
// the current directory if there is none.
func DirArg(args []string) (types.UniquePath, error) {
	const op errors.Op = "cmdutil.DirArg"
	dir := "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	p, err := types.NewUniquePath(dir)
	if err != nil {
		return "", errors.E(op, errors.InvalidParam, err)
	}
	return p, nil
}
