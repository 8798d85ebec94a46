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


package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	goerrors "github.com/go-errors/errors"
	"github.com/kptdev/coursework/internal/errors/resolver"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/kptdev/coursework/run"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	os.Exit(runMain())
}

// runMain does the initial setup in order to run coursework. The return
// value from this function will be the exit code.
func runMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	klog.InitFlags(nil)
	defer klog.Flush()

	cmd := run.GetMain(ctx)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return handleErr(cmd, err)
	}
	return 0
}

// handleErr takes care of printing an error message for a given error.
func handleErr(cmd *cobra.Command, err error) int {
	if cmdutil.PrintErrorStacktrace() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", goerrors.Wrap(err, 1).ErrorStack())
	}

	rr, resolved := resolver.ResolveError(err)
	if resolved {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", rr.Message)
		return rr.ExitCode
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
	return 1
}
