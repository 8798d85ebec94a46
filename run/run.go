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


package run

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kptdev/coursework/commands"
	"github.com/kptdev/coursework/internal/docs/coursedocs"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func GetMain(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "coursework",
		Short:        coursedocs.CliShort,
		Long:         coursedocs.CliLong,
		SilenceUsage: true,
		// We handle all errors in main after return from cobra so we can
		// adjust the error message coming from libraries
		SilenceErrors: true,
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

	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	// wire the global printer
	pr := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	// create context with associated printer
	ctx = printer.WithContext(ctx, pr)

	f := cmdutil.NewFactory()
	f.AddFlags(cmd.PersistentFlags())

	// help and documentation
	cmd.InitDefaultHelpCmd()
	cmd.AddCommand(commands.GetCommands(ctx, f, "coursework")...)

	// enable stack traces
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"Print a stack-trace on failure")

	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintf(os.Stderr, "coursework requires that `git` is installed and on the PATH")
		os.Exit(1)
	}

	if pager := findPager(os.LookupEnv, exec.LookPath); len(pager) > 0 {
		usePager(cmd, pager)
	}

	cmd.AddCommand(versionCmd)
	hideFlags(cmd)
	return cmd
}

// NoPagerEnv disables paging of help output when set to 1.
const NoPagerEnv = "COURSEWORK_NO_PAGER_HELP"

// findPager returns the pager command line: $PAGER, else pager or less
// from the PATH. It returns nil if paging is disabled or no pager exists.
func findPager(lookupEnv func(string) (string, bool), lookPath func(string) (string, error)) []string {
	if v, found := lookupEnv(NoPagerEnv); found && v == "1" {
		return nil
	}
	if e, found := lookupEnv("PAGER"); found && e != "" {
		return []string{e}
	}
	for _, candidate := range [][]string{{"pager"}, {"less", "-R"}} {
		if p, err := lookPath(candidate[0]); err == nil {
			return append([]string{p}, candidate[1:]...)
		}
	}
	return nil
}

// usePager makes c and all of its sub-commands page help that does not
// fit on the terminal.
func usePager(c *cobra.Command, pager []string) {
	for _, child := range c.Commands() {
		usePager(child, pager)
	}
	c.SetHelpFunc(paged(pager, c.HelpFunc()))
}

func paged(pager []string, help func(*cobra.Command, []string)) func(*cobra.Command, []string) {
	return func(c *cobra.Command, args []string) {
		if height, ok := terminalHeight(); ok &&
			height > strings.Count(c.Long, "\n")+strings.Count(c.UsageString(), "\n") {
			help(c, args)
			return
		}

		out := c.OutOrStdout()
		b := &bytes.Buffer{}
		c.SetOut(b)
		help(c, args)
		c.SetOut(out)

		cmd := exec.Command(pager[0], pager[1:]...)
		cmd.Stdin = b
		cmd.Stdout = out
		if err := cmd.Run(); err != nil {
			// the pager failed, show the help as is
			klog.V(2).Infof("running pager %s: %v", pager[0], err)
			_, _ = io.Copy(out, b)
		}
	}
}

// terminalHeight returns the number of rows of the controlling terminal.
func terminalHeight() (int, bool) {
	stty := exec.Command("stty", "size")
	stty.Stdin = os.Stdin
	out, err := stty.Output()
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return 0, false
	}
	rows, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return rows, true
}

var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of coursework",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
	},
}

// hideFlags hides any cobra flags that are unlikely to be used by
// students.
func hideFlags(cmd *cobra.Command) {
	flags := []string{
		// Flags related to logging
		"add_dir_header",
		"alsologtostderr",
		"log_backtrace_at",
		"log_dir",
		"log_file",
		"log_file_max_size",
		"logtostderr",
		"one_output",
		"skip_headers",
		"skip_log_headers",
		"stack-trace",
		"stderrthreshold",
		"vmodule",
	}
	for _, f := range flags {
		_ = cmd.PersistentFlags().MarkHidden(f)
	}

	// We need to recurse into subcommands otherwise flags aren't hidden on leaf commands
	for _, child := range cmd.Commands() {
		hideFlags(child)
	}
}
