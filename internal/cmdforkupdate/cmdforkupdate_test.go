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


package cmdforkupdate_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kptdev/coursework/internal/cmdforkupdate"
	"github.com/kptdev/coursework/internal/config"
	"github.com/kptdev/coursework/internal/credstore"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/printer/fake"
	"github.com/kptdev/coursework/internal/testutil"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fork struct {
	template *testutil.TestGitRepo
	origin   string
	student  *testutil.TestGitRepo
}

func newFork(t *testing.T) *fork {
	t.Helper()
	t.Setenv("GIT_AUTHOR_NAME", "Test Student")
	t.Setenv("GIT_AUTHOR_EMAIL", "student@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test Student")
	t.Setenv("GIT_COMMITTER_EMAIL", "student@example.com")

	upstream := testutil.NewBareRemote(t)
	f := &fork{template: testutil.NewTestGitRepo(t), origin: testutil.NewBareRemote(t)}
	f.template.WriteFile("week1/task.md", "do it\n")
	f.template.CommitAll("template")
	f.template.Git("remote", "add", "origin", upstream)
	f.template.Git("push", "--quiet", "origin", "main")
	f.template.Git("push", "--quiet", f.origin, "main")

	f.student = testutil.CloneTestGitRepo(t, f.origin)
	f.student.Git("remote", "add", "upstream", upstream)
	return f
}

func (f *fork) publish(t *testing.T, content string) {
	f.template.WriteFile("week1/task.md", content)
	f.template.CommitAll("change week 1")
	f.template.Git("push", "--quiet", "origin", "main")
}

func newFactory(t *testing.T) *cmdutil.Factory {
	workspace := t.TempDir()
	return &cmdutil.Factory{
		Home: t.TempDir(),
		LookupEnv: func(key string) (string, bool) {
			if key == config.WorkspaceEnv {
				return workspace, true
			}
			return "", false
		},
		Store: credstore.NewMemory(),
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	r := cmdforkupdate.NewRunner(fake.CtxWithPrinter(&out, &errOut), newFactory(t), "coursework")
	r.Command.SetArgs(args)
	r.Command.SetOut(io.Discard)
	r.Command.SetErr(io.Discard)
	r.Command.SilenceUsage = true
	err := r.Command.Execute()
	return out.String(), errOut.String(), err
}

func readTask(t *testing.T, repo *testutil.TestGitRepo) string {
	b, err := os.ReadFile(filepath.Join(repo.RepoDirectory, "week1", "task.md"))
	require.NoError(t, err)
	return string(b)
}

func TestCmd_ForkUpdateMergesAndPushes(t *testing.T) {
	f := newFork(t)

	out, _, err := run(t, f.student.RepoDirectory)
	require.NoError(t, err)
	assert.Equal(t, f.student.RepoDirectory+" is up to date\n", out)

	f.publish(t, "do it again\n")
	out, _, err = run(t, filepath.Join(f.student.RepoDirectory, "week1"))
	require.NoError(t, err)
	assert.Equal(t, "merged upstream/main into "+f.student.RepoDirectory+" and pushed to origin\n", out)
	assert.Equal(t, "do it again\n", readTask(t, f.student))
	assert.Equal(t, f.student.Head(), f.student.Git("--git-dir", f.origin, "rev-parse", "main"))
}

func TestCmd_ForkUpdateConflicts(t *testing.T) {
	testCases := map[string]struct {
		args        []string
		wantErr     bool
		wantContent string
	}{
		"aborted without auto-resolve": {
			wantErr:     true,
			wantContent: "my answer\n",
		},
		"prefer-local keeps the student's file": {
			args:        []string{"--auto-resolve", "--policy", "prefer-local"},
			wantContent: "my answer\n",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			f := newFork(t)
			f.student.WriteFile("week1/task.md", "my answer\n")
			f.student.CommitAll("answer")
			f.publish(t, "do it differently\n")
			before := f.student.Head()

			_, errOut, err := run(t, append([]string{f.student.RepoDirectory}, tc.args...)...)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, errOut, "week1/task.md")
				assert.Equal(t, before, f.student.Head())
				assert.Empty(t, f.student.Git("status", "--porcelain"))
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, before, f.student.Head())
			}
			assert.Equal(t, tc.wantContent, readTask(t, f.student))
		})
	}
}

func TestCmd_ForkUpdateFlags(t *testing.T) {
	testCases := map[string]struct {
		args []string
		kind errors.Kind
	}{
		"unknown policy": {
			args: []string{"--policy", "take-everything"},
			kind: errors.InvalidParam,
		},
		"external tool without a command": {
			args: []string{"--auto-resolve", "--policy", "external-tool"},
			kind: errors.MissingParam,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			_, _, err := run(t, append([]string{t.TempDir()}, tc.args...)...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestCmd_ForkUpdateOutsideRepository(t *testing.T) {
	_, _, err := run(t, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.RepoRootNotFound))
}
