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


package cmdrepolist_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/kptdev/coursework/internal/cmdrepolist"
	"github.com/kptdev/coursework/internal/config"
	"github.com/kptdev/coursework/internal/credstore"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/printer/fake"
	"github.com/kptdev/coursework/internal/provision"
	"github.com/kptdev/coursework/internal/testutil"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFactory(t *testing.T, workspace string) *cmdutil.Factory {
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

func TestCmd_List(t *testing.T) {
	workspace := t.TempDir()
	repo := filepath.Join(workspace, "intro-to-go", "assignments")
	idx := &provision.Index{
		Version: 1,
		Repositories: []provision.RepositoryEntry{
			{CourseID: "c1", Path: repo, CloneURL: "https://git.example.com/s/assignments.git"},
		},
		Assignments: map[string]provision.AssignmentEntry{
			"c1-w2": {CourseID: "c1", Title: "Week 2", SubmissionGroupID: "sg-2", Repository: repo, Directory: "week2"},
			"c1-w1": {CourseID: "c1", Title: "Week 1", SubmissionGroupID: "sg-1", Repository: repo, Directory: "week1"},
		},
	}
	require.NoError(t, idx.Save(provision.IndexPath(workspace)))

	var out bytes.Buffer
	r := cmdrepolist.NewRunner(fake.CtxWithDefaultPrinter(), newFactory(t, workspace), "coursework")
	r.Command.SetOut(&out)
	r.Command.SetArgs([]string{})
	require.NoError(t, r.Command.Execute())

	got := out.String()
	assert.Contains(t, got, workspace)
	assert.Contains(t, got, "intro-to-go/assignments")
	assert.Contains(t, got, "week1 (Week 1)")
	assert.Contains(t, got, "sg-2")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("week1")), bytes.Index(out.Bytes(), []byte("week2")))
}

func TestCmd_ListEmptyWorkspace(t *testing.T) {
	workspace := t.TempDir()
	var out bytes.Buffer
	r := cmdrepolist.NewRunner(fake.CtxWithDefaultPrinter(), newFactory(t, workspace), "coursework")
	r.Command.SetOut(&out)
	r.Command.SetArgs([]string{})
	require.NoError(t, r.Command.Execute())
	assert.Equal(t, "no repositories in "+workspace+", run 'coursework repo sync' to provision them\n", out.String())
}

func TestCmd_ListDeferredCourses(t *testing.T) {
	remote := testutil.NewBareRemote(t)
	template := testutil.NewTestGitRepo(t)
	template.WriteFile("week1/task.md", "do it\n")
	template.CommitAll("template")
	template.Git("push", "--quiet", remote, "main")

	testCases := map[string]struct {
		args         []string
		wantCloned   bool
		wantContains string
		wantKind     errors.Kind
	}{
		"deferred course is listed": {
			wantContains: "algorithms/remote (deferred, cloned on first use)",
		},
		"course flag clones it": {
			args:         []string{"--course", "c2"},
			wantCloned:   true,
			wantContains: "week1 (Week 1)",
		},
		"unknown course": {
			args:     []string{"--course", "c9"},
			wantKind: errors.InvalidParam,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			workspace := t.TempDir()
			idx := &provision.Index{
				Version: 1,
				Deferred: map[string][]provision.Assignment{
					"c2": {{
						CourseID: "c2", CourseTitle: "Algorithms", ContentID: "c2-w1", Title: "Week 1",
						Directory: "week1", SubmissionGroupID: "sg-1", CloneURL: remote,
					}},
				},
			}
			require.NoError(t, idx.Save(provision.IndexPath(workspace)))

			var out bytes.Buffer
			r := cmdrepolist.NewRunner(fake.CtxWithDefaultPrinter(), newFactory(t, workspace), "coursework")
			r.Command.SetOut(&out)
			r.Command.SetArgs(tc.args)
			r.Command.SilenceUsage = true
			r.Command.SilenceErrors = true
			err := r.Command.Execute()
			if tc.wantKind != 0 {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tc.wantContains)

			repo := filepath.Join(workspace, "algorithms", "remote")
			if tc.wantCloned {
				assert.DirExists(t, filepath.Join(repo, "week1"))
				assert.NotContains(t, out.String(), "deferred")
			} else {
				assert.NoDirExists(t, repo)
			}
		})
	}
}
