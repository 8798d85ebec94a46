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

package forkupdate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kptdev/coursework/internal/forkupdate"
	"github.com/kptdev/coursework/internal/gitutil"
	"github.com/kptdev/coursework/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fork is a student clone with origin and upstream remotes plus a working
// copy of the template used to publish upstream changes.
type fork struct {
	student  *testutil.TestGitRepo
	template *testutil.TestGitRepo
}

func newFork(t *testing.T, withUpstream bool) *fork {
	t.Helper()
	ctx := context.Background()
	upstream := testutil.NewBareRemote(t)
	origin := testutil.NewBareRemote(t)

	template := testutil.NewTestGitRepo(t)
	template.WriteFile("f.txt", "base\n")
	template.WriteFile("README.md", "assignment\n")
	template.CommitAll("template")
	template.Git("remote", "add", "origin", upstream)
	template.Git("push", "--quiet", "origin", "main")
	template.Git("push", "--quiet", origin, "main")

	dir := filepath.Join(t.TempDir(), "student")
	_, err := gitutil.Clone(ctx, origin, dir, "")
	require.NoError(t, err)
	student := testutil.OpenTestGitRepo(t, dir)
	if withUpstream {
		student.Git("remote", "add", forkupdate.UpstreamRemote, upstream)
	}
	return &fork{student: student, template: template}
}

func (f *fork) publishUpstream(rel, content string) {
	f.template.WriteFile(rel, content)
	f.template.CommitAll("upstream change " + rel)
	f.template.Git("push", "--quiet", "origin", "main")
}

func (f *fork) commitLocal(rel, content string) string {
	f.student.WriteFile(rel, content)
	return f.student.CommitAll("student change " + rel)
}

func (f *fork) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.student.RepoDirectory, rel))
	require.NoError(t, err)
	return string(b)
}

func TestUpdate_NoUpstream(t *testing.T) {
	f := newFork(t, false)
	res, err := forkupdate.NewEngine().Update(context.Background(), forkupdate.Options{Repo: f.student.Runner})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, forkupdate.None, res.Conflict)
}

func TestUpdate_UpToDate(t *testing.T) {
	f := newFork(t, true)
	before := f.student.Head()
	res, err := forkupdate.NewEngine().Update(context.Background(), forkupdate.Options{Repo: f.student.Runner})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, forkupdate.None, res.Conflict)
	assert.Equal(t, "upstream/main", res.UpstreamRef)
	assert.Equal(t, before, f.student.Head())
}

func TestUpdate_CleanMerge(t *testing.T) {
	f := newFork(t, true)
	f.commitLocal("solution.py", "print('mine')\n")
	f.publishUpstream("tests/test_a.py", "assert True\n")

	res, err := forkupdate.NewEngine().Update(context.Background(), forkupdate.Options{Repo: f.student.Runner})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, forkupdate.None, res.Conflict)
	assert.Equal(t, "assert True\n", f.read(t, "tests/test_a.py"))
	assert.Equal(t, "print('mine')\n", f.read(t, "solution.py"))
}

func TestUpdate_KeepsUncommittedChanges(t *testing.T) {
	f := newFork(t, true)
	f.publishUpstream("tests/test_a.py", "assert True\n")
	f.student.WriteFile("README.md", "my notes\n")
	f.student.WriteFile("scratch.txt", "untracked\n")

	res, err := forkupdate.NewEngine().Update(context.Background(), forkupdate.Options{Repo: f.student.Runner})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Empty(t, res.StashKept)
	assert.Equal(t, "my notes\n", f.read(t, "README.md"))
	assert.Equal(t, "untracked\n", f.read(t, "scratch.txt"))

	entries, err := f.student.Runner.StashList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdate_ConflictWithoutAutoResolveLeavesTreeUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFork(t, true)
	f.commitLocal("f.txt", "student\n")
	f.publishUpstream("f.txt", "upstream\n")
	f.student.WriteFile("wip.txt", "not committed yet\n")

	head := f.student.Head()
	snapshot := testutil.SnapshotTree(t, f.student.RepoDirectory)

	res, err := forkupdate.NewEngine().Update(ctx, forkupdate.Options{Repo: f.student.Runner})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, forkupdate.Unresolved, res.Conflict)
	assert.Equal(t, []string{"f.txt"}, res.Conflicts)

	assert.Equal(t, head, f.student.Head())
	assert.Equal(t, snapshot, testutil.SnapshotTree(t, f.student.RepoDirectory))
	inProgress, err := f.student.Runner.MergeInProgress(ctx)
	require.NoError(t, err)
	assert.False(t, inProgress)
}

func TestUpdate_Policies(t *testing.T) {
	testCases := map[string]struct {
		policy           forkupdate.PolicyType
		mergeTool        string
		expectedConflict forkupdate.ConflictKind
		expectedContent  string
	}{
		"prefer-local keeps the student's version": {
			policy:           forkupdate.PreferLocal,
			expectedConflict: forkupdate.AutoResolved,
			expectedContent:  "student\n",
		},
		"keep-local keeps the student's version": {
			policy:           forkupdate.KeepLocal,
			expectedConflict: forkupdate.AutoResolved,
			expectedContent:  "student\n",
		},
		"upstream-untouched-only gives up on touched files": {
			policy:           forkupdate.UpstreamUntouchedOnly,
			expectedConflict: forkupdate.Unresolved,
			expectedContent:  "student\n",
		},
		"external tool resolves": {
			policy:           forkupdate.ExternalTool,
			mergeTool:        `sh -c 'printf "resolved\n" > "$1"' tool $MERGED`,
			expectedConflict: forkupdate.AutoResolved,
			expectedContent:  "resolved\n",
		},
		"failing external tool is terminal": {
			policy:           forkupdate.ExternalTool,
			mergeTool:        "false",
			expectedConflict: forkupdate.Unresolved,
			expectedContent:  "student\n",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			ctx := context.Background()
			f := newFork(t, true)
			f.commitLocal("f.txt", "student\n")
			f.publishUpstream("f.txt", "upstream\n")
			f.publishUpstream("new.txt", "from upstream\n")

			res, err := forkupdate.NewEngine().Update(ctx, forkupdate.Options{
				Repo:        f.student.Runner,
				AutoResolve: true,
				Policy:      tc.policy,
				MergeTool:   tc.mergeTool,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.expectedConflict, res.Conflict)
			assert.Equal(t, tc.expectedConflict == forkupdate.AutoResolved, res.Updated)
			assert.Equal(t, tc.expectedContent, f.read(t, "f.txt"))

			inProgress, err := f.student.Runner.MergeInProgress(ctx)
			require.NoError(t, err)
			assert.False(t, inProgress)
			status, err := f.student.Runner.Status(ctx)
			require.NoError(t, err)
			assert.True(t, status.IsClean)

			_, statErr := os.Stat(filepath.Join(f.student.RepoDirectory, "new.txt"))
			if res.Updated {
				assert.NoError(t, statErr)
			} else {
				assert.True(t, os.IsNotExist(statErr))
			}
		})
	}
}

func TestUpdate_ConfirmDeclined(t *testing.T) {
	f := newFork(t, true)
	f.publishUpstream("tests/test_a.py", "assert True\n")
	before := f.student.Head()

	var asked string
	res, err := forkupdate.NewEngine().Update(context.Background(), forkupdate.Options{
		Repo: f.student.Runner,
		Confirm: func(_ context.Context, ref string) bool {
			asked = ref
			return false
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "upstream/main", asked)
	assert.Equal(t, forkupdate.AbortedByUser, res.Conflict)
	assert.False(t, res.Updated)
	assert.Equal(t, before, f.student.Head())
}

func TestUpdate_FastForwardsFromOrigin(t *testing.T) {
	ctx := context.Background()
	f := newFork(t, false)
	f.student.WriteFile("laptop.txt", "pushed from another machine\n")
	pushed := f.student.CommitAll("other machine")
	f.student.Git("push", "--quiet", "origin", "main")
	f.student.Git("reset", "--quiet", "--hard", "HEAD~1")

	_, err := forkupdate.NewEngine().Update(ctx, forkupdate.Options{Repo: f.student.Runner})
	require.NoError(t, err)
	assert.Equal(t, pushed, f.student.Head())
}

func TestUpdate_DivergedFromOriginStillMergesUpstream(t *testing.T) {
	ctx := context.Background()
	f := newFork(t, true)
	f.student.WriteFile("laptop.txt", "pushed from another machine\n")
	f.student.CommitAll("other machine")
	f.student.Git("push", "--quiet", "origin", "main")
	f.student.Git("reset", "--quiet", "--hard", "HEAD~1")
	local := f.commitLocal("solution.py", "print('mine')\n")
	f.publishUpstream("tests/test_a.py", "assert True\n")

	res, err := forkupdate.NewEngine().Update(ctx, forkupdate.Options{Repo: f.student.Runner})
	require.NoError(t, err)
	assert.Equal(t, "origin/main", res.Diverged)
	assert.True(t, res.Updated)
	assert.Equal(t, "assert True\n", f.read(t, "tests/test_a.py"))
	assert.NoFileExists(t, filepath.Join(f.student.RepoDirectory, "laptop.txt"))
	assert.Equal(t, local, f.student.Git("rev-parse", "HEAD^1"))
}

func TestParsePolicy(t *testing.T) {
	p, err := forkupdate.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, forkupdate.PreferLocal, p)

	p, err = forkupdate.ParsePolicy("keep-local")
	require.NoError(t, err)
	assert.Equal(t, forkupdate.KeepLocal, p)

	_, err = forkupdate.ParsePolicy("theirs")
	assert.Error(t, err)

	assert.Equal(t, []string{"external-tool", "keep-local", "prefer-local", "upstream-untouched-only"}, forkupdate.Policies())
}
