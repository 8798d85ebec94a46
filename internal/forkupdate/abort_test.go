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


package forkupdate

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/kptdev/coursework/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbortMerge(t *testing.T) {
	testCases := map[string]struct {
		conflicting bool
		abortFails  bool
	}{
		"merge in progress is aborted": {
			conflicting: true,
		},
		"failed abort is reported with the cause": {
			abortFails: true,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			ctx := context.Background()
			repo := testutil.NewTestGitRepo(t)
			repo.WriteFile("f.txt", "base\n")
			repo.CommitAll("base")
			if tc.conflicting {
				repo.Git("checkout", "--quiet", "-b", "other")
				repo.WriteFile("f.txt", "other\n")
				repo.CommitAll("other")
				repo.Git("checkout", "--quiet", "main")
				repo.WriteFile("f.txt", "main\n")
				repo.CommitAll("main")
				require.Error(t, repo.Runner.Merge(ctx, "other", false))
			}

			cause := goerrors.New("listing conflicts failed")
			err := abortMerge(ctx, repo.Runner, cause)
			assert.ErrorIs(t, err, cause)
			if tc.abortFails {
				assert.Contains(t, err.Error(), "aborting the merge also failed")
				return
			}
			assert.Equal(t, cause, err)
			inProgress, err := repo.Runner.MergeInProgress(ctx)
			require.NoError(t, err)
			assert.False(t, inProgress)
			assert.Equal(t, "main", repo.Git("show", "HEAD:f.txt"))
		})
	}
}
