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

package gitutil

import (
	goerrors "errors"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/types"
)

// FindRepoRoot walks up from path until it finds the root of a git working
// tree. Bare repositories are not accepted.
func FindRepoRoot(path string) (types.UniquePath, error) {
	const op errors.Op = "gitutil.FindRepoRoot"
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.E(op, errors.IO, err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if goerrors.Is(err, git.ErrRepositoryNotExists) {
			return "", errors.E(op, errors.RepoRootNotFound, types.UniquePath(abs))
		}
		return "", errors.E(op, errors.Git, types.UniquePath(abs), err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", errors.E(op, errors.RepoRootNotFound, types.UniquePath(abs), err)
	}
	return types.NewUniquePath(wt.Filesystem.Root())
}

// IsRepoRoot reports whether path is itself the root of a git working tree.
func IsRepoRoot(path string) bool {
	root, err := FindRepoRoot(path)
	if err != nil {
		return false
	}
	abs, err := types.NewUniquePath(path)
	if err != nil {
		return false
	}
	return root == abs
}
