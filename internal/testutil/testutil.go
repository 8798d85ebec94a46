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

// Package testutil contains helpers for tests that need real git
// repositories on disk.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kptdev/coursework/internal/gitutil"
	"github.com/otiai10/copy"
	assertnow "gotest.tools/assert"
)

var AssertNoError = assertnow.NilError

// RequireGit skips the test if no git executable is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
}

// TestGitRepo manages a local git repository for testing.
type TestGitRepo struct {
	T *testing.T

	// RepoDirectory is the working tree of the repository.
	RepoDirectory string

	// Runner runs git commands in RepoDirectory.
	Runner *gitutil.GitLocalRunner
}

// NewTestGitRepo initializes a repository with a main branch and a
// committer identity in a new temporary directory.
func NewTestGitRepo(t *testing.T) *TestGitRepo {
	t.Helper()
	return InitTestGitRepo(t, t.TempDir())
}

// InitTestGitRepo initializes a repository in dir.
func InitTestGitRepo(t *testing.T, dir string) *TestGitRepo {
	t.Helper()
	RequireGit(t)
	AssertNoError(t, os.MkdirAll(dir, 0700))
	runner, err := gitutil.NewLocalGitRunner(dir)
	AssertNoError(t, err)
	g := &TestGitRepo{T: t, RepoDirectory: dir, Runner: runner}
	g.Git("init", "--quiet", "--initial-branch=main")
	g.Configure()
	return g
}

// OpenTestGitRepo wraps an existing working tree, e.g. a fresh clone.
func OpenTestGitRepo(t *testing.T, dir string) *TestGitRepo {
	t.Helper()
	runner, err := gitutil.NewLocalGitRunner(dir)
	AssertNoError(t, err)
	g := &TestGitRepo{T: t, RepoDirectory: dir, Runner: runner}
	g.Configure()
	return g
}

// CloneTestGitRepo clones url into a new temporary directory.
func CloneTestGitRepo(t *testing.T, url string) *TestGitRepo {
	t.Helper()
	RequireGit(t)
	dir := filepath.Join(t.TempDir(), "clone")
	runner, err := gitutil.NewLocalGitRunner("")
	AssertNoError(t, err)
	_, err = runner.Run(context.Background(), "clone", "--quiet", url, dir)
	AssertNoError(t, err)
	return OpenTestGitRepo(t, dir)
}

// Configure sets a committer identity and disables signing.
func (g *TestGitRepo) Configure() {
	g.Git("config", "user.name", "Test Student")
	g.Git("config", "user.email", "student@example.com")
	g.Git("config", "commit.gpgsign", "false")
}

// Git runs a git command in the repository and fails the test on error.
func (g *TestGitRepo) Git(args ...string) string {
	g.T.Helper()
	rr, err := g.Runner.Run(context.Background(), args...)
	AssertNoError(g.T, err)
	return strings.TrimSpace(rr.Stdout)
}

// WriteFile writes content to the slash separated path rel below the
// repository root, creating parent directories.
func (g *TestGitRepo) WriteFile(rel, content string) {
	g.T.Helper()
	WriteFile(g.T, g.RepoDirectory, rel, content)
}

// CommitAll stages everything and commits it, returning the new HEAD.
func (g *TestGitRepo) CommitAll(message string) string {
	g.T.Helper()
	g.Git("add", "--all")
	g.Git("commit", "--quiet", "--allow-empty", "-m", message)
	return g.Git("rev-parse", "HEAD")
}

// Head returns the current HEAD commit.
func (g *TestGitRepo) Head() string {
	g.T.Helper()
	return g.Git("rev-parse", "HEAD")
}

// NewBareRemote creates a bare repository to be used as a remote and
// returns its path.
func NewBareRemote(t *testing.T) string {
	t.Helper()
	RequireGit(t)
	dir := filepath.Join(t.TempDir(), "remote.git")
	runner, err := gitutil.NewLocalGitRunner("")
	AssertNoError(t, err)
	_, err = runner.Run(context.Background(), "init", "--quiet", "--bare", "--initial-branch=main", dir)
	AssertNoError(t, err)
	return dir
}

// WriteFile writes content to rel below root.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	AssertNoError(t, os.MkdirAll(filepath.Dir(p), 0700))
	AssertNoError(t, os.WriteFile(p, []byte(content), 0600))
}

// CopyTree copies the directory tree at src to dst.
func CopyTree(t *testing.T, src, dst string) {
	t.Helper()
	AssertNoError(t, copy.Copy(src, dst))
}

// SnapshotTree returns a map from slash separated relative path to the
// sha256 of the file content for every file below dir, ignoring .git.
func SnapshotTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	snapshot := map[string]string{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}
		if info.IsDir() {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(b)
		snapshot[filepath.ToSlash(rel)] = hex.EncodeToString(sum[:])
		return nil
	})
	AssertNoError(t, err)
	return snapshot
}
