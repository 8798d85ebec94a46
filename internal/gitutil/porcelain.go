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
	"bufio"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/types"
)

// RepoStatus is the parsed output of `git status`.
type RepoStatus struct {
	IsClean   bool
	Staged    []string
	Unstaged  []string
	Untracked []string
}

// Remote is a configured git remote.
type Remote struct {
	Name string
	URL  string
}

// StashEntry is one entry of `git stash list`.
type StashEntry struct {
	Ref     string
	Message string
}

// Conflict describes an unmerged path and which index stages exist for it.
// Stage 1 is the merge base, 2 is ours (HEAD), 3 is theirs.
type Conflict struct {
	Path   string
	Base   bool
	Ours   bool
	Theirs bool
}

var commitHashPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// IsCommitHash reports whether s is a full 40 character hex object name.
func IsCommitHash(s string) bool {
	return commitHashPattern.MatchString(s)
}

// ShortHash abbreviates a commit hash for display.
func ShortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// Status returns the working tree status of the repository.
func (g *GitLocalRunner) Status(ctx context.Context) (RepoStatus, error) {
	const op errors.Op = "gitutil.Status"
	rr, err := g.Run(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return RepoStatus{}, errors.E(op, err)
	}
	return parseStatus(rr.Stdout), nil
}

func parseStatus(out string) RepoStatus {
	s := RepoStatus{}
	records := strings.Split(out, "\x00")
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 4 {
			continue
		}
		x, y, path := rec[0], rec[1], rec[3:]
		if x == 'R' || x == 'C' {
			// renames and copies are followed by the original path
			i++
		}
		switch {
		case x == '?' && y == '?':
			s.Untracked = append(s.Untracked, path)
		case x == '!':
		default:
			if x != ' ' {
				s.Staged = append(s.Staged, path)
			}
			if y != ' ' {
				s.Unstaged = append(s.Unstaged, path)
			}
		}
	}
	s.IsClean = len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0
	return s
}

// StageAll stages every change in the working tree, including deletions
// and untracked files.
func (g *GitLocalRunner) StageAll(ctx context.Context) error {
	const op errors.Op = "gitutil.StageAll"
	if _, err := g.Run(ctx, "add", "--all"); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// StagePath stages only the changes below subpath.
func (g *GitLocalRunner) StagePath(ctx context.Context, subpath string) error {
	const op errors.Op = "gitutil.StagePath"
	if _, err := g.Run(ctx, "add", "--all", "--", subpath); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// StagedPaths returns the paths staged for the next commit.
func (g *GitLocalRunner) StagedPaths(ctx context.Context) ([]string, error) {
	const op errors.Op = "gitutil.StagedPaths"
	rr, err := g.Run(ctx, "diff", "--cached", "--name-only", "-z")
	if err != nil {
		return nil, errors.E(op, err)
	}
	var paths []string
	for _, p := range strings.Split(rr.Stdout, "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// HasStagedFiles reports whether the index differs from HEAD.
func (g *GitLocalRunner) HasStagedFiles(ctx context.Context) (bool, error) {
	paths, err := g.StagedPaths(ctx)
	if err != nil {
		return false, err
	}
	return len(paths) > 0, nil
}

// Commit records the staged changes. Callers are expected to check
// HasStagedFiles first; an empty index fails with errors.NothingToCommit.
func (g *GitLocalRunner) Commit(ctx context.Context, message string) error {
	const op errors.Op = "gitutil.Commit"
	staged, err := g.HasStagedFiles(ctx)
	if err != nil {
		return errors.E(op, err)
	}
	if !staged {
		return errors.E(op, errors.NothingToCommit, types.UniquePath(g.Dir))
	}
	if _, err := g.Run(ctx, "commit", "--quiet", "-m", message); err != nil {
		if ErrorType(err) == NothingToCommit {
			return errors.E(op, errors.NothingToCommit, err)
		}
		return errors.E(op, err)
	}
	return nil
}

// CommitMerge concludes an in-progress merge with the prepared message.
func (g *GitLocalRunner) CommitMerge(ctx context.Context) error {
	const op errors.Op = "gitutil.CommitMerge"
	if _, err := g.Run(ctx, "commit", "--quiet", "--no-edit"); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// CurrentBranch returns the checked out branch. The second return value is
// false when HEAD is detached.
func (g *GitLocalRunner) CurrentBranch(ctx context.Context) (string, bool, error) {
	const op errors.Op = "gitutil.CurrentBranch"
	rr, err := g.Run(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		var execErr *GitExecError
		if errors.As(err, &execErr) && execErr.ExitCode == 1 && execErr.Type == Unknown {
			return "", false, nil
		}
		return "", false, errors.E(op, err)
	}
	return strings.TrimSpace(rr.Stdout), true, nil
}

// Push pushes branch to remote.
func (g *GitLocalRunner) Push(ctx context.Context, remote, branch string) error {
	const op errors.Op = "gitutil.Push"
	if _, err := g.Run(ctx, "push", "--porcelain", remote, "refs/heads/"+branch); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Ref = branch
		})
		return errors.E(op, err)
	}
	return nil
}

// PushSetUpstream pushes branch to remote and records remote as the
// branch's upstream. Used for the first push of a new branch.
func (g *GitLocalRunner) PushSetUpstream(ctx context.Context, remote, branch string) error {
	const op errors.Op = "gitutil.PushSetUpstream"
	if _, err := g.Run(ctx, "push", "--porcelain", "--set-upstream", remote, branch); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Ref = branch
		})
		return errors.E(op, err)
	}
	return nil
}

// HasUpstream reports whether branch has a configured upstream.
func (g *GitLocalRunner) HasUpstream(ctx context.Context, branch string) (bool, error) {
	const op errors.Op = "gitutil.HasUpstream"
	rr, err := g.Run(ctx, "config", "--get", "branch."+branch+".remote")
	if err != nil {
		var execErr *GitExecError
		if errors.As(err, &execErr) && execErr.ExitCode == 1 {
			return false, nil
		}
		return false, errors.E(op, err)
	}
	return strings.TrimSpace(rr.Stdout) != "", nil
}

// LatestCommitHash returns the object name of HEAD. The second return
// value is false if the repository has no commits yet.
func (g *GitLocalRunner) LatestCommitHash(ctx context.Context) (string, bool, error) {
	return g.ResolveRef(ctx, "HEAD")
}

// ResolveRef returns the commit a ref points to.
func (g *GitLocalRunner) ResolveRef(ctx context.Context, ref string) (string, bool, error) {
	const op errors.Op = "gitutil.ResolveRef"
	rr, err := g.Run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		var execErr *GitExecError
		if errors.As(err, &execErr) && execErr.ExitCode == 1 && execErr.Type != NotARepository {
			return "", false, nil
		}
		return "", false, errors.E(op, err)
	}
	hash := strings.TrimSpace(rr.Stdout)
	if !IsCommitHash(hash) {
		return "", false, errors.E(op, errors.Git, fmt.Errorf("unexpected object name %q", hash))
	}
	return hash, true, nil
}

// RefExists reports whether ref resolves to a commit.
func (g *GitLocalRunner) RefExists(ctx context.Context, ref string) (bool, error) {
	_, found, err := g.ResolveRef(ctx, ref)
	return found, err
}

// Remotes returns the configured remotes with their fetch URLs.
func (g *GitLocalRunner) Remotes(ctx context.Context) ([]Remote, error) {
	const op errors.Op = "gitutil.Remotes"
	rr, err := g.Run(ctx, "remote", "-v")
	if err != nil {
		return nil, errors.E(op, err)
	}
	return parseRemotes(rr.Stdout), nil
}

func parseRemotes(out string) []Remote {
	var remotes []Remote
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[2] != "(fetch)" {
			continue
		}
		remotes = append(remotes, Remote{Name: fields[0], URL: fields[1]})
	}
	sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name < remotes[j].Name })
	return remotes
}

// RemoteURL returns the URL of the named remote. The second return value is
// false if no such remote exists.
func (g *GitLocalRunner) RemoteURL(ctx context.Context, name string) (string, bool, error) {
	remotes, err := g.Remotes(ctx)
	if err != nil {
		return "", false, err
	}
	for _, r := range remotes {
		if r.Name == name {
			return r.URL, true, nil
		}
	}
	return "", false, nil
}

// SetRemoteURL rewrites the URL of an existing remote.
func (g *GitLocalRunner) SetRemoteURL(ctx context.Context, name, url string) error {
	const op errors.Op = "gitutil.SetRemoteURL"
	if _, err := g.Run(ctx, "remote", "set-url", name, url); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// AddRemote adds a new remote.
func (g *GitLocalRunner) AddRemote(ctx context.Context, name, url string) error {
	const op errors.Op = "gitutil.AddRemote"
	if _, err := g.Run(ctx, "remote", "add", name, url); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Stash stashes local modifications including untracked files. The return
// value is false if there was nothing to stash.
func (g *GitLocalRunner) Stash(ctx context.Context, message string) (bool, error) {
	const op errors.Op = "gitutil.Stash"
	before, err := g.StashList(ctx)
	if err != nil {
		return false, errors.E(op, err)
	}
	if _, err := g.Run(ctx, "stash", "push", "--include-untracked", "-m", message); err != nil {
		return false, errors.E(op, err)
	}
	after, err := g.StashList(ctx)
	if err != nil {
		return false, errors.E(op, err)
	}
	return len(after) > len(before), nil
}

// StashPop applies and drops the most recent stash entry.
func (g *GitLocalRunner) StashPop(ctx context.Context) error {
	const op errors.Op = "gitutil.StashPop"
	if _, err := g.Run(ctx, "stash", "pop"); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// StashList returns the stash entries, most recent first.
func (g *GitLocalRunner) StashList(ctx context.Context) ([]StashEntry, error) {
	const op errors.Op = "gitutil.StashList"
	rr, err := g.Run(ctx, "stash", "list", "--format=%gd%x00%gs")
	if err != nil {
		return nil, errors.E(op, err)
	}
	var entries []StashEntry
	scanner := bufio.NewScanner(strings.NewReader(rr.Stdout))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\x00", 2)
		if len(parts) != 2 {
			continue
		}
		entries = append(entries, StashEntry{Ref: parts[0], Message: parts[1]})
	}
	return entries, nil
}

// Fetch fetches all branches of remote.
func (g *GitLocalRunner) Fetch(ctx context.Context, remote string) error {
	const op errors.Op = "gitutil.Fetch"
	if _, err := g.Run(ctx, "fetch", "--prune", "--quiet", remote); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// PullFastForward integrates the already fetched remote/branch into the
// current branch, refusing anything but a fast-forward.
func (g *GitLocalRunner) PullFastForward(ctx context.Context, remote, branch string) error {
	const op errors.Op = "gitutil.PullFastForward"
	ref := remote + "/" + branch
	if _, err := g.Run(ctx, "merge", "--ff-only", "--quiet", ref); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Ref = ref
		})
		return errors.E(op, err)
	}
	return nil
}

// ResetHard resets the index and working tree to HEAD. Untracked files
// are left alone.
func (g *GitLocalRunner) ResetHard(ctx context.Context) error {
	const op errors.Op = "gitutil.ResetHard"
	if _, err := g.Run(ctx, "reset", "--hard", "--quiet", "HEAD"); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Merge merges ref into the current branch. A conflicting merge fails with
// an error of type MergeConflict and leaves the merge in progress.
func (g *GitLocalRunner) Merge(ctx context.Context, ref string, allowUnrelated bool) error {
	const op errors.Op = "gitutil.Merge"
	args := []string{"merge", "--no-edit", "--no-stat"}
	if allowUnrelated {
		args = append(args, "--allow-unrelated-histories")
	}
	args = append(args, ref)
	if _, err := g.Run(ctx, args...); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Ref = ref
		})
		return errors.E(op, err)
	}
	return nil
}

// MergeAbort aborts an in-progress merge and restores the pre-merge state.
func (g *GitLocalRunner) MergeAbort(ctx context.Context) error {
	const op errors.Op = "gitutil.MergeAbort"
	if _, err := g.Run(ctx, "merge", "--abort"); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// MergeInProgress reports whether MERGE_HEAD exists.
func (g *GitLocalRunner) MergeInProgress(ctx context.Context) (bool, error) {
	return g.RefExists(ctx, "MERGE_HEAD")
}

// ConflictedFiles lists the unmerged paths of an in-progress merge.
func (g *GitLocalRunner) ConflictedFiles(ctx context.Context) ([]Conflict, error) {
	const op errors.Op = "gitutil.ConflictedFiles"
	rr, err := g.Run(ctx, "ls-files", "--unmerged", "-z")
	if err != nil {
		return nil, errors.E(op, err)
	}
	return parseUnmerged(rr.Stdout), nil
}

// parseUnmerged parses `git ls-files -u -z` records of the form
// "<mode> <object> <stage>\t<path>".
func parseUnmerged(out string) []Conflict {
	byPath := map[string]*Conflict{}
	var order []string
	for _, rec := range strings.Split(out, "\x00") {
		tab := strings.IndexByte(rec, '\t')
		if tab < 0 {
			continue
		}
		fields := strings.Fields(rec[:tab])
		if len(fields) != 3 {
			continue
		}
		path := rec[tab+1:]
		c, found := byPath[path]
		if !found {
			c = &Conflict{Path: path}
			byPath[path] = c
			order = append(order, path)
		}
		switch fields[2] {
		case "1":
			c.Base = true
		case "2":
			c.Ours = true
		case "3":
			c.Theirs = true
		}
	}
	sort.Strings(order)
	conflicts := make([]Conflict, 0, len(order))
	for _, p := range order {
		conflicts = append(conflicts, *byPath[p])
	}
	return conflicts
}

// MergeBase returns the best common ancestor of a and b.
func (g *GitLocalRunner) MergeBase(ctx context.Context, a, b string) (string, bool, error) {
	const op errors.Op = "gitutil.MergeBase"
	rr, err := g.Run(ctx, "merge-base", a, b)
	if err != nil {
		var execErr *GitExecError
		if errors.As(err, &execErr) && execErr.ExitCode == 1 {
			return "", false, nil
		}
		return "", false, errors.E(op, err)
	}
	return strings.TrimSpace(rr.Stdout), true, nil
}

// ChangedSince reports whether path differs between base and HEAD.
func (g *GitLocalRunner) ChangedSince(ctx context.Context, base, path string) (bool, error) {
	const op errors.Op = "gitutil.ChangedSince"
	rr, err := g.Run(ctx, "diff", "--name-only", base, "HEAD", "--", path)
	if err != nil {
		return false, errors.E(op, err)
	}
	return strings.TrimSpace(rr.Stdout) != "", nil
}

// CheckoutStage replaces path in the working tree and index with our
// (HEAD) or their version from an in-progress merge.
func (g *GitLocalRunner) CheckoutStage(ctx context.Context, path string, ours bool) error {
	const op errors.Op = "gitutil.CheckoutStage"
	side := "--theirs"
	if ours {
		side = "--ours"
	}
	if _, err := g.Run(ctx, "checkout", side, "--", path); err != nil {
		return errors.E(op, err)
	}
	if _, err := g.Run(ctx, "add", "--", path); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// RemovePath removes path from the index and the working tree.
func (g *GitLocalRunner) RemovePath(ctx context.Context, path string) error {
	const op errors.Op = "gitutil.RemovePath"
	if _, err := g.Run(ctx, "rm", "--quiet", "--force", "--", path); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// AddPath stages path.
func (g *GitLocalRunner) AddPath(ctx context.Context, path string) error {
	const op errors.Op = "gitutil.AddPath"
	if _, err := g.Run(ctx, "add", "--", path); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// DefaultBranch returns the name of the branch pointed to by the HEAD
// symref of remote. This is the default branch of the remote repository.
func (g *GitLocalRunner) DefaultBranch(ctx context.Context, remote string) (string, error) {
	const op errors.Op = "gitutil.DefaultBranch"
	rr, err := g.Run(ctx, "ls-remote", "--symref", remote, "HEAD")
	if err != nil {
		return "", errors.E(op, err)
	}
	if rr.Stdout == "" {
		return "", errors.E(op, errors.Git,
			fmt.Errorf("unable to detect default branch of remote %q", remote))
	}

	re := regexp.MustCompile(`ref: refs/heads/(\S+)\s+HEAD`)
	match := re.FindStringSubmatch(rr.Stdout)
	if len(match) != 2 {
		return "", errors.E(op, errors.Git,
			fmt.Errorf("unexpected response from git when determining default branch: %s", rr.Stdout))
	}
	return match[1], nil
}
