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

// Package forkupdate merges changes of an upstream template repository
// into a student's fork without losing the student's own commits.
package forkupdate

import (
	"context"
	"fmt"

	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/gitutil"
	"github.com/kptdev/coursework/internal/types"
	"k8s.io/klog/v2"
)

// ConflictKind describes how a merge with upstream ended.
type ConflictKind int

const (
	None ConflictKind = iota
	AutoResolved
	Unresolved
	AbortedByUser
)

func (k ConflictKind) String() string {
	switch k {
	case None:
		return "none"
	case AutoResolved:
		return "auto-resolved"
	case Unresolved:
		return "unresolved-requires-manual-merge"
	case AbortedByUser:
		return "aborted-by-user"
	}
	return fmt.Sprintf("ConflictKind(%d)", int(k))
}

const (
	// OriginRemote is the student's own remote.
	OriginRemote = "origin"
	// UpstreamRemote is the template the fork was created from.
	UpstreamRemote = "upstream"

	stashMessage = "coursework fork-update"
)

// Result is the outcome of Engine.Update.
type Result struct {
	// Updated is true if HEAD moved because of upstream changes. The caller
	// is expected to push HEAD to origin.
	Updated bool

	Conflict ConflictKind

	// Conflicts lists the paths that conflicted, if any.
	Conflicts []string

	// UpstreamRef is the ref that was merged, e.g. upstream/main.
	UpstreamRef string

	// StashKept is set when local changes were stashed but could not be
	// reapplied on top of the merge result. It names the stash entry
	// that still holds them.
	StashKept string

	// Diverged names the origin branch when it and the local branch both
	// have commits the other lacks. Neither is merged into the other.
	Diverged string
}

// Options configures a single Update.
type Options struct {
	// Repo is the repository to update, carrying the token to use.
	Repo *gitutil.GitLocalRunner

	// AutoResolve enables conflict resolution with Policy.
	AutoResolve bool

	// Policy is the conflict resolution policy. Defaults to DefaultPolicy.
	Policy PolicyType

	// MergeTool is the command line used by the ExternalTool policy.
	MergeTool string

	// Confirm, if set, is asked before upstream changes are merged. A false
	// return leaves the repository untouched and reports AbortedByUser.
	Confirm func(ctx context.Context, upstreamRef string) bool
}

// Engine synchronizes a fork with its upstream.
type Engine struct{}

// NewEngine returns an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Update brings the current branch up to date with origin and then merges
// the default branch of upstream into it. Local uncommitted changes are
// stashed for the duration and reapplied afterwards. A merge that is not
// resolved is aborted so that no partial merge is left behind.
func (e *Engine) Update(ctx context.Context, opts Options) (Result, error) {
	const op errors.Op = "forkupdate.Update"
	repo := opts.Repo
	if repo == nil {
		return Result{}, errors.E(op, errors.MissingParam, "repository must be provided")
	}
	path := types.UniquePath(repo.Dir)

	branch, found, err := repo.CurrentBranch(ctx)
	if err != nil {
		return Result{}, errors.E(op, path, err)
	}
	if !found {
		return Result{}, errors.E(op, path, errors.Git, fmt.Errorf("HEAD is detached, check out a branch first"))
	}

	remotes, err := repo.Remotes(ctx)
	if err != nil {
		return Result{}, errors.E(op, path, err)
	}
	hasOrigin, hasUpstream := false, false
	for _, r := range remotes {
		switch r.Name {
		case OriginRemote:
			hasOrigin = true
		case UpstreamRemote:
			hasUpstream = true
		}
	}

	_, hasHead, err := repo.LatestCommitHash(ctx)
	if err != nil {
		return Result{}, errors.E(op, path, err)
	}
	stashed := false
	if hasHead {
		stashed, err = repo.Stash(ctx, stashMessage)
		if err != nil {
			return Result{}, errors.E(op, path, err)
		}
	}

	res, err := e.update(ctx, opts, branch, hasOrigin, hasUpstream)
	if stashed {
		if popErr := repo.StashPop(ctx); popErr != nil {
			klog.Warningf("unable to reapply local changes in %s: %v", repo.Dir, popErr)
			if resetErr := repo.ResetHard(ctx); resetErr != nil {
				klog.Warningf("unable to reset %s: %v", repo.Dir, resetErr)
			}
			res.StashKept = "stash@{0}"
		}
	}
	if err != nil {
		return res, errors.E(op, path, err)
	}
	return res, nil
}

func (e *Engine) update(ctx context.Context, opts Options, branch string, hasOrigin, hasUpstream bool) (Result, error) {
	repo := opts.Repo
	res := Result{Conflict: None}

	if hasOrigin {
		if err := repo.Fetch(ctx, OriginRemote); err != nil {
			return Result{}, err
		}
		diverged, err := pullOrigin(ctx, repo, branch)
		if err != nil {
			return Result{}, err
		}
		res.Diverged = diverged
	}

	if !hasUpstream {
		klog.V(3).Infof("%s has no %s remote", repo.Dir, UpstreamRemote)
		return res, nil
	}

	if err := repo.Fetch(ctx, UpstreamRemote); err != nil {
		return Result{}, err
	}
	ref, err := upstreamRef(ctx, repo)
	if err != nil {
		return Result{}, err
	}
	res.UpstreamRef = ref

	before, hasHead, err := repo.LatestCommitHash(ctx)
	if err != nil {
		return res, err
	}
	mergeBase := ""
	if hasHead {
		upstreamHead, _, err := repo.ResolveRef(ctx, ref)
		if err != nil {
			return res, err
		}
		base, found, err := repo.MergeBase(ctx, "HEAD", ref)
		if err != nil {
			return res, err
		}
		if found {
			if base == upstreamHead {
				klog.V(3).Infof("%s already contains %s", repo.Dir, ref)
				return res, nil
			}
			mergeBase = base
		}
	}

	if opts.Confirm != nil && !opts.Confirm(ctx, ref) {
		res.Conflict = AbortedByUser
		return res, nil
	}

	mergeErr := repo.Merge(ctx, ref, true)
	if mergeErr != nil && gitutil.ErrorType(mergeErr) != gitutil.MergeConflict {
		if inProgress, _ := repo.MergeInProgress(ctx); inProgress {
			return res, abortMerge(ctx, repo, mergeErr)
		}
		return res, mergeErr
	}

	if mergeErr != nil {
		conflicts, err := repo.ConflictedFiles(ctx)
		if err != nil {
			return res, abortMerge(ctx, repo, err)
		}
		for _, c := range conflicts {
			res.Conflicts = append(res.Conflicts, c.Path)
		}
		if !opts.AutoResolve {
			return e.abort(ctx, repo, res)
		}
		if err := resolve(ctx, opts, conflicts, mergeBase); err != nil {
			klog.V(2).Infof("automatic resolution in %s failed: %v", repo.Dir, err)
			return e.abort(ctx, repo, res)
		}
		if err := repo.CommitMerge(ctx); err != nil {
			klog.V(2).Infof("committing resolved merge in %s failed: %v", repo.Dir, err)
			return e.abort(ctx, repo, res)
		}
		res.Conflict = AutoResolved
	}

	after, _, err := repo.LatestCommitHash(ctx)
	if err != nil {
		return res, err
	}
	res.Updated = after != before
	return res, nil
}

func resolve(ctx context.Context, opts Options, conflicts []gitutil.Conflict, mergeBase string) error {
	policy := opts.Policy
	if policy == "" {
		policy = DefaultPolicy
	}
	r, err := ResolverFor(policy)
	if err != nil {
		return err
	}
	return r.Resolve(ctx, ResolveOptions{
		Repo:      opts.Repo,
		Conflicts: conflicts,
		MergeBase: mergeBase,
		MergeTool: opts.MergeTool,
	})
}

func (e *Engine) abort(ctx context.Context, repo *gitutil.GitLocalRunner, res Result) (Result, error) {
	if err := repo.MergeAbort(ctx); err != nil {
		return res, err
	}
	res.Conflict = Unresolved
	res.Updated = false
	return res, nil
}

// abortMerge aborts the merge that cause interrupted. If the abort fails
// too, both failures are reported since the working tree may still hold a
// partial merge.
func abortMerge(ctx context.Context, repo *gitutil.GitLocalRunner, cause error) error {
	abortErr := repo.MergeAbort(ctx)
	if abortErr == nil {
		return cause
	}
	klog.Warningf("unable to abort the merge in %s: %v", repo.Dir, abortErr)
	return fmt.Errorf("%w (aborting the merge also failed: %v)", cause, abortErr)
}

// pullOrigin fast-forwards branch to its counterpart on origin. When both
// sides have commits of their own nothing is merged and the origin ref is
// returned so the caller can report it.
func pullOrigin(ctx context.Context, repo *gitutil.GitLocalRunner, branch string) (string, error) {
	ref := OriginRemote + "/" + branch
	remoteHead, exists, err := repo.ResolveRef(ctx, "refs/remotes/"+ref)
	if err != nil || !exists {
		return "", err
	}
	localHead, hasHead, err := repo.LatestCommitHash(ctx)
	if err != nil {
		return "", err
	}
	if hasHead {
		base, found, err := repo.MergeBase(ctx, "HEAD", ref)
		if err != nil {
			return "", err
		}
		switch {
		case found && base == remoteHead:
			return "", nil
		case !found || base != localHead:
			klog.V(2).Infof("%s and %s have diverged in %s", branch, ref, repo.Dir)
			return ref, nil
		}
	}
	return "", repo.PullFastForward(ctx, OriginRemote, branch)
}

// upstreamRef returns the remote tracking ref of the default branch of
// upstream, falling back to main and then master.
func upstreamRef(ctx context.Context, repo *gitutil.GitLocalRunner) (string, error) {
	if branch, err := repo.DefaultBranch(ctx, UpstreamRemote); err == nil {
		ref := UpstreamRemote + "/" + branch
		if exists, err := repo.RefExists(ctx, "refs/remotes/"+ref); err == nil && exists {
			return ref, nil
		}
	} else {
		klog.V(3).Infof("unable to detect default branch of %s: %v", UpstreamRemote, err)
	}
	for _, b := range []string{"main", "master"} {
		ref := UpstreamRemote + "/" + b
		exists, err := repo.RefExists(ctx, "refs/remotes/"+ref)
		if err != nil {
			return "", err
		}
		if exists {
			return ref, nil
		}
	}
	return "", errors.E(errors.Git, fmt.Errorf("no default branch found on %s", UpstreamRemote))
}
