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

// Package submission turns local work on an assignment into pushed git
// history and exactly one matching submission artifact on the backend.
package submission

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kptdev/coursework/internal/archive"
	"github.com/kptdev/coursework/internal/backend"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/gitutil"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/types"
	"github.com/kptdev/coursework/internal/util/pathutil"
	"k8s.io/klog/v2"
)

// Outcome describes how the backend state was reached.
type Outcome string

const (
	// AlreadySubmitted means a submitted artifact for the commit existed.
	AlreadySubmitted Outcome = "already-submitted"
	// AlreadyTested means a test artifact for the commit existed.
	AlreadyTested Outcome = "already-tested"
	// Promoted means an existing test artifact was marked as submitted.
	Promoted Outcome = "promoted"
	// Created means a new artifact was uploaded.
	Created Outcome = "created"
)

// Request identifies the assignment to act on.
type Request struct {
	// Directory is the assignment directory.
	Directory string

	// Title is used in commit messages. Defaults to the directory name.
	Title string

	SubmissionGroupID string

	// ContentID is the course content the assignment belongs to. Optional;
	// used to refresh cached data after a successful submission.
	ContentID string
}

// DisplayTitle returns Title or the directory name.
func (r Request) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return filepath.Base(filepath.Clean(r.Directory))
}

// Result is what a successful run produced.
type Result struct {
	Outcome    Outcome
	Artifact   backend.Artifact
	CommitHash string
	// Committed is false when there was nothing to commit and the existing
	// HEAD was used.
	Committed bool
	// Content is the refreshed course content, if it could be fetched.
	Content *backend.CourseContent
}

// EditorHost saves unsaved editor buffers below a directory.
type EditorHost interface {
	SaveAll(ctx context.Context, dir string) error
}

// NoEditor is an EditorHost with nothing to save.
type NoEditor struct{}

func (NoEditor) SaveAll(context.Context, string) error { return nil }

// Repositories hands out authenticated git runners and refreshes their
// credentials. *provision.Manager implements it.
type Repositories interface {
	Runner(ctx context.Context, path string) (*gitutil.GitLocalRunner, error)
	RefreshRepositoryAuth(ctx context.Context, path string) (bool, error)
}

// Invalidator drops cached course contents.
type Invalidator interface {
	Invalidate(contentID string)
}

// Submitter runs the submission protocol. Construct it once and share it;
// it keeps track of in-flight submission groups and repository locks.
type Submitter struct {
	API   backend.API
	Repos Repositories

	// Editor defaults to NoEditor.
	Editor EditorHost

	// Cache is invalidated after a successful run. If nil and API
	// implements Invalidator, API is used.
	Cache Invalidator

	// Excludes are additional names left out of uploaded archives.
	Excludes []string

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	mu       sync.Mutex
	inflight map[string]bool
	repos    keyedMutex
}

// NewSubmitter returns a Submitter for api and repos.
func NewSubmitter(api backend.API, repos Repositories) *Submitter {
	return &Submitter{API: api, Repos: repos}
}

// Submit commits and pushes all changes of the repository and makes sure a
// submitted artifact exists for the resulting commit.
func (s *Submitter) Submit(ctx context.Context, req Request) (Result, error) {
	return s.Reconcile(ctx, req, true)
}

// Reconcile runs the protocol with submit as the desired artifact state.
// With submit false an existing artifact for the commit is left alone,
// whatever its state.
func (s *Submitter) Reconcile(ctx context.Context, req Request, submit bool) (Result, error) {
	const op errors.Op = "submission.Reconcile"
	if req.SubmissionGroupID == "" {
		return Result{}, errors.E(op, errors.NoSubmissionGroup, types.UniquePath(req.Directory),
			"the assignment has no submission group")
	}
	if err := s.acquire(req.SubmissionGroupID); err != nil {
		return Result{}, errors.E(op, err)
	}
	defer s.release(req.SubmissionGroupID)

	res, err := s.save(ctx, req, false, commitMessage(req.DisplayTitle(), s.now()))
	if err != nil {
		return res, errors.E(op, err)
	}

	printer.Progressf(ctx, "looking up artifacts for %s", gitutil.ShortHash(res.CommitHash))
	artifacts, err := s.API.ListSubmissionArtifacts(ctx, backend.ArtifactQuery{
		SubmissionGroupID: req.SubmissionGroupID,
		VersionIdentifier: res.CommitHash,
	})
	if err != nil {
		return res, errors.E(op, backend.WrapCall("listing submission artifacts", err))
	}
	existing, found := match(artifacts, req.SubmissionGroupID, res.CommitHash)

	switch {
	case found && (existing.Submit == submit || !submit):
		klog.V(2).Infof("artifact %s already exists for %s (submit=%t)", existing.ID, res.CommitHash, existing.Submit)
		res.Artifact = existing
		res.Outcome = AlreadyTested
		if existing.Submit {
			res.Outcome = AlreadySubmitted
		}
	case found:
		printer.Progressf(ctx, "marking artifact %s as submitted", existing.ID)
		updated, err := s.API.UpdateSubmission(ctx, existing.ID, backend.UpdateSubmission{Submit: submit})
		if err != nil {
			return res, errors.E(op, backend.WrapCall("updating artifact "+existing.ID, err))
		}
		res.Artifact = updated
		res.Outcome = Promoted
	default:
		a, err := archive.Package(req.Directory, archive.Options{Exclude: s.Excludes})
		if err != nil {
			return res, errors.E(op, err)
		}
		printer.Progressf(ctx, "uploading %s (%d bytes)", a.Filename, len(a.Bytes))
		created, err := s.API.CreateSubmission(ctx, backend.CreateSubmission{
			SubmissionGroupID: req.SubmissionGroupID,
			VersionIdentifier: res.CommitHash,
			Submit:            submit,
		}, a)
		if err != nil {
			return res, errors.E(op, backend.WrapCall("uploading artifact", err))
		}
		res.Artifact = created
		res.Outcome = Created
	}

	res.Content = s.refresh(ctx, req.ContentID)
	return res, nil
}

// Commit commits and pushes the changes below the assignment directory
// without touching the backend.
func (s *Submitter) Commit(ctx context.Context, req Request) (Result, error) {
	const op errors.Op = "submission.Commit"
	res, err := s.save(ctx, req, true, updateMessage(req.DisplayTitle(), s.now()))
	if err != nil {
		return res, errors.E(op, err)
	}
	return res, nil
}

// save runs the git half of the protocol: flush editors, stage, commit if
// needed, push, and read the commit hash.
func (s *Submitter) save(ctx context.Context, req Request, onlyDir bool, message string) (Result, error) {
	const op errors.Op = "submission.save"
	var res Result

	if !pathutil.IsDir(req.Directory) {
		return res, errors.E(op, errors.DirectoryNotFound, types.UniquePath(req.Directory),
			"the assignment directory does not exist")
	}
	root, err := gitutil.FindRepoRoot(req.Directory)
	if err != nil {
		return res, errors.E(op, errors.RepoRootNotFound, types.UniquePath(req.Directory), err)
	}

	unlock := s.repos.Lock(root.String())
	defer unlock()

	repo, err := s.Repos.Runner(ctx, root.String())
	if err != nil {
		return res, errors.E(op, err)
	}

	printer.Progressf(ctx, "saving open files")
	if err := s.editor().SaveAll(ctx, req.Directory); err != nil {
		return res, errors.E(op, fmt.Errorf("saving open editors: %w", err))
	}

	printer.Progressf(ctx, "staging changes")
	if onlyDir {
		dir, err := types.NewUniquePath(req.Directory)
		if err != nil {
			return res, errors.E(op, errors.IO, err)
		}
		rel, err := root.Rel(dir)
		if err != nil {
			return res, errors.E(op, errors.IO, dir, err)
		}
		if err := repo.StagePath(ctx, rel); err != nil {
			return res, errors.E(op, err)
		}
	} else if err := repo.StageAll(ctx); err != nil {
		return res, errors.E(op, err)
	}

	staged, err := repo.HasStagedFiles(ctx)
	if err != nil {
		return res, errors.E(op, err)
	}
	if staged {
		printer.Progressf(ctx, "committing")
		switch err := repo.Commit(ctx, message); {
		case err == nil:
			res.Committed = true
		case errors.Is(err, errors.NothingToCommit):
		default:
			return res, errors.E(op, err)
		}
	} else {
		klog.V(2).Infof("nothing staged in %s, using the current HEAD", root)
	}

	printer.Progressf(ctx, "pushing")
	if err := s.pushWithRetry(ctx, repo, root.String()); err != nil {
		return res, errors.E(op, err)
	}

	hash, found, err := repo.LatestCommitHash(ctx)
	if err != nil {
		return res, errors.E(op, errors.CommitHashUnavailable, err)
	}
	if !found || !gitutil.IsCommitHash(hash) {
		return res, errors.E(op, errors.CommitHashUnavailable, types.UniquePath(root),
			"the repository has no commit to submit")
	}
	res.CommitHash = hash
	return res, nil
}

// pushWithRetry pushes the current branch to origin. An authentication
// failure refreshes the credentials and retries exactly once.
func (s *Submitter) pushWithRetry(ctx context.Context, repo *gitutil.GitLocalRunner, root string) error {
	err := push(ctx, repo)
	if err == nil {
		return nil
	}
	if !gitutil.IsAuthError(err) {
		return errors.E(errors.PushFailed, err)
	}

	klog.V(2).Infof("push from %s was rejected, refreshing credentials", root)
	refreshed, rerr := s.Repos.RefreshRepositoryAuth(ctx, root)
	if rerr != nil {
		return errors.E(errors.PushAuthFailed, fmt.Errorf("%v (refreshing credentials failed: %v)", err, rerr))
	}
	if !refreshed {
		return errors.E(errors.PushAuthFailed, err)
	}
	repo, rerr = s.Repos.Runner(ctx, root)
	if rerr != nil {
		return errors.E(errors.PushAuthFailed, rerr)
	}

	if err := push(ctx, repo); err != nil {
		if gitutil.IsAuthError(err) {
			return errors.E(errors.PushAuthFailed, err)
		}
		return errors.E(errors.PushFailed, err)
	}
	return nil
}

func push(ctx context.Context, repo *gitutil.GitLocalRunner) error {
	branch, found, err := repo.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if !found {
		return errors.E(errors.Git, "HEAD is detached, check out a branch before submitting")
	}
	hasUpstream, err := repo.HasUpstream(ctx, branch)
	if err != nil {
		return err
	}
	if hasUpstream {
		return repo.Push(ctx, "origin", branch)
	}
	return repo.PushSetUpstream(ctx, "origin", branch)
}

// match returns the artifact for group and version. The backend filters
// already; the check guards against servers ignoring the query.
func match(artifacts []backend.Artifact, group, version string) (backend.Artifact, bool) {
	var candidate backend.Artifact
	found := false
	for _, a := range artifacts {
		if a.VersionIdentifier != version || (a.SubmissionGroupID != "" && a.SubmissionGroupID != group) {
			continue
		}
		// Prefer a submitted artifact if both kinds exist.
		if !found || (a.Submit && !candidate.Submit) {
			candidate, found = a, true
		}
	}
	return candidate, found
}

func (s *Submitter) refresh(ctx context.Context, contentID string) *backend.CourseContent {
	if contentID == "" {
		return nil
	}
	if inv := s.invalidator(); inv != nil {
		inv.Invalidate(contentID)
	}
	content, err := s.API.GetCourseContent(ctx, contentID)
	if err != nil {
		klog.Warningf("refreshing course content %s failed: %v", contentID, err)
		return nil
	}
	return &content
}

func (s *Submitter) invalidator() Invalidator {
	if s.Cache != nil {
		return s.Cache
	}
	if inv, ok := s.API.(Invalidator); ok {
		return inv
	}
	return nil
}

func (s *Submitter) editor() EditorHost {
	if s.Editor == nil {
		return NoEditor{}
	}
	return s.Editor
}

func (s *Submitter) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Submitter) acquire(group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == nil {
		s.inflight = map[string]bool{}
	}
	if s.inflight[group] {
		return errors.E(errors.Busy, fmt.Errorf("a submission for group %s is already in progress", group))
	}
	s.inflight[group] = true
	return nil
}

func (s *Submitter) release(group string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, group)
}

func commitMessage(title string, t time.Time) string {
	return fmt.Sprintf("Submit %s at %s", title, t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

func updateMessage(title string, t time.Time) string {
	return fmt.Sprintf("Update %s - %s", title, t.UTC().Format("2006-01-02 15:04:05"))
}

// keyedMutex serializes work per key. Entries are removed when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*keyedLock{}
	}
	l, found := k.locks[key]
	if !found {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		defer k.mu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
	}
}
