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

// Package provision makes sure every assignment has a correctly configured
// local clone, and keeps track of where assignments live on disk.
package provision

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kptdev/coursework/internal/backend"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/forkupdate"
	"github.com/kptdev/coursework/internal/gitutil"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/types"
	"github.com/kptdev/coursework/internal/util/pathutil"
	kptstrings "github.com/kptdev/coursework/internal/util/strings"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

// Assignment describes one course content that lives in a repository.
type Assignment struct {
	CourseID    string `yaml:"courseID"`
	CourseTitle string `yaml:"courseTitle,omitempty"`
	ContentID   string `yaml:"contentID"`
	Title       string `yaml:"title,omitempty"`
	// Directory is the assignment directory relative to the repository root.
	Directory         string `yaml:"directory,omitempty"`
	SubmissionGroupID string `yaml:"submissionGroupID,omitempty"`
	CloneURL          string `yaml:"cloneURL"`
	UpstreamURL       string `yaml:"upstreamURL,omitempty"`
}

// AssignmentsFromContents returns the assignments of course that have a
// submission group with a repository.
func AssignmentsFromContents(course backend.Course, contents []backend.CourseContent) []Assignment {
	var out []Assignment
	for _, c := range contents {
		sg := c.SubmissionGroup
		if sg == nil || sg.Repository == nil || sg.Repository.CloneURL == "" {
			continue
		}
		out = append(out, Assignment{
			CourseID:          course.ID,
			CourseTitle:       course.Title,
			ContentID:         c.ID,
			Title:             c.Title,
			Directory:         c.Directory,
			SubmissionGroupID: sg.ID,
			CloneURL:          sg.Repository.CloneURL,
			UpstreamURL:       sg.Repository.UpstreamURL,
		})
	}
	return out
}

// Restriction is a set of course ids. An empty Restriction allows all.
type Restriction map[string]bool

// NewRestriction returns a Restriction allowing courseIDs.
func NewRestriction(courseIDs ...string) Restriction {
	r := Restriction{}
	for _, id := range courseIDs {
		r[id] = true
	}
	return r
}

// Allows reports whether courseID may be provisioned now.
func (r Restriction) Allows(courseID string) bool {
	return len(r) == 0 || r[courseID]
}

// RepoReport is the outcome for a single repository.
type RepoReport struct {
	CourseID string
	Path     string
	CloneURL string
	Cloned   bool
	Deferred bool
	Pushed   bool
	Update   forkupdate.Result
	Warnings []string
	Err      error
}

// Report is the outcome of Ensure.
type Report struct {
	Repositories []RepoReport
}

// Warnings returns all warnings, prefixed with the repository path.
func (r Report) Warnings() []string {
	var out []string
	for _, repo := range r.Repositories {
		for _, w := range repo.Warnings {
			out = append(out, fmt.Sprintf("%s: %s", repo.Path, w))
		}
	}
	return out
}

// Failed returns the repositories that could not be provisioned.
func (r Report) Failed() []RepoReport {
	var out []RepoReport
	for _, repo := range r.Repositories {
		if repo.Err != nil {
			out = append(out, repo)
		}
	}
	return out
}

// Options configures a Manager.
type Options struct {
	// Workspace is the directory repositories are cloned into.
	Workspace string

	Tokens TokenSource

	// Engine defaults to forkupdate.NewEngine().
	Engine *forkupdate.Engine

	AutoResolve bool
	Policy      forkupdate.PolicyType
	MergeTool   string

	// Confirm is passed to the fork-update engine.
	Confirm func(ctx context.Context, upstreamRef string) bool

	// GitTimeout overrides the per-command git timeout.
	GitTimeout time.Duration
}

// Manager provisions repositories. It is safe for concurrent use.
type Manager struct {
	opts      Options
	indexPath string

	mu     sync.Mutex
	index  *Index
	tokens map[string]string

	group singleflight.Group
}

// NewManager loads the workspace index and returns a Manager.
func NewManager(opts Options) (*Manager, error) {
	const op errors.Op = "provision.NewManager"
	if opts.Workspace == "" {
		return nil, errors.E(op, errors.MissingParam, "workspace must be provided")
	}
	ws, err := types.NewUniquePath(opts.Workspace)
	if err != nil {
		return nil, errors.E(op, errors.InvalidParam, err)
	}
	opts.Workspace = ws.String()
	if opts.Engine == nil {
		opts.Engine = forkupdate.NewEngine()
	}
	if opts.Tokens == nil {
		opts.Tokens = StoreTokenSource{}
	}
	indexPath := IndexPath(opts.Workspace)
	idx, err := LoadIndex(indexPath)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return &Manager{
		opts:      opts,
		indexPath: indexPath,
		index:     idx,
		tokens:    map[string]string{},
	}, nil
}

// RepositoryPath returns the local directory used for the repository of a.
func (m *Manager) RepositoryPath(a Assignment) string {
	return filepath.Join(m.opts.Workspace,
		kptstrings.Slug(a.CourseTitle, kptstrings.Slug(a.CourseID, "course")),
		kptstrings.Slug(repositoryName(a.CloneURL), "repository"))
}

func repositoryName(cloneURL string) string {
	p := cloneURL
	if u, err := url.Parse(cloneURL); err == nil && u.Scheme != "" {
		p = u.Path
	} else if i := strings.LastIndex(cloneURL, ":"); i >= 0 {
		p = cloneURL[i+1:]
	}
	return strings.TrimSuffix(path.Base(strings.TrimSuffix(p, "/")), ".git")
}

type repoGroup struct {
	path        string
	courseID    string
	cloneURL    string
	upstreamURL string
	assignments []Assignment
}

// Ensure clones missing repositories, configures remotes, and merges
// upstream changes. Repositories of courses outside restriction are only
// recorded in the index and provisioned on first use by EnsureCourse or
// EnsureAssignment. Failures of single repositories are reported in the
// Report, not returned.
func (m *Manager) Ensure(ctx context.Context, assignments []Assignment, restriction Restriction) (Report, error) {
	const op errors.Op = "provision.Ensure"

	var groups []*repoGroup
	byPath := map[string]*repoGroup{}
	for _, a := range assignments {
		p := m.RepositoryPath(a)
		g, found := byPath[p]
		if !found {
			g = &repoGroup{
				path:        p,
				courseID:    a.CourseID,
				cloneURL:    gitutil.StripCredentials(a.CloneURL),
				upstreamURL: gitutil.StripCredentials(a.UpstreamURL),
			}
			byPath[p] = g
			groups = append(groups, g)
		}
		g.assignments = append(g.assignments, a)
	}

	var report Report
	deferred := map[string][]Assignment{}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, errors.E(op, err)
		}
		if !restriction.Allows(g.courseID) {
			for _, a := range g.assignments {
				a.CloneURL, a.UpstreamURL = g.cloneURL, g.upstreamURL
				deferred[g.courseID] = append(deferred[g.courseID], a)
			}
			report.Repositories = append(report.Repositories, RepoReport{
				CourseID: g.courseID,
				Path:     g.path,
				CloneURL: g.cloneURL,
				Deferred: true,
			})
			continue
		}

		printer.Progressf(ctx, "syncing %s", g.path)
		rr := m.ensureRepository(ctx, g)
		report.Repositories = append(report.Repositories, rr)
		if rr.Err != nil {
			klog.Warningf("provisioning %s failed: %v", g.path, rr.Err)
			continue
		}
		m.record(g)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for courseID, assignments := range deferred {
		m.index.Deferred[courseID] = assignments
	}
	if err := m.index.Save(m.indexPath); err != nil {
		return report, errors.E(op, err)
	}
	return report, nil
}

// record stores g as provisioned. Callers must not hold m.mu.
func (m *Manager) record(g *repoGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []Assignment
	for _, a := range m.index.Deferred[g.courseID] {
		if m.RepositoryPath(a) != g.path {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		delete(m.index.Deferred, g.courseID)
	} else {
		m.index.Deferred[g.courseID] = pending
	}
	m.index.PutRepository(RepositoryEntry{
		CourseID:    g.courseID,
		Path:        g.path,
		CloneURL:    g.cloneURL,
		UpstreamURL: g.upstreamURL,
	})
	for _, a := range g.assignments {
		m.index.Assignments[a.ContentID] = AssignmentEntry{
			CourseID:          a.CourseID,
			Title:             a.Title,
			SubmissionGroupID: a.SubmissionGroupID,
			Repository:        g.path,
			Directory:         a.Directory,
		}
	}
}

func (m *Manager) ensureRepository(ctx context.Context, g *repoGroup) RepoReport {
	const op errors.Op = "provision.ensureRepository"
	rr := RepoReport{CourseID: g.courseID, Path: g.path, CloneURL: g.cloneURL}
	fail := func(err error) RepoReport {
		rr.Err = errors.E(op, types.UniquePath(g.path), err)
		return rr
	}

	token, err := m.opts.Tokens.Token(ctx, gitutil.Origin(g.cloneURL))
	if err != nil {
		return fail(err)
	}

	var repo *gitutil.GitLocalRunner
	switch {
	case !pathutil.Exists(g.path):
		printer.Progressf(ctx, "cloning %s", g.cloneURL)
		repo, err = gitutil.Clone(ctx, g.cloneURL, g.path, token)
		if err != nil {
			return fail(err)
		}
		rr.Cloned = true
	case gitutil.IsRepoRoot(g.path):
		repo, err = gitutil.NewLocalGitRunner(g.path)
		if err != nil {
			return fail(err)
		}
	default:
		return fail(errors.E(errors.Exist, fmt.Errorf("%s exists and is not a git repository", g.path)))
	}
	repo = repo.WithToken(g.cloneURL, token)
	if m.opts.GitTimeout > 0 {
		repo.Timeout = m.opts.GitTimeout
	}

	if err := sanitizeRemotes(ctx, repo); err != nil {
		return fail(err)
	}
	if g.upstreamURL != "" {
		if err := setRemote(ctx, repo, forkupdate.UpstreamRemote, g.upstreamURL); err != nil {
			return fail(err)
		}
	}

	m.mu.Lock()
	m.tokens[g.path] = token
	m.mu.Unlock()

	err = m.update(ctx, &rr, forkupdate.Options{
		Repo:        repo,
		AutoResolve: m.opts.AutoResolve,
		Policy:      m.opts.Policy,
		MergeTool:   m.opts.MergeTool,
		Confirm:     m.opts.Confirm,
	})
	if err != nil {
		rr.Warnings = append(rr.Warnings, fmt.Sprintf("updating from upstream failed: %v", err))
	}
	return rr
}

// ForkUpdate runs the fork-update engine on the repository containing path
// and pushes the merge result to origin. opts.Repo is replaced by the
// Manager's runner and a nil opts.Confirm falls back to the Manager's.
func (m *Manager) ForkUpdate(ctx context.Context, path string, opts forkupdate.Options) (RepoReport, error) {
	const op errors.Op = "provision.ForkUpdate"
	repo, err := m.Runner(ctx, path)
	if err != nil {
		return RepoReport{Path: path}, errors.E(op, err)
	}
	rr := RepoReport{Path: repo.Dir}
	m.mu.Lock()
	if entry, found := m.index.Repository(repo.Dir); found {
		rr.CourseID = entry.CourseID
		rr.CloneURL = entry.CloneURL
	}
	m.mu.Unlock()

	if err := sanitizeRemotes(ctx, repo); err != nil {
		return rr, errors.E(op, types.UniquePath(repo.Dir), err)
	}
	opts.Repo = repo
	if opts.Confirm == nil {
		opts.Confirm = m.opts.Confirm
	}
	if err := m.update(ctx, &rr, opts); err != nil {
		rr.Err = errors.E(op, types.UniquePath(repo.Dir), err)
		return rr, rr.Err
	}
	return rr, nil
}

// update merges upstream into the repository of opts and pushes the
// result. Outcomes that need the user's attention end up in rr.Warnings.
func (m *Manager) update(ctx context.Context, rr *RepoReport, opts forkupdate.Options) error {
	res, err := m.opts.Engine.Update(ctx, opts)
	rr.Update = res
	if err != nil {
		return err
	}
	switch res.Conflict {
	case forkupdate.Unresolved:
		rr.Warnings = append(rr.Warnings, fmt.Sprintf(
			"upstream changes conflict with local changes in %s; merge %s manually",
			strings.Join(res.Conflicts, ", "), res.UpstreamRef))
	case forkupdate.AbortedByUser:
		rr.Warnings = append(rr.Warnings, fmt.Sprintf("merge of %s skipped", res.UpstreamRef))
	}
	if res.Diverged != "" {
		rr.Warnings = append(rr.Warnings, fmt.Sprintf(
			"local commits and %s have diverged; pull and merge them manually", res.Diverged))
	}
	if res.StashKept != "" {
		rr.Warnings = append(rr.Warnings, fmt.Sprintf(
			"local changes could not be reapplied after the update and are kept in %s", res.StashKept))
	}

	if res.Updated {
		if err := pushCurrentBranch(ctx, opts.Repo); err != nil {
			rr.Warnings = append(rr.Warnings, fmt.Sprintf("pushing the update to origin failed: %v", err))
		} else {
			rr.Pushed = true
		}
	}
	return nil
}

// sanitizeRemotes removes credentials embedded in any remote URL.
func sanitizeRemotes(ctx context.Context, repo *gitutil.GitLocalRunner) error {
	remotes, err := repo.Remotes(ctx)
	if err != nil {
		return err
	}
	for _, r := range remotes {
		if !gitutil.HasCredentials(r.URL) {
			continue
		}
		klog.V(2).Infof("removing credentials from remote %s of %s", r.Name, repo.Dir)
		if err := repo.SetRemoteURL(ctx, r.Name, gitutil.StripCredentials(r.URL)); err != nil {
			return err
		}
	}
	return nil
}

func setRemote(ctx context.Context, repo *gitutil.GitLocalRunner, name, u string) error {
	current, found, err := repo.RemoteURL(ctx, name)
	if err != nil {
		return err
	}
	switch {
	case !found:
		return repo.AddRemote(ctx, name, u)
	case current != u:
		return repo.SetRemoteURL(ctx, name, u)
	}
	return nil
}

func pushCurrentBranch(ctx context.Context, repo *gitutil.GitLocalRunner) error {
	branch, found, err := repo.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("HEAD is detached")
	}
	hasUpstream, err := repo.HasUpstream(ctx, branch)
	if err != nil {
		return err
	}
	if hasUpstream {
		return repo.Push(ctx, forkupdate.OriginRemote, branch)
	}
	return repo.PushSetUpstream(ctx, forkupdate.OriginRemote, branch)
}

// EnsureCourse provisions the repositories of a course that an earlier
// Ensure deferred, in this or an earlier process. Concurrent calls for the
// same course share one run. Repositories that fail stay deferred.
func (m *Manager) EnsureCourse(ctx context.Context, courseID string) (Report, error) {
	v, err, shared := m.group.Do(courseID, func() (interface{}, error) {
		m.mu.Lock()
		assignments := append([]Assignment(nil), m.index.Deferred[courseID]...)
		m.mu.Unlock()
		if len(assignments) == 0 {
			return Report{}, nil
		}
		return m.Ensure(ctx, assignments, nil)
	})
	klog.V(4).Infof("EnsureCourse(%s) shared=%t", courseID, shared)
	report, _ := v.(Report)
	return report, err
}

// EnsureAssignment provisions the deferred course holding the assignment
// contentID, or the repository dir lies in, the first time one of them is
// used. It reports whether a course was provisioned; assignments that are
// already on disk or unknown are left alone.
func (m *Manager) EnsureAssignment(ctx context.Context, contentID, dir string) (bool, error) {
	const op errors.Op = "provision.EnsureAssignment"
	courseID, found := m.deferredCourse(contentID, dir)
	if !found {
		return false, nil
	}
	printer.Progressf(ctx, "provisioning course %s on first use", courseID)
	report, err := m.EnsureCourse(ctx, courseID)
	if err != nil {
		return false, errors.E(op, err)
	}
	if failed := report.Failed(); len(failed) > 0 {
		return false, errors.E(op, failed[0].Err)
	}
	return true, nil
}

// deferredCourse finds the deferred course with the assignment contentID,
// or with a repository containing dir.
func (m *Manager) deferredCourse(contentID, dir string) (string, bool) {
	var target types.UniquePath
	if dir != "" {
		if p, err := types.NewUniquePath(dir); err == nil {
			target = p
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for courseID, assignments := range m.index.Deferred {
		for _, a := range assignments {
			if contentID != "" && a.ContentID == contentID {
				return courseID, true
			}
			if target.Empty() {
				continue
			}
			if _, err := types.UniquePath(m.RepositoryPath(a)).Rel(target); err == nil {
				return courseID, true
			}
		}
	}
	return "", false
}

// DeferredCourses returns the ids of courses waiting to be provisioned.
func (m *Manager) DeferredCourses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.index.Deferred {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeferredRepositories returns the repositories that will be cloned on
// first use, sorted by path.
func (m *Manager) DeferredRepositories() []RepositoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []RepositoryEntry
	for courseID, assignments := range m.index.Deferred {
		for _, a := range assignments {
			p := m.RepositoryPath(a)
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, RepositoryEntry{
				CourseID:    courseID,
				Path:        p,
				CloneURL:    a.CloneURL,
				UpstreamURL: a.UpstreamURL,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Runner returns a git runner for the repository containing path, bound to
// the token for its origin.
func (m *Manager) Runner(ctx context.Context, path string) (*gitutil.GitLocalRunner, error) {
	const op errors.Op = "provision.Runner"
	root, err := gitutil.FindRepoRoot(path)
	if err != nil {
		return nil, errors.E(op, err)
	}
	repo, err := gitutil.NewLocalGitRunner(root.String())
	if err != nil {
		return nil, errors.E(op, err)
	}
	if m.opts.GitTimeout > 0 {
		repo.Timeout = m.opts.GitTimeout
	}

	originURL, _, err := repo.RemoteURL(ctx, forkupdate.OriginRemote)
	if err != nil {
		return nil, errors.E(op, err)
	}
	m.mu.Lock()
	token, bound := m.tokens[root.String()]
	m.mu.Unlock()
	if !bound {
		token, err = m.opts.Tokens.Token(ctx, gitutil.Origin(originURL))
		if err != nil {
			return nil, errors.E(op, err)
		}
		m.mu.Lock()
		m.tokens[root.String()] = token
		m.mu.Unlock()
	}
	return repo.WithToken(originURL, token), nil
}

// RefreshRepositoryAuth re-resolves the token for the origin of the
// repository containing path, removes credentials stored in the origin
// URL and binds the token to subsequent Runner calls. It returns true if
// there is anything new to retry with.
func (m *Manager) RefreshRepositoryAuth(ctx context.Context, path string) (bool, error) {
	const op errors.Op = "provision.RefreshRepositoryAuth"
	root, err := gitutil.FindRepoRoot(path)
	if err != nil {
		return false, errors.E(op, err)
	}
	repo, err := gitutil.NewLocalGitRunner(root.String())
	if err != nil {
		return false, errors.E(op, err)
	}
	u, found, err := repo.RemoteURL(ctx, forkupdate.OriginRemote)
	if err != nil {
		return false, errors.E(op, root, err)
	}
	if !found {
		return false, nil
	}

	stripped := false
	if gitutil.HasCredentials(u) {
		u = gitutil.StripCredentials(u)
		if err := repo.SetRemoteURL(ctx, forkupdate.OriginRemote, u); err != nil {
			return false, errors.E(op, root, err)
		}
		stripped = true
	}

	token, err := m.opts.Tokens.Token(ctx, gitutil.Origin(u))
	if err != nil {
		return false, errors.E(op, root, err)
	}
	m.mu.Lock()
	m.tokens[root.String()] = token
	m.mu.Unlock()
	klog.V(2).Infof("refreshed credentials for %s (token=%t, stripped=%t)", root, token != "", stripped)
	return token != "" || stripped, nil
}

// UpdateExistingRepositoryPaths reconciles the content to directory
// mapping of courseID with freshly fetched contents. New contents are
// added when their repository is known, changed directories are updated,
// and contents that no longer exist are dropped.
func (m *Manager) UpdateExistingRepositoryPaths(courseID string, contents []backend.CourseContent) error {
	const op errors.Op = "provision.UpdateExistingRepositoryPaths"
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	for _, c := range contents {
		seen[c.ID] = true
		entry, found := m.index.Assignments[c.ID]
		repoPath := ""
		if sg := c.SubmissionGroup; sg != nil && sg.Repository != nil {
			repoPath = m.repositoryFor(courseID, sg.Repository.CloneURL)
		}

		if !found {
			if repoPath == "" {
				continue
			}
			entry = AssignmentEntry{CourseID: courseID, Repository: repoPath}
		}
		entry.Title = c.Title
		entry.Directory = c.Directory
		if c.SubmissionGroup != nil {
			entry.SubmissionGroupID = c.SubmissionGroup.ID
		}
		if !pathutil.IsDir(entry.Repository) && repoPath != "" {
			entry.Repository = repoPath
		}
		if !pathutil.IsDir(entry.Path()) {
			klog.V(2).Infof("directory of %s (%s) does not exist", c.ID, entry.Path())
		}
		m.index.Assignments[c.ID] = entry
	}

	for id, entry := range m.index.Assignments {
		if entry.CourseID == courseID && !seen[id] {
			delete(m.index.Assignments, id)
		}
	}

	if err := m.index.Save(m.indexPath); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// repositoryFor returns the path of the known repository of courseID with
// the given clone URL. Callers hold m.mu.
func (m *Manager) repositoryFor(courseID, cloneURL string) string {
	clean := gitutil.StripCredentials(cloneURL)
	for _, r := range m.index.Repositories {
		if r.CourseID == courseID && r.CloneURL == clean {
			return r.Path
		}
	}
	return ""
}

// Assignment returns the index entry of contentID.
func (m *Manager) Assignment(contentID string) (AssignmentEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, found := m.index.Assignments[contentID]
	return entry, found
}

// AssignmentPath returns the directory of contentID.
func (m *Manager) AssignmentPath(contentID string) (string, bool) {
	entry, found := m.Assignment(contentID)
	if !found {
		return "", false
	}
	return entry.Path(), true
}

// AssignmentForPath returns the content id and entry whose directory is
// dir.
func (m *Manager) AssignmentForPath(dir string) (string, AssignmentEntry, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", AssignmentEntry{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.index.Assignments {
		if filepath.Clean(entry.Path()) == filepath.Clean(abs) {
			return id, entry, true
		}
	}
	return "", AssignmentEntry{}, false
}

// Repositories returns the provisioned repositories, sorted by path.
func (m *Manager) Repositories() []RepositoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]RepositoryEntry{}, m.index.Repositories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Assignments returns the content ids and entries of a repository, sorted
// by directory.
func (m *Manager) Assignments(repoPath string) []AssignmentEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AssignmentEntry
	for _, entry := range m.index.Assignments {
		if entry.Repository == repoPath {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Directory < out[j].Directory })
	return out
}
