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
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/shlex"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/gitutil"
	kptstrings "github.com/kptdev/coursework/internal/util/strings"
	"k8s.io/klog/v2"
)

// PolicyType names a conflict resolution policy.
type PolicyType string

const (
	// PreferLocal keeps the student's version of every file the student
	// changed since the merge base and takes upstream for the rest.
	PreferLocal PolicyType = "prefer-local"
	// KeepLocal keeps the student's version of every conflicted file.
	KeepLocal PolicyType = "keep-local"
	// UpstreamUntouchedOnly takes upstream for untouched files and gives up
	// on any conflict in a file the student changed.
	UpstreamUntouchedOnly PolicyType = "upstream-untouched-only"
	// ExternalTool runs a configured merge command for every conflicted file.
	ExternalTool PolicyType = "external-tool"
)

// DefaultPolicy is used when no policy is configured.
const DefaultPolicy = PreferLocal

// ResolveOptions is the input of a Resolver.
type ResolveOptions struct {
	// Repo is the repository with the merge in progress.
	Repo *gitutil.GitLocalRunner

	// Conflicts are the unmerged paths.
	Conflicts []gitutil.Conflict

	// MergeBase is the common ancestor of HEAD and the merged ref. It is
	// empty if the histories are unrelated.
	MergeBase string

	// MergeTool is the command line of the external merge tool.
	MergeTool string
}

// Resolver resolves every conflict of an in-progress merge or returns an
// error. A Resolver never commits; the caller does.
type Resolver interface {
	Resolve(ctx context.Context, opts ResolveOptions) error
}

var policies = map[PolicyType]func() Resolver{
	PreferLocal:           func() Resolver { return touchedResolver{touched: ours, untouched: theirs} },
	KeepLocal:             func() Resolver { return touchedResolver{touched: ours, untouched: ours} },
	UpstreamUntouchedOnly: func() Resolver { return touchedResolver{touched: fail, untouched: theirs} },
	ExternalTool:          func() Resolver { return toolResolver{} },
}

// Policies returns the names of all policies, sorted.
func Policies() []string {
	var names []string
	for p := range policies {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// ParsePolicy validates s. The empty string maps to DefaultPolicy.
func ParsePolicy(s string) (PolicyType, error) {
	const op errors.Op = "forkupdate.ParsePolicy"
	if s == "" {
		return DefaultPolicy, nil
	}
	p := PolicyType(s)
	if _, found := policies[p]; !found {
		return "", errors.E(op, errors.InvalidParam,
			fmt.Errorf("unknown conflict policy %q, must be one of %s", s, kptstrings.JoinStringsWithQuotes(Policies())))
	}
	return p, nil
}

// ResolverFor returns the Resolver of policy p.
func ResolverFor(p PolicyType) (Resolver, error) {
	const op errors.Op = "forkupdate.ResolverFor"
	f, found := policies[p]
	if !found {
		return nil, errors.E(op, errors.InvalidParam, fmt.Errorf("unknown conflict policy %q", p))
	}
	return f(), nil
}

type side int

const (
	ours side = iota
	theirs
	fail
)

// touchedResolver decides per file based on whether the student changed it
// since the merge base.
type touchedResolver struct {
	touched   side
	untouched side
}

func (r touchedResolver) Resolve(ctx context.Context, opts ResolveOptions) error {
	const op errors.Op = "forkupdate.Resolve"
	for _, c := range opts.Conflicts {
		touched := true
		if opts.MergeBase != "" {
			changed, err := opts.Repo.ChangedSince(ctx, opts.MergeBase, c.Path)
			if err != nil {
				return errors.E(op, err)
			}
			touched = changed
		}
		s := r.untouched
		if touched {
			s = r.touched
		}
		klog.V(3).Infof("conflict in %s: touched=%t", c.Path, touched)
		if err := take(ctx, opts.Repo, c, s); err != nil {
			return errors.E(op, err)
		}
	}
	return nil
}

func take(ctx context.Context, repo *gitutil.GitLocalRunner, c gitutil.Conflict, s side) error {
	switch s {
	case ours:
		if !c.Ours {
			return repo.RemovePath(ctx, c.Path)
		}
		return repo.CheckoutStage(ctx, c.Path, true)
	case theirs:
		if !c.Theirs {
			return repo.RemovePath(ctx, c.Path)
		}
		return repo.CheckoutStage(ctx, c.Path, false)
	}
	return fmt.Errorf("%s was changed locally and upstream", c.Path)
}

// toolResolver runs MergeTool once per conflicted file. The token $MERGED
// is replaced by the absolute path of the file; if absent the path is
// appended. The tool must leave the resolved content in place and exit 0.
type toolResolver struct{}

func (toolResolver) Resolve(ctx context.Context, opts ResolveOptions) error {
	const op errors.Op = "forkupdate.Resolve"
	argv, err := shlex.Split(opts.MergeTool)
	if err != nil {
		return errors.E(op, errors.InvalidParam, fmt.Errorf("parsing merge tool command: %w", err))
	}
	if len(argv) == 0 {
		return errors.E(op, errors.MissingParam, "no merge tool configured")
	}
	for _, c := range opts.Conflicts {
		merged := filepath.Join(opts.Repo.Dir, filepath.FromSlash(c.Path))
		args := make([]string, 0, len(argv))
		substituted := false
		for _, a := range argv[1:] {
			if strings.Contains(a, "$MERGED") {
				a = strings.ReplaceAll(a, "$MERGED", merged)
				substituted = true
			}
			args = append(args, a)
		}
		if !substituted {
			args = append(args, merged)
		}
		cmd := exec.CommandContext(ctx, argv[0], args...)
		cmd.Dir = opts.Repo.Dir
		if out, err := cmd.CombinedOutput(); err != nil {
			klog.V(2).Infof("merge tool output for %s: %s", c.Path, gitutil.Redact(string(out)))
			return errors.E(op, fmt.Errorf("merge tool failed for %s: %w", c.Path, err))
		}
		if err := opts.Repo.AddPath(ctx, c.Path); err != nil {
			return errors.E(op, err)
		}
	}
	return nil
}
