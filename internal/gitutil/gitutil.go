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

// Package gitutil wraps the git binary and exposes the porcelain operations
// used for assignment repositories as typed methods.
package gitutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/types"
	"k8s.io/klog/v2"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 2 * time.Minute

// envConfigMinVersion is the first git release reading configuration from
// GIT_CONFIG_COUNT/GIT_CONFIG_KEY_n/GIT_CONFIG_VALUE_n.
var envConfigMinVersion = semver.MustParse("2.31.0")

// NewLocalGitRunner returns a new GitLocalRunner for the repository at dir.
func NewLocalGitRunner(dir string) (*GitLocalRunner, error) {
	const op errors.Op = "gitutil.NewLocalGitRunner"
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, errors.E(op, errors.Git, &GitExecError{
			Type: GitExecutableNotFound,
			Err:  fmt.Errorf("no 'git' program on path: %w", err),
		})
	}

	return &GitLocalRunner{
		gitPath: p,
		Dir:     dir,
		Timeout: DefaultTimeout,
	}, nil
}

// GitLocalRunner runs git commands in a local git repo.
type GitLocalRunner struct {
	// Path to the git executable.
	gitPath string

	// Dir is the directory the commands are run in.
	Dir string

	// Timeout bounds each command. Zero means no timeout.
	Timeout time.Duration

	// token authenticates requests to tokenScope, and only there, for the
	// duration of a single command. It is never written to disk.
	token      string
	tokenScope string
}

// WithToken returns a copy of the runner that authenticates requests to
// the HTTP(S) origin of remoteURL with token. Requests to any other host,
// such as an upstream remote, carry no credentials. Tokens for non-HTTP
// remotes are ignored.
func (g *GitLocalRunner) WithToken(remoteURL, token string) *GitLocalRunner {
	cp := *g
	cp.token, cp.tokenScope = "", ""
	if scope := authScope(remoteURL); scope != "" && token != "" {
		cp.token, cp.tokenScope = token, scope
	}
	return &cp
}

// WithDir returns a copy of the runner targeting dir.
func (g *GitLocalRunner) WithDir(dir string) *GitLocalRunner {
	cp := *g
	cp.Dir = dir
	return &cp
}

type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs a git command.
// Omit the 'git' part of the command.
func (g *GitLocalRunner) Run(ctx context.Context, args ...string) (RunResult, error) {
	const op errors.Op = "gitutil.run"

	// A started git command runs to completion or until its timeout, even
	// if the caller gives up.
	ctx = context.WithoutCancel(ctx)
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	fullArgs := args
	env := append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if g.token != "" {
		authEnv, authArgs := credentialConfig(g.tokenScope, g.token, supportsEnvConfig(g.gitPath))
		env = append(env, authEnv...)
		fullArgs = append(authArgs, args...)
	}

	cmd := exec.CommandContext(ctx, g.gitPath, fullArgs...)
	cmd.Dir = g.Dir
	cmd.Env = env

	cmdStdout := &bytes.Buffer{}
	cmdStderr := &bytes.Buffer{}
	cmd.Stdout = cmdStdout
	cmd.Stderr = cmdStderr

	secrets := []string{g.token}
	if g.token != "" {
		secrets = append(secrets, base64.StdEncoding.EncodeToString([]byte("oauth2:"+g.token)))
	}
	safeArgs := RedactArgs(args, secrets...)
	klog.V(4).Infof("git %s (in %s)", strings.Join(safeArgs, " "), g.Dir)

	err := cmd.Run()
	if err != nil {
		stdout := Redact(cmdStdout.String(), secrets...)
		stderr := Redact(cmdStderr.String(), secrets...)
		execErr := &GitExecError{
			Type:   determineErrorType(stdout, stderr),
			Args:   safeArgs,
			Err:    err,
			StdOut: stdout,
			StdErr: stderr,
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			execErr.ExitCode = exitErr.ExitCode()
		}
		kind := errors.Git
		if ctx.Err() == context.DeadlineExceeded {
			execErr.Type = Timeout
			kind = errors.Timeout
		}
		klog.V(4).Infof("git %s failed: %s", strings.Join(safeArgs, " "), execErr.Error())
		return RunResult{}, errors.E(op, kind, types.UniquePath(g.Dir), execErr)
	}
	return RunResult{
		Stdout: cmdStdout.String(),
		Stderr: cmdStderr.String(),
	}, nil
}

// authHeader builds a basic authorization header understood by GitLab and
// GitHub for personal and project access tokens.
func authHeader(token string) string {
	return "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("oauth2:"+token))
}

// TokenEnv carries the token to the credential helper used with git
// releases that cannot read configuration from the environment.
const TokenEnv = "COURSEWORK_GIT_TOKEN"

// credentialHelper answers git credential "get" requests with the token
// found in TokenEnv.
const credentialHelper = `!f() { test "$1" = get && printf 'username=oauth2\npassword=%s\n' "$` + TokenEnv + `"; }; f`

// authScope returns the URL prefix git matches per-host http and
// credential settings against, e.g. "https://gitlab.example.com/". It
// is empty for remotes that are not HTTP(S).
func authScope(remoteURL string) string {
	origin := Origin(remoteURL)
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		return ""
	}
	return origin + "/"
}

// credentialConfig returns the environment and leading arguments that
// make git authenticate requests below scope with token. The token is
// never part of the arguments, so it does not show up in process
// listings.
func credentialConfig(scope, token string, envConfig bool) (env []string, args []string) {
	if envConfig {
		return []string{
			"GIT_CONFIG_COUNT=1",
			"GIT_CONFIG_KEY_0=http." + scope + ".extraHeader",
			"GIT_CONFIG_VALUE_0=" + authHeader(token),
		}, nil
	}
	// The empty value drops helpers configured for scope elsewhere.
	return []string{TokenEnv + "=" + token}, []string{
		"-c", "credential." + scope + ".helper=",
		"-c", "credential." + scope + ".helper=" + credentialHelper,
	}
}

var (
	versionMu    sync.Mutex
	versionCache = map[string]*semver.Version{}
	versionRe    = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)
)

// Version returns the version of the git executable at gitPath. The result
// is cached per executable.
func Version(gitPath string) (*semver.Version, error) {
	versionMu.Lock()
	defer versionMu.Unlock()
	if v, found := versionCache[gitPath]; found {
		return v, nil
	}
	out, err := exec.Command(gitPath, "version").Output()
	if err != nil {
		return nil, err
	}
	v, err := parseVersion(string(out))
	if err != nil {
		return nil, err
	}
	versionCache[gitPath] = v
	return v, nil
}

// parseVersion extracts the version from `git version` output such as
// "git version 2.39.3 (Apple Git-145)" or "git version 2.45.1.windows.1".
func parseVersion(out string) (*semver.Version, error) {
	match := versionRe.FindString(out)
	if match == "" {
		return nil, fmt.Errorf("unexpected output from git version: %q", out)
	}
	return semver.NewVersion(match)
}

func supportsEnvConfig(gitPath string) bool {
	v, err := Version(gitPath)
	if err != nil {
		klog.Warningf("unable to determine git version: %v", err)
		return false
	}
	return !v.LessThan(envConfigMinVersion)
}

// Clone clones url into dir. The token, if any, is only used for this
// command; the stored origin URL is url with any credentials removed.
func Clone(ctx context.Context, url, dir, token string) (*GitLocalRunner, error) {
	const op errors.Op = "gitutil.Clone"
	cleanURL := StripCredentials(url)
	runner, err := NewLocalGitRunner("")
	if err != nil {
		return nil, errors.E(op, err)
	}
	if _, err := runner.WithToken(cleanURL, token).Run(ctx, "clone", "--", cleanURL, dir); err != nil {
		AmendGitExecError(err, func(e *GitExecError) {
			e.Repo = Redact(cleanURL)
		})
		return nil, errors.E(op, types.UniquePath(dir), errors.Repo(Redact(cleanURL)), err)
	}
	return runner.WithDir(dir).WithToken(cleanURL, token), nil
}
