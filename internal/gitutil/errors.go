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
	"regexp"
	"strings"

	"github.com/kptdev/coursework/internal/errors"
)

type GitExecErrorType int

const (
	Unknown GitExecErrorType = iota
	GitExecutableNotFound
	NotARepository
	UnknownReference
	AuthenticationFailed
	RepositoryNotFound
	RepositoryUnavailable
	NothingToCommit
	MergeConflict
	Timeout
)

func (t GitExecErrorType) String() string {
	switch t {
	case GitExecutableNotFound:
		return "git executable not found"
	case NotARepository:
		return "not a git repository"
	case UnknownReference:
		return "unknown reference"
	case AuthenticationFailed:
		return "authentication failed"
	case RepositoryNotFound:
		return "repository not found"
	case RepositoryUnavailable:
		return "repository unavailable"
	case NothingToCommit:
		return "nothing to commit"
	case MergeConflict:
		return "merge conflict"
	case Timeout:
		return "timeout"
	}
	return "unknown"
}

// GitExecError is returned for every failed git invocation. Args, StdErr
// and StdOut are redacted before the error is constructed.
type GitExecError struct {
	Type     GitExecErrorType
	Args     []string
	Err      error
	ExitCode int
	Repo     string
	Ref      string
	StdErr   string
	StdOut   string
}

func (e *GitExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString(e.Err.Error())
	if s := strings.TrimSpace(e.StdErr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *GitExecError) Unwrap() error {
	return e.Err
}

// AmendGitExecError calls f with the *GitExecError wrapped by err, if any.
func AmendGitExecError(err error, f func(e *GitExecError)) {
	var gitExecErr *GitExecError
	if errors.As(err, &gitExecErr) {
		f(gitExecErr)
	}
}

// ErrorType returns the type of the *GitExecError wrapped by err, or
// Unknown if err does not wrap one.
func ErrorType(err error) GitExecErrorType {
	var gitExecErr *GitExecError
	if errors.As(err, &gitExecErr) {
		return gitExecErr.Type
	}
	return Unknown
}

// IsAuthError reports whether err is a git failure caused by missing or
// rejected credentials.
func IsAuthError(err error) bool {
	return ErrorType(err) == AuthenticationFailed
}

// authSignatures are matched case-insensitively against git's stderr.
// Git does not expose a structured failure reason, so this is the only
// signal available when the remote rejects our credentials.
var authSignatures = []string{
	"authentication",
	"credentials",
	"unauthorized",
	"could not read username",
	"could not read password",
}

// authStatusPattern matches HTTP auth status codes as whole words so that
// digits in temporary paths or hashes do not count.
var authStatusPattern = regexp.MustCompile(`\b40[13]\b`)

func determineErrorType(stdOut, stdErr string) GitExecErrorType {
	lower := strings.ToLower(stdErr)
	switch {
	case strings.Contains(lower, "not a git repository"):
		return NotARepository
	case strings.Contains(stdErr, "unknown revision or path not in the working tree"),
		strings.Contains(stdErr, "couldn't find remote ref"),
		strings.Contains(stdErr, "not something we can merge"):
		return UnknownReference
	case strings.Contains(stdOut, "CONFLICT"),
		strings.Contains(stdOut, "Automatic merge failed"):
		return MergeConflict
	case strings.Contains(stdOut, "nothing to commit"),
		strings.Contains(stdOut, "no changes added to commit"):
		return NothingToCommit
	case matches(`fatal: repository '.*' not found`, stdErr):
		return RepositoryNotFound
	case strings.Contains(stdErr, "Could not resolve host"),
		strings.Contains(stdErr, "Connection refused"),
		strings.Contains(stdErr, "Connection timed out"):
		return RepositoryUnavailable
	}
	for _, sig := range authSignatures {
		if strings.Contains(lower, sig) {
			return AuthenticationFailed
		}
	}
	if authStatusPattern.MatchString(stdErr) {
		return AuthenticationFailed
	}
	return Unknown
}

func matches(pattern, s string) bool {
	matched, err := regexp.MatchString(pattern, s)
	if err != nil {
		// This should only return an error if the pattern is invalid, so
		// we just panic if that happens.
		panic(err)
	}
	return matched
}
