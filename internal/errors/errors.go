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

// Package errors defines the error handling used by the coursework codebase.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/kptdev/coursework/internal/types"
)

// Error is an implementation of the error interface used in the coursework
// codebase.
// It is based on the design in https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html
type Error struct {
	// Path is the path of the repository or assignment directory involved.
	Path types.UniquePath

	// Op is the operation being performed, for ex. submission.Submit
	Op Op

	// Kind refers to class of errors
	Kind Kind

	// Repo is the remote repository URL involved, if any. It must already
	// be redacted.
	Repo Repo

	// Err refers to wrapped error (if any)
	Err error
}

func (e *Error) Error() string {
	var fields []string
	if e.Op != "" {
		fields = append(fields, string(e.Op))
	}
	if e.Path != "" {
		fields = append(fields, "path "+string(e.Path))
	}
	if e.Repo != "" {
		fields = append(fields, "repo "+string(e.Repo))
	}
	if e.Kind != Other {
		fields = append(fields, e.Kind.String())
	}
	msg := strings.Join(fields, ": ")

	if e.Err != nil {
		sep, cause := ": ", e.Err.Error()
		// Nested *Error values go on their own indented line.
		if inner, ok := e.Err.(*Error); ok {
			sep = ":\n\t"
			if inner.Zero() {
				cause = ""
			}
		}
		msg = joinNonEmpty(msg, sep, cause)
	}
	if msg == "" {
		return "no error"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func joinNonEmpty(a, sep, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + sep + b
}

// Zero reports whether e carries no information at all.
func (e *Error) Zero() bool {
	return e.Op == "" && e.Path == "" && e.Repo == "" && e.Kind == Other && e.Err == nil
}

// dropShared clears the fields of e that repeat the ones of outer, so the
// printed chain mentions each of them once.
func (e *Error) dropShared(outer *Error) {
	if e.Path == outer.Path {
		e.Path = ""
	}
	if e.Op == outer.Op {
		e.Op = ""
	}
	if e.Repo == outer.Repo {
		e.Repo = ""
	}
	if e.Kind == outer.Kind {
		e.Kind = Other
	}
}

// Op describes the operation being performed.
type Op string

// Repo is the (redacted) URL of a remote repository.
type Repo string

// Kind describes the class of errors encountered.
type Kind int

const (
	Other        Kind = iota // Unclassified. Will not be printed.
	Exist                    // Item already exists.
	Internal                 // Internal error.
	InvalidParam             // Value is not valid.
	MissingParam             // Required value is missing or empty.
	Git                      // Errors from Git
	IO                       // Error doing IO operations
	Network                  // Transport level failure talking to a remote.
	Timeout                  // Operation exceeded its deadline.
	Busy                     // Another invocation holds the resource.

	DirectoryNotFound      // Assignment directory does not exist.
	NoSubmissionGroup      // Assignment has no submission group.
	RepoRootNotFound       // Directory is not inside a git repository.
	NothingToCommit        // Commit requested with an empty index.
	PushAuthFailed         // Push rejected for authentication, after retry.
	PushFailed             // Push failed for a non-auth reason.
	CommitHashUnavailable  // HEAD could not be resolved after push.
	ArchivePackagingFailed // Building the upload archive failed.
	BackendRejected        // Backend answered with a 4xx/5xx status.
)

var kindNames = map[Kind]string{
	Other:                  "other error",
	Exist:                  "item already exists",
	Internal:               "internal error",
	InvalidParam:           "invalid parameter value",
	MissingParam:           "missing parameter value",
	Git:                    "git error",
	IO:                     "IO error",
	Network:                "network error",
	Timeout:                "timeout",
	Busy:                   "operation already in progress",
	DirectoryNotFound:      "directory not found",
	NoSubmissionGroup:      "no submission group",
	RepoRootNotFound:       "repository root not found",
	NothingToCommit:        "nothing to commit",
	PushAuthFailed:         "push authentication failed",
	PushFailed:             "push failed",
	CommitHashUnavailable:  "commit hash unavailable",
	ArchivePackagingFailed: "archive packaging failed",
	BackendRejected:        "backend rejected request",
}

func (k Kind) String() string {
	if name, found := kindNames[k]; found {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// E builds an *Error from its arguments. Each argument sets the field
// matching its type: an Op, a Kind, a types.UniquePath, a Repo, or the
// wrapped cause given as an error or a string. Any other type panics.
// Fields repeated by a wrapped *Error are dropped from the copy it wraps.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E called without arguments")
	}
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case types.UniquePath:
			e.Path = a
		case Repo:
			e.Repo = a
		case *Error:
			inner := *a
			e.Err = &inner
		case error:
			e.Err = a
		case string:
			e.Err = goerrors.New(a)
		default:
			panic(fmt.Sprintf("errors.E: unsupported argument %v of type %T", a, a))
		}
	}
	if inner, ok := e.Err.(*Error); ok {
		inner.dropShared(e)
	}
	return e
}

// KindOf returns the outermost non-Other kind found in the chain of
// *Error values wrapped by err.
func KindOf(err error) Kind {
	for err != nil {
		var e *Error
		if !goerrors.As(err, &e) {
			return Other
		}
		if e.Kind != Other {
			return e.Kind
		}
		err = e.Err
	}
	return Other
}

// Is reports whether err carries kind anywhere in its chain of *Error values.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !goerrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// As is a passthrough to the standard library errors.As.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// New is a passthrough to the standard library errors.New.
func New(text string) error {
	return goerrors.New(text)
}
