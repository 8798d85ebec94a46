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

package resolver

import (
	"fmt"

	"github.com/kptdev/coursework/internal/errors"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&kindErrorResolver{})
}

// Exit codes by error class.
const (
	exitFailure      = 1
	exitPrecondition = 2
	exitBusy         = 3
)

var kindMessages = map[errors.Kind]struct {
	message  string
	exitCode int
}{
	errors.DirectoryNotFound:      {"The assignment directory %s does not exist. Run 'coursework repo sync' to provision it.", exitPrecondition},
	errors.NoSubmissionGroup:      {"The assignment %s has no submission group. Pass --group or sync the course first.", exitPrecondition},
	errors.RepoRootNotFound:       {"%s is not inside a git repository.", exitPrecondition},
	errors.Busy:                   {"A submission for %s is already in progress.", exitBusy},
	errors.PushAuthFailed:         {"Pushing %s was rejected because of missing or invalid credentials, also after refreshing them.", exitFailure},
	errors.PushFailed:             {"Pushing %s failed.", exitFailure},
	errors.CommitHashUnavailable:  {"No commit could be determined for %s.", exitFailure},
	errors.ArchivePackagingFailed: {"Packaging %s for upload failed.", exitFailure},
}

// kindErrorResolver resolves the error kinds of the submission flows and
// parameter validation. The message of the wrapped error is appended as
// details.
type kindErrorResolver struct{}

func (*kindErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var e *errors.Error
	if !errors.As(err, &e) {
		return ResolvedResult{}, false
	}
	kind := errors.KindOf(err)

	switch kind {
	case errors.InvalidParam, errors.MissingParam:
		return ResolvedResult{Message: "Error: " + innermost(err).Error(), ExitCode: exitPrecondition}, true
	}

	km, found := kindMessages[kind]
	if !found {
		return ResolvedResult{}, false
	}
	subject := "the assignment"
	if p := pathOf(err); p != "" {
		subject = fmt.Sprintf("%q", p)
	}
	msg := "Error: " + fmt.Sprintf(km.message, subject)
	if details := innermost(err).Error(); details != "" && km.exitCode != exitPrecondition {
		msg += "\n\nDetails:\n" + details
	}
	return ResolvedResult{Message: msg, ExitCode: km.exitCode}, true
}

// pathOf returns the outermost path recorded in the *errors.Error chain.
func pathOf(err error) string {
	for err != nil {
		var e *errors.Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Path != "" {
			return string(e.Path)
		}
		err = e.Err
	}
	return ""
}

// innermost returns the first error in the chain that is not an
// *errors.Error, or the last *errors.Error if there is none.
func innermost(err error) error {
	for {
		e, ok := err.(*errors.Error)
		if !ok || e.Err == nil {
			return err
		}
		err = e.Err
	}
}
