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
	goerrors "errors"
	"strings"

	"github.com/kptdev/coursework/internal/gitutil"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&gitExecErrorResolver{})
}

const (
	genericGitExecError = `
Error: Failed to execute git command {{ printf "%q" .gitcmd }}
{{- if gt (len .repo) 0 }} against repo {{ printf "%q" .repo }}{{ end }}
{{- if gt (len .ref) 0 }} for reference {{ printf "%q" .ref }}{{ end }}.
{{- details .stdout .stderr }}
`

	authGitExecError = `
Error: The git server rejected the credentials
{{- if gt (len .repo) 0 }} for {{ printf "%q" .repo }}{{ end }}. Store a valid access token with 'coursework token set <origin>' or set COURSEWORK_TOKEN.
{{- details .stdout .stderr }}
`

	unknownRefGitExecError = `
Error: Unknown ref {{ printf "%q" .ref }}. Please verify that the reference exists
{{- if gt (len .repo) 0 }} in repo {{ printf "%q" .repo }}{{ end }}.
{{- details .stdout .stderr }}
`

	unavailableGitExecError = `
Error: Unable to reach the git server
{{- if gt (len .repo) 0 }} for {{ printf "%q" .repo }}{{ end }}. Check your network connection and try again.
{{- details .stdout .stderr }}
`

	notFoundGitExecError = `
Error: Repository {{ printf "%q" .repo }} not found.
{{- details .stdout .stderr }}
`
)

// gitExecErrorResolver resolves errors wrapping a *gitutil.GitExecError.
type gitExecErrorResolver struct{}

func (*gitExecErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var gitExecErr *gitutil.GitExecError
	if !goerrors.As(err, &gitExecErr) {
		return ResolvedResult{}, false
	}
	tmplArgs := map[string]interface{}{
		"gitcmd": "git " + strings.Join(gitExecErr.Args, " "),
		"repo":   gitutil.Redact(gitExecErr.Repo),
		"ref":    gitExecErr.Ref,
		"stdout": gitExecErr.StdOut,
		"stderr": gitExecErr.StdErr,
	}

	var msg string
	switch gitExecErr.Type {
	case gitutil.GitExecutableNotFound:
		msg = "Error: No git executable found. coursework requires git to be installed and available in the path."
	case gitutil.AuthenticationFailed:
		msg = ExecuteTemplate(authGitExecError, tmplArgs)
	case gitutil.UnknownReference:
		msg = ExecuteTemplate(unknownRefGitExecError, tmplArgs)
	case gitutil.RepositoryUnavailable, gitutil.Timeout:
		msg = ExecuteTemplate(unavailableGitExecError, tmplArgs)
	case gitutil.RepositoryNotFound:
		msg = ExecuteTemplate(notFoundGitExecError, tmplArgs)
	default:
		msg = ExecuteTemplate(genericGitExecError, tmplArgs)
	}
	return ResolvedResult{Message: msg}, true
}
