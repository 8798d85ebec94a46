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

	"github.com/kptdev/coursework/internal/backend"
	"github.com/kptdev/coursework/internal/errors"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&backendErrorResolver{})
}

// backendErrorResolver resolves errors returned by the backend API.
type backendErrorResolver struct{}

func (*backendErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var httpErr *backend.HTTPError
	if !errors.As(err, &httpErr) {
		return ResolvedResult{}, false
	}

	var msg string
	switch httpErr.Kind() {
	case backend.Network:
		msg = fmt.Sprintf("Error: Unable to reach the course backend: %v", httpErr.Err)
	case backend.Auth:
		msg = "Error: The course backend rejected the access token. Check COURSEWORK_TOKEN or log in again."
	case backend.NotFound:
		msg = fmt.Sprintf("Error: %s was not found on the course backend.", httpErr.Path)
	case backend.Conflict:
		msg = "Error: The course backend reported a conflict."
	case backend.Server:
		msg = fmt.Sprintf("Error: The course backend failed (%d). Try again later.", httpErr.Status)
	default:
		msg = fmt.Sprintf("Error: The course backend rejected the request (%d).", httpErr.Status)
	}
	if httpErr.Detail != "" {
		msg += "\n\nDetails:\n" + httpErr.Detail
	}
	return ResolvedResult{Message: msg}, true
}
