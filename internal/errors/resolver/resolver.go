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

// Package resolver turns an error returned by a command into the message
// and exit code shown to the user.
package resolver

// ResolvedResult is what main prints before exiting with ExitCode.
type ResolvedResult struct {
	Message  string
	ExitCode int
}

// ErrorResolver recognizes one family of errors.
type ErrorResolver interface {
	Resolve(err error) (ResolvedResult, bool)
}

// ResolverFunc adapts a plain function to ErrorResolver.
type ResolverFunc func(err error) (ResolvedResult, bool)

func (f ResolverFunc) Resolve(err error) (ResolvedResult, bool) {
	return f(err)
}

// errorResolvers are consulted in registration order; the first match
// wins.
var errorResolvers []ErrorResolver

// AddErrorResolver registers er after all previously registered resolvers.
func AddErrorResolver(er ErrorResolver) {
	errorResolvers = append(errorResolvers, er)
}

// ResolveError returns the result of the first resolver recognizing err.
// A resolved error never exits with 0.
func ResolveError(err error) (ResolvedResult, bool) {
	if err == nil {
		return ResolvedResult{}, false
	}
	for _, r := range errorResolvers {
		rr, found := r.Resolve(err)
		if !found {
			continue
		}
		if rr.ExitCode == 0 {
			rr.ExitCode = 1
		}
		return rr, true
	}
	return ResolvedResult{}, false
}
