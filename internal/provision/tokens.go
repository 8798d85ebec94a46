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

package provision

import (
	"context"
	"os"

	"github.com/kptdev/coursework/internal/credstore"
	"github.com/kptdev/coursework/internal/errors"
)

// TokenEnv is consulted when the store has no token for an origin.
const TokenEnv = "COURSEWORK_TOKEN"

// TokenSource resolves the access token for a remote origin
// (scheme://host). An empty token means anonymous access.
type TokenSource interface {
	Token(ctx context.Context, origin string) (string, error)
}

// StoreTokenSource looks the origin up in Store and falls back to the
// TokenEnv environment variable.
type StoreTokenSource struct {
	Store credstore.Store

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

func (s StoreTokenSource) Token(ctx context.Context, origin string) (string, error) {
	const op errors.Op = "provision.Token"
	if s.Store != nil && origin != "" {
		token, found, err := s.Store.Get(ctx, origin)
		if err != nil {
			return "", errors.E(op, err)
		}
		if found && token != "" {
			return token, nil
		}
	}
	lookup := s.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	token, _ := lookup(TokenEnv)
	return token, nil
}
