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

// Package types defines the path type shared across the coursework
// packages.
package types

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UniquePath is an absolute, cleaned path on the local filesystem, such
// as a repository root or an assignment directory. It identifies the
// directory an error or a message is about.
type UniquePath string

// NewUniquePath makes p absolute and cleans it.
func NewUniquePath(p string) (UniquePath, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return UniquePath(abs), nil
}

func (u UniquePath) String() string {
	return string(u)
}

func (u UniquePath) Empty() bool {
	return u == ""
}

// Rel returns the slash-separated path of p relative to u. It fails if p
// is neither u nor below it.
func (u UniquePath) Rel(p UniquePath) (string, error) {
	rel, err := filepath.Rel(string(u), string(p))
	if err != nil {
		return "", err
	}
	if escapes(rel) {
		return "", fmt.Errorf("%s is not inside %s", p, u)
	}
	return filepath.ToSlash(rel), nil
}

// RelativePath returns u relative to the working directory, or u itself
// when it lies outside of it.
func (u UniquePath) RelativePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(cwd, string(u))
	if err != nil || escapes(rel) {
		return string(u), err
	}
	return rel, nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
