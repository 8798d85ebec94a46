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
	goerrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kptdev/coursework/internal/archive"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/types"
	"github.com/kptdev/coursework/internal/util/pathutil"
	"gopkg.in/yaml.v3"
)

const (
	indexVersion = 1
	indexFile    = "index.yaml"
)

// RepositoryEntry is a provisioned local repository.
type RepositoryEntry struct {
	CourseID string `yaml:"courseID"`
	Path     string `yaml:"path"`
	// CloneURL never carries credentials.
	CloneURL    string `yaml:"cloneURL"`
	UpstreamURL string `yaml:"upstreamURL,omitempty"`
}

// AssignmentEntry maps a course content to its directory on disk.
type AssignmentEntry struct {
	CourseID          string `yaml:"courseID"`
	Title             string `yaml:"title,omitempty"`
	SubmissionGroupID string `yaml:"submissionGroupID,omitempty"`
	// Repository is the root of the repository holding the assignment.
	Repository string `yaml:"repository"`
	// Directory is the assignment directory relative to Repository.
	Directory string `yaml:"directory,omitempty"`
}

// Path returns the absolute assignment directory.
func (a AssignmentEntry) Path() string {
	return filepath.Join(a.Repository, filepath.FromSlash(a.Directory))
}

// Index is the persisted view of the workspace.
type Index struct {
	Version      int                        `yaml:"version"`
	Repositories []RepositoryEntry          `yaml:"repositories,omitempty"`
	Assignments  map[string]AssignmentEntry `yaml:"assignments,omitempty"`
	// Deferred holds, by course id, the assignments of courses that are
	// provisioned on first use. Their URLs never carry credentials.
	Deferred map[string][]Assignment `yaml:"deferred,omitempty"`
}

// IndexPath returns the location of the index file for workspace.
func IndexPath(workspace string) string {
	return filepath.Join(workspace, archive.MetadataDir, indexFile)
}

// LoadIndex reads the index at path. A missing file yields an empty index.
func LoadIndex(path string) (*Index, error) {
	const op errors.Op = "provision.LoadIndex"
	idx := &Index{
		Version:     indexVersion,
		Assignments: map[string]AssignmentEntry{},
		Deferred:    map[string][]Assignment{},
	}
	b, err := os.ReadFile(path)
	if goerrors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, errors.E(op, errors.IO, types.UniquePath(path), err)
	}
	if err := yaml.Unmarshal(b, idx); err != nil {
		return nil, errors.E(op, errors.InvalidParam, types.UniquePath(path), err)
	}
	if idx.Assignments == nil {
		idx.Assignments = map[string]AssignmentEntry{}
	}
	if idx.Deferred == nil {
		idx.Deferred = map[string][]Assignment{}
	}
	return idx, nil
}

// Save writes the index atomically.
func (idx *Index) Save(path string) error {
	const op errors.Op = "provision.SaveIndex"
	sort.Slice(idx.Repositories, func(i, j int) bool {
		return idx.Repositories[i].Path < idx.Repositories[j].Path
	})
	b, err := yaml.Marshal(idx)
	if err != nil {
		return errors.E(op, errors.Internal, err)
	}
	if err := pathutil.WriteFileAtomic(path, b, 0600); err != nil {
		return errors.E(op, errors.IO, types.UniquePath(path), err)
	}
	return nil
}

// Repository returns the entry for the repository rooted at path.
func (idx *Index) Repository(path string) (RepositoryEntry, bool) {
	for _, r := range idx.Repositories {
		if r.Path == path {
			return r, true
		}
	}
	return RepositoryEntry{}, false
}

// PutRepository adds or replaces the entry with the same path.
func (idx *Index) PutRepository(entry RepositoryEntry) {
	for i, r := range idx.Repositories {
		if r.Path == entry.Path {
			idx.Repositories[i] = entry
			return
		}
	}
	idx.Repositories = append(idx.Repositories, entry)
}
