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

// Package fake provides an in-memory backend.API for tests.
package fake

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/kptdev/coursework/internal/archive"
	"github.com/kptdev/coursework/internal/backend"
)

// Call records one API invocation.
type Call struct {
	Method string
	ID     string
}

// API is an in-memory backend. Artifacts are stored and filtered like the
// real server; every call is recorded.
type API struct {
	mu sync.Mutex

	Artifacts []backend.Artifact
	Uploads   []archive.Archive
	Contents  map[string]backend.CourseContent
	Courses   []backend.Course
	Results   map[string]backend.Result

	// Statuses are returned by successive GetResultStatus calls; the last
	// one repeats.
	Statuses []backend.Status

	// Errors maps a method name to the error it returns.
	Errors map[string]error

	Calls []Call

	nextID int
}

var _ backend.API = &API{}

// New returns an empty fake.
func New() *API {
	return &API{
		Contents: map[string]backend.CourseContent{},
		Results:  map[string]backend.Result{},
		Errors:   map[string]error{},
	}
}

// CallCount returns how many times method was invoked.
func (f *API) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *API) record(method, id string) error {
	f.Calls = append(f.Calls, Call{Method: method, ID: id})
	return f.Errors[method]
}

func (f *API) ListSubmissionArtifacts(_ context.Context, q backend.ArtifactQuery) ([]backend.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListSubmissionArtifacts", q.SubmissionGroupID); err != nil {
		return nil, err
	}
	var out []backend.Artifact
	for _, a := range f.Artifacts {
		if a.SubmissionGroupID != q.SubmissionGroupID {
			continue
		}
		if q.VersionIdentifier != "" && a.VersionIdentifier != q.VersionIdentifier {
			continue
		}
		if q.Submit != nil && a.Submit != *q.Submit {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *API) CreateSubmission(_ context.Context, req backend.CreateSubmission, a archive.Archive) (backend.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateSubmission", req.SubmissionGroupID); err != nil {
		return backend.Artifact{}, err
	}
	f.nextID++
	artifact := backend.Artifact{
		ID:                fmt.Sprintf("artifact-%d", f.nextID),
		SubmissionGroupID: req.SubmissionGroupID,
		VersionIdentifier: req.VersionIdentifier,
		Submit:            req.Submit,
	}
	f.Artifacts = append(f.Artifacts, artifact)
	f.Uploads = append(f.Uploads, a)
	return artifact, nil
}

func (f *API) UpdateSubmission(_ context.Context, artifactID string, req backend.UpdateSubmission) (backend.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateSubmission", artifactID); err != nil {
		return backend.Artifact{}, err
	}
	for i := range f.Artifacts {
		if f.Artifacts[i].ID == artifactID {
			f.Artifacts[i].Submit = req.Submit
			return f.Artifacts[i], nil
		}
	}
	return backend.Artifact{}, &backend.HTTPError{Status: http.StatusNotFound, Method: http.MethodPatch, Path: "/submissions/artifacts/" + artifactID}
}

func (f *API) SubmitTest(_ context.Context, req backend.TestRequest) (backend.TestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SubmitTest", req.ArtifactID); err != nil {
		return backend.TestResponse{}, err
	}
	f.nextID++
	id := fmt.Sprintf("result-%d", f.nextID)
	if _, found := f.Results[id]; !found {
		f.Results[id] = backend.Result{ID: id, SubmissionArtifactID: req.ArtifactID, Status: backend.Pending}
	}
	st := backend.Pending
	return backend.TestResponse{ID: id, Status: &st}, nil
}

func (f *API) GetResultStatus(_ context.Context, resultID string) (backend.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetResultStatus", resultID); err != nil {
		return 0, err
	}
	if len(f.Statuses) == 0 {
		return backend.Pending, nil
	}
	st := f.Statuses[0]
	if len(f.Statuses) > 1 {
		f.Statuses = f.Statuses[1:]
	}
	return st, nil
}

func (f *API) GetResult(_ context.Context, resultID string) (backend.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetResult", resultID); err != nil {
		return backend.Result{}, err
	}
	r, found := f.Results[resultID]
	if !found {
		return backend.Result{}, &backend.HTTPError{Status: http.StatusNotFound, Method: http.MethodGet, Path: "/results/" + resultID}
	}
	return r, nil
}

func (f *API) GetCourseContent(_ context.Context, contentID string) (backend.CourseContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetCourseContent", contentID); err != nil {
		return backend.CourseContent{}, err
	}
	c, found := f.Contents[contentID]
	if !found {
		return backend.CourseContent{}, &backend.HTTPError{Status: http.StatusNotFound, Method: http.MethodGet, Path: "/students/course-contents/" + contentID}
	}
	return c, nil
}

func (f *API) ListCourses(_ context.Context) ([]backend.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCourses", ""); err != nil {
		return nil, err
	}
	return append([]backend.Course{}, f.Courses...), nil
}

func (f *API) ListCourseContents(_ context.Context, courseID string) ([]backend.CourseContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCourseContents", courseID); err != nil {
		return nil, err
	}
	var out []backend.CourseContent
	for _, c := range f.Contents {
		if c.CourseID == courseID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
