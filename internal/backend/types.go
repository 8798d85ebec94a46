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

// Package backend contains the client of the course backend REST API.
package backend

import (
	"context"
	"encoding/json"

	"github.com/kptdev/coursework/internal/archive"
)

// API is the subset of the backend used by the submission and test flows.
type API interface {
	ListSubmissionArtifacts(ctx context.Context, q ArtifactQuery) ([]Artifact, error)
	CreateSubmission(ctx context.Context, req CreateSubmission, a archive.Archive) (Artifact, error)
	UpdateSubmission(ctx context.Context, artifactID string, req UpdateSubmission) (Artifact, error)
	SubmitTest(ctx context.Context, req TestRequest) (TestResponse, error)
	GetResultStatus(ctx context.Context, resultID string) (Status, error)
	GetResult(ctx context.Context, resultID string) (Result, error)
	GetCourseContent(ctx context.Context, contentID string) (CourseContent, error)
	ListCourses(ctx context.Context) ([]Course, error)
	ListCourseContents(ctx context.Context, courseID string) ([]CourseContent, error)
}

// ArtifactQuery filters ListSubmissionArtifacts.
type ArtifactQuery struct {
	SubmissionGroupID string
	VersionIdentifier string
	// Submit, if set, restricts the result to artifacts with that flag.
	Submit *bool
}

// Artifact is an uploaded snapshot of a submission group's work, keyed by
// commit hash.
type Artifact struct {
	ID                string `json:"id"`
	SubmissionGroupID string `json:"submission_group_id"`
	VersionIdentifier string `json:"version_identifier,omitempty"`
	Submit            bool   `json:"submit"`
	CreatedAt         string `json:"created_at,omitempty"`
}

// CreateSubmission is the metadata part of an artifact upload.
type CreateSubmission struct {
	SubmissionGroupID string `json:"submission_group_id"`
	VersionIdentifier string `json:"version_identifier,omitempty"`
	Submit            bool   `json:"submit"`
}

// UpdateSubmission patches an artifact.
type UpdateSubmission struct {
	Submit bool `json:"submit"`
}

// TestRequest starts a test run of an artifact.
type TestRequest struct {
	ArtifactID string `json:"artifact_id"`
	Submit     *bool  `json:"submit,omitempty"`
}

// TestResponse is the result record created for a test run.
type TestResponse struct {
	ID         string          `json:"id"`
	Status     *Status         `json:"status,omitempty"`
	ResultJSON json.RawMessage `json:"result_json,omitempty"`
}

// Result is a test result.
type Result struct {
	ID                   string          `json:"id"`
	SubmissionArtifactID string          `json:"submission_artifact_id,omitempty"`
	Status               Status          `json:"status"`
	Result               float64         `json:"result"`
	ResultJSON           json.RawMessage `json:"result_json,omitempty"`
	CreatedAt            string          `json:"created_at,omitempty"`
}

// Repository describes the git repository of a submission group.
type Repository struct {
	CloneURL    string `json:"clone_url"`
	WebURL      string `json:"web_url,omitempty"`
	UpstreamURL string `json:"upstream_url,omitempty"`
}

// SubmissionGroup pairs students with an assignment.
type SubmissionGroup struct {
	ID              string      `json:"id"`
	CourseContentID string      `json:"course_content_id,omitempty"`
	Repository      *Repository `json:"repository,omitempty"`
	Count           int         `json:"count"`
	MaxSubmissions  int         `json:"max_submissions,omitempty"`
}

// Course is a course the user is enrolled in.
type Course struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path,omitempty"`
}

// CourseContent is an item of a course, e.g. an assignment.
type CourseContent struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Path     string `json:"path,omitempty"`
	// Directory is the assignment directory relative to the repository root.
	Directory       string           `json:"directory,omitempty"`
	SubmissionGroup *SubmissionGroup `json:"submission_group,omitempty"`
	Result          *Result          `json:"result,omitempty"`
}
