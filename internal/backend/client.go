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

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kptdev/coursework/internal/archive"
	"github.com/kptdev/coursework/internal/errors"
	pkgerrors "github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// RequestIDHeader carries a unique id per request for server side
	// correlation.
	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 60 * time.Second
	maxDetailLen   = 512
)

// ErrorKind classifies an HTTPError.
type ErrorKind int

const (
	Network ErrorKind = iota
	Auth
	Conflict
	NotFound
	Rejected
	Server
)

func (k ErrorKind) String() string {
	switch k {
	case Network:
		return "network"
	case Auth:
		return "auth"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not found"
	case Rejected:
		return "rejected"
	case Server:
		return "server"
	}
	return "unknown"
}

// HTTPError is returned for non-2xx responses and for transport failures.
// Status is zero for transport failures.
type HTTPError struct {
	Status int
	Detail string
	Method string
	Path   string
	Err    error
}

func (e *HTTPError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Kind classifies the error by status code.
func (e *HTTPError) Kind() ErrorKind {
	switch {
	case e.Status == 0:
		return Network
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return Auth
	case e.Status == http.StatusConflict:
		return Conflict
	case e.Status == http.StatusNotFound:
		return NotFound
	case e.Status >= 500:
		return Server
	}
	return Rejected
}

// KindOf returns the ErrorKind of the HTTPError in err's chain. The second
// return value is false if there is none.
func KindOf(err error) (ErrorKind, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Kind(), true
	}
	return 0, false
}

// Client is the HTTP implementation of API.
type Client struct {
	BaseURL    *url.URL
	Token      string
	HTTPClient *http.Client
	UserAgent  string
}

var _ API = &Client{}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL, token string) (*Client, error) {
	const op errors.Op = "backend.NewClient"
	if baseURL == "" {
		return nil, errors.E(op, errors.MissingParam, "the backend API URL is not configured")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.E(op, errors.InvalidParam, fmt.Errorf("invalid API URL %q", baseURL))
	}
	return &Client{
		BaseURL:    u,
		Token:      token,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		UserAgent:  "coursework",
	}, nil
}

func (c *Client) ListSubmissionArtifacts(ctx context.Context, q ArtifactQuery) ([]Artifact, error) {
	const op errors.Op = "backend.ListSubmissionArtifacts"
	query := url.Values{}
	query.Set("submission_group_id", q.SubmissionGroupID)
	if q.VersionIdentifier != "" {
		query.Set("version_identifier", q.VersionIdentifier)
	}
	if q.Submit != nil {
		query.Set("submit", strconv.FormatBool(*q.Submit))
	}
	var artifacts []Artifact
	if err := c.doJSON(ctx, http.MethodGet, "/submissions/artifacts", query, nil, &artifacts); err != nil {
		return nil, wrap(op, err)
	}
	return artifacts, nil
}

func (c *Client) CreateSubmission(ctx context.Context, req CreateSubmission, a archive.Archive) (Artifact, error) {
	const op errors.Op = "backend.CreateSubmission"
	meta, err := json.Marshal(req)
	if err != nil {
		return Artifact{}, errors.E(op, errors.Internal, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("submission_create", string(meta)); err != nil {
		return Artifact{}, errors.E(op, errors.Internal, err)
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, a.Filename))
	h.Set("Content-Type", "application/zip")
	part, err := mw.CreatePart(h)
	if err != nil {
		return Artifact{}, errors.E(op, errors.Internal, err)
	}
	if _, err := part.Write(a.Bytes); err != nil {
		return Artifact{}, errors.E(op, errors.Internal, err)
	}
	if err := mw.Close(); err != nil {
		return Artifact{}, errors.E(op, errors.Internal, err)
	}

	var artifact Artifact
	if err := c.do(ctx, http.MethodPost, "/submissions/artifacts", nil, &body, mw.FormDataContentType(), &artifact); err != nil {
		return Artifact{}, wrap(op, err)
	}
	return artifact, nil
}

func (c *Client) UpdateSubmission(ctx context.Context, artifactID string, req UpdateSubmission) (Artifact, error) {
	const op errors.Op = "backend.UpdateSubmission"
	var artifact Artifact
	p := path.Join("/submissions/artifacts", url.PathEscape(artifactID))
	if err := c.doJSON(ctx, http.MethodPatch, p, nil, req, &artifact); err != nil {
		return Artifact{}, wrap(op, err)
	}
	return artifact, nil
}

func (c *Client) SubmitTest(ctx context.Context, req TestRequest) (TestResponse, error) {
	const op errors.Op = "backend.SubmitTest"
	var resp TestResponse
	if err := c.doJSON(ctx, http.MethodPost, "/tests", nil, req, &resp); err != nil {
		return TestResponse{}, wrap(op, err)
	}
	return resp, nil
}

func (c *Client) GetResultStatus(ctx context.Context, resultID string) (Status, error) {
	const op errors.Op = "backend.GetResultStatus"
	var raw json.RawMessage
	p := path.Join("/results", url.PathEscape(resultID), "status")
	if err := c.doJSON(ctx, http.MethodGet, p, nil, nil, &raw); err != nil {
		return 0, wrap(op, err)
	}
	st, err := decodeStatus(raw)
	if err != nil {
		return 0, errors.E(op, errors.BackendRejected, pkgerrors.Wrapf(err, "decoding status of result %s", resultID))
	}
	return st, nil
}

// decodeStatus accepts a bare status value or an object with a status
// field.
func decodeStatus(raw json.RawMessage) (Status, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var obj struct {
			Status *Status `json:"status"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return 0, err
		}
		if obj.Status == nil {
			return 0, fmt.Errorf("response has no status field")
		}
		return *obj.Status, nil
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return 0, err
	}
	return st, nil
}

func (c *Client) GetResult(ctx context.Context, resultID string) (Result, error) {
	const op errors.Op = "backend.GetResult"
	var result Result
	if err := c.doJSON(ctx, http.MethodGet, path.Join("/results", url.PathEscape(resultID)), nil, nil, &result); err != nil {
		return Result{}, wrap(op, err)
	}
	return result, nil
}

func (c *Client) GetCourseContent(ctx context.Context, contentID string) (CourseContent, error) {
	const op errors.Op = "backend.GetCourseContent"
	var content CourseContent
	p := path.Join("/students/course-contents", url.PathEscape(contentID))
	if err := c.doJSON(ctx, http.MethodGet, p, nil, nil, &content); err != nil {
		return CourseContent{}, wrap(op, err)
	}
	return content, nil
}

func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	const op errors.Op = "backend.ListCourses"
	var courses []Course
	if err := c.doJSON(ctx, http.MethodGet, "/students/courses", nil, nil, &courses); err != nil {
		return nil, wrap(op, err)
	}
	return courses, nil
}

func (c *Client) ListCourseContents(ctx context.Context, courseID string) ([]CourseContent, error) {
	const op errors.Op = "backend.ListCourseContents"
	query := url.Values{}
	query.Set("course_id", courseID)
	var contents []CourseContent
	if err := c.doJSON(ctx, http.MethodGet, "/students/course-contents", query, nil, &contents); err != nil {
		return nil, wrap(op, err)
	}
	return contents, nil
}

func (c *Client) doJSON(ctx context.Context, method, p string, query url.Values, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, p, query, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, p string, query url.Values, body io.Reader, contentType string, out interface{}) error {
	u := *c.BaseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + p
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	klog.V(4).Infof("%s %s (request %s)", method, u.Path, requestID)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &HTTPError{Method: method, Path: p, Err: err}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return &HTTPError{Method: method, Path: p, Err: err}
	}
	klog.V(4).Infof("%s %s -> %d (request %s)", method, u.Path, resp.StatusCode, requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{
			Status: resp.StatusCode,
			Detail: detail(b),
			Method: method,
			Path:   p,
		}
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return pkgerrors.Wrapf(err, "decoding response of %s %s", method, p)
	}
	return nil
}

// detail extracts a human readable message from an error response body.
// FastAPI style {"detail": ...} bodies are understood.
func detail(body []byte) string {
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			v, found := obj[key]
			if !found {
				continue
			}
			if s, ok := v.(string); ok {
				return s
			}
			if b, err := json.Marshal(v); err == nil {
				return truncate(string(b))
			}
		}
		return ""
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) > maxDetailLen {
		return s[:maxDetailLen] + "..."
	}
	return s
}

// wrap maps transport and HTTP failures onto error kinds.
func wrap(op errors.Op, err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Kind() == Network {
			return errors.E(op, errors.Network, err)
		}
		return errors.E(op, errors.BackendRejected, err)
	}
	return errors.E(op, errors.BackendRejected, err)
}

// WrapCall adds what was being done to an error returned by a backend
// call. Errors that carry no kind yet, such as those of a fake or a
// decoding failure, are classified as BackendRejected.
func WrapCall(what string, err error) error {
	wrapped := fmt.Errorf("%s: %w", what, err)
	if errors.KindOf(err) == errors.Other {
		return errors.E(errors.BackendRejected, wrapped)
	}
	return wrapped
}
