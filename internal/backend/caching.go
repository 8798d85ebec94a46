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
	"context"
	"sync"

	"k8s.io/klog/v2"
)

// CachingClient caches course contents of the wrapped API. Mutations made
// through other calls are not tracked; callers invalidate explicitly after
// a successful submission so the next read refetches.
type CachingClient struct {
	API

	mu       sync.Mutex
	contents map[string]CourseContent
}

// NewCachingClient wraps api.
func NewCachingClient(api API) *CachingClient {
	return &CachingClient{API: api, contents: map[string]CourseContent{}}
}

func (c *CachingClient) GetCourseContent(ctx context.Context, contentID string) (CourseContent, error) {
	c.mu.Lock()
	content, found := c.contents[contentID]
	c.mu.Unlock()
	if found {
		return content, nil
	}

	content, err := c.API.GetCourseContent(ctx, contentID)
	if err != nil {
		return CourseContent{}, err
	}
	c.mu.Lock()
	c.contents[contentID] = content
	c.mu.Unlock()
	return content, nil
}

func (c *CachingClient) ListCourseContents(ctx context.Context, courseID string) ([]CourseContent, error) {
	contents, err := c.API.ListCourseContents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, content := range contents {
		c.contents[content.ID] = content
	}
	return contents, nil
}

// Invalidate drops the cached course content with the given id.
func (c *CachingClient) Invalidate(contentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	klog.V(4).Infof("invalidating cached course content %s", contentID)
	delete(c.contents, contentID)
}
