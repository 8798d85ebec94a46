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


package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinStringsWithQuotes(t *testing.T) {
	testCases := map[string]struct {
		slice    []string
		expected string
	}{
		"empty slice": {
			slice:    []string{},
			expected: ``,
		},
		"single element": {
			slice:    []string{"a"},
			expected: `"a"`,
		},
		"multiple elements": {
			slice:    []string{"prefer-local", "keep-local"},
			expected: `"prefer-local", "keep-local"`,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.expected, JoinStringsWithQuotes(tc.slice))
		})
	}
}

func TestSlug(t *testing.T) {
	testCases := map[string]struct {
		title    string
		expected string
	}{
		"plain": {
			title:    "Programming 1",
			expected: "programming-1",
		},
		"accents": {
			title:    "Einführung in die Übungen",
			expected: "einfuhrung-in-die-ubungen",
		},
		"punctuation runs": {
			title:    "  C++ / Systems: (2026)  ",
			expected: "c-systems-2026",
		},
		"dots and underscores kept": {
			title:    "week_1.intro",
			expected: "week_1.intro",
		},
		"nothing usable": {
			title:    "!!!",
			expected: "course",
		},
		"non latin": {
			title:    "算法",
			expected: "course",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.expected, Slug(tc.title, "course"))
		})
	}
}
