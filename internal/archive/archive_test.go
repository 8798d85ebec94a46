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

package archive_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/kptdev/coursework/internal/archive"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(t *testing.T, a archive.Archive) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(a.Bytes), int64(len(a.Bytes)))
	require.NoError(t, err)
	out := map[string]string{}
	var order []string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(b)
		order = append(order, f.Name)
	}
	assert.IsIncreasing(t, order)
	return out
}

func TestPackage(t *testing.T) {
	testCases := map[string]struct {
		files    map[string]string
		opts     archive.Options
		expected map[string]string
	}{
		"nested files": {
			files: map[string]string{
				"main.py":          "print(1)\n",
				"lib/util.py":      "X = 1\n",
				"lib/deep/data.md": "# data\n",
			},
			expected: map[string]string{
				"lib/deep/data.md": "# data\n",
				"lib/util.py":      "X = 1\n",
				"main.py":          "print(1)\n",
			},
		},
		"git directory and metadata are excluded": {
			files: map[string]string{
				"main.py":                    "print(1)\n",
				".git/config":                "[core]\n",
				".coursework/meta.yaml":      "id: 1\n",
				"sub/.git":                   "gitdir: ../.git/modules/sub\n",
				"sub/code.py":                "pass\n",
				"sub/.coursework/index.yaml": "x: 1\n",
			},
			expected: map[string]string{
				"main.py":     "print(1)\n",
				"sub/code.py": "pass\n",
			},
		},
		"extra excludes": {
			files: map[string]string{
				"main.py":                "print(1)\n",
				"__pycache__/main.pyc":   "bytecode",
				".assignment-copy/a.txt": "copy",
			},
			opts: archive.Options{Exclude: []string{"__pycache__", ".assignment-copy"}},
			expected: map[string]string{
				"main.py": "print(1)\n",
			},
		},
		"other dotfiles are kept": {
			files: map[string]string{
				".gitignore": "*.pyc\n",
			},
			expected: map[string]string{
				".gitignore": "*.pyc\n",
			},
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "assignment-1")
			for rel, content := range tc.files {
				testutil.WriteFile(t, dir, rel, content)
			}

			a, err := archive.Package(dir, tc.opts)
			require.NoError(t, err)
			assert.Equal(t, "assignment-1.zip", a.Filename)
			assert.Equal(t, tc.expected, entries(t, a))
		})
	}
}

func TestPackage_SkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "real.txt", "real")
	if err := os.Symlink(filepath.Join(dir, "real.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	a, err := archive.Package(dir, archive.Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"real.txt": "real"}, entries(t, a))
}

func TestPackage_MissingDirectory(t *testing.T) {
	_, err := archive.Package(filepath.Join(t.TempDir(), "missing"), archive.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ArchivePackagingFailed))
}
