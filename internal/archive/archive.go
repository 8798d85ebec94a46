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

// Package archive packages an assignment directory into the ZIP archive
// uploaded as a submission artifact.
package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/types"
	"k8s.io/klog/v2"
)

// MetadataDir is the local-only tracking directory. It is never uploaded.
const MetadataDir = ".coursework"

// DefaultExcludes are names excluded at any depth.
var DefaultExcludes = []string{".git", MetadataDir}

// Archive is an in-memory upload archive.
type Archive struct {
	Bytes    []byte
	Filename string
}

// Options configures Package.
type Options struct {
	// Exclude lists additional file or directory names skipped at any depth.
	Exclude []string
}

// Package builds a ZIP of every regular file below dir. Archive paths are
// slash separated and relative to dir, and entries are sorted.
func Package(dir string, opts Options) (Archive, error) {
	const op errors.Op = "archive.Package"
	root, err := types.NewUniquePath(dir)
	if err != nil {
		return Archive{}, errors.E(op, errors.ArchivePackagingFailed, err)
	}

	excluded := map[string]bool{}
	for _, name := range append(append([]string{}, DefaultExcludes...), opts.Exclude...) {
		excluded[name] = true
	}

	files, err := collect(root.String(), excluded)
	if err != nil {
		return Archive{}, errors.E(op, errors.ArchivePackagingFailed, root, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		fw, err := flate.NewWriter(w, flate.BestCompression)
		if err != nil {
			return nil, err
		}
		return fw, nil
	})
	for _, rel := range files {
		if err := addFile(zw, root.String(), rel); err != nil {
			return Archive{}, errors.E(op, errors.ArchivePackagingFailed, root, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Archive{}, errors.E(op, errors.ArchivePackagingFailed, root, err)
	}
	klog.V(3).Infof("packaged %d files from %s (%d bytes)", len(files), root, buf.Len())

	return Archive{
		Bytes:    buf.Bytes(),
		Filename: filepath.Base(root.String()) + ".zip",
	}, nil
}

// collect returns the slash separated relative paths of all regular files.
func collect(root string, excluded map[string]bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if excluded[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			// directories are implied by their files; symlinks and
			// special files are not uploaded.
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func addFile(zw *zip.Writer, root, rel string) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = rel
	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
