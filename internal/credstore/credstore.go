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

// Package credstore stores access tokens keyed by remote origin
// (scheme://host).
package credstore

import (
	"bytes"
	"context"
	goerrors "errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/types"
	"github.com/kptdev/coursework/internal/util/pathutil"
	"gopkg.in/yaml.v3"
)

// Store gets, sets and deletes secrets by key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// NormalizeKey lowercases the key and removes a trailing slash so that
// https://GitLab.com/ and https://gitlab.com map to the same entry.
func NormalizeKey(key string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(key)), "/")
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	secrets map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{secrets: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, found := m.secrets[NormalizeKey(key)]
	return v, found, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[NormalizeKey(key)] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, NormalizeKey(key))
	return nil
}

// File is a Store backed by a YAML document encrypted with an age scrypt
// recipient. The whole file is rewritten on every change.
type File struct {
	// Path is the location of the encrypted file.
	Path string

	// WorkFactor is the scrypt work factor (log2 N) used when encrypting.
	// Zero uses the age default.
	WorkFactor int

	passphrase string
	mu         sync.Mutex
}

// NewFile returns a File store at path protected by passphrase.
func NewFile(path, passphrase string) (*File, error) {
	const op errors.Op = "credstore.NewFile"
	if passphrase == "" {
		return nil, errors.E(op, errors.MissingParam, types.UniquePath(path),
			"a passphrase is required to open the credential store")
	}
	return &File{Path: path, passphrase: passphrase}, nil
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	const op errors.Op = "credstore.Get"
	f.mu.Lock()
	defer f.mu.Unlock()
	secrets, err := f.load()
	if err != nil {
		return "", false, errors.E(op, types.UniquePath(f.Path), err)
	}
	v, found := secrets[NormalizeKey(key)]
	return v, found, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	const op errors.Op = "credstore.Set"
	f.mu.Lock()
	defer f.mu.Unlock()
	secrets, err := f.load()
	if err != nil {
		return errors.E(op, types.UniquePath(f.Path), err)
	}
	secrets[NormalizeKey(key)] = value
	if err := f.save(secrets); err != nil {
		return errors.E(op, types.UniquePath(f.Path), err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	const op errors.Op = "credstore.Delete"
	f.mu.Lock()
	defer f.mu.Unlock()
	secrets, err := f.load()
	if err != nil {
		return errors.E(op, types.UniquePath(f.Path), err)
	}
	k := NormalizeKey(key)
	if _, found := secrets[k]; !found {
		return nil
	}
	delete(secrets, k)
	if err := f.save(secrets); err != nil {
		return errors.E(op, types.UniquePath(f.Path), err)
	}
	return nil
}

func (f *File) load() (map[string]string, error) {
	secrets := map[string]string{}
	b, err := os.ReadFile(f.Path)
	if goerrors.Is(err, fs.ErrNotExist) {
		return secrets, nil
	}
	if err != nil {
		return nil, errors.E(errors.IO, err)
	}
	identity, err := age.NewScryptIdentity(f.passphrase)
	if err != nil {
		return nil, errors.E(errors.Internal, err)
	}
	r, err := age.Decrypt(bytes.NewReader(b), identity)
	if err != nil {
		return nil, errors.E(errors.InvalidParam, "unable to decrypt the credential store, check the passphrase")
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.E(errors.IO, err)
	}
	if err := yaml.Unmarshal(plain, &secrets); err != nil {
		return nil, errors.E(errors.InvalidParam, err)
	}
	if secrets == nil {
		secrets = map[string]string{}
	}
	return secrets, nil
}

func (f *File) save(secrets map[string]string) error {
	plain, err := yaml.Marshal(secrets)
	if err != nil {
		return errors.E(errors.Internal, err)
	}
	recipient, err := age.NewScryptRecipient(f.passphrase)
	if err != nil {
		return errors.E(errors.Internal, err)
	}
	if f.WorkFactor > 0 {
		recipient.SetWorkFactor(f.WorkFactor)
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return errors.E(errors.Internal, err)
	}
	if _, err := w.Write(plain); err != nil {
		return errors.E(errors.Internal, err)
	}
	if err := w.Close(); err != nil {
		return errors.E(errors.Internal, err)
	}
	if err := pathutil.WriteFileAtomic(f.Path, buf.Bytes(), 0600); err != nil {
		return errors.E(errors.IO, err)
	}
	return nil
}
