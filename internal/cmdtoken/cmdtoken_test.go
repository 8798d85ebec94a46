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


package cmdtoken_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kptdev/coursework/internal/cmdtoken"
	"github.com/kptdev/coursework/internal/config"
	"github.com/kptdev/coursework/internal/credstore"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/printer/fake"
	"github.com/kptdev/coursework/internal/util/cmdutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, f *cmdutil.Factory, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	c := cmdtoken.NewCommand(fake.CtxWithPrinter(&out, io.Discard), f, "coursework")
	c.SetArgs(args)
	c.SetIn(strings.NewReader(stdin))
	c.SetOut(io.Discard)
	c.SetErr(io.Discard)
	err := c.Execute()
	return out.String(), err
}

func TestCmd_TokenSetAndDelete(t *testing.T) {
	store := credstore.NewMemory()
	f := &cmdutil.Factory{Home: t.TempDir(), Store: store}

	out, err := execute(t, f, "glpat-secret\n", "set", "https://GitLab.example.com/course/repo.git")
	require.NoError(t, err)
	assert.Equal(t, "stored token for https://gitlab.example.com\n", out)
	assert.NotContains(t, out, "glpat-secret")
	token, found, err := store.Get(context.Background(), "https://gitlab.example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "glpat-secret", token)

	out, err = execute(t, f, "", "delete", "https://gitlab.example.com")
	require.NoError(t, err)
	assert.Equal(t, "deleted token for https://gitlab.example.com\n", out)
	_, found, err = store.Get(context.Background(), "https://gitlab.example.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCmd_TokenEncryptedFile(t *testing.T) {
	home := t.TempDir()
	f := &cmdutil.Factory{
		Home: home,
		LookupEnv: func(key string) (string, bool) {
			if key == config.PassphraseEnv {
				return "correct horse", true
			}
			return "", false
		},
	}
	_, err := execute(t, f, "s3cr3t\n", "set", "https://git.example.com")
	require.NoError(t, err)

	store, err := credstore.NewFile(filepath.Join(home, config.Dir, "credentials.age"), "correct horse")
	require.NoError(t, err)
	token, found, err := store.Get(context.Background(), "https://git.example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "s3cr3t", token)
}

func TestCmd_TokenErrors(t *testing.T) {
	testCases := map[string]struct {
		factory func(t *testing.T) *cmdutil.Factory
		stdin   string
		args    []string
		kind    errors.Kind
	}{
		"not a url": {
			stdin: "t\n",
			args:  []string{"set", "gitlab"},
			kind:  errors.InvalidParam,
		},
		"empty stdin": {
			args: []string{"set", "https://gitlab.com"},
			kind: errors.MissingParam,
		},
		"no passphrase": {
			factory: func(t *testing.T) *cmdutil.Factory {
				return &cmdutil.Factory{
					Home:      t.TempDir(),
					LookupEnv: func(string) (string, bool) { return "", false },
				}
			},
			stdin: "t\n",
			args:  []string{"set", "https://gitlab.com"},
			kind:  errors.MissingParam,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			f := &cmdutil.Factory{Home: t.TempDir(), Store: credstore.NewMemory()}
			if tc.factory != nil {
				f = tc.factory(t)
			}
			_, err := execute(t, f, tc.stdin, tc.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
}
