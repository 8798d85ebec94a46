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

package printer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptPrintf(t *testing.T) {
	testCases := map[string]struct {
		opt     *Options
		format  string
		args    []interface{}
		wantOut string
		wantErr string
	}{
		"nil options print to out": {
			format:  "hello %s\n",
			args:    []interface{}{"world"},
			wantOut: "hello world\n",
		},
		"stderr": {
			opt:     NewOpt().Stderr(),
			format:  "failed\n",
			wantErr: "failed\n",
		},
		"indentation skips empty lines": {
			opt:     NewOpt().Indent(2),
			format:  "a\n\nb\n",
			wantOut: "  a\n\n  b\n",
		},
		"warning": {
			opt:     NewOpt().Warning(),
			format:  "%s\n",
			args:    []interface{}{"disk almost full"},
			wantErr: "warning: disk almost full\n",
		},
		"unterminated line keeps its form": {
			opt:     NewOpt().Indent(4),
			format:  "x",
			wantOut: "    x",
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			New(out, errOut).OptPrintf(tc.opt, tc.format, tc.args...)
			assert.Equal(t, tc.wantOut, out.String())
			assert.Equal(t, tc.wantErr, errOut.String())
		})
	}
}

func TestContextHelpers(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	ctx := WithContext(context.Background(), New(out, errOut))

	Progressf(ctx, "cloning %s", "a1")
	Warnf(ctx, "slow network")

	assert.Empty(t, out.String())
	assert.Equal(t, "  cloning a1\nwarning: slow network\n", errOut.String())
}

func TestFromContextOrDiePanics(t *testing.T) {
	assert.Panics(t, func() { FromContextOrDie(context.Background()) })
}
