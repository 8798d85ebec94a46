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

// Package resultview renders test results for the terminal.
package resultview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kptdev/coursework/internal/backend"
	"k8s.io/klog/v2"
)

// Writer renders results as a table to Out.
type Writer struct {
	Out io.Writer
}

// New returns a Writer for out.
func New(out io.Writer) *Writer {
	return &Writer{Out: out}
}

// details is the part of result_json rendered per test. Unknown fields are
// ignored.
type details struct {
	Tests []testDetail `json:"tests"`
}

type testDetail struct {
	Name    string `json:"name"`
	Result  string `json:"result"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (d testDetail) outcome() string {
	if d.Result != "" {
		return d.Result
	}
	return d.Status
}

// Show writes the status and score of r followed by a row per test, if the
// result carries test details.
func (w *Writer) Show(_ context.Context, r backend.Result) error {
	var d details
	if len(r.ResultJSON) > 0 {
		if err := json.Unmarshal(r.ResultJSON, &d); err != nil {
			klog.V(2).Infof("result %s has undecodable details: %v", r.ID, err)
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(w.Out)
	t.AppendHeader(table.Row{"TEST", "RESULT", "MESSAGE"})
	for _, test := range d.Tests {
		t.AppendRow(table.Row{test.Name, test.outcome(), test.Message})
	}
	if len(d.Tests) > 0 {
		t.AppendSeparator()
	}
	t.AppendFooter(table.Row{"status " + r.Status.String(), Score(r.Result), ""})
	t.Render()
	return nil
}

// Score formats a result fraction as a percentage.
func Score(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
