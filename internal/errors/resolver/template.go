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

package resolver

import (
	"fmt"
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	"details": details,
}

// details renders the captured output of a failed command. It is empty
// when the command printed nothing.
func details(stdout, stderr string) string {
	var parts []string
	for _, s := range []string{stdout, stderr} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n\nDetails:\n" + strings.Join(parts, "\n")
}

// ExecuteTemplate renders text with data and trims the result. It panics
// if text is not a valid template.
func ExecuteTemplate(text string, data interface{}) string {
	tmpl := template.Must(template.New("message").Funcs(templateFuncs).Parse(text))
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		panic(fmt.Errorf("rendering error message: %w", err))
	}
	return strings.TrimSpace(b.String())
}
