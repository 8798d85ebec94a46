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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status is the state of a test result.
type Status int

const (
	Finished Status = iota
	Failed
	Cancelled
	Scheduled
	Pending
	Running
	Paused
	Deferred
)

var statusNames = map[Status]string{
	Finished:  "finished",
	Failed:    "failed",
	Cancelled: "cancelled",
	Scheduled: "scheduled",
	Pending:   "pending",
	Running:   "running",
	Paused:    "paused",
	Deferred:  "deferred",
}

func (s Status) String() string {
	if name, found := statusNames[s]; found {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	switch s {
	case Finished, Failed, Cancelled, Deferred:
		return true
	}
	return false
}

// ParseStatus accepts a status name (case-insensitive) or its numeric
// code.
func ParseStatus(s string) (Status, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		st := Status(n)
		if _, found := statusNames[st]; found {
			return st, nil
		}
		return 0, fmt.Errorf("unknown status code %d", n)
	}
	if s == "canceled" {
		return Cancelled, nil
	}
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// UnmarshalJSON accepts either a number or a string.
func (s *Status) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		st, err := ParseStatus(str)
		if err != nil {
			return err
		}
		*s = st
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("status must be a number or a string: %w", err)
	}
	st, err := ParseStatus(strconv.Itoa(n))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// MarshalJSON encodes the numeric code.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}
