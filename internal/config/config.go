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

// Package config loads the user configuration of the coursework CLI.
package config

import (
	goerrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/forkupdate"
	"github.com/kptdev/coursework/internal/gitutil"
	"github.com/kptdev/coursework/internal/testrun"
	"github.com/kptdev/coursework/internal/types"
	yamlv3 "gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

// Environment variables read by Load.
const (
	ConfigEnv     = "COURSEWORK_CONFIG"
	APIURLEnv     = "COURSEWORK_API_URL"
	WorkspaceEnv  = "COURSEWORK_WORKSPACE"
	PassphraseEnv = "COURSEWORK_PASSPHRASE"
)

// Dir is the per-user directory holding configuration and credentials,
// relative to the home directory.
const Dir = ".coursework"

// Config is the content of the configuration file.
type Config struct {
	// APIURL is the base URL of the course backend.
	APIURL string `json:"apiURL,omitempty"`

	// Workspace is where repositories are cloned.
	Workspace string `json:"workspace,omitempty"`

	// CredentialStore is the encrypted token file.
	CredentialStore string `json:"credentialStore,omitempty"`

	GitTimeout   metav1.Duration `json:"gitTimeout,omitempty"`
	PollInterval metav1.Duration `json:"pollInterval,omitempty"`
	PollTimeout  metav1.Duration `json:"pollTimeout,omitempty"`

	// ConflictPolicy is one of forkupdate.Policies().
	ConflictPolicy string `json:"conflictPolicy,omitempty"`
	MergeTool      string `json:"mergeTool,omitempty"`
	AutoResolve    bool   `json:"autoResolve,omitempty"`

	// Excludes are extra names left out of submission archives.
	Excludes []string `json:"excludes,omitempty"`
}

// Default returns the configuration used when nothing is configured.
// home is the user's home directory.
func Default(home string) Config {
	return Config{
		Workspace:       filepath.Join(home, "coursework"),
		CredentialStore: filepath.Join(home, Dir, "credentials.age"),
		GitTimeout:      metav1.Duration{Duration: gitutil.DefaultTimeout},
		PollInterval:    metav1.Duration{Duration: testrun.DefaultInterval},
		PollTimeout:     metav1.Duration{Duration: testrun.DefaultTimeout},
		ConflictPolicy:  string(forkupdate.DefaultPolicy),
	}
}

// Path returns the configuration file location: $COURSEWORK_CONFIG, or
// config.yaml in Dir below home.
func Path(home string, lookupEnv func(string) (string, bool)) string {
	if p, found := lookupEnv(ConfigEnv); found && p != "" {
		return p
	}
	return filepath.Join(home, Dir, "config.yaml")
}

// Load reads the configuration at path on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path, home string, lookupEnv func(string) (string, bool)) (Config, error) {
	const op errors.Op = "config.Load"
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	cfg := Default(home)

	b, err := os.ReadFile(path)
	switch {
	case goerrors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, errors.E(op, errors.IO, types.UniquePath(path), err)
	default:
		if err := checkKeys(b); err != nil {
			return cfg, errors.E(op, errors.InvalidParam, types.UniquePath(path), err)
		}
		if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
			return cfg, errors.E(op, errors.InvalidParam, types.UniquePath(path), err)
		}
	}

	if v, found := lookupEnv(APIURLEnv); found && v != "" {
		cfg.APIURL = v
	}
	if v, found := lookupEnv(WorkspaceEnv); found && v != "" {
		cfg.Workspace = v
	}
	cfg.Workspace = expandHome(cfg.Workspace, home)
	cfg.CredentialStore = expandHome(cfg.CredentialStore, home)

	if err := cfg.Validate(); err != nil {
		return cfg, errors.E(op, types.UniquePath(path), err)
	}
	return cfg, nil
}

// fileKeys are the top-level keys of the configuration file, spelled
// exactly as in the json tags of Config.
var fileKeys = func() map[string]bool {
	keys := map[string]bool{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		keys[name] = true
	}
	return keys
}()

// checkKeys rejects top-level keys that do not name a field exactly. The
// JSON based decoder matches field names ignoring case, so a key such as
// apiUrl would otherwise be accepted.
func checkKeys(b []byte) error {
	var doc map[string]yamlv3.Node
	if err := yamlv3.Unmarshal(b, &doc); err != nil {
		return err
	}
	var unknown []string
	for k := range doc {
		if !fileKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	msg := fmt.Sprintf("unknown field %q", unknown[0])
	for known := range fileKeys {
		if strings.EqualFold(known, unknown[0]) {
			msg += fmt.Sprintf(", did you mean %q", known)
			break
		}
	}
	return goerrors.New(msg)
}

// Validate checks the values that can be checked without network access.
func (c Config) Validate() error {
	const op errors.Op = "config.Validate"
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.E(op, errors.InvalidParam, fmt.Errorf("apiURL %q must be an http(s) URL", c.APIURL))
		}
	}
	if c.Workspace == "" {
		return errors.E(op, errors.InvalidParam, "workspace must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"gitTimeout":   c.GitTimeout.Duration,
		"pollInterval": c.PollInterval.Duration,
		"pollTimeout":  c.PollTimeout.Duration,
	} {
		if d <= 0 {
			return errors.E(op, errors.InvalidParam, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.PollInterval.Duration > c.PollTimeout.Duration {
		return errors.E(op, errors.InvalidParam, "pollInterval must not exceed pollTimeout")
	}
	policy, err := forkupdate.ParsePolicy(c.ConflictPolicy)
	if err != nil {
		return errors.E(op, err)
	}
	if policy == forkupdate.ExternalTool && c.MergeTool == "" {
		return errors.E(op, errors.MissingParam, "conflictPolicy external-tool requires mergeTool")
	}
	return nil
}

// Policy returns the parsed conflict policy. Call Validate first.
func (c Config) Policy() forkupdate.PolicyType {
	p, err := forkupdate.ParsePolicy(c.ConflictPolicy)
	if err != nil {
		return forkupdate.DefaultPolicy
	}
	return p
}

func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if len(p) > 1 && p[0] == '~' && (p[1] == '/' || p[1] == filepath.Separator) {
		return filepath.Join(home, p[2:])
	}
	return p
}
