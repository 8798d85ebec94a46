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


package cmdutil

import (
	"context"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/kptdev/coursework/internal/backend"
	"github.com/kptdev/coursework/internal/config"
	"github.com/kptdev/coursework/internal/credstore"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/gitutil"
	"github.com/kptdev/coursework/internal/provision"
	"github.com/kptdev/coursework/internal/submission"
	"github.com/kptdev/coursework/internal/testrun"
	"github.com/kptdev/coursework/internal/types"
	"github.com/kptdev/coursework/internal/util/pathutil"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

// Factory builds the services shared by the commands from the user
// configuration. Services that are already set are used as they are, and
// everything else is created on first use.
type Factory struct {
	// ConfigFile overrides the configuration file location.
	ConfigFile string

	// Home defaults to the user's home directory.
	Home string

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	Store credstore.Store
	API   backend.API
	Clock clockwork.Clock

	cfg       *config.Config
	manager   *provision.Manager
	submitter *submission.Submitter
}

// NewFactory returns a Factory reading the user's configuration.
func NewFactory() *Factory {
	return &Factory{}
}

// AddFlags registers the flags of the factory, usually on the persistent
// flags of the root command.
func (f *Factory) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.ConfigFile, "config", "",
		"path to the configuration file. Defaults to $"+config.ConfigEnv+" or ~/"+config.Dir+"/config.yaml.")
}

func (f *Factory) lookupEnv(key string) (string, bool) {
	if f.LookupEnv != nil {
		return f.LookupEnv(key)
	}
	return os.LookupEnv(key)
}

// Config loads the configuration once.
func (f *Factory) Config() (config.Config, error) {
	const op errors.Op = "cmdutil.Config"
	if f.cfg != nil {
		return *f.cfg, nil
	}
	home := f.Home
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return config.Config{}, errors.E(op, errors.IO, err)
		}
		home = h
	}
	path := f.ConfigFile
	if path == "" {
		path = config.Path(home, f.lookupEnv)
	}
	cfg, err := config.Load(path, home, f.lookupEnv)
	if err != nil {
		return cfg, errors.E(op, err)
	}
	klog.V(2).Infof("loaded configuration from %s", path)
	f.cfg = &cfg
	return cfg, nil
}

// Credentials returns the token store. Without a passphrase the encrypted
// file cannot be opened; reads then fall back to an empty in-memory store
// as long as no file has been written yet, and writes fail.
func (f *Factory) Credentials(write bool) (credstore.Store, error) {
	const op errors.Op = "cmdutil.Credentials"
	if f.Store != nil {
		return f.Store, nil
	}
	cfg, err := f.Config()
	if err != nil {
		return nil, errors.E(op, err)
	}
	passphrase, _ := f.lookupEnv(config.PassphraseEnv)
	if passphrase == "" && !write && !pathutil.Exists(cfg.CredentialStore) {
		f.Store = credstore.NewMemory()
		return f.Store, nil
	}
	store, err := credstore.NewFile(cfg.CredentialStore, passphrase)
	if err != nil {
		return nil, errors.E(op, err)
	}
	f.Store = store
	return store, nil
}

// Tokens resolves access tokens by origin from the credential store and
// the environment.
func (f *Factory) Tokens() (provision.TokenSource, error) {
	const op errors.Op = "cmdutil.Tokens"
	store, err := f.Credentials(false)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return provision.StoreTokenSource{Store: store, LookupEnv: f.LookupEnv}, nil
}

// Backend returns the backend API client with course contents cached.
func (f *Factory) Backend(ctx context.Context) (backend.API, error) {
	const op errors.Op = "cmdutil.Backend"
	if f.API != nil {
		return f.API, nil
	}
	cfg, err := f.Config()
	if err != nil {
		return nil, errors.E(op, err)
	}
	tokens, err := f.Tokens()
	if err != nil {
		return nil, errors.E(op, err)
	}
	token, err := tokens.Token(ctx, gitutil.Origin(cfg.APIURL))
	if err != nil {
		return nil, errors.E(op, err)
	}
	client, err := backend.NewClient(cfg.APIURL, token)
	if err != nil {
		return nil, errors.E(op, err)
	}
	f.API = backend.NewCachingClient(client)
	return f.API, nil
}

// Manager returns the repository provisioning manager of the workspace.
func (f *Factory) Manager() (*provision.Manager, error) {
	const op errors.Op = "cmdutil.Manager"
	if f.manager != nil {
		return f.manager, nil
	}
	cfg, err := f.Config()
	if err != nil {
		return nil, errors.E(op, err)
	}
	tokens, err := f.Tokens()
	if err != nil {
		return nil, errors.E(op, err)
	}
	m, err := provision.NewManager(provision.Options{
		Workspace:   cfg.Workspace,
		Tokens:      tokens,
		AutoResolve: cfg.AutoResolve,
		Policy:      cfg.Policy(),
		MergeTool:   cfg.MergeTool,
		GitTimeout:  cfg.GitTimeout.Duration,
	})
	if err != nil {
		return nil, errors.E(op, err)
	}
	f.manager = m
	return m, nil
}

// Submitter returns the submission protocol runner.
func (f *Factory) Submitter(ctx context.Context) (*submission.Submitter, error) {
	const op errors.Op = "cmdutil.Submitter"
	if f.submitter != nil {
		return f.submitter, nil
	}
	cfg, err := f.Config()
	if err != nil {
		return nil, errors.E(op, err)
	}
	api, err := f.Backend(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	m, err := f.Manager()
	if err != nil {
		return nil, errors.E(op, err)
	}
	s := submission.NewSubmitter(api, m)
	s.Excludes = cfg.Excludes
	s.Clock = f.Clock
	f.submitter = s
	return s, nil
}

// Orchestrator returns a test-run orchestrator showing results on display.
func (f *Factory) Orchestrator(ctx context.Context, display testrun.Display) (*testrun.Orchestrator, error) {
	const op errors.Op = "cmdutil.Orchestrator"
	cfg, err := f.Config()
	if err != nil {
		return nil, errors.E(op, err)
	}
	s, err := f.Submitter(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	return &testrun.Orchestrator{
		Reconciler: s,
		API:        s.API,
		Display:    display,
		Clock:      f.Clock,
		Interval:   cfg.PollInterval.Duration,
		Timeout:    cfg.PollTimeout.Duration,
	}, nil
}

// Request describes the assignment in dir. Fields left empty are taken
// from the workspace index when dir is a provisioned assignment directory.
// If dir or contentID belongs to a course whose repositories were
// deferred, the course is provisioned first.
func (f *Factory) Request(ctx context.Context, dir types.UniquePath, group, contentID, title string) (submission.Request, error) {
	const op errors.Op = "cmdutil.Request"
	req := submission.Request{
		Directory:         dir.String(),
		Title:             title,
		SubmissionGroupID: group,
		ContentID:         contentID,
	}
	m, err := f.Manager()
	if err != nil {
		return req, errors.E(op, err)
	}
	if _, err := m.EnsureAssignment(ctx, contentID, dir.String()); err != nil {
		return req, errors.E(op, err)
	}
	id, entry, found := m.AssignmentForPath(dir.String())
	if !found {
		return req, nil
	}
	if req.SubmissionGroupID == "" {
		req.SubmissionGroupID = entry.SubmissionGroupID
	}
	if req.ContentID == "" {
		req.ContentID = id
	}
	if req.Title == "" {
		req.Title = entry.Title
	}
	return req, nil
}
