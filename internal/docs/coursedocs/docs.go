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


// Package coursedocs holds the help texts of the coursework commands.
package coursedocs

var CliShort = `Work with course assignment repositories`
var CliLong = `
coursework keeps a local workspace of assignment repositories in sync with
the course backend, commits and pushes your work, and submits or tests it.

Configuration is read from ~/.coursework/config.yaml. Tokens for git
remotes and the backend are kept in an encrypted credential file unlocked
with $COURSEWORK_PASSPHRASE, and $COURSEWORK_TOKEN is used when no token
is stored for an origin.
`

var RepoShort = `Provision and update assignment repositories`
var RepoLong = `
Commands that clone assignment repositories into the workspace, keep the
remotes configured and merge changes published in the course templates.
`

var SyncShort = `Clone or update the repositories of your courses`
var SyncLong = `
  coursework repo sync [flags]

Lists the contents of every course you are enrolled in and makes sure the
repository of each assignment is cloned into the workspace. Existing
repositories get their remotes checked and upstream changes merged and
pushed. Repositories of courses not named with --course are reported as
deferred and left untouched.
`
var SyncExamples = `
  # provision all courses
  $ coursework repo sync

  # provision only two courses
  $ coursework repo sync --course c-101 --course c-202
`

var ListShort = `Show the repositories and assignments of the workspace`
var ListLong = `
  coursework repo list [--course ID...]

Prints a tree of the provisioned repositories with the assignment
directories they contain. Repositories of courses left out of
'repo sync --course' are listed as deferred; they are cloned the first
time one of their assignments is used, or when the course is named
with --course here.
`

var ForkUpdateShort = `Merge template changes into a repository`
var ForkUpdateLong = `
  coursework repo fork-update [PATH] [flags]

Args:

  PATH:
    A directory inside the repository. Defaults to the current directory.

Fast-forwards the current branch to origin, merges the default branch of
the upstream template and pushes the result. Local uncommitted changes are
stashed during the update. Conflicts are resolved with --policy when
--auto-resolve is set; otherwise the merge is aborted and the conflicting
files are listed.
`
var ForkUpdateExamples = `
  # update the repository in the current directory
  $ coursework repo fork-update

  # resolve conflicts by keeping files you changed
  $ coursework repo fork-update ~/coursework/go/assignments --auto-resolve --policy prefer-local
`

var SubmitShort = `Commit, push and submit an assignment`
var SubmitLong = `
  coursework submit [DIR] [flags]

Args:

  DIR:
    The assignment directory. Defaults to the current directory.

Commits all changes of the repository, pushes them and makes sure the
backend holds a submitted artifact for the pushed commit. Submitting the
same commit twice does not create a second artifact.
`
var SubmitExamples = `
  # submit the assignment in the current directory
  $ coursework submit

  # submit a directory that is not in the workspace index
  $ coursework submit ./week1 --group sg-17 --content ct-3
`

var CommitShort = `Commit and push the changes of an assignment`
var CommitLong = `
  coursework commit [DIR]

Stages the changes below DIR only, commits them and pushes the branch to
origin. Nothing is uploaded to the backend.
`

var TestShort = `Run the backend tests for an assignment`
var TestLong = `
  coursework test [DIR] [flags]

Commits and pushes the assignment, uploads a test artifact unless one
exists for the commit, requests a test run and waits for the result.
Interrupting the command stops waiting without an error.
`
var TestExamples = `
  $ coursework test ./week1
`

var TokenShort = `Manage the stored access tokens`
var TokenLong = `
Tokens are stored per origin (scheme://host) in the encrypted credential
file. $COURSEWORK_PASSPHRASE must be set.
`
var TokenSetShort = `Store a token for an origin, read from stdin`
var TokenSetExamples = `
  $ echo "$GITLAB_TOKEN" | coursework token set https://gitlab.example.com
`
var TokenDeleteShort = `Remove the token of an origin`
