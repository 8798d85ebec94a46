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

// Package testrun uploads an assignment as a test artifact, starts a test
// run on the backend, and waits for its result.
package testrun

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kptdev/coursework/internal/backend"
	"github.com/kptdev/coursework/internal/errors"
	"github.com/kptdev/coursework/internal/printer"
	"github.com/kptdev/coursework/internal/submission"
	"k8s.io/klog/v2"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 5 * time.Minute
)

// Reconciler produces the artifact to test. *submission.Submitter
// implements it.
type Reconciler interface {
	Reconcile(ctx context.Context, req submission.Request, submit bool) (submission.Result, error)
}

// Display shows a result to the user.
type Display interface {
	Show(ctx context.Context, r backend.Result) error
}

// Report describes how a test run ended.
type Report struct {
	Submission submission.Result
	ResultID   string
	Status     backend.Status
	// Result is set once a terminal status was observed.
	Result *backend.Result
	// FromContent is true when the backend refused a new run and the
	// result attached to the course content was used instead.
	FromContent bool
	Cancelled   bool
	TimedOut    bool
	Warnings    []string
}

// Orchestrator runs tests. The zero value of the optional fields selects
// the defaults.
type Orchestrator struct {
	Reconciler Reconciler
	API        backend.API
	Display    Display

	Clock    clockwork.Clock
	Interval time.Duration
	Timeout  time.Duration
}

// Run reconciles a test artifact for req and polls its test result.
// Cancelling ctx while polling stops without an error; running out of
// time is reported as a warning.
func (o *Orchestrator) Run(ctx context.Context, req submission.Request) (Report, error) {
	const op errors.Op = "testrun.Run"
	var report Report

	sub, err := o.Reconciler.Reconcile(ctx, req, false)
	if err != nil {
		return report, errors.E(op, err)
	}
	report.Submission = sub

	printer.Progressf(ctx, "starting tests for artifact %s", sub.Artifact.ID)
	resp, err := o.API.SubmitTest(ctx, backend.TestRequest{ArtifactID: sub.Artifact.ID})
	if err != nil {
		if kind, ok := backend.KindOf(err); ok && kind == backend.Conflict && req.ContentID != "" {
			return o.fromContent(ctx, req.ContentID, report, err)
		}
		return report, errors.E(op, backend.WrapCall("starting test run", err))
	}
	report.ResultID = resp.ID
	if resp.Status != nil {
		report.Status = *resp.Status
	}

	if resp.Status == nil || !resp.Status.Terminal() {
		done, err := o.poll(ctx, &report)
		if err != nil {
			return report, errors.E(op, err)
		}
		if !done {
			return report, nil
		}
	}

	result, err := o.API.GetResult(ctx, report.ResultID)
	if err != nil {
		return report, errors.E(op, backend.WrapCall("fetching result "+report.ResultID, err))
	}
	report.Result = &result
	report.Status = result.Status
	return report, o.show(ctx, result)
}

// poll waits for a terminal status. It returns false if polling ended
// because of cancellation or timeout.
func (o *Orchestrator) poll(ctx context.Context, report *Report) (bool, error) {
	clock := o.clock()
	interval, timeout := o.interval(), o.timeout()
	deadline := clock.Now().Add(timeout)

	for {
		timer := clock.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			klog.V(2).Infof("polling result %s cancelled", report.ResultID)
			report.Cancelled = true
			return false, nil
		case <-timer.Chan():
		}

		st, err := o.API.GetResultStatus(ctx, report.ResultID)
		if err != nil {
			if ctx.Err() != nil {
				report.Cancelled = true
				return false, nil
			}
			return false, backend.WrapCall("polling result "+report.ResultID, err)
		}
		report.Status = st
		klog.V(3).Infof("result %s is %s", report.ResultID, st)
		if st.Terminal() {
			return true, nil
		}
		printer.Progressf(ctx, "test run %s is %s", report.ResultID, st)

		if !clock.Now().Before(deadline) {
			report.TimedOut = true
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"test run %s is still %s after %s; it may still finish on the server", report.ResultID, st, timeout))
			return false, nil
		}
	}
}

// fromContent shows the result already attached to the course content.
func (o *Orchestrator) fromContent(ctx context.Context, contentID string, report Report, cause error) (Report, error) {
	const op errors.Op = "testrun.fromContent"
	klog.V(2).Infof("test run refused (%v), using the result of content %s", cause, contentID)
	content, err := o.API.GetCourseContent(ctx, contentID)
	if err != nil {
		return report, errors.E(op, backend.WrapCall("fetching course content "+contentID, err))
	}
	if content.Result == nil {
		return report, errors.E(op, backend.WrapCall("starting test run", cause))
	}
	report.FromContent = true
	report.Result = content.Result
	report.ResultID = content.Result.ID
	report.Status = content.Result.Status
	report.Warnings = append(report.Warnings, "a test run is already in progress, showing the latest result")
	return report, o.show(ctx, *content.Result)
}

func (o *Orchestrator) show(ctx context.Context, r backend.Result) error {
	if o.Display == nil {
		return nil
	}
	if err := o.Display.Show(ctx, r); err != nil {
		return errors.E(errors.Op("testrun.show"), errors.IO, err)
	}
	return nil
}

func (o *Orchestrator) clock() clockwork.Clock {
	if o.Clock == nil {
		return clockwork.NewRealClock()
	}
	return o.Clock
}

func (o *Orchestrator) interval() time.Duration {
	if o.Interval <= 0 {
		return DefaultInterval
	}
	return o.Interval
}

func (o *Orchestrator) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}
