// Copyright 2025 The Agentcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
)

// RunEvaluated drives the re-routing pattern (spec.md §4.7): a
// coordinator produces a candidate, spec.SpecialistID (or the
// coordinator itself, if unset) executes it, and spec.EvaluatorID judges
// the result. An evaluator reply containing "unsatisfied" sends control
// back to the coordinator, with the evaluator's own text folded into the
// next attempt's input as feedback, for up to maxHandoffsOf(spec)
// attempts. Exhausting the budget returns the last attempt's output with
// a max_attempts_reached marker rather than failing the Run.
func (o *Orchestrator) RunEvaluated(ctx context.Context, spec Spec, in runner.Input) (<-chan runner.Event, error) {
	coordinator, ok := o.dir.Get(spec.CoordinatorID)
	if !ok {
		return nil, fmt.Errorf("agentcore: unknown coordinator agent %q", spec.CoordinatorID)
	}
	specialistID := spec.SpecialistID
	if specialistID == "" {
		specialistID = spec.CoordinatorID
	}
	specialist, ok := o.dir.Get(specialistID)
	if !ok {
		return nil, fmt.Errorf("agentcore: unknown specialist agent %q", specialistID)
	}
	evaluator, ok := o.dir.Get(spec.EvaluatorID)
	if !ok {
		return nil, fmt.Errorf("agentcore: unknown evaluator agent %q", spec.EvaluatorID)
	}

	workflowID := "workflow:" + spec.Name
	thread, err := o.resolveThread(ctx, in.OwnerID, workflowID, in.ThreadID)
	if err != nil {
		return nil, err
	}
	parent, err := o.newParentRun(ctx, workflowID, in.OwnerID, thread.ID, in.ParentRunID)
	if err != nil {
		return nil, err
	}

	out := make(chan runner.Event, 64)
	go o.driveEvaluated(ctx, parent, coordinator, specialist, evaluator, in, maxHandoffsOf(spec), out)
	return out, nil
}

func (o *Orchestrator) driveEvaluated(
	ctx context.Context,
	parent *model.Run,
	coordinator, specialist, evaluator *runner.Runner,
	in runner.Input,
	maxAttempts int,
	out chan<- runner.Event,
) {
	defer close(out)
	log := o.logger.With("runId", parent.ID, "pattern", "evaluator")

	_ = parent.Transition(model.RunRunning, o.clock.Now(), model.TokenUsage{}, 0, "")
	_ = o.store.UpsertRun(ctx, parent)

	fail := func(kind model.ErrorKind, err error) {
		_ = parent.Transition(model.RunFailed, o.clock.Now(), model.TokenUsage{}, 0, kind)
		_ = o.store.UpsertRun(ctx, parent)
		out <- runner.Event{Type: runner.EventRunEnd, TS: o.clock.Now(), RunID: parent.ID, RunStatus: model.RunFailed}
		out <- runner.Event{Type: runner.EventError, TS: o.clock.Now(), ErrorKind: kind, Err: err}
	}

	succeed := func(text string) {
		_ = parent.Transition(model.RunSucceeded, o.clock.Now(), model.TokenUsage{}, 0, "")
		_ = o.store.UpsertRun(ctx, parent)
		out <- runner.Event{Type: runner.EventToken, TS: o.clock.Now(), Token: text}
		out <- runner.Event{Type: runner.EventRunEnd, TS: o.clock.Now(), RunID: parent.ID, RunStatus: model.RunSucceeded}
		out <- runner.Event{Type: runner.EventDone, TS: o.clock.Now()}
	}

	runAsWorkflowChild := func(agentID, input string) (string, error) {
		return o.dir.Invoke(runner.WithParentRunID(ctx, parent.ID), agentID, input)
	}

	task := in.Text
	var lastOutput string
	for attempt := 1; ; attempt++ {
		candidate, err := runAsWorkflowChild(coordinator.AgentID(), task)
		if err != nil {
			log.Error("coordinator attempt failed", "attempt", attempt, "err", err)
			fail(model.ErrA2A, err)
			return
		}

		specOutput := candidate
		if specialist.AgentID() != coordinator.AgentID() {
			specOutput, err = runAsWorkflowChild(specialist.AgentID(), candidate)
			if err != nil {
				log.Error("specialist attempt failed", "attempt", attempt, "err", err)
				fail(model.ErrA2A, err)
				return
			}
		}
		lastOutput = specOutput

		verdict, err := runAsWorkflowChild(evaluator.AgentID(), specOutput)
		if err != nil {
			log.Error("evaluator failed", "attempt", attempt, "err", err)
			fail(model.ErrA2A, err)
			return
		}

		out <- runner.Event{Type: runner.EventTraceUpdate, TS: o.clock.Now(), Message: fmt.Sprintf("attempt %d evaluated", attempt)}

		if !strings.Contains(strings.ToLower(verdict), "unsatisfied") {
			succeed(lastOutput)
			return
		}
		if attempt >= maxAttempts {
			succeed(lastOutput + " [max_attempts_reached]")
			return
		}
		task = fmt.Sprintf("%s\n\nPrevious attempt was rejected with feedback: %s", in.Text, verdict)
	}
}
