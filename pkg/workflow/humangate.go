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

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
)

// RunHumanGate emits a trace_update with message "awaiting_human" carrying
// recommendation (GatePayload) and a callback token (GateToken), then suspends: the Run's status stays `running`
// and the only further frames are keep-alives (the Streaming Facade
// already emits those; this call simply holds out open without writing
// to it) until ResumeGate delivers a decision for the returned token.
//
// On reject the workflow Run terminates `succeeded` with a terminal
// reject payload. On approve/edit, spec.ExecutorID is invoked with the
// recommendation (merged with Overrides, for edit) as input text, and its
// reply becomes the workflow's output (spec.md §4.7).
func (o *Orchestrator) RunHumanGate(ctx context.Context, spec Spec, in runner.Input, recommendation map[string]any) (events <-chan runner.Event, token string, err error) {
	executor, ok := o.dir.Get(spec.ExecutorID)
	if !ok {
		return nil, "", fmt.Errorf("agentcore: unknown executor agent %q", spec.ExecutorID)
	}

	workflowID := "workflow:" + spec.Name
	thread, err := o.resolveThread(ctx, in.OwnerID, workflowID, in.ThreadID)
	if err != nil {
		return nil, "", err
	}
	parent, err := o.newParentRun(ctx, workflowID, in.OwnerID, thread.ID, in.ParentRunID)
	if err != nil {
		return nil, "", err
	}

	token = o.clock.NewID("gate_")
	st := o.gates.open(token)

	out := make(chan runner.Event, 16)
	go o.driveHumanGate(ctx, parent, thread, executor, in, recommendation, token, st, out)
	return out, token, nil
}

func (o *Orchestrator) driveHumanGate(
	ctx context.Context,
	parent *model.Run,
	thread *model.Thread,
	executor *runner.Runner,
	in runner.Input,
	recommendation map[string]any,
	token string,
	st *gateState,
	out chan<- runner.Event,
) {
	defer close(out)
	defer o.gates.close(token)
	log := o.logger.With("runId", parent.ID, "pattern", "human_gate", "gateToken", token)

	_ = parent.Transition(model.RunRunning, o.clock.Now(), model.TokenUsage{}, 0, "")
	_ = o.store.UpsertRun(ctx, parent)

	out <- runner.Event{
		Type: runner.EventTraceUpdate, TS: o.clock.Now(), Message: "awaiting_human",
		GateToken: token, GatePayload: recommendation,
	}

	decision, err := o.gates.wait(ctx, st)
	if err != nil {
		_ = parent.Transition(model.RunCancelled, o.clock.Now(), model.TokenUsage{}, 0, model.ErrCancelled)
		_ = o.store.UpsertRun(ctx, parent)
		out <- runner.Event{Type: runner.EventRunEnd, TS: o.clock.Now(), RunID: parent.ID, RunStatus: model.RunCancelled}
		out <- runner.Event{Type: runner.EventDone, TS: o.clock.Now()}
		return
	}

	if decision.Decision == DecisionReject {
		_ = parent.Transition(model.RunSucceeded, o.clock.Now(), model.TokenUsage{}, 0, "")
		_ = o.store.UpsertRun(ctx, parent)
		out <- runner.Event{Type: runner.EventToken, TS: o.clock.Now(), Token: "rejected by reviewer"}
		out <- runner.Event{Type: runner.EventRunEnd, TS: o.clock.Now(), RunID: parent.ID, RunStatus: model.RunSucceeded}
		out <- runner.Event{Type: runner.EventDone, TS: o.clock.Now()}
		return
	}

	payload := recommendation
	if decision.Decision == DecisionEdit {
		payload = mergeOverrides(recommendation, decision.Overrides)
	}

	executorEvents, err := executor.Stream(ctx, runner.Input{
		ThreadID: thread.ID, OwnerID: in.OwnerID, Text: renderPayload(payload), ParentRunID: parent.ID,
	})
	if err != nil {
		log.Error("executor stream failed", "err", err)
		_ = parent.Transition(model.RunFailed, o.clock.Now(), model.TokenUsage{}, 0, model.ErrPersistence)
		_ = o.store.UpsertRun(ctx, parent)
		out <- runner.Event{Type: runner.EventRunEnd, TS: o.clock.Now(), RunID: parent.ID, RunStatus: model.RunFailed}
		out <- runner.Event{Type: runner.EventError, TS: o.clock.Now(), Err: err}
		return
	}

	finalStatus := model.RunSucceeded
	for ev := range executorEvents {
		if ev.Type == runner.EventRunEnd {
			finalStatus = ev.RunStatus
		}
		if ev.Type == runner.EventDone {
			continue
		}
		out <- ev
	}

	_ = parent.Transition(finalStatus, o.clock.Now(), model.TokenUsage{}, 0, "")
	_ = o.store.UpsertRun(ctx, parent)
	out <- runner.Event{Type: runner.EventRunEnd, TS: o.clock.Now(), RunID: parent.ID, RunStatus: finalStatus}
	out <- runner.Event{Type: runner.EventDone, TS: o.clock.Now()}
}

// mergeOverrides returns a new map: recommendation with overrides applied
// on top, key by key.
func mergeOverrides(recommendation, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(recommendation)+len(overrides))
	for k, v := range recommendation {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func renderPayload(payload map[string]any) string {
	if task, ok := payload["task"].(string); ok && task != "" {
		return task
	}
	return fmt.Sprintf("%v", payload)
}
