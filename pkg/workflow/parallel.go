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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
)

type specialistOutcome struct {
	agentID string
	text    string
	err     error
	errKind model.ErrorKind
}

// RunParallel schedules spec.SpecialistIDs concurrently on the same
// input via errgroup (SetLimit left disabled: all N run at once, each
// under its own deadline), waits for all to settle, then — if at least
// quorumOf(spec) succeeded — feeds their outputs to spec.MergerID.
// Stragglers past their deadline are cancelled and reported as
// {error:Timeout}; falling short of quorum fails the workflow Run with
// QuorumFailed instead of running the merger (spec.md §4.7).
func (o *Orchestrator) RunParallel(ctx context.Context, spec Spec, in runner.Input) (<-chan runner.Event, error) {
	specialists := make([]*runner.Runner, 0, len(spec.SpecialistIDs))
	for _, id := range spec.SpecialistIDs {
		sp, ok := o.dir.Get(id)
		if !ok {
			return nil, fmt.Errorf("agentcore: unknown specialist agent %q", id)
		}
		specialists = append(specialists, sp)
	}
	merger, ok := o.dir.Get(spec.MergerID)
	if !ok {
		return nil, fmt.Errorf("agentcore: unknown merger agent %q", spec.MergerID)
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

	deadline := spec.SpecialistDeadline
	if deadline <= 0 {
		deadline = DefaultSpecialistDeadline
	}

	out := make(chan runner.Event, 64)
	go o.driveParallel(ctx, parent, thread, specialists, merger, in, deadline, quorumOf(spec), out)
	return out, nil
}

func (o *Orchestrator) driveParallel(
	ctx context.Context,
	parent *model.Run,
	thread *model.Thread,
	specialists []*runner.Runner,
	merger *runner.Runner,
	in runner.Input,
	deadline time.Duration,
	quorum int,
	out chan<- runner.Event,
) {
	defer close(out)
	log := o.logger.With("runId", parent.ID, "pattern", "parallel")

	_ = parent.Transition(model.RunRunning, o.clock.Now(), model.TokenUsage{}, 0, "")
	_ = o.store.UpsertRun(ctx, parent)

	results := make([]specialistOutcome, len(specialists))
	g, gctx := errgroup.WithContext(ctx)
	for i, sp := range specialists {
		i, sp := i, sp
		g.Go(func() error {
			specCtx, cancel := context.WithTimeout(gctx, deadline)
			defer cancel()

			traceID := o.clock.NewID("trace_")
			out <- runner.Event{Type: runner.EventTraceStart, TS: o.clock.Now(), TraceID: traceID, Tool: sp.AgentID(), Target: sp.AgentID()}

			started := o.clock.Now()
			text, err := o.dir.Invoke(runner.WithParentRunID(specCtx, parent.ID), sp.AgentID(), in.Text)
			latency := o.clock.Now().Sub(started).Milliseconds()

			status := "succeeded"
			var errKind model.ErrorKind
			if err != nil {
				status = "failed"
				if specCtx.Err() != nil {
					errKind = model.ErrTimeout
				} else {
					errKind = model.ErrA2A
				}
			}
			out <- runner.Event{Type: runner.EventTraceEnd, TS: o.clock.Now(), TraceID: traceID, TraceStatus: status, LatencyMs: latency, ErrorKind: errKind}
			results[i] = specialistOutcome{agentID: sp.AgentID(), text: text, err: err, errKind: errKind}
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	var merged strings.Builder
	for _, r := range results {
		merged.WriteString(r.agentID)
		merged.WriteString(": ")
		if r.err == nil {
			succeeded++
			merged.WriteString(r.text)
		} else if r.errKind == model.ErrTimeout {
			merged.WriteString("{error:Timeout}")
		} else {
			merged.WriteString(fmt.Sprintf("{error:%s}", r.errKind))
		}
		merged.WriteString("\n")
	}

	if succeeded < quorum {
		_ = parent.Transition(model.RunFailed, o.clock.Now(), model.TokenUsage{}, 0, model.ErrQuorumFailed)
		_ = o.store.UpsertRun(ctx, parent)
		out <- runner.Event{Type: runner.EventRunEnd, TS: o.clock.Now(), RunID: parent.ID, RunStatus: model.RunFailed}
		out <- runner.Event{Type: runner.EventError, TS: o.clock.Now(), ErrorKind: model.ErrQuorumFailed,
			Err: fmt.Errorf("parallel fan-out: %d/%d specialists succeeded, need %d", succeeded, len(specialists), quorum)}
		return
	}

	mergerEvents, err := merger.Stream(ctx, runner.Input{ThreadID: thread.ID, OwnerID: in.OwnerID, Text: merged.String(), ParentRunID: parent.ID})
	if err != nil {
		log.Error("merger stream failed", "err", err)
		_ = parent.Transition(model.RunFailed, o.clock.Now(), model.TokenUsage{}, 0, model.ErrPersistence)
		_ = o.store.UpsertRun(ctx, parent)
		out <- runner.Event{Type: runner.EventRunEnd, TS: o.clock.Now(), RunID: parent.ID, RunStatus: model.RunFailed}
		out <- runner.Event{Type: runner.EventError, TS: o.clock.Now(), Err: err}
		return
	}

	finalStatus := model.RunSucceeded
	for ev := range mergerEvents {
		// The merger's own run_end/done close out its child Run, not the
		// workflow's; done is swallowed here and re-emitted once below,
		// after the parent Run itself is marked terminal.
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
