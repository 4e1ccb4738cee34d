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
	"log/slog"

	"github.com/agentcore/runtime/pkg/clock"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/store"
)

// Orchestrator drives workflow Specs against a shared Directory of
// registered Runners. One Orchestrator serves every workflow definition
// in a deployment; Spec is the per-call configuration.
type Orchestrator struct {
	dir    *runner.Directory
	store  store.Gateway
	clock  clock.Clock
	logger *slog.Logger
	gates  *GateRegistry
}

// New returns an Orchestrator resolving participants through dir.
func New(dir *runner.Directory, gw store.Gateway, c clock.Clock, logger *slog.Logger) *Orchestrator {
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{dir: dir, store: gw, clock: c, logger: logger, gates: NewGateRegistry()}
}

// ResumeGate delivers a human decision to a suspended RunHumanGate call.
// Exposed so cmd/agentcored's POST /human-gate/action handler can reach
// it without taking a direct GateRegistry dependency.
func (o *Orchestrator) ResumeGate(token string, d GateDecision) (GateDecision, error) {
	return o.gates.Resume(token, d)
}

func quorumOf(spec Spec) int {
	if spec.Quorum > 0 {
		return spec.Quorum
	}
	n := len(spec.SpecialistIDs)
	return (n + 1) / 2
}

func maxHandoffsOf(spec Spec) int {
	if spec.MaxHandoffs > 0 {
		return spec.MaxHandoffs
	}
	return MaxHandoffsDefault
}

// resolveThread returns the Thread for threadID, or creates a new
// workflow-owned one (Thread.WorkflowID set, per model.Thread.Target)
// when threadID is empty.
func (o *Orchestrator) resolveThread(ctx context.Context, ownerID, workflowID, threadID string) (*model.Thread, error) {
	if threadID != "" {
		return o.store.GetThread(ctx, threadID)
	}
	now := o.clock.Now()
	th := &model.Thread{
		Entity:     model.Entity{ID: o.clock.NewID("thread_"), CreatorID: ownerID, CreatedAt: now},
		OwnerID:    ownerID,
		WorkflowID: workflowID,
		Status:     model.ThreadActive,
	}
	if err := o.store.UpsertThread(ctx, th); err != nil {
		return nil, fmt.Errorf("create workflow thread: %w", err)
	}
	return th, nil
}

// newParentRun opens the workflow's own parent Run (spec.md §4.7: "a
// parent Run is created and each participating agent call produces a
// child Run linked by parentRunId"). There is no WorkflowSpec entity
// (SPEC_FULL.md §3), so AgentID carries the workflow's identity the same
// way Thread.WorkflowID does.
func (o *Orchestrator) newParentRun(ctx context.Context, workflowID, ownerID, threadID, parentRunID string) (*model.Run, error) {
	now := o.clock.Now()
	run := &model.Run{
		Entity:      model.Entity{ID: o.clock.NewID("run_"), CreatorID: ownerID, CreatedAt: now},
		ThreadID:    threadID,
		AgentID:     workflowID,
		Status:      model.RunQueued,
		StartedAt:   now,
		ParentRunID: parentRunID,
	}
	if err := o.store.UpsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create workflow run: %w", err)
	}
	return run, nil
}
