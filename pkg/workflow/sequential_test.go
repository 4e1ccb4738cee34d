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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/clock"
	"github.com/agentcore/runtime/pkg/llm"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/store"
	"github.com/agentcore/runtime/pkg/tool"
)

// scriptedDriver replays one fixed turn script per call, mirroring
// pkg/runner's own test driver so workflow tests don't need a real LLM.
type scriptedDriver struct {
	turns [][]llm.Event
	call  int
}

func (d *scriptedDriver) Stream(ctx context.Context, p llm.Params) (<-chan llm.Event, error) {
	var events []llm.Event
	if d.call < len(d.turns) {
		events = d.turns[d.call]
	} else {
		events = []llm.Event{{Type: llm.EventFinish, Finish: llm.FinishStop}}
	}
	d.call++
	ch := make(chan llm.Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func agentSpec(id, name string) *model.AgentSpec {
	return &model.AgentSpec{
		Entity: model.Entity{ID: id}, Name: name, Status: model.AgentActive,
		SystemPrompt: "test", Model: "claude-3-5-sonnet-20241022", MaxTokens: 512,
	}
}

// collectEvents drains ch without a *testing.T, safe to call from a
// goroutine other than the test's own.
func collectEvents(ch <-chan runner.Event) []runner.Event {
	var out []runner.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func drainEvents(t *testing.T, ch <-chan runner.Event) []runner.Event {
	t.Helper()
	var out []runner.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			out = append(out, ev)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out draining events")
	}
	return out
}

func TestRunSequentialHandoffSucceeds(t *testing.T) {
	gw := store.NewMemory()
	dir := runner.NewDirectory()

	specialist := runner.New(runner.Config{
		Spec:  agentSpec("agent_specialist", "specialist"),
		Store: gw,
		Clock: clock.New(),
		Driver: &scriptedDriver{turns: [][]llm.Event{{
			{Type: llm.EventTextDelta, TextDelta: "handled"},
			{Type: llm.EventFinish, Finish: llm.FinishStop},
		}}},
	})
	dir.Register(specialist)

	coordinator := runner.New(runner.Config{
		Spec:  agentSpec("agent_coordinator", "coordinator"),
		Store: gw,
		Clock: clock.New(),
		Tools: []tool.Tool{specialist.AsTool(dir)},
		Driver: &scriptedDriver{turns: [][]llm.Event{
			{
				{Type: llm.EventToolRequest, CallID: "call_1", ToolName: "specialist", Input: map[string]any{"task": "do it"}},
				{Type: llm.EventFinish, Finish: llm.FinishTool},
			},
			{
				{Type: llm.EventTextDelta, TextDelta: "done"},
				{Type: llm.EventFinish, Finish: llm.FinishStop},
			},
		}},
	})
	dir.Register(coordinator)

	orch := New(dir, gw, clock.New(), nil)
	events, err := orch.RunSequential(context.Background(), Spec{
		Pattern:       PatternSequential,
		CoordinatorID: "agent_coordinator",
	}, runner.Input{OwnerID: "user_1", Text: "please handle this"})
	require.NoError(t, err)

	drained := drainEvents(t, events)
	var sawRunEnd bool
	for _, ev := range drained {
		if ev.Type == runner.EventRunEnd {
			sawRunEnd = true
			assert.Equal(t, model.RunSucceeded, ev.RunStatus)
		}
	}
	assert.True(t, sawRunEnd)
}

func TestRunSequentialConstraintNarrowsNextTurn(t *testing.T) {
	gw := store.NewMemory()
	dir := runner.NewDirectory()

	alpha := runner.New(runner.Config{
		Spec:  agentSpec("agent_alpha", "alpha"),
		Store: gw,
		Clock: clock.New(),
		Driver: &scriptedDriver{turns: [][]llm.Event{{
			{Type: llm.EventTextDelta, TextDelta: "alpha done"},
			{Type: llm.EventFinish, Finish: llm.FinishStop},
		}}},
	})
	beta := runner.New(runner.Config{
		Spec:  agentSpec("agent_beta", "beta"),
		Store: gw,
		Clock: clock.New(),
		Driver: &scriptedDriver{turns: [][]llm.Event{{
			{Type: llm.EventTextDelta, TextDelta: "beta done"},
			{Type: llm.EventFinish, Finish: llm.FinishStop},
		}}},
	})
	dir.Register(alpha)
	dir.Register(beta)

	coordinator := runner.New(runner.Config{
		Spec:  agentSpec("agent_coordinator2", "coordinator2"),
		Store: gw,
		Clock: clock.New(),
		Tools: []tool.Tool{alpha.AsTool(dir), beta.AsTool(dir)},
		Driver: &scriptedDriver{turns: [][]llm.Event{
			{
				{Type: llm.EventToolRequest, CallID: "c1", ToolName: "alpha", Input: map[string]any{"task": "go"}},
				{Type: llm.EventFinish, Finish: llm.FinishTool},
			},
			{
				// Violates the handoff constraint: alpha already ran, so
				// only beta should be offered this turn.
				{Type: llm.EventToolRequest, CallID: "c2", ToolName: "alpha", Input: map[string]any{"task": "again"}},
				{Type: llm.EventFinish, Finish: llm.FinishTool},
			},
			{
				{Type: llm.EventTextDelta, TextDelta: "wrapped up"},
				{Type: llm.EventFinish, Finish: llm.FinishStop},
			},
		}},
	})
	dir.Register(coordinator)

	orch := New(dir, gw, clock.New(), nil)
	events, err := orch.RunSequential(context.Background(), Spec{
		Pattern:       PatternSequential,
		CoordinatorID: "agent_coordinator2",
		Constraints:   []HandoffConstraint{{After: "alpha", MustUse: "beta"}},
	}, runner.Input{OwnerID: "user_1", Text: "run alpha then beta"})
	require.NoError(t, err)

	drained := drainEvents(t, events)
	var rejectedAlpha int
	for _, ev := range drained {
		if ev.Type == runner.EventTraceEnd && ev.TraceID == "c2" && ev.ErrorKind == model.ErrToolNotAvailable {
			rejectedAlpha++
		}
	}
	assert.Equal(t, 1, rejectedAlpha, "second alpha call should have been excluded by the constraint and rejected")
}
