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
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/store"
)

func TestRunHumanGateApproveRunsExecutor(t *testing.T) {
	gw := store.NewMemory()
	dir := runner.NewDirectory()
	executor := runner.New(runner.Config{Spec: agentSpec("agent_exec", "executor"), Store: gw, Clock: clock.New(), Driver: textDriver("executed")})
	dir.Register(executor)

	orch := New(dir, gw, clock.New(), nil)
	events, token, err := orch.RunHumanGate(context.Background(), Spec{
		Name: "gatewf", Pattern: PatternHumanGate, ExecutorID: "agent_exec",
	}, runner.Input{OwnerID: "user_1"}, map[string]any{"task": "ship the release"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Gate waits for a decision; drain concurrently then resume.
	resultCh := make(chan []runner.Event, 1)
	go func() { resultCh <- collectEvents(events) }()

	time.Sleep(20 * time.Millisecond)
	_, err = orch.ResumeGate(token, GateDecision{Decision: DecisionApprove})
	require.NoError(t, err)

	var drained []runner.Event
	select {
	case drained = <-resultCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for gate resolution")
	}

	var sawGate, sawExecutorToken bool
	for _, ev := range drained {
		if ev.Type == runner.EventTraceUpdate && ev.GateToken == token {
			sawGate = true
		}
		if ev.Type == runner.EventToken && ev.Token == "executed" {
			sawExecutorToken = true
		}
	}
	assert.True(t, sawGate)
	assert.True(t, sawExecutorToken)
}

func TestRunHumanGateRejectSkipsExecutor(t *testing.T) {
	gw := store.NewMemory()
	dir := runner.NewDirectory()
	executor := runner.New(runner.Config{Spec: agentSpec("agent_exec2", "executor"), Store: gw, Clock: clock.New(), Driver: textDriver("should not run")})
	dir.Register(executor)

	orch := New(dir, gw, clock.New(), nil)
	events, token, err := orch.RunHumanGate(context.Background(), Spec{
		Name: "gatewf2", Pattern: PatternHumanGate, ExecutorID: "agent_exec2",
	}, runner.Input{OwnerID: "user_1"}, map[string]any{"task": "delete prod"})
	require.NoError(t, err)

	resultCh := make(chan []runner.Event, 1)
	go func() { resultCh <- collectEvents(events) }()
	time.Sleep(20 * time.Millisecond)
	_, err = orch.ResumeGate(token, GateDecision{Decision: DecisionReject})
	require.NoError(t, err)

	var drained []runner.Event
	select {
	case drained = <-resultCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for gate resolution")
	}

	for _, ev := range drained {
		assert.NotEqual(t, "should not run", ev.Token)
		if ev.Type == runner.EventRunEnd {
			assert.Equal(t, model.RunSucceeded, ev.RunStatus)
		}
	}
}

func TestRunHumanGateResumeIsIdempotent(t *testing.T) {
	gw := store.NewMemory()
	dir := runner.NewDirectory()
	executor := runner.New(runner.Config{Spec: agentSpec("agent_exec3", "executor"), Store: gw, Clock: clock.New(), Driver: textDriver("ok")})
	dir.Register(executor)

	orch := New(dir, gw, clock.New(), nil)
	events, token, err := orch.RunHumanGate(context.Background(), Spec{
		Name: "gatewf3", Pattern: PatternHumanGate, ExecutorID: "agent_exec3",
	}, runner.Input{OwnerID: "user_1"}, map[string]any{"task": "t"})
	require.NoError(t, err)

	go collectEvents(events)
	time.Sleep(20 * time.Millisecond)

	first, err := orch.ResumeGate(token, GateDecision{Decision: DecisionApprove})
	require.NoError(t, err)
	second, err := orch.ResumeGate(token, GateDecision{Decision: DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, first, second, "duplicate decisions must return the first result")
}
