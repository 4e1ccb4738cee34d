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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/clock"
	"github.com/agentcore/runtime/pkg/llm"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/store"
)

func textDriver(text string) *scriptedDriver {
	return &scriptedDriver{turns: [][]llm.Event{{
		{Type: llm.EventTextDelta, TextDelta: text},
		{Type: llm.EventFinish, Finish: llm.FinishStop},
	}}}
}

func TestRunParallelMergesOnQuorum(t *testing.T) {
	gw := store.NewMemory()
	dir := runner.NewDirectory()

	s1 := runner.New(runner.Config{Spec: agentSpec("agent_s1", "s1"), Store: gw, Clock: clock.New(), Driver: textDriver("s1 result")})
	s2 := runner.New(runner.Config{Spec: agentSpec("agent_s2", "s2"), Store: gw, Clock: clock.New(), Driver: textDriver("s2 result")})
	merger := runner.New(runner.Config{Spec: agentSpec("agent_merger", "merger"), Store: gw, Clock: clock.New(), Driver: textDriver("merged answer")})
	dir.Register(s1)
	dir.Register(s2)
	dir.Register(merger)

	orch := New(dir, gw, clock.New(), nil)
	events, err := orch.RunParallel(context.Background(), Spec{
		Name:          "fanout",
		Pattern:       PatternParallel,
		SpecialistIDs: []string{"agent_s1", "agent_s2"},
		MergerID:      "agent_merger",
	}, runner.Input{OwnerID: "user_1", Text: "do the thing"})
	require.NoError(t, err)

	drained := drainEvents(t, events)
	var gotToken bool
	var runEnds int
	for _, ev := range drained {
		if ev.Type == runner.EventToken && ev.Token == "merged answer" {
			gotToken = true
		}
		if ev.Type == runner.EventRunEnd {
			runEnds++
		}
	}
	assert.True(t, gotToken, "merger's output should be forwarded")
	assert.Equal(t, 2, runEnds, "one run_end from the merger's own Run, one from the parent workflow Run")
}

func TestRunParallelFailsQuorumWhenTooFewSucceed(t *testing.T) {
	gw := store.NewMemory()
	dir := runner.NewDirectory()

	s1 := runner.New(runner.Config{Spec: agentSpec("agent_s1b", "s1"), Store: gw, Clock: clock.New(), Driver: textDriver("ok")})
	s2 := runner.New(runner.Config{
		Spec: agentSpec("agent_s2b", "s2"), Store: gw, Clock: clock.New(),
		Driver: &scriptedDriver{turns: [][]llm.Event{{
			{Type: llm.EventFinish, Finish: llm.FinishError, Err: context.DeadlineExceeded},
		}}},
	})
	merger := runner.New(runner.Config{Spec: agentSpec("agent_mergerb", "merger"), Store: gw, Clock: clock.New(), Driver: textDriver("should not run")})
	dir.Register(s1)
	dir.Register(s2)
	dir.Register(merger)

	orch := New(dir, gw, clock.New(), nil)
	events, err := orch.RunParallel(context.Background(), Spec{
		Name:          "fanout2",
		Pattern:       PatternParallel,
		SpecialistIDs: []string{"agent_s1b", "agent_s2b"},
		MergerID:      "agent_mergerb",
		Quorum:        2,
	}, runner.Input{OwnerID: "user_1", Text: "do the thing"})
	require.NoError(t, err)

	drained := drainEvents(t, events)
	var sawQuorumFailed bool
	for _, ev := range drained {
		if ev.Type == runner.EventRunEnd {
			assert.Equal(t, model.RunFailed, ev.RunStatus)
		}
		if ev.Type == runner.EventError && ev.ErrorKind == model.ErrQuorumFailed {
			sawQuorumFailed = true
		}
		assert.NotEqual(t, "should not run", ev.Token)
	}
	assert.True(t, sawQuorumFailed)
}
