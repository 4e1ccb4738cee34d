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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/clock"
	"github.com/agentcore/runtime/pkg/llm"
	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/store"
)

func TestRunEvaluatedSucceedsFirstTry(t *testing.T) {
	gw := store.NewMemory()
	dir := runner.NewDirectory()

	coordinator := runner.New(runner.Config{Spec: agentSpec("agent_coord", "coordinator"), Store: gw, Clock: clock.New(), Driver: textDriver("a good draft")})
	evaluator := runner.New(runner.Config{Spec: agentSpec("agent_eval", "evaluator"), Store: gw, Clock: clock.New(), Driver: textDriver("satisfied, looks great")})
	dir.Register(coordinator)
	dir.Register(evaluator)

	orch := New(dir, gw, clock.New(), nil)
	events, err := orch.RunEvaluated(context.Background(), Spec{
		Name: "evalwf", Pattern: PatternEvaluator, CoordinatorID: "agent_coord", EvaluatorID: "agent_eval", MaxHandoffs: 3,
	}, runner.Input{OwnerID: "user_1", Text: "draft something"})
	require.NoError(t, err)

	drained := drainEvents(t, events)
	var finalToken string
	for _, ev := range drained {
		if ev.Type == runner.EventToken {
			finalToken = ev.Token
		}
	}
	assert.Equal(t, "a good draft", finalToken)
}

func TestRunEvaluatedExhaustsRetriesWithMarker(t *testing.T) {
	gw := store.NewMemory()
	dir := runner.NewDirectory()

	coordinator := runner.New(runner.Config{Spec: agentSpec("agent_coord2", "coordinator"), Store: gw, Clock: clock.New(), Driver: &scriptedDriver{turns: [][]llm.Event{
		{{Type: llm.EventTextDelta, TextDelta: "draft v1"}, {Type: llm.EventFinish, Finish: llm.FinishStop}},
		{{Type: llm.EventTextDelta, TextDelta: "draft v2"}, {Type: llm.EventFinish, Finish: llm.FinishStop}},
	}}})
	evaluator := runner.New(runner.Config{Spec: agentSpec("agent_eval2", "evaluator"), Store: gw, Clock: clock.New(), Driver: &scriptedDriver{turns: [][]llm.Event{
		{{Type: llm.EventTextDelta, TextDelta: "unsatisfied, try again"}, {Type: llm.EventFinish, Finish: llm.FinishStop}},
		{{Type: llm.EventTextDelta, TextDelta: "unsatisfied, still not there"}, {Type: llm.EventFinish, Finish: llm.FinishStop}},
	}}})
	dir.Register(coordinator)
	dir.Register(evaluator)

	orch := New(dir, gw, clock.New(), nil)
	events, err := orch.RunEvaluated(context.Background(), Spec{
		Name: "evalwf2", Pattern: PatternEvaluator, CoordinatorID: "agent_coord2", EvaluatorID: "agent_eval2", MaxHandoffs: 2,
	}, runner.Input{OwnerID: "user_1", Text: "draft something"})
	require.NoError(t, err)

	drained := drainEvents(t, events)
	var finalToken string
	for _, ev := range drained {
		if ev.Type == runner.EventToken {
			finalToken = ev.Token
		}
	}
	assert.True(t, strings.Contains(finalToken, "max_attempts_reached"))
}

