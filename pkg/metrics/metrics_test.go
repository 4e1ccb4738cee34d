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

package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
)

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	m := New(Config{})
	assert.Nil(t, m)
	// Must be safe to call on a nil receiver everywhere downstream.
	m.RunStarted("agent_x")
	m.RunEnded("agent_x", "succeeded", time.Millisecond)
	m.ToolCalled("search", "succeeded", time.Millisecond)
	m.TokensUsed("agent_x", 10, 20)
}

func TestHandlerServesPrometheusExposition(t *testing.T) {
	m := New(Config{MetricsEnabled: true})
	require.NotNil(t, m)
	m.RunEnded("agent_x", "succeeded", 250*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "agentcore_run_total")
}

func TestObserveRecordsRunAndToolMetrics(t *testing.T) {
	m := New(Config{MetricsEnabled: true})
	require.NotNil(t, m)

	events := make(chan runner.Event, 4)
	events <- runner.Event{Type: runner.EventTraceEnd, Tool: "search", TraceStatus: "succeeded", LatencyMs: 12, Tokens: model.TokenUsage{In: 5, Out: 7}}
	events <- runner.Event{Type: runner.EventRunEnd, RunStatus: model.RunSucceeded}
	close(events)

	Observe(events, m, "agent_x", time.Now())

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()
	assert.Contains(t, body, "agentcore_tool_calls_total")
	assert.Contains(t, body, "agentcore_tokens_total")
}
