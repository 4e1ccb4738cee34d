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
	"time"

	"github.com/agentcore/runtime/pkg/runner"
)

// Observe drains a Run's event channel, feeding trace_end and run_end
// frames into m, and returns once the channel closes. It changes nothing
// about the events themselves; callers that also need to forward events
// downstream (to the Streaming Facade) should tee the channel before
// calling Observe, not pass the original consumer's channel here.
func Observe(events <-chan runner.Event, m *Metrics, agentID string, started time.Time) {
	if m == nil {
		for range events {
		}
		return
	}
	m.RunStarted(agentID)
	for ev := range events {
		switch ev.Type {
		case runner.EventTraceEnd:
			if ev.Tool != "" {
				m.ToolCalled(ev.Tool, ev.TraceStatus, time.Duration(ev.LatencyMs)*time.Millisecond)
			}
			if ev.Tokens.In > 0 || ev.Tokens.Out > 0 {
				m.TokensUsed(agentID, int(ev.Tokens.In), int(ev.Tokens.Out))
			}
		case runner.EventRunEnd:
			m.RunEnded(agentID, string(ev.RunStatus), time.Since(started))
		}
	}
}
