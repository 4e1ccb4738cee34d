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

	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/tool"
)

// RunSequential drives spec.CoordinatorID's own Runner, which has
// spec.CoordinatorID's specialists already registered as agent-as-tools
// (spec.md §4.4, §4.7: "the coordinator decides routing via normal
// tool_request"). The handoff constraint — "if tool X was used, the next
// tool must be Y" — is enforced by re-injecting a tool.Predicate before
// each turn via in.NextFilter, reusing the Runner's own per-turn filter
// hook rather than watching its output channel (which would race the
// Runner's next turn starting before an external watcher observed the
// previous one).
//
// Terminal condition is whatever the coordinator's own Runner produces:
// a normal run_end on finish=stop, or RunFailed{ErrMaxIterations} once
// its MaxToolTurns budget (which callers should build equal to
// spec.MaxHandoffs) is exhausted — spec.md §4.7's "maxHandoffs reached".
// A model that requests a tool the current filter excludes gets
// ToolNotAvailable back as its tool result, which is itself the
// "rejected with a re-prompt message" spec.md calls for: the Runner
// feeds that error back into the conversation and continues the loop.
func (o *Orchestrator) RunSequential(ctx context.Context, spec Spec, in runner.Input) (<-chan runner.Event, error) {
	coordinator, ok := o.dir.Get(spec.CoordinatorID)
	if !ok {
		return nil, fmt.Errorf("agentcore: unknown coordinator agent %q", spec.CoordinatorID)
	}
	in.NextFilter = handoffFilter(spec.Constraints)
	return coordinator.Stream(ctx, in)
}

// handoffFilter returns a runner.Input.NextFilter that, once a
// constrained tool appears among a turn's dispatched tools, narrows the
// following turn to exactly the tool it mandates. nil when spec declares
// no constraints, leaving the coordinator's tool list untouched.
func handoffFilter(constraints []HandoffConstraint) func([]string) tool.Predicate {
	if len(constraints) == 0 {
		return nil
	}
	mustUseAfter := make(map[string]string, len(constraints))
	for _, c := range constraints {
		mustUseAfter[c.After] = c.MustUse
	}
	return func(used []string) tool.Predicate {
		for _, name := range used {
			if mustUse, ok := mustUseAfter[name]; ok {
				return tool.Allow(mustUse)
			}
		}
		return nil
	}
}
