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
	"sync"
)

// GateDecision is the body of POST /human-gate/action (spec.md §4.7).
type GateDecision struct {
	Decision  string // "approve" | "edit" | "reject"
	Overrides map[string]any
}

const (
	DecisionApprove = "approve"
	DecisionEdit    = "edit"
	DecisionReject  = "reject"
)

type gateState struct {
	mu       sync.Mutex
	resolved bool
	decision GateDecision
	ch       chan GateDecision
}

// GateRegistry tracks suspended human-gate waits keyed by callback
// token. Resume is idempotent: a second call with the same token returns
// the first decision without re-delivering it to the waiter.
type GateRegistry struct {
	mu    sync.Mutex
	gates map[string]*gateState
}

// NewGateRegistry returns an empty GateRegistry.
func NewGateRegistry() *GateRegistry {
	return &GateRegistry{gates: make(map[string]*gateState)}
}

func (g *GateRegistry) open(token string) *gateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := &gateState{ch: make(chan GateDecision, 1)}
	g.gates[token] = st
	return st
}

func (g *GateRegistry) close(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.gates[token]; ok {
		st.mu.Lock()
		resolved := st.resolved
		st.mu.Unlock()
		if resolved {
			// Kept so a duplicate Resume still returns the first decision.
			return
		}
	}
	delete(g.gates, token)
}

// Resume delivers d for token to whatever RunHumanGate call is waiting on
// it. Calling Resume again for the same token after it has already been
// resolved is a no-op that returns the first decision, satisfying
// spec.md §4.7's "duplicate decisions return the first result".
func (g *GateRegistry) Resume(token string, d GateDecision) (GateDecision, error) {
	g.mu.Lock()
	st, ok := g.gates[token]
	g.mu.Unlock()
	if !ok {
		return GateDecision{}, fmt.Errorf("agentcore: unknown human-gate token %q", token)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.resolved {
		return st.decision, nil
	}
	st.resolved = true
	st.decision = d
	st.ch <- d
	return d, nil
}

func (g *GateRegistry) wait(ctx context.Context, st *gateState) (GateDecision, error) {
	select {
	case d := <-st.ch:
		return d, nil
	case <-ctx.Done():
		return GateDecision{}, ctx.Err()
	}
}
