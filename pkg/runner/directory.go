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

package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/agentcore/runtime/pkg/tool"
	"github.com/agentcore/runtime/pkg/tool/agenttool"
)

type parentRunIDKey struct{}

// WithParentRunID attaches the calling Run's ID to ctx, so a Runner invoked
// as a tool (directly or via A2A) can link its child Run back to its
// caller without widening the tool.Tool interface.
func WithParentRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, parentRunIDKey{}, runID)
}

func parentRunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(parentRunIDKey{}).(string)
	return id
}

// Directory resolves a Runner by AgentSpec ID at invoke time rather than
// at tool-build time, which is what lets two agents list each other as
// tools without a build-time cycle (spec.md §9 redesign note; grounded on
// the teacher's registry_service.go lazy-resolution idea).
type Directory struct {
	mu      sync.RWMutex
	runners map[string]*Runner
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{runners: make(map[string]*Runner)}
}

// Register makes r reachable by its AgentID.
func (d *Directory) Register(r *Runner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runners[r.AgentID()] = r
}

// Get returns the Runner registered for agentID, for callers (the
// Workflow Orchestrator) that need its full Event stream rather than
// Invoke's collapsed final-text reply.
func (d *Directory) Get(agentID string) (*Runner, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.runners[agentID]
	return r, ok
}

// AgentIDs returns every currently registered AgentSpec ID, for building
// the A2A discovery documents (spec.md §6 agents.json).
func (d *Directory) AgentIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.runners))
	for id := range d.runners {
		ids = append(ids, id)
	}
	return ids
}

var _ agenttool.Directory = (*Directory)(nil)

// Invoke implements agenttool.Directory: opens a child Run on the target
// agent's own Runner and returns its final assistant text.
func (d *Directory) Invoke(ctx context.Context, agentID, input string) (string, error) {
	d.mu.RLock()
	target, ok := d.runners[agentID]
	d.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("agentcore: unknown agent %q", agentID)
	}

	parentRunID := parentRunIDFromContext(ctx)
	events, err := target.Stream(ctx, Input{OwnerID: "agent:" + agentID, Text: input, ParentRunID: parentRunID})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	var runErr error
	for ev := range events {
		switch ev.Type {
		case EventToken:
			text.WriteString(ev.Token)
		case EventError:
			runErr = ev.Err
		}
	}
	if runErr != nil {
		return "", runErr
	}
	return text.String(), nil
}

// AsTool returns a Tool that routes invocations to r through dir (spec.md
// §4.4 "Agent as tool"). The returned Tool is safe to place in another
// agent's tool list even before r has been registered with dir, since
// resolution happens at Invoke time.
func (r *Runner) AsTool(dir *Directory) tool.Tool {
	return agenttool.New(r.cfg.Spec.Name, r.cfg.Spec.ID, dir)
}
