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

// Package agenttool exposes one AgentSpec as a Tool another agent can call
// (spec.md §9: the coordinator pattern). Resolution of the target agent is
// lazy — the Directory is consulted at Invoke time, not at Build time — so
// two agents may each list the other as a tool without a build-time cycle.
package agenttool

import (
	"context"
	"fmt"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

// Directory resolves an agentID to a callable invoker lazily. The Agent
// Runner implements this by closing over its own Run-a-sub-agent entry
// point; agenttool never imports the runner package.
type Directory interface {
	// Invoke runs agentID with the given input text and returns its final
	// assistant reply, or an error classified per spec.md §7.
	Invoke(ctx context.Context, agentID, input string) (reply string, err error)
}

type agentTool struct {
	name    string
	agentID string
	dir     Directory
}

// New returns a Tool that delegates to agentID through dir, resolved lazily
// on every Invoke call.
func New(name, agentID string, dir Directory) tool.Tool {
	return &agentTool{name: name, agentID: agentID, dir: dir}
}

func (a *agentTool) Describe() tool.Descriptor {
	return tool.Descriptor{
		Name:        a.name,
		Description: fmt.Sprintf("delegates a sub-task to agent %q", a.agentID),
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"task": map[string]any{"type": "string"}},
			"required":   []string{"task"},
		},
	}
}

func (a *agentTool) Invoke(ctx context.Context, input map[string]any) (tool.Result, error) {
	task, _ := input["task"].(string)
	if task == "" {
		return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "agent tool requires non-empty 'task' input"}
	}

	reply, err := a.dir.Invoke(ctx, a.agentID, task)
	if err != nil {
		if ctx.Err() != nil {
			return tool.Result{}, &tool.Err{Kind: model.ErrCancelled, Message: "sub-agent call cancelled", Cause: ctx.Err()}
		}
		return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "sub-agent call failed", Cause: err}
	}
	return tool.Result{Output: map[string]any{"reply": reply}}, nil
}
