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

// Package a2atool is the A2A adapter (spec.md §4.2): invoking it sends a
// tasks/send to a peer agent, carrying the caller's parentRunId, and waits
// for the peer task to settle before returning.
package a2atool

import (
	"context"

	"github.com/agentcore/runtime/pkg/a2a"
	"github.com/agentcore/runtime/pkg/a2a/client"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

// Config binds an adapter instance to one peer agent.
type Config struct {
	Name        string
	PeerAgentID string
	BaseURL     string
	BearerToken string
	ParentRunID string // set per-invocation by the Runner via context, see WithParentRunID
}

type a2aTool struct {
	cfg Config
	c   *client.Client
}

type parentRunIDKey struct{}

// WithParentRunID attaches the caller's Run ID so Invoke can propagate it
// to the peer without threading it through the Tool interface.
func WithParentRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, parentRunIDKey{}, runID)
}

// New returns an A2A adapter tool targeting cfg.PeerAgentID at cfg.BaseURL.
func New(cfg Config, c *client.Client) tool.Tool {
	return &a2aTool{cfg: cfg, c: c}
}

func (t *a2aTool) Describe() tool.Descriptor {
	return tool.Descriptor{
		Name:        t.cfg.Name,
		Description: "delegates to peer agent " + t.cfg.PeerAgentID,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"message": map[string]any{"type": "string"}},
			"required":   []string{"message"},
		},
	}
}

func (t *a2aTool) Invoke(ctx context.Context, input map[string]any) (tool.Result, error) {
	text, _ := input["message"].(string)
	if text == "" {
		return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "a2a tool requires non-empty 'message' input"}
	}

	parentRunID, _ := ctx.Value(parentRunIDKey{}).(string)
	task, err := t.c.SendTask(ctx, a2a.TextMessage(a2a.RoleUser, text), "", parentRunID)
	if err != nil {
		if ctx.Err() != nil {
			return tool.Result{}, &tool.Err{Kind: model.ErrTimeout, Message: "a2a send timed out", Cause: err}
		}
		return tool.Result{}, &tool.Err{Kind: model.ErrA2A, Message: "a2a send failed", Cause: err}
	}

	if !task.Status.State.IsTerminal() {
		task, err = t.c.WaitTerminal(ctx, task.ID, 0)
		if err != nil {
			if ctx.Err() != nil {
				return tool.Result{}, &tool.Err{Kind: model.ErrTimeout, Message: "a2a wait timed out", Cause: err}
			}
			return tool.Result{}, &tool.Err{Kind: model.ErrA2A, Message: "a2a wait failed", Cause: err}
		}
	}

	if task.Status.State == a2a.TaskFailed {
		msg := "peer task failed"
		if task.Error != nil {
			msg = task.Error.Message
		}
		return tool.Result{}, &tool.Err{Kind: model.ErrA2A, Message: msg}
	}

	var reply string
	for i := len(task.Messages) - 1; i >= 0; i-- {
		if task.Messages[i].Role == a2a.RoleAssistant {
			reply = task.Messages[i].Text()
			break
		}
	}
	// The peer's taskID doubles as the child Run identifier in this core's
	// simplified 1:1 task<->run model (spec.md §8: ToolCall.ChildRunID must
	// reference a Run with ParentRunID == this Run's ID).
	return tool.Result{Output: map[string]any{"reply": reply, "taskId": task.ID}, ChildRunID: task.ID}, nil
}
