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
	"time"

	"github.com/agentcore/runtime/pkg/a2a"
	"github.com/agentcore/runtime/pkg/a2a/server"
)

// Executor adapts a Directory to the A2A server's Executor interface
// (spec.md §4.5): a tasks/send landing on this node's /a2a endpoint routes
// here, which runs the target agent's Runner synchronously and returns the
// completed Task.
type Executor struct {
	Dir *Directory
}

var _ server.Executor = (*Executor)(nil)

// ExecuteTask implements server.Executor.
func (e *Executor) ExecuteTask(ctx context.Context, agentID string, task *a2a.Task) (*a2a.Task, error) {
	var userText string
	for i := len(task.Messages) - 1; i >= 0; i-- {
		if task.Messages[i].Role == a2a.RoleUser {
			userText = task.Messages[i].Text()
			break
		}
	}

	callCtx := ctx
	if task.ParentRun != "" {
		callCtx = WithParentRunID(ctx, task.ParentRun)
	}

	reply, err := e.Dir.Invoke(callCtx, agentID, userText)
	now := time.Now().UTC()
	if err != nil {
		task.Status = a2a.TaskStatus{State: a2a.TaskFailed, CreatedAt: task.Status.CreatedAt, UpdatedAt: now}
		task.Error = &a2a.TaskError{Code: "A2AError", Message: err.Error()}
		return task, nil
	}

	task.Messages = append(task.Messages, a2a.TextMessage(a2a.RoleAssistant, reply))
	task.Status = a2a.TaskStatus{State: a2a.TaskCompleted, CreatedAt: task.Status.CreatedAt, UpdatedAt: now}
	return task, nil
}
