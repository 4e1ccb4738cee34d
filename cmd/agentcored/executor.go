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

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentcore/runtime/pkg/a2a"
	"github.com/agentcore/runtime/pkg/clock"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
)

// runnerExecutor bridges pkg/a2a/server's Executor contract to a
// runner.Directory: the one piece of glue neither package owns, since
// a2a/server only knows the JSON-RPC envelope and runner.Directory only
// knows AgentSpec IDs.
type runnerExecutor struct {
	dir   *runner.Directory
	clock clock.Clock
}

func newRunnerExecutor(dir *runner.Directory, c clock.Clock) *runnerExecutor {
	return &runnerExecutor{dir: dir, clock: c}
}

// ExecuteTask opens a Run on the agent named by agentID, feeding it the
// last user message in task.Messages, and drains it to completion before
// returning the updated Task (spec.md §6: tasks/send is synchronous from
// the caller's perspective, unlike the streaming /chat surface).
func (e *runnerExecutor) ExecuteTask(ctx context.Context, agentID string, task *a2a.Task) (*a2a.Task, error) {
	r, ok := e.dir.Get(agentID)
	if !ok {
		return nil, fmt.Errorf("agentcore: a2a task for unknown agent %q", agentID)
	}

	text := lastUserText(task.Messages)
	events, err := r.Stream(ctx, runner.Input{
		OwnerID:     "a2a:" + agentID,
		Text:        text,
		ParentRunID: task.ParentRun,
	})
	if err != nil {
		return failTask(task, e.clock.Now(), model.ErrA2A, err.Error()), nil
	}

	var reply strings.Builder
	var runErr error
	var errKind model.ErrorKind
	for ev := range events {
		switch ev.Type {
		case runner.EventToken:
			reply.WriteString(ev.Token)
		case runner.EventError:
			runErr = ev.Err
			errKind = ev.ErrorKind
		}
	}

	now := e.clock.Now()
	if runErr != nil {
		return failTask(task, now, errKind, runErr.Error()), nil
	}

	task.Messages = append(task.Messages, a2a.TextMessage(a2a.RoleAssistant, reply.String()))
	task.Status = a2a.TaskStatus{State: a2a.TaskCompleted, CreatedAt: task.Status.CreatedAt, UpdatedAt: now}
	return task, nil
}

func failTask(task *a2a.Task, at time.Time, kind model.ErrorKind, message string) *a2a.Task {
	task.Status = a2a.TaskStatus{State: a2a.TaskFailed, CreatedAt: task.Status.CreatedAt, UpdatedAt: at}
	task.Error = &a2a.TaskError{Code: string(kind), Message: message}
	return task
}

func lastUserText(messages []a2a.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == a2a.RoleUser {
			return messages[i].Text()
		}
	}
	return ""
}
