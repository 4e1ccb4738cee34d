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

// Package a2a implements the Agent-to-Agent JSON-RPC transport described in
// spec.md §2 item 7 and §6: tasks/send, tasks/get, tasks/cancel against a
// peer's /a2a endpoint, plus the .well-known/agent-card.json and agents.json
// discovery documents.
package a2a

import "time"

// AgentCard is the discovery document served at .well-known/agent-card.json.
type AgentCard struct {
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	Version      string       `json:"version"`
	Description  string       `json:"description"`
	Capabilities Capabilities `json:"capabilities"`
	Skills       []Skill      `json:"skills,omitempty"`
}

// Capabilities advertises what the agent supports.
type Capabilities struct {
	Streaming bool `json:"streaming"`
	MultiTurn bool `json:"multiTurn"`
}

// Skill is one capability an agent advertises for routing/discovery.
type Skill struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// Directory is the agents.json document listing every agent this node
// can reach, for client-side discovery without resolving each card.
type Directory struct {
	Agents []AgentCard `json:"agents"`
}

// Task is a unit of work in the A2A protocol.
type Task struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Messages  []Message  `json:"messages"`
	Error     *TaskError `json:"error,omitempty"`
	ParentRun string     `json:"parentRunId,omitempty"`
}

// TaskStatus reports the task's current lifecycle state.
type TaskStatus struct {
	State     TaskState `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Reason    string    `json:"reason,omitempty"`
}

// TaskState enumerates the A2A task lifecycle.
type TaskState string

const (
	TaskSubmitted TaskState = "submitted"
	TaskWorking   TaskState = "working"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
	TaskCanceled  TaskState = "canceled"
)

// IsTerminal reports whether a task has reached a final state (spec.md
// §4.2: the adapter "waits for terminal state (succeeded/failed)").
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCanceled:
		return true
	}
	return false
}

// TaskError carries the peer-reported failure reason.
type TaskError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Message is one turn in a task's conversation.
type Message struct {
	Role  MessageRole `json:"role"`
	Parts []Part      `json:"parts"`
}

// MessageRole distinguishes who produced a Message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Part is a union-typed piece of message content; only Text is populated
// for the text-only subset this core implements.
type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`
}

// PartType discriminates Part's union.
type PartType string

const PartText PartType = "text"

// TasksSendParams is the tasks/send request payload.
type TasksSendParams struct {
	Message     Message `json:"message"`
	TaskID      string  `json:"taskId,omitempty"`
	ParentRunID string  `json:"parentRunId,omitempty"`
}

// TasksGetParams is the tasks/get request payload.
type TasksGetParams struct {
	TaskID string `json:"taskId"`
}

// TasksCancelParams is the tasks/cancel request payload.
type TasksCancelParams struct {
	TaskID string `json:"taskId"`
	Reason string `json:"reason,omitempty"`
}

// Text returns the concatenated text parts of m, the common case for this
// core's text-only message bodies.
func (m Message) Text() string {
	out := ""
	for i, p := range m.Parts {
		if i > 0 {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// TextMessage builds a single-part text Message.
func TextMessage(role MessageRole, text string) Message {
	return Message{Role: role, Parts: []Part{{Type: PartText, Text: text}}}
}
