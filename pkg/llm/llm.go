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

// Package llm defines the LLM Driver contract (spec.md §2 item 5, §4.3): a
// lazy, cancellable event sequence per turn, with two concrete drivers
// (anthropicdriver, geminidriver) and a tiktoken-based estimator used when
// a provider doesn't report usage.
package llm

import "context"

// Role mirrors model.MessageRole without importing pkg/model, so this
// package stays usable by anything that only needs wire-format messages.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the ordered input list a driver consumes.
type Message struct {
	Role       Role
	Text       string
	ToolCallID string // set when Role == RoleTool
}

// ToolDescriptor is what the driver needs to offer a tool for function
// calling; mirrors tool.Descriptor without importing pkg/tool.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Params carries generation parameters for one turn.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []Message
	Tools       []ToolDescriptor
}

// EventType discriminates Event's union (spec.md §4.3).
type EventType string

const (
	EventTextDelta   EventType = "text_delta"
	EventToolRequest EventType = "tool_request"
	EventUsage       EventType = "usage"
	EventFinish      EventType = "finish"
)

// FinishReason enumerates why a turn ended.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishTool          FinishReason = "tool"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
)

// Event is one item in a driver's output sequence. Only the fields
// relevant to Type are populated.
type Event struct {
	Type EventType

	// EventTextDelta
	TextDelta string

	// EventToolRequest
	CallID   string
	ToolName string
	Input    map[string]any

	// EventUsage
	TokensIn  int64
	TokensOut int64

	// EventFinish
	Finish FinishReason
	Err    error
}

// Driver generates one turn's worth of events from Params. Implementations
// must stop producing events within the cancellation flush window (spec.md
// §4.3: ≤250ms) once ctx is done, emitting a final EventFinish{Finish:
// FinishError} before closing the channel.
type Driver interface {
	Stream(ctx context.Context, p Params) (<-chan Event, error)
}
