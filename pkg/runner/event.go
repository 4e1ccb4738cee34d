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
	"time"

	"github.com/agentcore/runtime/pkg/model"
)

// EventType discriminates the wire vocabulary of spec.md §4.6: token,
// trace_start, trace_update, trace_end, message_end, run_end, done, error.
// The Streaming Facade serializes these directly into line-delimited JSON
// frames; it adds no vocabulary of its own.
type EventType string

const (
	EventToken       EventType = "token"
	EventTraceStart  EventType = "trace_start"
	EventTraceUpdate EventType = "trace_update"
	EventTraceEnd    EventType = "trace_end"
	EventMessageEnd  EventType = "message_end"
	EventRunEnd      EventType = "run_end"
	EventDone        EventType = "done"
	EventError       EventType = "error"
)

// Event is one frame in a Run's output sequence. Fields are grouped by the
// EventType that populates them; irrelevant fields are left zero.
type Event struct {
	Type EventType
	TS   time.Time

	// token
	Token string

	// trace_start / trace_update / trace_end share TraceID
	TraceID       string
	ParentTraceID string
	Tool          string
	ToolType      model.ToolConfigType
	Target        string
	InputPreview  string

	// trace_update
	Message     string
	GateToken   string
	GatePayload map[string]any

	// trace_end
	TraceStatus   string // "succeeded" | "failed"
	LatencyMs     int64
	Tokens        model.TokenUsage
	OutputPreview string
	ErrorKind     model.ErrorKind

	// message_end
	MessageID string
	Role      model.MessageRole

	// run_end
	RunID     string
	RunStatus model.RunStatus
	CostUSD   float64

	// error
	Err error
}
