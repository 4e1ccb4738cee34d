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

// Package model defines the causal run record: the thread/run/step/tool-call
// data model shared by the Agent Runner, the Workflow Orchestrator, the A2A
// Endpoint, and the Persistence Gateway.
//
// Every entity here is a plain value type. Mutating a terminal Run or Step
// in place is a programmer error; the state-machine guards in this package
// (CanTransition, etc.) exist so every writer enforces the same invariants
// regardless of which component produced the mutation.
package model

import "time"

// Entity is embedded by every top-level record to carry the common
// identity/ownership/TTL fields described in spec.md §3.
type Entity struct {
	ID        string
	CreatorID string
	CreatedAt time.Time
	TTL       time.Duration // zero means "use the container default"
}

// AgentSpecStatus is the lifecycle status of an AgentSpec.
type AgentSpecStatus string

const (
	AgentActive   AgentSpecStatus = "active"
	AgentInactive AgentSpecStatus = "inactive"
)

// ToolConfigType enumerates the supported tool adapter kinds.
type ToolConfigType string

const (
	ToolTypeHTTP     ToolConfigType = "http"
	ToolTypeMCP      ToolConfigType = "mcp"
	ToolTypeA2A      ToolConfigType = "a2a"
	ToolTypeFunction ToolConfigType = "function"
)

// ToolConfig is one entry in an AgentSpec's tool list.
type ToolConfig struct {
	Type ToolConfigType
	Name string
	// Target's shape depends on Type: a function key for ToolTypeFunction,
	// or a URL for ToolTypeHTTP/MCP.
	// For ToolTypeA2A pointing at a remote peer, Target is that peer's
	// per-agent base URL (e.g. http://peer:8080/agents/agent_sales) since
	// the peer's RPC endpoint is scoped under /agents/{agentID}/a2a; a bare
	// local agent ID instead routes through agenttool, not a2atool.
	Target  string
	Static  map[string]any
	Enabled bool
}

// AgentSpec is a named, versionless configuration driving the Agent Runner.
type AgentSpec struct {
	Entity

	Name         string
	Description  string
	Status       AgentSpecStatus
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
	MaxMessages  int // memory window; 0 means use the runner default (20)
	Tools        []ToolConfig
	Capabilities []string
	Coordinator  bool
}

// Validate checks non-empty system prompt, non-empty model name, and
// non-empty, unique tool names. Whether a driver serves the model is not
// checked here; cmd/agentcored checks that when it builds the Runner.
func (a *AgentSpec) Validate() error {
	if a.SystemPrompt == "" {
		return &ValidationError{Field: "systemPrompt", Reason: "must not be empty"}
	}
	if a.Model == "" {
		return &ValidationError{Field: "model", Reason: "must be set"}
	}
	seen := make(map[string]bool, len(a.Tools))
	for _, tc := range a.Tools {
		if tc.Name == "" {
			return &ValidationError{Field: "tools[].name", Reason: "must not be empty"}
		}
		if seen[tc.Name] {
			return &ValidationError{Field: "tools[].name", Reason: "duplicate name " + tc.Name}
		}
		seen[tc.Name] = true
	}
	return nil
}

// ValidationError reports a single AgentSpec/ToolConfig invariant violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// ThreadStatus is the lifecycle status of a Thread.
type ThreadStatus string

const (
	ThreadActive  ThreadStatus = "active"
	ThreadDeleted ThreadStatus = "deleted"
)

// Thread groups a conversation between an owner and either a single agent
// or a workflow. Exactly one of AgentID/WorkflowID is set (spec.md §3
// invariant); OwnerID is immutable once created.
type Thread struct {
	Entity

	OwnerID       string
	AgentID       string
	WorkflowID    string
	Title         string
	LastMessageAt time.Time
	MessageCount  int
	Status        ThreadStatus
}

// Target returns whichever of AgentID/WorkflowID is set, and which kind it is.
func (t *Thread) Target() (id string, isWorkflow bool) {
	if t.WorkflowID != "" {
		return t.WorkflowID, true
	}
	return t.AgentID, false
}

// MessageRole enumerates who produced a Message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
	RoleSystem    MessageRole = "system"
)

// Part is one piece of structured content attached to a Message, beyond
// its plain text. ToolCallID is set for parts carrying a tool request or
// tool result, so the Runner can recombine text + structured parts when
// rebuilding LLM context.
type Part struct {
	Kind       string // "tool_call" | "tool_result" | "data"
	ToolCallID string
	Data       map[string]any
}

// Message is an immutable, ordered entry in a Thread's history.
type Message struct {
	Entity

	ThreadID string
	Role     MessageRole
	Text     string
	Parts    []Part
	Ordinal  int
}

// RunStatus is the lifecycle status of a Run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether status is one a Run cannot leave.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunSucceeded, RunFailed, RunCancelled:
		return true
	}
	return false
}

// ErrorKind is the taxonomy from spec.md §7. It is a value, not a Go error
// type, because it crosses the wire (persisted on Run/Step/ToolCall and
// emitted in `error` frames).
type ErrorKind string

const (
	ErrCancelled         ErrorKind = "Cancelled"
	ErrTimeout           ErrorKind = "Timeout"
	ErrBudgetExceeded    ErrorKind = "BudgetExceeded"
	ErrMaxIterations     ErrorKind = "MaxIterations"
	ErrConfigError       ErrorKind = "ConfigError"
	ErrToolNotAvailable  ErrorKind = "ToolNotAvailable"
	ErrToolInvocation    ErrorKind = "ToolInvocationError"
	ErrA2A               ErrorKind = "A2AError"
	ErrProtocol          ErrorKind = "ProtocolError"
	ErrPersistence       ErrorKind = "PersistenceError"
	ErrAdmission         ErrorKind = "AdmissionError"
	ErrQuorumFailed      ErrorKind = "QuorumFailed"
)

// Retryable reports whether a client may safely retry a failure of this kind.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrTimeout, ErrCancelled, ErrPersistence, ErrA2A:
		return true
	default:
		return false
	}
}

// TokenUsage tracks input/output token counts for a Run, Step, or turn.
type TokenUsage struct {
	In  int64
	Out int64
}

// Total returns In + Out.
func (u TokenUsage) Total() int64 { return u.In + u.Out }

// Merge returns the element-wise sum of two usages. Used to fold per-turn
// usage into the running Run total; never decreases (spec.md §3 invariant).
func (u TokenUsage) Merge(other TokenUsage) TokenUsage {
	return TokenUsage{In: u.In + other.In, Out: u.Out + other.Out}
}

// Run is one invocation of an Agent, producing a terminal state and
// (usually) a final assistant Message.
type Run struct {
	Entity

	ThreadID     string
	AgentID      string
	Status       RunStatus
	StartedAt    time.Time
	EndedAt      time.Time // zero until terminal
	Tokens       TokenUsage
	CostUSD      float64
	ErrorKind    ErrorKind
	ParentRunID  string // set for A2A/workflow child runs
}

// CanTransition reports whether the Run may move from its current status
// to next. Terminal states are final (spec.md §3).
func (r *Run) CanTransition(next RunStatus) bool {
	if r.Status.IsTerminal() {
		return false
	}
	switch r.Status {
	case RunQueued:
		return next == RunRunning || next == RunCancelled
	case RunRunning:
		return next == RunSucceeded || next == RunFailed || next == RunCancelled
	default:
		return false
	}
}

// Transition applies next if legal, stamping EndedAt when it is terminal.
// It never allows the token counters to move backwards: callers pass the
// usage observed so far and Transition keeps the maximum.
func (r *Run) Transition(next RunStatus, at time.Time, usage TokenUsage, costUSD float64, errKind ErrorKind) error {
	if !r.CanTransition(next) {
		return &TransitionError{Entity: "Run", From: string(r.Status), To: string(next)}
	}
	r.Status = next
	r.Tokens = maxUsage(r.Tokens, usage)
	if costUSD > r.CostUSD {
		r.CostUSD = costUSD
	}
	if errKind != "" {
		r.ErrorKind = errKind
	}
	if next.IsTerminal() {
		r.EndedAt = at
	}
	return nil
}

func maxUsage(a, b TokenUsage) TokenUsage {
	out := a
	if b.In > out.In {
		out.In = b.In
	}
	if b.Out > out.Out {
		out.Out = b.Out
	}
	return out
}

// TransitionError reports an illegal state-machine move.
type TransitionError struct {
	Entity   string
	From, To string
}

func (e *TransitionError) Error() string {
	return e.Entity + ": illegal transition " + e.From + " -> " + e.To
}

// StepKind enumerates the unit-of-work kinds within a Run.
type StepKind string

const (
	StepReasoning StepKind = "reasoning"
	StepToolCall  StepKind = "tool_call"
	StepMessage   StepKind = "message"
	StepHandoff   StepKind = "handoff"
	StepGate      StepKind = "gate"
)

// StepStatus is the lifecycle status of a Step.
type StepStatus string

const (
	StepInProgress StepStatus = "in_progress"
	StepSucceeded  StepStatus = "succeeded"
	StepFailed     StepStatus = "failed"
)

// Step is a unit of work within a Run: a reasoning turn, a tool call, a
// handoff, or a human gate. ParentStepID nests A2A child steps under the
// step that spawned them.
type Step struct {
	Entity

	RunID        string
	Ordinal      int
	Kind         StepKind
	StartedAt    time.Time
	EndedAt      time.Time
	Status       StepStatus
	ParentStepID string
}

// Finish marks the step terminal. Ordinal and RunID are set at creation
// and never change (spec.md §3 invariant: ordinals strictly increasing).
func (s *Step) Finish(status StepStatus, at time.Time) error {
	if status == StepInProgress {
		return &TransitionError{Entity: "Step", From: string(s.Status), To: string(status)}
	}
	s.Status = status
	s.EndedAt = at
	return nil
}

// ToolCallStatus mirrors Step status but is tracked independently so a
// ToolCall can be queried without loading its Step.
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallSucceeded ToolCallStatus = "succeeded"
	ToolCallFailed    ToolCallStatus = "failed"
)

// ToolCall is exactly one LLM tool invocation (1:1 with a Step of kind
// tool_call). If ToolType is "a2a" and Status is succeeded, a child Run
// with ParentRunID == the owning Run's ID must exist (spec.md §8).
type ToolCall struct {
	Entity

	StepID      string
	ToolType    ToolConfigType
	ToolName    string
	Target      string
	Input       map[string]any
	InputHash   string
	Output      map[string]any
	OutputHash  string
	Status      ToolCallStatus
	LatencyMs   int64
	ErrorKind   ErrorKind
	Cached      bool
	Truncated   bool
	ChildRunID  string // set when ToolType == a2a and a child run was opened
}

// Metric is an append-only per-date usage record (spec.md §3).
type Metric struct {
	Entity

	Date      string // YYYY-MM-DD, partition key
	UserID    string
	AgentID   string
	RunID     string
	Model     string
	Tokens    TokenUsage
	CostUSD   float64
	LatencyMs int64
}
