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

// Package store is the Persistence Gateway: a thin write-behind interface
// over a partitioned key/value store with TTL (spec.md §2 item 2).
//
// The external database client itself — the thing that actually talks to
// Postgres/MySQL/SQLite — is out of scope per spec.md §1 ("the generic
// database client layer (treated as a key+partition store with TTL)").
// What lives here is the typed contract the rest of the core depends on,
// plus two concrete Gateways: an in-memory one for tests and single-node
// deployments, and a SQL one (driven by database/sql) for anything that
// needs to survive a restart.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/agentcore/runtime/pkg/model"
)

// ThreadQuery lists threads for an owner, optionally scoped to one agent,
// ordered by lastMessageAt desc (spec.md §6).
type ThreadQuery struct {
	OwnerID string
	AgentID string // empty means any agent
	Limit   int
	Offset  int
}

// ThreadPage is the paginated result of a ThreadQuery.
type ThreadPage struct {
	Threads []*model.Thread
	Total   int
}

// Gateway is the Persistence Gateway contract. Every Upsert is idempotent
// keyed by (entity, ID): writing the same ID twice must not create a
// duplicate record, and monotone counters (Run tokens and cost) must never
// regress (spec.md §3, §5).
type Gateway interface {
	UpsertAgentSpec(ctx context.Context, spec *model.AgentSpec) error
	GetAgentSpec(ctx context.Context, id string) (*model.AgentSpec, error)
	DeleteAgentSpec(ctx context.Context, id string) error
	ListAgentSpecs(ctx context.Context) ([]*model.AgentSpec, error)

	UpsertThread(ctx context.Context, t *model.Thread) error
	GetThread(ctx context.Context, id string) (*model.Thread, error)
	ListThreads(ctx context.Context, q ThreadQuery) (*ThreadPage, error)
	// SoftDeleteThread marks a thread deleted (spec.md §9 Open Question:
	// this repository chooses soft delete, see DESIGN.md). Idempotent.
	SoftDeleteThread(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context, threadID string, limit int) ([]*model.Message, error)

	UpsertRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRunsByThread(ctx context.Context, threadID string) ([]*model.Run, error)

	UpsertStep(ctx context.Context, s *model.Step) error
	ListStepsByRun(ctx context.Context, runID string) ([]*model.Step, error)

	UpsertToolCall(ctx context.Context, tc *model.ToolCall) error
	GetToolCall(ctx context.Context, id string) (*model.ToolCall, error)
	ListToolCallsByStep(ctx context.Context, stepID string) ([]*model.ToolCall, error)

	AppendMetric(ctx context.Context, m *model.Metric) error
	SumTokens(ctx context.Context, userID, date string) (model.TokenUsage, error)
}

// Defaults for the container TTLs named in spec.md §6.
const (
	ConversationalTTL = 90 * 24 * time.Hour
	MetricsTTL        = 180 * 24 * time.Hour
	AuditTTL          = 365 * 24 * time.Hour
)

// NotFoundError is returned by Get* lookups that find nothing; List*
// calls return an empty result instead.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found: " + e.ID
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
