package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/model"
)

func TestMemoryAgentSpecRoundtrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	spec := &model.AgentSpec{
		Entity:       model.Entity{ID: "agent-1", CreatorID: "u1", CreatedAt: time.Now()},
		SystemPrompt: "be helpful",
		Model:        "claude-sonnet",
		Status:       model.AgentActive,
	}
	require.NoError(t, m.UpsertAgentSpec(ctx, spec))

	got, err := m.GetAgentSpec(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, spec.SystemPrompt, got.SystemPrompt)

	// Upsert is idempotent keyed by ID: writing twice does not duplicate.
	require.NoError(t, m.UpsertAgentSpec(ctx, spec))
	all, err := m.ListAgentSpecs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, m.DeleteAgentSpec(ctx, "agent-1"))
	_, err = m.GetAgentSpec(ctx, "agent-1")
	assert.True(t, IsNotFound(err))
}

func TestMemoryMessageOrdinalMonotonicity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	thread := &model.Thread{Entity: model.Entity{ID: "t1"}, OwnerID: "u1"}
	require.NoError(t, m.UpsertThread(ctx, thread))

	msg1 := &model.Message{Entity: model.Entity{ID: "m1", CreatedAt: time.Now()}, ThreadID: "t1", Ordinal: 0}
	msg2 := &model.Message{Entity: model.Entity{ID: "m2", CreatedAt: time.Now()}, ThreadID: "t1", Ordinal: 1}
	require.NoError(t, m.AppendMessage(ctx, msg1))
	require.NoError(t, m.AppendMessage(ctx, msg2))

	// Replaying the same ordinal (or an earlier one) must fail rather than
	// silently reorder history.
	dup := &model.Message{Entity: model.Entity{ID: "m3", CreatedAt: time.Now()}, ThreadID: "t1", Ordinal: 1}
	err := m.AppendMessage(ctx, dup)
	var ordErr *OrdinalError
	require.ErrorAs(t, err, &ordErr)

	msgs, err := m.ListMessages(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	got, err := m.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
}

func TestMemoryRunTokensMonotone(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run := &model.Run{
		Entity:   model.Entity{ID: "r1"},
		ThreadID: "t1",
		Status:   model.RunRunning,
		Tokens:   model.TokenUsage{In: 100, Out: 50},
	}
	require.NoError(t, m.UpsertRun(ctx, run))

	// A later write reporting fewer tokens than already recorded must not
	// regress the stored counters (spec.md §3 monotone counters).
	stale := &model.Run{
		Entity:   model.Entity{ID: "r1"},
		ThreadID: "t1",
		Status:   model.RunRunning,
		Tokens:   model.TokenUsage{In: 10, Out: 5},
	}
	require.NoError(t, m.UpsertRun(ctx, stale))

	got, err := m.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Tokens.In)
	assert.Equal(t, int64(50), got.Tokens.Out)

	runs, err := m.ListRunsByThread(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestMemoryThreadSoftDeleteIsIdempotentAndFiltered(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertThread(ctx, &model.Thread{
		Entity: model.Entity{ID: "t1"}, OwnerID: "u1", LastMessageAt: time.Now(),
	}))
	require.NoError(t, m.SoftDeleteThread(ctx, "t1"))
	// Deleting again, or deleting an ID that never existed, is a no-op.
	require.NoError(t, m.SoftDeleteThread(ctx, "t1"))
	require.NoError(t, m.SoftDeleteThread(ctx, "does-not-exist"))

	page, err := m.ListThreads(ctx, ThreadQuery{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestMemoryStepOrdinalAndToolCallLinkage(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	step := &model.Step{Entity: model.Entity{ID: "s1"}, RunID: "r1", Ordinal: 0, Kind: model.StepToolCall}
	require.NoError(t, m.UpsertStep(ctx, step))

	tc := &model.ToolCall{Entity: model.Entity{ID: "tc1"}, StepID: "s1", ToolName: "search", Status: model.ToolCallPending}
	require.NoError(t, m.UpsertToolCall(ctx, tc))

	tc.Status = model.ToolCallSucceeded
	require.NoError(t, m.UpsertToolCall(ctx, tc))

	calls, err := m.ListToolCallsByStep(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, model.ToolCallSucceeded, calls[0].Status)

	steps, err := m.ListStepsByRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
}

func TestMemorySumTokens(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.AppendMetric(ctx, &model.Metric{
		Entity: model.Entity{ID: "met1"}, Date: "2026-07-31", UserID: "u1", Tokens: model.TokenUsage{In: 10, Out: 20},
	}))
	require.NoError(t, m.AppendMetric(ctx, &model.Metric{
		Entity: model.Entity{ID: "met2"}, Date: "2026-07-31", UserID: "u1", Tokens: model.TokenUsage{In: 5, Out: 5},
	}))
	require.NoError(t, m.AppendMetric(ctx, &model.Metric{
		Entity: model.Entity{ID: "met3"}, Date: "2026-07-30", UserID: "u1", Tokens: model.TokenUsage{In: 100, Out: 100},
	}))

	total, err := m.SumTokens(ctx, "u1", "2026-07-31")
	require.NoError(t, err)
	assert.Equal(t, int64(15), total.In)
	assert.Equal(t, int64(25), total.Out)
}
