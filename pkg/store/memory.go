package store

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/agentcore/runtime/pkg/model"
)

// Memory is an in-process Gateway implementation, partitioned the same
// way the SQL backend is (by owner/thread/run/step/date) but backed by
// plain maps, all guarded by a single RWMutex. It is the default for
// tests and for single-node deployments that don't need durability.
type Memory struct {
	mu sync.RWMutex

	agentSpecs map[string]*model.AgentSpec
	threads    map[string]*model.Thread
	messages   map[string][]*model.Message // by threadID, ordinal order
	runs       map[string]*model.Run
	runsByThr  map[string][]string
	steps      map[string][]*model.Step // by runID, ordinal order
	toolCalls  map[string]*model.ToolCall
	tcByStep   map[string][]string
	metrics    []*model.Metric
}

// NewMemory returns an empty in-memory Gateway.
func NewMemory() *Memory {
	return &Memory{
		agentSpecs: make(map[string]*model.AgentSpec),
		threads:    make(map[string]*model.Thread),
		messages:   make(map[string][]*model.Message),
		runs:       make(map[string]*model.Run),
		runsByThr:  make(map[string][]string),
		steps:      make(map[string][]*model.Step),
		toolCalls:  make(map[string]*model.ToolCall),
		tcByStep:   make(map[string][]string),
	}
}

var _ Gateway = (*Memory)(nil)

func (m *Memory) UpsertAgentSpec(_ context.Context, spec *model.AgentSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *spec
	m.agentSpecs[spec.ID] = &cp
	return nil
}

func (m *Memory) GetAgentSpec(_ context.Context, id string) (*model.AgentSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.agentSpecs[id]
	if !ok {
		return nil, &NotFoundError{Entity: "AgentSpec", ID: id}
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) DeleteAgentSpec(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.agentSpecs, id)
	return nil
}

func (m *Memory) ListAgentSpecs(_ context.Context) ([]*model.AgentSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.AgentSpec, 0, len(m.agentSpecs))
	for _, s := range m.agentSpecs {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpsertThread(_ context.Context, t *model.Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.threads[t.ID] = &cp
	return nil
}

func (m *Memory) GetThread(_ context.Context, id string) (*model.Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.threads[id]
	if !ok {
		return nil, &NotFoundError{Entity: "Thread", ID: id}
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) ListThreads(_ context.Context, q ThreadQuery) (*ThreadPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*model.Thread
	for _, t := range m.threads {
		if t.Status == model.ThreadDeleted {
			continue
		}
		if t.OwnerID != q.OwnerID {
			continue
		}
		if q.AgentID != "" && t.AgentID != q.AgentID {
			continue
		}
		cp := *t
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].LastMessageAt.After(matched[j].LastMessageAt)
	})

	total := len(matched)
	lo, hi := q.Offset, q.Offset+q.Limit
	if q.Limit <= 0 {
		hi = total
	}
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}
	return &ThreadPage{Threads: matched[lo:hi], Total: total}, nil
}

func (m *Memory) SoftDeleteThread(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[id]
	if !ok {
		// Idempotent: deleting a thread that doesn't exist (or was already
		// deleted and since purged) is not an error.
		return nil
	}
	t.Status = model.ThreadDeleted
	return nil
}

func (m *Memory) AppendMessage(_ context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.messages[msg.ThreadID]
	if len(existing) > 0 && msg.Ordinal <= existing[len(existing)-1].Ordinal {
		return &OrdinalError{Entity: "Message", ThreadOrRun: msg.ThreadID, Ordinal: msg.Ordinal}
	}
	cp := *msg
	m.messages[msg.ThreadID] = append(existing, &cp)
	if t, ok := m.threads[msg.ThreadID]; ok {
		t.MessageCount++
		t.LastMessageAt = msg.CreatedAt
	}
	return nil
}

func (m *Memory) ListMessages(_ context.Context, threadID string, limit int) ([]*model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[threadID]
	if limit <= 0 || limit >= len(all) {
		out := make([]*model.Message, len(all))
		copy(out, all)
		return out, nil
	}
	start := len(all) - limit
	out := make([]*model.Message, limit)
	copy(out, all[start:])
	return out, nil
}

func (m *Memory) UpsertRun(_ context.Context, r *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.runs[r.ID]; ok {
		// Last-writer-wins but monotone counters never regress.
		r.Tokens = maxOf(existing.Tokens, r.Tokens)
		if existing.CostUSD > r.CostUSD {
			r.CostUSD = existing.CostUSD
		}
	} else {
		m.runsByThr[r.ThreadID] = append(m.runsByThr[r.ThreadID], r.ID)
	}
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func maxOf(a, b model.TokenUsage) model.TokenUsage {
	if a.In > b.In {
		b.In = a.In
	}
	if a.Out > b.Out {
		b.Out = a.Out
	}
	return b
}

func (m *Memory) GetRun(_ context.Context, id string) (*model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, &NotFoundError{Entity: "Run", ID: id}
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) ListRunsByThread(_ context.Context, threadID string) ([]*model.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.runsByThr[threadID]
	out := make([]*model.Run, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.runs[id]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) UpsertStep(_ context.Context, s *model.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.steps[s.RunID]
	for i, e := range existing {
		if e.ID == s.ID {
			cp := *s
			existing[i] = &cp
			return nil
		}
	}
	if len(existing) > 0 && s.Ordinal <= existing[len(existing)-1].Ordinal {
		return &OrdinalError{Entity: "Step", ThreadOrRun: s.RunID, Ordinal: s.Ordinal}
	}
	cp := *s
	m.steps[s.RunID] = append(existing, &cp)
	return nil
}

func (m *Memory) ListStepsByRun(_ context.Context, runID string) ([]*model.Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.steps[runID]
	out := make([]*model.Step, len(src))
	copy(out, src)
	return out, nil
}

func (m *Memory) UpsertToolCall(_ context.Context, tc *model.ToolCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.toolCalls[tc.ID]; !ok {
		m.tcByStep[tc.StepID] = append(m.tcByStep[tc.StepID], tc.ID)
	}
	cp := *tc
	m.toolCalls[tc.ID] = &cp
	return nil
}

func (m *Memory) GetToolCall(_ context.Context, id string) (*model.ToolCall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tc, ok := m.toolCalls[id]
	if !ok {
		return nil, &NotFoundError{Entity: "ToolCall", ID: id}
	}
	cp := *tc
	return &cp, nil
}

func (m *Memory) ListToolCallsByStep(_ context.Context, stepID string) ([]*model.ToolCall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.tcByStep[stepID]
	out := make([]*model.ToolCall, 0, len(ids))
	for _, id := range ids {
		if tc, ok := m.toolCalls[id]; ok {
			cp := *tc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) AppendMetric(_ context.Context, met *model.Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *met
	m.metrics = append(m.metrics, &cp)
	return nil
}

func (m *Memory) SumTokens(_ context.Context, userID, date string) (model.TokenUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total model.TokenUsage
	for _, met := range m.metrics {
		if met.UserID == userID && met.Date == date {
			total = total.Merge(met.Tokens)
		}
	}
	return total, nil
}

// OrdinalError reports a write that would violate strictly-increasing
// ordinals within a Thread (Message) or Run (Step).
type OrdinalError struct {
	Entity      string
	ThreadOrRun string
	Ordinal     int
}

func (e *OrdinalError) Error() string {
	return e.Entity + ": non-increasing ordinal " + strconv.Itoa(e.Ordinal) + " in " + e.ThreadOrRun
}
