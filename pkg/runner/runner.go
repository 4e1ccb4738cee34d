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

// Package runner is the Agent Runner (spec.md §4.4), the core of the core:
// the bounded reasoning/tool-use loop, its memory window, parallel tool
// dispatch, cost accounting, and trace emission.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentcore/runtime/pkg/clock"
	"github.com/agentcore/runtime/pkg/idhash"
	"github.com/agentcore/runtime/pkg/llm"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/store"
	"github.com/agentcore/runtime/pkg/tool"
	"github.com/agentcore/runtime/pkg/tool/a2atool"
)

// Defaults named in spec.md §4.4.
const (
	DefaultMaxMessages     = 20
	DefaultMaxToolTurns    = 8
	DefaultAgentDeadline   = 120 * time.Second
	DefaultToolDeadline    = 30 * time.Second
	DefaultTruncateBytes   = 5 * 1024
	DefaultMaxTokensPerRun = 200_000
)

// Config wires one Runner to its owning AgentSpec, its dependencies, and
// the operator-tunable limits from spec.md §4.4/§4.8.
type Config struct {
	Spec   *model.AgentSpec
	Store  store.Gateway
	Driver llm.Driver
	// Tools is the already-built, already-filtered (enabled, resolvable)
	// tool set for this agent, produced by registry.ToolRegistry.Build.
	Tools []tool.Tool

	Clock     clock.Clock
	Logger    *slog.Logger
	Pricing   PricingTable
	Estimator *llm.Estimator

	MaxMessages     int
	MaxToolTurns    int
	MaxTokensPerRun int64
	DailyTokenLimit int64 // 0 disables the pre-LLM-call budget check
	AgentDeadline   time.Duration
	ToolDeadline    time.Duration
	TruncateBytes   int
}

func (c *Config) applyDefaults() {
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	if c.MaxToolTurns <= 0 {
		c.MaxToolTurns = DefaultMaxToolTurns
	}
	if c.MaxTokensPerRun <= 0 {
		c.MaxTokensPerRun = DefaultMaxTokensPerRun
	}
	if c.AgentDeadline <= 0 {
		c.AgentDeadline = DefaultAgentDeadline
	}
	if c.ToolDeadline <= 0 {
		c.ToolDeadline = DefaultToolDeadline
	}
	if c.TruncateBytes <= 0 {
		c.TruncateBytes = DefaultTruncateBytes
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Pricing == nil {
		c.Pricing = DefaultPricing
	}
}

// Runner drives the bounded reasoning loop for exactly one AgentSpec.
type Runner struct {
	cfg         Config
	tools       map[string]tool.Tool
	toolConfigs map[string]model.ToolConfig
}

// New returns a Runner for cfg.Spec. cfg.Tools should already reflect the
// spec's enabled, resolvable tools (registry.ToolRegistry.Build output);
// a name the model references that isn't in this map is reported to the
// LLM as ToolNotAvailable rather than treated as a build-time error.
func New(cfg Config) *Runner {
	cfg.applyDefaults()
	tools := make(map[string]tool.Tool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		tools[t.Describe().Name] = t
	}
	toolConfigs := make(map[string]model.ToolConfig, len(cfg.Spec.Tools))
	for _, tc := range cfg.Spec.Tools {
		toolConfigs[tc.Name] = tc
	}
	return &Runner{cfg: cfg, tools: tools, toolConfigs: toolConfigs}
}

// AgentID returns the ID of the AgentSpec this Runner drives.
func (r *Runner) AgentID() string { return r.cfg.Spec.ID }

// Input starts one Run.
type Input struct {
	ThreadID    string // empty creates a new Thread
	OwnerID     string
	Text        string
	ParentRunID string // set for A2A/agent-as-tool child runs

	// ToolFilter narrows the tool set offered to the LLM Driver on every
	// turn of this Run, without touching the AgentSpec's static tool list.
	// Used by the Workflow Orchestrator to enforce sequential-handoff
	// constraints ("if tool X was used, the next tool must be Y").
	ToolFilter tool.Predicate

	// NextFilter, when set, is consulted after every turn that dispatched
	// at least one tool call, with the names of the tools just dispatched.
	// Its return value replaces ToolFilter for the following turn — this
	// is how the Workflow Orchestrator re-injects a tool-availability
	// filter before each turn per spec.md §4.7 without the Runner knowing
	// anything about handoff constraints itself. A nil return (or a nil
	// NextFilter) leaves the filter unchanged.
	NextFilter func(usedTools []string) tool.Predicate
}

// Stream opens one Run and returns its event sequence. The channel is
// closed after the final `done` or `error` frame. Cancelling ctx stops the
// loop within the bounded flush windows of spec.md §4.4/§5 (≤250ms LLM
// stream drop, ≤1s tool cleanup).
func (r *Runner) Stream(ctx context.Context, in Input) (<-chan Event, error) {
	thread, err := r.resolveThread(ctx, in)
	if err != nil {
		return nil, err
	}

	now := r.cfg.Clock.Now()
	run := &model.Run{
		Entity:      model.Entity{ID: r.cfg.Clock.NewID("run_"), CreatorID: in.OwnerID, CreatedAt: now},
		ThreadID:    thread.ID,
		AgentID:     r.cfg.Spec.ID,
		Status:      model.RunQueued,
		StartedAt:   now,
		ParentRunID: in.ParentRunID,
	}
	if err := r.cfg.Store.UpsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	out := make(chan Event, 64)
	go r.drive(ctx, run, thread, in.Text, in.ToolFilter, in.NextFilter, out)
	return out, nil
}

func (r *Runner) resolveThread(ctx context.Context, in Input) (*model.Thread, error) {
	if in.ThreadID != "" {
		return r.cfg.Store.GetThread(ctx, in.ThreadID)
	}
	now := r.cfg.Clock.Now()
	t := &model.Thread{
		Entity:  model.Entity{ID: r.cfg.Clock.NewID("thread_"), CreatorID: in.OwnerID, CreatedAt: now},
		OwnerID: in.OwnerID,
		AgentID: r.cfg.Spec.ID,
		Status:  model.ThreadActive,
	}
	if err := r.cfg.Store.UpsertThread(ctx, t); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return t, nil
}

// drive runs the full per-run state machine (spec.md §4.4) and always
// closes out exactly once, ending with a run_end then done frame, or with
// a single error frame when the daily budget check fails, persistence
// fails, or the LLM turn itself errors (including a duplicate callId).
func (r *Runner) drive(ctx context.Context, run *model.Run, thread *model.Thread, userText string, filter tool.Predicate, nextFilter func([]string) tool.Predicate, out chan<- Event) {
	defer close(out)

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.AgentDeadline)
	defer cancel()

	log := r.cfg.Logger.With("runId", run.ID, "threadId", thread.ID, "agentId", r.cfg.Spec.ID)

	transition := func(status model.RunStatus, usage model.TokenUsage, cost float64, errKind model.ErrorKind) {
		if err := run.Transition(status, r.cfg.Clock.Now(), usage, cost, errKind); err != nil {
			log.Warn("illegal run transition", "err", err)
			return
		}
		if err := r.cfg.Store.UpsertRun(ctx, run); err != nil {
			log.Error("persist run", "err", err)
		}
	}

	transition(model.RunRunning, model.TokenUsage{}, 0, "")

	if errKind := r.checkDailyBudget(ctx, run.CreatorID); errKind != "" {
		transition(model.RunFailed, model.TokenUsage{}, 0, errKind)
		r.emitError(out, run, errKind, fmt.Errorf("daily token budget exceeded"))
		return
	}

	nextOrdinal := thread.MessageCount
	if _, err := r.appendMessage(ctx, thread, &nextOrdinal, model.RoleUser, userText, nil); err != nil {
		transition(model.RunFailed, model.TokenUsage{}, 0, model.ErrPersistence)
		r.emitError(out, run, model.ErrPersistence, err)
		return
	}

	var totalUsage model.TokenUsage
	stepOrdinal := 0
	toolTurn := 0
	// failureCounts tracks recovered tool errors by (toolName,inputHash)
	// across the whole Run; a second failure of the same call is surfaced
	// as MaxIterations instead of being recovered again (spec.md §7
	// propagation policy).
	failureCounts := map[string]int{}

	for {
		select {
		case <-runCtx.Done():
			transition(model.RunCancelled, totalUsage, r.cfg.Pricing.CostUSD(r.cfg.Spec.Model, totalUsage), model.ErrCancelled)
			r.emitRunEnd(out, run, totalUsage)
			return
		default:
		}

		messages, err := r.buildMessages(ctx, thread)
		if err != nil {
			transition(model.RunFailed, totalUsage, r.cfg.Pricing.CostUSD(r.cfg.Spec.Model, totalUsage), model.ErrPersistence)
			r.emitError(out, run, model.ErrPersistence, err)
			return
		}

		turnText, requests, usage, finish, turnErr := r.driveTurn(runCtx, messages, filter, out)
		totalUsage = totalUsage.Merge(usage)

		if totalUsage.Total() > r.cfg.MaxTokensPerRun {
			transition(model.RunFailed, totalUsage, r.cfg.Pricing.CostUSD(r.cfg.Spec.Model, totalUsage), model.ErrBudgetExceeded)
			r.emitRunEnd(out, run, totalUsage)
			return
		}

		if turnErr != nil {
			kind := model.ErrProtocol
			if runCtx.Err() != nil {
				kind = model.ErrCancelled
			}
			status := model.RunFailed
			if kind == model.ErrCancelled {
				status = model.RunCancelled
			}
			transition(status, totalUsage, r.cfg.Pricing.CostUSD(r.cfg.Spec.Model, totalUsage), kind)
			r.emitError(out, run, kind, turnErr)
			return
		}

		// Step 6 of the algorithm: persist this turn's assistant message
		// (text plus tool_call parts), even when the turn ends without
		// text (a pure tool-call turn still produces a message carrying
		// the tool_call parts so context rebuilds correctly next turn).
		if turnText != "" || len(requests) > 0 {
			parts := make([]model.Part, 0, len(requests))
			for _, req := range requests {
				parts = append(parts, model.Part{Kind: "tool_call", ToolCallID: req.CallID, Data: req.Input})
			}
			msgID, err := r.appendMessage(ctx, thread, &nextOrdinal, model.RoleAssistant, turnText, parts)
			if err != nil {
				log.Error("persist assistant message", "err", err)
			}
			out <- Event{Type: EventMessageEnd, TS: r.cfg.Clock.Now(), MessageID: msgID, Role: model.RoleAssistant, Tokens: usage}
		}

		if finish == llm.FinishError {
			transition(model.RunFailed, totalUsage, r.cfg.Pricing.CostUSD(r.cfg.Spec.Model, totalUsage), model.ErrProtocol)
			r.emitRunEnd(out, run, totalUsage)
			return
		}

		if len(requests) == 0 || finish != llm.FinishTool {
			status := model.RunSucceeded
			transition(status, totalUsage, r.cfg.Pricing.CostUSD(r.cfg.Spec.Model, totalUsage), "")
			r.emitMetric(ctx, run, totalUsage)
			r.emitRunEnd(out, run, totalUsage)
			return
		}

		toolTurn++
		if toolTurn > r.cfg.MaxToolTurns {
			transition(model.RunFailed, totalUsage, r.cfg.Pricing.CostUSD(r.cfg.Spec.Model, totalUsage), model.ErrMaxIterations)
			r.emitRunEnd(out, run, totalUsage)
			return
		}

		toolsCtx := a2atool.WithParentRunID(WithParentRunID(runCtx, run.ID), run.ID)
		outcomes := r.dispatchTools(toolsCtx, run, &stepOrdinal, requests, filter, out)
		repeated := false
		for _, oc := range outcomes {
			text := oc.summaryText()
			if _, err := r.appendMessage(ctx, thread, &nextOrdinal, model.RoleTool, text, []model.Part{
				{Kind: "tool_result", ToolCallID: oc.callID, Data: oc.output},
			}); err != nil {
				log.Error("persist tool message", "err", err)
			}

			switch oc.errKind {
			case model.ErrToolInvocation, model.ErrToolNotAvailable, model.ErrA2A:
				key := oc.name + "|" + oc.inputHash
				failureCounts[key]++
				if failureCounts[key] > 1 {
					repeated = true
				}
			}
		}

		if repeated {
			transition(model.RunFailed, totalUsage, r.cfg.Pricing.CostUSD(r.cfg.Spec.Model, totalUsage), model.ErrMaxIterations)
			r.emitRunEnd(out, run, totalUsage)
			return
		}

		if nextFilter != nil {
			used := make([]string, 0, len(requests))
			for _, req := range requests {
				used = append(used, req.Name)
			}
			if next := nextFilter(used); next != nil {
				filter = next
			}
		}
	}
}

// toolRequest is a single tool_request LLM event, carried forward from the
// turn loop into the dispatch stage.
type toolRequest struct {
	CallID string
	Name   string
	Input  map[string]any
}

// driveTurn drains exactly one LLM turn: streams text_delta as token
// events, collects tool_requests (rejecting a repeated callId within the
// turn as ProtocolError per spec.md §4.4), and returns once finish arrives.
func (r *Runner) driveTurn(ctx context.Context, messages []llm.Message, filter tool.Predicate, out chan<- Event) (text string, requests []toolRequest, usage model.TokenUsage, finish llm.FinishReason, err error) {
	tools := make([]llm.ToolDescriptor, 0, len(r.tools))
	for name, t := range r.tools {
		if filter != nil && !filter(t) {
			continue
		}
		d := t.Describe()
		tools = append(tools, llm.ToolDescriptor{Name: name, Description: d.Description, InputSchema: d.InputSchema})
	}

	events, err := r.cfg.Driver.Stream(ctx, llm.Params{
		Model:       r.cfg.Spec.Model,
		Temperature: r.cfg.Spec.Temperature,
		MaxTokens:   r.cfg.Spec.MaxTokens,
		Messages:    messages,
		Tools:       tools,
	})
	if err != nil {
		return "", nil, model.TokenUsage{}, llm.FinishError, fmt.Errorf("start llm stream: %w", err)
	}

	var sb strings.Builder
	seen := map[string]bool{}

	for ev := range events {
		switch ev.Type {
		case llm.EventTextDelta:
			sb.WriteString(ev.TextDelta)
			out <- Event{Type: EventToken, TS: r.cfg.Clock.Now(), Token: ev.TextDelta}
		case llm.EventToolRequest:
			if seen[ev.CallID] {
				return sb.String(), requests, usage, llm.FinishError, fmt.Errorf("duplicate tool callId %q in one turn", ev.CallID)
			}
			seen[ev.CallID] = true
			requests = append(requests, toolRequest{CallID: ev.CallID, Name: ev.ToolName, Input: ev.Input})
		case llm.EventUsage:
			usage = model.TokenUsage{In: ev.TokensIn, Out: ev.TokensOut}
			if usage.Total() == 0 && r.cfg.Estimator != nil {
				usage = model.TokenUsage{In: int64(r.cfg.Estimator.CountMessages(messages)), Out: int64(r.cfg.Estimator.Count(sb.String()))}
			}
		case llm.EventFinish:
			finish = ev.Finish
			if ev.Finish == llm.FinishError {
				err = ev.Err
			}
		}
	}

	return sb.String(), requests, usage, finish, err
}

type toolOutcome struct {
	callID, name string
	inputHash    string
	output       map[string]any
	errKind      model.ErrorKind
	errMsg       string
	truncated    bool
	latencyMs    int64
	childRunID   string
}

// summaryText is what the model sees for this tool call on its next turn
// (spec.md §4.4 item 4: the tool message carries {callId, output | error}).
func (o toolOutcome) summaryText() string {
	if o.errKind != "" {
		return fmt.Sprintf("error: %s", o.errMsg)
	}
	out, err := json.Marshal(o.output)
	if err != nil {
		return fmt.Sprintf("ok (callId=%s)", o.callID)
	}
	return string(out)
}

// dispatchTools runs every request concurrently under the per-tool
// deadline, emitting trace_start before dispatch and trace_end as each
// settles, in settlement order (spec.md §4.4 item 4).
func (r *Runner) dispatchTools(ctx context.Context, run *model.Run, stepOrdinal *int, requests []toolRequest, filter tool.Predicate, out chan<- Event) []toolOutcome {
	results := make(chan toolOutcome, len(requests))
	g, gctx := errgroup.WithContext(ctx)

	for _, req := range requests {
		req := req
		*stepOrdinal++
		ordinal := *stepOrdinal
		step := &model.Step{
			Entity:    model.Entity{ID: r.cfg.Clock.NewID("step_"), CreatedAt: r.cfg.Clock.Now()},
			RunID:     run.ID,
			Ordinal:   ordinal,
			Kind:      model.StepToolCall,
			StartedAt: r.cfg.Clock.Now(),
			Status:    model.StepInProgress,
		}
		_ = r.cfg.Store.UpsertStep(ctx, step)

		t, ok := r.tools[req.Name]
		if ok && filter != nil && !filter(t) {
			ok = false
		}

		reqInputHash := idhash.Canonical(req.Input)
		cfg := r.toolConfigs[req.Name]

		out <- Event{
			Type: EventTraceStart, TS: r.cfg.Clock.Now(), TraceID: req.CallID, Tool: req.Name,
			ToolType: cfg.Type, Target: cfg.Target,
			InputPreview: idhash.RedactString(previewOf(req.Input)),
		}

		g.Go(func() error {
			start := r.cfg.Clock.Now()
			if !ok {
				tc := &model.ToolCall{
					Entity: model.Entity{ID: r.cfg.Clock.NewID("tc_"), CreatedAt: start},
					StepID: step.ID, ToolName: req.Name, Target: cfg.Target, Input: req.Input, InputHash: reqInputHash,
					Status: model.ToolCallFailed, ErrorKind: model.ErrToolNotAvailable,
				}
				_ = r.cfg.Store.UpsertToolCall(ctx, tc)
				_ = step.Finish(model.StepFailed, r.cfg.Clock.Now())
				_ = r.cfg.Store.UpsertStep(ctx, step)
				results <- toolOutcome{callID: req.CallID, name: req.Name, inputHash: reqInputHash, errKind: model.ErrToolNotAvailable, errMsg: "tool not available: " + req.Name, latencyMs: time.Since(start).Milliseconds()}
				return nil
			}

			toolCtx, toolCancel := context.WithTimeout(gctx, r.cfg.ToolDeadline)
			defer toolCancel()

			res, invokeErr := t.Invoke(toolCtx, req.Input)
			latency := time.Since(start).Milliseconds()

			tc := &model.ToolCall{
				Entity:    model.Entity{ID: r.cfg.Clock.NewID("tc_"), CreatedAt: start},
				StepID:    step.ID,
				ToolName:  req.Name,
				Target:    cfg.Target,
				Input:     req.Input,
				InputHash: reqInputHash,
				LatencyMs: latency,
			}

			if invokeErr != nil {
				tc.Status = model.ToolCallFailed
				tc.ErrorKind = tool.KindOf(invokeErr)
				_ = r.cfg.Store.UpsertToolCall(ctx, tc)
				_ = step.Finish(model.StepFailed, r.cfg.Clock.Now())
				_ = r.cfg.Store.UpsertStep(ctx, step)
				results <- toolOutcome{callID: req.CallID, name: req.Name, inputHash: reqInputHash, errKind: tc.ErrorKind, errMsg: invokeErr.Error(), latencyMs: latency}
				return nil
			}

			output := res.Output
			truncated := res.Truncated
			if previewBytes := len(previewOf(output)); previewBytes > r.cfg.TruncateBytes {
				truncated = true
			}

			tc.Status = model.ToolCallSucceeded
			tc.Output = output
			tc.OutputHash = idhash.Canonical(output)
			tc.Truncated = truncated
			tc.ChildRunID = res.ChildRunID
			_ = r.cfg.Store.UpsertToolCall(ctx, tc)
			_ = step.Finish(model.StepSucceeded, r.cfg.Clock.Now())
			_ = r.cfg.Store.UpsertStep(ctx, step)

			results <- toolOutcome{callID: req.CallID, name: req.Name, inputHash: reqInputHash, output: output, truncated: truncated, latencyMs: latency, childRunID: res.ChildRunID}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	outcomes := make([]toolOutcome, 0, len(requests))
	for oc := range results {
		status := "succeeded"
		if oc.errKind != "" {
			status = "failed"
		}
		preview := ""
		if oc.output != nil {
			preview = truncatePreview(previewOf(oc.output), r.cfg.TruncateBytes)
		}
		out <- Event{
			Type: EventTraceEnd, TS: r.cfg.Clock.Now(), TraceID: oc.callID, TraceStatus: status,
			LatencyMs: oc.latencyMs, OutputPreview: idhash.RedactString(preview), ErrorKind: oc.errKind,
		}
		outcomes = append(outcomes, oc)
	}
	return outcomes
}

func previewOf(v map[string]any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func truncatePreview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...[truncated]"
}

// buildMessages assembles the working message list: system prompt, then
// the last MaxMessages thread messages oldest-first (spec.md §4.4 item 1).
func (r *Runner) buildMessages(ctx context.Context, thread *model.Thread) ([]llm.Message, error) {
	history, err := r.cfg.Store.ListMessages(ctx, thread.ID, r.effectiveMaxMessages())
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Text: r.cfg.Spec.SystemPrompt})
	for _, m := range history {
		role := llm.Role(m.Role)
		toolCallID := ""
		for _, p := range m.Parts {
			if p.ToolCallID != "" {
				toolCallID = p.ToolCallID
				break
			}
		}
		out = append(out, llm.Message{Role: role, Text: m.Text, ToolCallID: toolCallID})
	}
	return out, nil
}

func (r *Runner) appendMessage(ctx context.Context, thread *model.Thread, nextOrdinal *int, role model.MessageRole, text string, parts []model.Part) (string, error) {
	msg := &model.Message{
		Entity:   model.Entity{ID: r.cfg.Clock.NewID("msg_"), CreatedAt: r.cfg.Clock.Now()},
		ThreadID: thread.ID,
		Role:     role,
		Text:     text,
		Parts:    parts,
		Ordinal:  *nextOrdinal,
	}
	if err := r.cfg.Store.AppendMessage(ctx, msg); err != nil {
		return "", err
	}
	*nextOrdinal++
	thread.MessageCount++
	thread.LastMessageAt = msg.CreatedAt
	return msg.ID, nil
}

// effectiveMaxMessages prefers the AgentSpec's own window over the
// runner-level default (model.AgentSpec.MaxMessages: 0 means "use the
// runner default").
func (r *Runner) effectiveMaxMessages() int {
	if r.cfg.Spec.MaxMessages > 0 {
		return r.cfg.Spec.MaxMessages
	}
	return r.cfg.MaxMessages
}

func (r *Runner) checkDailyBudget(ctx context.Context, userID string) model.ErrorKind {
	if r.cfg.DailyTokenLimit <= 0 || userID == "" {
		return ""
	}
	date := r.cfg.Clock.Now().Format("2006-01-02")
	sum, err := r.cfg.Store.SumTokens(ctx, userID, date)
	if err != nil {
		return ""
	}
	if sum.Total() >= r.cfg.DailyTokenLimit {
		return model.ErrBudgetExceeded
	}
	return ""
}

func (r *Runner) emitMetric(ctx context.Context, run *model.Run, usage model.TokenUsage) {
	met := &model.Metric{
		Entity:  model.Entity{ID: r.cfg.Clock.NewID("met_"), CreatedAt: r.cfg.Clock.Now()},
		Date:    r.cfg.Clock.Now().Format("2006-01-02"),
		UserID:  run.CreatorID,
		AgentID: run.AgentID,
		RunID:   run.ID,
		Model:   r.cfg.Spec.Model,
		Tokens:  usage,
		CostUSD: r.cfg.Pricing.CostUSD(r.cfg.Spec.Model, usage),
	}
	if err := r.cfg.Store.AppendMetric(ctx, met); err != nil {
		r.cfg.Logger.Error("persist metric", "err", err)
	}
}

func (r *Runner) emitRunEnd(out chan<- Event, run *model.Run, usage model.TokenUsage) {
	out <- Event{
		Type: EventRunEnd, TS: r.cfg.Clock.Now(), RunID: run.ID, RunStatus: run.Status,
		Tokens: usage, CostUSD: run.CostUSD,
	}
	out <- Event{Type: EventDone, TS: r.cfg.Clock.Now()}
}

func (r *Runner) emitError(out chan<- Event, run *model.Run, kind model.ErrorKind, err error) {
	out <- Event{Type: EventError, TS: r.cfg.Clock.Now(), RunID: run.ID, ErrorKind: kind, Err: err}
}
