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
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentcore/runtime/pkg/admission"
	"github.com/agentcore/runtime/pkg/metrics"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/store"
	"github.com/agentcore/runtime/pkg/stream"
	"github.com/agentcore/runtime/pkg/workflow"
)

type handlers struct {
	app *app
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func ownerID(r *http.Request) string {
	if claims := admission.ClaimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return "anonymous"
}

type chatRequest struct {
	Message     string         `json:"message"`
	ThreadID    string         `json:"threadId"`
	MaxHandoffs int            `json:"maxHandoffs"`
	Recommend   map[string]any `json:"recommendation"`
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	agentID := "agent_" + chi.URLParam(r, "agentId")
	run, ok := h.app.dir.Get(agentID)
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown agent")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events, err := run.Stream(r.Context(), runner.Input{
		ThreadID: req.ThreadID,
		OwnerID:  ownerID(r),
		Text:     req.Message,
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	serveStream(w, r, events, h.app, agentID)
}

func (h *handlers) workflowChat(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowId")
	spec, ok := h.app.workflowSpec(workflowID)
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown workflow")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxHandoffs > 0 {
		spec.MaxHandoffs = req.MaxHandoffs
	}

	in := runner.Input{ThreadID: req.ThreadID, OwnerID: ownerID(r), Text: req.Message}

	var events <-chan runner.Event
	var err error
	switch spec.Pattern {
	case workflow.PatternSequential:
		events, err = h.app.orch.RunSequential(r.Context(), spec, in)
	case workflow.PatternParallel:
		events, err = h.app.orch.RunParallel(r.Context(), spec, in)
	case workflow.PatternEvaluator:
		events, err = h.app.orch.RunEvaluated(r.Context(), spec, in)
	case workflow.PatternHumanGate:
		var token string
		events, token, err = h.app.orch.RunHumanGate(r.Context(), spec, in, req.Recommend)
		if err == nil {
			w.Header().Set("X-Gate-Token", token)
		}
	default:
		writeErr(w, http.StatusInternalServerError, "unknown workflow pattern")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	serveStream(w, r, events, h.app, workflowID)
}

// serveStream wires one Run's event channel to both the caller (via the
// Streaming Facade) and the metrics observer. It tees the channel rather
// than passing the same consumer to both, per Observe's own doc comment.
func serveStream(w http.ResponseWriter, r *http.Request, events <-chan runner.Event, a *app, label string) {
	fw, ok := w.(flushWriter)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	wireEvents := events
	if a.metrics != nil {
		wire := make(chan runner.Event)
		observe := make(chan runner.Event)
		go func() {
			defer close(wire)
			defer close(observe)
			for ev := range events {
				wire <- ev
				observe <- ev
			}
		}()
		go metrics.Observe(observe, a.metrics, label, time.Now())
		wireEvents = wire
	}

	_ = stream.Serve(r.Context(), fw, wireEvents, stream.Options{Logger: a.logger})
}

type flushWriter interface {
	http.ResponseWriter
	http.Flusher
}

type gateActionRequest struct {
	Token     string         `json:"token"`
	Decision  string         `json:"decision"`
	Overrides map[string]any `json:"overrides"`
}

func (h *handlers) humanGateAction(w http.ResponseWriter, r *http.Request) {
	var req gateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.app.orch.ResumeGate(req.Token, workflow.GateDecision{Decision: req.Decision, Overrides: req.Overrides}); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) listAgents(w http.ResponseWriter, r *http.Request) {
	specs, err := h.app.store.ListAgentSpecs(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

func (h *handlers) getAgent(w http.ResponseWriter, r *http.Request) {
	spec, err := h.app.store.GetAgentSpec(r.Context(), "agent_"+chi.URLParam(r, "id"))
	if err != nil {
		if store.IsNotFound(err) {
			writeErr(w, http.StatusNotFound, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (h *handlers) putAgent(w http.ResponseWriter, r *http.Request) {
	var spec model.AgentSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	spec.ID = "agent_" + chi.URLParam(r, "id")
	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = h.app.clock.Now()
	}
	if spec.Status == "" {
		spec.Status = model.AgentActive
	}
	if err := spec.Validate(); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.store.UpsertAgentSpec(r.Context(), &spec); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.app.buildAndRegisterRunner(h.app.currentRegistry(), &spec); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &spec)
}

func (h *handlers) deleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.app.store.DeleteAgentSpec(r.Context(), "agent_"+chi.URLParam(r, "id")); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) listThreads(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}
	page, err := h.app.store.ListThreads(r.Context(), store.ThreadQuery{
		OwnerID: ownerID(r),
		AgentID: "agent_" + chi.URLParam(r, "id"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"threads":  page.Threads,
		"total":    page.Total,
		"page":     offset/limit + 1,
		"pageSize": limit,
	})
}

func (h *handlers) createThread(w http.ResponseWriter, r *http.Request) {
	now := h.app.clock.Now()
	t := &model.Thread{
		Entity:        model.Entity{ID: h.app.clock.NewID("thread"), CreatorID: ownerID(r), CreatedAt: now},
		OwnerID:       ownerID(r),
		AgentID:       "agent_" + chi.URLParam(r, "id"),
		Status:        model.ThreadActive,
		LastMessageAt: now,
	}
	if err := h.app.store.UpsertThread(r.Context(), t); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *handlers) getThread(w http.ResponseWriter, r *http.Request) {
	t, err := h.app.store.GetThread(r.Context(), chi.URLParam(r, "threadId"))
	if err != nil {
		if store.IsNotFound(err) {
			writeErr(w, http.StatusNotFound, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if t.Status == model.ThreadDeleted {
		writeErr(w, http.StatusNotFound, (&store.NotFoundError{Entity: "Thread", ID: t.ID}).Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handlers) deleteThread(w http.ResponseWriter, r *http.Request) {
	if err := h.app.store.SoftDeleteThread(r.Context(), chi.URLParam(r, "threadId")); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) reloadTools(w http.ResponseWriter, r *http.Request) {
	if err := h.app.reload(r.Context()); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"store": "ok"}
	if _, err := h.app.store.ListAgentSpecs(r.Context()); err != nil {
		status["store"] = "error: " + err.Error()
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
