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

// Package server is the inbound half of the A2A Endpoint (spec.md §2 item
// 7, §6): JSON-RPC dispatch for tasks/send|get|cancel plus the
// .well-known/agent-card.json and agents.json discovery documents.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agentcore/runtime/pkg/a2a"
)

// Executor runs one A2A task to completion (or to its first pause, for a
// multi-turn flow) and returns the updated Task. It is implemented by the
// Agent Runner; this package only knows the JSON-RPC envelope.
type Executor interface {
	ExecuteTask(ctx context.Context, agentID string, task *a2a.Task) (*a2a.Task, error)
}

// Server is the inbound A2A endpoint for one or more locally hosted agents.
type Server struct {
	card     a2a.AgentCard
	exec     Executor
	agentIDs []string // agents this node exposes, for agents.json

	mu    sync.RWMutex
	tasks map[string]*a2a.Task
}

// New returns a Server advertising card and dispatching tasks to exec.
func New(card a2a.AgentCard, exec Executor, agentIDs []string) *Server {
	return &Server{card: card, exec: exec, agentIDs: agentIDs, tasks: make(map[string]*a2a.Task)}
}

// Routes mounts the A2A endpoint and discovery documents onto r.
//
// tasks/send is scoped per agent (/agents/{agentID}/a2a), mirroring the
// teacher's own per-agent path dispatch (pkg/a2a/server.go's
// handleAgentRoutes parses the agent ID out of the URL path) rather than
// one shared endpoint that can't say which locally hosted agent a new task
// is for. tasks/get and tasks/cancel look tasks up by task ID alone (task
// IDs are unique across the whole node), so a bare /a2a is kept alongside
// it for callers, such as the admin CLI, that only know a node base URL.
func (s *Server) Routes(r chi.Router) {
	r.Get("/.well-known/agent-card.json", s.handleAgentCard)
	r.Get("/agents.json", s.handleDirectory)
	r.Post("/a2a", s.handleRPC)
	r.Route("/agents/{agentID}", func(sub chi.Router) {
		sub.Post("/a2a", s.handleRPC)
	})
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

func (s *Server) handleDirectory(w http.ResponseWriter, r *http.Request) {
	dir := a2a.Directory{Agents: make([]a2a.AgentCard, 0, len(s.agentIDs))}
	for range s.agentIDs {
		dir.Agents = append(dir.Agents, s.card)
	}
	writeJSON(w, http.StatusOK, dir)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Result  any         `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
		return
	}

	switch req.Method {
	case "tasks/send":
		s.handleTasksSend(w, r, req)
	case "tasks/get":
		s.handleTasksGet(w, req)
	case "tasks/cancel":
		s.handleTasksCancel(w, req)
	default:
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found"}})
	}
}

func (s *Server) handleTasksSend(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	var params a2a.TasksSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}})
		return
	}

	taskID := params.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	now := time.Now().UTC()
	task := &a2a.Task{
		ID:        taskID,
		Status:    a2a.TaskStatus{State: a2a.TaskSubmitted, CreatedAt: now, UpdatedAt: now},
		Messages:  []a2a.Message{params.Message},
		ParentRun: params.ParentRunID,
	}

	s.mu.Lock()
	s.tasks[taskID] = task
	s.mu.Unlock()

	agentID := chi.URLParam(r, "agentID")
	updated, err := s.exec.ExecuteTask(r.Context(), agentID, task)
	if err != nil {
		task.Status = a2a.TaskStatus{State: a2a.TaskFailed, CreatedAt: now, UpdatedAt: time.Now().UTC()}
		task.Error = &a2a.TaskError{Code: "A2AError", Message: err.Error()}
		updated = task
	}

	s.mu.Lock()
	s.tasks[taskID] = updated
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: updated})
}

func (s *Server) handleTasksGet(w http.ResponseWriter, req rpcRequest) {
	var params a2a.TasksGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}})
		return
	}
	s.mu.RLock()
	task, ok := s.tasks[params.TaskID]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32001, Message: "task not found"}})
		return
	}
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: task})
}

func (s *Server) handleTasksCancel(w http.ResponseWriter, req rpcRequest) {
	var params a2a.TasksCancelParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}})
		return
	}
	s.mu.Lock()
	task, ok := s.tasks[params.TaskID]
	if ok && !task.Status.State.IsTerminal() {
		task.Status.State = a2a.TaskCanceled
		task.Status.UpdatedAt = time.Now().UTC()
		task.Status.Reason = params.Reason
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32001, Message: "task not found"}})
		return
	}
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: task})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
