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
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentcore/runtime/pkg/a2a"
	a2aserver "github.com/agentcore/runtime/pkg/a2a/server"
	"github.com/agentcore/runtime/pkg/admission"
	"github.com/agentcore/runtime/pkg/metrics"
)

// newRouter lays out the full external surface: caller-facing chat and
// admin endpoints guarded by the Admission Layer, and the A2A peer
// surface mounted outside it (pkg/a2a/server performs no token check of
// its own, so A2A routes are unauthenticated at this layer).
func newRouter(a *app, admCfg admission.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(admission.CORS(admCfg.AllowedOrigins))
	if a.metrics != nil {
		r.Use(metrics.HTTPMiddleware(a.metrics))
	}

	h := &handlers{app: a}

	r.Get("/health", h.health)

	r.Group(func(caller chi.Router) {
		if admCfg.Validator != nil {
			caller.Use(admission.Middleware(admCfg))
		}
		caller.Post("/chat/{agentId}", h.chat)
		caller.Post("/workflows/{workflowId}/chat", h.workflowChat)
		caller.Post("/human-gate/action", h.humanGateAction)
		caller.Get("/agents/{id}/threads", h.listThreads)
		caller.Post("/agents/{id}/threads", h.createThread)
		caller.Get("/agents/{id}/threads/{threadId}", h.getThread)
		caller.Delete("/agents/{id}/threads/{threadId}", h.deleteThread)
	})

	r.Group(func(admin chi.Router) {
		if admCfg.Validator != nil {
			admin.Use(admission.Middleware(admCfg))
			admin.Use(admission.RequireRole(admission.RoleAdmin))
		}
		admin.Get("/agents", h.listAgents)
		admin.Get("/agents/{id}", h.getAgent)
		admin.Post("/agents/{id}", h.putAgent)
		admin.Put("/agents/{id}", h.putAgent)
		admin.Delete("/agents/{id}", h.deleteAgent)
		admin.Post("/admin/tools/reload", h.reloadTools)
	})

	card := a2a.AgentCard{
		Name:         "agentcore",
		Version:      "1",
		Description:  "Agent Execution Core node",
		Capabilities: a2a.Capabilities{Streaming: true, MultiTurn: true},
	}
	srv := a2aserver.New(card, newRunnerExecutor(a.dir, a.clock), a.dir.AgentIDs())
	srv.Routes(r)

	return r
}
