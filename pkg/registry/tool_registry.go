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

package registry

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

// Factory builds a concrete Tool from a ToolConfig. Registered once per
// (type, name) pair at startup by each adapter package (function, http,
// mcp, a2a, agent).
type Factory func(cfg model.ToolConfig) (tool.Tool, error)

type key struct {
	Type model.ToolConfigType
	Name string
}

// snapshot is the immutable registry state swapped atomically on Reload so
// Build never observes a torn write (spec.md §4.1: "pure over the current
// registry snapshot; no hidden I/O").
type snapshot struct {
	factories map[key]Factory
}

// ToolRegistry is the Tool Registry component (spec.md §2 item 3, §4.1):
// register(def) / build(agentTools[]).
type ToolRegistry struct {
	current atomic.Pointer[snapshot]
	log     *slog.Logger
}

// NewToolRegistry returns an empty registry.
func NewToolRegistry(log *slog.Logger) *ToolRegistry {
	r := &ToolRegistry{log: log}
	r.current.Store(&snapshot{factories: make(map[key]Factory)})
	return r
}

// Register adds a factory for (type, name). Registration order is
// irrelevant; a duplicate (type, name) is rejected.
func (r *ToolRegistry) Register(typ model.ToolConfigType, name string, f Factory) error {
	old := r.current.Load()
	k := key{Type: typ, Name: name}
	if _, exists := old.factories[k]; exists {
		return &DuplicateNameError{Name: string(typ) + ":" + name}
	}
	next := &snapshot{factories: make(map[key]Factory, len(old.factories)+1)}
	for k2, v := range old.factories {
		next.factories[k2] = v
	}
	next.factories[k] = f
	r.current.Store(next)
	return nil
}

// Build resolves a concrete tool list for an agent's ToolConfig list.
// Missing or disabled configs are skipped with a warning log line rather
// than failing the whole build (spec.md §4.1).
func (r *ToolRegistry) Build(agentTools []model.ToolConfig) ([]tool.Tool, error) {
	snap := r.current.Load()
	out := make([]tool.Tool, 0, len(agentTools))
	for _, cfg := range agentTools {
		if !cfg.Enabled {
			r.log.Warn("tool disabled, skipping", "type", cfg.Type, "name", cfg.Name)
			continue
		}
		f, ok := snap.factories[key{Type: cfg.Type, Name: cfg.Name}]
		if !ok {
			r.log.Warn("tool not registered, skipping", "type", cfg.Type, "name", cfg.Name)
			continue
		}
		t, err := f(cfg)
		if err != nil {
			return nil, fmt.Errorf("build tool %s:%s: %w", cfg.Type, cfg.Name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Resolve looks up and builds a single tool by (type, name). It reports
// false when no factory is registered for the pair or the factory fails.
func (r *ToolRegistry) Resolve(typ model.ToolConfigType, name string, cfg model.ToolConfig) (tool.Tool, bool) {
	snap := r.current.Load()
	f, ok := snap.factories[key{Type: typ, Name: name}]
	if !ok {
		return nil, false
	}
	t, err := f(cfg)
	if err != nil {
		return nil, false
	}
	return t, true
}

// Count reports how many (type, name) factories are registered.
func (r *ToolRegistry) Count() int {
	return len(r.current.Load().factories)
}
