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
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/agentcore/runtime/pkg/a2a/client"
	"github.com/agentcore/runtime/pkg/config"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/registry"
	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/tool"
	"github.com/agentcore/runtime/pkg/tool/a2atool"
	"github.com/agentcore/runtime/pkg/tool/agenttool"
	"github.com/agentcore/runtime/pkg/tool/functiontool"
	"github.com/agentcore/runtime/pkg/tool/httptool"
	"github.com/agentcore/runtime/pkg/tool/mcptool"
)

// toolDeps bundles what a tool factory needs beyond the per-call
// model.ToolConfig: shared HTTP client, the agent Directory (for
// in-process agent-as-tool resolution), and the fixed set of compiled-in
// function implementations.
type toolDeps struct {
	httpClient *http.Client
	dir        *runner.Directory
	functions  map[string]functiontool.Def

	mcpMu  sync.Mutex
	mcpSet map[string]*mcptool.Toolset // keyed by server URL, shared across tool names
}

func newToolDeps(dir *runner.Directory, workingDir string) *toolDeps {
	return &toolDeps{
		httpClient: &http.Client{},
		dir:        dir,
		functions:  builtinFunctions(workingDir),
		mcpSet:     make(map[string]*mcptool.Toolset),
	}
}

func (d *toolDeps) mcpToolset(url, transport string) *mcptool.Toolset {
	d.mcpMu.Lock()
	defer d.mcpMu.Unlock()
	ts, ok := d.mcpSet[url]
	if !ok {
		ts = mcptool.New(mcptool.Config{URL: url, Transport: transport})
		d.mcpSet[url] = ts
	}
	return ts
}

// isLocalAgentTarget reports whether an a2a-typed tool's Target names a
// locally registered AgentSpec ID (the "agent_<name>" scheme ToAgentSpecs
// assigns) rather than a remote peer's base URL.
func isLocalAgentTarget(target string) bool {
	return !strings.Contains(target, "://") && strings.HasPrefix(target, "agent_")
}

// registerToolFactories registers one Factory per named entry in
// cfg.Tools, keyed by (type, name) as registry.ToolRegistry.Build expects.
// Building a brand-new ToolRegistry per config load (rather than mutating
// a shared one) is what lets applyConfig validate the next generation
// before swapping it in, without a partial registry ever being visible to
// a Build call in flight (SPEC_FULL.md §4.1).
func registerToolFactories(reg *registry.ToolRegistry, cfg *config.Config, deps *toolDeps) error {
	for name, tc := range cfg.Tools {
		name, tc := name, tc
		var err error
		switch tc.Type {
		case model.ToolTypeHTTP:
			err = reg.Register(model.ToolTypeHTTP, name, func(cfg model.ToolConfig) (tool.Tool, error) {
				op := httptool.Operation{
					Name:        name,
					Description: stringStatic(cfg.Static, "description", name),
					Method:      stringStatic(cfg.Static, "method", http.MethodPost),
					URL:         cfg.Target,
					InputSchema: mapStatic(cfg.Static, "inputSchema"),
				}
				return httptool.New(op, deps.httpClient), nil
			})
		case model.ToolTypeMCP:
			transport := stringStatic(tc.Static, "transport", "sse")
			err = reg.Register(model.ToolTypeMCP, name, func(cfg model.ToolConfig) (tool.Tool, error) {
				ts := deps.mcpToolset(cfg.Target, transport)
				return ts.Tool(context.Background(), name)
			})
		case model.ToolTypeA2A:
			err = reg.Register(model.ToolTypeA2A, name, func(cfg model.ToolConfig) (tool.Tool, error) {
				if isLocalAgentTarget(cfg.Target) {
					return agenttool.New(name, cfg.Target, deps.dir), nil
				}
				token := stringStatic(cfg.Static, "bearerToken", "")
				c := client.New(cfg.Target, deps.httpClient, token)
				return a2atool.New(a2atool.Config{Name: name, PeerAgentID: cfg.Target, BaseURL: cfg.Target}, c), nil
			})
		case model.ToolTypeFunction:
			err = reg.Register(model.ToolTypeFunction, name, func(cfg model.ToolConfig) (tool.Tool, error) {
				def, ok := deps.functions[name]
				if !ok {
					return nil, fmt.Errorf("no built-in function registered for %q", name)
				}
				return functiontool.New(def), nil
			})
		default:
			err = fmt.Errorf("tool %q: unknown type %q", name, tc.Type)
		}
		if err != nil {
			return fmt.Errorf("register tool %q: %w", name, err)
		}
	}
	return nil
}

func stringStatic(static map[string]any, key, fallback string) string {
	if v, ok := static[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func mapStatic(static map[string]any, key string) map[string]any {
	if v, ok := static[key].(map[string]any); ok {
		return v
	}
	return nil
}
