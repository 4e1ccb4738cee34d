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

// Package mcptool is the MCP adapter (spec.md §4.2): tool discovery over
// the Model Context Protocol, cached after first use, calls issued as
// JSON-RPC over the session mcp-go maintains.
package mcptool

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

// Config describes the MCP server an adapter instance talks to.
type Config struct {
	Name      string
	URL       string // SSE endpoint
	Transport string // recorded only; connect always uses mcp-go's SSE client
}

// Toolset connects to one MCP server lazily (on first Tool/Invoke call)
// and caches the discovered tool list.
type Toolset struct {
	cfg Config

	mu        sync.Mutex
	mcpClient *client.Client
	connected bool
	toolNames map[string]bool // discovery cache
}

// New returns a lazily-connecting MCP toolset.
func New(cfg Config) *Toolset {
	return &Toolset{cfg: cfg}
}

func (ts *Toolset) connect(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.connected {
		return nil
	}

	c, err := client.NewSSEMCPClient(ts.cfg.URL)
	if err != nil {
		return fmt.Errorf("mcp connect: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("mcp start: %w", err)
	}
	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpproto.Implementation{Name: "agentcore", Version: "1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("mcp initialize: %w", err)
	}

	listResp, err := c.ListTools(ctx, mcpproto.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("mcp list tools: %w", err)
	}
	names := make(map[string]bool, len(listResp.Tools))
	for _, t := range listResp.Tools {
		names[t.Name] = true
	}

	ts.mcpClient = c
	ts.toolNames = names
	ts.connected = true
	return nil
}

// Tool returns a tool.Tool bound to one discovered MCP tool name. Returns
// ConfigError if the name was never discovered on this server.
func (ts *Toolset) Tool(ctx context.Context, name string) (tool.Tool, error) {
	if err := ts.connect(ctx); err != nil {
		return nil, &tool.Err{Kind: model.ErrConfigError, Message: "mcp discovery failed", Cause: err}
	}
	ts.mu.Lock()
	_, known := ts.toolNames[name]
	ts.mu.Unlock()
	if !known {
		return nil, &tool.Err{Kind: model.ErrConfigError, Message: "mcp tool not discovered: " + name}
	}
	return &mcpTool{ts: ts, name: name}, nil
}

type mcpTool struct {
	ts   *Toolset
	name string
}

func (t *mcpTool) Describe() tool.Descriptor {
	return tool.Descriptor{Name: t.name, Description: "mcp:" + t.ts.cfg.Name + "/" + t.name}
}

// Invoke issues tools/call over the live MCP session. Streamed results are
// coalesced by mcp-go's CallTool into one response (spec.md §4.2:
// "streaming passthrough is out of scope for the core").
func (t *mcpTool) Invoke(ctx context.Context, input map[string]any) (tool.Result, error) {
	if err := t.ts.connect(ctx); err != nil {
		return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "mcp reconnect failed", Cause: err}
	}

	req := mcpproto.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = input

	resp, err := t.ts.mcpClient.CallTool(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return tool.Result{}, &tool.Err{Kind: model.ErrTimeout, Message: "mcp call deadline", Cause: err}
		}
		return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "mcp call failed", Cause: err}
	}
	if resp.IsError {
		return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "mcp tool reported error"}
	}

	out := map[string]any{}
	var texts []string
	for _, c := range resp.Content {
		if tc, ok := c.(mcpproto.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	if len(texts) > 0 {
		out["text"] = joinStrings(texts)
	}
	return tool.Result{Output: out}, nil
}

func joinStrings(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}
