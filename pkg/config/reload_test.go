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

package config

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/registry"
	"github.com/agentcore/runtime/pkg/store"
	"github.com/agentcore/runtime/pkg/tool"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubTool struct{ name string }

func (s *stubTool) Describe() tool.Descriptor { return tool.Descriptor{Name: s.name} }
func (s *stubTool) Invoke(ctx context.Context, input map[string]any) (tool.Result, error) {
	return tool.Result{Output: map[string]any{"ok": true}}, nil
}

func TestApplierRejectsUnregisteredToolWithoutPersistingAny(t *testing.T) {
	gw := store.NewMemory()
	reg := registry.NewToolRegistry(discardLogger())
	require.NoError(t, reg.Register(model.ToolTypeFunction, "known", func(cfg model.ToolConfig) (tool.Tool, error) {
		return &stubTool{name: cfg.Name}, nil
	}))

	enabled := true
	cfg := &Config{
		Tools: map[string]ToolConfig{
			"known":   {Type: model.ToolTypeFunction, Enabled: &enabled},
			"unknown": {Type: model.ToolTypeHTTP, Target: "https://x", Enabled: &enabled},
		},
		Agents: map[string]*AgentConfig{
			"good": {SystemPrompt: "x", Model: "m", Tools: []string{"known"}},
			"bad":  {SystemPrompt: "y", Model: "m", Tools: []string{"unknown"}},
		},
	}
	cfg.SetDefaults()

	applier := NewApplier(gw, reg, discardLogger())
	err := applier.Apply(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, model.ErrConfigError, Kind(err))

	specs, listErr := gw.ListAgentSpecs(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, specs, "a failed apply must not persist any agent, including ones whose tools did resolve")
}

func TestApplierPersistsAllResolvedAgents(t *testing.T) {
	gw := store.NewMemory()
	reg := registry.NewToolRegistry(discardLogger())
	require.NoError(t, reg.Register(model.ToolTypeFunction, "known", func(cfg model.ToolConfig) (tool.Tool, error) {
		return &stubTool{name: cfg.Name}, nil
	}))

	enabled := true
	cfg := &Config{
		Tools: map[string]ToolConfig{"known": {Type: model.ToolTypeFunction, Enabled: &enabled}},
		Agents: map[string]*AgentConfig{
			"solo": {SystemPrompt: "x", Model: "m", Tools: []string{"known"}},
		},
	}
	cfg.SetDefaults()

	applier := NewApplier(gw, reg, discardLogger())
	require.NoError(t, applier.Apply(context.Background(), cfg))

	specs, err := gw.ListAgentSpecs(context.Background())
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "solo", specs[0].Name)
}
