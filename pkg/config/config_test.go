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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/workflow"
)

func TestConfigToAgentSpecsResolvesTools(t *testing.T) {
	enabled := true
	cfg := &Config{
		Tools: map[string]ToolConfig{
			"search": {Type: model.ToolTypeHTTP, Target: "https://example.com", Enabled: &enabled},
		},
		Agents: map[string]*AgentConfig{
			"coordinator": {
				SystemPrompt: "you triage",
				Model:        "claude-3-5-sonnet-20241022",
				Coordinator:  true,
				Tools:        []string{"search"},
			},
		},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	specs, err := cfg.ToAgentSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "coordinator", specs[0].Name)
	assert.True(t, specs[0].Coordinator)
	require.Len(t, specs[0].Tools, 1)
	assert.Equal(t, "search", specs[0].Tools[0].Name)
	assert.True(t, specs[0].Tools[0].Enabled)
	assert.Equal(t, 20, specs[0].MaxMessages)
}

func TestConfigValidateRejectsUndefinedToolReference(t *testing.T) {
	cfg := &Config{
		Agents: map[string]*AgentConfig{
			"a": {SystemPrompt: "x", Model: "m", Tools: []string{"missing"}},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestConfigSkipsDisabledAgents(t *testing.T) {
	cfg := &Config{
		Agents: map[string]*AgentConfig{
			"a": {SystemPrompt: "x", Model: "m", Disabled: true},
		},
	}
	specs, err := cfg.ToAgentSpecs()
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestConfigToWorkflowSpecsResolvesAgentRefs(t *testing.T) {
	cfg := &Config{
		Agents: map[string]*AgentConfig{
			"triage":  {SystemPrompt: "x", Model: "m"},
			"billing": {SystemPrompt: "y", Model: "m"},
		},
		Workflows: map[string]*WorkflowConfig{
			"support": {
				Pattern:       workflow.PatternSequential,
				CoordinatorID: "triage",
				Constraints:   []HandoffConstraint{{After: "escalate", MustUse: "billing_tool"}},
			},
		},
	}
	specs, err := cfg.ToWorkflowSpecs()
	require.NoError(t, err)
	require.Contains(t, specs, "support")
	assert.Equal(t, "agent_triage", specs["support"].CoordinatorID)
	require.Len(t, specs["support"].Constraints, 1)
}

func TestConfigValidateRejectsUndefinedWorkflowAgentReference(t *testing.T) {
	cfg := &Config{
		Agents: map[string]*AgentConfig{
			"a": {SystemPrompt: "x", Model: "m"},
		},
		Workflows: map[string]*WorkflowConfig{
			"w": {Pattern: workflow.PatternSequential, CoordinatorID: "missing"},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
