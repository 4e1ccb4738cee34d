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

// Package config provides the YAML configuration surface for Agentcore:
// named tool definitions and named agent definitions that the server
// loads at startup and can reload at runtime without a restart.
//
// Example:
//
//	tools:
//	  web_search:
//	    type: http
//	    target: https://search.example.com/api
//	    enabled: true
//
//	agents:
//	  coordinator:
//	    system_prompt: You triage requests and delegate to specialists.
//	    model: claude-3-5-sonnet-20241022
//	    coordinator: true
//	    tools: [web_search]
//
//	workflows:
//	  triage:
//	    pattern: sequential
//	    coordinator: coordinator
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/workflow"
)

// ToolConfig is one named tool entry under the top-level `tools:` map.
type ToolConfig struct {
	Type    model.ToolConfigType `yaml:"type" mapstructure:"type"`
	Target  string               `yaml:"target,omitempty" mapstructure:"target"`
	Static  map[string]any       `yaml:"static,omitempty" mapstructure:"static"`
	Enabled *bool                `yaml:"enabled,omitempty" mapstructure:"enabled"`
}

func (t ToolConfig) enabled() bool {
	if t.Enabled == nil {
		return true
	}
	return *t.Enabled
}

// AgentConfig is one named agent entry under the top-level `agents:` map.
type AgentConfig struct {
	Description  string   `yaml:"description,omitempty" mapstructure:"description"`
	SystemPrompt string   `yaml:"system_prompt" mapstructure:"system_prompt"`
	Model        string   `yaml:"model" mapstructure:"model"`
	Temperature  float64  `yaml:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens    int      `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
	MaxMessages  int      `yaml:"max_messages,omitempty" mapstructure:"max_messages"`
	Tools        []string `yaml:"tools,omitempty" mapstructure:"tools"`
	Capabilities []string `yaml:"capabilities,omitempty" mapstructure:"capabilities"`
	Coordinator  bool     `yaml:"coordinator,omitempty" mapstructure:"coordinator"`
	Disabled     bool     `yaml:"disabled,omitempty" mapstructure:"disabled"`
}

// HandoffConstraint mirrors workflow.HandoffConstraint for YAML decoding.
type HandoffConstraint struct {
	After   string `yaml:"after" mapstructure:"after"`
	MustUse string `yaml:"must_use" mapstructure:"must_use"`
}

// WorkflowConfig is one named workflow entry under the top-level
// `workflows:` map. Fields irrelevant to Pattern are left zero, the same
// convention workflow.Spec itself uses.
type WorkflowConfig struct {
	Pattern            workflow.Pattern    `yaml:"pattern" mapstructure:"pattern"`
	CoordinatorID      string              `yaml:"coordinator" mapstructure:"coordinator"`
	SpecialistIDs      []string            `yaml:"specialists,omitempty" mapstructure:"specialists"`
	MergerID           string              `yaml:"merger,omitempty" mapstructure:"merger"`
	Quorum             int                 `yaml:"quorum,omitempty" mapstructure:"quorum"`
	SpecialistDeadline time.Duration       `yaml:"specialist_deadline,omitempty" mapstructure:"specialist_deadline"`
	ExecutorID         string              `yaml:"executor,omitempty" mapstructure:"executor"`
	EvaluatorID        string              `yaml:"evaluator,omitempty" mapstructure:"evaluator"`
	SpecialistID       string              `yaml:"specialist,omitempty" mapstructure:"specialist"`
	MaxHandoffs        int                 `yaml:"max_handoffs,omitempty" mapstructure:"max_handoffs"`
	Constraints        []HandoffConstraint `yaml:"constraints,omitempty" mapstructure:"constraints"`
}

// Config is the root configuration structure decoded from YAML.
type Config struct {
	Version   string                     `yaml:"version,omitempty" mapstructure:"version"`
	Name      string                     `yaml:"name,omitempty" mapstructure:"name"`
	Tools     map[string]ToolConfig      `yaml:"tools,omitempty" mapstructure:"tools"`
	Agents    map[string]*AgentConfig    `yaml:"agents,omitempty" mapstructure:"agents"`
	Workflows map[string]*WorkflowConfig `yaml:"workflows,omitempty" mapstructure:"workflows"`
}

// SetDefaults fills in values the teacher's loader also defaults: a
// version string and per-agent max message window.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	for _, a := range c.Agents {
		if a.MaxMessages == 0 {
			a.MaxMessages = 20
		}
	}
}

// Validate checks cross-references (an agent's tool list must resolve
// against the tools map) in addition to each AgentSpec's own invariants,
// surfaced below after ToAgentSpecs.
func (c *Config) Validate() error {
	for agentName, a := range c.Agents {
		for _, toolName := range a.Tools {
			if _, ok := c.Tools[toolName]; !ok {
				return fmt.Errorf("agent %q references undefined tool %q", agentName, toolName)
			}
		}
	}
	specs, err := c.ToAgentSpecs()
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("agent %q: %w", spec.Name, err)
		}
	}
	if _, err := c.ToWorkflowSpecs(); err != nil {
		return err
	}
	return nil
}

// ToAgentSpecs converts the decoded config into the model.AgentSpec list
// pkg/seed and the admin reload path persist. Disabled agents are
// skipped.
func (c *Config) ToAgentSpecs() ([]*model.AgentSpec, error) {
	specs := make([]*model.AgentSpec, 0, len(c.Agents))
	for name, a := range c.Agents {
		if a.Disabled {
			continue
		}
		tools := make([]model.ToolConfig, 0, len(a.Tools))
		for _, toolName := range a.Tools {
			tc, ok := c.Tools[toolName]
			if !ok {
				return nil, fmt.Errorf("agent %q references undefined tool %q", name, toolName)
			}
			tools = append(tools, model.ToolConfig{
				Type:    tc.Type,
				Name:    toolName,
				Target:  tc.Target,
				Static:  tc.Static,
				Enabled: tc.enabled(),
			})
		}
		specs = append(specs, &model.AgentSpec{
			Entity:       model.Entity{ID: "agent_" + name},
			Name:         name,
			Description:  a.Description,
			Status:       model.AgentActive,
			SystemPrompt: strings.TrimSpace(a.SystemPrompt),
			Model:        a.Model,
			Temperature:  a.Temperature,
			MaxTokens:    a.MaxTokens,
			MaxMessages:  a.MaxMessages,
			Tools:        tools,
			Capabilities: a.Capabilities,
			Coordinator:  a.Coordinator,
		})
	}
	return specs, nil
}

// agentID converts a config-local agent name into the AgentSpec ID
// ToAgentSpecs assigns it, resolving empty names to empty (optional refs).
func (c *Config) agentID(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if _, ok := c.Agents[name]; !ok {
		return "", fmt.Errorf("workflow references undefined agent %q", name)
	}
	return "agent_" + name, nil
}

// ToWorkflowSpecs converts the decoded `workflows:` map into
// workflow.Spec values keyed by workflow name, resolving every agent
// reference against c.Agents the same way ToAgentSpecs resolves tool
// references against c.Tools.
func (c *Config) ToWorkflowSpecs() (map[string]workflow.Spec, error) {
	specs := make(map[string]workflow.Spec, len(c.Workflows))
	for name, wc := range c.Workflows {
		coordinatorID, err := c.agentID(wc.CoordinatorID)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", name, err)
		}
		mergerID, err := c.agentID(wc.MergerID)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", name, err)
		}
		executorID, err := c.agentID(wc.ExecutorID)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", name, err)
		}
		evaluatorID, err := c.agentID(wc.EvaluatorID)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", name, err)
		}
		specialistID, err := c.agentID(wc.SpecialistID)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", name, err)
		}
		specialistIDs := make([]string, 0, len(wc.SpecialistIDs))
		for _, s := range wc.SpecialistIDs {
			id, err := c.agentID(s)
			if err != nil {
				return nil, fmt.Errorf("workflow %q: %w", name, err)
			}
			specialistIDs = append(specialistIDs, id)
		}
		constraints := make([]workflow.HandoffConstraint, 0, len(wc.Constraints))
		for _, hc := range wc.Constraints {
			constraints = append(constraints, workflow.HandoffConstraint{After: hc.After, MustUse: hc.MustUse})
		}
		specs[name] = workflow.Spec{
			Name:               name,
			Pattern:            wc.Pattern,
			CoordinatorID:      coordinatorID,
			SpecialistIDs:      specialistIDs,
			MergerID:           mergerID,
			Quorum:             wc.Quorum,
			SpecialistDeadline: wc.SpecialistDeadline,
			ExecutorID:         executorID,
			EvaluatorID:        evaluatorID,
			SpecialistID:       specialistID,
			MaxHandoffs:        wc.MaxHandoffs,
			Constraints:        constraints,
		}
	}
	return specs, nil
}
