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

// Package seed is the Seeding & Registry component (spec.md §2 item 11):
// it loads default AgentSpec definitions into persistence on startup so
// a freshly deployed server has at least one usable agent without an
// operator hand-writing config first.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentcore/runtime/pkg/config"
	"github.com/agentcore/runtime/pkg/registry"
	"github.com/agentcore/runtime/pkg/store"
)

// DefaultConfig returns the built-in agent set shipped with the binary:
// a single general-purpose assistant with no tools attached. Operators
// layer their own YAML config on top via the normal Loader/Applier path;
// this only guarantees the store is never empty on first boot.
func DefaultConfig() *config.Config {
	cfg := &config.Config{
		Name: "agentcore-default",
		Agents: map[string]*config.AgentConfig{
			"assistant": {
				Description:  "General-purpose assistant with no tools attached.",
				SystemPrompt: "You are a helpful assistant.",
				Model:        "claude-3-5-sonnet-20241022",
				MaxTokens:    4096,
			},
		},
	}
	cfg.SetDefaults()
	return cfg
}

// Seed applies cfg through an Applier only if the store currently has no
// AgentSpecs at all, so re-running it against an already-configured
// deployment is a no-op rather than overwriting operator edits.
func Seed(ctx context.Context, gw store.Gateway, reg *registry.ToolRegistry, cfg *config.Config, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	existing, err := gw.ListAgentSpecs(ctx)
	if err != nil {
		return fmt.Errorf("seed: list agent specs: %w", err)
	}
	if len(existing) > 0 {
		log.Info("seed skipped, store already has agent specs", "count", len(existing))
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("seed: invalid default config: %w", err)
	}
	applier := config.NewApplier(gw, reg, log)
	if err := applier.Apply(ctx, cfg); err != nil {
		return fmt.Errorf("seed: apply default config: %w", err)
	}
	log.Info("seeded default agent specs", "agents", len(cfg.Agents))
	return nil
}
