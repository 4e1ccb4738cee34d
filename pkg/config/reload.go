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
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/registry"
	"github.com/agentcore/runtime/pkg/store"
)

// Applier persists a decoded Config's agents into the store, backing both
// the startup seed path and the POST /admin/tools/reload path. Every
// agent's tools must resolve against the live ToolRegistry before
// anything is written: a single unresolvable tool aborts the whole
// apply, leaving previously persisted AgentSpecs untouched (SPEC_FULL.md
// §4.1 — partial validation failure must not leave a half-applied
// config).
type Applier struct {
	store    store.Gateway
	registry *registry.ToolRegistry
	log      *slog.Logger
}

// NewApplier returns an Applier writing through gw, validating tool
// references against reg.
func NewApplier(gw store.Gateway, reg *registry.ToolRegistry, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{store: gw, registry: reg, log: log}
}

// Apply validates then persists every agent in cfg. On failure it returns
// an error whose Kind is ConfigError, naming the first agent whose enabled
// tools do not all resolve.
func (a *Applier) Apply(ctx context.Context, cfg *Config) error {
	specs, err := cfg.ToAgentSpecs()
	if err != nil {
		return fmt.Errorf("%w: %v", errConfigError, err)
	}

	for _, spec := range specs {
		built, err := a.registry.Build(spec.Tools)
		if err != nil {
			return fmt.Errorf("%w: agent %q: %v", errConfigError, spec.Name, err)
		}
		enabled := 0
		for _, tc := range spec.Tools {
			if tc.Enabled {
				enabled++
			}
		}
		if len(built) != enabled {
			return fmt.Errorf("%w: agent %q: %d of %d enabled tools are not registered", errConfigError, spec.Name, enabled-len(built), enabled)
		}
	}

	for _, spec := range specs {
		if err := a.store.UpsertAgentSpec(ctx, spec); err != nil {
			return fmt.Errorf("persist agent %q: %w", spec.Name, err)
		}
		a.log.Info("agent spec applied", "agentId", spec.ID, "name", spec.Name)
	}
	return nil
}

// errConfigError tags Apply failures with spec.md's ConfigError kind so
// HTTP handlers can map it without string-matching.
var errConfigError = &configError{kind: model.ErrConfigError}

type configError struct{ kind model.ErrorKind }

func (e *configError) Error() string { return string(e.kind) }

// Kind returns the spec.md §7 ErrorKind for an Apply failure, for
// callers that need it (e.g. the admin HTTP handler's response body).
func Kind(err error) model.ErrorKind {
	var ce *configError
	if errors.As(err, &ce) {
		return ce.kind
	}
	return ""
}
