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

// Command agentcored is the Agent Execution Core server: it loads agent
// and tool configuration, serves the caller-facing chat/admin HTTP
// surface, and serves the A2A JSON-RPC surface for peer nodes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/agentcore/runtime/pkg/admission"
	"github.com/agentcore/runtime/pkg/clock"
	"github.com/agentcore/runtime/pkg/config"
	"github.com/agentcore/runtime/pkg/llm"
	"github.com/agentcore/runtime/pkg/llm/anthropicdriver"
	"github.com/agentcore/runtime/pkg/llm/geminidriver"
	"github.com/agentcore/runtime/pkg/metrics"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/ratelimit"
	"github.com/agentcore/runtime/pkg/registry"
	"github.com/agentcore/runtime/pkg/runner"
	"github.com/agentcore/runtime/pkg/seed"
	"github.com/agentcore/runtime/pkg/store"
	"github.com/agentcore/runtime/pkg/workflow"
)

// app holds every dependency the HTTP handlers need. Its registry and
// workflow map are swapped wholesale on a successful reload rather than
// mutated in place, the same copy-on-write discipline the Tool Registry
// itself uses (SPEC_FULL.md §4.1).
type app struct {
	store   store.Gateway
	dir     *runner.Directory
	orch    *workflow.Orchestrator
	metrics *metrics.Metrics
	clock   clock.Clock
	logger  *slog.Logger

	workingDir string
	anthropic  llm.Driver
	gemini     llm.Driver

	mu        sync.RWMutex
	registry  *registry.ToolRegistry
	applier   *config.Applier
	workflows map[string]workflow.Spec

	loader *config.Loader // set once main wires it, used by POST /admin/tools/reload
}

// reload re-loads configuration from the app's Loader and applies it.
// Used by the admin reload endpoint; the background Watch callback in
// main.go receives an already-loaded config and calls applyConfig itself.
func (a *app) reload(ctx context.Context) error {
	if a.loader == nil {
		return fmt.Errorf("no config loader wired")
	}
	cfg, err := a.loader.Load(ctx)
	if err != nil {
		return err
	}
	return a.applyConfig(ctx, cfg)
}

func newApp(gw store.Gateway, c clock.Clock, log *slog.Logger, m *metrics.Metrics, workingDir, anthropicKey, geminiKey string) *app {
	dir := runner.NewDirectory()
	a := &app{
		store:      gw,
		dir:        dir,
		orch:       workflow.New(dir, gw, c, log),
		metrics:    m,
		clock:      c,
		logger:     log,
		workingDir: workingDir,
		anthropic:  anthropicdriver.New(anthropicKey),
		gemini:     geminidriver.New(geminiKey),
		workflows:  make(map[string]workflow.Spec),
	}
	return a
}

// driverFor picks the LLM Driver by a coarse model-name prefix, the same
// dispatch the teacher's provider factory does keyed on provider name
// rather than free-form model strings (there is no provider field in
// AgentSpec, so the model name itself is the routing key here).
func (a *app) driverFor(modelName string) (llm.Driver, error) {
	switch {
	case strings.HasPrefix(modelName, "claude"):
		return a.anthropic, nil
	case strings.HasPrefix(modelName, "gemini"):
		return a.gemini, nil
	default:
		return nil, fmt.Errorf("no driver registered for model %q", modelName)
	}
}

func (a *app) currentRegistry() *registry.ToolRegistry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.registry
}

func (a *app) currentWorkflows() map[string]workflow.Spec {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.workflows
}

func (a *app) workflowSpec(id string) (workflow.Spec, bool) {
	wfs := a.currentWorkflows()
	spec, ok := wfs[id]
	return spec, ok
}

// applyConfig builds a fresh ToolRegistry from cfg, validates every agent
// spec against it, and only on success swaps it in and rebuilds every
// Runner in the Directory. A failure at any step leaves the previously
// active registry, workflow map, and Runners untouched (spec.md §4.1
// "partial validation failure aborts the swap... leaving the old
// snapshot live").
func (a *app) applyConfig(ctx context.Context, cfg *config.Config) error {
	newReg := registry.NewToolRegistry(a.logger)
	deps := newToolDeps(a.dir, a.workingDir)
	if err := registerToolFactories(newReg, cfg, deps); err != nil {
		return err
	}

	applier := config.NewApplier(a.store, newReg, a.logger)
	if err := applier.Apply(ctx, cfg); err != nil {
		return err
	}

	workflows, err := cfg.ToWorkflowSpecs()
	if err != nil {
		return err
	}

	specs, err := a.store.ListAgentSpecs(ctx)
	if err != nil {
		return fmt.Errorf("list agent specs after apply: %w", err)
	}
	runners := make([]*runner.Runner, 0, len(specs))
	for _, spec := range specs {
		if spec.Status != model.AgentActive {
			continue
		}
		r, err := a.buildRunner(newReg, spec)
		if err != nil {
			return fmt.Errorf("build runner for agent %q: %w", spec.Name, err)
		}
		runners = append(runners, r)
	}

	a.mu.Lock()
	for _, r := range runners {
		a.dir.Register(r)
	}
	a.registry = newReg
	a.applier = applier
	a.workflows = workflows
	a.mu.Unlock()
	return nil
}

func (a *app) buildAndRegisterRunner(reg *registry.ToolRegistry, spec *model.AgentSpec) error {
	r, err := a.buildRunner(reg, spec)
	if err != nil {
		return err
	}
	a.dir.Register(r)
	return nil
}

func (a *app) buildRunner(reg *registry.ToolRegistry, spec *model.AgentSpec) (*runner.Runner, error) {
	driver, err := a.driverFor(spec.Model)
	if err != nil {
		return nil, err
	}
	tools, err := reg.Build(spec.Tools)
	if err != nil {
		return nil, err
	}
	estimator, err := llm.NewEstimator()
	if err != nil {
		return nil, fmt.Errorf("new token estimator: %w", err)
	}
	r := runner.New(runner.Config{
		Spec:        spec,
		Store:       a.store,
		Driver:      driver,
		Tools:       tools,
		Clock:       a.clock,
		Logger:      a.logger,
		Estimator:   estimator,
		MaxMessages: spec.MaxMessages,
	})
	return r, nil
}

// admissionConfig builds the Admission Layer middleware config. Token
// validation is only wired when AGENTCORE_JWKS_URL is set; otherwise the
// server runs without bearer-token checks, which is only appropriate
// behind a trusted network boundary (documented in DESIGN.md).
func admissionConfig(gw store.Gateway, log *slog.Logger) admission.Config {
	cfg := admission.Config{
		Limiter: ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.DefaultRule),
		Store:   gw,
		Logger:  log,
	}
	jwksURL := os.Getenv("AGENTCORE_JWKS_URL")
	if jwksURL == "" {
		return cfg
	}
	validator, err := admission.NewTokenValidator(context.Background(), jwksURL, os.Getenv("AGENTCORE_JWT_ISSUER"), os.Getenv("AGENTCORE_JWT_AUDIENCE"))
	if err != nil {
		log.Error("jwt validator init failed, admission will reject all bearer tokens", "err", err)
		cfg.Validator = rejectingValidator{err: fmt.Errorf("jwt validator unavailable: %w", err)}
		return cfg
	}
	cfg.Validator = validator
	return cfg
}

// rejectingValidator fails every bearer token. admissionConfig installs it
// when AGENTCORE_JWKS_URL is set but the validator could not be built.
type rejectingValidator struct{ err error }

func (v rejectingValidator) Validate(context.Context, string) (*admission.Claims, error) {
	return nil, v.err
}

func openStore() (store.Gateway, error) {
	dsn := os.Getenv("AGENTCORE_STORE_DSN")
	if dsn == "" {
		return store.NewMemory(), nil
	}
	dialect := os.Getenv("AGENTCORE_STORE_DIALECT")
	if dialect == "" {
		dialect = "sqlite"
	}
	return store.OpenSQL(dialect, dsn)
}

func seedIfEmpty(ctx context.Context, a *app) error {
	return seed.Seed(ctx, a.store, a.currentRegistry(), seed.DefaultConfig(), a.logger)
}
