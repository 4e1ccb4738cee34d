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
//
// Usage:
//
//	agentcored serve --config agentcore.yaml
//	agentcored serve --config agentcore.yaml --watch
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/agentcore/runtime/pkg/clock"
	"github.com/agentcore/runtime/pkg/config"
	"github.com/agentcore/runtime/pkg/config/provider"
	"github.com/agentcore/runtime/pkg/logger"
	"github.com/agentcore/runtime/pkg/metrics"
	"github.com/agentcore/runtime/pkg/registry"
	"github.com/agentcore/runtime/pkg/seed"
)

// CLI mirrors the teacher's single-binary, subcommand-per-verb shape: one
// root flag set for logging, one subcommand per operational verb.
type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Start the Agent Execution Core server."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file and exit."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info" env:"AGENTCORE_LOG_LEVEL"`
	LogFormat string `help:"Log format (text or json)." default:"json" env:"AGENTCORE_LOG_FORMAT"`
}

// ServeCmd starts the HTTP and A2A servers.
type ServeCmd struct {
	Port          int    `help:"Port to listen on." default:"8080" env:"AGENTCORE_PORT"`
	Watch         bool   `help:"Watch the config source for changes and hot-reload."`
	WorkingDir    string `name:"working-dir" help:"Directory built-in file tools are confined to." default:"." type:"path"`
	ConsulAddr    string `name:"consul-addr" help:"Consul address; when set, config is loaded from Consul KV instead of a file." env:"AGENTCORE_CONSUL_ADDR"`
	ConsulKey     string `name:"consul-key" help:"Consul KV key holding the config document." default:"agentcore/config" env:"AGENTCORE_CONSUL_KEY"`
	AnthropicKey  string `name:"anthropic-key" help:"Anthropic API key." env:"ANTHROPIC_API_KEY"`
	GeminiKey     string `name:"gemini-key" help:"Gemini API key." env:"GEMINI_API_KEY"`
	MetricsEnable bool   `name:"metrics" help:"Enable Prometheus metrics."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	_ = config.LoadDotEnv(".env")
	logger.Init(logger.Config{Level: cli.LogLevel, Format: cli.LogFormat})
	log := logger.Get()

	prov, err := c.provider(cli.Config)
	if err != nil {
		return fmt.Errorf("config provider: %w", err)
	}

	gw, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	m := metrics.New(metrics.Config{MetricsEnabled: c.MetricsEnable})
	clk := clock.New()
	a := newApp(gw, clk, log, m, c.WorkingDir, c.AnthropicKey, c.GeminiKey)

	loader := config.NewLoader(prov, config.WithLogger(log), config.WithOnChange(func(cfg *config.Config) {
		if err := a.applyConfig(context.Background(), cfg); err != nil {
			log.Error("config reload failed, keeping previous generation live", "err", err)
		} else {
			log.Info("config reloaded")
		}
	}))
	defer loader.Close()
	a.loader = loader

	cfg, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Agents) == 0 {
		log.Info("no agents configured, seeding default agent")
		cfg = seed.DefaultConfig()
	}
	if err := a.applyConfig(ctx, cfg); err != nil {
		return fmt.Errorf("apply initial config: %w", err)
	}
	if err := seedIfEmpty(ctx, a); err != nil {
		log.Warn("initial seed skipped", "err", err)
	}

	if c.Watch {
		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				log.Error("config watch stopped", "err", err)
			}
		}()
	}

	handler := newRouter(a, admissionConfig(gw, log))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("agentcored listening", "port", c.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (c *ServeCmd) provider(configPath string) (provider.Provider, error) {
	if c.ConsulAddr != "" {
		return provider.NewConsulProvider(c.ConsulAddr, c.ConsulKey, logger.Get())
	}
	if configPath == "" {
		configPath = "agentcore.yaml"
	}
	return provider.NewFileProvider(configPath, logger.Get())
}

// ValidateCmd loads and validates a config file without starting a server.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}
	log := logger.Get()
	prov, err := provider.NewFileProvider(cli.Config, log)
	if err != nil {
		return err
	}
	loader := config.NewLoader(prov, config.WithLogger(log))
	defer loader.Close()
	cfg, err := loader.Load(context.Background())
	if err != nil {
		return err
	}
	reg := registry.NewToolRegistry(log)
	if err := registerToolFactories(reg, cfg, newToolDeps(nil, ".")); err != nil {
		return err
	}
	if _, err := cfg.ToAgentSpecs(); err != nil {
		return err
	}
	if _, err := cfg.ToWorkflowSpecs(); err != nil {
		return err
	}
	fmt.Printf("config valid: %d agent(s), %d tool(s), %d workflow(s)\n", len(cfg.Agents), len(cfg.Tools), len(cfg.Workflows))
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentcored"),
		kong.Description("Agent Execution Core server"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
