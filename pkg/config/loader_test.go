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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/config/provider"
)

const sampleYAML = `
name: test-config
tools:
  search:
    type: http
    target: https://example.com/api
agents:
  coordinator:
    system_prompt: "you triage requests to $AGENT_ROLE"
    model: claude-3-5-sonnet-20241022
    tools: [search]
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoaderLoadExpandsEnvAndValidates(t *testing.T) {
	t.Setenv("AGENT_ROLE", "triage-bot")
	path := writeTempConfig(t, sampleYAML)

	p, err := provider.NewFileProvider(path, nil)
	require.NoError(t, err)
	loader := NewLoader(p)

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-config", cfg.Name)
	assert.Contains(t, cfg.Agents["coordinator"].SystemPrompt, "triage-bot")
}

func TestLoaderLoadRejectsInvalidConfig(t *testing.T) {
	path := writeTempConfig(t, "agents:\n  a:\n    system_prompt: x\n    model: m\n    tools: [nope]\n")
	p, err := provider.NewFileProvider(path, nil)
	require.NoError(t, err)
	loader := NewLoader(p)

	_, err = loader.Load(context.Background())
	require.Error(t, err)
}

func TestLoaderWatchInvokesOnChange(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	p, err := provider.NewFileProvider(path, nil)
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	loader := NewLoader(p, WithOnChange(func(c *Config) { changed <- c }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loader.Watch(ctx)

	// Give the watcher a moment to register before mutating the file.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML+"\n"), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, "test-config", cfg.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch onChange")
	}
}
