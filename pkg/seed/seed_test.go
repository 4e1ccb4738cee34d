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

package seed

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
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeedPopulatesEmptyStore(t *testing.T) {
	gw := store.NewMemory()
	reg := registry.NewToolRegistry(discardLogger())

	require.NoError(t, Seed(context.Background(), gw, reg, DefaultConfig(), discardLogger()))

	specs, err := gw.ListAgentSpecs(context.Background())
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "assistant", specs[0].Name)
}

func TestSeedSkipsNonEmptyStore(t *testing.T) {
	gw := store.NewMemory()
	reg := registry.NewToolRegistry(discardLogger())
	require.NoError(t, gw.UpsertAgentSpec(context.Background(), &model.AgentSpec{
		Entity: model.Entity{ID: "agent_existing"}, Name: "existing",
		Status: model.AgentActive, SystemPrompt: "x", Model: "m",
	}))

	require.NoError(t, Seed(context.Background(), gw, reg, DefaultConfig(), discardLogger()))

	specs, err := gw.ListAgentSpecs(context.Background())
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "existing", specs[0].Name)
}
