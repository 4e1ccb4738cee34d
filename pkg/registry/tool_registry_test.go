package registry

import (
	"context"
	"log/slog"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/model"
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

func TestToolRegistryRegisterDuplicateRejected(t *testing.T) {
	r := NewToolRegistry(discardLogger())
	f := func(cfg model.ToolConfig) (tool.Tool, error) { return &stubTool{name: cfg.Name}, nil }

	require.NoError(t, r.Register(model.ToolTypeFunction, "search", f))
	err := r.Register(model.ToolTypeFunction, "search", f)
	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
}

func TestToolRegistryBuildSkipsDisabledAndUnknown(t *testing.T) {
	r := NewToolRegistry(discardLogger())
	require.NoError(t, r.Register(model.ToolTypeFunction, "search", func(cfg model.ToolConfig) (tool.Tool, error) {
		return &stubTool{name: cfg.Name}, nil
	}))

	built, err := r.Build([]model.ToolConfig{
		{Type: model.ToolTypeFunction, Name: "search", Enabled: true},
		{Type: model.ToolTypeFunction, Name: "search", Enabled: false}, // disabled, skipped
		{Type: model.ToolTypeHTTP, Name: "nope", Enabled: true},        // unregistered, skipped
	})
	require.NoError(t, err)
	require.Len(t, built, 1)
	assert.Equal(t, "search", built[0].Describe().Name)
}

func TestToolRegistryBuildIsPureOverSnapshot(t *testing.T) {
	r := NewToolRegistry(discardLogger())
	require.NoError(t, r.Register(model.ToolTypeFunction, "a", func(cfg model.ToolConfig) (tool.Tool, error) {
		return &stubTool{name: cfg.Name}, nil
	}))

	cfgs := []model.ToolConfig{{Type: model.ToolTypeFunction, Name: "a", Enabled: true}}
	first, err := r.Build(cfgs)
	require.NoError(t, err)

	// Registering a second tool afterward must not retroactively change a
	// snapshot already taken for the same cfgs list.
	require.NoError(t, r.Register(model.ToolTypeFunction, "b", func(cfg model.ToolConfig) (tool.Tool, error) {
		return &stubTool{name: cfg.Name}, nil
	}))
	second, err := r.Build(cfgs)
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.Equal(t, 2, r.Count())
}
