package mcptool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

func TestJoinStrings(t *testing.T) {
	assert.Equal(t, "", joinStrings(nil))
	assert.Equal(t, "a", joinStrings([]string{"a"}))
	assert.Equal(t, "a\nb", joinStrings([]string{"a", "b"}))
}

func TestToolsetToolFailsWithoutReachableServer(t *testing.T) {
	ts := New(Config{Name: "unreachable", URL: "http://127.0.0.1:1/sse", Transport: "sse"})
	_, err := ts.Tool(context.Background(), "whatever")
	require.Error(t, err)
	assert.Equal(t, model.ErrConfigError, tool.KindOf(err))
}

func TestMCPToolDescribe(t *testing.T) {
	ts := New(Config{Name: "server"})
	mt := &mcpTool{ts: ts, name: "lookup"}
	d := mt.Describe()
	assert.Equal(t, "lookup", d.Name)
	assert.Equal(t, "mcp:server/lookup", d.Description)
}
