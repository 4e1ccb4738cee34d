package agenttool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

type fakeDirectory struct {
	reply string
	err   error
	gotID string
}

func (f *fakeDirectory) Invoke(ctx context.Context, agentID, input string) (string, error) {
	f.gotID = agentID
	return f.reply, f.err
}

func TestAgentToolInvokeSuccess(t *testing.T) {
	dir := &fakeDirectory{reply: "done"}
	at := New("sub", "agent_helper", dir)

	result, err := at.Invoke(context.Background(), map[string]any{"task": "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Output["reply"])
	assert.Equal(t, "agent_helper", dir.gotID)
}

func TestAgentToolInvokeRequiresTask(t *testing.T) {
	at := New("sub", "agent_helper", &fakeDirectory{})
	_, err := at.Invoke(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, model.ErrToolInvocation, tool.KindOf(err))
}

func TestAgentToolInvokePropagatesError(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("boom")}
	at := New("sub", "agent_helper", dir)
	_, err := at.Invoke(context.Background(), map[string]any{"task": "x"})
	require.Error(t, err)
	assert.Equal(t, model.ErrToolInvocation, tool.KindOf(err))
}

func TestAgentToolInvokeCancelledContext(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("cancelled downstream")}
	at := New("sub", "agent_helper", dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := at.Invoke(ctx, map[string]any{"task": "x"})
	require.Error(t, err)
	assert.Equal(t, model.ErrCancelled, tool.KindOf(err))
}

func TestAgentToolDescribe(t *testing.T) {
	at := New("sub", "agent_helper", &fakeDirectory{})
	d := at.Describe()
	assert.Equal(t, "sub", d.Name)
	assert.Contains(t, d.Description, "agent_helper")
}
