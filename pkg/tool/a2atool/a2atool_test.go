package a2atool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/a2a"
	"github.com/agentcore/runtime/pkg/a2a/client"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

type rpcEnvelope struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// newPeerServer returns a fake peer /a2a endpoint that immediately
// completes any tasks/send with the given reply text, or fails it when
// reply is empty.
func newPeerServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env rpcEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))

		now := time.Now()
		task := a2a.Task{ID: "task_1", Status: a2a.TaskStatus{State: a2a.TaskCompleted, CreatedAt: now, UpdatedAt: now}}
		if reply == "" {
			task.Status.State = a2a.TaskFailed
			task.Error = &a2a.TaskError{Code: string(model.ErrA2A), Message: "peer refused"}
		} else {
			task.Messages = []a2a.Message{a2a.TextMessage(a2a.RoleAssistant, reply)}
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": env.ID, "result": task}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestA2AToolInvokeSuccess(t *testing.T) {
	srv := newPeerServer(t, "answer: 42")
	defer srv.Close()

	c := client.New(srv.URL, nil, "")
	at := New(Config{Name: "peer", PeerAgentID: "agent_peer", BaseURL: srv.URL}, c)

	result, err := at.Invoke(context.Background(), map[string]any{"message": "what is the answer"})
	require.NoError(t, err)
	assert.Equal(t, "answer: 42", result.Output["reply"])
	assert.Equal(t, "task_1", result.Output["taskId"])
	assert.Equal(t, "task_1", result.ChildRunID)
}

func TestA2AToolInvokeRequiresMessage(t *testing.T) {
	at := New(Config{Name: "peer"}, client.New("http://unused", nil, ""))
	_, err := at.Invoke(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, model.ErrToolInvocation, tool.KindOf(err))
}

func TestA2AToolInvokePeerFailure(t *testing.T) {
	srv := newPeerServer(t, "")
	defer srv.Close()

	c := client.New(srv.URL, nil, "")
	at := New(Config{Name: "peer", PeerAgentID: "agent_peer"}, c)

	_, err := at.Invoke(context.Background(), map[string]any{"message": "hi"})
	require.Error(t, err)
	assert.Equal(t, model.ErrA2A, tool.KindOf(err))
}

func TestA2AToolDescribe(t *testing.T) {
	at := New(Config{Name: "peer", PeerAgentID: "agent_peer"}, client.New("http://unused", nil, ""))
	d := at.Describe()
	assert.Equal(t, "peer", d.Name)
	assert.Contains(t, d.Description, "agent_peer")
}
