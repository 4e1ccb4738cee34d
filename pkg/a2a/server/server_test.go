package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/a2a"
)

type fakeExecutor struct {
	gotAgentID string
	reply      string
	err        error
}

func (f *fakeExecutor) ExecuteTask(ctx context.Context, agentID string, task *a2a.Task) (*a2a.Task, error) {
	f.gotAgentID = agentID
	if f.err != nil {
		return nil, f.err
	}
	task.Messages = append(task.Messages, a2a.TextMessage(a2a.RoleAssistant, f.reply))
	task.Status.State = a2a.TaskCompleted
	return task, nil
}

func newTestServer(exec Executor, agentIDs []string) (*httptest.Server, *Server) {
	card := a2a.AgentCard{Name: "node", URL: "http://node.local"}
	s := New(card, exec, agentIDs)
	r := chi.NewRouter()
	s.Routes(r)
	return httptest.NewServer(r), s
}

func TestRoutesScopesTasksSendByAgentID(t *testing.T) {
	exec := &fakeExecutor{reply: "hi there"}
	srv, _ := newTestServer(exec, []string{"agent_a", "agent_b"})
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "tasks/send",
		"params": map[string]any{"message": a2a.TextMessage(a2a.RoleUser, "hello")},
	})
	resp, err := http.Post(srv.URL+"/agents/agent_b/a2a", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "agent_b", exec.gotAgentID)

	var rpcResp rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.Nil(t, rpcResp.Error)
}

func TestTasksGetRoundTrip(t *testing.T) {
	exec := &fakeExecutor{reply: "answer"}
	srv, _ := newTestServer(exec, []string{"agent_a"})
	defer srv.Close()

	sendBody, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "tasks/send",
		"params": map[string]any{"message": a2a.TextMessage(a2a.RoleUser, "hello")},
	})
	resp, err := http.Post(srv.URL+"/agents/agent_a/a2a", "application/json", bytes.NewReader(sendBody))
	require.NoError(t, err)
	var sendResp rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sendResp))
	resp.Body.Close()

	raw, err := json.Marshal(sendResp.Result)
	require.NoError(t, err)
	var task a2a.Task
	require.NoError(t, json.Unmarshal(raw, &task))
	assert.Equal(t, a2a.TaskCompleted, task.Status.State)

	getBody, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 2, "method": "tasks/get",
		"params": map[string]any{"taskId": task.ID},
	})
	resp2, err := http.Post(srv.URL+"/agents/agent_a/a2a", "application/json", bytes.NewReader(getBody))
	require.NoError(t, err)
	defer resp2.Body.Close()
	var getResp rpcResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&getResp))
	require.Nil(t, getResp.Error)
}

func TestTasksGetUnknownTaskReturnsRPCError(t *testing.T) {
	srv, _ := newTestServer(&fakeExecutor{}, []string{"agent_a"})
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "tasks/get",
		"params": map[string]any{"taskId": "does-not-exist"},
	})
	resp, err := http.Post(srv.URL+"/agents/agent_a/a2a", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var rpcResp rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.NotNil(t, rpcResp.Error)
}

func TestBareA2ARouteServesTasksGetAndCancel(t *testing.T) {
	exec := &fakeExecutor{reply: "answer"}
	srv, _ := newTestServer(exec, []string{"agent_a"})
	defer srv.Close()

	sendBody, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "tasks/send",
		"params": map[string]any{"message": a2a.TextMessage(a2a.RoleUser, "hello")},
	})
	resp, err := http.Post(srv.URL+"/agents/agent_a/a2a", "application/json", bytes.NewReader(sendBody))
	require.NoError(t, err)
	var sendResp rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sendResp))
	resp.Body.Close()

	raw, err := json.Marshal(sendResp.Result)
	require.NoError(t, err)
	var task a2a.Task
	require.NoError(t, json.Unmarshal(raw, &task))

	// A caller that only knows the node's base URL, like agentcorectl,
	// still reaches tasks/get and tasks/cancel through the bare /a2a route.
	cancelBody, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 2, "method": "tasks/cancel",
		"params": map[string]any{"taskId": task.ID, "reason": "user requested"},
	})
	resp2, err := http.Post(srv.URL+"/a2a", "application/json", bytes.NewReader(cancelBody))
	require.NoError(t, err)
	defer resp2.Body.Close()
	var cancelResp rpcResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&cancelResp))
	require.Nil(t, cancelResp.Error)
}

func TestHandleDirectoryListsOneCardPerAgentID(t *testing.T) {
	srv, _ := newTestServer(&fakeExecutor{}, []string{"agent_a", "agent_b", "agent_c"})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/agents.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	var dir a2a.Directory
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dir))
	assert.Len(t, dir.Agents, 3)
}

func TestHandleAgentCard(t *testing.T) {
	srv, _ := newTestServer(&fakeExecutor{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/.well-known/agent-card.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	var card a2a.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	assert.Equal(t, "node", card.Name)
}
