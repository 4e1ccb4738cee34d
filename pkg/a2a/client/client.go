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

// Package client is the outbound half of the A2A Endpoint: a JSON-RPC 2.0
// client issuing tasks/send, tasks/get, and tasks/cancel against a peer's
// /a2a endpoint (spec.md §4.2, §6).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentcore/runtime/pkg/a2a"
)

// Client talks JSON-RPC 2.0 to one peer's /a2a endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	idSeq      int64
}

// New returns a Client for the peer rooted at baseURL (e.g.
// "https://peer.example.com"); the /a2a path is appended per call.
func New(baseURL string, httpClient *http.Client, bearerToken string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, token: bearerToken}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	c.idSeq++
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.idSeq, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/a2a", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("a2a call %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("decode rpc envelope: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("a2a error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// SendTask issues tasks/send, carrying parentRunID so the peer can link its
// own Run back to ours (spec.md §4.2).
func (c *Client) SendTask(ctx context.Context, msg a2a.Message, taskID, parentRunID string) (*a2a.Task, error) {
	var task a2a.Task
	err := c.call(ctx, "tasks/send", a2a.TasksSendParams{Message: msg, TaskID: taskID, ParentRunID: parentRunID}, &task)
	return &task, err
}

// GetTask issues tasks/get.
func (c *Client) GetTask(ctx context.Context, taskID string) (*a2a.Task, error) {
	var task a2a.Task
	err := c.call(ctx, "tasks/get", a2a.TasksGetParams{TaskID: taskID}, &task)
	return &task, err
}

// CancelTask issues tasks/cancel.
func (c *Client) CancelTask(ctx context.Context, taskID, reason string) (*a2a.Task, error) {
	var task a2a.Task
	err := c.call(ctx, "tasks/cancel", a2a.TasksCancelParams{TaskID: taskID, Reason: reason}, &task)
	return &task, err
}

// ResolveAgentCard fetches the peer's .well-known/agent-card.json.
func (c *Client) ResolveAgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/.well-known/agent-card.json", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve agent card: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolve agent card: status %d", resp.StatusCode)
	}
	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}
	return &card, nil
}

// WaitTerminal polls GetTask until the task reaches a terminal state or ctx
// is done, per spec.md §4.2 ("waits for terminal state...before returning").
func (c *Client) WaitTerminal(ctx context.Context, taskID string, pollInterval time.Duration) (*a2a.Task, error) {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	for {
		task, err := c.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status.State.IsTerminal() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
