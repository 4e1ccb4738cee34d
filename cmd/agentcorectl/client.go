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

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentcore/runtime/pkg/a2a"
	a2aclient "github.com/agentcore/runtime/pkg/a2a/client"
	"github.com/agentcore/runtime/pkg/stream"
)

// apiClient talks to one agentcored node: plain JSON for the admin/CRUD
// surface, SSE for /chat, and pkg/a2a/client's JSON-RPC client for the
// task surface. Grounded on the teacher's cmd/hector/commands.go, which
// likewise keeps one small HTTP helper plus the shared *a2a.Client rather
// than duplicating transport code per command.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: httpTimeout}}
}

func (c *apiClient) a2aClient() *a2aclient.Client {
	return a2aclient.New(c.baseURL, c.http, c.token)
}

func (c *apiClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *apiClient) getJSON(path string, out any) error {
	req, err := c.newRequest(cliContext(), http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return httpError(path, resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) directory() (a2a.Directory, error) {
	var dir a2a.Directory
	err := c.getJSON("/agents.json", &dir)
	return dir, err
}

func httpError(path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s: server returned %s: %s", path, resp.Status, strings.TrimSpace(string(raw)))
}

// streamChat opens /chat/{agentID} and returns the decoded stream.Frame
// sequence, blocking until the stream's terminal frame arrives.
func (c *apiClient) streamChat(agentID, message, threadID string) ([]stream.Frame, error) {
	body, err := json.Marshal(map[string]any{"message": message, "threadId": threadID})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(cliContext(), http.MethodPost, "/chat/"+agentID, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat %s: %w", agentID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, httpError("/chat/"+agentID, resp)
	}
	return decodeSSE(resp.Body)
}

// decodeSSE parses the "event: <type>\ndata: <json>\n\n" frames Serve
// writes, skipping keep-alive comment lines.
func decodeSSE(r io.Reader) ([]stream.Frame, error) {
	var frames []stream.Frame
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimPrefix(line, "data: ")
		case line == "" && dataLine != "":
			var f stream.Frame
			if err := json.Unmarshal([]byte(dataLine), &f); err != nil {
				return frames, fmt.Errorf("decode sse frame: %w", err)
			}
			frames = append(frames, f)
			dataLine = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return frames, fmt.Errorf("read sse stream: %w", err)
	}
	return frames, nil
}
