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

// Package anthropicdriver is an llm.Driver for the Anthropic Messages API,
// consuming its SSE event stream directly (no vendor SDK dependency,
// matching the teacher's hand-rolled approach).
package anthropicdriver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentcore/runtime/pkg/llm"
)

const defaultHost = "https://api.anthropic.com"

// Driver implements llm.Driver against the Anthropic Messages API.
type Driver struct {
	apiKey     string
	host       string
	httpClient *http.Client
}

// New returns a Driver authenticated with apiKey.
func New(apiKey string) *Driver {
	return &Driver{apiKey: apiKey, host: defaultHost, httpClient: &http.Client{Timeout: 0}}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type wireToolResultBlock struct {
	Type      string `json:"type"`
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Stream      bool          `json:"stream"`
}

type sseContentBlock struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sseDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	PartialJSON string `json:"partial_json"`
}

type sseUsage struct {
	OutputTokens int64 `json:"output_tokens"`
	InputTokens  int64 `json:"input_tokens"`
}

type sseEvent struct {
	Type         string           `json:"type"`
	Index        int              `json:"index"`
	ContentBlock *sseContentBlock `json:"content_block,omitempty"`
	Delta        *sseDelta        `json:"delta,omitempty"`
	Usage        *sseUsage        `json:"usage,omitempty"`
}

// Stream implements llm.Driver.
func (d *Driver) Stream(ctx context.Context, p llm.Params) (<-chan llm.Event, error) {
	req, err := d.buildRequest(ctx, p)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic status %d: %s", resp.StatusCode, string(body))
	}

	out := make(chan llm.Event, 64)
	go d.pump(ctx, resp.Body, out)
	return out, nil
}

func (d *Driver) buildRequest(ctx context.Context, p llm.Params) (*http.Request, error) {
	var system string
	messages := make([]wireMessage, 0, len(p.Messages))
	for _, m := range p.Messages {
		if m.Role == llm.RoleSystem {
			system = m.Text
			continue
		}
		// A tool's result goes back as a user turn carrying a tool_result
		// block keyed by the call it answers, per the Messages API; plain
		// text in that slot would leave the tool_use call dangling.
		if m.Role == llm.RoleTool {
			messages = append(messages, wireMessage{
				Role:    "user",
				Content: []wireToolResultBlock{{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Text}},
			})
			continue
		}

		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, wireMessage{Role: role, Content: m.Text})
	}

	tools := make([]wireTool, 0, len(p.Tools))
	for _, t := range p.Tools {
		tools = append(tools, wireTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}

	body, err := json.Marshal(wireRequest{
		Model: p.Model, MaxTokens: p.MaxTokens, Temperature: p.Temperature,
		System: system, Messages: messages, Tools: tools, Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.host+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", d.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	return req, nil
}

// pump reads the SSE body and translates Anthropic's content-block events
// into llm.Event, honoring ctx cancellation within the bounded flush window
// (spec.md §4.3: ≤250ms).
func (d *Driver) pump(ctx context.Context, body io.ReadCloser, out chan<- llm.Event) {
	defer close(out)
	defer body.Close()

	type toolAccum struct {
		callID, name string
		json         strings.Builder
	}
	pending := map[int]*toolAccum{}

	lines := make(chan string, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var totalOut, totalIn int64
	var sawToolRequest bool
	for {
		select {
		case <-ctx.Done():
			select {
			case out <- llm.Event{Type: llm.EventFinish, Finish: llm.FinishError, Err: ctx.Err()}:
			case <-time.After(250 * time.Millisecond):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data: ") {
				continue
			}
			var evt sseEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
				continue
			}

			switch evt.Type {
			case "content_block_start":
				if evt.ContentBlock != nil && evt.ContentBlock.Type == "tool_use" {
					pending[evt.Index] = &toolAccum{callID: evt.ContentBlock.ID, name: evt.ContentBlock.Name}
				}
			case "content_block_delta":
				if evt.Delta == nil {
					continue
				}
				if evt.Delta.Text != "" {
					out <- llm.Event{Type: llm.EventTextDelta, TextDelta: evt.Delta.Text}
				}
				if evt.Delta.Type == "input_json_delta" && evt.Delta.PartialJSON != "" {
					if acc, ok := pending[evt.Index]; ok {
						acc.json.WriteString(evt.Delta.PartialJSON)
					}
				}
			case "content_block_stop":
				if acc, ok := pending[evt.Index]; ok {
					var input map[string]any
					_ = json.Unmarshal([]byte(acc.json.String()), &input)
					out <- llm.Event{Type: llm.EventToolRequest, CallID: acc.callID, ToolName: acc.name, Input: input}
					delete(pending, evt.Index)
					sawToolRequest = true
				}
			case "message_delta":
				if evt.Usage != nil {
					totalOut = evt.Usage.OutputTokens
					if evt.Usage.InputTokens > 0 {
						totalIn = evt.Usage.InputTokens
					}
				}
			case "message_stop":
				out <- llm.Event{Type: llm.EventUsage, TokensIn: totalIn, TokensOut: totalOut}
				reason := llm.FinishStop
				if sawToolRequest {
					reason = llm.FinishTool
				}
				out <- llm.Event{Type: llm.EventFinish, Finish: reason}
				return
			}
		}
	}
}
