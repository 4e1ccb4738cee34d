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

// Package geminidriver is an llm.Driver for the Gemini streamGenerateContent
// API, consumed over its SSE transport the same hand-rolled way as the
// Anthropic driver.
package geminidriver

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

const defaultHost = "https://generativelanguage.googleapis.com"

// Driver implements llm.Driver against the Gemini API.
type Driver struct {
	apiKey     string
	host       string
	httpClient *http.Client
}

// New returns a Driver authenticated with apiKey.
func New(apiKey string) *Driver {
	return &Driver{apiKey: apiKey, host: defaultHost, httpClient: &http.Client{Timeout: 0}}
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     *functionCall   `json:"functionCall,omitempty"`
	FunctionResponse *functionResult `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type functionResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type toolSet struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations,omitempty"`
}

type wireRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	Tools             []toolSet         `json:"tools,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int64 `json:"promptTokenCount"`
	CandidatesTokenCount int64 `json:"candidatesTokenCount"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type wireResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	Error         *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Stream implements llm.Driver.
func (d *Driver) Stream(ctx context.Context, p llm.Params) (<-chan llm.Event, error) {
	req := d.buildRequest(p)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?key=%s&alt=sse", d.host, p.Model, d.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(raw))
	}

	out := make(chan llm.Event, 64)
	go d.pump(ctx, resp.Body, out)
	return out, nil
}

func (d *Driver) buildRequest(p llm.Params) wireRequest {
	var system *content
	contents := make([]content, 0, len(p.Messages))
	for _, m := range p.Messages {
		if m.Role == llm.RoleSystem {
			system = &content{Role: "system", Parts: []part{{Text: m.Text}}}
			continue
		}
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Text}}})
	}

	var tools []toolSet
	if len(p.Tools) > 0 {
		decls := make([]functionDeclaration, 0, len(p.Tools))
		for _, t := range p.Tools {
			decls = append(decls, functionDeclaration{Name: t.Name, Description: t.Description, Parameters: t.InputSchema})
		}
		tools = []toolSet{{FunctionDeclarations: decls}}
	}

	return wireRequest{
		Contents:          contents,
		SystemInstruction: system,
		GenerationConfig:  &generationConfig{Temperature: p.Temperature, MaxOutputTokens: p.MaxTokens},
		Tools:             tools,
	}
}

func (d *Driver) pump(ctx context.Context, body io.ReadCloser, out chan<- llm.Event) {
	defer close(out)
	defer body.Close()

	lines := make(chan string, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var callSeq int
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
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var resp wireResponse
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &resp); err != nil {
				continue
			}
			if resp.Error != nil {
				out <- llm.Event{Type: llm.EventFinish, Finish: llm.FinishError, Err: fmt.Errorf("gemini: %s", resp.Error.Message)}
				return
			}

			reason := llm.FinishStop
			done := false
			for _, c := range resp.Candidates {
				for _, pt := range c.Content.Parts {
					if pt.Text != "" {
						out <- llm.Event{Type: llm.EventTextDelta, TextDelta: pt.Text}
					}
					if pt.FunctionCall != nil {
						callSeq++
						out <- llm.Event{
							Type:     llm.EventToolRequest,
							CallID:   fmt.Sprintf("call_%d", callSeq),
							ToolName: pt.FunctionCall.Name,
							Input:    pt.FunctionCall.Args,
						}
						reason = llm.FinishTool
					}
				}
				if c.FinishReason != "" {
					done = true
					if c.FinishReason == "MAX_TOKENS" {
						reason = llm.FinishLength
					}
				}
			}

			// usageMetadata is cumulative and rides along on every chunk, not
			// just the last one; only a populated FinishReason marks the end
			// of the stream.
			if resp.UsageMetadata != nil {
				out <- llm.Event{
					Type:      llm.EventUsage,
					TokensIn:  resp.UsageMetadata.PromptTokenCount,
					TokensOut: resp.UsageMetadata.CandidatesTokenCount,
				}
			}
			if done {
				out <- llm.Event{Type: llm.EventFinish, Finish: reason}
				return
			}
		}
	}
}
