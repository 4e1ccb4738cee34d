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

// Package httptool is the HTTP/OpenAPI adapter (spec.md §4.2): one
// operation of a pre-parsed OpenAPI document, invoked with exponential
// backoff on idempotent methods hitting 5xx or connect errors.
package httptool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/agentcore/runtime/pkg/idhash"
	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

const (
	baseDelay  = 250 * time.Millisecond
	maxDelay   = 5 * time.Second
	maxRetries = 3
)

// Operation describes one OpenAPI operation resolved at factory time: the
// method/path to call and the input schema to validate against.
type Operation struct {
	Name        string
	Description string
	Method      string
	URL         string
	InputSchema map[string]any
}

type httpTool struct {
	op     Operation
	client *http.Client
}

// New builds an HTTP adapter tool bound to one OpenAPI operation. op.URL is
// requested as given; the registry factory in cmd/agentcored sets it to the
// ToolConfig's Target.
func New(op Operation, client *http.Client) tool.Tool {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpTool{op: op, client: client}
}

func (h *httpTool) Describe() tool.Descriptor {
	return tool.Descriptor{Name: h.op.Name, Description: h.op.Description, InputSchema: h.op.InputSchema}
}

func isIdempotent(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func (h *httpTool) Invoke(ctx context.Context, input map[string]any) (tool.Result, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "marshal input", Cause: err}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return tool.Result{}, &tool.Err{Kind: model.ErrTimeout, Message: "deadline exceeded before retry", Cause: ctx.Err()}
			}
		}

		req, err := http.NewRequestWithContext(ctx, h.op.Method, h.op.URL, bytes.NewReader(body))
		if err != nil {
			return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "build request", Cause: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return tool.Result{}, &tool.Err{Kind: model.ErrTimeout, Message: "connect/deadline error", Cause: err}
			}
			if isIdempotent(h.op.Method) && attempt < maxRetries {
				continue
			}
			return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "request failed", Cause: err}
		}

		result, retry, rErr := h.handleResponse(resp)
		if retry && isIdempotent(h.op.Method) && attempt < maxRetries {
			lastErr = rErr
			continue
		}
		return result, rErr
	}
	return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "retries exhausted", Cause: lastErr}
}

func (h *httpTool) handleResponse(resp *http.Response) (tool.Result, bool, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return tool.Result{}, false, &tool.Err{Kind: model.ErrToolInvocation, Message: "read response", Cause: err}
	}

	if resp.StatusCode >= 500 {
		return tool.Result{}, true, &tool.Err{Kind: model.ErrToolInvocation, Message: fmt.Sprintf("upstream %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return tool.Result{}, false, &tool.Err{Kind: model.ErrToolInvocation, Message: fmt.Sprintf("upstream %d: %s", resp.StatusCode, idhash.RedactString(string(raw)))}
	}

	var out map[string]any
	truncated := false
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			out = map[string]any{"raw": string(raw)}
		}
	}
	if len(raw) > 5*1024 {
		truncated = true
	}
	return tool.Result{Output: out, Truncated: truncated}, false, nil
}

// backoffDelay is exponential with base 250ms, factor 2, ±20% jitter,
// capped at maxDelay (spec.md §4.2).
func backoffDelay(attempt int) time.Duration {
	raw := float64(baseDelay) * math.Pow(2, float64(attempt-1))
	jitter := raw * (0.8 + 0.4*rand.Float64())
	d := time.Duration(jitter)
	if d > maxDelay {
		d = maxDelay
	}
	return d
}
