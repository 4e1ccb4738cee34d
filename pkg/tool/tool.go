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

// Package tool defines the Tool contract shared by the adapters (function,
// http, mcp, a2a, and agent-as-tool) and the per-turn Predicate filter.
// The Tool Registry that builds concrete tool lists for an AgentSpec lives
// in pkg/registry.
package tool

import (
	"context"

	"github.com/agentcore/runtime/pkg/model"
)

// Result is what Invoke returns on success: structured output plus a
// Truncated flag. An adapter sets Truncated when the raw payload exceeded
// the 5KB cap (spec.md §4.4); Output itself is handed back whole, and the
// Runner also sets the flag on the ToolCall when its preview exceeds the cap.
type Result struct {
	Output    map[string]any
	Truncated bool
	// ChildRunID is set only by the A2A adapter when the call opened a
	// linked child Run on the peer.
	ChildRunID string
}

// Descriptor is a tool's schema in the form the LLM Driver expects for
// function-calling.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Tool is the common contract every adapter satisfies. Invoke returns an
// *Err carrying a model.ErrorKind rather than a bare error so
// the Runner can classify failures without string matching.
type Tool interface {
	Describe() Descriptor
	Invoke(ctx context.Context, input map[string]any) (Result, error)
}

// Err wraps an adapter failure with the ErrorKind the Runner should record
// on the ToolCall/Step.
type Err struct {
	Kind    model.ErrorKind
	Message string
	Cause   error
}

func (e *Err) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Err) Unwrap() error { return e.Cause }

// KindOf extracts the ErrorKind from err if it (or something it wraps) is
// an *Err, otherwise reports ToolInvocationError as the default.
func KindOf(err error) model.ErrorKind {
	var te *Err
	if asErr(err, &te) {
		return te.Kind
	}
	return model.ErrToolInvocation
}

func asErr(err error, target **Err) bool {
	for err != nil {
		if e, ok := err.(*Err); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
