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

// Package functiontool is the in-process Function adapter (spec.md §4.2):
// direct invocation of a Go function registered by key, with cooperative
// cancellation via ctx.
package functiontool

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"

	"github.com/agentcore/runtime/pkg/model"
	"github.com/agentcore/runtime/pkg/tool"
)

// Func is the signature every registered function must satisfy: it takes
// the LLM's input map as-is and returns an output map or an error. When
// Def.Request is set, Invoke first checks that the map decodes into
// Request's type via mapstructure, but the decoded value is not passed on.
type Func func(ctx context.Context, input map[string]any) (map[string]any, error)

// Def describes one in-process function available to the Function adapter.
type Def struct {
	Name        string
	Description string
	// Request is a zero value of the struct type jsonschema derives the
	// Descriptor's InputSchema from and that Invoke test-decodes the LLM's
	// input into; pass nil to skip both.
	Request any
	Fn      Func
}

type functionTool struct {
	def Def
}

// New wraps a Def as a tool.Tool. Registered once per function at startup;
// the factory form (registry.Factory) ignores cfg.Static since function tools
// take their parameters from Request, not from agent configuration.
func New(def Def) tool.Tool {
	return &functionTool{def: def}
}

func (f *functionTool) Describe() tool.Descriptor {
	d := tool.Descriptor{Name: f.def.Name, Description: f.def.Description}
	if f.def.Request != nil {
		reflector := &jsonschema.Reflector{ExpandedStruct: true}
		schema := reflector.Reflect(f.def.Request)
		raw, err := schema.MarshalJSON()
		if err == nil {
			var asMap map[string]any
			if json.Unmarshal(raw, &asMap) == nil {
				d.InputSchema = asMap
			}
		}
	}
	return d
}

func (f *functionTool) Invoke(ctx context.Context, input map[string]any) (tool.Result, error) {
	select {
	case <-ctx.Done():
		return tool.Result{}, &tool.Err{Kind: model.ErrCancelled, Message: "function call cancelled", Cause: ctx.Err()}
	default:
	}

	if f.def.Request != nil {
		typed := reflect.New(reflect.TypeOf(f.def.Request)).Interface()
		if err := mapstructure.Decode(input, typed); err != nil {
			return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "decode input", Cause: err}
		}
	}

	out, err := f.def.Fn(ctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return tool.Result{}, &tool.Err{Kind: model.ErrCancelled, Message: "function call cancelled", Cause: ctx.Err()}
		}
		return tool.Result{}, &tool.Err{Kind: model.ErrToolInvocation, Message: "function returned error", Cause: err}
	}
	return tool.Result{Output: out}, nil
}
