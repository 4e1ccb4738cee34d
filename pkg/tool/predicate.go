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

package tool

// Predicate reports whether t should be offered to the LLM Driver this
// turn. The Tool Registry's Build output is the base set; a Predicate
// narrows it per-turn without rebuilding the set (spec.md §4.1/§4.7: the
// Workflow Orchestrator's "next tool must be Y" handoff constraint is one
// such Predicate, re-applied before every turn rather than baked into the
// agent's static tool list).
type Predicate func(t Tool) bool

// Allow returns a Predicate admitting only the named tools.
func Allow(names ...string) Predicate {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(t Tool) bool { return set[t.Describe().Name] }
}

// Deny returns a Predicate admitting every tool except the named ones.
func Deny(names ...string) Predicate {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(t Tool) bool { return !set[t.Describe().Name] }
}

// Filter applies p to tools, preserving order. A nil p is the identity.
func Filter(tools []Tool, p Predicate) []Tool {
	if p == nil {
		return tools
	}
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if p(t) {
			out = append(out, t)
		}
	}
	return out
}
