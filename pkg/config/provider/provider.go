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

// Package provider abstracts the config source Loader reads from: a
// local file or a remote key-value store, each able to signal changes
// for the dynamic reload path (SPEC_FULL.md §4.1 additions).
package provider

import "context"

// Type identifies the config source, carried for logging only.
type Type string

const (
	TypeFile   Type = "file"
	TypeConsul Type = "consul"
)

// Provider abstracts a config source. Implementations must be safe for
// concurrent use; Watch may be called at most once per Provider.
type Provider interface {
	Type() Type

	// Load reads raw config bytes from the source.
	Load(ctx context.Context) ([]byte, error)

	// Watch returns a channel that receives a value whenever the
	// source changes. A nil channel with a nil error means watching
	// isn't supported by this provider instance.
	Watch(ctx context.Context) (<-chan struct{}, error)

	Close() error
}
