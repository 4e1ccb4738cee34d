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

// Package admission is the Admission Layer (spec.md §4.8): token/role
// resolution, message-size limits, per-user daily token budget
// soft/hard checks, CORS, and per-user rate limiting — every caller-facing
// request passes through here before reaching the Streaming Facade.
//
// Grounded on the teacher's pkg/auth (JWT validation via
// github.com/lestrrat-go/jwx/v2, claims-in-context idiom), trimmed to the
// two roles spec.md's Non-goals allow ("admin", "user" — no fine-grained
// RBAC).
package admission

// Role is one of the two roles spec.md's Non-goals scope this layer to.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Claims is what a validated bearer token resolves to.
type Claims struct {
	Subject string // user ID, used as the token-budget/rate-limit identifier
	Role    Role
}

// HasRole reports whether c's role is one of allowed.
func (c *Claims) HasRole(allowed ...Role) bool {
	for _, r := range allowed {
		if c.Role == r {
			return true
		}
	}
	return false
}
