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

package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// JWKSRefreshInterval bounds how often the validator re-fetches the
// provider's signing keys (teacher: 15 minutes, same rotation tolerance).
const JWKSRefreshInterval = 15 * time.Minute

var _ Validator = (*TokenValidator)(nil)

// TokenValidator validates bearer tokens against a provider's JWKS
// endpoint and extracts Claims.
type TokenValidator struct {
	jwksURL  string
	issuer   string
	audience string
	cache    *jwk.Cache
}

// NewTokenValidator fetches jwksURL once to fail fast on misconfiguration,
// then keeps it refreshed in the background.
func NewTokenValidator(ctx context.Context, jwksURL, issuer, audience string) (*TokenValidator, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(JWKSRefreshInterval)); err != nil {
		return nil, fmt.Errorf("register jwks url: %w", err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("fetch jwks from %s: %w", jwksURL, err)
	}
	return &TokenValidator{jwksURL: jwksURL, issuer: issuer, audience: audience, cache: cache}, nil
}

// Validate verifies tokenString's signature, issuer, audience, and
// expiry, and extracts Claims. A missing or unrecognized "role" claim
// resolves to RoleUser, the least-privileged default.
func (v *TokenValidator) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	keyset, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(keyset),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims := &Claims{Subject: token.Subject(), Role: RoleUser}
	if raw, ok := token.Get("role"); ok {
		if s, ok := raw.(string); ok && s == string(RoleAdmin) {
			claims.Role = RoleAdmin
		}
	}
	return claims, nil
}
