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
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentcore/runtime/pkg/ratelimit"
	"github.com/agentcore/runtime/pkg/store"
)

type contextKey string

const claimsKey contextKey = "admission.claims"

// ClaimsFromContext returns the Claims attached by Middleware, or nil for
// an unauthenticated request (only reachable for routes not wrapped by
// RequireRole).
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// Validator verifies a bearer token string and extracts Claims.
// *TokenValidator is the production implementation; tests supply a fake.
type Validator interface {
	Validate(ctx context.Context, tokenString string) (*Claims, error)
}

// Config wires Middleware's dependencies.
type Config struct {
	Validator    Validator
	Limiter      *ratelimit.Limiter
	Store        store.Gateway
	Logger       *slog.Logger
	MaxBodyBytes int64 // 0 or less selects the 256 KiB default
	// DailySoftLimit, at or above which a request is allowed but flagged
	// with X-Budget-Warning; DailyHardLimit returns 429. 0 disables either.
	DailySoftLimit int64
	DailyHardLimit int64
	AllowedOrigins []string
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 256 * 1024
	}
}

// Middleware authenticates the bearer token, checks the per-user rate
// limit, enforces the message-size cap, and attaches Claims to the
// request context. CORS is a separate, earlier middleware (CORS below)
// since preflight OPTIONS requests carry no Authorization header.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	cfg.applyDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "missing or malformed Authorization header")
				return
			}

			claims, err := cfg.Validator.Validate(r.Context(), tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized: "+err.Error())
				return
			}

			if cfg.MaxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
			}

			if cfg.Limiter != nil {
				result := cfg.Limiter.CheckAndRecord(r.Context(), claims.Subject)
				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
				if !result.Allowed {
					w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
			}

			if cfg.Store != nil && (cfg.DailySoftLimit > 0 || cfg.DailyHardLimit > 0) {
				date := time.Now().UTC().Format("2006-01-02")
				usage, err := cfg.Store.SumTokens(r.Context(), claims.Subject, date)
				if err != nil {
					cfg.Logger.Warn("daily budget lookup failed, allowing request", "err", err)
				} else {
					total := usage.Total()
					if cfg.DailyHardLimit > 0 && total >= cfg.DailyHardLimit {
						writeError(w, http.StatusTooManyRequests, "daily token budget exceeded")
						return
					}
					if cfg.DailySoftLimit > 0 && total >= cfg.DailySoftLimit {
						w.Header().Set("X-Budget-Warning", "approaching daily token budget")
					}
				}
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole wraps Middleware's output, rejecting any Claims not in
// allowed. Call after Middleware in the chain.
func RequireRole(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil || !claims.HasRole(allowed...) {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS applies a permissive-by-allowlist CORS policy. Preflight OPTIONS
// requests are answered directly without reaching the rest of the chain.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed["*"] || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
