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

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InitTracer returns a TracerProvider sampling at cfg.SamplingRate when
// tracing is enabled, or a no-op provider otherwise. It does not wire an
// exporter: callers that need spans shipped off-process register one on
// the returned *sdktrace.TracerProvider via RegisterSpanProcessor before
// traffic starts.
func InitTracer(cfg Config) trace.TracerProvider {
	if !cfg.TracingEnabled {
		return noop.NewTracerProvider()
	}
	cfg.SetDefaults()
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
	)
}

// StartRunSpan opens a span around one Run, named for the boundary it
// covers (spec.md §4.5/§4.7: Run/Step/ToolCall are the trace boundaries).
func StartRunSpan(ctx context.Context, tp trace.TracerProvider, runID, agentID string) (context.Context, trace.Span) {
	return tp.Tracer("agentcore/runner").Start(ctx, "run",
		trace.WithAttributes(attribute.String("run_id", runID), attribute.String("agent_id", agentID)))
}

// StartToolSpan opens a span around one ToolCall.
func StartToolSpan(ctx context.Context, tp trace.TracerProvider, toolName, callID string) (context.Context, trace.Span) {
	return tp.Tracer("agentcore/runner").Start(ctx, "tool_call",
		trace.WithAttributes(attribute.String("tool_name", toolName), attribute.String("call_id", callID)))
}
