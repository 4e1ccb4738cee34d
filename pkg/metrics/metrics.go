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
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector Agentcore records against:
// run counts/latencies, tool-call counts/latencies, and token/cost
// totals (spec.md §2 items 6/4/10).
type Metrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	activeRuns   *prometheus.GaugeVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	tokensTotal  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New builds a Metrics instance registered under cfg.Namespace. Returns
// nil if metrics are disabled, so callers can pass a nil *Metrics
// through the rest of the stack and every Record* call below becomes a
// no-op on a nil receiver.
func New(cfg Config) *Metrics {
	if !cfg.MetricsEnabled {
		return nil
	}
	cfg.SetDefaults()

	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "run", Name: "total",
			Help: "Total number of Runs by agent and terminal status.",
		}, []string{"agent_id", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: "run", Name: "duration_seconds",
			Help: "Run wall-clock duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"agent_id"}),
		activeRuns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: "run", Name: "active",
			Help: "Number of Runs currently in the running state.",
		}, []string{"agent_id"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "tool", Name: "calls_total",
			Help: "Total number of tool invocations by tool name and outcome.",
		}, []string{"tool_name", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: "tool", Name: "call_duration_seconds",
			Help: "Tool invocation duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}, []string{"tool_name"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "tokens", Name: "total",
			Help: "Total prompt/completion tokens consumed by agent.",
		}, []string{"agent_id", "kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: "http", Name: "requests_total",
			Help: "Total HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(
		m.runsTotal, m.runDuration, m.activeRuns,
		m.toolCalls, m.toolDuration, m.tokensTotal,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler exposes the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RunStarted(agentID string) {
	if m == nil {
		return
	}
	m.activeRuns.WithLabelValues(agentID).Inc()
}

func (m *Metrics) RunEnded(agentID, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.activeRuns.WithLabelValues(agentID).Dec()
	m.runsTotal.WithLabelValues(agentID, status).Inc()
	m.runDuration.WithLabelValues(agentID).Observe(d.Seconds())
}

func (m *Metrics) ToolCalled(toolName, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName, status).Inc()
	m.toolDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

func (m *Metrics) TokensUsed(agentID string, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.tokensTotal.WithLabelValues(agentID, "prompt").Add(float64(promptTokens))
	m.tokensTotal.WithLabelValues(agentID, "completion").Add(float64(completionTokens))
}

func (m *Metrics) HTTPRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, http.StatusText(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
