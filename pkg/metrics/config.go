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

// Package metrics provides the ambient observability stack: Prometheus
// counters/histograms for run, tool, and token activity, and an
// OpenTelemetry TracerProvider with Run and ToolCall span helpers.
package metrics

// Config configures the metrics and tracing stack.
type Config struct {
	// MetricsEnabled turns on Prometheus metrics collection.
	MetricsEnabled bool `yaml:"metrics_enabled,omitempty" mapstructure:"metrics_enabled"`

	// Namespace prefixes every metric name (e.g. "agentcore").
	Namespace string `yaml:"namespace,omitempty" mapstructure:"namespace"`

	// TracingEnabled turns on OpenTelemetry span recording.
	TracingEnabled bool `yaml:"tracing_enabled,omitempty" mapstructure:"tracing_enabled"`

	// SamplingRate is the fraction of traces sampled, 0.0-1.0.
	SamplingRate float64 `yaml:"sampling_rate,omitempty" mapstructure:"sampling_rate"`

	// ServiceName identifies this process in emitted spans.
	ServiceName string `yaml:"service_name,omitempty" mapstructure:"service_name"`
}

// SetDefaults fills in the same defaults the teacher's observability
// config applies.
func (c *Config) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "agentcore"
	}
	if c.ServiceName == "" {
		c.ServiceName = "agentcore"
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
}
