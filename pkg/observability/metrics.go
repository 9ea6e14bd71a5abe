// Copyright 2025 The agentcore Authors
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

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// Metrics is the set of counters/histograms the agent loop, tool engine,
// and provider adapters report into — a trimmed version of the teacher's
// much larger pkg/observability/metrics.go (no session/HTTP-transport
// metrics: those belong to components this spec marks as non-goals).
type Metrics struct {
	registry *prometheus.Registry

	turns         *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	tokensInput   *prometheus.CounterVec
	tokensOutput  *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	toolErrors    *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	providerCalls *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	compactions   *prometheus.CounterVec
}

// NewMetrics registers every metric against a fresh registry.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	ns := cfg.Namespace
	if ns == "" {
		ns = "agentcore"
	}
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "loop_turns_total", Help: "Agent loop turns completed.",
		}, []string{"finish_reason"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "loop_turn_duration_seconds", Help: "Wall-clock time per turn.",
		}, []string{"provider"}),
		tokensInput: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "tokens_input_total", Help: "Input tokens consumed.",
		}, []string{"provider", "model"}),
		tokensOutput: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "tokens_output_total", Help: "Output tokens produced.",
		}, []string{"provider", "model"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "tool_calls_total", Help: "Tool calls dispatched.",
		}, []string{"tool"}),
		toolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "tool_errors_total", Help: "Tool calls that returned is_error=true.",
		}, []string{"tool"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "tool_call_duration_seconds", Help: "Wall-clock time per tool call.",
		}, []string{"tool"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "provider_calls_total", Help: "Provider requests, by outcome.",
		}, []string{"provider", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "fallbacks_total", Help: "Provider fallback switches.",
		}, []string{"from_provider", "to_provider"}),
		compactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "compactions_total", Help: "History compaction passes, by outcome.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{
		m.turns, m.turnDuration, m.tokensInput, m.tokensOutput,
		m.toolCalls, m.toolErrors, m.toolDuration,
		m.providerCalls, m.fallbacks, m.compactions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordTurn(finishReason string, provider string, seconds float64) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(finishReason).Inc()
	m.turnDuration.WithLabelValues(provider).Observe(seconds)
}

func (m *Metrics) RecordTokens(provider, model string, input, output int64) {
	if m == nil {
		return
	}
	m.tokensInput.WithLabelValues(provider, model).Add(float64(input))
	m.tokensOutput.WithLabelValues(provider, model).Add(float64(output))
}

func (m *Metrics) RecordTool(name string, isError bool, seconds float64) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(name).Inc()
	if isError {
		m.toolErrors.WithLabelValues(name).Inc()
	}
	m.toolDuration.WithLabelValues(name).Observe(seconds)
}

func (m *Metrics) RecordProviderCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordFallback(from, to string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(from, to).Inc()
}

func (m *Metrics) RecordCompaction(outcome string) {
	if m == nil {
		return
	}
	m.compactions.WithLabelValues(outcome).Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
