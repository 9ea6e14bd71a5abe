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
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerNilConfigIsNoOp(t *testing.T) {
	m, err := NewManager(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, m.Tracer())
	assert.Nil(t, m.Metrics())
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestNewManagerMetricsOnlyTracingDisabled(t *testing.T) {
	m, err := NewManager(context.Background(), &Config{
		Metrics: MetricsConfig{Enabled: true, Namespace: "test"},
		Tracing: TracingConfig{Enabled: false},
	})
	require.NoError(t, err)
	assert.Nil(t, m.Tracer())
	require.NotNil(t, m.Metrics())
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestNilMetricsReceiverTolerated(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTurn("stop", "anthropic", 1.5)
		m.RecordTokens("anthropic", "claude", 10, 20)
		m.RecordTool("grep", false, 0.1)
		m.RecordProviderCall("anthropic", "ok")
		m.RecordFallback("anthropic", "openai")
		m.RecordCompaction("ok")
	})
	assert.NotNil(t, m.Handler())
}

func TestMetricsHandlerServesPrometheusFormat(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Namespace: "agentcore_test"})
	require.NoError(t, err)
	m.RecordTurn("stop", "anthropic", 0.2)
	m.RecordTool("grep", true, 0.05)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "agentcore_test_loop_turns_total")
	assert.Contains(t, rec.Body.String(), "agentcore_test_tool_errors_total")
}

func TestNewTracerStdoutExporter(t *testing.T) {
	tr, err := NewTracer(context.Background(), &TracingConfig{Enabled: true, Exporter: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.NotNil(t, tr.Tracer("test"))
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestNewTracerRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracer(context.Background(), &TracingConfig{Enabled: true, Exporter: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tracing exporter")
}

func TestNilTracerReceiverTolerated(t *testing.T) {
	var tr *Tracer
	assert.NotNil(t, tr.Tracer("test"))
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestRepeatedNewMetricsDoesNotCollide(t *testing.T) {
	cfg := &MetricsConfig{Namespace: "dup_test"}
	_, err := NewMetrics(cfg)
	require.NoError(t, err)
	// A fresh registry backs each NewMetrics call, so registering twice
	// independently must not collide — only a shared registry would.
	_, err = NewMetrics(cfg)
	require.NoError(t, err)
}
