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
	"fmt"
	"log/slog"
)

// Config is the combined tracing+metrics config Manager builds from.
type Config struct {
	Metrics MetricsConfig
	Tracing TracingConfig
}

// Manager owns the lifecycle of tracing and metrics, mirroring the
// teacher's own observability.Manager: construct once at session start,
// Shutdown once at process exit.
type Manager struct {
	tracer  *Tracer
	metrics *Metrics
}

// NewManager builds a Manager from cfg. A nil cfg (or both sub-configs
// disabled) returns a usable no-op Manager — every accessor tolerates a
// nil receiver, so callers never need a separate "is observability on"
// branch.
func NewManager(ctx context.Context, cfg *Config) (*Manager, error) {
	if cfg == nil {
		return &Manager{}, nil
	}
	m := &Manager{}

	if cfg.Tracing.Enabled {
		t, err := NewTracer(ctx, &cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("observability: failed to initialize tracing: %w", err)
		}
		m.tracer = t
		slog.Info("observability: tracing initialized", "exporter", cfg.Tracing.Exporter, "endpoint", cfg.Tracing.Endpoint)
	}

	if cfg.Metrics.Enabled {
		mt, err := NewMetrics(&cfg.Metrics)
		if err != nil {
			if m.tracer != nil {
				_ = m.tracer.Shutdown(ctx)
			}
			return nil, fmt.Errorf("observability: failed to initialize metrics: %w", err)
		}
		m.metrics = mt
		slog.Info("observability: metrics initialized", "namespace", cfg.Metrics.Namespace)
	}

	return m, nil
}

// Tracer returns the tracer, or nil if tracing is disabled.
func (m *Manager) Tracer() *Tracer {
	if m == nil {
		return nil
	}
	return m.tracer
}

// Metrics returns the metrics recorder, or nil if metrics are disabled.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// Shutdown tears down every initialized component.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil || m.tracer == nil {
		return nil
	}
	return m.tracer.Shutdown(ctx)
}
