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

// Package observability wires OTel tracing and Prometheus metrics behind
// one Manager, the way the teacher's pkg/observability does — generalized
// from per-agent/per-LLM span naming onto this spec's agent-loop/tool/
// provider span taxonomy.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// newServiceNameAttr sets the one resource attribute every tracing
// backend needs to group spans by service, without pulling in the
// generated semconv package for a single constant.
func newServiceNameAttr(name string) attribute.KeyValue {
	return attribute.String("service.name", name)
}

// TracingConfig configures the Tracer. Exporter is "stdout" (for local
// debugging, no collector required) or "otlp" (ships spans to Endpoint
// over gRPC).
type TracingConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
	ServiceName  string
}

// Tracer wraps an sdktrace.TracerProvider so Manager can shut it down
// cleanly and hand out named trace.Tracer instances.
type Tracer struct {
	provider *sdktrace.TracerProvider
}

// NewTracer builds and installs a global TracerProvider per cfg.
func NewTracer(ctx context.Context, cfg *TracingConfig) (*Tracer, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "otlp":
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
	case "stdout", "":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("observability: unknown tracing exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("observability: failed to build %s exporter: %w", cfg.Exporter, err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "agentcore"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		// service.name is the one attribute every backend needs to group
		// spans by; avoiding semconv's generated constant keeps this
		// package's otel surface to exactly the packages go.mod lists.
		newServiceNameAttr(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("observability: failed to build resource: %w", err)
	}

	sampling := cfg.SamplingRate
	if sampling <= 0 {
		sampling = 1.0
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampling)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Tracer{provider: tp}, nil
}

// Tracer returns a named trace.Tracer from the installed provider.
func (t *Tracer) Tracer(name string) trace.Tracer {
	if t == nil || t.provider == nil {
		return otel.Tracer(name)
	}
	return t.provider.Tracer(name)
}

// Shutdown flushes and closes the exporter.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
