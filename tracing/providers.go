// Copyright 2025 The Rivaas Authors
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

package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// initializeProvider initializes providers that need no network.
func (t *Tracer) initializeProvider() error {
	if t.customTracerProvider {
		t.emitDebug("Using custom user-provided tracer provider")
		t.install(nil)
		return nil
	}

	switch t.provider {
	case NoopProvider:
		t.install(sdktrace.NewTracerProvider(
			sdktrace.WithResource(createResource(t.serviceName, t.serviceVersion)),
			sdktrace.WithSampler(sdktrace.NeverSample()),
		))
	case StdoutProvider:
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		t.install(t.newSDKProvider(exporter))
	default:
		return fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}
	t.emitInfo("Tracing initialized", "provider", t.provider, "service", t.serviceName)

	return nil
}

// initializeProviderWithContext initializes OTLP providers. The context is
// used for connection establishment.
func (t *Tracer) initializeProviderWithContext(ctx context.Context) error {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch t.provider {
	case OTLPProvider:
		var opts []otlptracegrpc.Option
		if t.otlpEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(t.otlpEndpoint))
		}
		if t.otlpInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case OTLPHTTPProvider:
		var opts []otlptracehttp.Option
		if t.otlpEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(t.otlpEndpoint))
		}
		if t.otlpInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return fmt.Errorf("provider %s does not require context initialization", t.provider)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s exporter: %w", t.provider, err)
	}

	t.install(t.newSDKProvider(exporter))
	t.emitInfo("Tracing initialized", "provider", t.provider, "endpoint", t.otlpEndpoint, "service", t.serviceName)

	return nil
}

func (t *Tracer) newSDKProvider(exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(createResource(t.serviceName, t.serviceVersion)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.sampleRate))),
	)
}

// install makes tp the active provider. A nil tp keeps the custom one.
func (t *Tracer) install(tp *sdktrace.TracerProvider) {
	if tp != nil {
		t.sdkProvider = tp
		t.tracerProvider = tp
	}
	t.tracer = t.tracerProvider.Tracer(tracerName)

	if t.registerGlobal {
		t.emitDebug("Setting global OpenTelemetry tracer provider", "provider", t.provider)
		otel.SetTracerProvider(t.tracerProvider)
		otel.SetTextMapPropagator(t.propagator)
	}
}

func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}
