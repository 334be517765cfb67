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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to export spans).
	EventError EventType = iota
	// EventWarning indicates a warning event.
	EventWarning
	// EventInfo indicates an informational event (e.g., tracing initialized).
	EventInfo
	// EventDebug indicates a debug event.
	EventDebug
)

// Event represents an internal operational event from the tracing package.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events.
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to logger.
// A nil logger discards all events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}

	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

const (
	// DefaultServiceName is used when none is configured.
	DefaultServiceName = "invisiblenodes"
	// DefaultServiceVersion is used when none is configured.
	DefaultServiceVersion = "0.0.0"
	// DefaultSampleRate samples every trace.
	DefaultSampleRate = 1.0

	tracerName = "rivaas.dev/invisiblenodes"
)

// Provider represents the available tracing providers.
type Provider string

const (
	// NoopProvider records nothing (default).
	NoopProvider Provider = "noop"
	// StdoutProvider prints spans (development/testing).
	StdoutProvider Provider = "stdout"
	// OTLPProvider exports spans with OTLP over gRPC.
	OTLPProvider Provider = "otlp"
	// OTLPHTTPProvider exports spans with OTLP over HTTP.
	OTLPHTTPProvider Provider = "otlp-http"
)

// ParseProvider parses a provider name. An empty name selects
// [NoopProvider].
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(name); p {
	case "", NoopProvider:
		return NoopProvider, nil
	case StdoutProvider, OTLPProvider, OTLPHTTPProvider:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported tracing provider: %q", name)
	}
}

// ErrNotStarted is returned when an OTLP tracer is used before Start.
var ErrNotStarted = errors.New("tracing: OTLP provider not started; call Start(ctx)")

// Tracer owns a tracer provider. All methods are safe for concurrent use.
type Tracer struct {
	tracer         trace.Tracer
	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	propagator     propagation.TextMapPropagator
	eventHandler   EventHandler

	serviceName    string
	serviceVersion string
	otlpEndpoint   string
	sampleRate     float64

	provider             Provider
	providerSetCount     int
	validationErrors     []error
	started              atomic.Bool
	isShuttingDown       atomic.Bool
	otlpInsecure         bool
	customTracerProvider bool
	registerGlobal       bool
}

// New creates a [Tracer]. Noop and stdout providers are ready to use; OTLP
// providers need [Tracer.Start].
func New(opts ...Option) (*Tracer, error) {
	t := &Tracer{
		serviceName:    DefaultServiceName,
		serviceVersion: DefaultServiceVersion,
		sampleRate:     DefaultSampleRate,
		provider:       NoopProvider,
		propagator:     propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
		eventHandler:   func(Event) {},
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("invalid tracing configuration: %w", err)
	}
	if t.customTracerProvider || (t.provider != OTLPProvider && t.provider != OTLPHTTPProvider) {
		if err := t.initializeProvider(); err != nil {
			return nil, err
		}
		t.started.Store(true)
	}

	return t, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Tracer {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("tracing initialization failed: %v", err))
	}

	return t
}

func (t *Tracer) validate() error {
	errs := t.validationErrors
	if t.providerSetCount > 1 {
		errs = append(errs, errors.New("multiple providers configured; choose exactly one"))
	}
	if t.serviceName == "" {
		errs = append(errs, errors.New("service name cannot be empty"))
	}

	return errors.Join(errs...)
}

// Start initializes OTLP providers. It is a no-op for the others and when
// already started.
func (t *Tracer) Start(ctx context.Context) error {
	if t.started.Load() {
		return nil
	}
	if err := t.initializeProviderWithContext(ctx); err != nil {
		return err
	}
	t.started.Store(true)

	return nil
}

// Tracer returns the OpenTelemetry tracer. Before an OTLP provider is
// started it returns a noop tracer.
func (t *Tracer) Tracer() trace.Tracer {
	if t == nil || !t.started.Load() {
		return noop.NewTracerProvider().Tracer(tracerName)
	}

	return t.tracer
}

// Provider returns the configured provider.
func (t *Tracer) Provider() Provider {
	return t.provider
}

// Propagator returns the propagator used by [Tracer.Middleware].
func (t *Tracer) Propagator() propagation.TextMapPropagator {
	return t.propagator
}

// Shutdown flushes and stops the tracer provider the Tracer created. It is
// idempotent and leaves caller-supplied providers running.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || !t.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	if t.sdkProvider == nil || t.customTracerProvider {
		return nil
	}
	t.emitDebug("Shutting down tracer provider", "provider", t.provider)
	if err := t.sdkProvider.Shutdown(ctx); err != nil {
		t.emitError("Error shutting down tracer provider", "error", err)
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}

// Middleware extracts the incoming trace context and wraps each request
// in a server span named after the method.
func (t *Tracer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := t.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := t.Tracer().Start(ctx, r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.host", r.Host),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", sw.status))
		if sw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.status))
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// TraceID returns the trace id of the active span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}

	return sc.TraceID().String()
}

func (t *Tracer) emitError(msg string, args ...any) {
	t.eventHandler(Event{Type: EventError, Message: msg, Args: args})
}

func (t *Tracer) emitInfo(msg string, args ...any) {
	t.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
}

func (t *Tracer) emitDebug(msg string, args ...any) {
	t.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
}
