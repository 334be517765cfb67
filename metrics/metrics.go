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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultDurationBuckets are histogram boundaries for tree walks in seconds.
// Walks are in-memory, so the range starts at 10µs.
var DefaultDurationBuckets = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1}

// Lookup results.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultStale = "stale"
)

// Resolution outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// ErrNotPrometheus is returned by [Recorder.Handler] for non-Prometheus
// providers.
var ErrNotPrometheus = errors.New("metrics: handler is only available with the prometheus provider")

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to flush metrics).
	EventError EventType = iota
	// EventWarning indicates a warning event.
	EventWarning
	// EventInfo indicates an informational event.
	EventInfo
	// EventDebug indicates a debug event.
	EventDebug
)

// Event represents an internal operational event from the metrics package.
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

// Provider represents the available metrics providers.
type Provider string

const (
	// PrometheusProvider exposes metrics through [Recorder.Handler] (default).
	PrometheusProvider Provider = "prometheus"
	// OTLPProvider pushes metrics with the OTLP HTTP exporter.
	OTLPProvider Provider = "otlp"
	// StdoutProvider prints metrics periodically (development/testing).
	StdoutProvider Provider = "stdout"
)

// ParseProvider parses a provider name. An empty name selects
// [PrometheusProvider].
func ParseProvider(name string) (Provider, error) {
	switch Provider(name) {
	case "", PrometheusProvider:
		return PrometheusProvider, nil
	case OTLPProvider, StdoutProvider:
		return Provider(name), nil
	default:
		return "", fmt.Errorf("unsupported metrics provider: %q", name)
	}
}

// Recorder holds the meter provider and instruments. All methods are safe
// for concurrent use.
type Recorder struct {
	meter              metric.Meter
	meterProvider      metric.MeterProvider
	sdkProvider        *sdkmetric.MeterProvider
	prometheusRegistry *promclient.Registry
	prometheusHandler  http.Handler
	eventHandler       EventHandler

	cacheLookups   metric.Int64Counter
	cacheEvictions metric.Int64Counter
	locateDuration metric.Float64Histogram
	resolutions    metric.Int64Counter
	urlsGenerated  metric.Int64Counter

	durationBuckets  []float64
	validationErrors []error
	exportInterval   time.Duration

	serviceName    string
	serviceVersion string
	otlpEndpoint   string

	provider            Provider
	providerSetCount    int
	isShuttingDown      atomic.Bool
	customMeterProvider bool
	registerGlobal      bool
}

// New creates a new [Recorder] with the given options. For a version that
// panics on error, use [MustNew].
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		serviceName:     "invisiblenodes",
		serviceVersion:  "0.0.0",
		provider:        PrometheusProvider,
		exportInterval:  30 * time.Second,
		durationBuckets: DefaultDurationBuckets,
		eventHandler:    func(Event) {},
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := r.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("metrics initialization failed: %v", err))
	}

	return r
}

func (r *Recorder) validate() error {
	errs := r.validationErrors
	if r.providerSetCount > 1 {
		errs = append(errs, errors.New("multiple providers configured; choose exactly one"))
	}
	if r.serviceName == "" {
		errs = append(errs, errors.New("service name cannot be empty"))
	}
	if r.exportInterval <= 0 {
		errs = append(errs, fmt.Errorf("export interval must be positive, got %s", r.exportInterval))
	}

	return errors.Join(errs...)
}

// Handler returns the Prometheus scrape handler.
func (r *Recorder) Handler() (http.Handler, error) {
	if r.prometheusHandler == nil {
		return nil, ErrNotPrometheus
	}

	return r.prometheusHandler, nil
}

// Provider returns the configured provider.
func (r *Recorder) Provider() Provider {
	return r.provider
}

// ServiceName returns the service name reported with every metric.
func (r *Recorder) ServiceName() string {
	return r.serviceName
}

// ForceFlush pushes buffered metrics for push-based providers.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if r.sdkProvider == nil {
		return nil
	}

	return r.sdkProvider.ForceFlush(ctx)
}

// Shutdown flushes and releases the meter provider the recorder created.
// A caller-supplied provider is left running. Shutdown is idempotent.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r == nil || !r.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	if r.sdkProvider == nil {
		return nil
	}
	r.emitDebug("Shutting down meter provider", "provider", r.provider)
	if err := r.sdkProvider.Shutdown(ctx); err != nil {
		r.emitError("Error shutting down meter provider", "error", err)
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}

func (r *Recorder) emitError(msg string, args ...any) {
	r.eventHandler(Event{Type: EventError, Message: msg, Args: args})
}

func (r *Recorder) emitInfo(msg string, args ...any) {
	r.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
}

func (r *Recorder) emitDebug(msg string, args ...any) {
	r.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
}
