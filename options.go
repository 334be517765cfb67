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

package invisiblenodes

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/invisiblenodes/config"
	"rivaas.dev/invisiblenodes/metrics"
	"rivaas.dev/invisiblenodes/notify"
	"rivaas.dev/invisiblenodes/sitehttp"
	"rivaas.dev/invisiblenodes/urlprovider"
)

// Option configures an [Engine].
type Option func(*engineConfig)

type engineConfig struct {
	settings    *config.Settings
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *metrics.Recorder
	bus         *notify.Bus
	mapper      urlprovider.DomainMapper
	siteOptions []sitehttp.Option
}

func defaultConfig() *engineConfig {
	return &engineConfig{
		settings: config.DefaultSettings(),
		logger:   slog.New(slog.DiscardHandler),
	}
}

// WithSettings sets the initial settings. They are validated by [New].
// The default is [config.DefaultSettings].
//
// Example:
//
//	s, _ := config.LoadSettings(ctx, config.WithFile("invisiblenodes.yaml"))
//	invisiblenodes.New(store, store, invisiblenodes.WithSettings(s))
func WithSettings(s *config.Settings) Option {
	return func(c *engineConfig) {
		if s != nil {
			c.settings = s
		}
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer of the finder and URL provider spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *engineConfig) {
		c.tracer = tracer
	}
}

// WithMetrics sets the metrics recorder. A nil recorder records nothing.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *engineConfig) {
		c.metrics = r
	}
}

// WithBus sets the bus lifecycle events are received from. Without it the
// engine creates its own, available from [Engine.Bus].
func WithBus(bus *notify.Bus) Option {
	return func(c *engineConfig) {
		c.bus = bus
	}
}

// WithMapper replaces the domain mapper of the URL provider.
func WithMapper(m urlprovider.DomainMapper) Option {
	return func(c *engineConfig) {
		c.mapper = m
	}
}

// WithSiteOptions passes options to the [sitehttp.Site].
//
// Example:
//
//	invisiblenodes.New(store, store,
//	    invisiblenodes.WithSiteOptions(sitehttp.WithForwardedHeaders()),
//	)
func WithSiteOptions(opts ...sitehttp.Option) Option {
	return func(c *engineConfig) {
		c.siteOptions = append(c.siteOptions, opts...)
	}
}
