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

// Package finder resolves request URLs to content nodes through the route
// cache and the node locator.
package finder

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/locator"
	"rivaas.dev/invisiblenodes/metrics"
	"rivaas.dev/invisiblenodes/routecache"
	"rivaas.dev/invisiblenodes/telemetry/semconv"
)

// Request is one content lookup. Domain and Culture are what the host
// resolved for the request URL; Content is set by a successful lookup.
type Request struct {
	URL     *url.URL
	Domain  *content.Domain
	Culture string
	Content *content.Node
}

// Option configures a [ContentFinder].
type Option func(*ContentFinder)

// WithLogger sets the logger for resolution records. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(f *ContentFinder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTracer starts an invisiblenodes.find span per lookup on tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(f *ContentFinder) {
		if tracer != nil {
			f.tracer = tracer
		}
	}
}

// WithMetrics records cache lookups and resolutions on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(f *ContentFinder) {
		f.metrics = r
	}
}

// ContentFinder finds content whose URL skips invisible ancestors.
type ContentFinder struct {
	tree    content.Tree
	cache   routecache.Cache
	locator locator.NodeLocator
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Recorder
}

// New creates a ContentFinder. A nil cache disables caching.
func New(tree content.Tree, cache routecache.Cache, loc locator.NodeLocator, opts ...Option) *ContentFinder {
	if cache == nil {
		cache = routecache.NoOp{}
	}
	f := &ContentFinder{
		tree:    tree,
		cache:   cache,
		locator: loc,
		logger:  slog.New(slog.DiscardHandler),
		tracer:  noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// TryFindContent resolves req.URL and stores the node in req.Content.
// Cached routes whose node is gone are evicted and resolved again.
func (f *ContentFinder) TryFindContent(ctx context.Context, req *Request) bool {
	if req == nil || req.URL == nil {
		return false
	}
	host, path := req.URL.Host, req.URL.Path

	ctx, span := f.tracer.Start(ctx, "invisiblenodes.find", trace.WithAttributes(
		attribute.String("server.address", host),
		attribute.String("url.path", path),
		attribute.String(semconv.ContentCulture, req.Culture),
	))
	defer span.End()

	if id, ok := f.cache.GetRoute(host, path); ok {
		if n, ok := f.tree.Node(id); ok {
			f.metrics.RecordCacheLookup(ctx, metrics.ResultHit)
			f.metrics.RecordResolution(ctx, metrics.OutcomeFound)
			span.SetAttributes(attribute.String(semconv.CacheResult, metrics.ResultHit), attribute.Int(semconv.ContentID, id))
			req.Content = n
			return true
		}
		f.cache.ClearRoute(host, path)
		f.metrics.RecordCacheLookup(ctx, metrics.ResultStale)
		span.SetAttributes(attribute.String(semconv.CacheResult, metrics.ResultStale))
		f.logger.DebugContext(ctx, "evicted stale route", "host", host, "path", path, semconv.ContentID, id)
	} else {
		f.metrics.RecordCacheLookup(ctx, metrics.ResultMiss)
		span.SetAttributes(attribute.String(semconv.CacheResult, metrics.ResultMiss))
	}

	root, ok := f.Root(req)
	if !ok {
		f.metrics.RecordResolution(ctx, metrics.OutcomeNotFound)
		return false
	}

	start := time.Now()
	n, err := f.locator.Locate(root, f.RelativePath(req), req.Culture)
	f.metrics.RecordLocate(ctx, time.Since(start), n != nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.metrics.RecordResolution(ctx, metrics.OutcomeError)
		f.logger.ErrorContext(ctx, "locate failed", "host", host, "path", path, "error", err)
		return false
	}
	if n == nil {
		f.metrics.RecordResolution(ctx, metrics.OutcomeNotFound)
		return false
	}

	f.cache.StoreRoute(host, path, n.ID)
	f.metrics.RecordResolution(ctx, metrics.OutcomeFound)
	span.SetAttributes(attribute.Int(semconv.ContentID, n.ID))
	f.logger.DebugContext(ctx, "content found", "host", host, "path", path, semconv.ContentID, n.ID)
	req.Content = n

	return true
}

// Root returns the node the request's URL is resolved under: the domain's
// root when the request has a domain, else the first root published for
// its culture.
func (f *ContentFinder) Root(req *Request) (*content.Node, bool) {
	if req.Domain != nil {
		return f.tree.Node(req.Domain.RootContentID)
	}
	roots := f.tree.Roots(req.Culture)
	if len(roots) == 0 {
		return nil, false
	}

	return roots[0], true
}

// RelativePath is the request path below the domain's base path, with a
// leading slash.
func (f *ContentFinder) RelativePath(req *Request) string {
	path := "/" + routecache.NormalizePath(req.URL.Path)
	if req.Domain == nil {
		return path
	}
	u, err := req.Domain.URI("")
	if err != nil || u.Path == "" {
		return path
	}
	if path == u.Path || strings.HasPrefix(path, u.Path+"/") {
		return strings.TrimPrefix(path, u.Path)
	}

	return path
}
