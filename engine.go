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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"rivaas.dev/invisiblenodes/config"
	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/finder"
	"rivaas.dev/invisiblenodes/invalidation"
	"rivaas.dev/invisiblenodes/locator"
	"rivaas.dev/invisiblenodes/notify"
	"rivaas.dev/invisiblenodes/routecache"
	"rivaas.dev/invisiblenodes/rules"
	"rivaas.dev/invisiblenodes/sitehttp"
	"rivaas.dev/invisiblenodes/urlprovider"
)

var (
	// ErrNilTree is returned by [New] without a content tree.
	ErrNilTree = errors.New("invisiblenodes: content tree is nil")
	// ErrNilDomains is returned by [New] without a domain registry.
	ErrNilDomains = errors.New("invisiblenodes: domain registry is nil")
	// ErrNilSettings is returned by [Engine.ApplySettings] for nil settings.
	ErrNilSettings = errors.New("invisiblenodes: settings are nil")
)

// Engine resolves requests to content and generates URLs for content,
// leaving out the segments of invisible nodes. It is safe for concurrent
// use.
type Engine struct {
	tree    content.Tree
	domains *domainRegistry
	logger  *slog.Logger

	classifier  *rules.Classifier
	cache       *routecache.Switch
	locator     *locator.Locator
	urls        *urlprovider.Provider
	coordinator *invalidation.Coordinator
	finder      *finder.ContentFinder
	site        *sitehttp.Site
	bus         *notify.Bus

	closeOnce   sync.Once
	unsubscribe func()

	mu       sync.Mutex
	settings *config.Settings
}

// New creates an Engine over tree and domains and subscribes its cache
// invalidation to the lifecycle events of the bus.
//
// Example:
//
//	engine, err := invisiblenodes.New(store, store,
//	    invisiblenodes.WithSettings(settings),
//	    invisiblenodes.WithBus(bus),
//	    invisiblenodes.WithLogger(logger),
//	)
func New(tree content.Tree, domains content.DomainRegistry, opts ...Option) (*Engine, error) {
	if tree == nil {
		return nil, ErrNilTree
	}
	if domains == nil {
		return nil, ErrNilDomains
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	cache, err := cfg.settings.NewCache()
	if err != nil {
		return nil, fmt.Errorf("route cache: %w", err)
	}

	s := cloneSettings(cfg.settings)
	reg := &domainRegistry{DomainRegistry: domains}
	reg.setCulture(s.DefaultCulture)

	e := &Engine{
		tree:     tree,
		domains:  reg,
		logger:   cfg.logger,
		cache:    routecache.NewSwitch(cache),
		settings: s,
		bus:      cfg.bus,
	}
	if e.bus == nil {
		e.bus = notify.NewBus()
	}

	e.classifier = rules.New(
		rules.WithContentTypes(s.ContentTypes...),
		rules.WithLogger(cfg.logger),
	)
	e.locator = locator.New(tree, e.classifier)
	e.urls = urlprovider.New(tree, reg, e.classifier,
		urlprovider.WithMapper(cfg.mapper),
		urlprovider.WithTrailingSlash(s.AddTrailingSlash),
		urlprovider.WithLogger(cfg.logger),
		urlprovider.WithTracer(cfg.tracer),
		urlprovider.WithMetrics(cfg.metrics),
	)
	e.coordinator = invalidation.New(e.cache, e.urls,
		invalidation.WithTree(tree),
		invalidation.WithPendingTTL(s.PendingMoves.TTL),
		invalidation.WithPendingCapacity(s.PendingMoves.Capacity),
		invalidation.WithLogger(cfg.logger),
		invalidation.WithMetrics(cfg.metrics),
	)
	e.finder = finder.New(tree, e.cache, e.locator,
		finder.WithLogger(cfg.logger),
		finder.WithTracer(cfg.tracer),
		finder.WithMetrics(cfg.metrics),
	)
	siteOpts := append([]sitehttp.Option{
		sitehttp.WithLogger(cfg.logger),
		sitehttp.WithTrailingSlash(s.AddTrailingSlash),
	}, cfg.siteOptions...)
	e.site = sitehttp.New(e.finder, reg, siteOpts...)
	e.unsubscribe = e.coordinator.Register(e.bus)

	e.logger.Info("invisible nodes engine ready",
		"content_types", s.ContentTypes,
		"caching_enabled", s.CachingEnabled,
		"cache_strategy", s.Cache.Strategy.String(),
	)

	return e, nil
}

// MustNew is [New] that panics on error.
func MustNew(tree content.Tree, domains content.DomainRegistry, opts ...Option) *Engine {
	e, err := New(tree, domains, opts...)
	if err != nil {
		panic(err)
	}

	return e
}

// ApplySettings replaces the settings at runtime. A changed cache
// configuration swaps in an empty cache; changed content types or default
// culture clear the cached routes. Invalid settings leave the engine
// unchanged.
func (e *Engine) ApplySettings(ctx context.Context, s *config.Settings) error {
	if s == nil {
		return ErrNilSettings
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	next := cloneSettings(s)

	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.settings

	if prev.CachingEnabled != next.CachingEnabled || prev.Cache != next.Cache {
		cache, err := next.NewCache()
		if err != nil {
			return fmt.Errorf("route cache: %w", err)
		}
		e.cache.Swap(cache)
		e.logger.InfoContext(ctx, "route cache replaced",
			"caching_enabled", next.CachingEnabled,
			"cache_strategy", next.Cache.Strategy.String(),
			"cache_capacity", next.Cache.Capacity,
		)
	}

	stale := e.classifier.Update(next.ContentTypes)
	if e.domains.setCulture(next.DefaultCulture) {
		stale = true
	}
	if stale {
		e.cache.ClearAll()
	}
	if prev.AddTrailingSlash != next.AddTrailingSlash {
		e.urls.SetTrailingSlash(next.AddTrailingSlash)
		e.site.SetTrailingSlash(next.AddTrailingSlash)
	}
	e.coordinator.SetPendingLimits(next.PendingMoves.TTL, next.PendingMoves.Capacity)
	e.settings = next

	return nil
}

// Settings returns a copy of the settings in effect.
func (e *Engine) Settings() *config.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()

	return cloneSettings(e.settings)
}

// Close unsubscribes the engine from its bus. It is safe to call more
// than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(e.unsubscribe)
	return nil
}

// Finder returns the content finder.
func (e *Engine) Finder() *finder.ContentFinder { return e.finder }

// URLs returns the URL provider.
func (e *Engine) URLs() *urlprovider.Provider { return e.urls }

// Site returns the HTTP adapter.
func (e *Engine) Site() *sitehttp.Site { return e.site }

// Cache returns the route cache. Its underlying cache changes when
// [Engine.ApplySettings] changes the cache configuration.
func (e *Engine) Cache() *routecache.Switch { return e.cache }

// Classifier returns the invisible content type rules.
func (e *Engine) Classifier() *rules.Classifier { return e.classifier }

// Coordinator returns the cache invalidation coordinator.
func (e *Engine) Coordinator() *invalidation.Coordinator { return e.coordinator }

// Bus returns the bus the engine receives lifecycle events from.
func (e *Engine) Bus() *notify.Bus { return e.bus }

func cloneSettings(s *config.Settings) *config.Settings {
	c := *s
	c.ContentTypes = slices.Clone(s.ContentTypes)

	return &c
}

// domainRegistry lets the default culture setting override the host's.
type domainRegistry struct {
	content.DomainRegistry
	culture atomic.Pointer[string]
}

func (r *domainRegistry) DefaultCulture() string {
	if c := r.culture.Load(); c != nil && *c != "" {
		return *c
	}

	return r.DomainRegistry.DefaultCulture()
}

// setCulture reports whether the effective override changed.
func (r *domainRegistry) setCulture(culture string) bool {
	prev := r.culture.Swap(&culture)
	return prev == nil || *prev != culture
}
