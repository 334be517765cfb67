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

// Package urlprovider generates public URLs for content nodes, leaving out
// the segments of invisible ancestors and mapping nodes onto domains.
package urlprovider

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/metrics"
	"rivaas.dev/invisiblenodes/routecache"
	"rivaas.dev/invisiblenodes/rules"
	"rivaas.dev/invisiblenodes/telemetry/semconv"
)

// Option configures a Provider.
type Option func(*Provider)

// WithMapper replaces the [SiteDomainMapper].
func WithMapper(m DomainMapper) Option {
	return func(p *Provider) {
		if m != nil {
			p.mapper = m
		}
	}
}

// WithTrailingSlash controls whether generated paths end with "/".
// The default is true.
func WithTrailingSlash(enabled bool) Option {
	return func(p *Provider) {
		p.trailingSlash.Store(enabled)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets the tracer used for "invisiblenodes.url" spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Provider) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Provider) {
		p.metrics = r
	}
}

// Provider generates URLs. It is safe for concurrent use.
type Provider struct {
	tree          content.Tree
	domains       content.DomainRegistry
	rules         rules.Rules
	mapper        DomainMapper
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *metrics.Recorder
	trailingSlash atomic.Bool
}

// New creates a provider. A nil rules value treats every node as visible.
func New(tree content.Tree, domains content.DomainRegistry, r rules.Rules, opts ...Option) *Provider {
	if r == nil {
		r = rules.None
	}
	p := &Provider{
		tree:    tree,
		domains: domains,
		rules:   r,
		mapper:  SiteDomainMapper{},
		logger:  slog.New(slog.DiscardHandler),
		tracer:  noop.NewTracerProvider().Tracer(""),
	}
	p.trailingSlash.Store(true)
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// SetTrailingSlash changes the trailing slash policy of generated paths.
func (p *Provider) SetTrailingSlash(enabled bool) {
	p.trailingSlash.Store(enabled)
}

// GetURLByID is [Provider.GetURL] for a node id. Unknown or unpublished ids
// yield no URL.
func (p *Provider) GetURLByID(ctx context.Context, id int, mode Mode, culture string, current *url.URL) (URLInfo, bool) {
	n, ok := p.tree.Node(id)
	if !ok {
		p.metrics.RecordURL(ctx, mode.String(), false)
		return URLInfo{}, false
	}

	return p.GetURL(ctx, n, mode, culture, current)
}

// GetURL returns the URL of n for culture, as seen from the current
// request URL (which may be nil).
//
// The domain is chosen among those assigned to the nearest ancestor-or-self
// that has any. When no domain matches a non-default culture there is no
// URL. Without a domain, the path is built below level 1 and made absolute
// against current when needed.
func (p *Provider) GetURL(ctx context.Context, n *content.Node, mode Mode, culture string, current *url.URL) (URLInfo, bool) {
	if n == nil {
		return URLInfo{}, false
	}
	ctx, span := p.tracer.Start(ctx, "invisiblenodes.url", trace.WithAttributes(
		attribute.Int(semconv.ContentID, n.ID),
		attribute.String("url.mode", mode.String()),
		attribute.String(semconv.ContentCulture, culture),
	))
	defer span.End()

	info, ok := p.getURL(n, mode, culture, current)
	span.SetAttributes(attribute.Bool("url.resolved", ok))
	if ok {
		span.SetAttributes(attribute.String("url.full", info.Text))
	}
	p.metrics.RecordURL(ctx, mode.String(), ok)

	return info, ok
}

func (p *Provider) getURL(n *content.Node, mode Mode, culture string, current *url.URL) (URLInfo, bool) {
	defaultCulture := p.domains.DefaultCulture()

	var selected *DomainAndURI
	if candidates := p.nearestDomains(n, current); len(candidates) > 0 {
		if d, ok := p.mapper.MapDomain(candidates, current, culture, defaultCulture); ok {
			selected = &d
		}
	}
	if selected == nil && culture != "" && !content.SameCulture(culture, defaultCulture) {
		p.logger.Debug("no domain for culture", "id", n.ID, "culture", culture)
		return URLInfo{}, false
	}

	rootLevel, base, urlCulture := 1, &url.URL{}, culture
	if selected != nil {
		rootLevel = p.rootLevel(selected.Domain)
		base, urlCulture = selected.URI, selected.Domain.Culture
	} else if current != nil && current.Host != "" {
		base = &url.URL{Scheme: current.Scheme, Host: current.Host}
	}

	u := p.combine(base, p.Route(n, rootLevel, urlCulture))

	return toURLInfo(u, mode, urlCulture, current)
}

// GetOtherURLs returns the absolute URLs of the node under every domain
// assigned on its ancestor chain, except the domain serving current. Each
// URL uses its domain's culture. Duplicates are dropped.
func (p *Provider) GetOtherURLs(ctx context.Context, id int, current *url.URL) []URLInfo {
	n, ok := p.tree.Node(id)
	if !ok {
		return nil
	}
	_, span := p.tracer.Start(ctx, "invisiblenodes.url.other", trace.WithAttributes(attribute.Int(semconv.ContentID, id)))
	defer span.End()

	var candidates []DomainAndURI
	for _, a := range content.AncestorsOrSelf(p.tree, n) {
		candidates = append(candidates, p.toDomainAndURIs(p.domains.AssignedDomains(a.ID, false), current)...)
	}
	mapped := p.mapper.MapDomains(candidates, current, true, "", p.domains.DefaultCulture())

	var out []URLInfo
	for _, d := range mapped {
		u := p.combine(d.URI, p.Route(n, p.rootLevel(d.Domain), d.Domain.Culture))
		text := u.String()
		if slices.ContainsFunc(out, func(i URLInfo) bool { return i.Text == text }) {
			continue
		}
		out = append(out, URLInfo{Text: text, Culture: d.Domain.Culture, IsURL: true})
	}
	span.SetAttributes(attribute.Int("url.count", len(out)))

	return out
}

// Route returns "/" followed by the segments of n and its ancestors that
// sit below rootLevel and are not invisible, root first. It has no
// trailing slash.
func (p *Provider) Route(n *content.Node, rootLevel int, culture string) string {
	chain := content.AncestorsOrSelf(p.tree, n)
	segments := make([]string, 0, len(chain))
	for _, a := range slices.Backward(chain) {
		if a.Level <= rootLevel || p.rules.IsInvisible(a) {
			continue
		}
		if s := a.URLSegment(culture); s != "" {
			segments = append(segments, s)
		}
	}

	return "/" + strings.Join(segments, "/")
}

// nearestDomains returns the parsed domains of the nearest ancestor-or-self
// with assigned domains.
func (p *Provider) nearestDomains(n *content.Node, current *url.URL) []DomainAndURI {
	for _, a := range content.AncestorsOrSelf(p.tree, n) {
		if assigned := p.domains.AssignedDomains(a.ID, false); len(assigned) > 0 {
			return p.toDomainAndURIs(assigned, current)
		}
	}

	return nil
}

func (p *Provider) toDomainAndURIs(domains []content.Domain, current *url.URL) []DomainAndURI {
	out := make([]DomainAndURI, 0, len(domains))
	for _, d := range domains {
		du, err := NewDomainAndURI(d, current)
		if err != nil {
			p.logger.Warn("skipping invalid domain", "domain", d.Name, "error", err)
			continue
		}
		out = append(out, du)
	}

	return out
}

func (p *Provider) rootLevel(d content.Domain) int {
	if root, ok := p.tree.Node(d.RootContentID); ok {
		return root.Level
	}

	return 1
}

// combine joins the base path and route with single slashes.
func (p *Provider) combine(base *url.URL, route string) *url.URL {
	var parts []string
	if b := strings.Trim(base.Path, "/"); b != "" {
		parts = append(parts, b)
	}
	if r := strings.Trim(route, "/"); r != "" {
		parts = append(parts, r)
	}
	path := "/" + strings.Join(parts, "/")
	if p.trailingSlash.Load() && path != "/" {
		path += "/"
	}

	return &url.URL{Scheme: base.Scheme, Host: base.Host, Path: path}
}

func toURLInfo(u *url.URL, mode Mode, culture string, current *url.URL) (URLInfo, bool) {
	absolute := false
	switch mode {
	case ModeRelative:
	case ModeAbsolute:
		if u.Host == "" {
			return URLInfo{}, false
		}
		absolute = true
	default:
		absolute = u.Host != "" && current != nil && current.Host != "" &&
			routecache.NormalizeHost(u.Host) != routecache.NormalizeHost(current.Host)
	}

	text := u.EscapedPath()
	if absolute {
		text = u.String()
	}

	return URLInfo{Text: text, Culture: culture, IsURL: true}, true
}
