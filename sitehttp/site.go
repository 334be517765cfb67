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

package sitehttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/errors"
	"rivaas.dev/invisiblenodes/finder"
	"rivaas.dev/invisiblenodes/urlprovider"
)

// CodeContentNotFound is the problem code of unresolved requests.
const CodeContentNotFound = "content_not_found"

// Finder resolves finder requests.
type Finder interface {
	TryFindContent(ctx context.Context, req *finder.Request) bool
	Root(req *finder.Request) (*content.Node, bool)
	RelativePath(req *finder.Request) string
}

// Option configures a [Site].
type Option func(*Site)

// WithLogger sets the logger for misses and write failures. A nil logger
// is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Site) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTrailingSlash sets the initial trailing slash policy. Resolved
// paths without the configured form are redirected with 308.
func WithTrailingSlash(enabled bool) Option {
	return func(s *Site) { s.trailingSlash.Store(enabled) }
}

// WithFormatter sets the formatter of not found responses.
func WithFormatter(f errors.Formatter) Option {
	return func(s *Site) {
		if f != nil {
			s.formatter = f
		}
	}
}

// WithForwardedHeaders makes the site read the request scheme and host
// from X-Forwarded-Proto and X-Forwarded-Host. Enable it only behind a
// proxy that sets them.
func WithForwardedHeaders() Option {
	return func(s *Site) { s.forwarded = true }
}

// Site resolves HTTP requests to content.
type Site struct {
	finder        Finder
	domains       content.DomainRegistry
	formatter     errors.Formatter
	logger        *slog.Logger
	trailingSlash atomic.Bool
	forwarded     bool
}

// New creates a Site. The trailing slash policy defaults to on.
func New(f Finder, domains content.DomainRegistry, opts ...Option) *Site {
	s := &Site{
		finder:    f,
		domains:   domains,
		formatter: errors.NewRFC9457(""),
		logger:    slog.New(slog.DiscardHandler),
	}
	s.trailingSlash.Store(true)
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetTrailingSlash changes the trailing slash policy.
func (s *Site) SetTrailingSlash(enabled bool) {
	s.trailingSlash.Store(enabled)
}

// Resolve finds the content for r. The returned request carries the
// matched domain and culture even when no content was found. A path at the
// domain's base resolves to the domain's root node.
func (s *Site) Resolve(r *http.Request) (*finder.Request, bool) {
	return s.ResolveURL(r.Context(), s.requestURL(r))
}

// ResolveURL is [Site.Resolve] for an absolute URL.
func (s *Site) ResolveURL(ctx context.Context, u *url.URL) (*finder.Request, bool) {
	req := &finder.Request{URL: u}
	s.matchDomain(req)

	if s.finder.TryFindContent(ctx, req) {
		return req, true
	}
	if len(content.SplitPath(s.finder.RelativePath(req))) == 0 {
		if root, ok := s.finder.Root(req); ok {
			req.Content = root
			return req, true
		}
	}
	s.logger.DebugContext(ctx, "no content", "host", u.Host, "path", u.Path, "culture", req.Culture)

	return req, false
}

// Middleware resolves each request and stores the result in its context
// before calling next. Unresolved requests reach next without content.
func (s *Site) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.Resolve(r)
		if ok && s.redirect(w, r) {
			return
		}
		next.ServeHTTP(w, r.WithContext(withRequest(r.Context(), req)))
	})
}

// Handler serves resolved requests with render and answers the rest
// with [Site.NotFound].
func (s *Site) Handler(render http.Handler) http.Handler {
	return s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ContentFrom(r.Context()); !ok {
			s.NotFound(w, r)
			return
		}
		render.ServeHTTP(w, r)
	}))
}

// NotFound writes a 404 problem for r.
func (s *Site) NotFound(w http.ResponseWriter, r *http.Request) {
	err := errors.WithCode(
		errors.WithStatus(fmt.Errorf("no content at %s", r.URL.Path), http.StatusNotFound),
		CodeContentNotFound,
	)
	if werr := errors.Write(w, r, s.formatter, err); werr != nil {
		s.logger.WarnContext(r.Context(), "write not found response", "error", werr)
	}
}

// redirect enforces the trailing slash policy on a resolved request. It
// reports whether a redirect was written.
func (s *Site) redirect(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	path := r.URL.Path
	if path == "" || path == "/" {
		return false
	}

	want := path
	hasSlash := strings.HasSuffix(path, "/")
	switch {
	case s.trailingSlash.Load() && !hasSlash:
		want = path + "/"
	case !s.trailingSlash.Load() && hasSlash:
		want = strings.TrimRight(path, "/")
		if want == "" {
			return false
		}
	default:
		return false
	}

	target := url.URL{Path: want, RawQuery: r.URL.RawQuery}
	http.Redirect(w, r, target.String(), http.StatusPermanentRedirect)

	return true
}

func (s *Site) requestURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if s.forwarded {
		if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
			scheme = strings.ToLower(strings.TrimSpace(strings.Split(p, ",")[0]))
		}
		if h := r.Header.Get("X-Forwarded-Host"); h != "" {
			host = strings.TrimSpace(strings.Split(h, ",")[0])
		}
	}

	return &url.URL{Scheme: scheme, Host: host, Path: r.URL.Path, RawQuery: r.URL.RawQuery}
}

// matchDomain sets the domain serving req.URL and its culture, or the
// default culture when no domain matches.
func (s *Site) matchDomain(req *finder.Request) {
	var candidates []urlprovider.DomainAndURI
	for _, d := range s.domains.Domains(false) {
		du, err := urlprovider.NewDomainAndURI(d, req.URL)
		if err != nil {
			s.logger.Warn("skipping invalid domain", "domain", d.Name, "error", err)
			continue
		}
		candidates = append(candidates, du)
	}
	if d, ok := urlprovider.MatchCurrent(candidates, req.URL); ok {
		dom := d.Domain
		req.Domain = &dom
		req.Culture = dom.Culture
		return
	}
	req.Culture = s.domains.DefaultCulture()
}
