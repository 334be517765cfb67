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

//go:build !integration

package finder

import (
	"errors"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/locator"
	"rivaas.dev/invisiblenodes/metrics"
	"rivaas.dev/invisiblenodes/routecache"
	"rivaas.dev/invisiblenodes/rules"
	"rivaas.dev/invisiblenodes/tracing"
)

type countingLocator struct {
	next  locator.NodeLocator
	calls atomic.Int32
	path  atomic.Value
}

func (l *countingLocator) Locate(root *content.Node, path, culture string) (*content.Node, error) {
	l.calls.Add(1)
	l.path.Store(path)

	return l.next.Locate(root, path, culture)
}

type failingLocator struct{}

func (failingLocator) Locate(*content.Node, string, string) (*content.Node, error) {
	return nil, errors.New("boom")
}

func newFinder(t *testing.T, opts ...Option) (*ContentFinder, *content.Store, *routecache.Memory, *countingLocator) {
	t.Helper()

	store := content.TestingStore(t)
	cache := routecache.NewMemory()
	loc := &countingLocator{next: locator.New(store, rules.New(rules.WithContentTypes(content.TestInvisibleType)))}

	return New(store, cache, loc, opts...), store, cache, loc
}

func request(t *testing.T, raw string, domain *content.Domain, culture string) *Request {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)

	return &Request{URL: u, Domain: domain, Culture: culture}
}

func enDomain() *content.Domain {
	return &content.Domain{ID: 1, Name: "https://en.example.org/", Culture: "en-US", RootContentID: content.TestHomeID}
}

func TestTryFindContent_CachesResolution(t *testing.T) {
	t.Parallel()

	f, _, cache, loc := newFinder(t)

	first := request(t, "https://en.example.org/content/hidden/", enDomain(), "en-US")
	require.True(t, f.TryFindContent(t.Context(), first))
	require.NotNil(t, first.Content)
	assert.Equal(t, content.TestHiddenID, first.Content.ID)

	id, ok := cache.GetRoute("en.example.org", "/content/hidden")
	require.True(t, ok)
	assert.Equal(t, content.TestHiddenID, id)

	second := request(t, "https://EN.example.org/content/hidden", enDomain(), "en-US")
	require.True(t, f.TryFindContent(t.Context(), second))
	assert.Equal(t, content.TestHiddenID, second.Content.ID)
	assert.Equal(t, int32(1), loc.calls.Load(), "second lookup served from cache")
}

func TestTryFindContent_StaleEntry(t *testing.T) {
	t.Parallel()

	f, store, cache, loc := newFinder(t)
	cache.StoreRoute("en.example.org", "/content/hidden", content.TestNestedID)
	require.NoError(t, store.Unpublish(t.Context(), content.TestNestedID))

	req := request(t, "https://en.example.org/content/hidden/", enDomain(), "en-US")
	require.True(t, f.TryFindContent(t.Context(), req))
	assert.Equal(t, content.TestHiddenID, req.Content.ID)
	assert.Equal(t, int32(1), loc.calls.Load())

	id, _ := cache.GetRoute("en.example.org", "/content/hidden")
	assert.Equal(t, content.TestHiddenID, id, "stale entry replaced")
}

func TestTryFindContent_StaleEntryNotFound(t *testing.T) {
	t.Parallel()

	f, store, cache, _ := newFinder(t)
	cache.StoreRoute("en.example.org", "/content/hidden", content.TestHiddenID)
	require.NoError(t, store.Trash(t.Context(), content.TestHiddenID))

	req := request(t, "https://en.example.org/content/hidden", enDomain(), "en-US")
	assert.False(t, f.TryFindContent(t.Context(), req))
	assert.Nil(t, req.Content)
	assert.Zero(t, cache.Len())
}

func TestTryFindContent_NotFound(t *testing.T) {
	t.Parallel()

	f, _, cache, _ := newFinder(t)

	for _, raw := range []string{
		"https://en.example.org/missing",
		"https://en.example.org/invisible/hidden",
		"https://en.example.org/",
	} {
		req := request(t, raw, enDomain(), "en-US")
		assert.False(t, f.TryFindContent(t.Context(), req), raw)
	}
	assert.Zero(t, cache.Len(), "misses are not cached")
}

func TestTryFindContent_WithoutDomainUsesFirstRoot(t *testing.T) {
	t.Parallel()

	f, _, _, _ := newFinder(t)

	req := request(t, "http://localhost:8080/content/nested", nil, "")
	require.True(t, f.TryFindContent(t.Context(), req))
	assert.Equal(t, content.TestNestedID, req.Content.ID)
}

func TestTryFindContent_NoRoot(t *testing.T) {
	t.Parallel()

	f := New(content.NewStore(), nil, locator.New(content.NewStore(), nil))

	assert.False(t, f.TryFindContent(t.Context(), request(t, "http://localhost/a", nil, "")))
	assert.False(t, f.TryFindContent(t.Context(), nil))
	assert.False(t, f.TryFindContent(t.Context(), &Request{}))
}

func TestTryFindContent_DomainBasePath(t *testing.T) {
	t.Parallel()

	f, _, cache, loc := newFinder(t)
	domain := &content.Domain{ID: 7, Name: "https://example.org/da", Culture: "da-DK", RootContentID: content.TestHomeID}

	req := request(t, "https://example.org/da/om/", domain, "da-DK")
	require.True(t, f.TryFindContent(t.Context(), req))
	assert.Equal(t, content.TestAboutID, req.Content.ID)
	assert.Equal(t, "/om", loc.path.Load())

	_, ok := cache.GetRoute("example.org", "/da/om")
	assert.True(t, ok, "cache key keeps the full path")
}

func TestTryFindContent_LocateError(t *testing.T) {
	t.Parallel()

	recorder, reader := metrics.TestingRecorder(t)
	tr, spans := tracing.TestingTracer(t)
	store := content.TestingStore(t)
	f := New(store, routecache.NewMemory(), failingLocator{}, WithMetrics(recorder), WithTracer(tr.Tracer()))

	assert.False(t, f.TryFindContent(t.Context(), request(t, "https://en.example.org/content", enDomain(), "en-US")))

	assert.Equal(t, int64(1), metrics.TestingSum(t, reader, "invisiblenodes_content_resolutions_total", "outcome", "error"))
	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "invisiblenodes.find", ended[0].Name())
	assert.Equal(t, "boom", ended[0].Status().Description)
}

func TestTryFindContent_Metrics(t *testing.T) {
	t.Parallel()

	recorder, reader := metrics.TestingRecorder(t)
	f, _, cache, _ := newFinder(t, WithMetrics(recorder))
	ctx := t.Context()

	require.True(t, f.TryFindContent(ctx, request(t, "https://en.example.org/content/nested", enDomain(), "en-US")))
	require.True(t, f.TryFindContent(ctx, request(t, "https://en.example.org/content/nested", enDomain(), "en-US")))
	cache.StoreRoute("en.example.org", "/gone", 404)
	require.False(t, f.TryFindContent(ctx, request(t, "https://en.example.org/gone", enDomain(), "en-US")))

	assert.Equal(t, int64(1), metrics.TestingSum(t, reader, "invisiblenodes_route_cache_lookups_total", "result", "hit"))
	assert.Equal(t, int64(1), metrics.TestingSum(t, reader, "invisiblenodes_route_cache_lookups_total", "result", "miss"))
	assert.Equal(t, int64(1), metrics.TestingSum(t, reader, "invisiblenodes_route_cache_lookups_total", "result", "stale"))
	assert.Equal(t, int64(2), metrics.TestingSum(t, reader, "invisiblenodes_content_resolutions_total", "outcome", "found"))
	assert.Equal(t, int64(1), metrics.TestingSum(t, reader, "invisiblenodes_content_resolutions_total", "outcome", "not_found"))
	assert.Equal(t, uint64(2), metrics.TestingHistogramCount(t, reader, "invisiblenodes_locate_duration_seconds"))
}
