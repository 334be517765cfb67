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

package invisiblenodes

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/invisiblenodes/config"
	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/logging"
	"rivaas.dev/invisiblenodes/metrics"
	"rivaas.dev/invisiblenodes/notify"
	"rivaas.dev/invisiblenodes/routecache"
	"rivaas.dev/invisiblenodes/urlprovider"
)

func testSettings(mutate ...func(*config.Settings)) *config.Settings {
	s := config.DefaultSettings()
	s.ContentTypes = []string{content.TestInvisibleType}
	for _, m := range mutate {
		m(s)
	}

	return s
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *content.Store) {
	t.Helper()

	bus := notify.NewBus()
	store := content.TestingStore(t, content.WithPublisher(bus))
	e, err := New(store, store, append([]Option{WithSettings(testSettings()), WithBus(bus)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	return e, store
}

func resolve(t *testing.T, e *Engine, raw string) (*content.Node, bool) {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)
	req, ok := e.Site().ResolveURL(t.Context(), u)

	return req.Content, ok
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	store := content.TestingStore(t)

	_, err := New(nil, store)
	require.ErrorIs(t, err, ErrNilTree)

	_, err = New(store, nil)
	require.ErrorIs(t, err, ErrNilDomains)

	_, err = New(store, store, WithSettings(testSettings(func(s *config.Settings) {
		s.PendingMoves.Capacity = 0
	})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending_moves.capacity")

	assert.Panics(t, func() { MustNew(nil, store) })
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	store := content.TestingStore(t)
	e, err := New(store, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	assert.NotNil(t, e.Bus(), "an engine without a bus owns one")
	assert.Empty(t, e.Classifier().Aliases())
	assert.True(t, e.Settings().CachingEnabled)

	n, ok := resolve(t, e, "https://en.example.org/content/invisible/hidden/")
	require.True(t, ok, "without content types every node is visible")
	assert.Equal(t, content.TestHiddenID, n.ID)

	_, ok = resolve(t, e, "https://en.example.org/content/hidden/")
	assert.False(t, ok)
}

func TestNew_LogsReady(t *testing.T) {
	t.Parallel()

	th := logging.NewTestHelper(t)
	newEngine(t, WithLogger(th.Logger.Logger()))

	th.AssertLog(t, "INFO", "invisible nodes engine ready", map[string]any{
		"caching_enabled": true,
		"cache_strategy":  "memory",
	})
}

// Scenario A: a path of visible nodes resolves and generates the same path.
func TestEngine_VisiblePath(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	n, ok := resolve(t, e, "https://en.example.org/content/nested/")
	require.True(t, ok)
	assert.Equal(t, content.TestNestedID, n.ID)

	info, ok := e.URLs().GetURLByID(t.Context(), content.TestNestedID, urlprovider.ModeDefault, "", mustURL(t, "https://en.example.org/"))
	require.True(t, ok)
	assert.Equal(t, "/content/nested/", info.Text)
}

// Scenario B: the invisible node's segment is skipped both ways.
func TestEngine_InvisibleSegmentSkipped(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	n, ok := resolve(t, e, "https://en.example.org/content/hidden/")
	require.True(t, ok)
	assert.Equal(t, content.TestHiddenID, n.ID)

	info, ok := e.URLs().GetURLByID(t.Context(), content.TestHiddenID, urlprovider.ModeDefault, "", mustURL(t, "https://en.example.org/"))
	require.True(t, ok)
	assert.Equal(t, "/content/hidden/", info.Text)
}

// Scenario C: a URL in another culture's domain is absolute.
func TestEngine_CrossCultureURL(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	info, ok := e.URLs().GetURLByID(t.Context(), content.TestContentID, urlprovider.ModeDefault, "da-DK", mustURL(t, "https://en.example.org/"))
	require.True(t, ok)
	assert.Equal(t, "https://da.example.org/content/", info.Text)
}

// Scenario D: other URLs leave out the current domain.
func TestEngine_OtherURLs(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	others := e.URLs().GetOtherURLs(t.Context(), content.TestNestedID, mustURL(t, "https://en.example.org/"))
	require.Len(t, others, 1)
	assert.Equal(t, "https://da.example.org/content/nested/", others[0].Text)
}

// Scenario E: the second identical request is served from the cache.
func TestEngine_SecondRequestHitsCache(t *testing.T) {
	t.Parallel()

	rec, reader := metrics.TestingRecorder(t)
	e, _ := newEngine(t, WithMetrics(rec))

	for range 2 {
		n, ok := resolve(t, e, "https://en.example.org/content/hidden/")
		require.True(t, ok)
		assert.Equal(t, content.TestHiddenID, n.ID)
	}

	assert.Equal(t, int64(1), metrics.TestingSum(t, reader, "invisiblenodes_route_cache_lookups_total", "result", "miss"))
	assert.Equal(t, int64(1), metrics.TestingSum(t, reader, "invisiblenodes_route_cache_lookups_total", "result", "hit"))
	assert.Equal(t, uint64(1), metrics.TestingHistogramCount(t, reader, "invisiblenodes_locate_duration_seconds"), "the tree is walked once")
}

func TestEngine_LookupIsIdempotent(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t, WithSettings(testSettings(func(s *config.Settings) { s.CachingEnabled = false })))

	first, ok := resolve(t, e, "https://da.example.org/om/")
	require.True(t, ok)
	second, ok := resolve(t, e, "https://da.example.org/om/")
	require.True(t, ok)
	assert.Same(t, first, second)
}

func TestEngine_InvisibleChains(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 3; n++ {
		leaf := content.NodeSpec{ID: 99, Name: "Leaf", Segment: "leaf", ContentType: "page"}
		for i := n; i >= 1; i-- {
			leaf = content.NodeSpec{
				ID: 10 + i, Name: "Folder", Segment: "folder", ContentType: content.TestInvisibleType,
				Children: []content.NodeSpec{leaf},
			}
		}
		file := content.File{
			DefaultCulture: "en-US",
			Nodes: []content.NodeSpec{{
				ID: 1, Name: "Home", Segment: "home", ContentType: "page",
				Children: []content.NodeSpec{{ID: 2, Name: "Docs", Segment: "docs", ContentType: "page", Children: []content.NodeSpec{leaf}}},
			}},
			Domains: []content.DomainSpec{{ID: 1, Name: "https://example.org/", Culture: "en-US", Root: 1}},
		}
		store, err := content.Build(t.Context(), file)
		require.NoError(t, err)
		e, err := New(store, store, WithSettings(testSettings()))
		require.NoError(t, err)

		got, ok := resolve(t, e, "https://example.org/docs/leaf/")
		require.True(t, ok, "%d invisible ancestors", n)
		assert.Equal(t, 99, got.ID)

		info, ok := e.URLs().GetURLByID(t.Context(), 99, urlprovider.ModeDefault, "", mustURL(t, "https://example.org/"))
		require.True(t, ok)
		assert.Equal(t, "/docs/leaf/", info.Text, "%d invisible ancestors", n)
		require.NoError(t, e.Close())
	}
}

func TestEngine_URLRoundTrip(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	current := mustURL(t, "https://en.example.org/")

	ids := []int{content.TestHomeID, content.TestContentID, content.TestNestedID, content.TestHiddenID, content.TestAboutID}
	for _, culture := range []string{"en-US", "da-DK"} {
		for _, id := range ids {
			info, ok := e.URLs().GetURLByID(t.Context(), id, urlprovider.ModeAbsolute, culture, current)
			require.True(t, ok, "node %d in %s", id, culture)

			n, ok := resolve(t, e, info.Text)
			require.True(t, ok, info.Text)
			assert.Equal(t, id, n.ID, info.Text)
		}
	}
}

func TestEngine_CacheKeepsRoutesUntilCleared(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	c := e.Cache()

	c.StoreRoute("en.example.org", "/a/", 7)
	id, ok := c.GetRoute("EN.example.org:443", "a")
	require.True(t, ok)
	assert.Equal(t, 7, id)

	c.ClearRoute("en.example.org", "/a")
	_, ok = c.GetRoute("en.example.org", "/a/")
	assert.False(t, ok)
}

func TestEngine_MoveEvictsOldRoute(t *testing.T) {
	t.Parallel()

	e, store := newEngine(t)

	_, ok := resolve(t, e, "https://en.example.org/content/nested/")
	require.True(t, ok)
	_, ok = e.Cache().GetRoute("en.example.org", "/content/nested/")
	require.True(t, ok)

	require.NoError(t, store.Move(t.Context(), content.TestNestedID, content.TestAboutID))

	_, ok = e.Cache().GetRoute("en.example.org", "/content/nested/")
	assert.False(t, ok)
	_, ok = resolve(t, e, "https://en.example.org/content/nested/")
	assert.False(t, ok, "the old path no longer resolves to the moved node")

	n, ok := resolve(t, e, "https://en.example.org/about/nested/")
	require.True(t, ok)
	assert.Equal(t, content.TestNestedID, n.ID)
}

func TestEngine_CloseStopsInvalidation(t *testing.T) {
	t.Parallel()

	e, store := newEngine(t)
	_, ok := resolve(t, e, "https://en.example.org/content/nested/")
	require.True(t, ok)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	require.NoError(t, store.Move(t.Context(), content.TestNestedID, content.TestAboutID))

	_, ok = e.Cache().GetRoute("en.example.org", "/content/nested/")
	assert.True(t, ok)
}

func TestApplySettings_ContentTypes(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	_, ok := resolve(t, e, "https://en.example.org/content/hidden/")
	require.True(t, ok)

	require.NoError(t, e.ApplySettings(t.Context(), testSettings(func(s *config.Settings) { s.ContentTypes = nil })))

	_, ok = e.Cache().GetRoute("en.example.org", "/content/hidden/")
	assert.False(t, ok, "changed rules clear the cache")
	_, ok = resolve(t, e, "https://en.example.org/content/hidden/")
	assert.False(t, ok)
	n, ok := resolve(t, e, "https://en.example.org/content/invisible/hidden/")
	require.True(t, ok)
	assert.Equal(t, content.TestHiddenID, n.ID)
	assert.Empty(t, e.Settings().ContentTypes)
}

func TestApplySettings_Cache(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	_, ok := resolve(t, e, "https://en.example.org/content/")
	require.True(t, ok)

	require.NoError(t, e.ApplySettings(t.Context(), testSettings(func(s *config.Settings) { s.CachingEnabled = false })))
	assert.Equal(t, routecache.NoOp{}, e.Cache().Current())

	require.NoError(t, e.ApplySettings(t.Context(), testSettings(func(s *config.Settings) {
		s.Cache.Strategy = routecache.StrategyLRU
		s.Cache.Capacity = 8
	})))
	assert.IsType(t, &routecache.LRU{}, e.Cache().Current())

	_, ok = resolve(t, e, "https://en.example.org/content/")
	require.True(t, ok)
	_, ok = e.Cache().GetRoute("en.example.org", "/content/")
	assert.True(t, ok)
}

func TestApplySettings_TrailingSlash(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	render := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := e.Site().Handler(render)

	require.NoError(t, e.ApplySettings(t.Context(), testSettings(func(s *config.Settings) { s.AddTrailingSlash = false })))

	info, ok := e.URLs().GetURLByID(t.Context(), content.TestNestedID, urlprovider.ModeDefault, "", mustURL(t, "https://en.example.org/"))
	require.True(t, ok)
	assert.Equal(t, "/content/nested", info.Text)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://en.example.org/content/nested/", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/content/nested", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://en.example.org/content/nested", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestApplySettings_DefaultCulture(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	_, ok := resolve(t, e, "https://unknown.example/om/")
	require.False(t, ok)

	require.NoError(t, e.ApplySettings(t.Context(), testSettings(func(s *config.Settings) { s.DefaultCulture = "da-DK" })))

	n, ok := resolve(t, e, "https://unknown.example/om/")
	require.True(t, ok)
	assert.Equal(t, content.TestAboutID, n.ID)
}

func TestApplySettings_Invalid(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	require.ErrorIs(t, e.ApplySettings(t.Context(), nil), ErrNilSettings)
	err := e.ApplySettings(t.Context(), testSettings(func(s *config.Settings) {
		s.ContentTypes = nil
		s.PendingMoves.TTL = 0
	}))
	require.Error(t, err)
	assert.Equal(t, []string{content.TestInvisibleType}, e.Classifier().Aliases(), "invalid settings change nothing")
}

func TestSettings_IsACopy(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	s := e.Settings()
	s.ContentTypes[0] = "changed"

	assert.Equal(t, []string{content.TestInvisibleType}, e.Settings().ContentTypes)
}
