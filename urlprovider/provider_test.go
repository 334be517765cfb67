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

package urlprovider

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/metrics"
	"rivaas.dev/invisiblenodes/rules"
	"rivaas.dev/invisiblenodes/tracing"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

func newProvider(t *testing.T, opts ...Option) (*Provider, *content.Store) {
	t.Helper()

	store := content.TestingStore(t)
	classifier := rules.New(rules.WithContentTypes(content.TestInvisibleType))

	return New(store, store, classifier, opts...), store
}

func TestGetURL_Relative(t *testing.T) {
	t.Parallel()

	p, _ := newProvider(t)
	current := mustURL(t, "https://en.example.org/")

	tests := []struct {
		name string
		id   int
		want string
	}{
		{name: "domain root", id: content.TestHomeID, want: "/"},
		{name: "child", id: content.TestContentID, want: "/content/"},
		{name: "nested", id: content.TestNestedID, want: "/content/nested/"},
		{name: "below invisible", id: content.TestHiddenID, want: "/content/hidden/"},
		{name: "invisible itself", id: content.TestInvisibleID, want: "/content/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info, ok := p.GetURLByID(t.Context(), tt.id, ModeDefault, "", current)
			require.True(t, ok)
			assert.Equal(t, tt.want, info.Text)
			assert.True(t, info.IsURL)
			assert.Equal(t, "en-US", info.Culture)
		})
	}
}

func TestGetURL_CrossDomainIsAbsolute(t *testing.T) {
	t.Parallel()

	p, _ := newProvider(t)
	current := mustURL(t, "https://en.example.org/")

	info, ok := p.GetURLByID(t.Context(), content.TestContentID, ModeDefault, "da-DK", current)
	require.True(t, ok)
	assert.Equal(t, "https://da.example.org/content/", info.Text)
	assert.Equal(t, "da-DK", info.Culture)

	info, ok = p.GetURLByID(t.Context(), content.TestAboutID, ModeAuto, "da-DK", current)
	require.True(t, ok)
	assert.Equal(t, "https://da.example.org/om/", info.Text, "culture segment is used")

	info, ok = p.GetURLByID(t.Context(), content.TestContentID, ModeRelative, "da-DK", current)
	require.True(t, ok)
	assert.Equal(t, "/content/", info.Text, "relative mode never adds the authority")
}

func TestGetURL_Absolute(t *testing.T) {
	t.Parallel()

	p, _ := newProvider(t)

	info, ok := p.GetURLByID(t.Context(), content.TestHiddenID, ModeAbsolute, "en-US", mustURL(t, "https://en.example.org/"))
	require.True(t, ok)
	assert.Equal(t, "https://en.example.org/content/hidden/", info.Text)

	info, ok = p.GetURLByID(t.Context(), content.TestHiddenID, ModeAbsolute, "", nil)
	require.True(t, ok)
	assert.Equal(t, "https://en.example.org/content/hidden/", info.Text, "default culture domain without a request")
}

func TestGetURL_UnknownCultureHasNoURL(t *testing.T) {
	t.Parallel()

	p, _ := newProvider(t)

	_, ok := p.GetURLByID(t.Context(), content.TestNestedID, ModeDefault, "de-DE", mustURL(t, "https://en.example.org/"))
	assert.False(t, ok)
}

func TestGetURL_NoDomains(t *testing.T) {
	t.Parallel()

	p, store := newProvider(t)
	require.NoError(t, store.RemoveDomain(t.Context(), 1))
	require.NoError(t, store.RemoveDomain(t.Context(), 2))

	info, ok := p.GetURLByID(t.Context(), content.TestHiddenID, ModeDefault, "", mustURL(t, "http://localhost:8080/x"))
	require.True(t, ok)
	assert.Equal(t, "/content/hidden/", info.Text)

	info, ok = p.GetURLByID(t.Context(), content.TestHiddenID, ModeAbsolute, "", mustURL(t, "http://localhost:8080/x"))
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8080/content/hidden/", info.Text)

	_, ok = p.GetURLByID(t.Context(), content.TestHiddenID, ModeAbsolute, "", nil)
	assert.False(t, ok, "absolute needs a domain or a request")

	info, ok = p.GetURLByID(t.Context(), content.TestHiddenID, ModeRelative, "en-US", nil)
	require.True(t, ok, "default culture needs no domain")
	assert.Equal(t, "/content/hidden/", info.Text)

	_, ok = p.GetURLByID(t.Context(), content.TestHiddenID, ModeRelative, "da-DK", nil)
	assert.False(t, ok)
}

func TestGetURL_PathPrefixedDomains(t *testing.T) {
	t.Parallel()

	p, store := newProvider(t)
	ctx := t.Context()
	require.NoError(t, store.AddDomain(ctx, content.Domain{ID: 1, Name: "https://example.org/en", Culture: "en-US", RootContentID: content.TestHomeID}))
	require.NoError(t, store.AddDomain(ctx, content.Domain{ID: 2, Name: "https://example.org/da", Culture: "da-DK", RootContentID: content.TestHomeID, SortOrder: 1}))
	current := mustURL(t, "https://example.org/en/content/")

	info, ok := p.GetURLByID(ctx, content.TestNestedID, ModeDefault, "en-US", current)
	require.True(t, ok)
	assert.Equal(t, "/en/content/nested/", info.Text)

	info, ok = p.GetURLByID(ctx, content.TestNestedID, ModeDefault, "da-DK", current)
	require.True(t, ok)
	assert.Equal(t, "/da/content/nested/", info.Text, "same authority stays relative")

	others := p.GetOtherURLs(ctx, content.TestNestedID, current)
	require.Len(t, others, 1)
	assert.Equal(t, "https://example.org/da/content/nested/", others[0].Text)
}

func TestGetURL_SubsiteDomain(t *testing.T) {
	t.Parallel()

	p, store := newProvider(t)
	require.NoError(t, store.AddDomain(t.Context(), content.Domain{ID: 3, Name: "content.example.org", Culture: "en-US", RootContentID: content.TestContentID}))

	info, ok := p.GetURLByID(t.Context(), content.TestHiddenID, ModeAbsolute, "", mustURL(t, "https://en.example.org/"))
	require.True(t, ok)
	assert.Equal(t, "https://content.example.org/hidden/", info.Text, "the domain root's own segment is excluded")
}

func TestGetURL_TrailingSlashDisabled(t *testing.T) {
	t.Parallel()

	p, _ := newProvider(t, WithTrailingSlash(false))
	current := mustURL(t, "https://en.example.org/")

	info, ok := p.GetURLByID(t.Context(), content.TestNestedID, ModeDefault, "", current)
	require.True(t, ok)
	assert.Equal(t, "/content/nested", info.Text)

	info, ok = p.GetURLByID(t.Context(), content.TestHomeID, ModeDefault, "", current)
	require.True(t, ok)
	assert.Equal(t, "/", info.Text)
}

func TestProvider_SetTrailingSlash(t *testing.T) {
	t.Parallel()

	p, _ := newProvider(t)
	current := mustURL(t, "https://en.example.org/")

	info, ok := p.GetURLByID(t.Context(), content.TestNestedID, ModeDefault, "", current)
	require.True(t, ok)
	assert.Equal(t, "/content/nested/", info.Text)

	p.SetTrailingSlash(false)
	info, ok = p.GetURLByID(t.Context(), content.TestNestedID, ModeDefault, "", current)
	require.True(t, ok)
	assert.Equal(t, "/content/nested", info.Text)
}

func TestGetURL_Missing(t *testing.T) {
	t.Parallel()

	p, store := newProvider(t)

	_, ok := p.GetURLByID(t.Context(), 404, ModeDefault, "", nil)
	assert.False(t, ok)
	_, ok = p.GetURL(t.Context(), nil, ModeDefault, "", nil)
	assert.False(t, ok)

	require.NoError(t, store.Unpublish(t.Context(), content.TestContentID))
	_, ok = p.GetURLByID(t.Context(), content.TestNestedID, ModeDefault, "", nil)
	assert.False(t, ok)
}

func TestGetOtherURLs(t *testing.T) {
	t.Parallel()

	p, _ := newProvider(t)

	others := p.GetOtherURLs(t.Context(), content.TestNestedID, mustURL(t, "https://en.example.org/"))
	require.Len(t, others, 1)
	assert.Equal(t, URLInfo{Text: "https://da.example.org/content/nested/", Culture: "da-DK", IsURL: true}, others[0])

	all := p.GetOtherURLs(t.Context(), content.TestNestedID, nil)
	require.Len(t, all, 2, "nothing is current without a request")
	assert.Equal(t, "https://en.example.org/content/nested/", all[0].Text)

	assert.Nil(t, p.GetOtherURLs(t.Context(), 404, nil))
}

func TestGetOtherURLs_SchemeLessDomains(t *testing.T) {
	t.Parallel()

	store := content.NewStore()
	ctx := t.Context()
	require.NoError(t, store.Save(ctx, content.Node{ID: 1, Segment: "home", Published: true}))
	require.NoError(t, store.AddDomain(ctx, content.Domain{ID: 1, Name: "example.org", RootContentID: 1}))
	p := New(store, store, nil)
	current := mustURL(t, "https://example.org/")

	assert.Empty(t, p.GetOtherURLs(ctx, 1, current), "single current domain has no alternates")

	require.NoError(t, store.AddDomain(ctx, content.Domain{ID: 2, Name: "example.com", RootContentID: 1, SortOrder: 1}))
	others := p.GetOtherURLs(ctx, 1, current)
	require.Len(t, others, 1)
	assert.Equal(t, "https://example.com/", others[0].Text)
}

func TestGetOtherURLs_AncestorChainAndDedup(t *testing.T) {
	t.Parallel()

	p, store := newProvider(t)
	ctx := t.Context()
	// A sub-site domain on content, plus a duplicate of the da domain.
	require.NoError(t, store.AddDomain(ctx, content.Domain{ID: 3, Name: "https://content.example.org/", Culture: "en-US", RootContentID: content.TestContentID}))
	require.NoError(t, store.AddDomain(ctx, content.Domain{ID: 4, Name: "https://DA.example.org", Culture: "da-DK", RootContentID: content.TestHomeID, SortOrder: 2}))

	others := p.GetOtherURLs(ctx, content.TestNestedID, mustURL(t, "https://en.example.org/"))

	var texts []string
	for _, o := range others {
		texts = append(texts, o.Text)
	}
	assert.Equal(t, []string{
		"https://content.example.org/nested/",
		"https://da.example.org/content/nested/",
	}, texts)
}

func TestRoute(t *testing.T) {
	t.Parallel()

	p, store := newProvider(t)
	hidden, _ := store.Node(content.TestHiddenID)
	about, _ := store.Node(content.TestAboutID)

	assert.Equal(t, "/content/hidden", p.Route(hidden, 1, ""))
	assert.Equal(t, "/home/content/hidden", p.Route(hidden, 0, ""))
	assert.Equal(t, "/hidden", p.Route(hidden, 2, ""))
	assert.Equal(t, "/om", p.Route(about, 1, "da-DK"))
}

func TestGetURL_Observability(t *testing.T) {
	t.Parallel()

	recorder, reader := metrics.TestingRecorder(t)
	tr, spans := tracing.TestingTracer(t)
	p, _ := newProvider(t, WithMetrics(recorder), WithTracer(tr.Tracer()))

	_, ok := p.GetURLByID(t.Context(), content.TestNestedID, ModeAbsolute, "", nil)
	require.True(t, ok)
	_, ok = p.GetURLByID(t.Context(), 404, ModeAbsolute, "", nil)
	require.False(t, ok)

	assert.Equal(t, int64(1), metrics.TestingSum(t, reader, "invisiblenodes_urls_generated_total", "mode", "absolute", "outcome", "ok"))
	assert.Equal(t, int64(1), metrics.TestingSum(t, reader, "invisiblenodes_urls_generated_total", "mode", "absolute", "outcome", "none"))
	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "invisiblenodes.url", ended[0].Name())
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{"": ModeDefault, "Relative": ModeRelative, "absolute": ModeAbsolute, "auto": ModeAuto} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if in != "" {
			assert.Equal(t, want.String(), got.String())
		}
	}
	_, err := ParseMode("canonical")
	require.Error(t, err)
}
