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

package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/invisiblenodes/config/codec"
)

func TestNode_URLSegment(t *testing.T) {
	t.Parallel()

	n := &Node{Segment: "about", Segments: map[string]string{"da-DK": "om"}}

	assert.Equal(t, "about", n.URLSegment(""))
	assert.Equal(t, "om", n.URLSegment("da-DK"))
	assert.Equal(t, "om", n.URLSegment("da-dk"))
	assert.Equal(t, "about", n.URLSegment("de-DE"))

	var nilNode *Node
	assert.Empty(t, nilNode.URLSegment("en-US"))
}

func TestNode_IsPublishedIn(t *testing.T) {
	t.Parallel()

	invariant := &Node{Published: true}
	assert.True(t, invariant.IsPublishedIn(""))
	assert.True(t, invariant.IsPublishedIn("en-US"))

	variant := &Node{PublishedCultures: []string{"en-US"}}
	assert.True(t, variant.IsPublishedIn(""))
	assert.True(t, variant.IsPublishedIn("EN-us"))
	assert.False(t, variant.IsPublishedIn("da-DK"))

	assert.False(t, (&Node{}).IsPublishedIn(""))
}

func TestSplitPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"content", "nested"}, SplitPath("/content//nested/"))
	assert.Empty(t, SplitPath("/"))
	assert.Empty(t, SplitPath(""))
}

func TestDomain_URI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		domain  Domain
		want    string
		wantErr bool
	}{
		{name: "absolute", domain: Domain{Name: "https://EN.example.org/"}, want: "https://en.example.org"},
		{name: "scheme-less", domain: Domain{Name: "example.com"}, want: "https://example.com"},
		{name: "with path", domain: Domain{Name: "https://example.org/en/"}, want: "https://example.org/en"},
		{name: "with port", domain: Domain{Name: "http://localhost:8080"}, want: "http://localhost:8080"},
		{name: "empty", domain: Domain{Name: " "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u, err := tt.domain.URI("")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestDomain_URIDefaultScheme(t *testing.T) {
	t.Parallel()

	u, err := Domain{Name: "example.org/da"}.URI("http")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "/da", u.Path)
}

func TestAncestorsOrSelf(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)
	hidden, ok := s.Node(TestHiddenID)
	require.True(t, ok)

	chain := AncestorsOrSelf(s, hidden)
	ids := make([]int, len(chain))
	for i, n := range chain {
		ids[i] = n.ID
	}

	assert.Equal(t, []int{TestHiddenID, TestInvisibleID, TestContentID, TestHomeID}, ids)
	assert.Nil(t, AncestorsOrSelf(s, nil))
}

func TestDescendants(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)
	content, _ := s.Node(TestContentID)

	var ids []int
	for _, n := range Descendants(s, content) {
		ids = append(ids, n.ID)
	}

	assert.Equal(t, []int{TestNestedID, TestInvisibleID, TestHiddenID}, ids)
}

const yamlTree = `
defaultCulture: da-DK
nodes:
  - id: 1
    name: Forside
    segment: home
    children:
      - id: 2
        segment: artikler
        contentType: folder
        cultures: [da-DK]
      - id: 3
        segment: kladde
        published: false
domains:
  - id: 1
    name: example.dk
    culture: da-DK
    root: 1
`

func TestDecode_YAML(t *testing.T) {
	t.Parallel()

	s, err := Decode(t.Context(), []byte(yamlTree), codec.TypeYAML)
	require.NoError(t, err)

	assert.Equal(t, "da-DK", s.DefaultCulture())
	assert.Equal(t, 3, s.Len())

	n, ok := s.Node(2)
	require.True(t, ok)
	assert.Equal(t, "folder", n.ContentType)
	assert.False(t, n.Published)
	assert.Equal(t, []string{"da-DK"}, n.PublishedCultures)

	_, ok = s.Node(3)
	assert.False(t, ok, "explicitly unpublished node is not routable")

	domains := s.Domains(false)
	require.Len(t, domains, 1)
	assert.Equal(t, 1, domains[0].RootContentID)
}

func TestDecode_JSON(t *testing.T) {
	t.Parallel()

	data := []byte(`{"nodes":[{"id":7,"segment":"root","children":[{"id":8,"segment":"leaf"}]}]}`)

	s, err := Decode(t.Context(), data, codec.TypeJSON)
	require.NoError(t, err)

	leaf, ok := s.Node(8)
	require.True(t, ok)
	assert.Equal(t, 2, leaf.Level)
}

func TestDecode_MsgPack(t *testing.T) {
	t.Parallel()

	data, err := codec.MsgPackCodec{}.Encode(map[string]any{
		"defaultCulture": "en-US",
		"nodes": []any{map[string]any{
			"id":      1,
			"segment": "home",
			"children": []any{
				map[string]any{"id": 300, "segment": "about"},
			},
		}},
	})
	require.NoError(t, err)

	s, err := Decode(t.Context(), data, codec.TypeMsgPack)
	require.NoError(t, err)

	assert.Equal(t, "en-US", s.DefaultCulture())
	about, ok := s.Node(300)
	require.True(t, ok)
	assert.Equal(t, "about", about.URLSegment(""))
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	_, err := Decode(t.Context(), []byte("nodes: [ {"), codec.TypeYAML)
	require.Error(t, err)

	_, err = Decode(t.Context(), []byte(`{}`), codec.Type("xml"))
	require.Error(t, err)

	_, err = Decode(t.Context(), []byte(`{"domains":[{"id":1,"name":"x.org","root":5}]}`), codec.TypeJSON)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/tree.yaml"
	require.NoError(t, writeFile(path, yamlTree))

	s, err := LoadFile(t.Context(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	_, err = LoadFile(t.Context(), t.TempDir()+"/missing.yaml")
	require.Error(t, err)

	_, err = LoadFile(t.Context(), "tree.unknown")
	require.Error(t, err)
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/tree.yaml"
	require.NoError(t, writeFile(path, yamlTree))

	f, err := ReadFile(t.Context(), path)
	require.NoError(t, err)
	assert.Equal(t, "da-DK", f.DefaultCulture)
	require.Len(t, f.Nodes, 1)
	assert.Len(t, f.Nodes[0].Children, 2)
	require.NotNil(t, f.Nodes[0].Children[1].Published)
	assert.False(t, *f.Nodes[0].Children[1].Published)
	assert.Equal(t, []DomainSpec{{ID: 1, Name: "example.dk", Culture: "da-DK", Root: 1}}, f.Domains)
}
