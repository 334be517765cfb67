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

package routecache

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestNormalizeHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"example.org", "example.org"},
		{"Example.ORG", "example.org"},
		{"https://example.org/", "example.org"},
		{"https://user:pw@example.org/path?q=1", "example.org"},
		{"example.org:443", "example.org"},
		{"example.org:80", "example.org"},
		{"localhost:8080", "localhost:8080"},
		{"[::1]:80", "[::1]"},
		{" example.org ", "example.org"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeHost(tt.in))
		})
	}
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"/content/nested/", "content/nested"},
		{"content/nested", "content/nested"},
		{"//content///nested", "content/nested"},
		{"/Content/", "Content"},
		{"/content/?page=2", "content"},
		{"/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestKey_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Route::example.org::content/nested", NewKey("https://Example.org", "/content/nested/").String())
}

// CacheSuite runs the same contract against every implementation.
type CacheSuite struct {
	suite.Suite

	factory func() Cache
}

func (s *CacheSuite) TestStoreAndGet() {
	c := s.factory()

	c.StoreRoute("example.org", "/content/nested/", 3)

	id, ok := c.GetRoute("example.org", "/content/nested/")
	s.Require().True(ok)
	s.Equal(3, id)

	id, ok = c.GetRoute("EXAMPLE.org:443", "content/nested")
	s.Require().True(ok, "normalized key must hit")
	s.Equal(3, id)

	_, ok = c.GetRoute("example.org", "/Content/Nested/")
	s.False(ok, "paths are case sensitive")

	_, ok = c.GetRoute("example.com", "/content/nested/")
	s.False(ok)
}

func (s *CacheSuite) TestStoreReplaces() {
	c := s.factory()

	c.StoreRoute("example.org", "/a", 1)
	c.StoreRoute("example.org", "/a/", 2)

	id, ok := c.GetRoute("example.org", "a")
	s.Require().True(ok)
	s.Equal(2, id)
}

func (s *CacheSuite) TestClearRoute() {
	c := s.factory()

	c.StoreRoute("example.org", "/a", 1)
	c.StoreRoute("example.org", "/b", 2)
	c.ClearRoute("https://example.org/", "/a/")
	c.ClearRoute("example.org", "/missing")
	c.ClearRoute("missing.org", "/a")

	_, ok := c.GetRoute("example.org", "/a")
	s.False(ok)
	_, ok = c.GetRoute("example.org", "/b")
	s.True(ok)
}

func (s *CacheSuite) TestClearHost() {
	c := s.factory()

	c.StoreRoute("example.org", "/a", 1)
	c.StoreRoute("example.org", "/b", 2)
	c.StoreRoute("example.com", "/a", 3)
	c.ClearHost("Example.org")

	_, ok := c.GetRoute("example.org", "/a")
	s.False(ok)
	_, ok = c.GetRoute("example.org", "/b")
	s.False(ok)
	_, ok = c.GetRoute("example.com", "/a")
	s.True(ok)
}

func (s *CacheSuite) TestClearAll() {
	c := s.factory()

	for i := range 10 {
		c.StoreRoute(fmt.Sprintf("host%d.org", i), "/x", i)
	}
	c.ClearAll()

	for i := range 10 {
		_, ok := c.GetRoute(fmt.Sprintf("host%d.org", i), "/x")
		s.False(ok)
	}
}

func (s *CacheSuite) TestClearPath() {
	c := s.factory()
	pc, ok := c.(PathClearer)
	s.Require().True(ok)

	c.StoreRoute("example.org", "/a", 1)
	c.StoreRoute("example.com", "/a/", 2)
	c.StoreRoute("example.com", "/b", 3)

	s.Equal(2, pc.ClearPath("a"))

	_, ok = c.GetRoute("example.org", "/a")
	s.False(ok)
	_, ok = c.GetRoute("example.com", "/b")
	s.True(ok)
}

func (s *CacheSuite) TestConcurrentAccess() {
	c := s.factory()

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Go(func() {
			host := fmt.Sprintf("h%d.org", i%8)
			c.StoreRoute(host, fmt.Sprintf("/p/%d", i), i)
			c.GetRoute(host, fmt.Sprintf("/p/%d", i))
			if i%16 == 0 {
				c.ClearHost(host)
			}
		})
	}
	wg.Wait()
}

func TestMemorySuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, &CacheSuite{factory: func() Cache { return NewMemory() }})
}

func TestLRUSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, &CacheSuite{factory: func() Cache { return NewLRU(0, 0) }})
}

func TestSwitchSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, &CacheSuite{factory: func() Cache { return NewSwitch(NewMemory()) }})
}

func TestSwitch_Swap(t *testing.T) {
	t.Parallel()

	first := NewMemory()
	sw := NewSwitch(first)
	sw.StoreRoute("example.org", "/a", 1)

	old := sw.Swap(nil)
	assert.Same(t, first, old)
	assert.Equal(t, NoOp{}, sw.Current())
	_, ok := sw.GetRoute("example.org", "/a")
	assert.False(t, ok)
	assert.Equal(t, -1, sw.ClearPath("/a"))

	second := NewLRU(4, 0)
	sw.Swap(second)
	sw.StoreRoute("example.org", "/b", 2)
	id, ok := second.GetRoute("example.org", "b")
	assert.True(t, ok)
	assert.Equal(t, 2, id)
	assert.Equal(t, 1, sw.ClearPath("/b"))
}

func TestMemory_Len(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.StoreRoute("a.org", "/1", 1)
	m.StoreRoute("a.org", "/2", 2)
	m.StoreRoute("b.org", "/1", 3)
	assert.Equal(t, 3, m.Len())

	m.ClearRoute("a.org", "/1")
	m.ClearRoute("a.org", "/2")
	assert.Equal(t, 1, m.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := NewLRU(2, 0)
	c.StoreRoute("a.org", "/1", 1)
	c.StoreRoute("a.org", "/2", 2)
	_, _ = c.GetRoute("a.org", "/1")
	c.StoreRoute("a.org", "/3", 3)

	_, ok := c.GetRoute("a.org", "/2")
	assert.False(t, ok)
	_, ok = c.GetRoute("a.org", "/1")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_Expires(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU(0, time.Minute)
	c.now = func() time.Time { return clock }
	c.StoreRoute("a.org", "/1", 1)

	clock = clock.Add(30 * time.Second)
	id, ok := c.GetRoute("a.org", "/1")
	require.True(t, ok)
	assert.Equal(t, 1, id)

	clock = clock.Add(30 * time.Second)
	_, ok = c.GetRoute("a.org", "/1")
	assert.False(t, ok)
	assert.Zero(t, c.Len())

	c.StoreRoute("a.org", "/1", 2)
	id, ok = c.GetRoute("a.org", "/1")
	require.True(t, ok)
	assert.Equal(t, 2, id, "storing again restarts the ttl")
}

//nolint:paralleltest // counts goroutines
func TestLRU_NoBackgroundGoroutine(t *testing.T) {
	before := runtime.NumGoroutine()
	for range 20 {
		c, err := New(WithStrategy(StrategyTTL), WithTTL(time.Minute))
		require.NoError(t, err)
		c.StoreRoute("a.org", "/1", 1)
	}

	assert.Less(t, runtime.NumGoroutine(), before+10)
}

func TestNoOp(t *testing.T) {
	t.Parallel()

	var c Cache = NoOp{}
	c.StoreRoute("a.org", "/1", 1)
	_, ok := c.GetRoute("a.org", "/1")
	assert.False(t, ok)
	assert.NotPanics(t, func() {
		c.ClearAll()
		c.ClearHost("a.org")
		c.ClearRoute("a.org", "/1")
	})
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyMemory, false},
		{"Memory", StrategyMemory, false},
		{" LRU ", StrategyLRU, false},
		{"ttl", StrategyTTL, false},
		{"none", StrategyNone, false},
		{"disabled", StrategyNone, false},
		{"lfu", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidStrategy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrategy_Text(t *testing.T) {
	t.Parallel()

	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte("lru")))
	assert.Equal(t, StrategyLRU, s)

	text, err := StrategyTTL.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ttl", string(text))
	assert.Equal(t, "unknown(42)", Strategy(42).String())
	require.Error(t, s.UnmarshalText([]byte("bogus")))
}

func TestNew(t *testing.T) {
	t.Parallel()

	c, err := New()
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	c, err = New(WithStrategy(StrategyLRU), WithCapacity(10))
	require.NoError(t, err)
	assert.IsType(t, &LRU{}, c)

	c, err = New(WithStrategy(StrategyTTL), WithTTL(time.Minute))
	require.NoError(t, err)
	assert.IsType(t, &LRU{}, c)

	c, err = New(WithStrategy(StrategyNone))
	require.NoError(t, err)
	assert.IsType(t, NoOp{}, c)

	_, err = New(WithStrategy(StrategyTTL))
	require.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = New(WithCapacity(-1))
	require.ErrorIs(t, err, ErrInvalidStrategy)

	assert.Panics(t, func() { MustNew(WithStrategy(Strategy(99))) })
}
