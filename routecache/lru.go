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

package routecache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU is a bounded cache that evicts the least recently used route once
// capacity is reached, and optionally expires routes after a TTL.
//
// Expired routes are dropped when they are read. The underlying list runs
// without its own TTL so no reaper goroutine outlives a replaced cache.
type LRU struct {
	lru *expirable.LRU[Key, lruEntry]
	ttl time.Duration
	now func() time.Time
}

type lruEntry struct {
	id      int
	expires time.Time
}

// NewLRU creates a cache holding at most capacity routes. A capacity of 0
// means unbounded; a ttl of 0 disables expiry.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	return &LRU{
		lru: expirable.NewLRU[Key, lruEntry](capacity, nil, 0),
		ttl: max(ttl, 0),
		now: time.Now,
	}
}

// GetRoute implements [Cache].
func (c *LRU) GetRoute(host, path string) (int, bool) {
	k := NewKey(host, path)
	e, ok := c.lru.Get(k)
	if !ok {
		return 0, false
	}
	if c.ttl > 0 && !c.now().Before(e.expires) {
		c.lru.Remove(k)
		return 0, false
	}

	return e.id, true
}

// StoreRoute implements [Cache].
func (c *LRU) StoreRoute(host, path string, id int) {
	e := lruEntry{id: id}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.lru.Add(NewKey(host, path), e)
}

// ClearAll implements [Cache].
func (c *LRU) ClearAll() {
	c.lru.Purge()
}

// ClearHost implements [Cache].
func (c *LRU) ClearHost(host string) {
	h := NormalizeHost(host)
	for _, k := range c.lru.Keys() {
		if k.Host == h {
			c.lru.Remove(k)
		}
	}
}

// ClearRoute implements [Cache].
func (c *LRU) ClearRoute(host, path string) {
	c.lru.Remove(NewKey(host, path))
}

// ClearPath implements [PathClearer].
func (c *LRU) ClearPath(path string) int {
	p := NormalizePath(path)
	removed := 0
	for _, k := range c.lru.Keys() {
		if k.Path == p && c.lru.Remove(k) {
			removed++
		}
	}

	return removed
}

// Len returns the number of cached routes, including expired ones not yet
// read.
func (c *LRU) Len() int {
	return c.lru.Len()
}
