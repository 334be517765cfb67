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
	"hash/maphash"
	"sync"
)

const shardCount = 16

type shard struct {
	mu    sync.RWMutex
	hosts map[string]map[string]int
}

// Memory is an unbounded in-memory cache sharded by host. Lookups only take
// a read lock on one shard, so hits on different hosts never contend.
type Memory struct {
	seed   maphash.Seed
	shards [shardCount]shard
}

// NewMemory creates an empty memory cache.
func NewMemory() *Memory {
	m := &Memory{seed: maphash.MakeSeed()}
	for i := range m.shards {
		m.shards[i].hosts = make(map[string]map[string]int)
	}

	return m
}

func (m *Memory) shardFor(host string) *shard {
	return &m.shards[maphash.String(m.seed, host)%shardCount]
}

// GetRoute implements [Cache].
func (m *Memory) GetRoute(host, path string) (int, bool) {
	k := NewKey(host, path)
	s := m.shardFor(k.Host)
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.hosts[k.Host][k.Path]

	return id, ok
}

// StoreRoute implements [Cache].
func (m *Memory) StoreRoute(host, path string, id int) {
	k := NewKey(host, path)
	s := m.shardFor(k.Host)
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, ok := s.hosts[k.Host]
	if !ok {
		paths = make(map[string]int)
		s.hosts[k.Host] = paths
	}
	paths[k.Path] = id
}

// ClearAll implements [Cache].
func (m *Memory) ClearAll() {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		s.hosts = make(map[string]map[string]int)
		s.mu.Unlock()
	}
}

// ClearHost implements [Cache].
func (m *Memory) ClearHost(host string) {
	h := NormalizeHost(host)
	s := m.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hosts, h)
}

// ClearRoute implements [Cache].
func (m *Memory) ClearRoute(host, path string) {
	k := NewKey(host, path)
	s := m.shardFor(k.Host)
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, ok := s.hosts[k.Host]
	if !ok {
		return
	}
	delete(paths, k.Path)
	if len(paths) == 0 {
		delete(s.hosts, k.Host)
	}
}

// ClearPath implements [PathClearer]. It returns the number of entries
// removed.
func (m *Memory) ClearPath(path string) int {
	p := NormalizePath(path)
	removed := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for host, paths := range s.hosts {
			if _, ok := paths[p]; ok {
				delete(paths, p)
				removed++
				if len(paths) == 0 {
					delete(s.hosts, host)
				}
			}
		}
		s.mu.Unlock()
	}

	return removed
}

// Len returns the number of cached routes.
func (m *Memory) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for _, paths := range s.hosts {
			n += len(paths)
		}
		s.mu.RUnlock()
	}

	return n
}
