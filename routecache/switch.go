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

import "sync/atomic"

// Switch is a Cache whose implementation can be replaced at runtime, for
// example when settings turn caching off. Holders of the Switch keep
// working across replacements.
type Switch struct {
	cur atomic.Pointer[holder]
}

type holder struct{ Cache }

// NewSwitch creates a Switch serving c. A nil c serves [NoOp].
func NewSwitch(c Cache) *Switch {
	s := &Switch{}
	s.Swap(c)

	return s
}

// Swap installs c and returns the previous cache. Entries of the previous
// cache are not carried over.
func (s *Switch) Swap(c Cache) Cache {
	if c == nil {
		c = NoOp{}
	}
	if old := s.cur.Swap(&holder{Cache: c}); old != nil {
		return old.Cache
	}

	return nil
}

// Current returns the cache in use.
func (s *Switch) Current() Cache {
	return s.cur.Load().Cache
}

func (s *Switch) GetRoute(host, path string) (int, bool) { return s.Current().GetRoute(host, path) }
func (s *Switch) StoreRoute(host, path string, id int)   { s.Current().StoreRoute(host, path, id) }
func (s *Switch) ClearAll()                              { s.Current().ClearAll() }
func (s *Switch) ClearHost(host string)                  { s.Current().ClearHost(host) }
func (s *Switch) ClearRoute(host, path string)           { s.Current().ClearRoute(host, path) }

// ClearPath clears path on every host. Caches that cannot do that are
// cleared entirely, and -1 is returned.
func (s *Switch) ClearPath(path string) int {
	c := s.Current()
	if pc, ok := c.(PathClearer); ok {
		return pc.ClearPath(path)
	}
	c.ClearAll()

	return -1
}
