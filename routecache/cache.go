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

// Package routecache memoizes resolved routes: (host, path) -> content id.
//
// Keys are normalized on every call, so the finder, which keys by the
// incoming request, and the invalidation coordinator, which keys by
// generated URLs, always address the same entry:
//
//   - the host is the lower-cased authority with any scheme, user info,
//     path and default port (:80, :443) removed;
//   - the path keeps its case, with empty segments dropped and no leading
//     or trailing slash ("/Content//Nested/" -> "Content/Nested").
//
// All implementations are safe for concurrent use. Clearing an absent key
// is a no-op.
package routecache

import (
	"strings"

	"rivaas.dev/invisiblenodes/content"
)

// Cache stores resolved routes.
type Cache interface {
	// GetRoute returns the content id cached for host and path.
	GetRoute(host, path string) (int, bool)
	// StoreRoute caches id for host and path, replacing any previous value.
	StoreRoute(host, path string, id int)
	// ClearAll removes every entry.
	ClearAll()
	// ClearHost removes every entry of host.
	ClearHost(host string)
	// ClearRoute removes a single entry.
	ClearRoute(host, path string)
}

// PathClearer is implemented by caches that can clear a path across every
// host at once.
type PathClearer interface {
	ClearPath(path string) int
}

// Key is a normalized cache key.
type Key struct {
	Host string
	Path string
}

// NewKey normalizes host and path into a key.
func NewKey(host, path string) Key {
	return Key{Host: NormalizeHost(host), Path: NormalizePath(path)}
}

// String renders the key as "Route::host::path".
func (k Key) String() string {
	return "Route::" + k.Host + "::" + k.Path
}

// NormalizeHost reduces host to a lower-cased authority. It accepts bare
// hosts ("Example.org:443") as well as absolute URLs.
func NormalizeHost(host string) string {
	h := strings.TrimSpace(host)
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndexByte(h, '@'); i >= 0 {
		h = h[i+1:]
	}
	h = strings.ToLower(h)
	for _, port := range []string{":80", ":443"} {
		if strings.HasSuffix(h, port) {
			return strings.TrimSuffix(h, port)
		}
	}

	return h
}

// NormalizePath trims slashes and collapses empty segments. The query and
// fragment, if present, are dropped.
func NormalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	return strings.Join(content.SplitPath(path), "/")
}
