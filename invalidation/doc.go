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

// Package invalidation keeps the route cache consistent with the content
// tree.
//
// A [Coordinator] subscribes to content lifecycle events on a
// [notify.Bus]. For every affected node it computes the URLs the node was
// reachable under, across every published culture and every assigned
// domain, and evicts the matching route cache entries. Descendants are
// included because their routes share the changed prefix.
//
// Saves and moves are handled in two steps: the URLs are captured and
// evicted while the node is still in its old state (Saving, Moving) and
// evicted again once the change completed (Saved, Moved), so a route a
// concurrent request cached in between does not survive. Saved also evicts
// the node's new URLs. Captured URLs wait in a pending map bounded by
// capacity and age, so a "before" event without its match cannot leak
// memory.
//
//	coord := invalidation.New(cache, provider,
//	    invalidation.WithTree(store),
//	    invalidation.WithLogger(logger),
//	)
//	unsubscribe := coord.Register(bus)
//	defer unsubscribe()
package invalidation
