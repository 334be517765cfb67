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

// Package notify carries content lifecycle events from a content store to
// the components that react to them, such as route cache invalidation.
//
// Handlers run synchronously on the publishing goroutine, in subscription
// order. A "before" event (Saving, Moving, ...) is published while the tree
// still reflects the old state; the matching "after" event is published once
// the change is visible.
package notify

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Kind identifies a lifecycle event.
type Kind string

// Lifecycle event kinds.
const (
	Saving             Kind = "saving"
	Saved              Kind = "saved"
	Publishing         Kind = "publishing"
	Published          Kind = "published"
	Unpublishing       Kind = "unpublishing"
	Unpublished        Kind = "unpublished"
	Moving             Kind = "moving"
	Moved              Kind = "moved"
	MovingToRecycleBin Kind = "moving_to_recycle_bin"
	MovedToRecycleBin  Kind = "moved_to_recycle_bin"
	DomainsChanged     Kind = "domains_changed"
)

// Kinds returns every event kind in lifecycle order.
func Kinds() []Kind {
	return []Kind{
		Saving, Saved,
		Publishing, Published,
		Unpublishing, Unpublished,
		Moving, Moved,
		MovingToRecycleBin, MovedToRecycleBin,
		DomainsChanged,
	}
}

// Entity describes one affected content node as it looked when the event
// was raised.
type Entity struct {
	ID                int
	Published         bool
	PublishedCultures []string
}

// Cultures returns the cultures an entity may have URLs for: each published
// culture followed by the neutral culture "". An unpublished entity with no
// published cultures yields nil.
func (e Entity) Cultures() []string {
	if !e.Published && len(e.PublishedCultures) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.PublishedCultures)+1)
	for _, c := range e.PublishedCultures {
		if c == "" || slices.ContainsFunc(out, func(s string) bool { return strings.EqualFold(s, c) }) {
			continue
		}
		out = append(out, c)
	}

	return append(out, "")
}

// Event is a single lifecycle notification.
type Event struct {
	Kind     Kind
	Entities []Entity
}

// IDs returns the ids of all entities in the event.
func (e Event) IDs() []int {
	ids := make([]int, len(e.Entities))
	for i, ent := range e.Entities {
		ids[i] = ent.ID
	}

	return ids
}

// Handler reacts to an event.
type Handler func(ctx context.Context, ev Event)

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process, synchronous event bus. It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[Kind][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]subscription)}
}

// Subscribe registers h for the given kinds. The returned function removes
// the subscription; calling it more than once is a no-op.
func (b *Bus) Subscribe(h Handler, kinds ...Kind) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	for _, k := range kinds {
		b.handlers[k] = append(b.handlers[k], subscription{id: id, handler: h})
	}
	b.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, k := range kinds {
				b.handlers[k] = slices.DeleteFunc(b.handlers[k], func(s subscription) bool { return s.id == id })
			}
		})
	}
}

// Publish delivers ev to every handler subscribed to its kind. Handlers are
// invoked without holding the bus lock, so they may subscribe or publish.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := slices.Clone(b.handlers[ev.Kind])
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(ctx, ev)
	}
}
