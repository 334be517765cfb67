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

package invalidation

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/metrics"
	"rivaas.dev/invisiblenodes/notify"
	"rivaas.dev/invisiblenodes/routecache"
	"rivaas.dev/invisiblenodes/urlprovider"
)

const (
	// DefaultPendingTTL is how long captured move URLs are kept.
	DefaultPendingTTL = 5 * time.Minute
	// DefaultPendingCapacity bounds the number of in-flight moves.
	DefaultPendingCapacity = 1024
)

// URLSource produces the URLs a node is published under.
// *urlprovider.Provider implements it.
type URLSource interface {
	GetURLByID(ctx context.Context, id int, mode urlprovider.Mode, culture string, current *url.URL) (urlprovider.URLInfo, bool)
	GetOtherURLs(ctx context.Context, id int, current *url.URL) []urlprovider.URLInfo
}

// Option configures a [Coordinator].
type Option func(*Coordinator)

// WithTree enables descendant invalidation. Without a tree only the
// entities named by an event are invalidated.
func WithTree(t content.Tree) Option {
	return func(c *Coordinator) {
		c.tree = t
	}
}

// WithPendingTTL sets how long URLs captured on Moving wait for Moved.
func WithPendingTTL(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.pendingTTL = d
		}
	}
}

// WithPendingCapacity bounds the pending move map. The oldest entry is
// dropped when it is full.
func WithPendingCapacity(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.pendingCap = n
		}
	}
}

// WithLogger sets the logger for eviction records. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records evictions on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Coordinator) {
		c.metrics = r
	}
}

// pendingKey identifies captured keys by entity and by the event that
// consumes them.
type pendingKey struct {
	id    int
	after notify.Kind
}

type pendingMove struct {
	keys []routecache.Key
	at   time.Time
}

// Coordinator evicts route cache entries on content lifecycle events.
// It is safe for concurrent use.
type Coordinator struct {
	cache   routecache.Cache
	urls    URLSource
	tree    content.Tree
	logger  *slog.Logger
	metrics *metrics.Recorder

	mu         sync.Mutex
	pending    map[pendingKey]pendingMove
	pendingTTL time.Duration
	pendingCap int
	now        func() time.Time
}

// New creates a Coordinator evicting from cache the URLs produced by urls.
func New(cache routecache.Cache, urls URLSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		cache:      cache,
		urls:       urls,
		logger:     slog.New(slog.DiscardHandler),
		pending:    make(map[pendingKey]pendingMove),
		pendingTTL: DefaultPendingTTL,
		pendingCap: DefaultPendingCapacity,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Kinds returns the event kinds the coordinator reacts to.
func Kinds() []notify.Kind {
	return []notify.Kind{
		notify.Saving,
		notify.Saved,
		notify.Published,
		notify.Unpublishing,
		notify.Moving,
		notify.Moved,
		notify.MovingToRecycleBin,
		notify.MovedToRecycleBin,
		notify.DomainsChanged,
	}
}

// Register subscribes the coordinator to bus.
func (c *Coordinator) Register(bus *notify.Bus) (unsubscribe func()) {
	return bus.Subscribe(c.Handle, Kinds()...)
}

// Keys returns the cache keys ev invalidates. A key with an empty Host
// stands for its path on every host; it is produced when a node has no
// absolute URL.
//
// Saving and Moving events record their keys in the pending map and the
// matching Saved and Moved events consume them, so a route cached from the
// old tree between the two events is evicted again. Keys has no other side
// effect.
func (c *Coordinator) Keys(ctx context.Context, ev notify.Event) []routecache.Key {
	switch ev.Kind {
	case notify.Published, notify.Unpublishing:
		var keys []routecache.Key
		for _, e := range ev.Entities {
			keys = appendUnique(keys, c.entityKeys(ctx, e)...)
		}
		return keys
	case notify.Saving, notify.Moving, notify.MovingToRecycleBin:
		after := completion[ev.Kind]
		var keys []routecache.Key
		for _, e := range ev.Entities {
			captured := c.entityKeys(ctx, e)
			if len(captured) > 0 {
				c.remember(pendingKey{id: e.ID, after: after}, captured)
			}
			keys = appendUnique(keys, captured...)
		}
		return keys
	case notify.Saved:
		var keys []routecache.Key
		for _, e := range ev.Entities {
			keys = appendUnique(keys, c.take(pendingKey{id: e.ID, after: ev.Kind})...)
			keys = appendUnique(keys, c.entityKeys(ctx, e)...)
		}
		return keys
	case notify.Moved, notify.MovedToRecycleBin:
		var keys []routecache.Key
		for _, e := range ev.Entities {
			keys = appendUnique(keys, c.take(pendingKey{id: e.ID, after: ev.Kind})...)
		}
		return keys
	default:
		return nil
	}
}

// Handle evicts everything ev invalidates.
func (c *Coordinator) Handle(ctx context.Context, ev notify.Event) {
	if ev.Kind == notify.DomainsChanged {
		c.cache.ClearAll()
		c.metrics.RecordEviction(ctx, string(ev.Kind), 1)
		c.logger.InfoContext(ctx, "route cache cleared", "reason", ev.Kind)
		return
	}

	keys := c.Keys(ctx, ev)
	if len(keys) == 0 {
		return
	}
	c.evict(ctx, keys)
	c.metrics.RecordEviction(ctx, string(ev.Kind), len(keys))
	c.logger.DebugContext(ctx, "route cache invalidated",
		"event", ev.Kind,
		"ids", ev.IDs(),
		"keys", len(keys),
	)
}

func (c *Coordinator) evict(ctx context.Context, keys []routecache.Key) {
	clearer, canClearPath := c.cache.(routecache.PathClearer)
	for _, k := range keys {
		if k.Host != "" {
			c.cache.ClearRoute(k.Host, k.Path)
			continue
		}
		if canClearPath {
			clearer.ClearPath(k.Path)
			continue
		}
		c.logger.DebugContext(ctx, "cache cannot clear by path, clearing all", "path", k.Path)
		c.cache.ClearAll()
		return
	}
}

// entityKeys collects the keys of e and its published descendants.
func (c *Coordinator) entityKeys(ctx context.Context, e notify.Entity) []routecache.Key {
	cultures := e.Cultures()
	if len(cultures) == 0 {
		return nil
	}
	keys := c.nodeKeys(ctx, e.ID, cultures)
	if c.tree == nil {
		return keys
	}
	n, ok := c.tree.Node(e.ID)
	if !ok {
		return keys
	}
	for _, d := range content.Descendants(c.tree, n) {
		dc := notify.Entity{ID: d.ID, Published: d.Published, PublishedCultures: d.PublishedCultures}.Cultures()
		keys = appendUnique(keys, c.nodeKeys(ctx, d.ID, dc)...)
	}

	return keys
}

func (c *Coordinator) nodeKeys(ctx context.Context, id int, cultures []string) []routecache.Key {
	var keys []routecache.Key
	for _, culture := range cultures {
		if info, ok := c.urls.GetURLByID(ctx, id, urlprovider.ModeAbsolute, culture, nil); ok {
			keys = appendUnique(keys, keyOf(info.Text))
			continue
		}
		if info, ok := c.urls.GetURLByID(ctx, id, urlprovider.ModeRelative, culture, nil); ok {
			keys = appendUnique(keys, keyOf(info.Text))
		}
	}
	for _, info := range c.urls.GetOtherURLs(ctx, id, nil) {
		keys = appendUnique(keys, keyOf(info.Text))
	}

	return keys
}

// remember stores keys captured before a move, pruning expired entries.
var completion = map[notify.Kind]notify.Kind{
	notify.Saving:             notify.Saved,
	notify.Moving:             notify.Moved,
	notify.MovingToRecycleBin: notify.MovedToRecycleBin,
}

func (c *Coordinator) remember(id pendingKey, keys []routecache.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, p := range c.pending {
		if now.Sub(p.at) > c.pendingTTL {
			delete(c.pending, k)
		}
	}
	for _, exists := c.pending[id]; !exists && len(c.pending) >= c.pendingCap; {
		var (
			oldest   pendingKey
			oldestAt time.Time
		)
		for k, p := range c.pending {
			if oldestAt.IsZero() || p.at.Before(oldestAt) {
				oldest, oldestAt = k, p.at
			}
		}
		delete(c.pending, oldest)
		c.logger.Warn("pending map full, dropping oldest entry", "id", oldest.id, "event", oldest.after)
	}
	c.pending[id] = pendingMove{keys: keys, at: now}
}

// take removes and returns the keys captured for id.
func (c *Coordinator) take(id pendingKey) []routecache.Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	if c.now().Sub(p.at) > c.pendingTTL {
		return nil
	}

	return p.keys
}

// SetPendingLimits changes the pending move TTL and capacity. Non-positive
// values keep the current setting. Entries over the new capacity are
// dropped on the next move.
func (c *Coordinator) SetPendingLimits(ttl time.Duration, capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl > 0 {
		c.pendingTTL = ttl
	}
	if capacity > 0 {
		c.pendingCap = capacity
	}
}

// Pending returns the number of moves waiting for completion.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

func keyOf(text string) routecache.Key {
	u, err := url.Parse(text)
	if err != nil {
		return routecache.NewKey("", text)
	}

	return routecache.NewKey(u.Host, u.Path)
}

func appendUnique(keys []routecache.Key, more ...routecache.Key) []routecache.Key {
	for _, k := range more {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}

	return keys
}
