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

package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"rivaas.dev/invisiblenodes/notify"
)

// Store errors.
var (
	// ErrNotFound is returned when a node or domain id is unknown.
	ErrNotFound = errors.New("content: not found")
	// ErrParentNotFound is returned when a node is placed under a missing parent.
	ErrParentNotFound = errors.New("content: parent not found")
	// ErrInvalidNode is returned for nodes with a non-positive id.
	ErrInvalidNode = errors.New("content: invalid node")
	// ErrCycle is returned when a move would place a node below itself.
	ErrCycle = errors.New("content: move would create a cycle")
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPublisher sets the publisher that receives lifecycle events.
func WithPublisher(p notify.Publisher) StoreOption {
	return func(s *Store) {
		s.events = p
	}
}

// WithDefaultCulture sets the culture used when none is requested.
func WithDefaultCulture(culture string) StoreOption {
	return func(s *Store) {
		s.defaultCulture = culture
	}
}

// WithLogger sets the logger for store operations.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is an in-memory content tree and domain registry. It implements
// [Tree] and [DomainRegistry].
//
// Readers never see partially applied changes: every mutation replaces node
// snapshots instead of editing them. Writers are serialized, and lifecycle
// events are published outside the read lock, so event handlers may read
// the tree. Handlers must not mutate the store.
type Store struct {
	writeMu sync.Mutex

	mu      sync.RWMutex
	nodes   map[int]*Node
	roots   []int
	trashed map[int]struct{}
	domains []Domain

	defaultCulture string
	events         notify.Publisher
	logger         *slog.Logger
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		nodes:   make(map[int]*Node),
		trashed: make(map[int]struct{}),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetPublisher replaces the event publisher. Passing nil silences events.
func (s *Store) SetPublisher(p notify.Publisher) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.events = p
}

// DefaultCulture implements [DomainRegistry].
func (s *Store) DefaultCulture() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.defaultCulture
}

// SetDefaultCulture changes the default culture.
func (s *Store) SetDefaultCulture(culture string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultCulture = culture
}

// Roots implements [Tree].
func (s *Store) Roots(culture string) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Node, 0, len(s.roots))
	for _, id := range s.roots {
		n := s.nodes[id]
		if s.isLive(n) && n.IsPublishedIn(culture) {
			out = append(out, n)
		}
	}

	return out
}

// Node implements [Tree].
func (s *Store) Node(id int) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok || !s.routable(n) {
		return nil, false
	}

	return n, true
}

// Get returns a node regardless of its publish state. Trashed nodes are
// not returned.
func (s *Store) Get(id int) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	if _, gone := s.trashed[id]; gone {
		return nil, false
	}

	return n, true
}

// Children implements [Tree].
func (s *Store) Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.nodes[n.ID]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(cur.ChildIDs))
	for _, id := range cur.ChildIDs {
		if c := s.nodes[id]; s.isLive(c) {
			out = append(out, c)
		}
	}

	return out
}

// Parent implements [Tree].
func (s *Store) Parent(n *Node) (*Node, bool) {
	if n == nil || n.ParentID == 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.nodes[n.ParentID]
	if !ok {
		return nil, false
	}
	if _, gone := s.trashed[p.ID]; gone {
		return nil, false
	}

	return p, true
}

// Len returns the number of nodes outside the recycle bin.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes) - len(s.trashed)
}

// Domains implements [DomainRegistry].
func (s *Store) Domains(includeWildcards bool) []Domain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Domain, 0, len(s.domains))
	for _, d := range s.domains {
		if d.Wildcard && !includeWildcards {
			continue
		}
		out = append(out, d)
	}

	return out
}

// AssignedDomains implements [DomainRegistry].
func (s *Store) AssignedDomains(nodeID int, includeWildcards bool) []Domain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Domain
	for _, d := range s.domains {
		if d.RootContentID != nodeID || (d.Wildcard && !includeWildcards) {
			continue
		}
		out = append(out, d)
	}

	return out
}

// Save inserts a new node or updates an existing one. For an existing node
// only the content fields change; ParentID, ChildIDs and Level are kept and
// must be changed through [Store.Move]. Saving is published with the node as
// it was before the change.
func (s *Store) Save(ctx context.Context, n Node) error {
	if n.ID <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidNode, n.ID)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	old, exists := s.nodes[n.ID]
	var parent *Node
	if !exists && n.ParentID != 0 {
		parent = s.nodes[n.ParentID]
		if _, gone := s.trashed[n.ParentID]; parent == nil || gone {
			s.mu.RUnlock()
			return fmt.Errorf("%w: node %d parent %d", ErrParentNotFound, n.ID, n.ParentID)
		}
	}
	s.mu.RUnlock()

	before := entityOf(&n)
	if exists {
		before = entityOf(old)
	}
	s.publish(ctx, notify.Saving, before)

	next := n.clone()
	s.mu.Lock()
	if exists {
		next.ParentID = old.ParentID
		next.ChildIDs = old.ChildIDs
		next.Level = old.Level
	} else {
		next.ChildIDs = nil
		next.Level = 1
		if parent != nil {
			next.Level = parent.Level + 1
			p := parent.clone()
			p.ChildIDs = append(p.ChildIDs, next.ID)
			s.nodes[p.ID] = p
		} else {
			s.roots = append(s.roots, next.ID)
		}
	}
	s.nodes[next.ID] = next
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "content saved", "id", next.ID, "new", !exists)
	s.publish(ctx, notify.Saved, entityOf(next))

	return nil
}

// Publish marks a node published. With no cultures the node is published
// culture-neutrally; otherwise the cultures are added to its published set.
func (s *Store) Publish(ctx context.Context, id int, cultures ...string) error {
	return s.update(ctx, id, notify.Publishing, notify.Published, true, func(n *Node) {
		if len(cultures) == 0 {
			n.Published = true
			return
		}
		for _, c := range cultures {
			if !slices.ContainsFunc(n.PublishedCultures, func(p string) bool { return SameCulture(p, c) }) {
				n.PublishedCultures = append(n.PublishedCultures, c)
			}
		}
	})
}

// Unpublish withdraws a node. With no cultures the node is withdrawn
// entirely; otherwise only the given cultures are removed. Both events
// carry the node as it was before the change.
func (s *Store) Unpublish(ctx context.Context, id int, cultures ...string) error {
	return s.update(ctx, id, notify.Unpublishing, notify.Unpublished, false, func(n *Node) {
		if len(cultures) == 0 {
			n.Published = false
			n.PublishedCultures = nil
			return
		}
		n.PublishedCultures = slices.DeleteFunc(n.PublishedCultures, func(p string) bool {
			return slices.ContainsFunc(cultures, func(c string) bool { return SameCulture(p, c) })
		})
	})
}

func (s *Store) update(ctx context.Context, id int, before, after notify.Kind, afterUsesNew bool, mutate func(*Node)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	old, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	s.publish(ctx, before, entityOf(old))

	next := old.clone()
	mutate(next)
	s.mu.Lock()
	s.nodes[id] = next
	s.mu.Unlock()

	if afterUsesNew {
		s.publish(ctx, after, entityOf(next))
	} else {
		s.publish(ctx, after, entityOf(old))
	}

	return nil
}

// Move places a node, with its subtree, as the last child of parentID. A
// parentID of 0 makes it a root.
func (s *Store) Move(ctx context.Context, id, parentID int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	var parent *Node
	if parentID != 0 {
		if parent, ok = s.Get(parentID); !ok {
			return fmt.Errorf("%w: node %d parent %d", ErrParentNotFound, id, parentID)
		}
		if s.isSelfOrDescendant(id, parentID) {
			return fmt.Errorf("%w: node %d under %d", ErrCycle, id, parentID)
		}
	}

	s.publish(ctx, notify.Moving, entityOf(n))

	s.mu.Lock()
	s.detach(n)
	next := n.clone()
	next.ParentID = parentID
	if parent != nil {
		p := s.nodes[parent.ID].clone()
		p.ChildIDs = append(p.ChildIDs, id)
		s.nodes[p.ID] = p
		s.relevel(next, p.Level+1)
	} else {
		s.roots = append(s.roots, id)
		s.relevel(next, 1)
	}
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "content moved", "id", id, "parent", parentID)
	s.publish(ctx, notify.Moved, entityOf(next))

	return nil
}

// Trash moves a node and its subtree to the recycle bin.
func (s *Store) Trash(ctx context.Context, id int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	s.publish(ctx, notify.MovingToRecycleBin, entityOf(n))

	s.mu.Lock()
	s.detach(n)
	var mark func(int)
	mark = func(nid int) {
		s.trashed[nid] = struct{}{}
		for _, c := range s.nodes[nid].ChildIDs {
			mark(c)
		}
	}
	mark(id)
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "content trashed", "id", id)
	s.publish(ctx, notify.MovedToRecycleBin, entityOf(n))

	return nil
}

// AddDomain adds or replaces a domain assignment.
func (s *Store) AddDomain(ctx context.Context, d Domain) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, ok := s.Get(d.RootContentID); !ok {
		return fmt.Errorf("%w: domain %q root %d", ErrNotFound, d.Name, d.RootContentID)
	}
	if !d.Wildcard {
		if _, err := d.URI(""); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.domains = slices.DeleteFunc(s.domains, func(e Domain) bool { return e.ID == d.ID })
	s.domains = append(s.domains, d)
	slices.SortStableFunc(s.domains, func(a, b Domain) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		return a.ID - b.ID
	})
	s.mu.Unlock()

	s.publish(ctx, notify.DomainsChanged, notify.Entity{ID: d.RootContentID, Published: true})

	return nil
}

// RemoveDomain removes a domain assignment.
func (s *Store) RemoveDomain(ctx context.Context, id int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	idx := slices.IndexFunc(s.domains, func(d Domain) bool { return d.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: domain %d", ErrNotFound, id)
	}
	removed := s.domains[idx]
	s.domains = slices.Delete(s.domains, idx, idx+1)
	s.mu.Unlock()

	s.publish(ctx, notify.DomainsChanged, notify.Entity{ID: removed.RootContentID, Published: true})

	return nil
}

func (s *Store) publish(ctx context.Context, kind notify.Kind, e notify.Entity) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, notify.Event{Kind: kind, Entities: []notify.Entity{e}})
}

// detach removes n from its parent's children or the root list.
// Callers hold s.mu.
func (s *Store) detach(n *Node) {
	remove := func(ids []int) []int {
		return slices.DeleteFunc(slices.Clone(ids), func(c int) bool { return c == n.ID })
	}
	if n.ParentID == 0 {
		s.roots = remove(s.roots)
		return
	}
	if p, ok := s.nodes[n.ParentID]; ok {
		cp := p.clone()
		cp.ChildIDs = remove(cp.ChildIDs)
		s.nodes[cp.ID] = cp
	}
}

// relevel stores n at level and rewrites the levels of its subtree.
// Callers hold s.mu.
func (s *Store) relevel(n *Node, level int) {
	n.Level = level
	s.nodes[n.ID] = n
	for _, cid := range n.ChildIDs {
		if c, ok := s.nodes[cid]; ok {
			s.relevel(c.clone(), level+1)
		}
	}
}

func (s *Store) isSelfOrDescendant(ancestor, id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for cur := id; cur != 0; {
		if cur == ancestor {
			return true
		}
		n, ok := s.nodes[cur]
		if !ok {
			return false
		}
		cur = n.ParentID
	}

	return false
}

// isLive reports whether n is published and outside the recycle bin.
func (s *Store) isLive(n *Node) bool {
	if n == nil || !n.IsPublished() {
		return false
	}
	_, gone := s.trashed[n.ID]

	return !gone
}

// routable reports whether n and all its ancestors are live.
func (s *Store) routable(n *Node) bool {
	for cur := n; cur != nil; {
		if !s.isLive(cur) {
			return false
		}
		if cur.ParentID == 0 {
			return true
		}
		cur = s.nodes[cur.ParentID]
	}

	return false
}

func entityOf(n *Node) notify.Entity {
	return notify.Entity{
		ID:                n.ID,
		Published:         n.Published,
		PublishedCultures: slices.Clone(n.PublishedCultures),
	}
}
