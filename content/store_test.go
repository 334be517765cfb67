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
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/invisiblenodes/notify"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}

	return out
}

func TestStore_TreeShape(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)

	roots := s.Roots("")
	require.Len(t, roots, 1)
	assert.Equal(t, TestHomeID, roots[0].ID)
	assert.Equal(t, 1, roots[0].Level)

	content, ok := s.Node(TestContentID)
	require.True(t, ok)
	assert.Equal(t, 2, content.Level)

	children := s.Children(content)
	require.Len(t, children, 2)
	assert.Equal(t, TestNestedID, children[0].ID)
	assert.Equal(t, TestInvisibleID, children[1].ID)

	hidden, ok := s.Node(TestHiddenID)
	require.True(t, ok)
	assert.Equal(t, 4, hidden.Level)

	parent, ok := s.Parent(hidden)
	require.True(t, ok)
	assert.Equal(t, TestInvisibleID, parent.ID)
}

func TestStore_Domains(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)
	ctx := t.Context()

	require.NoError(t, s.AddDomain(ctx, Domain{ID: 3, Name: "*en", Culture: "en-US", RootContentID: TestContentID, Wildcard: true}))

	assert.Len(t, s.Domains(false), 2)
	assert.Len(t, s.Domains(true), 3)
	assert.Len(t, s.AssignedDomains(TestHomeID, false), 2)
	assert.Empty(t, s.AssignedDomains(TestContentID, false))
	assert.Len(t, s.AssignedDomains(TestContentID, true), 1)
	assert.Equal(t, "en-US", s.DefaultCulture())

	require.NoError(t, s.RemoveDomain(ctx, 2))
	assert.Len(t, s.Domains(false), 1)
	require.ErrorIs(t, s.RemoveDomain(ctx, 2), ErrNotFound)
}

func TestStore_AddDomainValidates(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)

	require.ErrorIs(t, s.AddDomain(t.Context(), Domain{ID: 9, Name: "example.net", RootContentID: 99}), ErrNotFound)
	require.Error(t, s.AddDomain(t.Context(), Domain{ID: 9, Name: "", RootContentID: TestHomeID}))
}

func TestStore_SaveEvents(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s := TestingStore(t, WithPublisher(rec))
	assert.Empty(t, rec.kinds(), "building the store must not publish")

	require.NoError(t, s.Save(t.Context(), Node{ID: TestNestedID, Segment: "renamed", Published: true}))

	assert.Equal(t, []notify.Kind{notify.Saving, notify.Saved}, rec.kinds())

	n, ok := s.Node(TestNestedID)
	require.True(t, ok)
	assert.Equal(t, "renamed", n.Segment)
	assert.Equal(t, TestContentID, n.ParentID, "save keeps tree position")
	assert.Equal(t, 3, n.Level)
}

func TestStore_SaveRejectsUnknownParent(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)

	require.ErrorIs(t, s.Save(t.Context(), Node{ID: 50, ParentID: 99}), ErrParentNotFound)
	require.ErrorIs(t, s.Save(t.Context(), Node{ID: 0}), ErrInvalidNode)
}

func TestStore_SnapshotsAreNotMutated(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)
	before, ok := s.Node(TestContentID)
	require.True(t, ok)

	require.NoError(t, s.Save(t.Context(), Node{ID: 20, ParentID: TestContentID, Segment: "new", Published: true}))

	assert.Len(t, before.ChildIDs, 2)
	after, _ := s.Node(TestContentID)
	assert.Len(t, after.ChildIDs, 3)
}

func TestStore_PublishUnpublish(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s := TestingStore(t, WithPublisher(rec))
	ctx := t.Context()

	require.NoError(t, s.Unpublish(ctx, TestContentID))
	_, ok := s.Node(TestContentID)
	assert.False(t, ok)
	_, ok = s.Node(TestNestedID)
	assert.False(t, ok, "descendants of an unpublished node are not routable")
	_, ok = s.Get(TestContentID)
	assert.True(t, ok)

	require.NoError(t, s.Publish(ctx, TestContentID))
	_, ok = s.Node(TestNestedID)
	assert.True(t, ok)

	assert.Equal(t, []notify.Kind{
		notify.Unpublishing, notify.Unpublished,
		notify.Publishing, notify.Published,
	}, rec.kinds())
}

func TestStore_PublishCultures(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)
	ctx := t.Context()

	require.NoError(t, s.Save(ctx, Node{ID: 30, ParentID: TestHomeID, Segment: "news"}))
	_, ok := s.Node(30)
	require.False(t, ok)

	require.NoError(t, s.Publish(ctx, 30, "da-DK", "en-US"))
	n, ok := s.Node(30)
	require.True(t, ok)
	assert.True(t, n.IsPublishedIn("DA-dk"))

	require.NoError(t, s.Unpublish(ctx, 30, "da-dk"))
	n, _ = s.Node(30)
	assert.Equal(t, []string{"en-US"}, n.PublishedCultures)

	require.ErrorIs(t, s.Publish(ctx, 404), ErrNotFound)
}

func TestStore_Move(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s := TestingStore(t, WithPublisher(rec))

	require.NoError(t, s.Move(t.Context(), TestInvisibleID, TestAboutID))

	inv, ok := s.Node(TestInvisibleID)
	require.True(t, ok)
	assert.Equal(t, TestAboutID, inv.ParentID)
	assert.Equal(t, 3, inv.Level)

	hidden, _ := s.Node(TestHiddenID)
	assert.Equal(t, 4, hidden.Level)

	content, _ := s.Node(TestContentID)
	assert.Equal(t, []int{TestNestedID}, content.ChildIDs)
	about, _ := s.Node(TestAboutID)
	assert.Equal(t, []int{TestInvisibleID}, about.ChildIDs)

	assert.Equal(t, []notify.Kind{notify.Moving, notify.Moved}, rec.kinds())
}

func TestStore_MoveToRoot(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)

	require.NoError(t, s.Move(t.Context(), TestContentID, 0))

	content, _ := s.Node(TestContentID)
	assert.Equal(t, 1, content.Level)
	nested, _ := s.Node(TestNestedID)
	assert.Equal(t, 2, nested.Level)
	assert.Len(t, s.Roots(""), 2)
}

func TestStore_MoveRejectsCycle(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s := TestingStore(t, WithPublisher(rec))

	require.ErrorIs(t, s.Move(t.Context(), TestContentID, TestHiddenID), ErrCycle)
	require.ErrorIs(t, s.Move(t.Context(), TestContentID, TestContentID), ErrCycle)
	require.ErrorIs(t, s.Move(t.Context(), TestContentID, 404), ErrParentNotFound)
	assert.Empty(t, rec.kinds())
}

func TestStore_Trash(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s := TestingStore(t, WithPublisher(rec))

	require.NoError(t, s.Trash(t.Context(), TestInvisibleID))

	_, ok := s.Node(TestInvisibleID)
	assert.False(t, ok)
	_, ok = s.Get(TestHiddenID)
	assert.False(t, ok)
	content, _ := s.Node(TestContentID)
	assert.Len(t, s.Children(content), 1)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []notify.Kind{notify.MovingToRecycleBin, notify.MovedToRecycleBin}, rec.kinds())
}

func TestStore_EventsSeeOldStateBeforeMove(t *testing.T) {
	t.Parallel()

	bus := notify.NewBus()
	s := TestingStore(t, WithPublisher(bus))
	var parentAtMoving, parentAtMoved int
	bus.Subscribe(func(_ context.Context, ev notify.Event) {
		n, _ := s.Node(ev.Entities[0].ID)
		switch ev.Kind {
		case notify.Moving:
			parentAtMoving = n.ParentID
		case notify.Moved:
			parentAtMoved = n.ParentID
		}
	}, notify.Moving, notify.Moved)

	require.NoError(t, s.Move(t.Context(), TestNestedID, TestAboutID))

	assert.Equal(t, TestContentID, parentAtMoving)
	assert.Equal(t, TestAboutID, parentAtMoved)
}

func TestStore_ConcurrentReadsDuringWrites(t *testing.T) {
	t.Parallel()

	s := TestingStore(t)
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			_ = s.Save(ctx, Node{ID: 100 + i, ParentID: TestContentID, Segment: "p", Published: true})
		})
		wg.Go(func() {
			if n, ok := s.Node(TestContentID); ok {
				_ = s.Children(n)
			}
			_ = AncestorsOrSelf(s, &Node{ID: TestHiddenID, ParentID: TestInvisibleID})
		})
	}
	wg.Wait()

	content, _ := s.Node(TestContentID)
	assert.Len(t, content.ChildIDs, 22)
}
