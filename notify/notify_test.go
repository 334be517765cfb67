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

package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_Cultures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		entity Entity
		want   []string
	}{
		{name: "unpublished", entity: Entity{ID: 1}, want: nil},
		{name: "invariant", entity: Entity{ID: 1, Published: true}, want: []string{""}},
		{
			name:   "variant",
			entity: Entity{ID: 1, PublishedCultures: []string{"en-US", "da-DK"}},
			want:   []string{"en-US", "da-DK", ""},
		},
		{
			name:   "duplicates differing in case",
			entity: Entity{ID: 1, PublishedCultures: []string{"en-US", "en-us", ""}},
			want:   []string{"en-US", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.entity.Cultures())
		})
	}
}

func TestBus_PublishRoutesByKind(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var got []Kind
	bus.Subscribe(func(_ context.Context, ev Event) { got = append(got, ev.Kind) }, Saving, Moved)

	bus.Publish(t.Context(), Event{Kind: Saving})
	bus.Publish(t.Context(), Event{Kind: Published})
	bus.Publish(t.Context(), Event{Kind: Moved})

	assert.Equal(t, []Kind{Saving, Moved}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(func(context.Context, Event) { calls++ }, Saved)

	bus.Publish(t.Context(), Event{Kind: Saved})
	unsubscribe()
	unsubscribe()
	bus.Publish(t.Context(), Event{Kind: Saved})

	assert.Equal(t, 1, calls)
}

func TestBus_HandlerMayPublish(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var seen []Kind
	bus.Subscribe(func(ctx context.Context, ev Event) {
		seen = append(seen, ev.Kind)
		bus.Publish(ctx, Event{Kind: Moved, Entities: ev.Entities})
	}, Moving)
	bus.Subscribe(func(_ context.Context, ev Event) { seen = append(seen, ev.Kind) }, Moved)

	bus.Publish(t.Context(), Event{Kind: Moving, Entities: []Entity{{ID: 7}}})

	assert.Equal(t, []Kind{Moving, Moved}, seen)
}

func TestBus_NilIsNoOp(t *testing.T) {
	t.Parallel()

	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(t.Context(), Event{Kind: Saved}) })
}

func TestBus_ConcurrentPublish(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var (
		mu    sync.Mutex
		count int
	)
	bus.Subscribe(func(context.Context, Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}, Published)

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			bus.Publish(t.Context(), Event{Kind: Published})
		})
	}
	wg.Wait()

	require.Equal(t, 50, count)
}

func TestEvent_IDs(t *testing.T) {
	t.Parallel()

	ev := Event{Kind: Saved, Entities: []Entity{{ID: 3}, {ID: 9}}}
	assert.Equal(t, []int{3, 9}, ev.IDs())
}
