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
	"testing"
)

// Ids of the nodes in the store built by [TestingStore].
const (
	TestHomeID      = 1
	TestContentID   = 2
	TestNestedID    = 3
	TestInvisibleID = 4
	TestHiddenID    = 5
	TestAboutID     = 6
)

// TestInvisibleType is the content type of the invisible node in the
// store built by [TestingStore].
const TestInvisibleType = "invisibleNode"

// TestingFile returns the description of a small site:
//
//	home (1)                     en.example.org, da.example.org
//	├── content (2)
//	│   ├── nested (3)
//	│   └── invisible (4)        content type invisibleNode
//	│       └── hidden (5)
//	└── about (6)                "om" in da-DK
func TestingFile() File {
	return File{
		DefaultCulture: "en-US",
		Nodes: []NodeSpec{{
			ID: TestHomeID, Name: "Home", Segment: "home", ContentType: "homePage",
			Children: []NodeSpec{
				{
					ID: TestContentID, Name: "Content", Segment: "content", ContentType: "contentPage",
					Children: []NodeSpec{
						{ID: TestNestedID, Name: "Nested", Segment: "nested", ContentType: "contentPage"},
						{
							ID: TestInvisibleID, Name: "Invisible", Segment: "invisible", ContentType: TestInvisibleType,
							Children: []NodeSpec{
								{ID: TestHiddenID, Name: "Hidden", Segment: "hidden", ContentType: "contentPage"},
							},
						},
					},
				},
				{
					ID: TestAboutID, Name: "About", Segment: "about", ContentType: "contentPage",
					Segments: map[string]string{"da-DK": "om"},
				},
			},
		}},
		Domains: []DomainSpec{
			{ID: 1, Name: "https://en.example.org/", Culture: "en-US", Root: TestHomeID, SortOrder: 0},
			{ID: 2, Name: "https://da.example.org/", Culture: "da-DK", Root: TestHomeID, SortOrder: 1},
		},
	}
}

// TestingStore builds a store from [TestingFile].
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    store := content.TestingStore(t)
//	    // Use store...
//	}
func TestingStore(t testing.TB, opts ...StoreOption) *Store {
	t.Helper()

	s, err := Build(context.Background(), TestingFile(), opts...)
	if err != nil {
		t.Fatalf("TestingStore: failed to build store: %v", err)
	}

	return s
}
