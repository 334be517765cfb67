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
	"slices"
	"strings"
)

// Node is a read-only snapshot of one content node. Nodes handed out by a
// Tree must not be mutated; the store replaces snapshots on change.
type Node struct {
	ID       int
	ParentID int
	// ChildIDs lists children in sort order. It is maintained by the store.
	ChildIDs []int
	// Level is the depth in the tree; roots are at level 1.
	Level int
	Name  string
	// Segment is the culture-neutral URL segment.
	Segment string
	// Segments holds per-culture URL segments.
	Segments          map[string]string
	ContentType       string
	Published         bool
	PublishedCultures []string
}

// URLSegment returns the segment for culture, falling back to the neutral
// segment when the culture has none.
func (n *Node) URLSegment(culture string) string {
	if n == nil {
		return ""
	}
	if culture != "" && len(n.Segments) > 0 {
		if s, ok := n.Segments[culture]; ok {
			return s
		}
		for c, s := range n.Segments {
			if SameCulture(c, culture) {
				return s
			}
		}
	}

	return n.Segment
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID == 0
}

// IsPublished reports whether the node is published at all.
func (n *Node) IsPublished() bool {
	return n.Published || len(n.PublishedCultures) > 0
}

// IsPublishedIn reports whether the node is published for culture. The
// neutral culture is published whenever the node is.
func (n *Node) IsPublishedIn(culture string) bool {
	if culture == "" || len(n.PublishedCultures) == 0 {
		return n.IsPublished()
	}

	return slices.ContainsFunc(n.PublishedCultures, func(c string) bool { return SameCulture(c, culture) })
}

func (n *Node) clone() *Node {
	cp := *n
	cp.ChildIDs = slices.Clone(n.ChildIDs)
	cp.PublishedCultures = slices.Clone(n.PublishedCultures)
	if n.Segments != nil {
		cp.Segments = make(map[string]string, len(n.Segments))
		for k, v := range n.Segments {
			cp.Segments[k] = v
		}
	}

	return &cp
}

// SameCulture compares culture codes case-insensitively.
func SameCulture(a, b string) bool {
	return strings.EqualFold(a, b)
}

// SplitPath splits a URL path into its non-empty segments.
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")

	return slices.DeleteFunc(parts, func(s string) bool { return s == "" })
}
