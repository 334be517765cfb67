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

// Tree is a read-only view of published content. Implementations must be
// safe for concurrent use.
type Tree interface {
	// Roots returns the published top-level nodes for culture, in order.
	Roots(culture string) []*Node
	// Node returns a routable node: published and reachable through
	// published ancestors.
	Node(id int) (*Node, bool)
	// Children returns the published children of n in sort order.
	Children(n *Node) []*Node
	// Parent returns the parent of n regardless of its publish state.
	Parent(n *Node) (*Node, bool)
}

// DomainRegistry exposes domain assignments.
type DomainRegistry interface {
	// Domains returns all domains ordered by sort order.
	Domains(includeWildcards bool) []Domain
	// AssignedDomains returns the domains assigned directly to nodeID.
	AssignedDomains(nodeID int, includeWildcards bool) []Domain
	DefaultCulture() string
}

// AncestorsOrSelf returns n followed by its ancestors, nearest first.
func AncestorsOrSelf(t Tree, n *Node) []*Node {
	if n == nil {
		return nil
	}
	chain := make([]*Node, 0, max(n.Level, 1))
	for cur := n; cur != nil; {
		chain = append(chain, cur)
		parent, ok := t.Parent(cur)
		if !ok {
			break
		}
		cur = parent
	}

	return chain
}

// Descendants returns the published descendants of n, depth first.
func Descendants(t Tree, n *Node) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range t.Children(p) {
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)

	return out
}
