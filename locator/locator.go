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

// Package locator resolves a URL path to a content node below a root,
// treating invisible nodes as transparent.
package locator

import (
	"errors"
	"fmt"

	"rivaas.dev/invisiblenodes/content"
	"rivaas.dev/invisiblenodes/rules"
)

var (
	// ErrInvalidArgument is the class of errors caused by bad input.
	ErrInvalidArgument = errors.New("locator: invalid argument")
	// ErrNilRoot is returned when Locate is called without a root.
	ErrNilRoot = fmt.Errorf("%w: root node is nil", ErrInvalidArgument)
)

// NodeLocator finds the node addressed by path below root.
type NodeLocator interface {
	Locate(root *content.Node, path, culture string) (*content.Node, error)
}

// Locator walks a [content.Tree].
type Locator struct {
	tree  content.Tree
	rules rules.Rules
}

// New creates a locator. A nil rules value treats every node as visible.
func New(tree content.Tree, r rules.Rules) *Locator {
	if r == nil {
		r = rules.None
	}

	return &Locator{tree: tree, rules: r}
}

// Locate returns the node addressed by path below root, or nil when the
// path matches nothing. The root's own segment is never part of the path;
// "/" and "" match nothing.
//
// At every level children are tried in sort order. For each child a
// visible match on the current segment is tried first; if that fails and
// the child is invisible, the walk descends into it with the same
// segments. The first match wins.
//
// Segments are compared exactly against the culture's URL segment.
func (l *Locator) Locate(root *content.Node, path, culture string) (*content.Node, error) {
	if root == nil {
		return nil, ErrNilRoot
	}
	segments := content.SplitPath(path)
	if len(segments) == 0 {
		return nil, nil
	}

	return l.walk(root, segments, culture), nil
}

func (l *Locator) walk(node *content.Node, segments []string, culture string) *content.Node {
	for _, child := range l.tree.Children(node) {
		if child.URLSegment(culture) == segments[0] {
			if len(segments) == 1 {
				return child
			}
			if found := l.walk(child, segments[1:], culture); found != nil {
				return found
			}
		}
		if l.rules.IsInvisible(child) {
			if found := l.walk(child, segments, culture); found != nil {
				return found
			}
		}
	}

	return nil
}
