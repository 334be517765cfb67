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

// Package rules classifies content nodes as invisible.
//
// A node is invisible when its content type is one of the configured
// aliases. Invisible nodes contribute no segment to public URLs; their
// children appear to hang directly off the invisible node's parent.
//
// The alias set lives in an immutable snapshot that [Classifier.Update]
// swaps atomically, so readers on request goroutines never see a partially
// applied configuration.
package rules

import (
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"rivaas.dev/invisiblenodes/content"
)

// Rules decides whether a node is invisible.
type Rules interface {
	IsInvisible(n *content.Node) bool
}

// Func adapts a function to [Rules].
type Func func(n *content.Node) bool

// IsInvisible implements [Rules].
func (f Func) IsInvisible(n *content.Node) bool {
	return f(n)
}

// None is a [Rules] that treats every node as visible.
var None Rules = Func(func(*content.Node) bool { return false })

type snapshot struct {
	aliases []string
	set     map[string]struct{}
}

func newSnapshot(aliases []string) *snapshot {
	s := &snapshot{set: make(map[string]struct{}, len(aliases))}
	for _, a := range aliases {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := s.set[a]; dup {
			continue
		}
		s.set[a] = struct{}{}
		s.aliases = append(s.aliases, a)
	}

	return s
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithContentTypes sets the initial invisible content type aliases.
func WithContentTypes(aliases ...string) Option {
	return func(c *Classifier) {
		c.snap.Store(newSnapshot(aliases))
	}
}

// WithLogger sets the logger used to report configuration changes.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Classifier is the configurable [Rules] implementation. It is safe for
// concurrent use.
type Classifier struct {
	snap   atomic.Pointer[snapshot]
	logger *slog.Logger
}

// New creates a classifier. Without [WithContentTypes] no node is invisible.
func New(opts ...Option) *Classifier {
	c := &Classifier{logger: slog.New(slog.DiscardHandler)}
	c.snap.Store(newSnapshot(nil))
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IsInvisible implements [Rules]. Alias matching is exact; a nil node is
// visible.
func (c *Classifier) IsInvisible(n *content.Node) bool {
	if n == nil {
		return false
	}
	_, ok := c.snap.Load().set[n.ContentType]

	return ok
}

// Update replaces the alias set. Blank and duplicate aliases are dropped.
// It reports whether the set changed.
func (c *Classifier) Update(aliases []string) bool {
	next := newSnapshot(aliases)
	prev := c.snap.Swap(next)
	if slices.Equal(prev.aliases, next.aliases) {
		return false
	}
	c.logger.Info("invisible content types updated", "content_types", next.aliases)

	return true
}

// Aliases returns the current alias set in configuration order.
func (c *Classifier) Aliases() []string {
	return slices.Clone(c.snap.Load().aliases)
}
