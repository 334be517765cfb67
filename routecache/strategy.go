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

package routecache

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Strategy selects the cache implementation.
type Strategy int

const (
	// StrategyMemory caches every route until it is cleared.
	StrategyMemory Strategy = iota
	// StrategyLRU bounds the cache by capacity.
	StrategyLRU
	// StrategyTTL expires routes after a fixed duration, optionally bounded by
	// capacity as well.
	StrategyTTL
	// StrategyNone disables caching.
	StrategyNone
)

// ErrInvalidStrategy is returned for unknown strategy names or settings a
// strategy cannot honor.
var ErrInvalidStrategy = errors.New("routecache: invalid strategy")

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyMemory:
		return "memory"
	case StrategyLRU:
		return "lru"
	case StrategyTTL:
		return "ttl"
	case StrategyNone:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseStrategy parses a strategy name, ignoring case and surrounding
// whitespace. An empty name selects [StrategyMemory].
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "memory":
		return StrategyMemory, nil
	case "lru":
		return StrategyLRU, nil
	case "ttl":
		return StrategyTTL, nil
	case "none", "off", "disabled":
		return StrategyNone, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

// Option configures [New].
type Option func(*options)

type options struct {
	strategy Strategy
	capacity int
	ttl      time.Duration
}

// WithStrategy selects the implementation.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithCapacity bounds the LRU and TTL strategies. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithTTL sets the expiry of the TTL strategy.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		o.ttl = d
	}
}

// New builds a cache for the configured strategy. The default is an
// unbounded [Memory] cache.
func New(opts ...Option) (Cache, error) {
	o := options{strategy: StrategyMemory}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 0 {
		return nil, fmt.Errorf("%w: negative capacity %d", ErrInvalidStrategy, o.capacity)
	}

	switch o.strategy {
	case StrategyMemory:
		return NewMemory(), nil
	case StrategyLRU:
		return NewLRU(o.capacity, 0), nil
	case StrategyTTL:
		if o.ttl <= 0 {
			return nil, fmt.Errorf("%w: ttl strategy requires a positive ttl", ErrInvalidStrategy)
		}
		return NewLRU(o.capacity, o.ttl), nil
	case StrategyNone:
		return NoOp{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidStrategy, o.strategy)
	}
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) Cache {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}

	return c
}
