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

package source

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/consul/api"

	"rivaas.dev/invisiblenodes/config/codec"
)

// DefaultConsulWait bounds one blocking query in [Consul.Version].
const DefaultConsulWait = 30 * time.Second

// ConsulKV is the part of the Consul KV API the source uses.
type ConsulKV interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// Consul loads a map from one Consul key. A missing key loads as an empty
// map. With a caster decoder the key's last path element becomes the only
// map key, so "app/caching_enabled" loads as {caching_enabled: <bool>}.
//
// The client reads CONSUL_HTTP_ADDR and CONSUL_HTTP_TOKEN.
type Consul struct {
	kv        ConsulKV
	key       string
	decoder   codec.Decoder
	wait      time.Duration
	lastIndex atomic.Uint64
}

// NewConsul creates a Consul source. A nil kv uses a client built from the
// environment.
func NewConsul(key string, decoder codec.Decoder, kv ConsulKV) (*Consul, error) {
	if kv == nil {
		client, err := api.NewClient(api.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("consul client: %w", err)
		}
		kv = client.KV()
	}

	return &Consul{kv: kv, key: key, decoder: decoder, wait: DefaultConsulWait}, nil
}

// WithWait returns c with a different blocking query wait time.
func (c *Consul) WithWait(d time.Duration) *Consul {
	if d > 0 {
		c.wait = d
	}

	return c
}

func (c *Consul) Load(ctx context.Context) (map[string]any, error) {
	pair, meta, err := c.kv.Get(c.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("consul get %s: %w", c.key, err)
	}
	if meta != nil {
		c.lastIndex.Store(meta.LastIndex)
	}
	if pair == nil {
		return make(map[string]any), nil
	}

	if caster, ok := c.decoder.(codec.CasterCodec); ok {
		var v any
		if err = caster.Decode(pair.Value, &v); err != nil {
			return nil, fmt.Errorf("consul decode %s: %w", c.key, err)
		}
		return map[string]any{path.Base(pair.Key): v}, nil
	}

	var m map[string]any
	if err = c.decoder.Decode(pair.Value, &m); err != nil {
		return nil, fmt.Errorf("consul decode %s: %w", c.key, err)
	}
	if m == nil {
		m = make(map[string]any)
	}

	return m, nil
}

// Version runs a blocking query that returns when the key's index moves
// past the last seen index, or after the wait time.
func (c *Consul) Version(ctx context.Context) (string, error) {
	q := (&api.QueryOptions{
		WaitIndex: c.lastIndex.Load(),
		WaitTime:  c.wait,
	}).WithContext(ctx)
	_, meta, err := c.kv.Get(c.key, q)
	if err != nil {
		return "", fmt.Errorf("consul watch %s: %w", c.key, err)
	}
	if meta == nil {
		return strconv.FormatUint(c.lastIndex.Load(), 10), nil
	}
	// An index that went backwards means the store was restored; start over.
	if meta.LastIndex < c.lastIndex.Load() {
		c.lastIndex.Store(0)
	} else {
		c.lastIndex.Store(meta.LastIndex)
	}

	return strconv.FormatUint(meta.LastIndex, 10), nil
}

func (c *Consul) String() string {
	return "consul:" + c.key
}
