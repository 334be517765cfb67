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

package config

import (
	"context"
	_ "embed"
	"errors"
	"reflect"
	"time"

	"rivaas.dev/invisiblenodes/routecache"
)

// SettingsSection is the top-level key [Settings] are read from.
const SettingsSection = "invisiblenodes"

// EnvPrefix is the environment variable prefix of [Settings], for example
// INVISIBLENODES_CONTENT_TYPES or INVISIBLENODES_CACHE__STRATEGY.
const EnvPrefix = "INVISIBLENODES_"

//go:embed settings.schema.json
var settingsSchema []byte

// SettingsSchema returns the JSON schema settings are validated against.
func SettingsSchema() []byte {
	return settingsSchema
}

// Settings configures invisible node handling.
//
//	invisiblenodes:
//	  content_types: [invisibleNode, folder]
//	  caching_enabled: true
//	  cache:
//	    strategy: lru
//	    capacity: 10000
//	  add_trailing_slash: true
type Settings struct {
	// ContentTypes are the content type aliases whose nodes are invisible.
	ContentTypes     []string        `config:"content_types" json:"content_types" validate:"dive,required"`
	CachingEnabled   bool            `config:"caching_enabled" default:"true" json:"caching_enabled"`
	Cache            CacheSettings   `config:"cache" json:"cache"`
	AddTrailingSlash bool            `config:"add_trailing_slash" default:"true" json:"add_trailing_slash"`
	PendingMoves     PendingSettings `config:"pending_moves" json:"pending_moves"`
	// DefaultCulture overrides the content registry's default culture.
	DefaultCulture string `config:"default_culture" json:"default_culture,omitempty" validate:"omitempty,bcp47_language_tag"`
}

type CacheSettings struct {
	Strategy routecache.Strategy `config:"strategy" default:"memory" json:"strategy"`
	// Capacity bounds the lru and ttl strategies; 0 is unbounded.
	Capacity int           `config:"capacity" json:"capacity" validate:"gte=0"`
	TTL      time.Duration `config:"ttl" json:"ttl" validate:"gte=0s"`
}

// PendingSettings bounds the URLs captured between a move starting and
// completing.
type PendingSettings struct {
	TTL      time.Duration `config:"ttl" default:"5m" json:"ttl" validate:"gt=0s"`
	Capacity int           `config:"capacity" default:"1024" json:"capacity" validate:"gt=0"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	s := &Settings{}
	if err := applyDefaults(reflect.ValueOf(s).Elem()); err != nil {
		panic(err)
	}

	return s
}

// Validate checks the validate struct tags and the constraints between
// fields. Every violation is reported, joined.
func (s *Settings) Validate() error {
	errs := validateTags(s)
	if s.Cache.Strategy == routecache.StrategyTTL && s.Cache.TTL <= 0 {
		errs = errors.Join(errs, NewFieldError("settings", "cache.ttl", "validate", errors.New("the ttl strategy needs a positive ttl")))
	}

	return errs
}

// NewCache builds the route cache the settings describe. Disabled caching
// yields a cache that never hits.
func (s *Settings) NewCache() (routecache.Cache, error) {
	if !s.CachingEnabled {
		return routecache.NoOp{}, nil
	}

	return routecache.New(
		routecache.WithStrategy(s.Cache.Strategy),
		routecache.WithCapacity(s.Cache.Capacity),
		routecache.WithTTL(s.Cache.TTL),
	)
}

// Values returns s in the shape [LoadSettings] reads, below
// [SettingsSection]. Durations are written as strings such as "5m0s".
func (s *Settings) Values() map[string]any {
	cache := map[string]any{
		"strategy": s.Cache.Strategy.String(),
		"capacity": s.Cache.Capacity,
	}
	if s.Cache.TTL > 0 {
		cache["ttl"] = s.Cache.TTL.String()
	}
	values := map[string]any{
		"content_types":      append([]string{}, s.ContentTypes...),
		"caching_enabled":    s.CachingEnabled,
		"cache":              cache,
		"add_trailing_slash": s.AddTrailingSlash,
		"pending_moves": map[string]any{
			"ttl":      s.PendingMoves.TTL.String(),
			"capacity": s.PendingMoves.Capacity,
		},
	}
	if s.DefaultCulture != "" {
		values["default_culture"] = s.DefaultCulture
	}

	return map[string]any{SettingsSection: values}
}

// LoadSettings loads [Settings] from the "invisiblenodes" section of the
// given sources, validating them against [SettingsSchema].
//
//	s, err := config.LoadSettings(ctx,
//	    config.WithFile("invisiblenodes.yaml"),
//	    config.WithEnv(config.EnvPrefix),
//	)
func LoadSettings(ctx context.Context, opts ...Option) (*Settings, error) {
	cfg, err := NewSettingsConfig(opts...)
	if err != nil {
		return nil, err
	}

	return cfg.Settings(ctx)
}

// NewSettingsConfig returns a [Config] scoped to the settings section and
// schema.
func NewSettingsConfig(opts ...Option) (*Config, error) {
	return New(append([]Option{WithSection(SettingsSection), WithJSONSchema(settingsSchema)}, opts...)...)
}

// Settings loads c and binds a fresh [Settings].
func (c *Config) Settings(ctx context.Context) (*Settings, error) {
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	s := &Settings{}
	if err := c.Bind(s); err != nil {
		return nil, err
	}

	return s, nil
}
