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
	"bytes"
	"context"
	"encoding"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"rivaas.dev/invisiblenodes/config/codec"
	"rivaas.dev/invisiblenodes/config/dumper"
	"rivaas.dev/invisiblenodes/config/source"
)

// Source loads one layer of configuration. Later sources override earlier
// ones.
type Source interface {
	Load(ctx context.Context) (map[string]any, error)
}

// Versioned sources report a version that changes when their data may
// have changed. [Watch] polls it.
type Versioned interface {
	Version(ctx context.Context) (string, error)
}

// Dumper writes the effective values.
type Dumper interface {
	Dump(ctx context.Context, values map[string]any) error
}

// Validator is implemented by binding targets that check themselves after
// decoding.
type Validator interface {
	Validate() error
}

// Option configures a [Config].
type Option func(c *Config) error

// Config merges configuration sources into one map and binds it to
// structs. It is safe for concurrent use.
type Config struct {
	sources []Source
	dumpers []Dumper
	section string
	tagName string
	schema  *jsonschema.Schema
	logger  *slog.Logger

	mu     sync.RWMutex
	values map[string]any
}

// WithSource appends a source.
func WithSource(src Source) Option {
	return func(c *Config) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		c.sources = append(c.sources, src)
		return nil
	}
}

// WithFile loads a file, picking the codec from its extension. The path
// is expanded with os.ExpandEnv.
func WithFile(path string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		format, err := codec.TypeFromPath(path)
		if err != nil {
			return NewError("file-source", "detect-format", err)
		}
		return WithFileAs(path, format)(c)
	}
}

// WithFileAs loads a file with an explicit codec.
func WithFileAs(path string, format codec.Type) Option {
	return func(c *Config) error {
		dec, err := codec.GetDecoder(format)
		if err != nil {
			return NewError("file-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFile(os.ExpandEnv(path), dec))
		return nil
	}
}

// WithContent loads in-memory data.
func WithContent(data []byte, format codec.Type) Option {
	return func(c *Config) error {
		dec, err := codec.GetDecoder(format)
		if err != nil {
			return NewError("content-source", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFileContent(data, dec))
		return nil
	}
}

// WithEnv loads the environment variables starting with prefix.
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		c.sources = append(c.sources, source.NewOSEnvVar(prefix))
		return nil
	}
}

// WithConsul loads a Consul key, picking the codec from its extension.
// The option does nothing unless CONSUL_HTTP_ADDR is set, so local runs
// work without Consul.
func WithConsul(key string) Option {
	return func(c *Config) error {
		key = os.ExpandEnv(key)
		format, err := codec.TypeFromPath(key)
		if err != nil {
			return NewError("consul-source", "detect-format", err)
		}
		return WithConsulAs(key, format)(c)
	}
}

// WithConsulAs is [WithConsul] with an explicit codec.
func WithConsulAs(key string, format codec.Type) Option {
	return func(c *Config) error {
		if os.Getenv("CONSUL_HTTP_ADDR") == "" {
			return nil
		}
		dec, err := codec.GetDecoder(format)
		if err != nil {
			return NewError("consul-source", "get-decoder", err)
		}
		src, err := source.NewConsul(os.ExpandEnv(key), dec, nil)
		if err != nil {
			return NewError("consul-source", "create-client", err)
		}
		c.sources = append(c.sources, src)
		return nil
	}
}

// WithDumper adds a dumper used by [Config.Dump].
func WithDumper(d Dumper) Option {
	return func(c *Config) error {
		if d == nil {
			return errors.New("dumper cannot be nil")
		}
		c.dumpers = append(c.dumpers, d)
		return nil
	}
}

// WithFileDumper writes the effective values to path on [Config.Dump].
func WithFileDumper(path string) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		format, err := codec.TypeFromPath(path)
		if err != nil {
			return NewError("file-dumper", "detect-format", err)
		}
		enc, err := codec.GetEncoder(format)
		if err != nil {
			return NewError("file-dumper", "get-encoder", err)
		}
		c.dumpers = append(c.dumpers, dumper.NewFile(path, enc))
		return nil
	}
}

// WithSection scopes the config to one top-level key of the merged
// sources. Values, binding and schema validation all see the section only.
// Environment sources are nested below the section.
func WithSection(name string) Option {
	return func(c *Config) error {
		c.section = strings.ToLower(name)
		return nil
	}
}

// WithTag sets the struct tag used for binding. The default is "config".
func WithTag(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return errors.New("tag name cannot be empty")
		}
		c.tagName = name
		return nil
	}
}

// WithJSONSchema validates the values against schema on every load.
func WithJSONSchema(schema []byte) Option {
	return func(c *Config) error {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
		if err != nil {
			return NewError("json-schema", "parse", err)
		}
		compiler := jsonschema.NewCompiler()
		if err = compiler.AddResource("config.schema.json", doc); err != nil {
			return NewError("json-schema", "compile", err)
		}
		if c.schema, err = compiler.Compile("config.schema.json"); err != nil {
			return NewError("json-schema", "compile", err)
		}
		return nil
	}
}

// WithLogger sets the logger for load records. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// New creates a Config. Option errors are joined; the Config is returned
// either way.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		tagName: "config",
		logger:  slog.New(slog.DiscardHandler),
		values:  make(map[string]any),
	}
	var errs error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		errs = errors.Join(errs, opt(c))
	}
	if c.section != "" {
		for i, src := range c.sources {
			if env, ok := src.(*source.OSEnvVar); ok {
				c.sources[i] = env.Under(c.section)
			}
		}
	}

	return c, errs
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Config {
	c, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}

	return c
}

// Load reads every source in order, merges them and validates the result.
// On error the previous values are kept.
func (c *Config) Load(ctx context.Context) error {
	merged := make(map[string]any)
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := src.Load(ctx)
		if err != nil {
			return NewError(sourceName(i, src), "load", err)
		}
		if err = mergo.Merge(&merged, lowerKeys(m), mergo.WithOverride); err != nil {
			return NewError(sourceName(i, src), "merge", err)
		}
	}

	values := merged
	if c.section != "" {
		values, _ = merged[c.section].(map[string]any)
		if values == nil {
			values = make(map[string]any)
		}
	}

	if c.schema != nil {
		if err := c.schema.Validate(values); err != nil {
			return NewError("json-schema", "validate", err)
		}
	}

	c.mu.Lock()
	c.values = values
	c.mu.Unlock()
	c.logger.DebugContext(ctx, "configuration loaded", "sources", len(c.sources), "keys", len(values))

	return nil
}

// Values returns a shallow copy of the loaded values.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.values)
}

// Bind applies `default` tags to target, decodes the loaded values over
// it and runs its Validate method, if any. target must be a pointer to a
// struct.
func (c *Config) Bind(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return NewError("binding", "bind", fmt.Errorf("target must be a pointer to a struct, got %T", target))
	}
	if err := applyDefaults(rv.Elem()); err != nil {
		return NewError("binding", "defaults", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          c.tagName,
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return NewError("binding", "bind", err)
	}
	if err = dec.Decode(c.Values()); err != nil {
		return NewError("binding", "bind", err)
	}

	if v, ok := target.(Validator); ok {
		if err = v.Validate(); err != nil {
			return NewError("binding", "validate", err)
		}
	}

	return nil
}

// Dump writes the loaded values to every dumper.
func (c *Config) Dump(ctx context.Context) error {
	values := c.Values()
	for i, d := range c.dumpers {
		if err := d.Dump(ctx, values); err != nil {
			return NewError(fmt.Sprintf("dumper[%d]", i), "dump", err)
		}
	}

	return nil
}

// Version joins the versions of all versioned sources.
func (c *Config) Version(ctx context.Context) (string, error) {
	parts := make([]string, 0, len(c.sources))
	for i, src := range c.sources {
		v, ok := src.(Versioned)
		if !ok {
			continue
		}
		ver, err := v.Version(ctx)
		if err != nil {
			return "", NewError(sourceName(i, src), "version", err)
		}
		parts = append(parts, ver)
	}

	return strings.Join(parts, "|"), nil
}

func sourceName(i int, src Source) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}

	return fmt.Sprintf("source[%d]", i)
}

// lowerKeys lower-cases map keys recursively so sources merge
// case-insensitively.
func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = lowerKeys(nested)
		}
		out[strings.ToLower(k)] = v
	}

	return out
}

var (
	durationType        = reflect.TypeFor[time.Duration]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// applyDefaults sets every zero field that carries a `default` tag.
func applyDefaults(v reflect.Value) error {
	t := v.Type()
	for i := range v.NumField() {
		field, sf := v.Field(i), t.Field(i)
		if !field.CanSet() {
			continue
		}
		def, hasDefault := sf.Tag.Lookup("default")
		if field.Kind() == reflect.Struct && !hasDefault {
			if err := applyDefaults(field); err != nil {
				return err
			}
			continue
		}
		if !hasDefault || !field.IsZero() {
			continue
		}
		if err := setDefault(field, def); err != nil {
			return NewFieldError("defaults", sf.Name, "apply", err)
		}
	}

	return nil
}

func setDefault(field reflect.Value, def string) error {
	if field.Addr().Type().Implements(textUnmarshalerType) {
		return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(def))
	}
	if field.Type() == durationType {
		d, err := codec.CastDuration(def)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	if field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String {
		field.Set(reflect.ValueOf(strings.Split(def, ",")).Convert(field.Type()))
		return nil
	}

	kind := field.Kind()
	switch kind {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		kind = reflect.Int64
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		kind = reflect.Uint64
	case reflect.Float32:
		kind = reflect.Float64
	}
	val, err := codec.Cast(kind, def)
	if err != nil {
		return err
	}
	field.Set(reflect.ValueOf(val).Convert(field.Type()))

	return nil
}
