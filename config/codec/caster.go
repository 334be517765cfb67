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

package codec

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"
)

// Caster decoders turn a single scalar into a typed value. They back
// single-key Consul entries such as "invisiblenodes/caching_enabled".
const (
	TypeCasterBool     Type = "caster-bool"
	TypeCasterInt      Type = "caster-int"
	TypeCasterDuration Type = "caster-duration"
	TypeCasterString   Type = "caster-string"
)

func init() {
	RegisterDecoder(TypeCasterBool, CasterCodec{kind: reflect.Bool})
	RegisterDecoder(TypeCasterInt, CasterCodec{kind: reflect.Int})
	RegisterDecoder(TypeCasterDuration, CasterCodec{kind: reflect.Int64, duration: true})
	RegisterDecoder(TypeCasterString, CasterCodec{kind: reflect.String})
}

// CasterCodec decodes a scalar into *any.
type CasterCodec struct {
	kind     reflect.Kind
	duration bool
}

func (c CasterCodec) Decode(data []byte, v any) error {
	out, ok := v.(*any)
	if !ok {
		return fmt.Errorf("codec: caster needs *any, got %T", v)
	}
	var err error
	if c.duration {
		*out, err = cast.ToDurationE(string(data))
		return err
	}
	*out, err = Cast(c.kind, string(data))

	return err
}

// Cast converts value to the given kind.
func Cast(kind reflect.Kind, value string) (any, error) {
	switch kind {
	case reflect.Bool:
		return cast.ToBoolE(value)
	case reflect.Int:
		return cast.ToIntE(value)
	case reflect.Int64:
		return cast.ToInt64E(value)
	case reflect.Uint, reflect.Uint64:
		return cast.ToUint64E(value)
	case reflect.Float64:
		return cast.ToFloat64E(value)
	case reflect.String:
		return cast.ToStringE(value)
	default:
		return nil, fmt.Errorf("codec: cannot cast to %s", kind)
	}
}

// CastDuration is [Cast] for time.Duration values.
func CastDuration(value string) (time.Duration, error) {
	return cast.ToDurationE(value)
}
