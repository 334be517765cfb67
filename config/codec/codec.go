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
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Type identifies a codec.
type Type string

// ErrUnknownType is returned for codec types with no registered codec.
var ErrUnknownType = errors.New("codec: unknown type")

// Encoder turns a value into bytes. Implementations must be safe for
// concurrent use.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// Decoder turns bytes into the value pointed to by v. Implementations must
// be safe for concurrent use.
type Decoder interface {
	Decode(data []byte, v any) error
}

var (
	mu       sync.RWMutex
	encoders = make(map[Type]Encoder)
	decoders = make(map[Type]Decoder)
)

// RegisterEncoder registers enc for name, replacing any previous encoder.
func RegisterEncoder(name Type, enc Encoder) {
	mu.Lock()
	defer mu.Unlock()
	encoders[name] = enc
}

// RegisterDecoder registers dec for name, replacing any previous decoder.
func RegisterDecoder(name Type, dec Decoder) {
	mu.Lock()
	defer mu.Unlock()
	decoders[name] = dec
}

func GetEncoder(name Type) (Encoder, error) {
	mu.RLock()
	defer mu.RUnlock()
	enc, ok := encoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: no encoder for %q", ErrUnknownType, name)
	}

	return enc, nil
}

func GetDecoder(name Type) (Decoder, error) {
	mu.RLock()
	defer mu.RUnlock()
	dec, ok := decoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %q", ErrUnknownType, name)
	}

	return dec, nil
}

var extensions = map[string]Type{
	".yaml":    TypeYAML,
	".yml":     TypeYAML,
	".json":    TypeJSON,
	".toml":    TypeTOML,
	".msgpack": TypeMsgPack,
	".mpk":     TypeMsgPack,
}

// TypeFromPath returns the codec type for the extension of path.
func TypeFromPath(path string) (Type, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensions[ext]; ok {
		return t, nil
	}

	return "", fmt.Errorf("%w: cannot detect format of %q from extension %q", ErrUnknownType, path, ext)
}
