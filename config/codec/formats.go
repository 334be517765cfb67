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
	"bytes"
	"encoding/json"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	TypeJSON    Type = "json"
	TypeYAML    Type = "yaml"
	TypeTOML    Type = "toml"
	// TypeMsgPack is a binary format for generated content trees.
	TypeMsgPack Type = "msgpack"
)

func init() {
	for t, c := range map[Type]interface {
		Encoder
		Decoder
	}{
		TypeJSON:    JSONCodec{},
		TypeYAML:    YAMLCodec{},
		TypeTOML:    TOMLCodec{},
		TypeMsgPack: MsgPackCodec{},
	} {
		RegisterEncoder(t, c)
		RegisterDecoder(t, c)
	}
}

type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

func (JSONCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

type YAMLCodec struct{}

func (YAMLCodec) Encode(v any) ([]byte, error) { return yaml.Marshal(v) }

func (YAMLCodec) Decode(data []byte, v any) error { return yaml.Unmarshal(data, v) }

type TOMLCodec struct{}

func (TOMLCodec) Encode(v any) ([]byte, error) { return toml.Marshal(v) }

func (TOMLCodec) Decode(data []byte, v any) error { return toml.Unmarshal(data, v) }

// MsgPackCodec reads and writes MessagePack. Struct fields use their json
// names.
type MsgPackCodec struct{}

func (MsgPackCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (MsgPackCodec) Decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")

	return dec.Decode(v)
}
