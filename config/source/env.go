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
	"os"
	"slices"
	"strings"

	"rivaas.dev/invisiblenodes/config/codec"
)

// OSEnvVar loads the environment variables starting with a prefix, with
// the prefix removed. See [codec.EnvVarCodec] for the key mapping.
type OSEnvVar struct {
	prefix string
	root   string
}

func NewOSEnvVar(prefix string) *OSEnvVar {
	return &OSEnvVar{prefix: prefix}
}

// Under returns a copy of e that nests its values below key root.
func (e *OSEnvVar) Under(root string) *OSEnvVar {
	return &OSEnvVar{prefix: e.prefix, root: root}
}

func (e *OSEnvVar) Load(context.Context) (map[string]any, error) {
	var m map[string]any
	if err := (codec.EnvVarCodec{}).Decode([]byte(strings.Join(e.lines(), "\n")), &m); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if e.root != "" {
		return map[string]any{e.root: m}, nil
	}

	return m, nil
}

func (e *OSEnvVar) Version(context.Context) (string, error) {
	return strings.Join(e.lines(), "\x00"), nil
}

func (e *OSEnvVar) String() string {
	return "env:" + e.prefix
}

func (e *OSEnvVar) lines() []string {
	var out []string
	for _, kv := range os.Environ() {
		if rest, ok := strings.CutPrefix(kv, e.prefix); ok {
			out = append(out, rest)
		}
	}
	slices.Sort(out)

	return out
}
