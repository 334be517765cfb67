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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// TypeEnvVar decodes KEY=value lines.
const TypeEnvVar Type = "env_var"

func init() {
	RegisterDecoder(TypeEnvVar, EnvVarCodec{})
}

// EnvVarCodec decodes environment variable lines into a nested map. Keys
// are lower-cased; a double underscore separates nesting levels and a
// single underscore is kept:
//
//	CONTENT_TYPES=a,b        -> content_types: "a,b"
//	CACHE__STRATEGY=lru      -> cache: {strategy: "lru"}
type EnvVarCodec struct{}

func (EnvVarCodec) Encode(any) ([]byte, error) {
	return nil, errors.New("codec: encoding environment variables is not supported")
}

func (EnvVarCodec) Decode(data []byte, v any) error {
	out, ok := v.(*map[string]any)
	if !ok {
		return fmt.Errorf("codec: env decoder needs *map[string]any, got %T", v)
	}
	conf := make(map[string]any)

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, found := strings.Cut(sc.Text(), "=")
		if !found {
			continue
		}
		var path []string
		for p := range strings.SplitSeq(strings.ToLower(strings.TrimSpace(key)), "__") {
			if p = strings.Trim(p, "_"); p != "" {
				path = append(path, p)
			}
		}
		if len(path) == 0 {
			continue
		}

		node := conf
		for _, p := range path[:len(path)-1] {
			next, ok := node[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[p] = next
			}
			node = next
		}
		node[path[len(path)-1]] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("codec: scan env: %w", err)
	}
	*out = conf

	return nil
}
