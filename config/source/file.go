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
	"strconv"

	"rivaas.dev/invisiblenodes/config/codec"
)

// File loads a map from a file, or from fixed content.
type File struct {
	path    string
	data    []byte
	decoder codec.Decoder
}

func NewFile(path string, decoder codec.Decoder) *File {
	return &File{path: path, decoder: decoder}
}

// NewFileContent decodes data instead of reading a file.
func NewFileContent(data []byte, decoder codec.Decoder) *File {
	return &File{data: data, decoder: decoder}
}

func (f *File) Load(context.Context) (map[string]any, error) {
	data := f.data
	if f.path != "" {
		var err error
		if data, err = os.ReadFile(f.path); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.path, err)
		}
	}

	var m map[string]any
	if err := f.decoder.Decode(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.name(), err)
	}
	if m == nil {
		m = make(map[string]any)
	}

	return m, nil
}

// Version is the file's modification time and size. Fixed content never
// changes.
func (f *File) Version(context.Context) (string, error) {
	if f.path == "" {
		return "", nil
	}
	fi, err := os.Stat(f.path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", f.path, err)
	}

	return strconv.FormatInt(fi.ModTime().UnixNano(), 10) + ":" + strconv.FormatInt(fi.Size(), 10), nil
}

func (f *File) String() string {
	return "file:" + f.name()
}

func (f *File) name() string {
	if f.path == "" {
		return "<content>"
	}

	return f.path
}
