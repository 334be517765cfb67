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

package dumper

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"rivaas.dev/invisiblenodes/config/codec"
)

// DefaultFilePermissions is the mode of dumped files.
const DefaultFilePermissions = 0o644

// File writes values to a file, replacing it atomically.
type File struct {
	path        string
	encoder     codec.Encoder
	permissions os.FileMode
}

func NewFile(path string, encoder codec.Encoder) *File {
	return &File{path: path, encoder: encoder, permissions: DefaultFilePermissions}
}

// NewFileWithPermissions is [NewFile] with an explicit file mode.
func NewFileWithPermissions(path string, encoder codec.Encoder, perm os.FileMode) *File {
	return &File{path: path, encoder: encoder, permissions: perm}
}

func (f *File) Dump(_ context.Context, values map[string]any) error {
	data, err := f.encoder.Encode(values)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err = tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err = tmp.Chmod(f.permissions); err != nil {
		tmp.Close() //nolint:errcheck,gosec // chmod error takes precedence
		return fmt.Errorf("chmod %s: %w", f.path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f.path, err)
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("rename %s: %w", f.path, err)
	}

	return nil
}

// Writer writes values to an io.Writer, such as os.Stdout.
type Writer struct {
	w       io.Writer
	encoder codec.Encoder
}

func NewWriter(w io.Writer, encoder codec.Encoder) *Writer {
	return &Writer{w: w, encoder: encoder}
}

func (d *Writer) Dump(_ context.Context, values map[string]any) error {
	data, err := d.encoder.Encode(values)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if _, err = d.w.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}
