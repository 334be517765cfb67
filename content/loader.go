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

package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"

	"rivaas.dev/invisiblenodes/config/codec"
	"rivaas.dev/invisiblenodes/config/source"
)

// File is the on-disk description of a content tree and its domains. It
// can be written in any format the codec registry decodes (YAML, JSON,
// TOML).
//
//	defaultCulture: en-US
//	nodes:
//	  - id: 1
//	    name: Home
//	    segment: home
//	    children:
//	      - id: 2
//	        segment: content
//	domains:
//	  - id: 1
//	    name: https://en.example.org/
//	    culture: en-US
//	    root: 1
type File struct {
	DefaultCulture string       `tree:"defaultCulture"`
	Nodes          []NodeSpec   `tree:"nodes"`
	Domains        []DomainSpec `tree:"domains"`
}

// NodeSpec describes a node and its subtree.
type NodeSpec struct {
	ID          int               `tree:"id"`
	Name        string            `tree:"name"`
	Segment     string            `tree:"segment"`
	Segments    map[string]string `tree:"segments"`
	ContentType string            `tree:"contentType"`
	// Published defaults to true when unset and no cultures are listed.
	Published *bool      `tree:"published"`
	Cultures  []string   `tree:"cultures"`
	Children  []NodeSpec `tree:"children"`
}

// DomainSpec describes a domain assignment.
type DomainSpec struct {
	ID        int    `tree:"id"`
	Name      string `tree:"name"`
	Culture   string `tree:"culture"`
	Root      int    `tree:"root"`
	Wildcard  bool   `tree:"wildcard"`
	SortOrder int    `tree:"sortOrder"`
}

// LoadFile reads a tree description, picking the decoder from the file
// extension, and builds a store from it.
func LoadFile(ctx context.Context, path string, opts ...StoreOption) (*Store, error) {
	f, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	return Build(ctx, f, opts...)
}

// ReadFile reads a tree description without building a store.
func ReadFile(ctx context.Context, path string) (File, error) {
	format, err := codec.TypeFromPath(path)
	if err != nil {
		return File{}, fmt.Errorf("content: %w", err)
	}
	decoder, err := codec.GetDecoder(format)
	if err != nil {
		return File{}, fmt.Errorf("content: %w", err)
	}

	return read(ctx, source.NewFile(path, decoder))
}

// Decode builds a store from an in-memory tree description.
func Decode(ctx context.Context, data []byte, format codec.Type, opts ...StoreOption) (*Store, error) {
	decoder, err := codec.GetDecoder(format)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	f, err := read(ctx, source.NewFileContent(data, decoder))
	if err != nil {
		return nil, err
	}

	return Build(ctx, f, opts...)
}

func read(ctx context.Context, src *source.File) (File, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return File{}, fmt.Errorf("content: %w", err)
	}

	var f File
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "tree",
		Result:           &f,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return File{}, fmt.Errorf("content: %w", err)
	}
	if err = dec.Decode(raw); err != nil {
		return File{}, fmt.Errorf("content: decode tree: %w", err)
	}

	return f, nil
}

// Build creates a store from a decoded description. No lifecycle events
// are published while the store is populated.
func Build(ctx context.Context, f File, opts ...StoreOption) (*Store, error) {
	s := NewStore(opts...)
	events := s.events
	s.events = nil
	if f.DefaultCulture != "" && s.defaultCulture == "" {
		s.defaultCulture = f.DefaultCulture
	}

	var add func(parentID int, specs []NodeSpec) error
	add = func(parentID int, specs []NodeSpec) error {
		for _, spec := range specs {
			published := len(spec.Cultures) == 0
			if spec.Published != nil {
				published = *spec.Published
			}
			err := s.Save(ctx, Node{
				ID:                spec.ID,
				ParentID:          parentID,
				Name:              spec.Name,
				Segment:           spec.Segment,
				Segments:          spec.Segments,
				ContentType:       spec.ContentType,
				Published:         published,
				PublishedCultures: spec.Cultures,
			})
			if err != nil {
				return err
			}
			if err = add(spec.ID, spec.Children); err != nil {
				return err
			}
		}

		return nil
	}
	if err := add(0, f.Nodes); err != nil {
		return nil, err
	}

	for _, d := range f.Domains {
		err := s.AddDomain(ctx, Domain{
			ID:            d.ID,
			Name:          d.Name,
			Culture:       d.Culture,
			RootContentID: d.Root,
			Wildcard:      d.Wildcard,
			SortOrder:     d.SortOrder,
		})
		if err != nil {
			return nil, err
		}
	}

	s.events = events
	s.logger.Debug("content tree loaded", slog.Int("nodes", s.Len()), slog.Int("domains", len(f.Domains)))

	return s, nil
}
