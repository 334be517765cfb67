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

// Package sqlitestore persists content trees and domains in SQLite and
// loads them into a [content.Store].
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	_ "modernc.org/sqlite"

	"rivaas.dev/invisiblenodes/content"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id           INTEGER PRIMARY KEY,
	parent_id    INTEGER NOT NULL DEFAULT 0,
	sort_order   INTEGER NOT NULL DEFAULT 0,
	name         TEXT    NOT NULL DEFAULT '',
	segment      TEXT    NOT NULL DEFAULT '',
	content_type TEXT    NOT NULL DEFAULT '',
	published    INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS nodes_parent ON nodes (parent_id, sort_order, id);

CREATE TABLE IF NOT EXISTS node_segments (
	node_id INTEGER NOT NULL REFERENCES nodes (id) ON DELETE CASCADE,
	culture TEXT    NOT NULL,
	segment TEXT    NOT NULL,
	PRIMARY KEY (node_id, culture)
);

CREATE TABLE IF NOT EXISTS node_cultures (
	node_id INTEGER NOT NULL REFERENCES nodes (id) ON DELETE CASCADE,
	culture TEXT    NOT NULL,
	PRIMARY KEY (node_id, culture)
);

CREATE TABLE IF NOT EXISTS domains (
	id         INTEGER PRIMARY KEY,
	name       TEXT    NOT NULL,
	culture    TEXT    NOT NULL DEFAULT '',
	root_id    INTEGER NOT NULL REFERENCES nodes (id),
	wildcard   INTEGER NOT NULL DEFAULT 0,
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const defaultCultureKey = "default_culture"

// ErrUnreachable is returned by [DB.Load] for nodes whose parent chain
// does not end at a root.
var ErrUnreachable = errors.New("sqlitestore: nodes unreachable from any root")

// Option configures a [DB].
type Option func(*DB)

// WithLogger sets the logger for import and load records.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// DB is a SQLite content database.
type DB struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens the database at path with WAL journaling and foreign keys
// enabled, and creates the schema.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Pragmas are per connection.
	conn.SetMaxOpenConns(1)
	d := &DB{conn: conn, path: path, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(d)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err = conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err = d.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return d, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Path returns the database path.
func (d *DB) Path() string {
	return d.path
}

// Migrate creates missing tables.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

// SetDefaultCulture stores the culture used when a request has none.
func (d *DB) SetDefaultCulture(ctx context.Context, culture string) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		defaultCultureKey, culture)
	if err != nil {
		return fmt.Errorf("storing default culture: %w", err)
	}

	return nil
}

// InsertNode inserts or replaces n below n.ParentID at position sortOrder.
// ChildIDs and Level are derived on load and ignored here.
func (d *DB) InsertNode(ctx context.Context, n content.Node, sortOrder int) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		return insertNode(ctx, tx, n, sortOrder)
	})
}

// InsertDomain inserts or replaces a domain.
func (d *DB) InsertDomain(ctx context.Context, dom content.Domain) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		return insertDomain(ctx, tx, dom)
	})
}

// Import writes a tree description in one transaction.
func (d *DB) Import(ctx context.Context, f content.File) error {
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		var walk func(parentID int, specs []content.NodeSpec) error
		walk = func(parentID int, specs []content.NodeSpec) error {
			for i, spec := range specs {
				published := len(spec.Cultures) == 0
				if spec.Published != nil {
					published = *spec.Published
				}
				n := content.Node{
					ID:                spec.ID,
					ParentID:          parentID,
					Name:              spec.Name,
					Segment:           spec.Segment,
					Segments:          spec.Segments,
					ContentType:       spec.ContentType,
					Published:         published,
					PublishedCultures: spec.Cultures,
				}
				if err := insertNode(ctx, tx, n, i); err != nil {
					return err
				}
				if err := walk(spec.ID, spec.Children); err != nil {
					return err
				}
			}
			return nil
		}
		if err := walk(0, f.Nodes); err != nil {
			return err
		}
		for _, ds := range f.Domains {
			dom := content.Domain{
				ID:            ds.ID,
				Name:          ds.Name,
				Culture:       ds.Culture,
				RootContentID: ds.Root,
				Wildcard:      ds.Wildcard,
				SortOrder:     ds.SortOrder,
			}
			if err := insertDomain(ctx, tx, dom); err != nil {
				return err
			}
		}
		if f.DefaultCulture != "" {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
				defaultCultureKey, f.DefaultCulture); err != nil {
				return fmt.Errorf("storing default culture: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "content imported", "path", d.path, "domains", len(f.Domains))

	return nil
}

// File reads the database as a tree description.
func (d *DB) File(ctx context.Context) (content.File, error) {
	var f content.File

	err := d.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, defaultCultureKey).Scan(&f.DefaultCulture)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return f, fmt.Errorf("reading default culture: %w", err)
	}

	specs, parents, err := d.readNodes(ctx)
	if err != nil {
		return f, err
	}
	children := make(map[int][]int, len(parents.order))
	for _, id := range parents.order {
		p := parents.parent[id]
		children[p] = append(children[p], id)
	}
	var build func(parentID int) []content.NodeSpec
	seen := 0
	build = func(parentID int) []content.NodeSpec {
		ids := children[parentID]
		out := make([]content.NodeSpec, 0, len(ids))
		for _, id := range ids {
			spec := specs[id]
			seen++
			spec.Children = build(id)
			out = append(out, spec)
		}
		return out
	}
	f.Nodes = build(0)
	if seen != len(specs) {
		return f, fmt.Errorf("%w: %d of %d nodes", ErrUnreachable, len(specs)-seen, len(specs))
	}

	if f.Domains, err = d.readDomains(ctx); err != nil {
		return f, err
	}

	return f, nil
}

// Load builds a store from the database.
func (d *DB) Load(ctx context.Context, opts ...content.StoreOption) (*content.Store, error) {
	f, err := d.File(ctx)
	if err != nil {
		return nil, err
	}
	s, err := content.Build(ctx, f, opts...)
	if err != nil {
		return nil, fmt.Errorf("building store: %w", err)
	}
	d.logger.DebugContext(ctx, "content loaded", "path", d.path, "nodes", s.Len())

	return s, nil
}

type parentIndex struct {
	order  []int
	parent map[int]int
}

func (d *DB) readNodes(ctx context.Context) (map[int]content.NodeSpec, parentIndex, error) {
	idx := parentIndex{parent: make(map[int]int)}
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, parent_id, name, segment, content_type, published FROM nodes ORDER BY parent_id, sort_order, id`)
	if err != nil {
		return nil, idx, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	specs := make(map[int]content.NodeSpec)
	for rows.Next() {
		var (
			spec      content.NodeSpec
			parentID  int
			published bool
		)
		if err = rows.Scan(&spec.ID, &parentID, &spec.Name, &spec.Segment, &spec.ContentType, &published); err != nil {
			return nil, idx, fmt.Errorf("scanning node: %w", err)
		}
		spec.Published = &published
		specs[spec.ID] = spec
		idx.order = append(idx.order, spec.ID)
		idx.parent[spec.ID] = parentID
	}
	if err = rows.Err(); err != nil {
		return nil, idx, fmt.Errorf("reading nodes: %w", err)
	}

	if err = d.readPairs(ctx, `SELECT node_id, culture, segment FROM node_segments ORDER BY node_id, culture`, func(id int, culture, segment string) {
		spec := specs[id]
		if spec.Segments == nil {
			spec.Segments = make(map[string]string)
		}
		spec.Segments[culture] = segment
		specs[id] = spec
	}); err != nil {
		return nil, idx, err
	}
	if err = d.readPairs(ctx, `SELECT node_id, culture, '' FROM node_cultures ORDER BY node_id, culture`, func(id int, culture, _ string) {
		spec := specs[id]
		spec.Cultures = append(spec.Cultures, culture)
		specs[id] = spec
	}); err != nil {
		return nil, idx, err
	}

	return specs, idx, nil
}

func (d *DB) readPairs(ctx context.Context, query string, fn func(id int, a, b string)) error {
	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying %q: %w", query, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int
			a, b string
		)
		if err = rows.Scan(&id, &a, &b); err != nil {
			return fmt.Errorf("scanning %q: %w", query, err)
		}
		fn(id, a, b)
	}

	return rows.Err()
}

func (d *DB) readDomains(ctx context.Context) ([]content.DomainSpec, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, name, culture, root_id, wildcard, sort_order FROM domains ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("querying domains: %w", err)
	}
	defer rows.Close()

	var out []content.DomainSpec
	for rows.Next() {
		var ds content.DomainSpec
		if err = rows.Scan(&ds.ID, &ds.Name, &ds.Culture, &ds.Root, &ds.Wildcard, &ds.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning domain: %w", err)
		}
		out = append(out, ds)
	}

	return out, rows.Err()
}

func (d *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	return nil
}

func insertNode(ctx context.Context, tx *sql.Tx, n content.Node, sortOrder int) error {
	if n.ID <= 0 {
		return fmt.Errorf("%w: id %d", content.ErrInvalidNode, n.ID)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (id, parent_id, sort_order, name, segment, content_type, published)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			parent_id = excluded.parent_id, sort_order = excluded.sort_order, name = excluded.name,
			segment = excluded.segment, content_type = excluded.content_type, published = excluded.published`,
		n.ID, n.ParentID, sortOrder, n.Name, n.Segment, n.ContentType, n.Published)
	if err != nil {
		return fmt.Errorf("inserting node %d: %w", n.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM node_segments WHERE node_id = ?`, n.ID); err != nil {
		return fmt.Errorf("clearing segments of node %d: %w", n.ID, err)
	}
	cultures := make([]string, 0, len(n.Segments))
	for c := range n.Segments {
		cultures = append(cultures, c)
	}
	slices.Sort(cultures)
	for _, c := range cultures {
		if _, err = tx.ExecContext(ctx, `INSERT INTO node_segments (node_id, culture, segment) VALUES (?, ?, ?)`, n.ID, c, n.Segments[c]); err != nil {
			return fmt.Errorf("inserting segment of node %d: %w", n.ID, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM node_cultures WHERE node_id = ?`, n.ID); err != nil {
		return fmt.Errorf("clearing cultures of node %d: %w", n.ID, err)
	}
	for _, c := range n.PublishedCultures {
		if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO node_cultures (node_id, culture) VALUES (?, ?)`, n.ID, c); err != nil {
			return fmt.Errorf("inserting culture of node %d: %w", n.ID, err)
		}
	}

	return nil
}

func insertDomain(ctx context.Context, tx *sql.Tx, dom content.Domain) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO domains (id, name, culture, root_id, wildcard, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, culture = excluded.culture, root_id = excluded.root_id,
			wildcard = excluded.wildcard, sort_order = excluded.sort_order`,
		dom.ID, dom.Name, dom.Culture, dom.RootContentID, dom.Wildcard, dom.SortOrder)
	if err != nil {
		return fmt.Errorf("inserting domain %d: %w", dom.ID, err)
	}

	return nil
}
