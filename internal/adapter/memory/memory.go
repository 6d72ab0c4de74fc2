// Package memory implements an in-memory document backend for development and testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"chatgate/internal/domain"
)

// DB holds named documents in process memory. Contents are lost on exit.
type DB struct {
	mu   sync.Mutex
	docs map[string][]byte
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		docs: make(map[string][]byte),
	}
}

// Ensure interfaces are met.
var _ domain.DocumentStore = (*Document)(nil)

// Document returns a handle on the named document. Handles for the same
// name share contents.
func (db *DB) Document(name string) *Document {
	return &Document{db: db, name: name}
}

// Names lists the documents that have been written.
func (db *DB) Names() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	names := make([]string, 0, len(db.docs))
	for n := range db.docs {
		names = append(names, n)
	}
	return names
}

// Document is a single named document inside a DB.
type Document struct {
	db   *DB
	name string
}

// Name returns the document name.
func (d *Document) Name() string { return d.name }

// Read returns a copy of the stored bytes.
func (d *Document) Read(ctx context.Context) ([]byte, error) {
	d.db.mu.Lock()
	defer d.db.mu.Unlock()

	data, ok := d.db.docs[d.name]
	if !ok {
		return nil, fmt.Errorf("memory document %q: %w", d.name, domain.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write replaces the stored bytes.
func (d *Document) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	d.db.mu.Lock()
	defer d.db.mu.Unlock()
	d.db.docs[d.name] = buf
	return nil
}
