package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chatgate/internal/domain"
)

var _ domain.DocumentStore = (*Document)(nil)

// Document is one row of the documents table.
type Document struct {
	db   *DB
	name string
}

// Document returns a handle on the named row.
func (d *DB) Document(name string) *Document {
	return &Document{db: d, name: name}
}

// Name returns the document name.
func (doc *Document) Name() string { return doc.name }

// Read returns the stored body.
func (doc *Document) Read(ctx context.Context) ([]byte, error) {
	var body string
	err := doc.db.sql.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE name = $1",
		doc.name,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", doc.name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// Write upserts the body.
func (doc *Document) Write(ctx context.Context, data []byte) error {
	_, err := doc.db.sql.ExecContext(ctx,
		"INSERT INTO documents (name, body, updated_at) VALUES ($1, $2, $3) ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at",
		doc.name, string(data), doc.db.now().UTC(),
	)
	return err
}
