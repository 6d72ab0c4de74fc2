// Package store implements the credential and session stores: in-memory
// mappings mirrored write-through into a domain.DocumentStore.
//
// Every mutation rewrites the whole document before returning. That is fine
// for small user bases and is the scalability ceiling of this package.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"chatgate/internal/domain"
)

// table is a username-keyed mapping guarded by one lock and flushed as a
// single pretty-printed JSON object.
type table[T any] struct {
	mu   sync.RWMutex
	doc  domain.DocumentStore
	rows map[string]T
}

func loadTable[T any](ctx context.Context, doc domain.DocumentStore) (*table[T], error) {
	t := &table[T]{doc: doc, rows: make(map[string]T)}

	data, err := doc.Read(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		// Establish the document so later loads never see a missing one.
		if err := t.flush(ctx); err != nil {
			return nil, err
		}
		return t, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "read", Name: doc.Name(), Err: err}
	}

	if err := json.Unmarshal(data, &t.rows); err != nil {
		return nil, &domain.StorageError{Op: "parse", Name: doc.Name(), Err: err}
	}
	if t.rows == nil {
		t.rows = make(map[string]T)
	}
	return t, nil
}

// flush must be called with mu held for writing.
func (t *table[T]) flush(ctx context.Context) error {
	data, err := json.MarshalIndent(t.rows, "", "    ")
	if err != nil {
		return &domain.StorageError{Op: "encode", Name: t.doc.Name(), Err: err}
	}
	if err := t.doc.Write(ctx, data); err != nil {
		return &domain.StorageError{Op: "write", Name: t.doc.Name(), Err: err}
	}
	return nil
}

// set stores row under key and flushes. If the flush fails the previous row
// is restored, so memory never runs ahead of the document.
// Must be called with mu held for writing.
func (t *table[T]) set(ctx context.Context, key string, row T) error {
	prev, had := t.rows[key]
	t.rows[key] = row
	if err := t.flush(ctx); err != nil {
		if had {
			t.rows[key] = prev
		} else {
			delete(t.rows, key)
		}
		return err
	}
	return nil
}

// drop deletes key and flushes, restoring it if the flush fails.
// Must be called with mu held for writing.
func (t *table[T]) drop(ctx context.Context, key string) error {
	prev, had := t.rows[key]
	if !had {
		return nil
	}
	delete(t.rows, key)
	if err := t.flush(ctx); err != nil {
		t.rows[key] = prev
		return err
	}
	return nil
}
