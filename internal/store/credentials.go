package store

import (
	"context"
	"fmt"

	"chatgate/internal/domain"
)

// Credentials is the credential store: username to CredentialRecord.
type Credentials struct {
	t *table[domain.CredentialRecord]
}

var _ domain.CredentialRepository = (*Credentials)(nil)

// OpenCredentials loads the credential document, creating an empty one if it
// does not exist yet. A document that exists but cannot be parsed yields a
// *domain.StorageError.
func OpenCredentials(ctx context.Context, doc domain.DocumentStore) (*Credentials, error) {
	t, err := loadTable[domain.CredentialRecord](ctx, doc)
	if err != nil {
		return nil, err
	}
	return &Credentials{t: t}, nil
}

// Get returns a copy of the user's record.
func (c *Credentials) Get(ctx context.Context, username string) (*domain.CredentialRecord, bool) {
	c.t.mu.RLock()
	defer c.t.mu.RUnlock()

	rec, ok := c.t.rows[username]
	if !ok {
		return nil, false
	}
	cp := rec.Clone()
	return &cp, true
}

// Exists reports whether username has a record.
func (c *Credentials) Exists(ctx context.Context, username string) bool {
	c.t.mu.RLock()
	defer c.t.mu.RUnlock()

	_, ok := c.t.rows[username]
	return ok
}

// Put inserts or replaces the user's record.
func (c *Credentials) Put(ctx context.Context, username string, rec domain.CredentialRecord) error {
	norm, err := rec.Normalize()
	if err != nil {
		return fmt.Errorf("credential %q: %w", username, err)
	}

	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return c.t.set(ctx, username, norm)
}

// PutIfAbsent stores rec unless username already has a record.
func (c *Credentials) PutIfAbsent(ctx context.Context, username string, rec domain.CredentialRecord) (bool, error) {
	norm, err := rec.Normalize()
	if err != nil {
		return false, fmt.Errorf("credential %q: %w", username, err)
	}

	c.t.mu.Lock()
	defer c.t.mu.Unlock()

	if _, ok := c.t.rows[username]; ok {
		return false, nil
	}
	if err := c.t.set(ctx, username, norm); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the user's record. Removing an unknown user is an error.
func (c *Credentials) Remove(ctx context.Context, username string) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()

	if _, ok := c.t.rows[username]; !ok {
		return fmt.Errorf("credential %q: %w", username, domain.ErrNotFound)
	}
	return c.t.drop(ctx, username)
}

// Len returns the number of stored records.
func (c *Credentials) Len() int {
	c.t.mu.RLock()
	defer c.t.mu.RUnlock()
	return len(c.t.rows)
}
