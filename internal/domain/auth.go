// Package domain contains the core business entities and interfaces.
package domain

import "context"

// DocumentStore is the port for a durable medium holding one JSON document.
// Every Write replaces the whole document.
type DocumentStore interface {
	// Name identifies the document in errors and logs.
	Name() string
	// Read returns the stored document, or an error wrapping ErrNotFound when
	// nothing was ever written.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// CredentialRepository defines the port for credential persistence operations.
type CredentialRepository interface {
	// Get returns a private copy of the record; ok is false when the user is
	// unknown.
	Get(ctx context.Context, username string) (rec *CredentialRecord, ok bool)
	Exists(ctx context.Context, username string) bool
	Put(ctx context.Context, username string, rec CredentialRecord) error
	// PutIfAbsent stores rec only when username has no record yet.
	PutIfAbsent(ctx context.Context, username string, rec CredentialRecord) (created bool, err error)
	Remove(ctx context.Context, username string) error
}

// SessionRepository defines the port for session persistence operations.
type SessionRepository interface {
	Get(ctx context.Context, username string) (rec *SessionRecord, ok bool)
	MergeFields(ctx context.Context, username string, fields map[string]any) error
	AppendHistory(ctx context.Context, username, conversationID string, data map[string]any) (HistoryEntry, error)
}

// SSOVerifier checks a username/password pair against an external identity
// provider. A failed verification reports the provider's reason in message.
type SSOVerifier interface {
	Verify(ctx context.Context, username, password string) (ok bool, message string)
}
