package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chatgate/internal/domain"
)

// fakeDoc is an in-memory DocumentStore that can be told to fail.
type fakeDoc struct {
	mu       sync.Mutex
	data     []byte
	exists   bool
	writes   int
	readErr  error
	writeErr error
}

func (f *fakeDoc) Name() string { return "fake.json" }

func (f *fakeDoc) Read(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	if !f.exists {
		return nil, fmt.Errorf("fake: %w", domain.ErrNotFound)
	}
	return append([]byte(nil), f.data...), nil
}

func (f *fakeDoc) Write(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.data = append([]byte(nil), data...)
	f.exists = true
	f.writes++
	return nil
}

func (f *fakeDoc) contents() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.data)
}

var errDisk = errors.New("disk full")

func strPtr(s string) *string { return &s }
