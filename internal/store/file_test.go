package store

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"chatgate/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDocument_ReadMissing(t *testing.T) {
	doc := NewFileDocument(filepath.Join(t.TempDir(), "nope.json"))

	_, err := doc.Read(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileDocument_WriteCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".chatgate", "users.json")
	doc := NewFileDocument(path)

	require.NoError(t, doc.Write(ctx, []byte(`{"a": 1}`)))
	require.NoError(t, doc.Write(ctx, []byte(`{"b": 2}`)))

	got, err := doc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"b": 2}`, string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
}

func TestFileDocument_PrettyPrintedStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")

	c, err := OpenCredentials(ctx, NewFileDocument(path))
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "alice", domain.CredentialRecord{Password: strPtr("pw")}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n    \"alice\": {\n        \"auth_type\": \"local\"")
}
