package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"chatgate/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	s, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS documents")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	d, err := New(context.Background(), s)
	require.NoError(t, err)
	d.now = func() time.Time { return fixedNow }
	return d, mock
}

func TestNew_MigrateError(t *testing.T) {
	s, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer s.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	_, err = New(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocument_Read(t *testing.T) {
	d, mock := newMockDB(t)
	doc := d.Document("users.json")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM documents WHERE name = $1")).
		WithArgs("users.json").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(`{"alice": {}}`))

	got, err := doc.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"alice": {}}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocument_ReadMissing(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectQuery("SELECT body FROM documents").
		WithArgs("users_cookie.json").
		WillReturnError(sql.ErrNoRows)

	_, err := d.Document("users_cookie.json").Read(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocument_ReadError(t *testing.T) {
	d, mock := newMockDB(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery("SELECT body FROM documents").WillReturnError(boom)

	_, err := d.Document("users.json").Read(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestDocument_Write(t *testing.T) {
	d, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents (name, body, updated_at) VALUES ($1, $2, $3) ON CONFLICT (name) DO UPDATE")).
		WithArgs("users.json", `{"a": 1}`, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, d.Document("users.json").Write(context.Background(), []byte(`{"a": 1}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocument_WriteError(t *testing.T) {
	d, mock := newMockDB(t)
	boom := errors.New("disk full")

	mock.ExpectExec("INSERT INTO documents").WillReturnError(boom)

	err := d.Document("users.json").Write(context.Background(), []byte("{}"))
	assert.ErrorIs(t, err, boom)
}
