package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gogobus/booking-gateway/internal/database"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	store := NewPostgresStore(&database.PostgresDB{DB: sqlxDB}, time.Hour)

	return store, mock, func() { db.Close() }
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock, cleanup := setupPostgresStore(t)
	defer cleanup()

	id := uuid.New()
	rows := sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"12A":{"first_name":"Ana"}}`))
	mock.ExpectQuery("SELECT value FROM session_values").
		WithArgs(id, KeyPassengers).
		WillReturnRows(rows)

	var drafts map[string]map[string]string
	found, err := store.Get(context.Background(), id, KeyPassengers, &drafts)

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ana", drafts["12A"]["first_name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock, cleanup := setupPostgresStore(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery("SELECT value FROM session_values").
		WithArgs(id, KeyToken).
		WillReturnError(sql.ErrNoRows)

	var token string
	found, err := store.Get(context.Background(), id, KeyToken, &token)

	require.NoError(t, err)
	assert.False(t, found)
}

func TestPostgresStore_Set(t *testing.T) {
	store, mock, cleanup := setupPostgresStore(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectExec("INSERT INTO session_values").
		WithArgs(id, KeyToken, []byte(`"abc"`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), id, KeyToken, "abc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Clear(t *testing.T) {
	store, mock, cleanup := setupPostgresStore(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectExec("DELETE FROM session_values WHERE session_id").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, store.Clear(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpired(t *testing.T) {
	store, mock, cleanup := setupPostgresStore(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM session_values WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 7))

	removed, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), removed)
}
