package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gogobus/booking-gateway/internal/database"
	"github.com/google/uuid"
)

// PostgresStore keeps session values in the session_values table
type PostgresStore struct {
	db  database.DB
	ttl time.Duration
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(db database.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{
		db:  db,
		ttl: ttl,
	}
}

// Get implements Store
func (s *PostgresStore) Get(ctx context.Context, sessionID uuid.UUID, key string, dest interface{}) (bool, error) {
	query := `
		SELECT value
		FROM session_values
		WHERE session_id = $1 AND key = $2 AND expires_at > NOW()
	`

	var data []byte
	err := s.db.QueryRow(query, sessionID, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read session value %s: %w", key, err)
	}

	return true, decode(data, dest)
}

// Set implements Store. Writing a value extends its expiry.
func (s *PostgresStore) Set(ctx context.Context, sessionID uuid.UUID, key string, value interface{}) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO session_values (session_id, key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = NOW()
	`

	if _, err := s.db.Exec(query, sessionID, key, data, time.Now().Add(s.ttl)); err != nil {
		return fmt.Errorf("failed to write session value %s: %w", key, err)
	}
	return nil
}

// Delete implements Store
func (s *PostgresStore) Delete(ctx context.Context, sessionID uuid.UUID, key string) error {
	query := `DELETE FROM session_values WHERE session_id = $1 AND key = $2`

	if _, err := s.db.Exec(query, sessionID, key); err != nil {
		return fmt.Errorf("failed to delete session value %s: %w", key, err)
	}
	return nil
}

// Clear implements Store
func (s *PostgresStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	query := `DELETE FROM session_values WHERE session_id = $1`

	if _, err := s.db.Exec(query, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// DeleteExpired removes expired values and returns how many rows were dropped
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM session_values WHERE expires_at < NOW()`

	result, err := s.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired session values: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
