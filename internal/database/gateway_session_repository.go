package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/utils"
	"github.com/google/uuid"
)

// GatewaySessionRepository keeps one row per browsing session
type GatewaySessionRepository struct {
	db DB
}

// NewGatewaySessionRepository creates a new gateway session repository
func NewGatewaySessionRepository(db DB) *GatewaySessionRepository {
	return &GatewaySessionRepository{
		db: db,
	}
}

// RecordVisit creates the session row or refreshes its last_seen_at and client details
func (r *GatewaySessionRepository) RecordVisit(sessionID uuid.UUID, ipAddress, userAgent string, device utils.DeviceInfo) (*models.GatewaySession, error) {
	query := `
		INSERT INTO gateway_sessions (
			id, ip_address, user_agent, device_type, browser, os, created_at, last_seen_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $7
		)
		ON CONFLICT (id) DO UPDATE SET
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent,
			last_seen_at = EXCLUDED.last_seen_at
		RETURNING id, ip_address, user_agent, device_type, browser, os, created_at, last_seen_at
	`

	session := &models.GatewaySession{}
	err := r.db.QueryRow(
		query,
		sessionID,
		nullString(ipAddress),
		nullString(userAgent),
		nullString(device.DeviceType),
		nullString(device.Browser),
		nullString(device.OS),
		time.Now(),
	).Scan(
		&session.ID,
		&session.IPAddress,
		&session.UserAgent,
		&session.DeviceType,
		&session.Browser,
		&session.OS,
		&session.CreatedAt,
		&session.LastSeenAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record session visit: %w", err)
	}

	return session, nil
}

// GetByID retrieves a session row, nil when it does not exist
func (r *GatewaySessionRepository) GetByID(sessionID uuid.UUID) (*models.GatewaySession, error) {
	query := `
		SELECT id, ip_address, user_agent, device_type, browser, os, created_at, last_seen_at
		FROM gateway_sessions
		WHERE id = $1
	`

	session := &models.GatewaySession{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.IPAddress,
		&session.UserAgent,
		&session.DeviceType,
		&session.Browser,
		&session.OS,
		&session.CreatedAt,
		&session.LastSeenAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// CountActiveSince counts sessions seen after the given time
func (r *GatewaySessionRepository) CountActiveSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM gateway_sessions WHERE last_seen_at > $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// DeleteInactive removes sessions not seen within the given duration
func (r *GatewaySessionRepository) DeleteInactive(olderThan time.Duration) (int64, error) {
	query := `DELETE FROM gateway_sessions WHERE last_seen_at < $1`

	result, err := r.db.Exec(query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// nullString returns sql.NullString for empty strings
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
