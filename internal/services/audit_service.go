package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gogobus/booking-gateway/internal/database"
	"github.com/gogobus/booking-gateway/internal/utils"
	"github.com/google/uuid"
)

// AuditService records booking, payment and session events
type AuditService struct {
	db database.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	SessionID  *uuid.UUID             // Browsing session, nil for background jobs
	Action     string                 // e.g. "booking_created", "payment_preference", "login"
	EntityType string                 // e.g. "booking", "payment", "user"
	EntityID   string                 // Remote id of the affected entity, may be empty
	IPAddress  string                 // Client IP address
	UserAgent  string                 // Client user agent
	Details    map[string]interface{} // Stored as JSONB
}

// LogBookingCreated logs a booking submission and where the result came from
func (s *AuditService) LogBookingCreated(sessionID uuid.UUID, bookingID, tripID string, seats []string, source, ipAddress, userAgent string) error {
	details := map[string]interface{}{
		"trip_id":     tripID,
		"seats":       seats,
		"source":      source,
		"device_info": utils.ParseUserAgent(userAgent),
	}

	return s.logEvent(AuditEvent{
		SessionID:  &sessionID,
		Action:     "booking_created",
		EntityType: "booking",
		EntityID:   bookingID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogPaymentPreference logs a payment redirect handed to the client
func (s *AuditService) LogPaymentPreference(sessionID uuid.UUID, bookingID string, amount float64, source, ipAddress, userAgent string, success bool) error {
	action := "payment_preference"
	if !success {
		action = "payment_preference_failed"
	}

	details := map[string]interface{}{
		"amount":      amount,
		"source":      source,
		"success":     success,
		"device_info": utils.ParseUserAgent(userAgent),
	}

	return s.logEvent(AuditEvent{
		SessionID:  &sessionID,
		Action:     action,
		EntityType: "payment",
		EntityID:   bookingID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogRateLimitViolation logs a rate limit violation event
func (s *AuditService) LogRateLimitViolation(sessionID *uuid.UUID, ipAddress, userAgent, limitType string, retryAfter time.Time) error {
	details := map[string]interface{}{
		"limit_type":  limitType, // "ip" or "session"
		"retry_after": retryAfter,
		"device_info": utils.ParseUserAgent(userAgent),
	}

	return s.logEvent(AuditEvent{
		SessionID:  sessionID,
		Action:     "rate_limit_violation",
		EntityType: "rate_limit",
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogLogin logs a successful login or registration
func (s *AuditService) LogLogin(sessionID uuid.UUID, userID, email, ipAddress, userAgent string, registered bool) error {
	action := "login"
	if registered {
		action = "register"
	}

	details := map[string]interface{}{
		"email":       email,
		"device_info": utils.ParseUserAgent(userAgent),
	}

	return s.logEvent(AuditEvent{
		SessionID:  &sessionID,
		Action:     action,
		EntityType: "user",
		EntityID:   userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogLogout logs a logout event
func (s *AuditService) LogLogout(sessionID uuid.UUID, ipAddress, userAgent string) error {
	return s.logEvent(AuditEvent{
		SessionID:  &sessionID,
		Action:     "logout",
		EntityType: "session",
		EntityID:   sessionID.String(),
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// logEvent writes to the audit_logs table
func (s *AuditService) logEvent(event AuditEvent) error {
	query := `
		INSERT INTO audit_logs (id, session_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	var entityID interface{}
	if event.EntityID != "" {
		entityID = event.EntityID
	}

	_, err = s.db.Exec(
		query,
		uuid.New(),
		event.SessionID,
		event.Action,
		event.EntityType,
		entityID,
		event.IPAddress,
		event.UserAgent,
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// GetRecentEvents retrieves recent audit events for a session
func (s *AuditService) GetRecentEvents(sessionID uuid.UUID, limit int) ([]map[string]interface{}, error) {
	query := `
		SELECT action, entity_type, COALESCE(entity_id, ''), ip_address, user_agent, details, created_at
		FROM audit_logs
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	defer rows.Close()

	events := []map[string]interface{}{}
	for rows.Next() {
		var action, entityType, entityID, ipAddress, userAgent string
		var raw []byte
		var createdAt time.Time

		if err := rows.Scan(&action, &entityType, &entityID, &ipAddress, &userAgent, &raw, &createdAt); err != nil {
			continue
		}

		var details map[string]interface{}
		_ = json.Unmarshal(raw, &details)

		events = append(events, map[string]interface{}{
			"action":      action,
			"entity_type": entityType,
			"entity_id":   entityID,
			"ip_address":  ipAddress,
			"user_agent":  userAgent,
			"details":     details,
			"created_at":  createdAt,
		})
	}

	return events, rows.Err()
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	query := `
		DELETE FROM audit_logs
		WHERE created_at < $1
	`

	result, err := s.db.Exec(query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
