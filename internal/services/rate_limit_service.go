package services

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/gogobus/booking-gateway/internal/database"
)

// RateLimiter limits booking and payment attempts per client
type RateLimiter interface {
	CheckCheckoutRateLimit(ip, sessionID string) error
	RecordCheckoutAttempt(ip, sessionID string) error
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRequests int           // Max checkout attempts per identifier
	Window      time.Duration // Time window for the limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 20,
		Window:      10 * time.Minute,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "ip" or "session"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func newRateLimitError(identifierType string, retryAfter time.Time) *RateLimitError {
	subject := "this IP address"
	if identifierType == "session" {
		subject = "this session"
	}
	return &RateLimitError{
		Message:    fmt.Sprintf("Too many checkout attempts from %s. Please try again after %s", subject, retryAfter.Format("15:04:05")),
		RetryAfter: retryAfter,
		Type:       identifierType,
	}
}

// RateLimitService keeps checkout attempts in PostgreSQL
type RateLimitService struct {
	db     database.DB
	config RateLimitConfig
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, config RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: config,
	}
}

// CheckCheckoutRateLimit checks if an IP or a session has exceeded the limit
func (s *RateLimitService) CheckCheckoutRateLimit(ip, sessionID string) error {
	for _, id := range []struct{ value, kind string }{{ip, "ip"}, {sessionID, "session"}} {
		if id.value == "" {
			continue
		}
		count, lastRequest, err := s.getRequestCount(id.value, id.kind)
		if err != nil {
			return fmt.Errorf("failed to check %s rate limit: %w", id.kind, err)
		}
		if count >= s.config.MaxRequests {
			return newRateLimitError(id.kind, lastRequest.Add(s.config.Window))
		}
	}
	return nil
}

// getRequestCount gets the number of attempts within the window
func (s *RateLimitService) getRequestCount(identifier, identifierType string) (int, time.Time, error) {
	windowStart := time.Now().Add(-s.config.Window)

	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM checkout_rate_limits
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var count int
	var lastRequest time.Time

	err := s.db.QueryRow(query, identifier, identifierType, windowStart).Scan(&count, &lastRequest)
	if err != nil && err != sql.ErrNoRows {
		return 0, time.Time{}, err
	}

	return count, lastRequest, nil
}

// RecordCheckoutAttempt records an attempt for both identifiers
func (s *RateLimitService) RecordCheckoutAttempt(ip, sessionID string) error {
	if ip != "" {
		if err := s.recordRequest(ip, "ip"); err != nil {
			return fmt.Errorf("failed to record IP attempt: %w", err)
		}
	}
	if sessionID != "" {
		if err := s.recordRequest(sessionID, "session"); err != nil {
			return fmt.Errorf("failed to record session attempt: %w", err)
		}
	}
	return nil
}

func (s *RateLimitService) recordRequest(identifier, identifierType string) error {
	query := `
		INSERT INTO checkout_rate_limits (identifier, identifier_type, created_at)
		VALUES ($1, $2, NOW())
	`

	_, err := s.db.Exec(query, identifier, identifierType)
	return err
}

// CleanupExpiredRateLimits removes attempts older than the window
func (s *RateLimitService) CleanupExpiredRateLimits() (int64, error) {
	cutoffTime := time.Now().Add(-s.config.Window)

	query := `
		DELETE FROM checkout_rate_limits
		WHERE created_at < $1
	`

	result, err := s.db.Exec(query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// MemoryRateLimiter is the rate limiter used when no database is configured
type MemoryRateLimiter struct {
	mu       sync.Mutex
	config   RateLimitConfig
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewMemoryRateLimiter creates an in-process rate limiter
func NewMemoryRateLimiter(config RateLimitConfig) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		config:   config,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// CheckCheckoutRateLimit checks if an IP or a session has exceeded the limit
func (m *MemoryRateLimiter) CheckCheckoutRateLimit(ip, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range []struct{ value, kind string }{{ip, "ip"}, {sessionID, "session"}} {
		if id.value == "" {
			continue
		}
		recent := m.prune(id.kind + ":" + id.value)
		if len(recent) >= m.config.MaxRequests {
			return newRateLimitError(id.kind, recent[len(recent)-1].Add(m.config.Window))
		}
	}
	return nil
}

// RecordCheckoutAttempt records an attempt for both identifiers
func (m *MemoryRateLimiter) RecordCheckoutAttempt(ip, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if ip != "" {
		key := "ip:" + ip
		m.attempts[key] = append(m.prune(key), now)
	}
	if sessionID != "" {
		key := "session:" + sessionID
		m.attempts[key] = append(m.prune(key), now)
	}
	return nil
}

// CleanupExpiredRateLimits drops identifiers with no attempts inside the window
func (m *MemoryRateLimiter) CleanupExpiredRateLimits() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key := range m.attempts {
		if len(m.prune(key)) == 0 {
			delete(m.attempts, key)
			removed++
		}
	}
	return removed, nil
}

// prune must be called with the lock held
func (m *MemoryRateLimiter) prune(key string) []time.Time {
	cutoff := m.now().Add(-m.config.Window)
	attempts, ok := m.attempts[key]
	if !ok {
		return nil
	}
	i := 0
	for i < len(attempts) && !attempts[i].After(cutoff) {
		i++
	}
	attempts = attempts[i:]
	m.attempts[key] = attempts
	return attempts
}
