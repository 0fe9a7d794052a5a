package services

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gogobus/booking-gateway/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimitTest(t *testing.T) (*RateLimitService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}
	service := NewRateLimitService(postgresDB, RateLimitConfig{MaxRequests: 3, Window: 10 * time.Minute})

	cleanup := func() {
		db.Close()
	}

	return service, mock, cleanup
}

func TestCheckCheckoutRateLimit_NoRequests(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	ip := "192.168.1.1"
	sessionID := "4f1c2a6e-0000-4000-8000-000000000001"

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs(ip, "ip", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(0, time.Now()))

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs(sessionID, "session", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(0, time.Now()))

	err := service.CheckCheckoutRateLimit(ip, sessionID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCheckoutRateLimit_IPExceeded(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	ip := "192.168.1.1"
	lastRequest := time.Now().Add(-5 * time.Minute)

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs(ip, "ip", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(3, lastRequest))

	err := service.CheckCheckoutRateLimit(ip, "sess-1")
	require.Error(t, err)

	var rateLimitErr *RateLimitError
	require.True(t, errors.As(err, &rateLimitErr), "Error should be RateLimitError")
	assert.Equal(t, "ip", rateLimitErr.Type)
	assert.Contains(t, rateLimitErr.Message, "Too many checkout attempts from this IP address")
	assert.True(t, rateLimitErr.RetryAfter.After(time.Now()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCheckoutRateLimit_SessionExceeded(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	lastRequest := time.Now().Add(-time.Minute)

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs("10.0.0.1", "ip", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(1, lastRequest))

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs("sess-1", "session", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "created_at"}).
			AddRow(5, lastRequest))

	err := service.CheckCheckoutRateLimit("10.0.0.1", "sess-1")
	var rateLimitErr *RateLimitError
	require.True(t, errors.As(err, &rateLimitErr))
	assert.Equal(t, "session", rateLimitErr.Type)
	assert.Contains(t, rateLimitErr.Message, "this session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckCheckoutRateLimit_DatabaseError(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT(.+) FROM checkout_rate_limits").
		WithArgs("10.0.0.1", "ip", sqlmock.AnyArg()).
		WillReturnError(sql.ErrConnDone)

	err := service.CheckCheckoutRateLimit("10.0.0.1", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check ip rate limit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCheckoutAttempt_Success(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO checkout_rate_limits").
		WithArgs("10.0.0.1", "ip").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("INSERT INTO checkout_rate_limits").
		WithArgs("sess-1", "session").
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := service.RecordCheckoutAttempt("10.0.0.1", "sess-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCheckoutAttempt_IPOnly(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO checkout_rate_limits").
		WithArgs("10.0.0.1", "ip").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := service.RecordCheckoutAttempt("10.0.0.1", "")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupExpiredRateLimits_Success(t *testing.T) {
	service, mock, cleanup := setupRateLimitTest(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM checkout_rate_limits").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 10))

	rowsAffected, err := service.CleanupExpiredRateLimits()
	assert.NoError(t, err)
	assert.Equal(t, int64(10), rowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRateLimiter(t *testing.T) {
	limiter := NewMemoryRateLimiter(RateLimitConfig{MaxRequests: 2, Window: time.Minute})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	require.NoError(t, limiter.CheckCheckoutRateLimit("10.0.0.1", "s1"))
	require.NoError(t, limiter.RecordCheckoutAttempt("10.0.0.1", "s1"))
	require.NoError(t, limiter.RecordCheckoutAttempt("10.0.0.1", "s2"))

	err := limiter.CheckCheckoutRateLimit("10.0.0.1", "s3")
	var rateLimitErr *RateLimitError
	require.True(t, errors.As(err, &rateLimitErr))
	assert.Equal(t, "ip", rateLimitErr.Type)
	assert.Equal(t, now.Add(time.Minute), rateLimitErr.RetryAfter)

	assert.NoError(t, limiter.CheckCheckoutRateLimit("10.0.0.2", "s1"))

	now = now.Add(2 * time.Minute)
	assert.NoError(t, limiter.CheckCheckoutRateLimit("10.0.0.1", "s3"))

	removed, err := limiter.CleanupExpiredRateLimits()
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	config := DefaultRateLimitConfig()

	assert.Equal(t, 20, config.MaxRequests)
	assert.Equal(t, 10*time.Minute, config.Window)
}
