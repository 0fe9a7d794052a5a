package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gogobus/booking-gateway/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB interface defines database operations
type DB interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
	Ping() error
	Close() error
}

// PostgresDB implements the DB interface using sqlx
type PostgresDB struct {
	*sqlx.DB
}

// ApplicationName tags gateway connections in pg_stat_activity
const ApplicationName = "gogobus-booking-gateway"

// Pool defaults for the bookkeeping database. Sessions, audit rows and rate
// limit rows are small writes, so the pool stays small.
const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 30 * time.Minute
)

// NewConnection opens the gateway database and applies the pool settings
func NewConnection(cfg config.DatabaseConfig) (DB, error) {
	connectionURL, err := BuildConnectionURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	configurePool(db.DB, cfg)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// BuildConnectionURL adds the parameters the gateway needs to a DATABASE_URL.
// Poolers (Supavisor, pgbouncer) need the simple protocol; the application
// name is only added when the URL does not set one.
func BuildConnectionURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("database URL is required")
	}

	params := make([]string, 0, 2)
	if !strings.Contains(raw, "prefer_simple_protocol") {
		params = append(params, "prefer_simple_protocol=true")
	}
	if !strings.Contains(raw, "application_name") {
		params = append(params, "application_name="+ApplicationName)
	}
	if len(params) == 0 {
		return raw, nil
	}

	separator := "?"
	if strings.Contains(raw, "?") {
		separator = "&"
	}
	return raw + separator + strings.Join(params, "&"), nil
}

// configurePool applies the configured limits, falling back to the gateway defaults
func configurePool(db *sql.DB, cfg config.DatabaseConfig) {
	maxOpen := cfg.MaxConnections
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := cfg.MaxIdleConnections
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = min(defaultMaxIdleConns, maxOpen)
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(lifetime / 2)
}

// Get wraps sqlx.Get
func (db *PostgresDB) Get(dest interface{}, query string, args ...interface{}) error {
	return db.DB.Get(dest, query, args...)
}

// Select wraps sqlx.Select
func (db *PostgresDB) Select(dest interface{}, query string, args ...interface{}) error {
	return db.DB.Select(dest, query, args...)
}

// Exec wraps sqlx.Exec
func (db *PostgresDB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.DB.Exec(query, args...)
}

// QueryRow wraps sqlx.QueryRow
func (db *PostgresDB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRow(query, args...)
}

// Query wraps sqlx.Query
func (db *PostgresDB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.DB.Query(query, args...)
}

// Ping wraps sqlx.Ping
func (db *PostgresDB) Ping() error {
	return db.DB.Ping()
}

// Close wraps sqlx.Close
func (db *PostgresDB) Close() error {
	return db.DB.Close()
}
