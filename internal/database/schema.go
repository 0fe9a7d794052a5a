package database

import "fmt"

// schemaStatements create the tables the gateway owns. The remote API keeps
// trips, seats and bookings; only session and bookkeeping state lives here.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS session_values (
		session_id UUID NOT NULL,
		key        TEXT NOT NULL,
		value      JSONB NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (session_id, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_values_expires_at ON session_values (expires_at)`,
	`CREATE TABLE IF NOT EXISTS gateway_sessions (
		id           UUID PRIMARY KEY,
		ip_address   TEXT,
		user_agent   TEXT,
		device_type  TEXT,
		browser      TEXT,
		os           TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          UUID PRIMARY KEY,
		session_id  UUID,
		action      TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id   TEXT,
		ip_address  TEXT,
		user_agent  TEXT,
		details     JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS checkout_rate_limits (
		identifier      TEXT NOT NULL,
		identifier_type TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_checkout_rate_limits_lookup ON checkout_rate_limits (identifier, identifier_type, created_at)`,
}

// EnsureSchema creates the gateway tables if they do not exist yet
func EnsureSchema(db DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
