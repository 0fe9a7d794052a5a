package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// GatewaySession is the bookkeeping row of one browsing session
type GatewaySession struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	IPAddress  sql.NullString `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  sql.NullString `json:"user_agent,omitempty" db:"user_agent"`
	DeviceType sql.NullString `json:"device_type,omitempty" db:"device_type"`
	Browser    sql.NullString `json:"browser,omitempty" db:"browser"`
	OS         sql.NullString `json:"os,omitempty" db:"os"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	LastSeenAt time.Time      `json:"last_seen_at" db:"last_seen_at"`
}
