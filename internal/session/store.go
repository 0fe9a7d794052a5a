package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Store keys. They match the keys the web front-end kept in browser storage.
const (
	KeyPassengers  = "gogobus_passengers"
	KeySelection   = "gogobus_selection"
	KeyLastBooking = "gogobus_last_booking"
	KeyToken       = "gogobus_token"
	KeyUser        = "gogobus_user"
	KeyPaymentURLs = "gogobus_payment_urls"
)

// Store is a session-scoped key/value store. Values are JSON documents.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get loads the value stored under key into dest and reports whether it existed
	Get(ctx context.Context, sessionID uuid.UUID, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, sessionID uuid.UUID, key string, value interface{}) error
	Delete(ctx context.Context, sessionID uuid.UUID, key string) error
	// Clear drops every value of the session
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

func encode(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session value: %w", err)
	}
	return data, nil
}

func decode(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode session value: %w", err)
	}
	return nil
}
