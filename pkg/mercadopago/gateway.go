package mercadopago

import "context"

// PreferenceCreator defines the interface for creating checkout preferences
type PreferenceCreator interface {
	// CreatePreference creates a checkout preference for a booking.
	// Returns the redirect URL, or "" when the provider answered without one.
	CreatePreference(ctx context.Context, params PreferenceParams) (string, error)
}
