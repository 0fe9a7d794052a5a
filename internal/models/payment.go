package models

// PaymentStatus is the simplified status reported by the status check
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// DefaultPaymentCurrency is the ISO code sent to the payment provider
const DefaultPaymentCurrency = "PEN"

// PreferenceRequest asks for a payment redirect for a booking
type PreferenceRequest struct {
	BookingID  string  `json:"booking_id" binding:"required"`
	Amount     float64 `json:"amount" binding:"gte=0"`
	Currency   string  `json:"currency"`
	PaymentURL string  `json:"payment_url"`
}

// PreferenceSource tells where a payment redirect came from
type PreferenceSource string

const (
	PreferenceSourceCached  PreferenceSource = "cached"
	PreferenceSourceBackend PreferenceSource = "backend"
	PreferenceSourceDirect  PreferenceSource = "direct"
)

// PaymentPreference is a resolved payment redirect
type PaymentPreference struct {
	BookingID   string           `json:"booking_id"`
	RedirectURL string           `json:"redirect_url"`
	Source      PreferenceSource `json:"source"`
}
