package models

import "time"

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// ParseBookingStatus maps a raw backend status, defaulting to pending
func ParseBookingStatus(raw string) BookingStatus {
	switch s := BookingStatus(raw); s {
	case BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return s
	}
	return BookingStatusPending
}

// BookingPaymentStatus represents the settlement state of a booking
type BookingPaymentStatus string

const (
	BookingPaymentPending  BookingPaymentStatus = "pending"
	BookingPaymentPaid     BookingPaymentStatus = "paid"
	BookingPaymentFailed   BookingPaymentStatus = "failed"
	BookingPaymentRefunded BookingPaymentStatus = "refunded"
)

// BookingRequest is what the checkout submits
type BookingRequest struct {
	TripID      string      `json:"trip_id" binding:"required"`
	SeatIDs     []string    `json:"seat_ids" binding:"required,min=1"`
	Passengers  []Passenger `json:"passengers" binding:"required,min=1"`
	CouponCode  string      `json:"coupon_code,omitempty"`
	TotalAmount float64     `json:"total_amount"`
}

// Booking is a reservation linking a trip, seats and passengers
type Booking struct {
	ID            string               `json:"id"`
	TripID        string               `json:"trip_id"`
	Trip          *Trip                `json:"trip,omitempty"`
	Seats         []Seat               `json:"seats"`
	Passengers    []Passenger          `json:"passengers"`
	Subtotal      float64              `json:"subtotal"`
	Discount      float64              `json:"discount"`
	BusPointsUsed int                  `json:"bus_points_used"`
	Total         float64              `json:"total"`
	Status        BookingStatus        `json:"status"`
	PaymentStatus BookingPaymentStatus `json:"payment_status"`
	PaymentURL    string               `json:"payment_url,omitempty"`
	QRCode        string               `json:"qr_code,omitempty"`
	BookingCode   string               `json:"booking_code"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// BookingTripSummary is the subset of trip data kept with a completed booking
type BookingTripSummary struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DepartureTime string  `json:"departure_time"`
	ArrivalTime   string  `json:"arrival_time,omitempty"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
}

// BookingSummary is the last completed booking of a session, shown on the success page
type BookingSummary struct {
	BookingID   string             `json:"booking_id"`
	BookingCode string             `json:"booking_code"`
	Seats       []string           `json:"seats"`
	TotalAmount float64            `json:"total_amount"`
	Passengers  []Passenger        `json:"passengers"`
	Trip        BookingTripSummary `json:"trip"`
	QRCode      string             `json:"qr_code"`
	PaymentURL  string             `json:"payment_url,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// CheckoutSummary is returned when a selection is ready for checkout
type CheckoutSummary struct {
	TripID       string   `json:"trip_id"`
	Seats        []string `json:"seats"`
	PricePerSeat float64  `json:"price_per_seat"`
	Total        float64  `json:"total"`
	Currency     string   `json:"currency"`
	CheckoutPath string   `json:"checkout_path"`
}
