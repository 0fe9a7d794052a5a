package busapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gogobus/booking-gateway/internal/models"
)

// TripQuery holds the query parameters of GET /trips/
type TripQuery struct {
	OriginID      string
	DestinationID string
	StartDate     string
	EndDate       string
}

func (q TripQuery) values() url.Values {
	v := url.Values{}
	v.Set("origin", q.OriginID)
	v.Set("destination", q.DestinationID)
	if q.StartDate != "" {
		v.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	return v
}

// SearchTrips lists trips between two location ids
func (c *Client) SearchTrips(ctx context.Context, query TripQuery) ([]Record, error) {
	var payload interface{}
	if err := c.Get(ctx, "/trips/", query.values(), &payload); err != nil {
		return nil, err
	}
	return ExtractResults(payload), nil
}

// GetTrip fetches one trip, including its bus seat matrix and availability lists
func (c *Client) GetTrip(ctx context.Context, tripID string) (Record, error) {
	var payload interface{}
	if err := c.Get(ctx, "/trips/"+url.PathEscape(tripID)+"/", nil, &payload); err != nil {
		return nil, err
	}
	return ExtractRecord(payload), nil
}

// SearchLocations lists locations, optionally filtered by name
func (c *Client) SearchLocations(ctx context.Context, name string) ([]Record, error) {
	query := url.Values{}
	if name != "" {
		query.Set("name", name)
	}
	var payload interface{}
	if err := c.Get(ctx, "/trips/locations/", query, &payload); err != nil {
		return nil, err
	}
	return ExtractResults(payload), nil
}

// BookingPassenger is one passenger line of a booking payload
type BookingPassenger struct {
	Name       string      `json:"name"`
	DNI        string      `json:"dni"`
	SeatNumber interface{} `json:"seat_number"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
}

// BookingPayload is the body of POST /bookings/
type BookingPayload struct {
	TripID      string             `json:"trip_id"`
	UserID      string             `json:"user_id,omitempty"`
	Passengers  []BookingPassenger `json:"passengers"`
	SeatNumbers []interface{}      `json:"seat_numbers"`
	TotalAmount float64            `json:"total_amount"`
}

// SeatNumber encodes a seat id as an integer when it is numeric, as text otherwise
func SeatNumber(seatID string) interface{} {
	if n, err := strconv.Atoi(strings.TrimSpace(seatID)); err == nil {
		return n
	}
	return seatID
}

// CreateBooking submits a booking
func (c *Client) CreateBooking(ctx context.Context, payload BookingPayload) (Record, error) {
	var resp interface{}
	if err := c.Post(ctx, "/bookings/", payload, &resp); err != nil {
		return nil, err
	}
	return ExtractRecord(resp), nil
}

// GetBooking fetches one booking
func (c *Client) GetBooking(ctx context.Context, bookingID string) (Record, error) {
	var resp interface{}
	if err := c.Get(ctx, "/bookings/"+url.PathEscape(bookingID), nil, &resp); err != nil {
		return nil, err
	}
	return ExtractRecord(resp), nil
}

// MyBookings lists the bookings of the signed-in user
func (c *Client) MyBookings(ctx context.Context) ([]Record, error) {
	var resp interface{}
	if err := c.Get(ctx, "/bookings/my-bookings", nil, &resp); err != nil {
		return nil, err
	}
	return ExtractResults(resp), nil
}

// CancelBooking asks the backend to cancel a booking
func (c *Client) CancelBooking(ctx context.Context, bookingID string) error {
	return c.Post(ctx, "/bookings/"+url.PathEscape(bookingID)+"/cancel", nil, nil)
}

// PreferencePayload is the body of POST /payments/mercadopago/preferences
type PreferencePayload struct {
	BookingID string  `json:"booking_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// PreferenceResponse holds the redirect fields the backend may return
type PreferenceResponse struct {
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
	URL              string `json:"url"`
}

// RedirectURL picks the first known redirect field
func (r PreferenceResponse) RedirectURL() string {
	switch {
	case r.InitPoint != "":
		return r.InitPoint
	case r.SandboxInitPoint != "":
		return r.SandboxInitPoint
	default:
		return r.URL
	}
}

// CreatePaymentPreference asks the backend for a Mercado Pago redirect URL.
// An empty URL with a nil error means the backend answered without one.
func (c *Client) CreatePaymentPreference(ctx context.Context, payload PreferencePayload) (string, error) {
	var resp PreferenceResponse
	if err := c.Post(ctx, "/payments/mercadopago/preferences", payload, &resp); err != nil {
		return "", err
	}
	return resp.RedirectURL(), nil
}

// Login exchanges credentials for a token and profile
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login response did not include a token")
	}
	return &resp, nil
}

// Register creates an account and returns its token and profile
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("register response did not include a token")
	}
	return &resp, nil
}

// CurrentUser fetches the profile of the signed-in user
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.Get(ctx, "/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
