package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gogobus/booking-gateway/internal/events"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/gogobus/booking-gateway/pkg/busapi"
	"github.com/gogobus/booking-gateway/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// ErrInvalidBookingRequest is returned when a booking request cannot be built
var ErrInvalidBookingRequest = errors.New("invalid booking request")

// BookingService submits bookings to the backend, falling back to a local
// pending booking whenever the backend cannot be used
type BookingService struct {
	client    *busapi.Client
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	now       func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(client *busapi.Client, publisher events.Publisher, m *metrics.Metrics, logger *logrus.Logger) *BookingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &BookingService{
		client:    client,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// ValidateBookingRequest checks the request can be turned into a booking
func ValidateBookingRequest(req models.BookingRequest) error {
	if strings.TrimSpace(req.TripID) == "" {
		return fmt.Errorf("%w: trip id is required", ErrInvalidBookingRequest)
	}
	if len(req.SeatIDs) == 0 {
		return fmt.Errorf("%w: at least one seat is required", ErrInvalidBookingRequest)
	}
	if len(req.Passengers) != len(req.SeatIDs) {
		return fmt.Errorf("%w: %d passengers for %d seats", ErrInvalidBookingRequest, len(req.Passengers), len(req.SeatIDs))
	}
	return nil
}

// CreateBooking submits a booking. Only a malformed request is an error: a
// session without a token or any backend failure yields a degraded pending
// booking coded "BK-<unix millis>".
func (s *BookingService) CreateBooking(ctx context.Context, sess *session.Session, req models.BookingRequest) (models.Result[models.Booking], error) {
	if err := ValidateBookingRequest(req); err != nil {
		return models.Result[models.Booking]{}, err
	}

	var (
		result models.Result[models.Booking]
		reason string
	)

	if sess.HasToken(ctx) {
		rec, err := s.client.WithAuth(sess).CreateBooking(ctx, s.buildPayload(ctx, sess, req))
		if err == nil && bookingID(rec) != "" {
			result = models.Ok(s.normalizeCreated(rec, req))
		} else {
			if err == nil {
				reason = "backend response did not include a booking id"
			} else {
				reason = busapi.ErrorMessage(err)
			}
			s.metrics.APIError("create_booking")
			s.logger.WithFields(logrus.Fields{
				"session_id": sess.ID,
				"trip_id":    req.TripID,
				"reason":     reason,
			}).Warn("Booking backend unavailable, creating local booking")
		}
	} else {
		reason = "session has no backend token"
	}

	if result.Source == "" {
		result = models.Degraded(s.fallbackBooking(req), reason)
		s.metrics.Fallback("create_booking")
	}

	s.metrics.BookingCreated(string(result.Source))
	s.publishCreated(ctx, sess, req, result)

	s.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"booking_id": result.Data.ID,
		"trip_id":    req.TripID,
		"seats":      len(req.SeatIDs),
		"source":     result.Source,
	}).Info("Booking created")

	return result, nil
}

func (s *BookingService) buildPayload(ctx context.Context, sess *session.Session, req models.BookingRequest) busapi.BookingPayload {
	payload := busapi.BookingPayload{
		TripID:      req.TripID,
		Passengers:  make([]busapi.BookingPassenger, 0, len(req.Passengers)),
		SeatNumbers: make([]interface{}, 0, len(req.SeatIDs)),
		TotalAmount: req.TotalAmount,
	}

	if user, err := sess.User(ctx); err == nil && user != nil {
		payload.UserID = user.ID
	}

	for i, p := range req.Passengers {
		payload.Passengers = append(payload.Passengers, busapi.BookingPassenger{
			Name:       strings.TrimSpace(p.FirstName + " " + p.LastName),
			DNI:        p.DocumentNumber,
			SeatNumber: busapi.SeatNumber(req.SeatIDs[i]),
			Email:      p.Email,
			Phone:      p.Phone,
		})
	}
	for _, seatID := range req.SeatIDs {
		payload.SeatNumbers = append(payload.SeatNumbers, busapi.SeatNumber(seatID))
	}
	return payload
}

func (s *BookingService) fallbackBooking(req models.BookingRequest) models.Booking {
	now := s.now()
	code := fmt.Sprintf("BK-%d", now.UnixMilli())
	return models.Booking{
		ID:            code,
		TripID:        req.TripID,
		Seats:         seatsFromIDs(req.SeatIDs),
		Passengers:    req.Passengers,
		Subtotal:      req.TotalAmount,
		Total:         req.TotalAmount,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.BookingPaymentPending,
		BookingCode:   code,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *BookingService) normalizeCreated(rec busapi.Record, req models.BookingRequest) models.Booking {
	booking := NormalizeBooking(rec, s.now())
	booking.TripID = req.TripID
	booking.Passengers = req.Passengers
	booking.Seats = seatsFromIDs(req.SeatIDs)
	if booking.Total == 0 {
		booking.Total = req.TotalAmount
		booking.Subtotal = req.TotalAmount
	}
	return booking
}

func (s *BookingService) publishCreated(ctx context.Context, sess *session.Session, req models.BookingRequest, result models.Result[models.Booking]) {
	event := events.NewBookingEvent(events.EventBookingCreated, sess.ID, result.Data.ID)
	event.BookingCode = result.Data.BookingCode
	event.TripID = req.TripID
	event.Seats = req.SeatIDs
	event.Total = result.Data.Total
	event.Source = string(result.Source)
	event.PaymentURL = result.Data.PaymentURL

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("booking_id", result.Data.ID).Warn("Failed to publish booking event")
	}
}

// GetBooking fetches one booking from the backend
func (s *BookingService) GetBooking(ctx context.Context, sess *session.Session, id string) (*models.Booking, error) {
	rec, err := s.client.WithAuth(sess).GetBooking(ctx, id)
	if err != nil {
		s.metrics.APIError("get_booking")
		return nil, fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
	}
	booking := NormalizeBooking(rec, s.now())
	return &booking, nil
}

// ListUserBookings lists the bookings of the signed-in user
func (s *BookingService) ListUserBookings(ctx context.Context, sess *session.Session) ([]models.Booking, error) {
	records, err := s.client.WithAuth(sess).MyBookings(ctx)
	if err != nil {
		s.metrics.APIError("list_bookings")
		return nil, fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
	}

	now := s.now()
	bookings := make([]models.Booking, 0, len(records))
	for _, rec := range records {
		bookings = append(bookings, NormalizeBooking(rec, now))
	}
	return bookings, nil
}

// CancelBooking asks the backend to cancel a booking
func (s *BookingService) CancelBooking(ctx context.Context, sess *session.Session, id string) error {
	if err := s.client.WithAuth(sess).CancelBooking(ctx, id); err != nil {
		s.metrics.APIError("cancel_booking")
		return fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
	}

	event := events.NewBookingEvent(events.EventBookingCancelled, sess.ID, id)
	event.Source = string(models.SourceBackend)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("booking_id", id).Warn("Failed to publish cancellation event")
	}
	return nil
}

func bookingID(rec busapi.Record) string {
	return rec.FirstString("bookingId", "booking_id", "id")
}

// NormalizeBooking maps a remote booking record
func NormalizeBooking(rec busapi.Record, now time.Time) models.Booking {
	id := bookingID(rec)

	total := rec.Float("total")
	if total == 0 {
		total = rec.Float("total_amount")
	}

	code := rec.FirstString("booking_code", "bookingCode")
	if code == "" {
		code = id
	}

	booking := models.Booking{
		ID:            id,
		TripID:        rec.FirstString("trip_id", "tripId"),
		Seats:         seatsFromIDs(rec.Strings("seat_numbers")),
		Passengers:    passengersFromRecords(rec.List("passengers")),
		Subtotal:      total,
		Discount:      rec.Float("discount"),
		BusPointsUsed: rec.Int("bus_points_used"),
		Total:         total,
		Status:        models.ParseBookingStatus(rec.String("status")),
		PaymentStatus: models.BookingPaymentPending,
		PaymentURL:    rec.FirstString("payment_url", "paymentUrl"),
		QRCode:        rec.FirstString("qr_code_url", "qr_code", "qrCode"),
		BookingCode:   code,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if trip := rec.Object("trip"); trip != nil {
		normalized := NormalizeTrip(trip)
		booking.Trip = &normalized
		if booking.TripID == "" {
			booking.TripID = normalized.ID
		}
	}
	if created, ok := parseTime(rec.String("created_at")); ok {
		booking.CreatedAt = created
	}
	if updated, ok := parseTime(rec.String("updated_at")); ok {
		booking.UpdatedAt = updated
	}
	switch ps := models.BookingPaymentStatus(rec.String("payment_status")); ps {
	case models.BookingPaymentPaid, models.BookingPaymentFailed, models.BookingPaymentRefunded:
		booking.PaymentStatus = ps
	}
	return booking
}

func seatsFromIDs(ids []string) []models.Seat {
	seats := make([]models.Seat, 0, len(ids))
	for _, id := range ids {
		seats = append(seats, models.Seat{
			ID:     id,
			Number: id,
			Type:   models.SeatTypeStandard,
			Status: models.SeatStatusPending,
		})
	}
	return seats
}

func passengersFromRecords(list []interface{}) []models.Passenger {
	passengers := make([]models.Passenger, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rec := busapi.Record(obj)
		first, last := splitName(rec.String("name"))
		if f := rec.FirstString("first_name", "firstName"); f != "" {
			first, last = f, rec.FirstString("last_name", "lastName")
		}
		passengers = append(passengers, models.Passenger{
			FirstName:      first,
			LastName:       last,
			DocumentType:   models.DocumentTypeDNI,
			DocumentNumber: rec.FirstString("dni", "document_number"),
			Email:          rec.String("email"),
			Phone:          rec.String("phone"),
		})
	}
	return passengers
}

func splitName(full string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(full), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}
