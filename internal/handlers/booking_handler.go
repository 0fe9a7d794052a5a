package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/middleware"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/gogobus/booking-gateway/pkg/validator"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles checkout and booking lookups
type BookingHandler struct {
	bookings   *services.BookingService
	trips      *services.TripService
	tickets    *services.TicketService
	passengers *validator.PassengerValidator
	audit      auditTrail
	logger     *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(
	bookings *services.BookingService,
	trips *services.TripService,
	tickets *services.TicketService,
	passengers *validator.PassengerValidator,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		bookings:   bookings,
		trips:      trips,
		tickets:    tickets,
		passengers: passengers,
		audit:      auditTrail{service: auditService, logger: logger},
		logger:     logger,
	}
}

// CheckoutResponse is returned when a checkout created a booking
type CheckoutResponse struct {
	Data    models.Booking        `json:"data"`
	Source  models.ResultSource   `json:"source"`
	Reason  string                `json:"reason,omitempty"`
	Summary models.BookingSummary `json:"summary"`
}

// respondInvalidPassenger names the seat whose passenger failed validation
func (h *BookingHandler) respondInvalidPassenger(c *gin.Context, seatID string, err error) {
	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
		Error:   "validation_error",
		Message: fmt.Sprintf("seat %s: %s", seatID, validationErr.Message),
		Code:    "INVALID_PASSENGER",
		Fields:  validationErr.Fields,
		Missing: []string{seatID},
	})
}

// Checkout handles POST /api/v1/bookings
// @Summary Create a booking for the selected seats
// @Description Submits the booking; when the booking API cannot be used a pending local booking is returned
// @Tags Bookings
// @Accept json
// @Produce json
// @Param booking body models.BookingRequest true "Trip, seats and passengers"
// @Success 201 {object} CheckoutResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/bookings [post]
func (h *BookingHandler) Checkout(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	for i := range req.Passengers {
		req.Passengers[i] = req.Passengers[i].Normalize()
	}
	if err := services.ValidateBookingRequest(req); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	for i, passenger := range req.Passengers {
		normalized, err := h.passengers.Validate(passenger)
		if err != nil {
			h.respondInvalidPassenger(c, req.SeatIDs[i], err)
			return
		}
		req.Passengers[i] = normalized
	}

	ctx := c.Request.Context()
	sess := middleware.MustGetSession(c)

	// The total is the trip price times the seat count whenever the trip is known
	trip := models.Trip{ID: req.TripID}
	if tripResult, err := h.trips.GetTrip(ctx, sess, req.TripID); err != nil {
		h.logger.WithError(err).WithField("trip_id", req.TripID).Warn("Trip unavailable at checkout, using submitted total")
	} else {
		trip = tripResult.Data
		if trip.Price > 0 {
			req.TotalAmount = math.Round(trip.Price*float64(len(req.SeatIDs))*100) / 100
		}
	}

	result, err := h.bookings.CreateBooking(ctx, sess, req)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	summary := h.tickets.BuildSummary(result.Data, trip, req.SeatIDs, req.Passengers, req.TotalAmount)
	if err := h.tickets.CompleteCheckout(ctx, sess, summary); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": sess.ID,
			"booking_id": result.Data.ID,
		}).Error("Booking created but checkout state could not be saved")
	}

	h.audit.safeLogBookingCreated(c, sess.ID, result.Data.ID, req.TripID, req.SeatIDs, string(result.Source))

	c.JSON(http.StatusCreated, CheckoutResponse{
		Data:    result.Data,
		Source:  result.Source,
		Reason:  result.Reason,
		Summary: summary,
	})
}

// ListBookings handles GET /api/v1/bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	bookings, err := h.bookings.ListUserBookings(c.Request.Context(), middleware.MustGetSession(c))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  bookings,
		"count": len(bookings),
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookings.GetBooking(c.Request.Context(), middleware.MustGetSession(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": booking})
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID := c.Param("id")
	if err := h.bookings.CancelBooking(c.Request.Context(), middleware.MustGetSession(c), bookingID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking_id": bookingID,
		"message":    "Reserva cancelada",
	})
}
