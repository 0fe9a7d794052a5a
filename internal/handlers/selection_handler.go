package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/middleware"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/sirupsen/logrus"
)

// SelectionHandler handles seat selection and passenger drafts
type SelectionHandler struct {
	selection *services.SelectionService
	logger    *logrus.Logger
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(selection *services.SelectionService, logger *logrus.Logger) *SelectionHandler {
	return &SelectionHandler{
		selection: selection,
		logger:    logger,
	}
}

// SelectSeatRequest toggles one seat
type SelectSeatRequest struct {
	SeatID string `json:"seat_id" binding:"required"`
}

func respondMissingSeatID(c *gin.Context) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "seat_id is required",
		Code:    "INVALID_REQUEST",
	})
}

// GetSelection handles GET /api/v1/trips/:id/selection
func (h *SelectionHandler) GetSelection(c *gin.Context) {
	view, err := h.selection.Selection(c.Request.Context(), middleware.MustGetSession(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SelectSeat handles POST /api/v1/trips/:id/selection/seats
func (h *SelectionHandler) SelectSeat(c *gin.Context) {
	var req SelectSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	seatID := strings.TrimSpace(req.SeatID)
	if seatID == "" {
		respondMissingSeatID(c)
		return
	}

	view, err := h.selection.SelectSeat(c.Request.Context(), middleware.MustGetSession(c), c.Param("id"), seatID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SavePassenger handles PUT /api/v1/trips/:id/selection/passengers/:seat_id
func (h *SelectionHandler) SavePassenger(c *gin.Context) {
	var passenger models.Passenger
	if err := c.ShouldBindJSON(&passenger); err != nil {
		respondBindError(c, err)
		return
	}

	seatID := strings.TrimSpace(c.Param("seat_id"))
	if seatID == "" {
		respondMissingSeatID(c)
		return
	}

	view, err := h.selection.SavePassenger(c.Request.Context(), middleware.MustGetSession(c), c.Param("id"), seatID, passenger)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ContinueToCheckout handles POST /api/v1/trips/:id/selection/continue
func (h *SelectionHandler) ContinueToCheckout(c *gin.Context) {
	summary, err := h.selection.ContinueToCheckout(c.Request.Context(), middleware.MustGetSession(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// CheckoutPassengers handles GET /api/v1/checkout/passengers?seats=1,2
func (h *SelectionHandler) CheckoutPassengers(c *gin.Context) {
	seats := splitList(c.QueryArray("seats"))
	if len(seats) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "seats query parameter is required",
			Code:    "MISSING_SEATS",
		})
		return
	}

	passengers, err := h.selection.CheckoutPassengers(c.Request.Context(), middleware.MustGetSession(c), seats)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"seats":      seats,
		"passengers": passengers,
	})
}
