package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/middleware"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/sirupsen/logrus"
)

// TicketHandler serves the success page data and printable tickets
type TicketHandler struct {
	tickets *services.TicketService
	logger  *logrus.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets *services.TicketService, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{
		tickets: tickets,
		logger:  logger,
	}
}

// LastBooking handles GET /api/v1/checkout/success
func (h *TicketHandler) LastBooking(c *gin.Context) {
	summary, err := h.tickets.LastBooking(c.Request.Context(), middleware.MustGetSession(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to load last booking")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_error",
			Message: "Failed to load the last booking",
		})
		return
	}

	if summary == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "No hay una reserva reciente en esta sesión",
			Code:    "NO_RECENT_BOOKING",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// GetTicket handles GET /api/v1/tickets/:booking_id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	summary, err := h.tickets.TicketForBooking(c.Request.Context(), middleware.MustGetSession(c), c.Param("booking_id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to load ticket")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_error",
			Message: "Failed to load the ticket",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// DownloadTicket handles GET /api/v1/tickets/:booking_id/pdf
func (h *TicketHandler) DownloadTicket(c *gin.Context) {
	bookingID := c.Param("booking_id")

	summary, err := h.tickets.TicketForBooking(c.Request.Context(), middleware.MustGetSession(c), bookingID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load ticket")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_error",
			Message: "Failed to load the ticket",
		})
		return
	}

	data, filename, err := h.tickets.RenderTicketPDF(summary)
	if err != nil {
		h.logger.WithError(err).WithField("booking_id", bookingID).Error("Failed to render ticket PDF")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "render_failed",
			Message: "No se pudo generar el boleto",
			Code:    "TICKET_RENDER_FAILED",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
