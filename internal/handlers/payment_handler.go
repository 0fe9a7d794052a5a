package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/middleware"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/sirupsen/logrus"
)

// PaymentHandler handles payment redirects
type PaymentHandler struct {
	payments *services.PaymentService
	audit    auditTrail
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService, auditService *services.AuditService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		audit:    auditTrail{service: auditService, logger: logger},
		logger:   logger,
	}
}

// CreatePreference handles POST /api/v1/payments/preference
// @Summary Get the payment redirect of a booking
// @Tags Payments
// @Accept json
// @Produce json
// @Param preference body models.PreferenceRequest true "Booking and amount"
// @Success 200 {object} models.PaymentPreference
// @Failure 502 {object} ErrorResponse "No se pudo iniciar el pago"
// @Router /api/v1/payments/preference [post]
func (h *PaymentHandler) CreatePreference(c *gin.Context) {
	var req models.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sess := middleware.MustGetSession(c)

	pref, err := h.payments.CreatePreference(c.Request.Context(), sess, req)
	if err != nil {
		h.audit.safeLogPaymentPreference(c, sess.ID, req.BookingID, req.Amount, "", false)
		if errors.Is(err, services.ErrPaymentUnavailable) {
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "payment_unavailable",
				Message: err.Error(),
				Code:    "PAYMENT_UNAVAILABLE",
			})
			return
		}
		respondServiceError(c, h.logger, err)
		return
	}

	h.audit.safeLogPaymentPreference(c, sess.ID, req.BookingID, req.Amount, string(pref.Source), true)

	c.JSON(http.StatusOK, pref)
}

// GetStatus handles GET /api/v1/payments/:booking_id/status
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	bookingID := c.Param("booking_id")
	c.JSON(http.StatusOK, gin.H{
		"booking_id": bookingID,
		"status":     h.payments.CheckStatus(c.Request.Context(), bookingID),
	})
}
