package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/gogobus/booking-gateway/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// auditTrail writes audit events without failing the request. A nil service records nothing.
type auditTrail struct {
	service *services.AuditService
	logger  *logrus.Logger
}

// logAuditError is a helper to log audit service errors without failing the request
func (a auditTrail) logAuditError(operation string, err error) {
	if err != nil {
		a.logger.WithError(err).Warnf("AUDIT ERROR [%s]", operation)
	}
}

// clientInfo returns the caller's IP address and user agent
func clientInfo(c *gin.Context) (string, string) {
	return utils.GetRealIP(c), utils.GetUserAgent(c)
}

// Helper functions to log audit events with error handling

func (a auditTrail) safeLogBookingCreated(c *gin.Context, sessionID uuid.UUID, bookingID, tripID string, seats []string, source string) {
	if a.service == nil {
		return
	}
	ip, ua := clientInfo(c)
	a.logAuditError("LogBookingCreated", a.service.LogBookingCreated(sessionID, bookingID, tripID, seats, source, ip, ua))
}

func (a auditTrail) safeLogPaymentPreference(c *gin.Context, sessionID uuid.UUID, bookingID string, amount float64, source string, success bool) {
	if a.service == nil {
		return
	}
	ip, ua := clientInfo(c)
	a.logAuditError("LogPaymentPreference", a.service.LogPaymentPreference(sessionID, bookingID, amount, source, ip, ua, success))
}

func (a auditTrail) safeLogLogin(c *gin.Context, sessionID uuid.UUID, userID, email string, registered bool) {
	if a.service == nil {
		return
	}
	ip, ua := clientInfo(c)
	a.logAuditError("LogLogin", a.service.LogLogin(sessionID, userID, email, ip, ua, registered))
}

func (a auditTrail) safeLogLogout(c *gin.Context, sessionID uuid.UUID) {
	if a.service == nil {
		return
	}
	ip, ua := clientInfo(c)
	a.logAuditError("LogLogout", a.service.LogLogout(sessionID, ip, ua))
}
