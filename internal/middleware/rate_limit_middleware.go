package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/gogobus/booking-gateway/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CheckoutRateLimit limits booking and payment attempts per IP address and
// per session. Limiter failures let the request through.
func CheckoutRateLimit(limiter services.RateLimiter, audit *services.AuditService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := utils.GetRealIP(c)

		var sessionID *uuid.UUID
		sessionKey := ""
		if sess, ok := GetSession(c); ok {
			id := sess.ID
			sessionID = &id
			sessionKey = id.String()
		}

		if err := limiter.CheckCheckoutRateLimit(ip, sessionKey); err != nil {
			var limitErr *services.RateLimitError
			if !errors.As(err, &limitErr) {
				logger.WithError(err).Warn("Rate limit check failed, allowing request")
				c.Next()
				return
			}

			logger.WithFields(logrus.Fields{
				"ip":          ip,
				"session_id":  sessionKey,
				"limit_type":  limitErr.Type,
				"retry_after": limitErr.RetryAfter,
			}).Warn("Checkout rate limit exceeded")

			if audit != nil {
				if auditErr := audit.LogRateLimitViolation(sessionID, ip, utils.GetUserAgent(c), limitErr.Type, limitErr.RetryAfter); auditErr != nil {
					logger.WithError(auditErr).Warn("AUDIT ERROR [LogRateLimitViolation]")
				}
			}

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     limitErr.Message,
				"code":        "RATE_LIMIT_EXCEEDED",
				"retry_after": limitErr.RetryAfter,
			})
			c.Abort()
			return
		}

		if err := limiter.RecordCheckoutAttempt(ip, sessionKey); err != nil {
			logger.WithError(err).Warn("Failed to record checkout attempt")
		}

		c.Next()
	}
}
