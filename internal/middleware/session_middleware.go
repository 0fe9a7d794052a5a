package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/gogobus/booking-gateway/internal/utils"
	"github.com/gogobus/booking-gateway/pkg/jwt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionHeader carries the signed session token in both directions
const SessionHeader = "X-Session-Token"

// SessionContextKey is the key used to store the session in Gin context
const SessionContextKey = "session"

// VisitRecorder keeps bookkeeping about the client behind a session
type VisitRecorder interface {
	RecordVisit(sessionID uuid.UUID, ipAddress, userAgent string, device utils.DeviceInfo) (*models.GatewaySession, error)
}

// SessionMiddleware resolves the browsing session of a request. A missing,
// expired or forged token gets a fresh session and a new token.
func SessionMiddleware(jwtService *jwt.Service, store session.Store, visits VisitRecorder, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(SessionHeader))

		var sessionID uuid.UUID
		if token != "" {
			claims, err := jwtService.ValidateSessionToken(token)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"path":    c.Request.URL.Path,
					"ip":      c.ClientIP(),
					"expired": jwtService.IsTokenExpired(token),
				}).WithError(err).Debug("Rejected session token, issuing a new one")
			} else {
				sessionID = claims.SessionID
			}
		}

		if sessionID == uuid.Nil {
			sessionID = uuid.New()
			issued, err := jwtService.GenerateSessionToken(sessionID)
			if err != nil {
				logger.WithError(err).Error("Failed to issue session token")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "session_error",
					"message": "Could not start a session",
					"code":    "SESSION_ISSUE_FAILED",
				})
				c.Abort()
				return
			}
			token = issued
			logger.WithField("session_id", sessionID).Debug("Issued new session")
		}

		c.Header(SessionHeader, token)
		c.Set(SessionContextKey, session.New(sessionID, store))

		if visits != nil {
			userAgent := utils.GetUserAgent(c)
			if _, err := visits.RecordVisit(sessionID, utils.GetRealIP(c), userAgent, utils.ParseUserAgent(userAgent)); err != nil {
				logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to record session visit")
			}
		}

		c.Next()
	}
}

// RequireBackendToken rejects requests whose session is not signed in to the booking API
func RequireBackendToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, exists := GetSession(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Session not found. Session middleware may not be applied.",
				"code":    "MISSING_SESSION",
			})
			c.Abort()
			return
		}

		if !sess.HasToken(c.Request.Context()) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Inicia sesión para continuar",
				"code":    "NOT_AUTHENTICATED",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetSession retrieves the session from Gin context
func GetSession(c *gin.Context) (*session.Session, bool) {
	value, exists := c.Get(SessionContextKey)
	if !exists {
		return nil, false
	}

	sess, ok := value.(*session.Session)
	if !ok || sess == nil {
		return nil, false
	}

	return sess, true
}

// MustGetSession retrieves the session or panics (use only after SessionMiddleware)
func MustGetSession(c *gin.Context) *session.Session {
	sess, exists := GetSession(c)
	if !exists {
		panic("session not found - ensure SessionMiddleware is applied")
	}
	return sess
}
