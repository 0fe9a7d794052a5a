package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/middleware"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/gogobus/booking-gateway/pkg/busapi"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles sign-in against the booking API. The backend token stays in the session.
type AuthHandler struct {
	users  *services.UserService
	audit  auditTrail
	logger *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *services.UserService, auditService *services.AuditService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		audit:  auditTrail{service: auditService, logger: logger},
		logger: logger,
	}
}

// AuthStatusResponse describes who is signed in to a session
type AuthStatusResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sess := middleware.MustGetSession(c)
	resp, err := h.users.Login(c.Request.Context(), sess, req)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	h.audit.safeLogLogin(c, sess.ID, resp.User.ID, resp.User.Email, false)

	c.JSON(http.StatusOK, AuthStatusResponse{Authenticated: true, User: &resp.User})
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sess := middleware.MustGetSession(c)
	resp, err := h.users.Register(c.Request.Context(), sess, req)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	h.audit.safeLogLogin(c, sess.ID, resp.User.ID, resp.User.Email, true)

	c.JSON(http.StatusCreated, AuthStatusResponse{Authenticated: true, User: &resp.User})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	sess := middleware.MustGetSession(c)

	if !h.users.IsAuthenticated(ctx, sess) {
		c.JSON(http.StatusOK, AuthStatusResponse{Authenticated: false})
		return
	}

	user, err := h.users.CurrentUser(ctx, sess)
	if err != nil {
		if errors.Is(err, services.ErrNotAuthenticated) {
			c.JSON(http.StatusOK, AuthStatusResponse{Authenticated: false})
			return
		}
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, AuthStatusResponse{Authenticated: true, User: user})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.MustGetSession(c)
	if err := h.users.Logout(c.Request.Context(), sess); err != nil {
		h.logger.WithError(err).Error("Failed to log out")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "logout_failed",
			Message: "Failed to log out",
		})
		return
	}

	h.audit.safeLogLogout(c, sess.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada"})
}

// respondAuthError keeps backend rejections of credentials as 401
func (h *AuthHandler) respondAuthError(c *gin.Context, err error) {
	var apiErr *busapi.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: busapi.ErrorMessage(err),
			Code:    "INVALID_CREDENTIALS",
		})
		return
	}
	respondServiceError(c, h.logger, err)
}
