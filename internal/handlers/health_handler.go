package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/database"
)

// HealthHandler reports liveness of the gateway
type HealthHandler struct {
	db           database.DB
	sessionStore string
	startedAt    time.Time
}

// NewHealthHandler creates a new health handler. db may be nil when no database is configured.
func NewHealthHandler(db database.DB, sessionStore string) *HealthHandler {
	return &HealthHandler{
		db:           db,
		sessionStore: sessionStore,
		startedAt:    time.Now(),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":        "healthy",
		"service":       "gogobus-booking-gateway",
		"session_store": h.sessionStore,
		"uptime":        time.Since(h.startedAt).Round(time.Second).String(),
	}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = err.Error()
		} else {
			body["database"] = "connected"
		}
	}

	c.JSON(status, body)
}
