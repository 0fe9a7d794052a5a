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

// TripHandler handles HTTP requests for trips, locations and seat maps
type TripHandler struct {
	trips     *services.TripService
	selection *services.SelectionService
	logger    *logrus.Logger
}

// NewTripHandler creates a new trip handler
func NewTripHandler(trips *services.TripService, selection *services.SelectionService, logger *logrus.Logger) *TripHandler {
	return &TripHandler{
		trips:     trips,
		selection: selection,
		logger:    logger,
	}
}

// SearchTrips handles GET /api/v1/trips
// @Summary Search for available trips
// @Description Lists trips between two locations, sorted and filtered by company
// @Tags Trips
// @Produce json
// @Param origin query string false "Origin location id or name"
// @Param destination query string false "Destination location id or name"
// @Param date query string false "Travel date (YYYY-MM-DD)"
// @Param sort_order query string false "price-asc or price-desc"
// @Success 200 {object} map[string]interface{}
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/trips [get]
func (h *TripHandler) SearchTrips(c *gin.Context) {
	var params models.TripSearchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	params.Companies = splitList(params.Companies)

	sess := middleware.MustGetSession(c)

	h.logger.WithFields(logrus.Fields{
		"session_id":  sess.ID,
		"origin":      params.Origin,
		"destination": params.Destination,
		"date":        params.Date,
	}).Debug("Trip search")

	result, err := h.trips.SearchTrips(c.Request.Context(), sess, params)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTrip handles GET /api/v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	result, err := h.trips.GetTrip(c.Request.Context(), middleware.MustGetSession(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSeatMap handles GET /api/v1/trips/:id/seats.
// Seats selected in this session are marked selected, or pending once their passenger is saved.
func (h *TripHandler) GetSeatMap(c *gin.Context) {
	ctx := c.Request.Context()
	sess := middleware.MustGetSession(c)
	tripID := c.Param("id")

	result, err := h.trips.GetSeatMap(ctx, sess, tripID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	view, err := h.selection.Selection(ctx, sess, tripID)
	if err != nil {
		h.logger.WithError(err).WithField("session_id", sess.ID).Warn("Failed to load selection for seat map")
	} else {
		result.Data = services.ApplySelection(result.Data, view)
	}

	c.JSON(http.StatusOK, result)
}

// SearchLocations handles GET /api/v1/locations?name=
func (h *TripHandler) SearchLocations(c *gin.Context) {
	result, err := h.trips.SearchLocations(c.Request.Context(), middleware.MustGetSession(c), strings.TrimSpace(c.Query("name")))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// splitList accepts both repeated query values and comma separated ones
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
