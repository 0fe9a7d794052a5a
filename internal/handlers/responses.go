package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/gogobus/booking-gateway/pkg/busapi"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidationErrorResponse is returned with 422 when input cannot be accepted
type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Fields  []string `json:"fields,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// respondServiceError maps service and backend errors to HTTP responses
func respondServiceError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		validationErr *models.ValidationError
		missingErr    *services.MissingPassengersError
		apiErr        *busapi.APIError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Message,
			Code:    "INVALID_PASSENGER",
			Fields:  validationErr.Fields,
		})
	case errors.As(err, &missingErr):
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:   "validation_error",
			Message: missingErr.Error(),
			Code:    "MISSING_PASSENGERS",
			Missing: missingErr.Missing,
		})
	case errors.Is(err, services.ErrNoSeatsSelected):
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    "NO_SEATS_SELECTED",
		})
	case errors.Is(err, services.ErrSeatNotSelected):
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    "SEAT_NOT_SELECTED",
		})
	case errors.Is(err, services.ErrInvalidBookingRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
			Code:    "INVALID_BOOKING_REQUEST",
		})
	case errors.Is(err, services.ErrNotAuthenticated), busapi.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: busapi.ErrorMessage(err),
			Code:    "NOT_AUTHENTICATED",
		})
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: busapi.ErrorMessage(err),
			Code:    "NOT_FOUND",
		})
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: busapi.ErrorMessage(err),
			Code:    "BACKEND_REJECTED",
		})
	default:
		logger.WithError(err).Error("Booking API request failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "backend_error",
			Message: busapi.ErrorMessage(err),
			Code:    "BACKEND_UNAVAILABLE",
		})
	}
}

// respondBindError answers a request body or query that could not be parsed
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request format: " + err.Error(),
		Code:    "INVALID_REQUEST",
	})
}
