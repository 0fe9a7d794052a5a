package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/middleware"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/services"
	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/gogobus/booking-gateway/pkg/busapi"
	"github.com/gogobus/booking-gateway/pkg/jwt"
	"github.com/gogobus/booking-gateway/pkg/mercadopago"
	"github.com/gogobus/booking-gateway/pkg/validator"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubPreferenceCreator struct {
	url   string
	err   error
	calls int
}

func (s *stubPreferenceCreator) CreatePreference(ctx context.Context, params mercadopago.PreferenceParams) (string, error) {
	s.calls++
	return s.url, s.err
}

// rejectAll answers every backend call with 401, which sends the gateway to its demo data
func rejectAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"message":"Authentication credentials were not provided."}`))
}

type testEnv struct {
	router *gin.Engine
	store  *session.MemoryStore
	direct *stubPreferenceCreator
	token  string
}

func newTestEnv(t *testing.T, backend http.HandlerFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	logger := quietLogger()
	client := busapi.NewClient(busapi.Config{BaseURL: server.URL, Timeout: 5 * time.Second}, logger)
	store := session.NewMemoryStore(time.Hour)
	jwtService := jwt.NewService("handler-test-secret-0123456789", time.Hour)
	direct := &stubPreferenceCreator{}

	trips := services.NewTripService(client, nil, logger)
	selection := services.NewSelectionService(trips, validator.NewPassengerValidator(), logger)
	bookings := services.NewBookingService(client, nil, nil, logger)
	payments := services.NewPaymentService(client, direct, nil, nil, logger)
	tickets := services.NewTicketService(logger)
	users := services.NewUserService(client, logger)

	tripHandler := NewTripHandler(trips, selection, logger)
	selectionHandler := NewSelectionHandler(selection, logger)
	bookingHandler := NewBookingHandler(bookings, trips, tickets, validator.NewPassengerValidator(), nil, logger)
	paymentHandler := NewPaymentHandler(payments, nil, logger)
	ticketHandler := NewTicketHandler(tickets, logger)
	authHandler := NewAuthHandler(users, nil, logger)

	router := gin.New()
	router.GET("/health", NewHealthHandler(nil, "memory").Health)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.SessionMiddleware(jwtService, store, nil, logger))
	{
		v1.GET("/locations", tripHandler.SearchLocations)
		v1.GET("/trips", tripHandler.SearchTrips)
		v1.GET("/trips/:id", tripHandler.GetTrip)
		v1.GET("/trips/:id/seats", tripHandler.GetSeatMap)
		v1.GET("/trips/:id/selection", selectionHandler.GetSelection)
		v1.POST("/trips/:id/selection/seats", selectionHandler.SelectSeat)
		v1.PUT("/trips/:id/selection/passengers/:seat_id", selectionHandler.SavePassenger)
		v1.POST("/trips/:id/selection/continue", selectionHandler.ContinueToCheckout)
		v1.GET("/checkout/passengers", selectionHandler.CheckoutPassengers)
		v1.GET("/checkout/success", ticketHandler.LastBooking)
		v1.POST("/bookings", bookingHandler.Checkout)
		v1.GET("/bookings", middleware.RequireBackendToken(), bookingHandler.ListBookings)
		v1.GET("/bookings/:id", bookingHandler.GetBooking)
		v1.POST("/bookings/:id/cancel", middleware.RequireBackendToken(), bookingHandler.CancelBooking)
		v1.POST("/payments/preference", paymentHandler.CreatePreference)
		v1.GET("/payments/:booking_id/status", paymentHandler.GetStatus)
		v1.GET("/tickets/:booking_id", ticketHandler.GetTicket)
		v1.GET("/tickets/:booking_id/pdf", ticketHandler.DownloadTicket)
		v1.POST("/auth/login", authHandler.Login)
		v1.POST("/auth/register", authHandler.Register)
		v1.GET("/auth/me", authHandler.Me)
		v1.POST("/auth/logout", authHandler.Logout)
	}

	return &testEnv{router: router, store: store, direct: direct}
}

// do sends a request within the env's session, starting one on first use
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.token != "" {
		req.Header.Set(middleware.SessionHeader, e.token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	if token := w.Header().Get(middleware.SessionHeader); token != "" {
		e.token = token
	}
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func validPassenger(name string) models.Passenger {
	return models.Passenger{
		FirstName:      name,
		LastName:       "Quispe",
		DocumentNumber: "45678912",
		Email:          "ana@example.com",
		Phone:          "987654321",
	}
}
