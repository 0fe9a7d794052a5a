package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gogobus/booking-gateway/internal/database"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountBackend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/auth/login":
		w.Write([]byte(`{"token":"jwt-ana","user":{"id":"u1","email":"ana@example.com","first_name":"Ana"}}`))
	case "/bookings/my-bookings":
		if r.Header.Get("Authorization") != "Bearer jwt-ana" {
			rejectAll(w, r)
			return
		}
		w.Write([]byte(`{"results":[{"id":10,"total_amount":89,"seat_numbers":[4],"payment_status":"paid"}]}`))
	case "/bookings/10/cancel":
		w.Write([]byte(`{}`))
	case "/payments/mercadopago/preferences":
		w.WriteHeader(http.StatusInternalServerError)
	default:
		rejectAll(w, r)
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, accountBackend)

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status AuthStatusResponse
	decodeBody(t, w, &status)
	assert.False(t, status.Authenticated)

	w = env.do(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{Email: "ana@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "jwt-ana")

	w = env.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &status)
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, "Ana", status.User.FirstName)

	w = env.do(t, http.MethodGet, "/api/v1/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data  []models.Booking `json:"data"`
		Count int              `json:"count"`
	}
	decodeBody(t, w, &list)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, models.BookingPaymentPaid, list.Data[0].PaymentStatus)

	w = env.do(t, http.MethodPost, "/api/v1/bookings/10/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	decodeBody(t, w, &status)
	assert.False(t, status.Authenticated)

	w = env.do(t, http.MethodGet, "/api/v1/bookings", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Credenciales inválidas"}`))
	})

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{Email: "a@b.c", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Code)
	assert.Equal(t, "Credenciales inválidas", resp.Message)
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t, accountBackend)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ana@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePreference_BothProvidersFail(t *testing.T) {
	env := newTestEnv(t, accountBackend)
	env.direct.err = errors.New("Mercado Pago error 401")

	w := env.do(t, http.MethodPost, "/api/v1/payments/preference", models.PreferenceRequest{BookingID: "BK-1", Amount: 89})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "No se pudo iniciar el pago", resp.Message)
	assert.Equal(t, "PAYMENT_UNAVAILABLE", resp.Code)
}

func TestCreatePreference_DirectFallbackIsRemembered(t *testing.T) {
	env := newTestEnv(t, accountBackend)
	env.direct.url = "https://www.mercadopago.com.pe/checkout/v1/redirect?pref_id=1"

	req := models.PreferenceRequest{BookingID: "BK-1", Amount: 89, Currency: "S/"}

	w := env.do(t, http.MethodPost, "/api/v1/payments/preference", req)
	require.Equal(t, http.StatusOK, w.Code)
	var pref models.PaymentPreference
	decodeBody(t, w, &pref)
	assert.Equal(t, models.PreferenceSourceDirect, pref.Source)

	w = env.do(t, http.MethodPost, "/api/v1/payments/preference", req)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &pref)
	assert.Equal(t, models.PreferenceSourceCached, pref.Source)
	assert.Equal(t, env.direct.url, pref.RedirectURL)
	assert.Equal(t, 1, env.direct.calls)
}

func TestPaymentStatusIsPending(t *testing.T) {
	env := newTestEnv(t, accountBackend)

	w := env.do(t, http.MethodGet, "/api/v1/payments/BK-1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"booking_id":"BK-1","status":"PENDING"}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, accountBackend)

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session_store":"memory"`)
}

func TestHealth_DatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	handler := NewHealthHandler(&database.PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}, "postgres")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.Health(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
