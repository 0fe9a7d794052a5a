package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/gogobus/booking-gateway/internal/events"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/pkg/mercadopago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPreferenceCreator struct {
	url    string
	err    error
	calls  int
	params mercadopago.PreferenceParams
}

func (s *stubPreferenceCreator) CreatePreference(ctx context.Context, params mercadopago.PreferenceParams) (string, error) {
	s.calls++
	s.params = params
	return s.url, s.err
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "PEN", NormalizeCurrency(""))
	assert.Equal(t, "PEN", NormalizeCurrency("S/"))
	assert.Equal(t, "PEN", NormalizeCurrency(" s/. "))
	assert.Equal(t, "USD", NormalizeCurrency("usd"))
}

func TestPaymentService_BackendPreference(t *testing.T) {
	ctx := context.Background()
	client := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/mercadopago/preferences", r.URL.Path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BK-1", body["booking_id"])
		assert.Equal(t, "PEN", body["currency"])
		w.Write([]byte(`{"sandbox_init_point":"https://sandbox.mp.test/1"}`))
	})
	direct := &stubPreferenceCreator{url: "https://direct.mp.test"}
	publisher := &recordingPublisher{}
	svc := NewPaymentService(client, direct, publisher, nil, quietLogger())
	sess := newMemorySession()

	pref, err := svc.CreatePreference(ctx, sess, models.PreferenceRequest{BookingID: "BK-1", Amount: 178, Currency: "S/"})
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.mp.test/1", pref.RedirectURL)
	assert.Equal(t, models.PreferenceSourceBackend, pref.Source)
	assert.Zero(t, direct.calls)

	remembered, err := sess.PaymentURL(ctx, "BK-1")
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.mp.test/1", remembered)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.EventPaymentRequested, publisher.events[0].Type)
}

func TestPaymentService_FallsBackToDirect(t *testing.T) {
	client := newAPIServer(t, respond(http.StatusNotFound, `{"detail":"Not found."}`))
	direct := &stubPreferenceCreator{url: "https://www.mercadopago.com.pe/checkout/1"}
	svc := NewPaymentService(client, direct, nil, nil, quietLogger())

	pref, err := svc.CreatePreference(context.Background(), newMemorySession(), models.PreferenceRequest{BookingID: "BK-2", Amount: 89})
	require.NoError(t, err)
	assert.Equal(t, models.PreferenceSourceDirect, pref.Source)
	assert.Equal(t, "https://www.mercadopago.com.pe/checkout/1", pref.RedirectURL)
	assert.Equal(t, "BK-2", direct.params.BookingID)
	assert.Equal(t, "PEN", direct.params.Currency)
	assert.Equal(t, 89.0, direct.params.Amount)
}

func TestPaymentService_EmptyBackendURLFallsThrough(t *testing.T) {
	client := newAPIServer(t, respond(http.StatusOK, `{"id":"pref-1"}`))
	direct := &stubPreferenceCreator{url: "https://direct.mp.test"}
	svc := NewPaymentService(client, direct, nil, nil, quietLogger())

	pref, err := svc.CreatePreference(context.Background(), newMemorySession(), models.PreferenceRequest{BookingID: "BK-3"})
	require.NoError(t, err)
	assert.Equal(t, models.PreferenceSourceDirect, pref.Source)
	assert.Equal(t, 1, direct.calls)
}

func TestPaymentService_BothFail(t *testing.T) {
	client := newAPIServer(t, respond(http.StatusInternalServerError, ``))
	direct := &stubPreferenceCreator{err: errors.New("Mercado Pago error 401: invalid token")}
	svc := NewPaymentService(client, direct, nil, nil, quietLogger())
	sess := newMemorySession()

	pref, err := svc.CreatePreference(context.Background(), sess, models.PreferenceRequest{BookingID: "BK-4"})
	assert.Nil(t, pref)
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
	assert.Equal(t, "No se pudo iniciar el pago", err.Error())

	remembered, _ := sess.PaymentURL(context.Background(), "BK-4")
	assert.Empty(t, remembered)
}

func TestPaymentService_NeverCreatesTwicePerBooking(t *testing.T) {
	var calls int32
	client := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"init_point":"https://mp.test/first"}`))
	})
	direct := &stubPreferenceCreator{}
	svc := NewPaymentService(client, direct, nil, nil, quietLogger())
	sess := newMemorySession()
	ctx := context.Background()

	first, err := svc.CreatePreference(ctx, sess, models.PreferenceRequest{BookingID: "BK-5"})
	require.NoError(t, err)
	second, err := svc.CreatePreference(ctx, sess, models.PreferenceRequest{BookingID: "BK-5"})
	require.NoError(t, err)

	assert.Equal(t, first.RedirectURL, second.RedirectURL)
	assert.Equal(t, models.PreferenceSourceCached, second.Source)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPaymentService_KnownURLIsReused(t *testing.T) {
	var calls int32
	client := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	svc := NewPaymentService(client, &stubPreferenceCreator{}, nil, nil, quietLogger())

	pref, err := svc.CreatePreference(context.Background(), newMemorySession(), models.PreferenceRequest{
		BookingID:  "BK-6",
		PaymentURL: "https://mp.test/from-booking",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://mp.test/from-booking", pref.RedirectURL)
	assert.Equal(t, models.PreferenceSourceCached, pref.Source)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestPaymentService_CheckStatus(t *testing.T) {
	svc := NewPaymentService(nil, nil, nil, nil, quietLogger())
	assert.Equal(t, models.PaymentStatusPending, svc.CheckStatus(context.Background(), "BK-1"))
}
