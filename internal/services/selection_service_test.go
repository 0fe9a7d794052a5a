package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/gogobus/booking-gateway/pkg/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSelectionService(t *testing.T, handler http.HandlerFunc) *SelectionService {
	t.Helper()
	if handler == nil {
		handler = respond(http.StatusOK, `{"id":"trip-1","price":89,"currency":"S/"}`)
	}
	trips := NewTripService(newAPIServer(t, handler), nil, quietLogger())
	return NewSelectionService(trips, validator.NewPassengerValidator(), quietLogger())
}

func completePassenger(name string) models.Passenger {
	return models.Passenger{
		FirstName:      name,
		LastName:       "Quispe",
		DocumentNumber: "45678912",
		Email:          name + "@example.com",
		Phone:          "987654321",
	}
}

func storedDrafts(t *testing.T, sess *session.Session) models.PassengerDrafts {
	t.Helper()
	drafts, err := sess.Drafts(context.Background())
	require.NoError(t, err)
	return drafts
}

func TestSelectionService_SelectSeatToggles(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := newMemorySession()

	view, err := svc.SelectSeat(ctx, sess, "trip-1", "1A")
	require.NoError(t, err)
	assert.Equal(t, []string{"1A"}, view.SelectedSeats)
	assert.Equal(t, "1A", view.ActiveSeat)
	assert.Empty(t, view.Drafts)

	_, err = svc.SavePassenger(ctx, sess, "trip-1", "1A", completePassenger("ana"))
	require.NoError(t, err)
	assert.Contains(t, storedDrafts(t, sess), "1A")

	view, err = svc.SelectSeat(ctx, sess, "trip-1", "1A")
	require.NoError(t, err)
	assert.Empty(t, view.SelectedSeats)
	assert.Empty(t, view.ActiveSeat)
	assert.NotContains(t, view.Drafts, "1A")
	assert.NotContains(t, storedDrafts(t, sess), "1A")
}

func TestSelectionService_DeselectAlwaysDropsDraft(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)

	for _, seatID := range []string{"1", "12A", "B-7", "seat 4"} {
		sess := newMemorySession()
		_, err := svc.SelectSeat(ctx, sess, "trip-1", seatID)
		require.NoError(t, err)
		_, err = svc.SelectSeat(ctx, sess, "trip-1", "other")
		require.NoError(t, err)
		_, err = svc.SavePassenger(ctx, sess, "trip-1", seatID, completePassenger("ana"))
		require.NoError(t, err)
		_, err = svc.SavePassenger(ctx, sess, "trip-1", "other", completePassenger("luis"))
		require.NoError(t, err)

		view, err := svc.SelectSeat(ctx, sess, "trip-1", seatID)
		require.NoError(t, err)

		assert.NotContains(t, view.Drafts, seatID)
		drafts := storedDrafts(t, sess)
		assert.NotContains(t, drafts, seatID)
		assert.Contains(t, drafts, "other")
	}
}

func TestSelectionService_SwitchingTripResetsSelection(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := newMemorySession()

	_, err := svc.SelectSeat(ctx, sess, "trip-1", "1")
	require.NoError(t, err)
	_, err = svc.SavePassenger(ctx, sess, "trip-1", "1", completePassenger("ana"))
	require.NoError(t, err)

	view, err := svc.SelectSeat(ctx, sess, "trip-2", "5")
	require.NoError(t, err)
	assert.Equal(t, "trip-2", view.TripID)
	assert.Equal(t, []string{"5"}, view.SelectedSeats)
	assert.Empty(t, storedDrafts(t, sess))
}

func TestSelectionService_SavePassengerRejectsMissingEmail(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := newMemorySession()

	_, err := svc.SelectSeat(ctx, sess, "trip-1", "12A")
	require.NoError(t, err)

	passenger := completePassenger("ana")
	passenger.Email = "   "
	_, err = svc.SavePassenger(ctx, sess, "trip-1", "12A", passenger)

	var validationErr *models.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Error(), "email")
	assert.Equal(t, []string{"email"}, validationErr.Fields)
	assert.Empty(t, storedDrafts(t, sess))

	view, err := svc.Selection(ctx, sess, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, "12A", view.ActiveSeat)
}

func TestSelectionService_SavePassengerRequiresSelectedSeat(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := newMemorySession()

	_, err := svc.SavePassenger(ctx, sess, "trip-1", "3", completePassenger("ana"))
	assert.ErrorIs(t, err, ErrSeatNotSelected)
}

func TestSelectionService_SavePassengerNormalizes(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := newMemorySession()

	_, err := svc.SelectSeat(ctx, sess, "trip-1", "3")
	require.NoError(t, err)

	passenger := completePassenger("ana")
	passenger.FirstName = "  Ana  "
	view, err := svc.SavePassenger(ctx, sess, "trip-1", "3", passenger)
	require.NoError(t, err)

	assert.Equal(t, "Ana", view.Drafts["3"].FirstName)
	assert.Equal(t, models.DocumentTypeDNI, view.Drafts["3"].DocumentType)
	assert.Empty(t, view.ActiveSeat)
	assert.Equal(t, []string{"3"}, view.PendingSeats)
}

func TestSelectionService_ContinueNamesMissingSeats(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := newMemorySession()

	for _, seat := range []string{"1A", "1B"} {
		_, err := svc.SelectSeat(ctx, sess, "trip-1", seat)
		require.NoError(t, err)
	}
	_, err := svc.SavePassenger(ctx, sess, "trip-1", "1A", completePassenger("ana"))
	require.NoError(t, err)

	_, err = svc.ContinueToCheckout(ctx, sess, "trip-1")

	var missingErr *MissingPassengersError
	require.True(t, errors.As(err, &missingErr))
	assert.Equal(t, []string{"1B"}, missingErr.Missing)

	view, err := svc.Selection(ctx, sess, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, "1B", view.ActiveSeat)
}

func TestSelectionService_ContinueListsEveryIncompleteSeat(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := newMemorySession()

	for _, seat := range []string{"4", "2", "9"} {
		_, err := svc.SelectSeat(ctx, sess, "trip-1", seat)
		require.NoError(t, err)
	}
	// a draft that lost a field is incomplete
	require.NoError(t, sess.SaveDrafts(ctx, models.PassengerDrafts{
		"2": completePassenger("ana"),
		"9": {FirstName: "Luis", LastName: "Paz", DocumentNumber: "1", Email: "l@example.com"},
	}))

	_, err := svc.ContinueToCheckout(ctx, sess, "trip-1")

	var missingErr *MissingPassengersError
	require.True(t, errors.As(err, &missingErr))
	assert.Equal(t, []string{"4", "9"}, missingErr.Missing)
}

func TestSelectionService_ContinueWithoutSeats(t *testing.T) {
	svc := newSelectionService(t, nil)

	_, err := svc.ContinueToCheckout(context.Background(), newMemorySession(), "trip-1")
	assert.ErrorIs(t, err, ErrNoSeatsSelected)
}

func TestSelectionService_ContinueTotalsIgnoreSeatType(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, respond(http.StatusOK, `{
		"id": "trip-1", "price": 89, "currency": "S/",
		"bus": {"seats": {"1": [{"number": 1, "type": "vip", "price_modifier": 30}, {"number": 2, "type": "premium"}, {"number": 3}]}}
	}`))
	sess := newMemorySession()

	for _, seat := range []string{"1", "2", "3"} {
		_, err := svc.SelectSeat(ctx, sess, "trip-1", seat)
		require.NoError(t, err)
		_, err = svc.SavePassenger(ctx, sess, "trip-1", seat, completePassenger("p"+seat))
		require.NoError(t, err)
	}

	summary, err := svc.ContinueToCheckout(ctx, sess, "trip-1")
	require.NoError(t, err)

	assert.Equal(t, 267.00, summary.Total)
	assert.Equal(t, 89.0, summary.PricePerSeat)
	assert.Equal(t, []string{"1", "2", "3"}, summary.Seats)
	assert.Equal(t, "/checkout/trip-1?seats=1,2,3", summary.CheckoutPath)
	assert.Len(t, storedDrafts(t, sess), 3)
}

func TestSelectionService_CheckoutPassengersPrefill(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := newMemorySession()

	require.NoError(t, sess.SaveDrafts(ctx, models.PassengerDrafts{"2": completePassenger("ana")}))

	passengers, err := svc.CheckoutPassengers(ctx, sess, []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Len(t, passengers, 3)

	assert.Empty(t, passengers[0].FirstName)
	assert.Equal(t, "ana@example.com", passengers[0].Email)
	assert.Equal(t, "987654321", passengers[0].Phone)
	assert.Equal(t, models.DocumentTypeDNI, passengers[0].DocumentType)

	assert.Equal(t, "ana", passengers[1].FirstName)

	assert.Empty(t, passengers[2].Email)
	assert.Equal(t, models.DocumentTypeDNI, passengers[2].DocumentType)
}

func assertDraftsSelected(t *testing.T, sess *session.Session) {
	t.Helper()
	selection, err := sess.Selection(context.Background())
	require.NoError(t, err)
	for seatID := range storedDrafts(t, sess) {
		assert.Contains(t, selection.SelectedSeats, seatID)
	}
}

func TestSelectionService_DraftsWithoutSelectionAreDropped(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := newMemorySession()

	// drafts left behind after the selection key expired
	require.NoError(t, sess.SaveDrafts(ctx, models.PassengerDrafts{"1A": completePassenger("ana")}))

	_, err := svc.SelectSeat(ctx, sess, "trip-1", "2B")
	require.NoError(t, err)
	view, err := svc.SavePassenger(ctx, sess, "trip-1", "2B", completePassenger("luis"))
	require.NoError(t, err)

	assert.NotContains(t, view.Drafts, "1A")
	assert.Equal(t, []string{"2B"}, view.SelectedSeats)
	drafts := storedDrafts(t, sess)
	assert.Len(t, drafts, 1)
	assert.Contains(t, drafts, "2B")
}

func TestSelectionService_ContinueRefreshesSelectionWithDrafts(t *testing.T) {
	ctx := context.Background()
	svc := newSelectionService(t, nil)
	sess := session.New(uuid.New(), session.NewMemoryStore(400*time.Millisecond))

	_, err := svc.SelectSeat(ctx, sess, "trip-1", "1A")
	require.NoError(t, err)
	_, err = svc.SavePassenger(ctx, sess, "trip-1", "1A", completePassenger("ana"))
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)
	_, err = svc.ContinueToCheckout(ctx, sess, "trip-1")
	require.NoError(t, err)

	// past the first write's expiry, inside the refreshed one
	time.Sleep(250 * time.Millisecond)
	_, err = svc.SelectSeat(ctx, sess, "trip-1", "2B")
	require.NoError(t, err)
	_, err = svc.SavePassenger(ctx, sess, "trip-1", "2B", completePassenger("luis"))
	require.NoError(t, err)

	assertDraftsSelected(t, sess)
	selection, err := sess.Selection(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1A", "2B"}, selection.SelectedSeats)
}
