package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/gogobus/booking-gateway/pkg/validator"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoSeatsSelected is returned when checkout is attempted with an empty selection
	ErrNoSeatsSelected = errors.New("no seats selected")
	// ErrSeatNotSelected is returned when passenger data targets a seat outside the selection
	ErrSeatNotSelected = errors.New("seat is not part of the current selection")
)

// MissingPassengersError lists selected seats that still lack complete passenger data,
// in selection order
type MissingPassengersError struct {
	Missing []string
}

func (e *MissingPassengersError) Error() string {
	return fmt.Sprintf("passenger data missing for seats: %s", strings.Join(e.Missing, ", "))
}

// SelectionView is the selection state of a session for one trip
type SelectionView struct {
	TripID        string                 `json:"trip_id"`
	SelectedSeats []string               `json:"selected_seats"`
	ActiveSeat    string                 `json:"active_seat,omitempty"`
	Drafts        models.PassengerDrafts `json:"drafts"`
	PendingSeats  []string               `json:"pending_seats"`
}

// SelectionService keeps the seat selection and passenger drafts of a session consistent
type SelectionService struct {
	trips     *TripService
	validator *validator.PassengerValidator
	logger    *logrus.Logger
}

// NewSelectionService creates a new selection service
func NewSelectionService(trips *TripService, v *validator.PassengerValidator, logger *logrus.Logger) *SelectionService {
	return &SelectionService{
		trips:     trips,
		validator: v,
		logger:    logger,
	}
}

// loadForTrip returns the stored selection and drafts. A selection for another
// trip is replaced by an empty one and its drafts are dropped.
func (s *SelectionService) loadForTrip(ctx context.Context, sess *session.Session, tripID string) (models.Selection, models.PassengerDrafts, error) {
	selection, err := sess.Selection(ctx)
	if err != nil {
		return models.Selection{}, nil, fmt.Errorf("failed to load selection: %w", err)
	}
	drafts, err := sess.Drafts(ctx)
	if err != nil {
		return models.Selection{}, nil, fmt.Errorf("failed to load passenger drafts: %w", err)
	}

	if selection.TripID != tripID {
		if selection.TripID != "" {
			s.logger.WithFields(logrus.Fields{
				"session_id":    sess.ID,
				"previous_trip": selection.TripID,
				"trip_id":       tripID,
			}).Info("Selection moved to another trip, dropping previous seats and drafts")
		}
		// drafts can outlive an expired selection; they never carry over
		if selection.TripID != "" || len(drafts) > 0 {
			if err := sess.ClearDrafts(ctx); err != nil {
				return models.Selection{}, nil, fmt.Errorf("failed to clear passenger drafts: %w", err)
			}
		}
		selection = models.Selection{TripID: tripID, SelectedSeats: []string{}}
		drafts = models.PassengerDrafts{}
	}
	return selection, drafts, nil
}

// pruneDrafts drops drafts of seats that are no longer selected
func pruneDrafts(drafts models.PassengerDrafts, selection models.Selection) {
	for seatID := range drafts {
		if !selection.Contains(seatID) {
			delete(drafts, seatID)
		}
	}
}

// SelectSeat toggles a seat. Deselecting drops the seat's draft at once;
// selecting makes the seat the active one without creating a draft.
func (s *SelectionService) SelectSeat(ctx context.Context, sess *session.Session, tripID, seatID string) (*SelectionView, error) {
	selection, drafts, err := s.loadForTrip(ctx, sess, tripID)
	if err != nil {
		return nil, err
	}

	if selection.Contains(seatID) {
		selection.Remove(seatID)
		delete(drafts, seatID)
		if err := sess.SaveDrafts(ctx, drafts); err != nil {
			return nil, fmt.Errorf("failed to save passenger drafts: %w", err)
		}
		selection.ActiveSeat = ""
	} else {
		selection.SelectedSeats = append(selection.SelectedSeats, seatID)
		selection.ActiveSeat = seatID
	}

	if err := sess.SaveSelection(ctx, selection); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}

	return buildView(selection, drafts), nil
}

// SavePassenger validates and stores the passenger data of a selected seat.
// Nothing is written when validation fails.
func (s *SelectionService) SavePassenger(ctx context.Context, sess *session.Session, tripID, seatID string, passenger models.Passenger) (*SelectionView, error) {
	normalized, err := s.validator.Validate(passenger)
	if err != nil {
		return nil, err
	}

	selection, err := sess.Selection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load selection: %w", err)
	}
	if selection.TripID != tripID || !selection.Contains(seatID) {
		return nil, ErrSeatNotSelected
	}

	drafts, err := sess.Drafts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load passenger drafts: %w", err)
	}

	pruneDrafts(drafts, selection)
	drafts[seatID] = normalized
	if err := sess.SaveDrafts(ctx, drafts); err != nil {
		return nil, fmt.Errorf("failed to save passenger drafts: %w", err)
	}

	selection.ActiveSeat = ""
	if err := sess.SaveSelection(ctx, selection); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}

	return buildView(selection, drafts), nil
}

// ContinueToCheckout checks that every selected seat has complete passenger data
// and prices the selection. When data is missing the first incomplete seat
// becomes the active one and a *MissingPassengersError is returned.
func (s *SelectionService) ContinueToCheckout(ctx context.Context, sess *session.Session, tripID string) (*models.CheckoutSummary, error) {
	selection, err := sess.Selection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load selection: %w", err)
	}
	if selection.TripID != tripID || len(selection.SelectedSeats) == 0 {
		return nil, ErrNoSeatsSelected
	}

	drafts, err := sess.Drafts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load passenger drafts: %w", err)
	}

	var missing []string
	for _, seatID := range selection.SelectedSeats {
		draft, ok := drafts[seatID]
		if !ok || !draft.Complete() {
			missing = append(missing, seatID)
		}
	}

	if len(missing) > 0 {
		selection.ActiveSeat = missing[0]
		if err := sess.SaveSelection(ctx, selection); err != nil {
			return nil, fmt.Errorf("failed to save selection: %w", err)
		}
		return nil, &MissingPassengersError{Missing: missing}
	}

	// selection and drafts are refreshed together so neither expires first
	pruneDrafts(drafts, selection)
	if err := sess.SaveDrafts(ctx, drafts); err != nil {
		return nil, fmt.Errorf("failed to save passenger drafts: %w", err)
	}
	if err := sess.SaveSelection(ctx, selection); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}

	trip, err := s.trips.GetTrip(ctx, sess, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trip for checkout: %w", err)
	}

	seats := append([]string{}, selection.SelectedSeats...)
	return &models.CheckoutSummary{
		TripID:       tripID,
		Seats:        seats,
		PricePerSeat: trip.Data.Price,
		Total:        roundAmount(trip.Data.Price * float64(len(seats))),
		Currency:     trip.Data.Currency,
		CheckoutPath: fmt.Sprintf("/checkout/%s?seats=%s", tripID, strings.Join(seats, ",")),
	}, nil
}

// Selection returns the selection state for a trip without changing it
func (s *SelectionService) Selection(ctx context.Context, sess *session.Session, tripID string) (*SelectionView, error) {
	selection, err := sess.Selection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load selection: %w", err)
	}
	if selection.TripID != tripID {
		return buildView(models.Selection{TripID: tripID, SelectedSeats: []string{}}, models.PassengerDrafts{}), nil
	}

	drafts, err := sess.Drafts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load passenger drafts: %w", err)
	}
	return buildView(selection, drafts), nil
}

// CheckoutPassengers prefills the checkout form, one entry per seat. A first seat
// without a draft borrows the contact email and phone of the first saved draft.
func (s *SelectionService) CheckoutPassengers(ctx context.Context, sess *session.Session, seats []string) ([]models.Passenger, error) {
	drafts, err := sess.Drafts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load passenger drafts: %w", err)
	}

	passengers := make([]models.Passenger, 0, len(seats))
	for i, seatID := range seats {
		if draft, ok := drafts[seatID]; ok {
			passengers = append(passengers, draft)
			continue
		}
		blank := models.BlankPassenger()
		if i == 0 {
			if first, ok := firstDraft(drafts, seats); ok {
				blank.Email = first.Email
				blank.Phone = first.Phone
			}
		}
		passengers = append(passengers, blank)
	}
	return passengers, nil
}

// ApplySelection overlays the session's selection on a seat map: selected seats
// become "selected", or "pending" once their passenger data is saved. Seats the
// backend reports occupied or blocked keep that status.
func ApplySelection(seatMap models.SeatMap, view *SelectionView) models.SeatMap {
	if view == nil || view.TripID != seatMap.TripID {
		return seatMap
	}

	seats := make([]models.Seat, len(seatMap.Seats))
	copy(seats, seatMap.Seats)

	selected := toSet(view.SelectedSeats)
	for i, seat := range seats {
		if !selected[seat.ID] || !seat.Status.Selectable() {
			continue
		}
		if _, ok := view.Drafts[seat.ID]; ok {
			seats[i].Status = models.SeatStatusPending
		} else {
			seats[i].Status = models.SeatStatusSelected
		}
	}
	seatMap.Seats = seats
	return seatMap
}

// firstDraft picks the first saved draft, preferring the order of the given seats
func firstDraft(drafts models.PassengerDrafts, seats []string) (models.Passenger, bool) {
	for _, seatID := range seats {
		if draft, ok := drafts[seatID]; ok {
			return draft, true
		}
	}
	keys := make([]string, 0, len(drafts))
	for key := range drafts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return models.Passenger{}, false
	}
	return drafts[keys[0]], true
}

func buildView(selection models.Selection, drafts models.PassengerDrafts) *SelectionView {
	pending := []string{}
	for _, seatID := range selection.SelectedSeats {
		if _, ok := drafts[seatID]; ok {
			pending = append(pending, seatID)
		}
	}
	seats := selection.SelectedSeats
	if seats == nil {
		seats = []string{}
	}
	return &SelectionView{
		TripID:        selection.TripID,
		SelectedSeats: seats,
		ActiveSeat:    selection.ActiveSeat,
		Drafts:        drafts,
		PendingSeats:  pending,
	}
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
