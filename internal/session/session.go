package session

import (
	"context"
	"fmt"

	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/google/uuid"
)

// Session is the typed view of one browsing session's stored state
type Session struct {
	ID    uuid.UUID
	store Store
}

// New binds a session id to a store
func New(id uuid.UUID, store Store) *Session {
	return &Session{ID: id, store: store}
}

// Drafts returns the saved passenger drafts keyed by seat id
func (s *Session) Drafts(ctx context.Context) (models.PassengerDrafts, error) {
	drafts := models.PassengerDrafts{}
	if _, err := s.store.Get(ctx, s.ID, KeyPassengers, &drafts); err != nil {
		return nil, err
	}
	if drafts == nil {
		drafts = models.PassengerDrafts{}
	}
	return drafts, nil
}

// SaveDrafts persists the whole draft map
func (s *Session) SaveDrafts(ctx context.Context, drafts models.PassengerDrafts) error {
	return s.store.Set(ctx, s.ID, KeyPassengers, drafts)
}

// ClearDrafts drops every passenger draft
func (s *Session) ClearDrafts(ctx context.Context) error {
	return s.store.Delete(ctx, s.ID, KeyPassengers)
}

// Selection returns the current seat selection, empty when none was stored
func (s *Session) Selection(ctx context.Context) (models.Selection, error) {
	var selection models.Selection
	if _, err := s.store.Get(ctx, s.ID, KeySelection, &selection); err != nil {
		return models.Selection{}, err
	}
	if selection.SelectedSeats == nil {
		selection.SelectedSeats = []string{}
	}
	return selection, nil
}

// SaveSelection persists the seat selection
func (s *Session) SaveSelection(ctx context.Context, selection models.Selection) error {
	return s.store.Set(ctx, s.ID, KeySelection, selection)
}

// ClearSelection drops the seat selection
func (s *Session) ClearSelection(ctx context.Context) error {
	return s.store.Delete(ctx, s.ID, KeySelection)
}

// LastBooking returns the summary of the last completed booking, or nil
func (s *Session) LastBooking(ctx context.Context) (*models.BookingSummary, error) {
	var summary models.BookingSummary
	found, err := s.store.Get(ctx, s.ID, KeyLastBooking, &summary)
	if err != nil || !found {
		return nil, err
	}
	return &summary, nil
}

// SaveLastBooking stores the summary shown on the success page
func (s *Session) SaveLastBooking(ctx context.Context, summary models.BookingSummary) error {
	return s.store.Set(ctx, s.ID, KeyLastBooking, summary)
}

// AccessToken returns the backend bearer token, "" when signed out
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	var token string
	if _, err := s.store.Get(ctx, s.ID, KeyToken, &token); err != nil {
		return "", err
	}
	return token, nil
}

// HasToken reports whether the session holds a backend token
func (s *Session) HasToken(ctx context.Context) bool {
	token, err := s.AccessToken(ctx)
	return err == nil && token != ""
}

// Invalidate drops the token and the cached profile after the backend rejected them
func (s *Session) Invalidate(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.ID, KeyToken); err != nil {
		return err
	}
	return s.store.Delete(ctx, s.ID, KeyUser)
}

// SetCredentials stores the token and profile returned by login or register
func (s *Session) SetCredentials(ctx context.Context, token string, user models.User) error {
	if err := s.store.Set(ctx, s.ID, KeyToken, token); err != nil {
		return err
	}
	return s.store.Set(ctx, s.ID, KeyUser, user)
}

// User returns the cached profile, or nil
func (s *Session) User(ctx context.Context) (*models.User, error) {
	var user models.User
	found, err := s.store.Get(ctx, s.ID, KeyUser, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// SaveUser caches a profile
func (s *Session) SaveUser(ctx context.Context, user models.User) error {
	return s.store.Set(ctx, s.ID, KeyUser, user)
}

// PaymentURL returns the payment redirect already created for a booking
func (s *Session) PaymentURL(ctx context.Context, bookingID string) (string, error) {
	urls := map[string]string{}
	if _, err := s.store.Get(ctx, s.ID, KeyPaymentURLs, &urls); err != nil {
		return "", err
	}
	return urls[bookingID], nil
}

// SavePaymentURL remembers the payment redirect of a booking
func (s *Session) SavePaymentURL(ctx context.Context, bookingID, url string) error {
	urls := map[string]string{}
	if _, err := s.store.Get(ctx, s.ID, KeyPaymentURLs, &urls); err != nil {
		return err
	}
	if urls == nil {
		urls = map[string]string{}
	}
	urls[bookingID] = url
	if err := s.store.Set(ctx, s.ID, KeyPaymentURLs, urls); err != nil {
		return fmt.Errorf("failed to remember payment url: %w", err)
	}
	return nil
}

// Clear drops everything stored for the session
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.ID)
}
