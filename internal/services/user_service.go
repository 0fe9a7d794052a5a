package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/gogobus/booking-gateway/pkg/busapi"
	"github.com/sirupsen/logrus"
)

// ErrNotAuthenticated is returned when no profile can be resolved for a session
var ErrNotAuthenticated = errors.New("not authenticated")

// UserService signs passengers in against the backend and keeps their
// credentials in the session
type UserService struct {
	client *busapi.Client
	logger *logrus.Logger
}

// NewUserService creates a new user service
func NewUserService(client *busapi.Client, logger *logrus.Logger) *UserService {
	return &UserService{client: client, logger: logger}
}

// Login authenticates and stores the token and profile in the session
func (s *UserService) Login(ctx context.Context, sess *session.Session, req models.LoginRequest) (*models.AuthResponse, error) {
	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
	}
	if err := sess.SetCredentials(ctx, resp.Token, resp.User); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"user_id":    resp.User.ID,
	}).Info("User logged in")
	return resp, nil
}

// Register creates an account and signs it in
func (s *UserService) Register(ctx context.Context, sess *session.Session, req models.RegisterRequest) (*models.AuthResponse, error) {
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
	}
	if err := sess.SetCredentials(ctx, resp.Token, resp.User); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"user_id":    resp.User.ID,
	}).Info("User registered")
	return resp, nil
}

// CurrentUser returns the cached profile, asking the backend only when none
// is cached. A backend failure still falls back to the cache.
func (s *UserService) CurrentUser(ctx context.Context, sess *session.Session) (*models.User, error) {
	if cached, err := sess.User(ctx); err == nil && cached != nil {
		return cached, nil
	}

	user, err := s.client.WithAuth(sess).CurrentUser(ctx)
	if err != nil {
		if cached, cacheErr := sess.User(ctx); cacheErr == nil && cached != nil {
			return cached, nil
		}
		if busapi.IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotAuthenticated, busapi.ErrorMessage(err))
		}
		return nil, fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
	}
	return user, nil
}

// IsAuthenticated reports whether the session holds a backend token
func (s *UserService) IsAuthenticated(ctx context.Context, sess *session.Session) bool {
	return sess.HasToken(ctx)
}

// Logout drops the token and cached profile
func (s *UserService) Logout(ctx context.Context, sess *session.Session) error {
	if err := sess.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	s.logger.WithField("session_id", sess.ID).Info("User logged out")
	return nil
}
