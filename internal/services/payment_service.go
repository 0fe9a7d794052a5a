package services

import (
	"context"
	"errors"
	"strings"

	"github.com/gogobus/booking-gateway/internal/events"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/gogobus/booking-gateway/pkg/busapi"
	"github.com/gogobus/booking-gateway/pkg/mercadopago"
	"github.com/gogobus/booking-gateway/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// ErrPaymentUnavailable is returned when neither the backend nor Mercado Pago produced a redirect
var ErrPaymentUnavailable = errors.New("No se pudo iniciar el pago")

// PaymentService resolves the payment redirect of a booking
type PaymentService struct {
	client    *busapi.Client
	direct    mercadopago.PreferenceCreator
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(client *busapi.Client, direct mercadopago.PreferenceCreator, publisher events.Publisher, m *metrics.Metrics, logger *logrus.Logger) *PaymentService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PaymentService{
		client:    client,
		direct:    direct,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// NormalizeCurrency maps display currencies to the ISO code the provider expects
func NormalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	switch c {
	case "", "S/", "S/.":
		return models.DefaultPaymentCurrency
	}
	return c
}

// CreatePreference returns the payment redirect for a booking. A URL already
// known for the booking is reused; otherwise the backend is asked first and
// Mercado Pago directly second. Nothing is retried.
func (s *PaymentService) CreatePreference(ctx context.Context, sess *session.Session, req models.PreferenceRequest) (*models.PaymentPreference, error) {
	log := s.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"booking_id": req.BookingID,
	})

	if req.PaymentURL != "" {
		return s.resolved(ctx, sess, req, req.PaymentURL, models.PreferenceSourceCached)
	}

	known, err := sess.PaymentURL(ctx, req.BookingID)
	if err != nil {
		log.WithError(err).Warn("Failed to read remembered payment url")
	}
	if known != "" {
		return s.resolved(ctx, sess, req, known, models.PreferenceSourceCached)
	}

	currency := NormalizeCurrency(req.Currency)

	url, backendErr := s.client.WithAuth(sess).CreatePaymentPreference(ctx, busapi.PreferencePayload{
		BookingID: req.BookingID,
		Amount:    req.Amount,
		Currency:  currency,
	})
	if backendErr == nil && url != "" {
		return s.resolved(ctx, sess, req, url, models.PreferenceSourceBackend)
	}
	if backendErr != nil {
		s.metrics.APIError("create_payment_preference")
	}

	url, directErr := s.direct.CreatePreference(ctx, mercadopago.PreferenceParams{
		BookingID: req.BookingID,
		Amount:    req.Amount,
		Currency:  currency,
	})
	if directErr == nil && url != "" {
		s.metrics.Fallback("create_payment_preference")
		return s.resolved(ctx, sess, req, url, models.PreferenceSourceDirect)
	}

	log.WithFields(logrus.Fields{
		"backend_error": errText(backendErr, "empty redirect url"),
		"direct_error":  errText(directErr, "empty redirect url"),
	}).Error("Payment preference could not be created")

	return nil, ErrPaymentUnavailable
}

func (s *PaymentService) resolved(ctx context.Context, sess *session.Session, req models.PreferenceRequest, url string, source models.PreferenceSource) (*models.PaymentPreference, error) {
	if err := sess.SavePaymentURL(ctx, req.BookingID, url); err != nil {
		s.logger.WithError(err).WithField("booking_id", req.BookingID).Warn("Failed to remember payment url")
	}

	s.metrics.PaymentRedirect(string(source))

	if source != models.PreferenceSourceCached {
		event := events.NewBookingEvent(events.EventPaymentRequested, sess.ID, req.BookingID)
		event.Total = req.Amount
		event.Source = string(source)
		event.PaymentURL = url
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.WithError(err).WithField("booking_id", req.BookingID).Warn("Failed to publish payment event")
		}
	}

	return &models.PaymentPreference{
		BookingID:   req.BookingID,
		RedirectURL: url,
		Source:      source,
	}, nil
}

// CheckStatus reports the payment status of a booking. Settlement is not
// tracked by the gateway, so every booking reads as pending.
func (s *PaymentService) CheckStatus(ctx context.Context, bookingID string) models.PaymentStatus {
	return models.PaymentStatusPending
}

func errText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}
