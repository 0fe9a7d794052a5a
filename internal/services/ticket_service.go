package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/internal/session"
	"github.com/phpdave11/gofpdf"
	"github.com/sirupsen/logrus"
)

// QRCodeServiceURL renders a booking code as a QR image when the backend provides none
const QRCodeServiceURL = "https://api.qrserver.com/v1/create-qr-code/?size=240x240&data="

// TicketService keeps the last booking of a session and renders printable tickets
type TicketService struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewTicketService creates a new ticket service
func NewTicketService(logger *logrus.Logger) *TicketService {
	return &TicketService{logger: logger, now: time.Now}
}

// QRCodeURL returns the booking's own QR code, or a generated one for its code
func QRCodeURL(b models.Booking) string {
	if b.QRCode != "" {
		return b.QRCode
	}
	return QRCodeServiceURL + url.QueryEscape(displayCode(b))
}

func displayCode(b models.Booking) string {
	if b.BookingCode != "" {
		return b.BookingCode
	}
	return b.ID
}

// BuildSummary assembles what the success page shows for a booking
func (s *TicketService) BuildSummary(b models.Booking, trip models.Trip, seats []string, passengers []models.Passenger, total float64) models.BookingSummary {
	return models.BookingSummary{
		BookingID:   b.ID,
		BookingCode: displayCode(b),
		Seats:       append([]string(nil), seats...),
		TotalAmount: total,
		Passengers:  passengers,
		Trip: models.BookingTripSummary{
			Origin:        trip.Origin,
			Destination:   trip.Destination,
			DepartureTime: trip.DepartureTime,
			ArrivalTime:   trip.ArrivalTime,
			Price:         trip.Price,
			Currency:      trip.Currency,
		},
		QRCode:     QRCodeURL(b),
		PaymentURL: b.PaymentURL,
		CreatedAt:  s.now().UTC(),
	}
}

// CompleteCheckout drops the drafts and selection of a finished checkout and
// remembers the booking summary for the success page
func (s *TicketService) CompleteCheckout(ctx context.Context, sess *session.Session, summary models.BookingSummary) error {
	if err := sess.ClearDrafts(ctx); err != nil {
		return fmt.Errorf("failed to clear passenger drafts: %w", err)
	}
	if err := sess.ClearSelection(ctx); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	if err := sess.SaveLastBooking(ctx, summary); err != nil {
		return fmt.Errorf("failed to save last booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"booking_id": summary.BookingID,
		"seats":      len(summary.Seats),
	}).Info("Checkout completed")
	return nil
}

// LastBooking returns the summary of the session's last booking. Drafts are
// cleared again since the success page can be reached from the payment redirect.
func (s *TicketService) LastBooking(ctx context.Context, sess *session.Session) (*models.BookingSummary, error) {
	if err := sess.ClearDrafts(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear passenger drafts: %w", err)
	}
	summary, err := sess.LastBooking(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load last booking: %w", err)
	}
	return summary, nil
}

// TicketForBooking returns the stored summary for a booking id, or a minimal
// summary carrying only the id and its QR code when the session holds none
func (s *TicketService) TicketForBooking(ctx context.Context, sess *session.Session, bookingID string) (models.BookingSummary, error) {
	summary, err := s.LastBooking(ctx, sess)
	if err != nil {
		return models.BookingSummary{}, err
	}
	if summary != nil && (bookingID == "" || summary.BookingID == bookingID || summary.BookingCode == bookingID) {
		return *summary, nil
	}
	b := models.Booking{ID: bookingID}
	return models.BookingSummary{
		BookingID:   bookingID,
		BookingCode: bookingID,
		QRCode:      QRCodeURL(b),
	}, nil
}

// RenderTicketPDF renders a one page ticket for a booking summary
func (s *TicketService) RenderTicketPDF(summary models.BookingSummary) ([]byte, string, error) {
	code := safe(summary.BookingCode, safe(summary.BookingID, "-"))

	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252; accented passenger names must be translated
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("GOGOBUS Ticket "+code, false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "GOGOBUS - BOLETO")
	pdf.Ln(12)

	currency := safe(summary.Trip.Currency, models.DefaultCurrency)
	amount := "-"
	if summary.TotalAmount > 0 {
		amount = fmt.Sprintf("%s %.2f", currency, summary.TotalAmount)
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Reserva        : %s", code),
		fmt.Sprintf("Ruta           : %s -> %s", safe(summary.Trip.Origin, "-"), safe(summary.Trip.Destination, "-")),
		fmt.Sprintf("Fecha / Hora   : %s", departureLine(summary.Trip.DepartureTime)),
		fmt.Sprintf("Asientos       : %s", safe(strings.Join(summary.Seats, ", "), "-")),
		fmt.Sprintf("Total          : %s", amount),
		fmt.Sprintf("Pasajeros      : %s", safe(passengerNames(summary.Passengers), "-")),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, tr("Presenta este boleto y tu documento de identidad al abordar. Codigo QR: "+summary.QRCode), "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render ticket: %w", err)
	}

	filename := fmt.Sprintf("GOGOBUS_%s.pdf", safeFilenamePart(code))
	return buf.Bytes(), filename, nil
}

func departureLine(raw string) string {
	if raw == "" {
		return "Fecha pendiente"
	}
	if t, ok := parseTime(raw); ok {
		return t.Format("02/01/2006 15:04")
	}
	return raw
}

func passengerNames(passengers []models.Passenger) string {
	names := make([]string, 0, len(passengers))
	for _, p := range passengers {
		if name := p.FullName(); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func safe(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func safeFilenamePart(s string) string {
	s = filenameUnsafe.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "ticket"
	}
	return s
}
