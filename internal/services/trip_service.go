package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/pkg/busapi"
	"github.com/gogobus/booking-gateway/pkg/metrics"
	"github.com/sirupsen/logrus"
)

var numericID = regexp.MustCompile(`^\d+$`)

// TripService queries trips, seat maps and locations from the remote API
type TripService struct {
	client  *busapi.Client
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewTripService creates a new trip service
func NewTripService(client *busapi.Client, m *metrics.Metrics, logger *logrus.Logger) *TripService {
	return &TripService{
		client:  client,
		metrics: m,
		logger:  logger,
	}
}

func (s *TripService) api(auth busapi.Authenticator) *busapi.Client {
	if auth == nil {
		return s.client
	}
	return s.client.WithAuth(auth)
}

// SearchTrips lists trips between two locations. Origin and destination must
// resolve to numeric location ids, otherwise the result is empty. A 401 from the
// backend is answered with matching demo trips.
func (s *TripService) SearchTrips(ctx context.Context, auth busapi.Authenticator, params models.TripSearchParams) (models.Result[[]models.Trip], error) {
	originID := params.OriginID
	if originID == "" && numericID.MatchString(params.Origin) {
		originID = params.Origin
	}
	destinationID := params.DestinationID
	if destinationID == "" && numericID.MatchString(params.Destination) {
		destinationID = params.Destination
	}

	if originID == "" || destinationID == "" {
		return models.Ok([]models.Trip{}), nil
	}

	records, err := s.api(auth).SearchTrips(ctx, busapi.TripQuery{
		OriginID:      originID,
		DestinationID: destinationID,
		StartDate:     params.Date,
		EndDate:       params.Date,
	})
	if err != nil {
		s.metrics.APIError("search_trips")
		if !busapi.IsUnauthorized(err) {
			return models.Result[[]models.Trip]{}, fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
		}

		s.logger.WithFields(logrus.Fields{
			"origin":      params.Origin,
			"destination": params.Destination,
		}).Warn("Trip search unauthorized, serving demo trips")
		s.metrics.Fallback("search_trips")

		trips := filterDemoTrips(params.Origin, params.Destination)
		return models.Degraded(arrangeTrips(trips, params), "backend rejected the request: "+busapi.ErrorMessage(err)), nil
	}

	trips := make([]models.Trip, 0, len(records))
	for _, rec := range records {
		trips = append(trips, NormalizeTrip(rec))
	}

	return models.Ok(arrangeTrips(trips, params)), nil
}

// GetTrip fetches one trip. Any failure for a demo trip id returns the demo trip.
func (s *TripService) GetTrip(ctx context.Context, auth busapi.Authenticator, tripID string) (models.Result[models.Trip], error) {
	rec, err := s.api(auth).GetTrip(ctx, tripID)
	if err != nil {
		s.metrics.APIError("get_trip")
		if demo, ok := DemoTrip(tripID); ok {
			s.metrics.Fallback("get_trip")
			return models.Degraded(demo, busapi.ErrorMessage(err)), nil
		}
		return models.Result[models.Trip]{}, fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
	}

	return models.Ok(NormalizeTrip(rec)), nil
}

// GetSeatMap fetches a trip and normalizes its seat matrix. Demo trips get a
// synthesized map when the backend cannot serve them.
func (s *TripService) GetSeatMap(ctx context.Context, auth busapi.Authenticator, tripID string) (models.Result[models.SeatMap], error) {
	rec, err := s.api(auth).GetTrip(ctx, tripID)
	if err != nil {
		s.metrics.APIError("get_seat_map")
		if demo, ok := DemoTrip(tripID); ok {
			s.metrics.Fallback("get_seat_map")
			return models.Degraded(demoSeatMap(demo, s.logger), busapi.ErrorMessage(err)), nil
		}
		return models.Result[models.SeatMap]{}, fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
	}

	return models.Ok(BuildSeatMap(tripID, rec, s.logger)), nil
}

// SearchLocations lists locations matching name. A 401 or 403 is answered from
// the built-in location list.
func (s *TripService) SearchLocations(ctx context.Context, auth busapi.Authenticator, name string) (models.Result[[]models.Location], error) {
	records, err := s.api(auth).SearchLocations(ctx, name)
	if err != nil {
		s.metrics.APIError("search_locations")
		if busapi.IsUnauthorized(err) || busapi.IsForbidden(err) {
			s.metrics.Fallback("search_locations")
			return models.Degraded(filterDemoLocations(name), busapi.ErrorMessage(err)), nil
		}
		return models.Result[[]models.Location]{}, fmt.Errorf("%s: %w", busapi.ErrorMessage(err), err)
	}

	locations := make([]models.Location, 0, len(records))
	for _, rec := range records {
		locations = append(locations, NormalizeLocation(rec))
	}
	return models.Ok(locations), nil
}

// arrangeTrips applies the company filter and price ordering of a search
func arrangeTrips(trips []models.Trip, params models.TripSearchParams) []models.Trip {
	out := make([]models.Trip, 0, len(trips))
	for _, trip := range trips {
		if params.MatchesCompany(trip.Company) {
			out = append(out, trip)
		}
	}

	switch params.SortOrder {
	case models.SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case models.SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}
	return out
}

// NormalizeTrip maps a remote trip record into the stable trip shape
func NormalizeTrip(raw busapi.Record) models.Trip {
	bus := raw.Object("bus")
	if bus == nil {
		bus = busapi.Record{}
	}

	departure := raw.FirstString("departure_time", "departureTime", "date")
	arrival := raw.FirstString("arrival_time", "arrivalTime")

	duration := raw.Int("duration_minutes")
	if duration == 0 && departure != "" && arrival != "" {
		duration = minutesBetween(departure, arrival)
	}

	availableSeats := raw.Int("available_seats_count")
	if availableSeats == 0 {
		availableSeats = raw.Int("availableSeats")
	}
	if availableSeats == 0 {
		availableSeats = len(raw.List("available_seats"))
	}

	totalSeats := raw.Int("total_seats_count")
	if totalSeats == 0 {
		totalSeats = raw.Int("totalSeats")
	}
	if totalSeats == 0 {
		totalSeats = bus.Int("capacidad")
	}

	amenities := bus.Strings("amenities")
	if len(amenities) == 0 {
		amenities = raw.Strings("amenities")
	}
	if amenities == nil {
		amenities = []string{}
	}

	company := bus.FirstString("company")
	if company == "" {
		company = raw.FirstString("company")
	}
	if company == "" {
		company = models.DefaultCompany
	}

	currency := raw.FirstString("currency")
	if currency == "" {
		currency = models.DefaultCurrency
	}

	busType := bus.FirstString("modelo", "name")
	if busType == "" {
		busType = raw.FirstString("busType", "bus_type")
	}

	status := models.TripStatus(raw.String("status"))
	if !status.Valid() {
		status = models.TripStatusAvailable
	}

	return models.Trip{
		ID:             raw.String("id"),
		Origin:         placeName(raw, "origin", "Origen"),
		Destination:    placeName(raw, "destination", "Destino"),
		DepartureTime:  departure,
		ArrivalTime:    arrival,
		Duration:       duration,
		Price:          raw.Float("price"),
		Currency:       currency,
		AvailableSeats: availableSeats,
		TotalSeats:     totalSeats,
		BusType:        busType,
		Amenities:      amenities,
		Company:        company,
		Status:         status,
	}
}

// placeName reads an origin/destination that may be an object with a name or a plain string
func placeName(raw busapi.Record, key, fallback string) string {
	if obj := raw.Object(key); obj != nil {
		if name := obj.String("name"); name != "" {
			return name
		}
		return fallback
	}
	if name := raw.String(key); name != "" {
		return name
	}
	return fallback
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

func parseTime(value string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// minutesBetween returns the rounded non-negative minutes between two timestamps
func minutesBetween(from, to string) int {
	start, ok := parseTime(from)
	if !ok {
		return 0
	}
	end, ok := parseTime(to)
	if !ok {
		return 0
	}
	minutes := end.Sub(start).Round(time.Minute).Minutes()
	if minutes < 0 {
		return 0
	}
	return int(minutes)
}

// NormalizeLocation maps a remote location record
func NormalizeLocation(raw busapi.Record) models.Location {
	return models.Location{
		ID:       raw.String("id"),
		Name:     raw.String("name"),
		Terminal: raw.String("terminal"),
		Address:  raw.String("address"),
		Region:   raw.String("region"),
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
