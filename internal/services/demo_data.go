package services

import (
	"strconv"
	"time"

	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/sirupsen/logrus"
)

// Demo data served when the backend refuses anonymous access

var demoLocations = []models.Location{
	{ID: "1", Name: "Lima", Terminal: "Javier Prado", Address: "Av. Javier Prado", Region: "Lima"},
	{ID: "2", Name: "Cusco", Terminal: "Terminal Terrestre", Address: "Av. Industrial", Region: "Cusco"},
	{ID: "3", Name: "Arequipa", Terminal: "Terrapuerto", Address: "Av. Arturo Ibañez", Region: "Arequipa"},
	{ID: "4", Name: "Trujillo", Terminal: "Terrapuerto Trujillo", Address: "Panamericana Norte", Region: "La Libertad"},
	{ID: "5", Name: "Piura", Terminal: "Terrapuerto Piura", Address: "Av. Bolognesi", Region: "Piura"},
}

// demoTrips builds the demo trips departing now
func demoTrips() []models.Trip {
	now := time.Now().UTC()
	return []models.Trip{
		{
			ID:             "demo-1",
			Origin:         "Lima",
			Destination:    "Cusco",
			DepartureTime:  now.Format(time.RFC3339),
			ArrivalTime:    now.Add(16 * time.Hour).Format(time.RFC3339),
			Duration:       16 * 60,
			Price:          89,
			Currency:       models.DefaultCurrency,
			AvailableSeats: 22,
			BusType:        "Bus Cama",
			Amenities:      []string{"wifi", "snack", "usb"},
			Company:        models.DefaultCompany,
			Status:         models.TripStatusAvailable,
		},
		{
			ID:             "demo-2",
			Origin:         "Lima",
			Destination:    "Arequipa",
			DepartureTime:  now.Format(time.RFC3339),
			ArrivalTime:    now.Add(14 * time.Hour).Format(time.RFC3339),
			Duration:       14 * 60,
			Price:          75,
			Currency:       models.DefaultCurrency,
			AvailableSeats: 14,
			BusType:        "Semi Cama",
			Amenities:      []string{"wifi", "tv"},
			Company:        models.DefaultCompany,
			Status:         models.TripStatusAvailable,
		},
	}
}

// DemoTrip returns the demo trip with the given id
func DemoTrip(id string) (models.Trip, bool) {
	for _, trip := range demoTrips() {
		if trip.ID == id {
			return trip, true
		}
	}
	return models.Trip{}, false
}

// demoPlaceName turns a demo location id into its name so id-based searches
// still match demo trips
func demoPlaceName(term string) string {
	for _, loc := range demoLocations {
		if loc.ID == term {
			return loc.Name
		}
	}
	return term
}

func filterDemoTrips(origin, destination string) []models.Trip {
	origin = demoPlaceName(origin)
	destination = demoPlaceName(destination)

	var out []models.Trip
	for _, trip := range demoTrips() {
		if (origin == "" || containsFold(trip.Origin, origin)) &&
			(destination == "" || containsFold(trip.Destination, destination)) {
			out = append(out, trip)
		}
	}
	if out == nil {
		out = []models.Trip{}
	}
	return out
}

func filterDemoLocations(name string) []models.Location {
	out := make([]models.Location, 0, len(demoLocations))
	for _, loc := range demoLocations {
		if name == "" || containsFold(loc.Name, name) {
			out = append(out, loc)
		}
	}
	return out
}

// demoSeatMap lays out the free seats of a demo trip, four per row
func demoSeatMap(trip models.Trip, logger *logrus.Logger) models.SeatMap {
	available := make([]interface{}, 0, trip.AvailableSeats)
	for i := 1; i <= trip.AvailableSeats; i++ {
		available = append(available, strconv.Itoa(i))
	}
	return BuildSeatMap(trip.ID, map[string]interface{}{"available_seats": available}, logger)
}
