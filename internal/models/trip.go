package models

import "strings"

// TripStatus represents the availability of a trip
type TripStatus string

const (
	TripStatusAvailable TripStatus = "available"
	TripStatusFull      TripStatus = "full"
	TripStatusCancelled TripStatus = "cancelled"
)

// Valid reports whether the status is a known trip status
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusAvailable, TripStatusFull, TripStatusCancelled:
		return true
	}
	return false
}

// DefaultCurrency is the display currency used when the backend omits one
const DefaultCurrency = "S/"

// DefaultCompany is used when a trip record carries no operator name
const DefaultCompany = "GOGOBUS"

// Trip is the normalized shape of a remote trip record
type Trip struct {
	ID             string     `json:"id"`
	Origin         string     `json:"origin"`
	Destination    string     `json:"destination"`
	DepartureTime  string     `json:"departure_time"`
	ArrivalTime    string     `json:"arrival_time,omitempty"`
	Duration       int        `json:"duration"` // minutes
	Price          float64    `json:"price"`
	Currency       string     `json:"currency"`
	AvailableSeats int        `json:"available_seats"`
	TotalSeats     int        `json:"total_seats,omitempty"`
	BusType        string     `json:"bus_type,omitempty"`
	Amenities      []string   `json:"amenities"`
	Company        string     `json:"company,omitempty"`
	Status         TripStatus `json:"status"`
}

// SortOrder controls price ordering of search results
type SortOrder string

const (
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
)

// TripSearchParams holds the query parameters of a trip search
type TripSearchParams struct {
	Origin        string    `form:"origin" json:"origin"`
	Destination   string    `form:"destination" json:"destination"`
	OriginID      string    `form:"origin_id" json:"origin_id"`
	DestinationID string    `form:"destination_id" json:"destination_id"`
	Date          string    `form:"date" json:"date"`
	Passengers    int       `form:"passengers" json:"passengers,omitempty"`
	Companies     []string  `form:"companies" json:"companies,omitempty"`
	SortOrder     SortOrder `form:"sort_order" json:"sort_order,omitempty"`
}

// MatchesCompany reports whether the trip operator is one of the requested companies.
// An empty filter matches everything.
func (p TripSearchParams) MatchesCompany(company string) bool {
	if len(p.Companies) == 0 {
		return true
	}
	for _, c := range p.Companies {
		if strings.EqualFold(strings.TrimSpace(c), company) {
			return true
		}
	}
	return false
}
