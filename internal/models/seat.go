package models

// SeatType is the comfort class of a seat
type SeatType string

const (
	SeatTypeStandard SeatType = "standard"
	SeatTypePremium  SeatType = "premium"
	SeatTypeVIP      SeatType = "vip"
)

// ParseSeatType maps a raw type string to a known seat type, falling back to standard
func ParseSeatType(raw string) SeatType {
	switch SeatType(raw) {
	case SeatTypePremium:
		return SeatTypePremium
	case SeatTypeVIP:
		return SeatTypeVIP
	}
	return SeatTypeStandard
}

// SeatStatus represents the availability of a seat as shown to the passenger
type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusOccupied  SeatStatus = "occupied"
	SeatStatusBlocked   SeatStatus = "blocked"
	SeatStatusPending   SeatStatus = "pending"  // selected, passenger data saved
	SeatStatusSelected  SeatStatus = "selected" // selected, passenger data missing
)

// Selectable reports whether a passenger may pick a seat in this status
func (s SeatStatus) Selectable() bool {
	return s != SeatStatusOccupied && s != SeatStatusBlocked
}

// Seat is one physical seat of a trip's seat map
type Seat struct {
	ID     string     `json:"id"`
	Number string     `json:"number"`
	Row    int        `json:"row"`
	Column int        `json:"column"`
	Type   SeatType   `json:"type"`
	Status SeatStatus `json:"status"`
	Price  float64    `json:"price"` // modifier; not applied to totals
}

// SeatMap is the normalized set of seats for one trip
type SeatMap struct {
	TripID           string     `json:"trip_id"`
	Rows             int        `json:"rows"`
	Columns          int        `json:"columns"`
	Seats            []Seat     `json:"seats"`
	Layout           [][]string `json:"layout"`
	DuplicateSeatIDs []string   `json:"duplicate_seat_ids,omitempty"`
}

// Seat returns the seat with the given identifier
func (m *SeatMap) Seat(id string) (Seat, bool) {
	for _, s := range m.Seats {
		if s.ID == id {
			return s, true
		}
	}
	return Seat{}, false
}
