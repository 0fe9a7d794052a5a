package models

import "strings"

// DocumentType is the kind of identity document a passenger travels with
type DocumentType string

const (
	DocumentTypeDNI      DocumentType = "dni"
	DocumentTypePassport DocumentType = "passport"
	DocumentTypeOther    DocumentType = "other"
)

// Passenger holds the traveller data captured for one seat.
// The first passenger's email and phone double as the booking contact.
type Passenger struct {
	FirstName      string       `json:"first_name" validate:"required"`
	LastName       string       `json:"last_name" validate:"required"`
	DocumentType   DocumentType `json:"document_type" validate:"omitempty,oneof=dni passport other"`
	DocumentNumber string       `json:"document_number" validate:"required"`
	Email          string       `json:"email" validate:"required"`
	Phone          string       `json:"phone" validate:"required"`
	DateOfBirth    string       `json:"date_of_birth,omitempty"`
}

// Normalize trims every field and defaults the document type to DNI
func (p Passenger) Normalize() Passenger {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.DocumentNumber = strings.TrimSpace(p.DocumentNumber)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.DateOfBirth = strings.TrimSpace(p.DateOfBirth)
	p.DocumentType = DocumentType(strings.ToLower(strings.TrimSpace(string(p.DocumentType))))
	if p.DocumentType == "" {
		p.DocumentType = DocumentTypeDNI
	}
	return p
}

// Complete reports whether all five mandatory fields are filled in
func (p Passenger) Complete() bool {
	return strings.TrimSpace(p.FirstName) != "" &&
		strings.TrimSpace(p.LastName) != "" &&
		strings.TrimSpace(p.DocumentNumber) != "" &&
		strings.TrimSpace(p.Email) != "" &&
		strings.TrimSpace(p.Phone) != ""
}

// FullName joins first and last name
func (p Passenger) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// BlankPassenger returns an empty form entry with the default document type
func BlankPassenger() Passenger {
	return Passenger{DocumentType: DocumentTypeDNI}
}

// PassengerDrafts maps a seat identifier to the passenger data saved for it
type PassengerDrafts map[string]Passenger

// Selection is the in-progress seat selection of one browsing session
type Selection struct {
	TripID        string   `json:"trip_id"`
	SelectedSeats []string `json:"selected_seats"`
	ActiveSeat    string   `json:"active_seat,omitempty"`
}

// Contains reports whether the seat is part of the selection
func (s *Selection) Contains(seatID string) bool {
	for _, id := range s.SelectedSeats {
		if id == seatID {
			return true
		}
	}
	return false
}

// Remove drops a seat from the selection, keeping the order of the rest
func (s *Selection) Remove(seatID string) {
	next := make([]string, 0, len(s.SelectedSeats))
	for _, id := range s.SelectedSeats {
		if id != seatID {
			next = append(next, id)
		}
	}
	s.SelectedSeats = next
}
