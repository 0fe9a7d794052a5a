package models

// Location is a terminal or city that trips depart from or arrive at
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Terminal string `json:"terminal,omitempty"`
	Address  string `json:"address,omitempty"`
	Region   string `json:"region,omitempty"`
}
