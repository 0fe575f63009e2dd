package models

import "time"

// ReservationRequest is the body accepted by the booking endpoint.
type ReservationRequest struct {
	EventDate    string `json:"eventDate" validate:"required"` // "2024-06-01"
	StartTime    string `json:"startTime" validate:"required"` // "19:00"
	EndTime      string `json:"endTime" validate:"required"`   // "21:00"
	Space        string `json:"space" validate:"required"`
	EventTitle   string `json:"eventTitle" validate:"required"`
	EventOwner   string `json:"eventOwner" validate:"required"`
	ContactPhone string `json:"contactPhone" validate:"required"`
	EventNotes   string `json:"eventNotes,omitempty"`
}

// ReservationWindow is the half-open UTC interval [Start, End) of a reservation.
type ReservationWindow struct {
	Start time.Time
	End   time.Time
}
