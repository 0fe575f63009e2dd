package reservation

import "errors"

var (
	// ErrInvalidRequest is returned when a required field is missing.
	ErrInvalidRequest = errors.New("reservation: invalid request")

	// ErrInvalidSpace is returned when the space is not in the configured mapping.
	ErrInvalidSpace = errors.New("reservation: invalid space")

	// ErrInvalidWindow is returned when the end time is not after the start time.
	ErrInvalidWindow = errors.New("reservation: end time must be after start time")

	// ErrSpaceReserved is returned when the calendar already has an event in the window.
	ErrSpaceReserved = errors.New("reservation: space already reserved for that date and time")
)
