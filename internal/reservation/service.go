package reservation

import (
	"agenda/internal/models"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// Options configures a Service.
type Options struct {
	// Location is the zone request dates and times are expressed in.
	Location *time.Location
	// SerializeBookings holds a per-calendar lock across the conflict check and the insert.
	// When false, two concurrent requests for the same window may both succeed.
	SerializeBookings bool
}

// Service books reservations on the calendar mapped to a space.
type Service struct {
	logger   *slog.Logger
	calendar Calendar
	spaces   models.SpaceMapping
	loc      *time.Location
	validate *validator.Validate
	locks    *calendarLocks
}

// NewService creates a new Service.
func NewService(logger *slog.Logger, calendar Calendar, spaces models.SpaceMapping, opts Options) (*Service, error) {
	if calendar == nil {
		return nil, errors.New("calendar client is required")
	}
	if opts.Location == nil {
		return nil, errors.New("location is required")
	}

	s := &Service{
		logger:   logger,
		calendar: calendar,
		spaces:   spaces,
		loc:      opts.Location,
		validate: validator.New(),
	}
	if opts.SerializeBookings {
		s.locks = newCalendarLocks()
	}
	return s, nil
}

// Book checks the space's calendar for events overlapping the requested window and,
// if there are none, creates the reservation event.
func (s *Service) Book(ctx context.Context, req models.ReservationRequest) (*models.Event, error) {
	if err := s.validate.Struct(req); err != nil {
		s.logger.Warn("Rejected reservation request", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	calendarID, ok := s.spaces.CalendarID(req.Space)
	if !ok {
		s.logger.Warn("Unknown space requested", "space", req.Space)
		return nil, ErrInvalidSpace
	}

	window, err := ComputeWindow(req.EventDate, req.StartTime, req.EndTime, s.loc)
	if err != nil {
		return nil, err
	}
	if !window.End.After(window.Start) {
		s.logger.Warn("Reservation window is empty or inverted", "space", req.Space, "start", window.Start, "end", window.End)
		return nil, ErrInvalidWindow
	}

	if s.locks != nil {
		unlock, err := s.locks.lock(ctx, calendarID)
		if err != nil {
			return nil, fmt.Errorf("failed to check calendar availability: %w", err)
		}
		defer unlock()
	}

	s.logger.Debug("Checking calendar for conflicts", "space", req.Space, "calendarID", calendarID, "start", window.Start, "end", window.End)
	existing, err := s.calendar.ListEvents(ctx, calendarID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to check calendar availability: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Info("Space already reserved", "space", req.Space, "conflicts", len(existing), "start", window.Start)
		return nil, ErrSpaceReserved
	}

	created, err := s.calendar.InsertEvent(ctx, calendarID, s.newEvent(req, window))
	if err != nil {
		// The provider may have stored the event before the failure surfaced.
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info("Reservation created", "space", req.Space, "calendarID", calendarID, "eventID", created.ID, "start", window.Start)
	return created, nil
}

// Spaces returns the configured space mapping.
func (s *Service) Spaces() models.SpaceMapping {
	return s.spaces
}

func (s *Service) newEvent(req models.ReservationRequest, window models.ReservationWindow) *models.Event {
	return &models.Event{
		Title:       req.EventTitle,
		Location:    req.Space,
		Description: Description(req),
		StartTime:   window.Start,
		EndTime:     window.End,
		TimeZone:    s.loc.String(),
	}
}

// Description composes the event description from the notes and the contact details.
func Description(req models.ReservationRequest) string {
	return fmt.Sprintf("%s\n\nResponsável: %s\nContato: %s", req.EventNotes, req.EventOwner, req.ContactPhone)
}
