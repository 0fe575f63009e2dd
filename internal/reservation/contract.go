package reservation

import (
	"agenda/internal/models"
	"context"
	"time"
)

// Calendar is the calendar provider a reservation is booked against.
type Calendar interface {
	// ListEvents returns the events of calendarID occurring within [timeMin, timeMax),
	// with recurring events expanded into single instances.
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*models.Event, error)
	// InsertEvent creates event on calendarID and returns the stored event.
	InsertEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error)
}
