package reservation

import (
	"agenda/internal/models"
	"fmt"
	"time"
)

// Accepted layouts for "<eventDate>T<time>".
var windowLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ComputeWindow interprets date+startTime and date+endTime as wall-clock values in loc
// and returns them as UTC instants.
func ComputeWindow(date, startTime, endTime string, loc *time.Location) (models.ReservationWindow, error) {
	start, err := parseLocal(date, startTime, loc)
	if err != nil {
		return models.ReservationWindow{}, err
	}
	end, err := parseLocal(date, endTime, loc)
	if err != nil {
		return models.ReservationWindow{}, err
	}
	return models.ReservationWindow{Start: start.UTC(), End: end.UTC()}, nil
}

func parseLocal(date, clock string, loc *time.Location) (time.Time, error) {
	value := date + "T" + clock
	var firstErr error
	for _, layout := range windowLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("invalid date/time %q: %w", value, firstErr)
}
