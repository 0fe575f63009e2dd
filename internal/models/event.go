package models

import "time"

// Event represents a calendar event.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID          string    // Provider identifier, empty until the event is created
	Title       string    // Summary or title of the event
	Description string    // Detailed description of the event
	StartTime   time.Time // Start instant (UTC)
	EndTime     time.Time // End instant (UTC)
	TimeZone    string    // IANA zone the event is presented in (e.g., "America/Sao_Paulo")
	Location    string    // Location of the event, the space name for reservations
	Link        string    // Web link to the event, when the provider returns one
	UID         string    // The iCalendar UID
	Source      string    // The provider the event came from (e.g., "google-<calendarID>")
}
