package google

import (
	"agenda/internal/models"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const allDayLayout = "2006-01-02"

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient creates a Google Calendar client authenticated with a service account.
// credentialsJSON is the service-account key as downloaded from the Google console.
func NewClient(ctx context.Context, logger *slog.Logger, credentialsJSON []byte, applicationName string) (*CalendarClient, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("google service account credentials are empty")
	}

	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials: %w", err)
	}

	return NewClientWithOptions(ctx, logger,
		option.WithCredentials(creds),
		option.WithUserAgent(applicationName),
	)
}

// NewClientWithOptions creates a client from raw API options (custom endpoint, HTTP client).
func NewClientWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, logger: logger}, nil
}

// ReadCredentials returns inline credentials when set, otherwise the contents of path.
func ReadCredentials(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s not found. Please provide GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE", path)
		}
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	return b, nil
}

// ListEvents fetches the events of calendarID that overlap [timeMin, timeMax).
// Recurring events are expanded into their single instances.
func (c *CalendarClient) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*models.Event, error) {
	c.logger.Debug("Fetching events", "calendarID", calendarID, "timeMin", timeMin, "timeMax", timeMax)

	var items []*calendar.Event
	err := c.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		TimeMax(timeMax.UTC().Format(time.RFC3339)).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Debug("Fetched events from Google Calendar", "count", len(items), "calendarID", calendarID)
	return c.toInternalEvents(items, calendarID), nil
}

// InsertEvent creates event on calendarID.
func (c *CalendarClient) InsertEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	created, err := c.service.Events.Insert(calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	c.logger.Info("Created event in Google Calendar", "calendarID", calendarID, "eventID", created.Id, "title", created.Summary)
	return c.toInternalEvents([]*calendar.Event{created}, calendarID)[0], nil
}

// CalendarName returns the summary of calendarID, which also proves the account can reach it.
func (c *CalendarClient) CalendarName(ctx context.Context, calendarID string) (string, error) {
	cal, err := c.service.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get calendar %s: %w", calendarID, err)
	}
	return cal.Summary, nil
}

func toGoogleEvent(event *models.Event) *calendar.Event {
	return &calendar.Event{
		Summary:     event.Title,
		Location:    event.Location,
		Description: event.Description,
		Start: &calendar.EventDateTime{
			DateTime: event.StartTime.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.EndTime.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
	}
}

// toInternalEvents converts Google Calendar events to the internal Event model.
// Every item is kept, one output per input: all-day events block the whole day and an
// item with an unreadable start keeps a zero start so it still counts as a conflict.
func (c *CalendarClient) toInternalEvents(googleEvents []*calendar.Event, source string) []*models.Event {
	internalEvents := make([]*models.Event, 0, len(googleEvents))
	for _, item := range googleEvents {
		startTime, err := parseEventTime(item.Start)
		if err != nil {
			c.logger.Warn("Event has an unreadable start", "eventID", item.Id, "calendarID", source, "error", err)
		}
		endTime, err := parseEventTime(item.End)
		if err != nil {
			endTime = startTime
		}

		var tz string
		if item.Start != nil {
			tz = item.Start.TimeZone
		}

		internalEvents = append(internalEvents, &models.Event{
			ID:          item.Id,
			Title:       item.Summary,
			Description: item.Description,
			StartTime:   startTime.UTC(),
			EndTime:     endTime.UTC(),
			TimeZone:    tz,
			Location:    item.Location,
			Link:        item.HtmlLink,
			UID:         item.ICalUID,
			Source:      fmt.Sprintf("google-%s", source),
		})
	}
	return internalEvents
}

func parseEventTime(dt *calendar.EventDateTime) (time.Time, error) {
	switch {
	case dt == nil:
		return time.Time{}, errors.New("missing date")
	case dt.DateTime != "":
		return time.Parse(time.RFC3339, dt.DateTime)
	case dt.Date != "":
		return time.Parse(allDayLayout, dt.Date)
	default:
		return time.Time{}, errors.New("missing date")
	}
}
