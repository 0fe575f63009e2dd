package caldav

import (
	"agenda/internal/models"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const (
	// DefaultEndpoint is the iCloud CalDAV endpoint.
	DefaultEndpoint = "https://caldav.icloud.com/"

	productID = "-//agenda//EN"
)

// basicAuthTransport handles adding Basic Auth and custom headers to requests.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "agenda/1.0")
	return t.Transport.RoundTrip(req)
}

// Client books reservations on a CalDAV server. Calendar identifiers are calendar
// collection paths, e.g. "/123456/calendars/auditorium/".
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
}

// NewClient creates a CalDAV client for endpoint using basic authentication.
func NewClient(logger *slog.Logger, endpoint, username, password string) (*Client, error) {
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	return &Client{caldavClient: caldavClient, logger: logger}, nil
}

// ListEvents returns the events of the calendar at calendarID overlapping [timeMin, timeMax).
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*models.Event, error) {
	c.logger.Debug("Querying CalDAV calendar", "calendarID", calendarID, "timeMin", timeMin, "timeMax", timeMax)

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: timeMin.UTC(),
				End:   timeMax.UTC(),
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, calendarID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var events []*models.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		events = append(events, fromICal(c.logger, obj.Data, calendarID)...)
	}
	c.logger.Debug("Fetched events from CalDAV calendar", "count", len(events), "calendarID", calendarID)
	return events, nil
}

// InsertEvent stores event as a new calendar object under calendarID.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	created := *event
	if created.UID == "" {
		created.UID = GenerateUID()
	}

	cal, err := toICal(&created, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	objectPath := path.Join(calendarID, created.UID+".ics")
	obj, err := c.caldavClient.PutCalendarObject(ctx, objectPath, cal)
	if err != nil {
		return nil, fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	created.ID = obj.Path
	created.Source = "caldav-" + calendarID
	c.logger.Info("Created event on CalDAV server", "calendarID", calendarID, "path", obj.Path, "title", created.Title)
	return &created, nil
}

// CalendarName discovers the user's calendars and returns the name of the one at calendarID.
func (c *Client) CalendarName(ctx context.Context, calendarID string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if strings.TrimSuffix(cal.Path, "/") == strings.TrimSuffix(calendarID, "/") {
			return cal.Name, nil
		}
	}

	return "", fmt.Errorf("no calendar found at '%s'", calendarID)
}

// toICal converts an internal Event to a VCALENDAR holding one VEVENT.
// Start and end carry a TZID parameter for the event's zone.
func toICal(event *models.Event, stamp time.Time) (*ical.Calendar, error) {
	loc := time.UTC
	if event.TimeZone != "" {
		l, err := time.LoadLocation(event.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("invalid event time zone %q: %w", event.TimeZone, err)
		}
		loc = l
	}

	ve := ical.NewEvent()
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.In(loc))
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime.In(loc))
	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, ve.Component)
	return cal, nil
}

// fromICal converts the VEVENTs of cal to internal Events, one per VEVENT.
// A time whose TZID is not an IANA name (e.g. Windows zone names) is read as UTC wall
// clock; an unreadable start stays zero. The event is kept either way.
func fromICal(logger *slog.Logger, cal *ical.Calendar, calendarID string) []*models.Event {
	var events []*models.Event
	for _, ve := range cal.Events() {
		start, err := ve.DateTimeStart(time.UTC)
		if err != nil {
			logger.Warn("Event has an unreadable start", "calendarID", calendarID, "error", err)
			start = floatingTime(ve.Props.Get(ical.PropDateTimeStart))
		}
		end, err := ve.DateTimeEnd(time.UTC)
		if err != nil {
			end = floatingTime(ve.Props.Get(ical.PropDateTimeEnd))
			if end.IsZero() {
				end = start
			}
		}

		e := &models.Event{
			StartTime: start.UTC(),
			EndTime:   end.UTC(),
			Source:    "caldav-" + calendarID,
		}
		e.UID, _ = ve.Props.Text(ical.PropUID)
		e.ID = e.UID
		e.Title, _ = ve.Props.Text(ical.PropSummary)
		e.Description, _ = ve.Props.Text(ical.PropDescription)
		e.Location, _ = ve.Props.Text(ical.PropLocation)
		if p := ve.Props.Get(ical.PropDateTimeStart); p != nil {
			e.TimeZone = p.Params.Get(ical.ParamTimezoneID)
		}
		events = append(events, e)
	}
	return events
}

// floatingTime parses the raw value of a date or date-time property ignoring its TZID.
func floatingTime(p *ical.Prop) time.Time {
	if p == nil {
		return time.Time{}
	}
	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		if t, err := time.ParseInLocation(layout, p.Value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
