package reservation

import (
	"agenda/internal/models"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*models.Event, error) {
	args := m.Called(ctx, calendarID, timeMin, timeMax)
	events, _ := args.Get(0).([]*models.Event)
	return events, args.Error(1)
}

func (m *mockCalendar) InsertEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	args := m.Called(ctx, calendarID, event)
	created, _ := args.Get(0).(*models.Event)
	return created, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validRequest() models.ReservationRequest {
	return models.ReservationRequest{
		EventDate:    "2024-06-01",
		StartTime:    "19:00",
		EndTime:      "21:00",
		Space:        "Auditorium",
		EventTitle:   "Meeting",
		EventOwner:   "Alice",
		ContactPhone: "555-0100",
	}
}

func newTestService(t *testing.T, cal Calendar, serialize bool) *Service {
	t.Helper()
	s, err := NewService(discardLogger(), cal, models.NewSpaceMapping(map[string]string{"Auditorium": "cal-123"}), Options{
		Location:          saoPaulo(t),
		SerializeBookings: serialize,
	})
	require.NoError(t, err)
	return s
}

func TestBookCreatesEvent(t *testing.T) {
	cal := &mockCalendar{}
	start := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	cal.On("ListEvents", mock.Anything, "cal-123",
		mock.MatchedBy(func(tm time.Time) bool { return tm.Equal(start) }),
		mock.MatchedBy(func(tm time.Time) bool { return tm.Equal(end) }),
	).Return([]*models.Event{}, nil).Once()
	cal.On("InsertEvent", mock.Anything, "cal-123", mock.MatchedBy(func(e *models.Event) bool {
		return e.Title == "Meeting" &&
			e.Location == "Auditorium" &&
			e.TimeZone == "America/Sao_Paulo" &&
			e.StartTime.Equal(start) && e.EndTime.Equal(end) &&
			assert.Contains(t, e.Description, "Responsável: Alice") &&
			assert.Contains(t, e.Description, "Contato: 555-0100")
	})).Return(&models.Event{ID: "evt-1"}, nil).Once()

	created, err := newTestService(t, cal, false).Book(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.ID)
	cal.AssertExpectations(t)
	cal.AssertNumberOfCalls(t, "InsertEvent", 1)
}

func TestBookInvalidSpaceSkipsCalendar(t *testing.T) {
	cal := &mockCalendar{}
	req := validRequest()
	req.Space = "Garage"

	_, err := newTestService(t, cal, false).Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidSpace)
	cal.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cal.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookMissingFieldsSkipsCalendar(t *testing.T) {
	cases := map[string]func(*models.ReservationRequest){
		"eventDate":    func(r *models.ReservationRequest) { r.EventDate = "" },
		"startTime":    func(r *models.ReservationRequest) { r.StartTime = "" },
		"endTime":      func(r *models.ReservationRequest) { r.EndTime = "" },
		"space":        func(r *models.ReservationRequest) { r.Space = "" },
		"eventTitle":   func(r *models.ReservationRequest) { r.EventTitle = "" },
		"eventOwner":   func(r *models.ReservationRequest) { r.EventOwner = "" },
		"contactPhone": func(r *models.ReservationRequest) { r.ContactPhone = "" },
	}

	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			cal := &mockCalendar{}
			req := validRequest()
			mutate(&req)

			_, err := newTestService(t, cal, false).Book(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, cal.Calls)
		})
	}
}

func TestBookNotesAreOptional(t *testing.T) {
	cal := &mockCalendar{}
	cal.On("ListEvents", mock.Anything, "cal-123", mock.Anything, mock.Anything).Return(nil, nil)
	cal.On("InsertEvent", mock.Anything, "cal-123", mock.Anything).Return(&models.Event{ID: "evt-2"}, nil)

	req := validRequest()
	req.EventNotes = "Trazer projetor"
	_, err := newTestService(t, cal, false).Book(context.Background(), req)
	require.NoError(t, err)

	inserted := cal.Calls[1].Arguments.Get(2).(*models.Event)
	assert.Equal(t, "Trazer projetor\n\nResponsável: Alice\nContato: 555-0100", inserted.Description)
}

func TestBookConflictSkipsInsert(t *testing.T) {
	cal := &mockCalendar{}
	cal.On("ListEvents", mock.Anything, "cal-123", mock.Anything, mock.Anything).
		Return([]*models.Event{{ID: "existing", Title: "Choir rehearsal"}}, nil)

	_, err := newTestService(t, cal, false).Book(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrSpaceReserved)
	cal.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookInvertedWindowSkipsCalendar(t *testing.T) {
	cal := &mockCalendar{}
	req := validRequest()
	req.StartTime, req.EndTime = "21:00", "19:00"

	_, err := newTestService(t, cal, false).Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	assert.Empty(t, cal.Calls)
}

func TestBookMalformedTimeIsGenericError(t *testing.T) {
	cal := &mockCalendar{}
	req := validRequest()
	req.StartTime = "sete da noite"

	_, err := newTestService(t, cal, false).Book(context.Background(), req)
	require.Error(t, err)
	for _, sentinel := range []error{ErrInvalidRequest, ErrInvalidSpace, ErrInvalidWindow, ErrSpaceReserved} {
		assert.False(t, errors.Is(err, sentinel))
	}
	assert.Contains(t, err.Error(), "sete da noite")
	assert.Empty(t, cal.Calls)
}

func TestBookPropagatesCalendarFailures(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		cal := &mockCalendar{}
		cal.On("ListEvents", mock.Anything, "cal-123", mock.Anything, mock.Anything).Return(nil, errors.New("oauth2: cannot fetch token"))

		_, err := newTestService(t, cal, false).Book(context.Background(), validRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oauth2: cannot fetch token")
		cal.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insert", func(t *testing.T) {
		cal := &mockCalendar{}
		cal.On("ListEvents", mock.Anything, "cal-123", mock.Anything, mock.Anything).Return(nil, nil)
		cal.On("InsertEvent", mock.Anything, "cal-123", mock.Anything).Return(nil, errors.New("connection reset by peer"))

		_, err := newTestService(t, cal, false).Book(context.Background(), validRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset by peer")
	})
}

// memoryCalendar stores inserted events and can hold listings until n callers have arrived.
type memoryCalendar struct {
	mu      sync.Mutex
	events  map[string][]*models.Event
	inserts int

	listBarrier *sync.WaitGroup
}

func (c *memoryCalendar) ListEvents(_ context.Context, calendarID string, timeMin, timeMax time.Time) ([]*models.Event, error) {
	if c.listBarrier != nil {
		c.listBarrier.Done()
		c.listBarrier.Wait()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*models.Event
	for _, e := range c.events[calendarID] {
		if e.StartTime.Before(timeMax) && e.EndTime.After(timeMin) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *memoryCalendar) InsertEvent(_ context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.events == nil {
		c.events = make(map[string][]*models.Event)
	}
	c.inserts++
	stored := *event
	c.events[calendarID] = append(c.events[calendarID], &stored)
	return &stored, nil
}

func bookConcurrently(s *Service) []error {
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Book(context.Background(), validRequest())
		}(i)
	}
	wg.Wait()
	return errs
}

func TestConcurrentBookingsMayDoubleBook(t *testing.T) {
	barrier := &sync.WaitGroup{}
	barrier.Add(2)
	cal := &memoryCalendar{listBarrier: barrier}

	errs := bookConcurrently(newTestService(t, cal, false))

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 2, cal.inserts)
}

func TestSerializedBookingsAllowOnlyOne(t *testing.T) {
	cal := &memoryCalendar{}

	errs := bookConcurrently(newTestService(t, cal, true))

	var ok, reserved int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSpaceReserved):
			reserved++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, reserved)
	assert.Equal(t, 1, cal.inserts)
}

func TestSerializedBookingGivesUpWhenContextEnds(t *testing.T) {
	cal := &mockCalendar{}
	s := newTestService(t, cal, true)

	unlock, err := s.locks.lock(context.Background(), "cal-123")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Book(ctx, validRequest())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrSpaceReserved))
	cal.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCalendarLocksAreReusable(t *testing.T) {
	l := newCalendarLocks()

	unlock, err := l.lock(context.Background(), "cal-123")
	require.NoError(t, err)

	other, err := l.lock(context.Background(), "cal-456")
	require.NoError(t, err)
	other()

	unlock()
	unlock, err = l.lock(context.Background(), "cal-123")
	require.NoError(t, err)
	unlock()
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(discardLogger(), nil, models.NewSpaceMapping(nil), Options{Location: time.UTC})
	assert.Error(t, err)

	_, err = NewService(discardLogger(), &mockCalendar{}, models.NewSpaceMapping(nil), Options{})
	assert.Error(t, err)
}
