package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

// fakeStore はホストのカレンダーサービスを模したインメモリ実装
type fakeStore struct {
	mu        sync.Mutex
	calendars []string
	events    map[string]domain.CalendarEvent
	nextID    int
}

func newFakeStore(calendars ...string) *fakeStore {
	return &fakeStore{
		calendars: calendars,
		events:    map[string]domain.CalendarEvent{},
	}
}

func (s *fakeStore) ListEvents(_ context.Context, from, to time.Time) (domain.CalendarListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing := domain.EmptyListing()
	listing.Calendars = append(listing.Calendars, s.calendars...)
	for _, event := range s.events {
		// 期間と重なるイベントを返す
		if !event.Start.Before(to) || !event.End.After(from) {
			continue
		}
		listing.Events[event.Calendar] = append(listing.Events[event.Calendar], event)
	}
	return listing, nil
}

func (s *fakeStore) ListCalendars(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calendars...), nil
}

func (s *fakeStore) CreateEvent(_ context.Context, calendarName, title string, start, end time.Time) (domain.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, name := range s.calendars {
		if name == calendarName {
			found = true
			break
		}
	}
	if !found {
		return domain.Failed(domain.ReasonNotFound, "calendar not found. Available: "+strings.Join(s.calendars, ", ")), nil
	}

	s.nextID++
	id := fmt.Sprintf("EV-%d", s.nextID)
	s.events[id] = domain.CalendarEvent{ID: id, Title: title, Calendar: calendarName, Start: start, End: end}
	return domain.Succeeded(), nil
}

func (s *fakeStore) UpdateEvent(_ context.Context, eventID, title string, start, end time.Time) (domain.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return domain.Failed(domain.ReasonNotFound, "event not found"), nil
	}
	event.Title, event.Start, event.End = title, start, end
	s.events[eventID] = event
	return domain.Succeeded(), nil
}

func (s *fakeStore) DeleteEvent(_ context.Context, eventID string) (domain.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return domain.Failed(domain.ReasonNotFound, "event not found"), nil
	}
	delete(s.events, eventID)
	return domain.Succeeded(), nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// MockCalendarStore は CalendarStore のテスト用モック
type MockCalendarStore struct {
	mock.Mock
}

func (m *MockCalendarStore) ListEvents(ctx context.Context, from, to time.Time) (domain.CalendarListing, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(domain.CalendarListing), args.Error(1)
}

func (m *MockCalendarStore) ListCalendars(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCalendarStore) CreateEvent(ctx context.Context, calendarName, title string, start, end time.Time) (domain.MutationResult, error) {
	args := m.Called(ctx, calendarName, title, start, end)
	return args.Get(0).(domain.MutationResult), args.Error(1)
}

func (m *MockCalendarStore) UpdateEvent(ctx context.Context, eventID, title string, start, end time.Time) (domain.MutationResult, error) {
	args := m.Called(ctx, eventID, title, start, end)
	return args.Get(0).(domain.MutationResult), args.Error(1)
}

func (m *MockCalendarStore) DeleteEvent(ctx context.Context, eventID string) (domain.MutationResult, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(domain.MutationResult), args.Error(1)
}

// recordingNotifier は通知メッセージを記録する
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}
