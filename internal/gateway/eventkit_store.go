package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

var (
	// ErrAuthorizationDenied カレンダーへのアクセスが許可されていない
	ErrAuthorizationDenied = errors.New("カレンダーへのアクセスが許可されていません")
	// ErrMalformedOutput スクリプトの出力を解析できない
	ErrMalformedOutput = errors.New("スクリプトの出力を解析できません")
)

// EventKitStore ScriptRunner 経由でホストのカレンダーを読み書きする
type EventKitStore struct {
	runner ScriptRunner
	logger log.Logger
}

// wireEvent 一覧スクリプトが返すイベント
type wireEvent struct {
	ID       string  `json:"id"`
	Title    *string `json:"title"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	AllDay   bool    `json:"allDay"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

// wireListing 一覧スクリプトが返す JSON
type wireListing struct {
	Events    map[string][]wireEvent `json:"events"`
	Calendars []string               `json:"calendars"`
}

// NewEventKitStore カレンダーストアを作成
func NewEventKitStore(runner ScriptRunner, logger log.Logger) *EventKitStore {
	return &EventKitStore{
		runner: runner,
		logger: logger,
	}
}

// ListEvents from から to までに重なるイベントをカレンダーごとに取得
func (s *EventKitStore) ListEvents(ctx context.Context, from, to time.Time) (domain.CalendarListing, error) {
	out, err := s.runner.Run(ctx, buildListEventsScript(from, to))
	if err != nil {
		return domain.CalendarListing{}, err
	}
	if out == resultAuthorizationDenied {
		return domain.CalendarListing{}, ErrAuthorizationDenied
	}

	var wire wireListing
	if err := json.Unmarshal([]byte(out), &wire); err != nil {
		return domain.CalendarListing{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	listing := domain.EmptyListing()
	if wire.Calendars != nil {
		listing.Calendars = wire.Calendars
	}

	for name, events := range wire.Events {
		converted := make([]domain.CalendarEvent, 0, len(events))
		for _, event := range events {
			calendarEvent, err := convertToEvent(name, event)
			if err != nil {
				level.Warn(s.logger).Log("msg", "イベントの変換をスキップしました", "id", event.ID, "calendar", name, "err", err)
				continue
			}
			converted = append(converted, calendarEvent)
		}
		listing.Events[name] = converted
	}

	return listing, nil
}

// convertToEvent スクリプトの出力を内部構造体に変換
func convertToEvent(calendarName string, event wireEvent) (domain.CalendarEvent, error) {
	calendarEvent := domain.CalendarEvent{
		ID:       event.ID,
		Calendar: calendarName,
		AllDay:   event.AllDay,
		Title:    deref(event.Title),
		Location: deref(event.Location),
		Notes:    deref(event.Notes),
	}

	start, err := time.Parse(time.RFC3339, event.Start)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("開始時刻の解析に失敗しました: %w", err)
	}
	end, err := time.Parse(time.RFC3339, event.End)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("終了時刻の解析に失敗しました: %w", err)
	}
	calendarEvent.Start = start
	calendarEvent.End = end

	return calendarEvent, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ListCalendars カレンダー名の一覧を取得
func (s *EventKitStore) ListCalendars(ctx context.Context) ([]string, error) {
	out, err := s.runner.Run(ctx, buildListCalendarsScript())
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal([]byte(out), &names); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// CreateEvent calendarName と名前が完全一致するカレンダーにイベントを作成
func (s *EventKitStore) CreateEvent(ctx context.Context, calendarName, title string, start, end time.Time) (domain.MutationResult, error) {
	out, err := s.runner.Run(ctx, buildCreateEventScript(calendarName, title, start, end))
	if err != nil {
		return domain.MutationResult{}, err
	}
	return classifyMutation(out), nil
}

// UpdateEvent イベントのタイトルと時刻を書き換える
func (s *EventKitStore) UpdateEvent(ctx context.Context, eventID, title string, start, end time.Time) (domain.MutationResult, error) {
	out, err := s.runner.Run(ctx, buildUpdateEventScript(eventID, title, start, end))
	if err != nil {
		return domain.MutationResult{}, err
	}
	return classifyMutation(out), nil
}

// DeleteEvent イベントを削除
func (s *EventKitStore) DeleteEvent(ctx context.Context, eventID string) (domain.MutationResult, error) {
	out, err := s.runner.Run(ctx, buildDeleteEventScript(eventID))
	if err != nil {
		return domain.MutationResult{}, err
	}
	return classifyMutation(out), nil
}

// classifyMutation 更新系スクリプトの結果文字列を MutationResult に変換
//
// 成功は "ok" と完全一致した場合のみ。
func classifyMutation(out string) domain.MutationResult {
	switch {
	case out == resultOK:
		return domain.Succeeded()
	case out == resultAuthorizationDenied:
		return domain.Failed(domain.ReasonAuthorizationDenied, out)
	case out == resultEventNotFound, strings.HasPrefix(out, resultCalendarNotFound):
		return domain.Failed(domain.ReasonNotFound, out)
	case strings.HasPrefix(out, resultSaveError):
		return domain.Failed(domain.ReasonSaveError, out)
	default:
		return domain.Failed(domain.ReasonUnknown, out)
	}
}
