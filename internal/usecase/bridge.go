package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

// ユーザーに表示する通知メッセージ
const (
	NoticeEventAdded   = "Event added"
	NoticeEventUpdated = "Event updated"
	NoticeEventDeleted = "Event deleted"
)

const dateKeyLayout = "2006-01-02"

// CalendarStore ホストのカレンダーサービスにアクセスするポート
//
// error は実行そのものの失敗（非対応プラットフォーム、プロセス失敗、出力の解析失敗）を表す。
// 対象が見つからない等のスクリプト上の失敗は MutationResult で返す。
type CalendarStore interface {
	ListEvents(ctx context.Context, from, to time.Time) (domain.CalendarListing, error)
	ListCalendars(ctx context.Context) ([]string, error)
	CreateEvent(ctx context.Context, calendarName, title string, start, end time.Time) (domain.MutationResult, error)
	UpdateEvent(ctx context.Context, eventID, title string, start, end time.Time) (domain.MutationResult, error)
	DeleteEvent(ctx context.Context, eventID string) (domain.MutationResult, error)
}

// Notifier ユーザーに見える通知を出すポート
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Bridge カレンダーの CRUD と日付グループ化を提供する
//
// 呼び出し間で状態を持たないため、複数のゴルーチンから同時に呼び出してよい。
type Bridge struct {
	store       CalendarStore
	notifier    Notifier
	logger      log.Logger
	location    *time.Location
	horizonDays int
	clock       func() time.Time
}

// NewBridge Bridge を作成
func NewBridge(store CalendarStore, notifier Notifier, logger log.Logger, location *time.Location, horizonDays int) *Bridge {
	if location == nil {
		location = time.Local
	}
	return &Bridge{
		store:       store,
		notifier:    notifier,
		logger:      logger,
		location:    location,
		horizonDays: horizonDays,
		clock:       time.Now,
	}
}

// Location 日付キーの計算に使うタイムゾーン
func (b *Bridge) Location() *time.Location {
	return b.location
}

// List 現在時刻から horizonDays 日先までの期間と重なるイベントを取得
//
// 進行中のイベントも含まれる。失敗した場合は空の一覧を返す。
func (b *Bridge) List(ctx context.Context) domain.CalendarListing {
	from := b.clock()
	to := from.Add(time.Duration(b.horizonDays) * 24 * time.Hour)

	listing, err := b.store.ListEvents(ctx, from, to)
	if err != nil {
		level.Warn(b.logger).Log("msg", "予定一覧の取得に失敗しました", "err", err)
		return domain.EmptyListing()
	}

	return b.normalizeListing(listing)
}

// normalizeListing カレンダー名の付与、並べ替え、カレンダー名の重複除去を行う
func (b *Bridge) normalizeListing(listing domain.CalendarListing) domain.CalendarListing {
	out := domain.EmptyListing()

	seen := make(map[string]bool, len(listing.Calendars))
	for _, name := range listing.Calendars {
		if seen[name] {
			continue
		}
		seen[name] = true
		out.Calendars = append(out.Calendars, name)
	}

	for name, events := range listing.Events {
		copied := make([]domain.CalendarEvent, 0, len(events))
		for _, event := range events {
			event.Calendar = name
			if !event.HasValidSpan() {
				level.Warn(b.logger).Log("msg", "終了時刻が開始時刻より前のイベントがあります",
					"id", event.ID, "calendar", name, "start", event.Start, "end", event.End)
			}
			copied = append(copied, event)
		}
		domain.SortByStart(copied)
		out.Events[name] = copied
	}

	return out
}

// ListCalendars カレンダー名の一覧を取得。失敗した場合は空のスライスを返す
func (b *Bridge) ListCalendars(ctx context.Context) []string {
	names, err := b.store.ListCalendars(ctx)
	if err != nil {
		level.Warn(b.logger).Log("msg", "カレンダー一覧の取得に失敗しました", "err", err)
		return []string{}
	}
	if names == nil {
		return []string{}
	}
	return names
}

// Create 指定したカレンダーにイベントを作成
func (b *Bridge) Create(ctx context.Context, calendarName, title string, start, end time.Time) domain.MutationResult {
	result, err := b.store.CreateEvent(ctx, calendarName, title, start, end)
	return b.finishMutation(ctx, "create", result, err, NoticeEventAdded)
}

// Update イベントのタイトルと時刻を更新。カレンダーの移動はできない
func (b *Bridge) Update(ctx context.Context, eventID, title string, start, end time.Time) domain.MutationResult {
	result, err := b.store.UpdateEvent(ctx, eventID, title, start, end)
	return b.finishMutation(ctx, "update", result, err, NoticeEventUpdated)
}

// Delete イベントを削除
func (b *Bridge) Delete(ctx context.Context, eventID string) domain.MutationResult {
	result, err := b.store.DeleteEvent(ctx, eventID)
	return b.finishMutation(ctx, "delete", result, err, NoticeEventDeleted)
}

func (b *Bridge) finishMutation(ctx context.Context, op string, result domain.MutationResult, err error, notice string) domain.MutationResult {
	if err != nil {
		level.Warn(b.logger).Log("msg", "カレンダー操作の実行に失敗しました", "op", op, "err", err)
		return domain.Failed(domain.ReasonUnknown, err.Error())
	}
	if !result.Success {
		if result.Reason == domain.ReasonNone {
			result.Reason = domain.ReasonUnknown
		}
		level.Info(b.logger).Log("msg", "カレンダー操作が反映されませんでした", "op", op,
			"reason", result.Reason, "detail", result.Detail)
		return result
	}

	b.notifier.Notify(ctx, notice)
	return result
}

// GroupByDay イベントを開始日ごとにまとめる
//
// 日付キーは表示タイムゾーンでの開始日。ラベルは同じキー関数で今日・明日・明後日と比較して決める。
func (b *Bridge) GroupByDay(listing domain.CalendarListing) []domain.DayGroup {
	grouped := make(map[string][]domain.CalendarEvent)
	for _, event := range listing.Flatten() {
		key := b.dateKey(event.Start)
		grouped[key] = append(grouped[key], event)
	}

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := b.clock()
	groups := make([]domain.DayGroup, 0, len(keys))
	for _, key := range keys {
		events := grouped[key]
		domain.SortByStart(events)
		groups = append(groups, domain.DayGroup{
			DateKey: key,
			Label:   b.dayLabel(key, now),
			Events:  events,
		})
	}
	return groups
}

// dateKey 表示タイムゾーンでの YYYY-MM-DD
func (b *Bridge) dateKey(t time.Time) string {
	return t.In(b.location).Format(dateKeyLayout)
}

// dayLabel 日付キーに対応するラベル
func (b *Bridge) dayLabel(key string, now time.Time) string {
	local := now.In(b.location)
	switch key {
	case b.dateKey(local):
		return domain.LabelToday
	case b.dateKey(local.AddDate(0, 0, 1)):
		return domain.LabelTomorrow
	case b.dateKey(local.AddDate(0, 0, 2)):
		return domain.LabelDayAfterTomorrow
	}
	// MM-DD
	return key[5:]
}
