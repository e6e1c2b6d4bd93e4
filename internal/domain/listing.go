package domain

import "sort"

// CalendarListing 一覧取得の結果
type CalendarListing struct {
	// Events カレンダー名ごとのイベント（開始時刻の昇順）
	Events map[string][]CalendarEvent `json:"events"`
	// Calendars 作成先の選択に使うカレンダー名
	Calendars []string `json:"calendars"`
}

// EmptyListing 空の一覧を返す
func EmptyListing() CalendarListing {
	return CalendarListing{
		Events:    map[string][]CalendarEvent{},
		Calendars: []string{},
	}
}

// IsEmpty イベントが1件もないかを判定
func (l CalendarListing) IsEmpty() bool {
	for _, events := range l.Events {
		if len(events) > 0 {
			return false
		}
	}
	return true
}

// Flatten 全カレンダーのイベントを1つのスライスにまとめる
//
// 各イベントの Calendar にはマップのキーが設定される。カレンダー名の昇順で走査する。
func (l CalendarListing) Flatten() []CalendarEvent {
	names := make([]string, 0, len(l.Events))
	for name := range l.Events {
		names = append(names, name)
	}
	sort.Strings(names)

	all := make([]CalendarEvent, 0)
	for _, name := range names {
		for _, event := range l.Events[name] {
			event.Calendar = name
			all = append(all, event)
		}
	}
	return all
}

// ListingFromEvents イベントの Calendar をキーに一覧を組み立てる
func ListingFromEvents(events []CalendarEvent) CalendarListing {
	listing := EmptyListing()
	for _, event := range events {
		if _, ok := listing.Events[event.Calendar]; !ok {
			listing.Calendars = append(listing.Calendars, event.Calendar)
		}
		listing.Events[event.Calendar] = append(listing.Events[event.Calendar], event)
	}
	for name := range listing.Events {
		SortByStart(listing.Events[name])
	}
	return listing
}

// SortByStart 開始時刻の昇順に並べ替える
func SortByStart(events []CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].startsBefore(events[j])
	})
}
