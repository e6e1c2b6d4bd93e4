package domain

import "time"

// CalendarEvent ホストのカレンダーサービス上のイベント1件
//
// ローカルには保持しない。読み取りのたびにホストから取得したスナップショット。
type CalendarEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Calendar string    `json:"calendar"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	AllDay   bool      `json:"allDay"`
	Location string    `json:"location,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

// UntitledTitle タイトルが空のイベントの表示用文字列
const UntitledTitle = "(No title)"

// DisplayTitle 表示用のタイトル。空の場合は UntitledTitle
func (e CalendarEvent) DisplayTitle() string {
	if e.Title == "" {
		return UntitledTitle
	}
	return e.Title
}

// HasValidSpan 終了時刻が開始時刻より前でないかを判定
func (e CalendarEvent) HasValidSpan() bool {
	return !e.End.Before(e.Start)
}

// startsBefore 表示順の比較。開始時刻が同じ場合はカレンダー名、タイトル、IDの順で比較する
func (e CalendarEvent) startsBefore(other CalendarEvent) bool {
	if !e.Start.Equal(other.Start) {
		return e.Start.Before(other.Start)
	}
	if e.Calendar != other.Calendar {
		return e.Calendar < other.Calendar
	}
	if e.Title != other.Title {
		return e.Title < other.Title
	}
	return e.ID < other.ID
}
