package usecase

import (
	"time"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

// AllDayText 終日イベントの時刻欄に表示する文字列
const AllDayText = "All day"

// FormatEventTime イベントの開始時刻を HH:MM で返す。終日イベントは時刻を表示しない
func (b *Bridge) FormatEventTime(event domain.CalendarEvent) string {
	if event.AllDay {
		return AllDayText
	}
	return event.Start.In(b.location).Format("15:04")
}

// FormatDateTime MM-DD HH:MM
func (b *Bridge) FormatDateTime(t time.Time) string {
	return t.In(b.location).Format("01-02 15:04")
}

// DefaultTimes 新規作成フォームの初期値。次の正時から1時間
func (b *Bridge) DefaultTimes() (start, end time.Time) {
	now := b.clock().In(b.location)
	start = time.Date(now.Year(), now.Month(), now.Day(), now.Hour()+1, 0, 0, 0, b.location)
	end = start.Add(time.Hour)
	return start, end
}
