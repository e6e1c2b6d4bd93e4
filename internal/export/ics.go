package export

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

const productID = "-//k-negishi//macos-calendar-bridge//EN"

// ICSExporter 一覧を iCalendar 形式で書き出す
type ICSExporter struct {
	location *time.Location
	clock    func() time.Time
}

// NewICSExporter エクスポーターを作成。終日イベントの日付は location で計算する
func NewICSExporter(location *time.Location) *ICSExporter {
	if location == nil {
		location = time.Local
	}
	return &ICSExporter{
		location: location,
		clock:    time.Now,
	}
}

// Build 一覧から VCALENDAR を組み立てる
//
// カレンダー名は CATEGORIES に入れる。イベントはカレンダー名・開始時刻の順に並ぶ。
func (e *ICSExporter) Build(listing domain.CalendarListing) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("macOS Calendar")

	stamp := e.clock().UTC()
	for _, event := range listing.Flatten() {
		vevent := cal.AddEvent(event.ID)
		vevent.SetDtStampTime(stamp)
		vevent.SetSummary(event.Title)
		if event.Location != "" {
			vevent.SetLocation(event.Location)
		}
		if event.Notes != "" {
			vevent.SetDescription(event.Notes)
		}
		vevent.AddProperty(ical.ComponentPropertyCategories, event.Calendar)

		if event.AllDay {
			start, end := e.allDaySpan(event)
			vevent.SetAllDayStartAt(start)
			vevent.SetAllDayEndAt(end)
			continue
		}
		vevent.SetStartAt(event.Start.UTC())
		vevent.SetEndAt(event.End.UTC())
	}

	return cal
}

// Export 一覧を iCalendar 形式で w に書き出す
func (e *ICSExporter) Export(w io.Writer, listing domain.CalendarListing) error {
	return e.Build(listing).SerializeTo(w)
}

// allDaySpan 終日イベントの DTSTART と DTEND（翌日、排他的）
//
// 終了時刻が日付の途中（23:59:59 など）の場合はその日の翌日を終了日とする。
func (e *ICSExporter) allDaySpan(event domain.CalendarEvent) (start, end time.Time) {
	start = dayOf(event.Start.In(e.location))
	localEnd := event.End.In(e.location)
	end = dayOf(localEnd)
	if !localEnd.Equal(end) {
		end = end.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
