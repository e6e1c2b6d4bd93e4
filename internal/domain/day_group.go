package domain

// DayGroup 同じ日に始まるイベントの表示用グループ
//
// 描画のたびに再計算される派生ビューで、永続化しない。
type DayGroup struct {
	// DateKey YYYY-MM-DD（表示タイムゾーンでの日付）
	DateKey string `json:"dateKey"`
	// Label Today / Tomorrow / Day after tomorrow / MM-DD
	Label  string          `json:"label"`
	Events []CalendarEvent `json:"events"`
}

// 日付ラベル
const (
	LabelToday            = "Today"
	LabelTomorrow         = "Tomorrow"
	LabelDayAfterTomorrow = "Day after tomorrow"
)
