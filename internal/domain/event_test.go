package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "Standup", CalendarEvent{Title: "Standup"}.DisplayTitle())
	assert.Equal(t, UntitledTitle, CalendarEvent{}.DisplayTitle())

	// 表示用の置き換えはデータ側に影響しない
	event := CalendarEvent{}
	_ = event.DisplayTitle()
	assert.Empty(t, event.Title)
}
