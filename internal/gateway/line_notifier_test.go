package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

var jst = time.FixedZone("JST", 9*60*60)

// newTestLINENotifier テスト用の LINENotifier を構築するヘルパー
func newTestLINENotifier(token, userID string, httpClient *http.Client, endpoint string) *LINENotifier {
	return &LINENotifier{
		channelAccessToken: token,
		userID:             userID,
		httpClient:         httpClient,
		endpoint:           endpoint,
		location:           jst,
	}
}

// --- buildDigestMessage テスト ---

func TestBuildDigestMessage_WithEvents(t *testing.T) {
	n := newTestLINENotifier("token", "user", http.DefaultClient, "")

	groups := []domain.DayGroup{
		{
			DateKey: "2024-01-15",
			Label:   domain.LabelToday,
			Events: []domain.CalendarEvent{
				{Title: "朝会", Calendar: "Work", Start: time.Date(2024, 1, 15, 9, 0, 0, 0, jst), End: time.Date(2024, 1, 15, 9, 15, 0, 0, jst)},
			},
		},
		{
			DateKey: "2024-01-16",
			Label:   domain.LabelTomorrow,
			Events: []domain.CalendarEvent{
				{Title: "休暇", Calendar: "Home", AllDay: true},
			},
		},
	}

	message := n.buildDigestMessage(groups)

	assert.Contains(t, message, "Calendar Digest")
	assert.Contains(t, message, "Today 1/15(Mon) (1):")
	assert.Contains(t, message, "🔸 09:00〜09:15 朝会 [Work]")
	assert.Contains(t, message, "Tomorrow 1/16(Tue) (1):")
	assert.Contains(t, message, "🔸 休暇 (All day) [Home]")
}

func TestBuildDigestMessage_ConvertsToDisplayZone(t *testing.T) {
	n := newTestLINENotifier("token", "user", http.DefaultClient, "")

	groups := []domain.DayGroup{{
		DateKey: "2024-01-16",
		Label:   "01-16",
		Events: []domain.CalendarEvent{
			{Title: "深夜", Calendar: "Work", Start: time.Date(2024, 1, 15, 15, 30, 0, 0, time.UTC), End: time.Date(2024, 1, 15, 16, 0, 0, 0, time.UTC)},
		},
	}}

	message := n.buildDigestMessage(groups)
	assert.Contains(t, message, "00:30〜01:00")
}

func TestBuildDigestMessage_Truncated(t *testing.T) {
	n := newTestLINENotifier("token", "user", http.DefaultClient, "")

	events := make([]domain.CalendarEvent, 0, 200)
	for i := 0; i < 200; i++ {
		events = append(events, domain.CalendarEvent{Title: strings.Repeat("あ", 40), Calendar: "Work", AllDay: true})
	}
	message := n.buildDigestMessage([]domain.DayGroup{{DateKey: "2024-01-15", Label: domain.LabelToday, Events: events}})

	assert.Len(t, []rune(message), maxLINETextLength)
	assert.True(t, strings.HasSuffix(message, "…"))
}

// --- appendEventToMessage テスト ---

func TestAppendEventToMessage_WithLocation(t *testing.T) {
	var builder strings.Builder
	n := newTestLINENotifier("token", "user", http.DefaultClient, "")

	event := domain.CalendarEvent{
		Title:    "外部ミーティング",
		Calendar: "Work",
		Start:    time.Date(2024, 1, 15, 14, 0, 0, 0, jst),
		End:      time.Date(2024, 1, 15, 15, 0, 0, 0, jst),
		Location: "渋谷オフィス",
	}

	n.appendEventToMessage(&builder, event)

	result := builder.String()
	assert.Contains(t, result, "14:00〜15:00 外部ミーティング")
	assert.Contains(t, result, "📍 渋谷オフィス")
}

func TestAppendEventToMessage_EmptyTitle(t *testing.T) {
	var builder strings.Builder
	n := newTestLINENotifier("token", "user", http.DefaultClient, "")

	n.appendEventToMessage(&builder, domain.CalendarEvent{
		Calendar: "Home",
		AllDay:   true,
		Start:    time.Date(2024, 1, 15, 0, 0, 0, 0, jst),
		End:      time.Date(2024, 1, 16, 0, 0, 0, 0, jst),
	})

	assert.Equal(t, "🔸 (No title) (All day) [Home]\n", builder.String())
}

// --- sendPushMessage テスト（httptest 使用） ---

func TestSendPushMessage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ヘッダーを検証
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		// リクエストボディを検証
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var pushReq linePushRequest
		err = json.Unmarshal(body, &pushReq)
		require.NoError(t, err)
		assert.Equal(t, "test-user", pushReq.To)
		assert.Len(t, pushReq.Messages, 1)
		assert.Equal(t, "text", pushReq.Messages[0].Type)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := newTestLINENotifier("test-token", "test-user", server.Client(), server.URL)

	err := n.sendPushMessage(context.Background(), "テストメッセージ")
	assert.NoError(t, err)
}

func TestSendPushMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		err := json.NewEncoder(w).Encode(lineErrorResponse{
			Message: "Invalid request",
		})
		require.NoError(t, err)
	}))
	defer server.Close()

	n := newTestLINENotifier("test-token", "test-user", server.Client(), server.URL)

	err := n.sendPushMessage(context.Background(), "テストメッセージ")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LINE API呼び出しが失敗しました")
	assert.Contains(t, err.Error(), "Invalid request")
}

func TestSendDigest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var pushReq linePushRequest
		err = json.Unmarshal(body, &pushReq)
		require.NoError(t, err)

		// メッセージが構築されていることを確認
		assert.Contains(t, pushReq.Messages[0].Text, "Calendar Digest")
		assert.Contains(t, pushReq.Messages[0].Text, "テストイベント")

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := newTestLINENotifier("test-token", "test-user", server.Client(), server.URL)

	groups := []domain.DayGroup{{
		DateKey: "2024-01-15",
		Label:   domain.LabelToday,
		Events: []domain.CalendarEvent{{
			Title:    "テストイベント",
			Calendar: "Work",
			Start:    time.Date(2024, 1, 15, 10, 0, 0, 0, jst),
			End:      time.Date(2024, 1, 15, 11, 0, 0, 0, jst),
		}},
	}}

	err := n.SendDigest(context.Background(), groups)
	assert.NoError(t, err)
}
