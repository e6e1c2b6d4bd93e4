package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

// LINE のテキストメッセージの最大文字数
const maxLINETextLength = 5000

// LINENotifier LINE Messaging APIを使用したDigestSenderの実装
type LINENotifier struct {
	channelAccessToken string
	userID             string
	httpClient         *http.Client
	endpoint           string
	location           *time.Location
}

// lineMessage LINE APIに送信するメッセージ構造体
type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// linePushRequest LINE Push APIのリクエスト構造体
type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// lineErrorResponse LINE APIのエラーレスポンス構造体
type lineErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// NewLINENotifier LINE通知クライアントを作成
func NewLINENotifier(channelAccessToken, userID string, location *time.Location) *LINENotifier {
	if location == nil {
		location = time.Local
	}
	return &LINENotifier{
		channelAccessToken: channelAccessToken,
		userID:             userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: "https://api.line.me/v2/bot/message/push",
		location: location,
	}
}

// SendDigest 日付ごとの予定をLINEで通知
func (n *LINENotifier) SendDigest(ctx context.Context, groups []domain.DayGroup) error {
	return n.sendPushMessage(ctx, n.buildDigestMessage(groups))
}

// buildDigestMessage ダイジェスト通知用のメッセージを構築
func (n *LINENotifier) buildDigestMessage(groups []domain.DayGroup) string {
	var messageBuilder strings.Builder

	messageBuilder.WriteString("Calendar Digest\n")

	for _, group := range groups {
		messageBuilder.WriteString("\n")
		day, err := time.ParseInLocation("2006-01-02", group.DateKey, n.location)
		if err != nil {
			messageBuilder.WriteString(fmt.Sprintf("%s (%d):\n", group.Label, len(group.Events)))
		} else {
			messageBuilder.WriteString(fmt.Sprintf("%s %s(%s) (%d):\n",
				group.Label, day.Format("1/2"), day.Weekday().String()[:3], len(group.Events)))
		}
		for _, event := range group.Events {
			n.appendEventToMessage(&messageBuilder, event)
		}
	}

	message := messageBuilder.String()
	if len([]rune(message)) > maxLINETextLength {
		message = string([]rune(message)[:maxLINETextLength-1]) + "…"
	}
	return message
}

// appendEventToMessage イベントをメッセージに追加
func (n *LINENotifier) appendEventToMessage(builder *strings.Builder, event domain.CalendarEvent) {
	if event.AllDay {
		builder.WriteString(fmt.Sprintf("🔸 %s (All day) [%s]\n", event.DisplayTitle(), event.Calendar))
	} else {
		timeRange := fmt.Sprintf("%s〜%s",
			event.Start.In(n.location).Format("15:04"),
			event.End.In(n.location).Format("15:04"))
		builder.WriteString(fmt.Sprintf("🔸 %s %s [%s]\n", timeRange, event.DisplayTitle(), event.Calendar))
	}

	// 場所情報があれば追加
	if event.Location != "" {
		builder.WriteString(fmt.Sprintf("   📍 %s\n", event.Location))
	}
}

// sendPushMessage LINE Push APIでメッセージを送信
func (n *LINENotifier) sendPushMessage(ctx context.Context, message string) error {
	pushRequest := linePushRequest{
		To: n.userID,
		Messages: []lineMessage{
			{
				Type: "text",
				Text: message,
			},
		},
	}

	requestBody, err := json.Marshal(pushRequest)
	if err != nil {
		return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", n.channelAccessToken))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE APIリクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// エラーレスポンスの詳細を取得
		var errorResponse lineErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
		}

		errorDetails := errorResponse.Message
		if len(errorResponse.Details) > 0 {
			errorDetails += fmt.Sprintf(" (詳細: %s)", errorResponse.Details[0].Message)
		}

		return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, errorDetails)
	}

	return nil
}
