package usecase

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

// DayLister 日付ごとの予定を取得するポート
type DayLister interface {
	List(ctx context.Context) domain.CalendarListing
	GroupByDay(listing domain.CalendarListing) []domain.DayGroup
}

// DigestSender 日付グループをまとめて送信するポート
type DigestSender interface {
	SendDigest(ctx context.Context, groups []domain.DayGroup) error
}

// NotifyDigestUseCase 予定ダイジェスト通知ユースケース
type NotifyDigestUseCase struct {
	lister DayLister
	sender DigestSender
	logger log.Logger
}

// NewNotifyDigestUseCase ユースケースを生成
func NewNotifyDigestUseCase(lister DayLister, sender DigestSender, logger log.Logger) *NotifyDigestUseCase {
	return &NotifyDigestUseCase{
		lister: lister,
		sender: sender,
		logger: logger,
	}
}

// Execute 対象期間の予定を日付ごとにまとめて送信する
func (uc *NotifyDigestUseCase) Execute(ctx context.Context) (skipped bool, err error) {
	groups := uc.lister.GroupByDay(uc.lister.List(ctx))

	// 予定がない場合はスキップ
	if len(groups) == 0 {
		level.Info(uc.logger).Log("msg", "予定なしのため通知をスキップしました")
		return true, nil
	}

	if err := uc.sender.SendDigest(ctx, groups); err != nil {
		level.Error(uc.logger).Log("msg", "ダイジェスト通知の送信に失敗しました", "err", err)
		return false, err
	}

	level.Info(uc.logger).Log("msg", "ダイジェスト通知を送信しました", "days", len(groups))
	return false, nil
}
