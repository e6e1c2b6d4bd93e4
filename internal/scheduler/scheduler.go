package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/robfig/cron/v3"
)

// Job 定期実行するユースケース
type Job interface {
	Execute(ctx context.Context) (skipped bool, err error)
}

// Scheduler cron 式に従って Job を実行する
//
// 前回の実行が終わっていない場合、次の実行はスキップする。
type Scheduler struct {
	cron     *cron.Cron
	job      Job
	logger   log.Logger
	location *time.Location
	// 1回の実行に許す時間
	timeout time.Duration
	// Run に渡された ctx。各実行の ctx はここから派生させる
	ctx context.Context
}

// New cron 式を解釈してスケジューラーを作成
//
// 式は5フィールド形式。"CRON_TZ=Asia/Tokyo 0 7 * * *" のようにタイムゾーンを指定できる。
func New(spec string, job Job, location *time.Location, timeout time.Duration, logger log.Logger) (*Scheduler, error) {
	if location == nil {
		location = time.Local
	}
	s := &Scheduler{
		job:      job,
		logger:   logger,
		location: location,
		timeout:  timeout,
	}
	s.cron = cron.New(
		cron.WithLocation(location),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger})),
		cron.WithLogger(cronLogger{logger: logger}),
	)
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("cron式 %q の解析に失敗しました: %w", spec, err)
	}
	return s, nil
}

// Run ctx がキャンセルされるまでスケジュールを実行する。実行中の Job の終了を待って戻る
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	level.Info(s.logger).Log("msg", "スケジューラーを開始しました", "next", s.Next())

	<-ctx.Done()

	<-s.cron.Stop().Done()
	level.Info(s.logger).Log("msg", "スケジューラーを停止しました")
}

// Next 次回の実行予定時刻
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	// Start 前は Next が未計算なので Schedule から求める
	if entries[0].Next.IsZero() {
		return entries[0].Schedule.Next(time.Now().In(s.location))
	}
	return entries[0].Next
}

func (s *Scheduler) runOnce() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	skipped, err := s.job.Execute(ctx)
	if err != nil {
		level.Error(s.logger).Log("msg", "定期実行に失敗しました", "err", err)
		return
	}
	level.Info(s.logger).Log("msg", "定期実行が完了しました", "skipped", skipped)
}

// cronLogger cron の内部ログを go-kit のロガーに流す
type cronLogger struct {
	logger log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	level.Debug(l.logger).Log(append([]interface{}{"msg", msg, "component", "cron"}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	level.Error(l.logger).Log(append([]interface{}{"msg", msg, "component", "cron", "err", err}, keysAndValues...)...)
}
