package gateway

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Notifier ユーザーに見える通知を出す
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// WriterNotifier 通知を1行ずつ出力先に書き出す。CLI 用
type WriterNotifier struct {
	w io.Writer
}

// NewStderrNotifier 標準エラー出力に通知を書き出す Notifier を作成
func NewStderrNotifier() *WriterNotifier {
	return &WriterNotifier{w: os.Stderr}
}

// Notify 通知を出力
func (n *WriterNotifier) Notify(_ context.Context, message string) {
	fmt.Fprintf(n.w, "🔔 %s\n", message)
}

// LogNotifier 通知をログに記録する。画面を持たないサーバー・常駐プロセス用
type LogNotifier struct {
	logger log.Logger
}

// NewLogNotifier LogNotifier を作成
func NewLogNotifier(logger log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify 通知をログに記録
func (n *LogNotifier) Notify(_ context.Context, message string) {
	level.Info(n.logger).Log("msg", "notice", "notice", message)
}
