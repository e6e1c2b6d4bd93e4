package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// ユーザーに表示する通知メッセージ
const (
	NoticeUnsupportedPlatform = "Calendar integration is only available on macOS"
	NoticeOperationFailed     = "Calendar operation failed"
)

var (
	// ErrUnsupportedPlatform スクリプトエンジンがないプラットフォームで呼び出された
	ErrUnsupportedPlatform = errors.New("このプラットフォームではカレンダー連携を利用できません")
	// ErrScriptFailed タイムアウト・異常終了・起動失敗のいずれか
	ErrScriptFailed = errors.New("スクリプトの実行に失敗しました")
)

// stderr をログに残す最大長
const maxStderrLog = 512

// ScriptRunner スクリプトを1回実行して標準出力を返す
type ScriptRunner interface {
	Run(ctx context.Context, script string) (string, error)
}

// OsascriptRunner osascript の JavaScript for Automation でスクリプトを実行する
type OsascriptRunner struct {
	interpreter string
	args        []string
	timeout     time.Duration
	notifier    Notifier
	logger      log.Logger
	goos        func() string
}

// NewOsascriptRunner スクリプト実行クライアントを作成
func NewOsascriptRunner(interpreter string, timeout time.Duration, notifier Notifier, logger log.Logger) *OsascriptRunner {
	return &OsascriptRunner{
		interpreter: interpreter,
		args:        []string{"-l", "JavaScript", "-e"},
		timeout:     timeout,
		notifier:    notifier,
		logger:      logger,
		goos:        func() string { return runtime.GOOS },
	}
}

// Run スクリプトを子プロセスで実行し、前後の空白を除いた標準出力を返す
//
// スクリプトはシェルを介さず引数1つとして渡す。失敗時は通知を出し、ErrUnsupportedPlatform か
// ErrScriptFailed を返す。呼び出し側はどちらも「操作は反映されなかった」として扱う。
func (r *OsascriptRunner) Run(ctx context.Context, script string) (string, error) {
	// プラットフォームは呼び出しのたびに判定する
	if r.goos() != "darwin" {
		r.notifier.Notify(ctx, NoticeUnsupportedPlatform)
		return "", ErrUnsupportedPlatform
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := make([]string, 0, len(r.args)+1)
	args = append(args, r.args...)
	args = append(args, script)

	cmd := exec.CommandContext(runCtx, r.interpreter, args...)
	// 孫プロセスが出力パイプを握ったままでも待ち続けない
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s 以内に終了しませんでした: %w", r.timeout, err)
		}
		level.Error(r.logger).Log(
			"msg", "スクリプトの実行に失敗しました",
			"run_id", runID,
			"err", err,
			"stderr", truncate(strings.TrimSpace(stderr.String()), maxStderrLog),
			"elapsed", elapsed,
		)
		r.notifier.Notify(ctx, NoticeOperationFailed)
		return "", fmt.Errorf("%w: %w", ErrScriptFailed, err)
	}

	level.Debug(r.logger).Log("msg", "スクリプトを実行しました", "run_id", runID, "elapsed", elapsed, "bytes", stdout.Len())
	return strings.TrimSpace(stdout.String()), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
