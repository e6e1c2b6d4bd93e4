// Package logging はアプリケーション全体で使う go-kit ロガーを組み立てる。
package logging

import (
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New logfmt 形式のロガーを作成。levelName 未満のログは捨てる
func New(w io.Writer, levelName string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(logger, allowed(levelName))
}

func allowed(levelName string) level.Option {
	switch strings.ToUpper(strings.TrimSpace(levelName)) {
	case "DEBUG":
		return level.AllowDebug()
	case "WARN", "WARNING":
		return level.AllowWarn()
	case "ERROR":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
