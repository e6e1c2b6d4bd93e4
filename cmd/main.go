package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/k-negishi/macos-calendar-bridge/internal/config"
	"github.com/k-negishi/macos-calendar-bridge/internal/export"
	"github.com/k-negishi/macos-calendar-bridge/internal/gateway"
	"github.com/k-negishi/macos-calendar-bridge/internal/logging"
	"github.com/k-negishi/macos-calendar-bridge/internal/usecase"
)

const usage = `Usage: calbridge <command> [flags]

Commands:
  list        List events of the next days grouped by calendar
  calendars   List calendar names
  days        List events of the next days grouped by day
  add         Create an event (-calendar -title [-start -end])
  update      Update an event (-id -title -start -end)
  delete      Delete an event (-id)
  export      Write the next days as iCalendar (-out)
  serve       Start the local HTTP API
  notify      Send the digest to LINE once, or on a schedule with -cron
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// 設定を読み込み
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定読み込みエラー: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, os.Args[1], os.Stdout)
	if err != nil {
		level.Error(logger).Log("msg", "初期化に失敗しました", "err", err)
		os.Exit(1)
	}

	code := a.run(ctx, os.Args[1], os.Args[2:])
	stop()
	os.Exit(code)
}

// app コマンドの実行に必要な依存関係
type app struct {
	cfg      *config.Config
	logger   log.Logger
	bridge   *usecase.Bridge
	exporter *export.ICSExporter
	out      io.Writer
}

// newApp 設定からゲートウェイとユースケースを組み立てる
//
// 常駐するコマンド（serve, notify）は通知をログに、それ以外は標準エラー出力に出す。
func newApp(cfg *config.Config, logger log.Logger, command string, out io.Writer) (*app, error) {
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var notifier gateway.Notifier = gateway.NewStderrNotifier()
	if command == "serve" || command == "notify" {
		notifier = gateway.NewLogNotifier(logger)
	}

	runner := gateway.NewOsascriptRunner(cfg.ScriptInterpreter, cfg.ScriptTimeout, notifier, logger)
	store := gateway.NewEventKitStore(runner, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		bridge:   usecase.NewBridge(store, notifier, logger, location, cfg.HorizonDays),
		exporter: export.NewICSExporter(location),
		out:      out,
	}, nil
}
