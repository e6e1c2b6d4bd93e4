package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-kit/log/level"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
	"github.com/k-negishi/macos-calendar-bridge/internal/gateway"
	"github.com/k-negishi/macos-calendar-bridge/internal/scheduler"
	"github.com/k-negishi/macos-calendar-bridge/internal/server"
	"github.com/k-negishi/macos-calendar-bridge/internal/usecase"
)

// 終了コード
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// 時刻引数として受け付ける形式。RFC 3339 以外は表示タイムゾーンで解釈する
var timeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var errLineNotConfigured = errors.New("LINE_CHANNEL_ACCESS_TOKEN と LINE_USER_ID を設定してください")

// run サブコマンドを実行して終了コードを返す
func (a *app) run(ctx context.Context, command string, args []string) int {
	var err error
	switch command {
	case "list":
		err = a.list(ctx, args)
	case "calendars":
		err = a.calendars(ctx, args)
	case "days":
		err = a.days(ctx, args)
	case "add":
		err = a.add(ctx, args)
	case "update":
		err = a.update(ctx, args)
	case "delete":
		err = a.remove(ctx, args)
	case "export":
		err = a.export(ctx, args)
	case "serve":
		err = a.serve(ctx, args)
	case "notify":
		err = a.notify(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", command, usage)
		return exitUsage
	}

	var failed mutationFailed
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.As(err, &failed):
		fmt.Fprintf(a.out, "failed (%s): %s\n", failed.Reason, failed.Detail)
		return exitFailure
	case errors.Is(err, errUsage):
		return exitUsage
	default:
		level.Error(a.logger).Log("msg", "コマンドの実行に失敗しました", "command", command, "err", err)
		return exitFailure
	}
}

var errUsage = errors.New("usage")

// mutationFailed 作成・更新・削除が反映されなかった
type mutationFailed struct {
	domain.MutationResult
}

func (e mutationFailed) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// parseFlags フラグを解析する。不正な指定は errUsage にまとめる
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

func usageError(fs *flag.FlagSet, format string, v ...interface{}) error {
	fmt.Fprintf(fs.Output(), format+"\n", v...)
	fs.Usage()
	return errUsage
}

// list カレンダーごとの予定を表示
func (a *app) list(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	listing := a.bridge.List(ctx)
	if *asJSON {
		return writeJSON(a.out, listing)
	}

	if listing.IsEmpty() {
		fmt.Fprintln(a.out, "No events")
		return nil
	}

	names := make([]string, 0, len(listing.Events))
	for name := range listing.Events {
		if len(listing.Events[name]) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(a.out, "[%s]\n", name)
		for _, event := range listing.Events[name] {
			when := a.bridge.FormatDateTime(event.Start)
			if event.AllDay {
				when = event.Start.In(a.bridge.Location()).Format("01-02") + " " + usecase.AllDayText
			}
			fmt.Fprintf(a.out, "  %s  %s  (id: %s)\n", when, event.DisplayTitle(), event.ID)
		}
	}
	return nil
}

// calendars カレンダー名を1行ずつ表示
func (a *app) calendars(ctx context.Context, args []string) error {
	fs := newFlagSet("calendars")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	for _, name := range a.bridge.ListCalendars(ctx) {
		fmt.Fprintln(a.out, name)
	}
	return nil
}

// days 日付ごとの予定を表示
func (a *app) days(ctx context.Context, args []string) error {
	fs := newFlagSet("days")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	groups := a.bridge.GroupByDay(a.bridge.List(ctx))
	if *asJSON {
		return writeJSON(a.out, groups)
	}

	if len(groups) == 0 {
		fmt.Fprintln(a.out, "No events")
		return nil
	}
	for _, group := range groups {
		fmt.Fprintf(a.out, "%s (%s)\n", group.Label, group.DateKey)
		for _, event := range group.Events {
			fmt.Fprintf(a.out, "  %-7s  %s [%s]  (id: %s)\n",
				a.bridge.FormatEventTime(event), event.DisplayTitle(), event.Calendar, event.ID)
		}
	}
	return nil
}

// add イベントを作成。時刻を省略した場合は次の正時から1時間
func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	calendarName := fs.String("calendar", "", "calendar name (required)")
	title := fs.String("title", "", "event title (required)")
	startArg := fs.String("start", "", "start time (RFC 3339 or 2006-01-02T15:04)")
	endArg := fs.String("end", "", "end time (RFC 3339 or 2006-01-02T15:04)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *calendarName == "" || *title == "" {
		return usageError(fs, "-calendar and -title are required")
	}

	start, end := a.bridge.DefaultTimes()
	var err error
	if *startArg != "" {
		if start, err = a.parseTime(*startArg); err != nil {
			return usageError(fs, "invalid -start: %v", err)
		}
		if *endArg == "" {
			end = start.Add(time.Hour)
		}
	}
	if *endArg != "" {
		if end, err = a.parseTime(*endArg); err != nil {
			return usageError(fs, "invalid -end: %v", err)
		}
	}
	if end.Before(start) {
		return usageError(fs, "-end must not be before -start")
	}

	return a.report(a.bridge.Create(ctx, *calendarName, *title, start, end), "created")
}

// update イベントのタイトルと時刻を更新
func (a *app) update(ctx context.Context, args []string) error {
	fs := newFlagSet("update")
	id := fs.String("id", "", "event id (required)")
	title := fs.String("title", "", "event title (required)")
	startArg := fs.String("start", "", "start time (required)")
	endArg := fs.String("end", "", "end time (required)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" || *title == "" || *startArg == "" || *endArg == "" {
		return usageError(fs, "-id, -title, -start and -end are required")
	}

	start, err := a.parseTime(*startArg)
	if err != nil {
		return usageError(fs, "invalid -start: %v", err)
	}
	end, err := a.parseTime(*endArg)
	if err != nil {
		return usageError(fs, "invalid -end: %v", err)
	}
	if end.Before(start) {
		return usageError(fs, "-end must not be before -start")
	}

	return a.report(a.bridge.Update(ctx, *id, *title, start, end), "updated")
}

// remove イベントを削除
func (a *app) remove(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	id := fs.String("id", "", "event id (required)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return usageError(fs, "-id is required")
	}

	return a.report(a.bridge.Delete(ctx, *id), "deleted")
}

// export 予定を iCalendar 形式で書き出す
func (a *app) export(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	out := fs.String("out", "-", `output file ("-" for stdout)`)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	listing := a.bridge.List(ctx)
	if *out == "-" {
		return a.exporter.Export(a.out, listing)
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("出力ファイルの作成に失敗しました: %w", err)
	}
	if err := a.exporter.Export(f, listing); err != nil {
		f.Close()
		return fmt.Errorf("iCalendarの書き出しに失敗しました: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("出力ファイルの書き込みに失敗しました: %w", err)
	}
	fmt.Fprintf(a.out, "exported to %s\n", *out)
	return nil
}

// serve ローカル HTTP API を起動
func (a *app) serve(ctx context.Context, args []string) error {
	fs := newFlagSet("serve")
	addr := fs.String("addr", a.cfg.ListenAddr, "listen address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	return server.New(a.bridge, a.exporter, a.logger).Run(ctx, *addr)
}

// notify ダイジェストを LINE に送信。-cron を指定した場合は停止するまで定期実行する
func (a *app) notify(ctx context.Context, args []string) error {
	fs := newFlagSet("notify")
	spec := fs.String("cron", a.cfg.DigestCron, `cron schedule, e.g. "0 7 * * *" (empty: send once)`)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !a.cfg.LineEnabled() {
		return errLineNotConfigured
	}

	sender := gateway.NewLINENotifier(a.cfg.LineChannelAccessToken, a.cfg.LineUserID, a.bridge.Location())
	uc := usecase.NewNotifyDigestUseCase(a.bridge, sender, a.logger)

	if *spec == "" {
		_, err := uc.Execute(ctx)
		return err
	}

	s, err := scheduler.New(*spec, uc, a.bridge.Location(), 2*a.cfg.ScriptTimeout+time.Minute, a.logger)
	if err != nil {
		return err
	}
	s.Run(ctx)
	return nil
}

// report 更新系の結果を表示
func (a *app) report(result domain.MutationResult, verb string) error {
	if !result.Success {
		return mutationFailed{result}
	}
	fmt.Fprintln(a.out, verb)
	return nil
}

// parseTime RFC 3339、または表示タイムゾーンでの日時を解析
func (a *app) parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, a.bridge.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q は RFC 3339 または YYYY-MM-DDTHH:MM 形式で指定してください", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
