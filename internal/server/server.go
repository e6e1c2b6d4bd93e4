package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/k-negishi/macos-calendar-bridge/internal/domain"
)

// Calendar HTTP API から呼び出すカレンダー操作
type Calendar interface {
	List(ctx context.Context) domain.CalendarListing
	ListCalendars(ctx context.Context) []string
	Create(ctx context.Context, calendarName, title string, start, end time.Time) domain.MutationResult
	Update(ctx context.Context, eventID, title string, start, end time.Time) domain.MutationResult
	Delete(ctx context.Context, eventID string) domain.MutationResult
	GroupByDay(listing domain.CalendarListing) []domain.DayGroup
}

// Exporter 一覧を iCalendar 形式で書き出す
type Exporter interface {
	Export(w io.Writer, listing domain.CalendarListing) error
}

// Server ローカル HTTP API
type Server struct {
	echo   *echo.Echo
	logger log.Logger
}

// New ルーティングとミドルウェアを設定したサーバーを作成
func New(calendar Calendar, exporter Exporter, logger log.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			keyvals := []interface{}{"msg", "request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				keyvals = append(keyvals, "err", v.Error)
			}
			level.Debug(logger).Log(keyvals...)
			return nil
		},
	}))

	h := newHandler(calendar, exporter)
	e.GET("/health", h.health)

	api := e.Group("/api")
	api.GET("/calendars", h.listCalendars)
	api.GET("/days", h.listDays)
	api.GET("/events", h.listEvents)
	api.GET("/events.ics", h.exportEvents)
	api.POST("/events", h.createEvent)
	api.PUT("/events/:id", h.updateEvent)
	api.DELETE("/events/:id", h.deleteEvent)

	return &Server{echo: e, logger: logger}
}

// ServeHTTP http.Handler の実装
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run addr で待ち受け、ctx がキャンセルされたら処理中のリクエストを待って停止する
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		level.Info(s.logger).Log("msg", "HTTPサーバーを起動しました", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーの起動に失敗しました: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗しました: %w", err)
	}
	level.Info(s.logger).Log("msg", "HTTPサーバーを停止しました")
	return nil
}
