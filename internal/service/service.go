package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"github.com/CZERTAINLY/dfswatch/internal/chat"
	"github.com/CZERTAINLY/dfswatch/internal/model"
	"github.com/CZERTAINLY/dfswatch/internal/monitor"
	"github.com/CZERTAINLY/dfswatch/internal/notify"
	"github.com/CZERTAINLY/dfswatch/internal/probe"
	"github.com/CZERTAINLY/dfswatch/internal/telegram"
)

// DefaultRecipient is used when no Telegram chat is configured.
const DefaultRecipient = "operator"

const shutdownTimeout = 5 * time.Second

type Service struct {
	cfg       model.Config
	recipient string
	runner    *probe.Runner
	tg        *telegram.Client
	notifiers notify.Multi
	ctrl      *monitor.Controller
	scheduler gocron.Scheduler
	job       gocron.Job
	runCtx    context.Context
}

// New builds a service from a validated configuration.
func New(ctx context.Context, cfg model.Config) (*Service, error) {
	if cfg.Version != 0 {
		return nil, fmt.Errorf("config version %d is not supported, expected 0", cfg.Version)
	}

	cmd, err := probe.ParseCommand(cfg.Probe)
	if err != nil {
		return nil, err
	}
	interval, err := model.ParseInterval(cfg.Probe.Interval)
	if err != nil {
		return nil, fmt.Errorf("parsing probe.interval: %w", err)
	}

	s := &Service{
		cfg:       cfg,
		recipient: DefaultRecipient,
		runner:    probe.NewRunner(cmd, probe.LogStderr),
		runCtx:    ctx,
	}
	if rc := s.runner.Command(); rc.Timeout == 0 {
		slog.WarnContext(ctx, "probe has no timeout", "command", rc.String())
	} else {
		slog.InfoContext(ctx, "probe configured", "command", rc.String(), "timeout", rc.Timeout.String(), "interval", interval.String())
	}

	if tgCfg := cfg.Telegram; tgCfg != nil && tgCfg.Enabled {
		s.tg = telegram.New(*tgCfg)
		s.notifiers = append(s.notifiers, s.tg)
		if tgCfg.Chat != nil {
			s.recipient = strconv.FormatInt(*tgCfg.Chat, 10)
		}
	}
	if whCfg := cfg.Webhook; whCfg != nil && whCfg.Enabled {
		hook, err := notify.NewWebhook(whCfg.URL)
		if err != nil {
			return nil, fmt.Errorf("initializing webhook: %w", err)
		}
		s.notifiers = append(s.notifiers, hook)
	}
	if len(s.notifiers) == 0 {
		s.notifiers = notify.Multi{notify.NewWriter(os.Stdout)}
	}

	s.ctrl = monitor.NewController(s.runner, s.notifiers, monitor.WithInterval(interval))

	if cfg.Service.Mode == model.ServiceModeTimer {
		s.scheduler, s.job, err = newScheduler(ctx, cfg.Service.Schedule, s.scheduledStart)
		if err != nil {
			return nil, fmt.Errorf("timer mode failed: %w", err)
		}
	}

	return s, nil
}

// WithNotifiers replaces the notifiers of the monitor loop.
// This method exists for a unit testing only.
func (s *Service) WithNotifiers(ns ...model.Notifier) *Service {
	s.notifiers = notify.Multi(ns)
	s.ctrl = monitor.NewController(s.runner, s.notifiers, monitor.WithInterval(s.ctrl.Interval()))
	return s
}

func (s *Service) Controller() *monitor.Controller {
	return s.ctrl
}

// Handler returns the HTTP control surface. Loops started through it are
// bound to ctx.
func (s *Service) Handler(ctx context.Context) http.Handler {
	opts := HandlerOptions{
		Recipient: s.recipient,
		LastRun:   s.runner.LastResult,
	}
	if s.tg != nil {
		opts.CheckRecipient = func(recipient string) error {
			_, err := telegram.ParseChatID(recipient)
			return err
		}
	}
	if s.job != nil {
		opts.NextStart = s.job.NextRun
	}
	return NewHandler(ctx, s.ctrl, opts)
}

// Do runs the service until ctx is done or the HTTP server fails.
//
// Startup: HTTP listener, scheduler, Telegram poller, HTTP server.
// Shutdown: stop the monitor and wait for the loop, shut down the scheduler,
// close notifiers.
func (s *Service) Do(ctx context.Context) error {
	slog.DebugContext(ctx, "starting a service", "mode", s.cfg.Service.Mode)
	var listener net.Listener
	if s.httpEnabled() {
		var err error
		listener, err = net.Listen("tcp", s.cfg.HTTP.Listen)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", s.cfg.HTTP.Listen, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	s.runCtx = ctx

	defer func() {
		s.notifiers.Close(ctx)
	}()

	defer func() {
		if err := s.ctrl.Stop(); err == nil {
			slog.InfoContext(ctx, "stopping monitor")
		}
		s.ctrl.Wait()
	}()

	// the scheduler must not start a loop after the controller is stopped
	if s.scheduler != nil {
		s.scheduler.Start()
		defer func() {
			if err := s.scheduler.Shutdown(); err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	}

	if s.tg != nil {
		router := chat.NewRouter(ctx, s.ctrl, s.tg)
		s.tg.Start(ctx, func(ctx context.Context, chatID int64, text string) {
			_ = router.Handle(ctx, strconv.FormatInt(chatID, 10), text)
		})
		g.Go(func() error {
			<-ctx.Done()
			s.tg.Stop()
			return nil
		})
	}

	if listener != nil {
		srv := &http.Server{
			Handler:      s.Handler(ctx),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		g.Go(func() error {
			slog.InfoContext(ctx, "http server listening", "addr", listener.Addr().String())
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if s.headless() {
		slog.InfoContext(ctx, "no control surface configured: starting monitor")
		if err := s.ctrl.Start(ctx, s.recipient); err != nil {
			return err
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

func (s *Service) headless() bool {
	return s.cfg.Service.Mode == model.ServiceModeManual && s.tg == nil && !s.httpEnabled()
}

func (s *Service) httpEnabled() bool {
	return s.cfg.HTTP != nil && s.cfg.HTTP.Enabled
}

func (s *Service) scheduledStart() {
	ctx := s.runCtx
	err := s.ctrl.Start(ctx, s.recipient)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "scheduled start", "recipient", s.recipient)
	case errors.Is(err, model.ErrAlreadyRunning):
		slog.DebugContext(ctx, "scheduled start: monitor already running")
	default:
		slog.ErrorContext(ctx, "scheduled start failed", "error", err)
	}
}
