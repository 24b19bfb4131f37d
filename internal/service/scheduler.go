package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/CZERTAINLY/dfswatch/internal/model"
)

func newScheduler(ctx context.Context, cfgp *model.TimerSchedule, startFunc func()) (gocron.Scheduler, gocron.Job, error) {
	if cfgp == nil {
		return nil, nil, errors.New("service.schedule is nil")
	}
	cfg := *cfgp
	var job gocron.JobDefinition
	switch {
	case cfg.Cron != "":
		schedule, err := model.ParseCron(cfg.Cron)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing service.schedule.cron: %w", err)
		}
		job = gocron.CronJob(cfg.Cron, false)
		slog.InfoContext(ctx, "monitor scheduled", "cron", cfg.Cron, "next_start", schedule.Next(time.Now()).Format(time.RFC3339))
	case cfg.Duration != "":
		d, err := model.ParseInterval(cfg.Duration)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing service.schedule.duration: %w", err)
		}
		job = gocron.DurationJob(d)
		slog.InfoContext(ctx, "monitor scheduled", "every", d.String())
	default:
		return nil, nil, errors.New("both cron and duration are empty")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	j, err := s.NewJob(
		job,
		gocron.NewTask(startFunc),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return s, j, nil
}
