package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"civicdesk/config"
	"civicdesk/models"
	"civicdesk/services/notification"
	"civicdesk/services/scheduling"
	"civicdesk/services/tasks"
	"civicdesk/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NewServeMux routes queued tasks to their handlers.
func NewServeMux(engine scheduling.SchedulingEngine, notifier notification.Notifier, loc *time.Location) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, handleReminderTask(engine, notifier))
	mux.HandleFunc(tasks.TypeOptimizeDay, handleOptimizeTask(engine, loc))
	return mux
}

// InitWorker starts the asynq worker, retrying with backoff while Redis is
// unreachable, and returns it so the caller can shut it down.
func InitWorker(engine scheduling.SchedulingEngine, notifier notification.Notifier, loc *time.Location) *asynq.Server {
	logger := utils.GetLogger()
	concurrency := config.AppConfig.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	srv := asynq.NewServer(
		utils.QueueRedisOpt(),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)
	mux := NewServeMux(engine, notifier, loc)

	go func() {
		logger.Info("starting task worker", zap.Int("concurrency", concurrency))
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := srv.Start(mux)
			if err == nil || errors.Is(err, asynq.ErrServerClosed) {
				return
			}
			logger.Error("task worker failed to start",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Fatal("task worker gave up after max retry attempts")
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
	return srv
}

func handleReminderTask(engine scheduling.SchedulingEngine, notifier notification.Notifier) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid reminder payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		apt, err := engine.GetAppointment(ctx, p.AppointmentID)
		if errors.Is(err, models.ErrAppointmentNotFound) {
			logger.Warn("reminder for unknown appointment dropped", zap.String("appointmentId", p.AppointmentID))
			return nil
		}
		if err != nil {
			return err
		}
		if apt.Status != models.StatusScheduled && apt.Status != models.StatusConfirmed {
			logger.Debug("reminder skipped", zap.String("appointmentId", apt.ID), zap.String("status", string(apt.Status)))
			return nil
		}
		return notifier.SendAppointmentReminder(ctx, p)
	}
}

func handleOptimizeTask(engine scheduling.SchedulingEngine, loc *time.Location) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()
		var p models.OptimizePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid optimize payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		date := p.Date
		if date == "" {
			date = NextDay(time.Now(), loc)
		}

		if p.OrganizationID != "" {
			_, err := engine.OptimizeSchedule(ctx, p.OrganizationID, date)
			if errors.Is(err, models.ErrOptimizationInProgress) {
				return nil
			}
			return err
		}

		results, err := engine.OptimizePendingDay(ctx, date)
		logger.Info("nightly optimization finished",
			zap.String("date", date), zap.Int("organizations", len(results)), zap.Error(err))
		return err
	}
}

// NextDay returns the date after now in loc.
func NextDay(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).AddDate(0, 0, 1).Format(models.DateLayout)
}
