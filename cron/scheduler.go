package cron

import (
	"fmt"
	"time"

	"civicdesk/models"
	"civicdesk/services/tasks"
	"civicdesk/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitOptimizeScheduler registers the periodic next-day optimization job
// and starts the asynq scheduler.
func InitOptimizeScheduler(cronSpec string, loc *time.Location) (*asynq.Scheduler, error) {
	logger := utils.GetLogger()
	scheduler := asynq.NewScheduler(utils.QueueRedisOpt(), &asynq.SchedulerOpts{
		Location: loc,
		Logger:   logger.Sugar(),
	})

	task, err := tasks.NewOptimizeDayTask(models.OptimizePayload{})
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(cronSpec, task)
	if err != nil {
		return nil, fmt.Errorf("register optimize schedule %q: %w", cronSpec, err)
	}
	logger.Info("optimization scheduled", zap.String("cron", cronSpec), zap.String("entryId", entryID))

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("start optimize scheduler: %w", err)
	}
	return scheduler, nil
}
