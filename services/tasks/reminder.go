package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"civicdesk/models"
	"civicdesk/utils"

	"github.com/hibiken/asynq"
)

const (
	TypeSendReminder = "appointment:reminder"
	TypeOptimizeDay  = "schedule:optimize"
)

// NewReminderTask builds a reminder task delivered at fireAt. The task id is
// derived from the appointment so a reminder is never queued twice.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID("reminder:" + payload.AppointmentID),
		asynq.MaxRetry(5),
	}
	return task, opts, nil
}

// NewOptimizeDayTask builds a load-balancing job.
func NewOptimizeDayTask(payload models.OptimizePayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOptimizeDay, b, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)), nil
}

// ReminderPayloadFor describes apt for the reminder queue.
func ReminderPayloadFor(apt models.Appointment, fireAt time.Time) models.ReminderPayload {
	return models.ReminderPayload{
		AppointmentID:     apt.ID,
		AppointmentNumber: apt.AppointmentNumber,
		CitizenID:         apt.CitizenID,
		OrganizationID:    apt.OrganizationID,
		ServiceType:       apt.ServiceType,
		Date:              apt.Date,
		StartTime:         utils.FormatMinutes(apt.SlotStart),
		FireDate:          fireAt.UTC().Format(time.RFC3339),
	}
}

// Enqueuer is the part of *asynq.Client the reminder scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqReminderScheduler queues appointment reminders on asynq.
type AsynqReminderScheduler struct {
	Client Enqueuer
}

// ScheduleReminder implements scheduling.ReminderScheduler. A reminder that
// is already queued for the appointment is not an error.
func (s *AsynqReminderScheduler) ScheduleReminder(ctx context.Context, apt models.Appointment, fireAt time.Time) error {
	task, opts, err := NewReminderTask(ReminderPayloadFor(apt, fireAt), fireAt)
	if err != nil {
		return fmt.Errorf("build reminder task: %w", err)
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue reminder for %s: %w", apt.ID, err)
	}
	return nil
}
