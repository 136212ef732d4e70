package notification

import (
	"context"

	"civicdesk/models"

	"go.uber.org/zap"
)

// Notifier delivers citizen-facing messages. Message rendering and
// channels (SMS, e-mail, push) belong to the portal.
type Notifier interface {
	SendAppointmentReminder(ctx context.Context, reminder models.ReminderPayload) error
}

// LogNotifier records reminders in the structured log.
type LogNotifier struct {
	Logger *zap.Logger
}

// NewLogNotifier returns a LogNotifier writing to logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{Logger: logger}
}

// SendAppointmentReminder implements Notifier.
func (n *LogNotifier) SendAppointmentReminder(_ context.Context, r models.ReminderPayload) error {
	n.Logger.Info("appointment reminder",
		zap.String("citizenId", r.CitizenID),
		zap.String("appointmentNumber", r.AppointmentNumber),
		zap.String("organizationId", r.OrganizationID),
		zap.String("serviceType", r.ServiceType),
		zap.String("date", r.Date),
		zap.String("startTime", r.StartTime))
	return nil
}
