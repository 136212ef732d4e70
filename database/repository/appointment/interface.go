// File: database/repository/appointment/interface.go
package appointmentRepo

import (
	"context"

	"civicdesk/models"
)

// SlotLedger is the view of the booking ledger available inside a slot
// transaction. Reads and writes made through it commit or abort together.
type SlotLedger interface {
	// CountActive counts non-cancelled appointments in the slot. An empty
	// agentID counts the whole slot.
	CountActive(ctx context.Context, key models.SlotKey, agentID string) (int, error)
	Create(ctx context.Context, apt *models.Appointment) error
}

// DayLedger is the view of one organization-day held by the load balancer.
type DayLedger interface {
	ListDay(ctx context.Context, organizationID, date string) ([]models.Appointment, error)
	UpdateAgent(ctx context.Context, apt models.Appointment, agentID string) error
}

// AppointmentRepository is the booking ledger.
type AppointmentRepository interface {
	// WithSlotTransaction runs fn serialized against every other transaction
	// on the same slot key. An error from fn aborts all of fn's writes.
	WithSlotTransaction(ctx context.Context, key models.SlotKey, fn func(ctx context.Context, ledger SlotLedger) error) error
	// WithDayLock runs fn as the single writer for (organizationID, date).
	// A concurrent holder yields models.ErrOptimizationInProgress.
	WithDayLock(ctx context.Context, organizationID, date string, fn func(ctx context.Context, ledger DayLedger) error) error

	ListDay(ctx context.Context, organizationID, date string) ([]models.Appointment, error)
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	ListByCitizen(ctx context.Context, citizenID string) ([]models.Appointment, error)
	// Query returns appointments whose date falls within [startDate, endDate].
	Query(ctx context.Context, organizationID, startDate, endDate string) ([]models.Appointment, error)
	// UpdateStatus moves an appointment from one status to another, failing
	// with models.ErrInvalidTransition when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error)
	ListOrganizationsWithUnassigned(ctx context.Context, date string) ([]string, error)
}
