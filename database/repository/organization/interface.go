// File: database/repository/organization/interface.go
package organizationRepo

import (
	"context"

	"civicdesk/models"
)

// ServiceConfigRepository reads and maintains per-organization service settings.
type ServiceConfigRepository interface {
	// GetServiceConfig returns models.ErrServiceUnavailable when no config exists.
	GetServiceConfig(ctx context.Context, organizationID, serviceType string) (*models.ServiceConfig, error)
	SaveServiceConfig(ctx context.Context, cfg *models.ServiceConfig) error
}

// CalendarRepository reads and maintains organization working calendars.
type CalendarRepository interface {
	// GetCalendar returns models.ErrScheduleNotConfigured when no calendar exists.
	GetCalendar(ctx context.Context, organizationID string) (*models.WorkingCalendar, error)
	SaveCalendar(ctx context.Context, cal *models.WorkingCalendar) error
}

// OrganizationRepository bundles the organization-owned configuration stores.
type OrganizationRepository interface {
	ServiceConfigRepository
	CalendarRepository
}
