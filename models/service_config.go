package models

import (
	"fmt"
	"time"
)

// ServiceConfig describes how an organization offers one citizen service.
// The scheduler only ever reads it.
type ServiceConfig struct {
	OrganizationID        string    `bson:"organization_id" json:"organizationId"`
	ServiceType           string    `bson:"service_type" json:"serviceType"`                     // e.g. "CNI", "PASSPORT"
	DurationMinutes       int       `bson:"duration_minutes" json:"durationMinutes"`             // length of the appointment itself
	BufferMinutes         int       `bson:"buffer_minutes" json:"bufferMinutes"`                 // spacing added after each appointment
	MaxConcurrentPerSlot  int       `bson:"max_concurrent_per_slot" json:"maxConcurrentPerSlot"` // per agent
	RequiresSpecificAgent bool      `bson:"requires_specific_agent" json:"requiresSpecificAgent"`
	AutoAssign            bool      `bson:"auto_assign" json:"autoAssign"`
	IsActive              bool      `bson:"is_active" json:"isActive"`
	UpdatedAt             time.Time `bson:"updated_at" json:"updatedAt"`
}

// SlotLength is the grid step used when building slots for this service.
func (sc ServiceConfig) SlotLength() int {
	return sc.DurationMinutes + sc.BufferMinutes
}

// Validate checks the invariants a stored config must satisfy.
func (sc ServiceConfig) Validate() error {
	if sc.OrganizationID == "" || sc.ServiceType == "" {
		return fmt.Errorf("%w: organization and service type are required", ErrInvalidConfig)
	}
	if sc.DurationMinutes <= 0 {
		return fmt.Errorf("%w: durationMinutes must be positive, got %d", ErrInvalidConfig, sc.DurationMinutes)
	}
	if sc.BufferMinutes < 0 {
		return fmt.Errorf("%w: bufferMinutes cannot be negative, got %d", ErrInvalidConfig, sc.BufferMinutes)
	}
	if sc.MaxConcurrentPerSlot < 1 {
		return fmt.Errorf("%w: maxConcurrentPerSlot must be at least 1, got %d", ErrInvalidConfig, sc.MaxConcurrentPerSlot)
	}
	return nil
}
