package models

import "errors"

// Scheduling error taxonomy. Callers test with errors.Is.
var (
	ErrServiceUnavailable     = errors.New("service unavailable")
	ErrScheduleNotConfigured  = errors.New("schedule not configured")
	ErrOrganizationClosed     = errors.New("organization closed")
	ErrNoAgentsAvailable      = errors.New("no agents available")
	ErrSlotNotFound           = errors.New("slot not found")
	ErrSlotConflict           = errors.New("slot conflict")
	ErrSlotInPast             = errors.New("slot already started")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrAppointmentNotFound    = errors.New("appointment not found")
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrOptimizationInProgress = errors.New("optimization already running")

	// ErrTransient marks storage failures (timeouts, write conflicts, lost
	// connections) that the caller may retry as-is.
	ErrTransient = errors.New("transient storage failure")
)

// IsRetryable reports whether the caller may retry after err: either
// re-selecting a slot (ErrSlotConflict) or resending the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrTransient) || errors.Is(err, ErrOptimizationInProgress)
}
