package scheduling

import (
	"fmt"

	"civicdesk/models"
)

// allowedTransitions is the appointment lifecycle. Statuses without an entry
// are terminal.
var allowedTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusScheduled:  {models.StatusConfirmed, models.StatusCancelled, models.StatusNoShow},
	models.StatusConfirmed:  {models.StatusInProgress, models.StatusCancelled, models.StatusNoShow},
	models.StatusInProgress: {models.StatusCompleted},
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status models.AppointmentStatus) bool {
	return len(allowedTransitions[status]) == 0
}

// ValidateTransition returns models.ErrInvalidTransition unless from -> to is
// an edge of the lifecycle.
func ValidateTransition(from, to models.AppointmentStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, to)
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, from, to)
}
