package scheduling

import (
	"strings"

	"github.com/google/uuid"
)

// NewAppointmentNumber returns a human-facing reference such as
// "APT-20250310-1A2B3C4D" for an appointment on date ("2006-01-02").
func NewAppointmentNumber(date string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "APT-" + strings.ReplaceAll(date, "-", "") + "-" + suffix
}
