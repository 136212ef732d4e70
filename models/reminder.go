package models

// ReminderPayload is the queued body of an appointment reminder.
type ReminderPayload struct {
	AppointmentID     string `json:"appointmentId"`
	AppointmentNumber string `json:"appointmentNumber"`
	CitizenID         string `json:"citizenId"`
	OrganizationID    string `json:"organizationId"`
	ServiceType       string `json:"serviceType"`
	Date              string `json:"date"`      // "2006-01-02"
	StartTime         string `json:"startTime"` // "HH:MM"
	FireDate          string `json:"fireDate"`  // RFC 3339, informational
}

// OptimizePayload is the queued body of a load-balancing job. An empty
// OrganizationID covers every organization with pending appointments, and
// an empty Date means the day after the job runs.
type OptimizePayload struct {
	OrganizationID string `json:"organizationId,omitempty"`
	Date           string `json:"date,omitempty"`
}
