package models

import "time"

// AppointmentStatus is a state of the appointment lifecycle.
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "SCHEDULED"
	StatusConfirmed  AppointmentStatus = "CONFIRMED"
	StatusInProgress AppointmentStatus = "IN_PROGRESS"
	StatusCompleted  AppointmentStatus = "COMPLETED"
	StatusCancelled  AppointmentStatus = "CANCELLED"
	StatusNoShow     AppointmentStatus = "NO_SHOW"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []AppointmentStatus{
	StatusScheduled,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Appointment is the persisted booking record.
type Appointment struct {
	ID                string            `bson:"id" json:"id"`
	AppointmentNumber string            `bson:"appointment_number" json:"appointmentNumber"` // e.g. "APT-20250310-1A2B3C4D"
	ServiceType       string            `bson:"service_type" json:"serviceType"`
	OrganizationID    string            `bson:"organization_id" json:"organizationId"`
	CitizenID         string            `bson:"citizen_id" json:"citizenId"`
	AgentID           string            `bson:"agent_id,omitempty" json:"agentId,omitempty"` // empty until assigned
	Date              string            `bson:"date" json:"date"`                            // "2006-01-02"
	SlotStart         int               `bson:"slot_start" json:"slotStart"`                 // minutes from midnight
	SlotEnd           int               `bson:"slot_end" json:"slotEnd"`                     // minutes from midnight
	Status            AppointmentStatus `bson:"status" json:"status"`
	Notes             string            `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt         time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time         `bson:"updated_at" json:"updatedAt"`
}

// SlotKey returns the serialization key of the slot the appointment holds.
func (a Appointment) SlotKey() SlotKey {
	return SlotKey{OrganizationID: a.OrganizationID, Date: a.Date, SlotStart: a.SlotStart, SlotEnd: a.SlotEnd}
}

// IsActive reports whether the appointment still consumes capacity.
func (a Appointment) IsActive() bool {
	return a.Status != StatusCancelled
}

// BookingRequest carries the inputs of a citizen booking.
type BookingRequest struct {
	CitizenID      string `json:"citizenId"`
	ServiceType    string `json:"serviceType" binding:"required"`
	OrganizationID string `json:"organizationId" binding:"required"`
	Date           string `json:"date" binding:"required"`
	SlotStart      int    `json:"slotStart"`
	AgentID        string `json:"agentId,omitempty"`
	Notes          string `json:"notes,omitempty" binding:"max=500"`
}

// OptimizeResult summarizes one load-balancing pass.
type OptimizeResult struct {
	OrganizationID string   `json:"organizationId"`
	Date           string   `json:"date"`
	Assigned       int      `json:"assigned"`
	Skipped        int      `json:"skipped"`
	SkippedIDs     []string `json:"skippedIds,omitempty"`
}
