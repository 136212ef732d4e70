package models

// MinutesPerDay bounds every minute-of-day value.
const MinutesPerDay = 24 * 60

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// TimeSlot is a computed, bookable window. It is never persisted.
type TimeSlot struct {
	Start             int    `json:"start"`                      // minutes from midnight
	End               int    `json:"end"`                        // minutes from midnight
	StartTime         string `json:"startTime,omitempty"`        // "HH:MM", filled at the API boundary
	EndTime           string `json:"endTime,omitempty"`          // "HH:MM"
	RemainingCapacity int    `json:"remainingCapacity"`          // seats left for the candidate agent
	CandidateAgentID  string `json:"candidateAgentId,omitempty"` // agent who would receive the next booking
}

// Interval returns the slot window.
func (ts TimeSlot) Interval() Interval {
	return Interval{Start: ts.Start, End: ts.End}
}

// SlotKey identifies the unit of booking serialization.
type SlotKey struct {
	OrganizationID string `bson:"organization_id" json:"organizationId"`
	Date           string `bson:"date" json:"date"`
	SlotStart      int    `bson:"slot_start" json:"slotStart"`
	SlotEnd        int    `bson:"slot_end" json:"slotEnd"`
}

// Capacity is the outcome of evaluating one slot against existing bookings.
type Capacity struct {
	Available         bool   `json:"available"`
	CandidateAgentID  string `json:"candidateAgentId,omitempty"`
	RemainingCapacity int    `json:"remainingCapacity"`
}
