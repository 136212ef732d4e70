package models

import "time"

// Agent is a staff member who can receive appointments.
type Agent struct {
	ID                   string    `bson:"id" json:"id"`
	OrganizationID       string    `bson:"organization_id" json:"organizationId"`
	Name                 string    `bson:"name" json:"name"`
	IsActive             bool      `bson:"is_active" json:"isActive"`
	EligibleServiceTypes []string  `bson:"eligible_service_types" json:"eligibleServiceTypes"`
	Absences             []string  `bson:"absences,omitempty" json:"absences,omitempty"` // "2006-01-02" dates the agent is off
	Rank                 int       `bson:"rank" json:"rank"`                             // directory order, lowest first
	UpdatedAt            time.Time `bson:"updated_at" json:"updatedAt"`
}

// CanServe reports whether the agent is active and authorized for serviceType.
func (a Agent) CanServe(serviceType string) bool {
	if !a.IsActive {
		return false
	}
	for _, st := range a.EligibleServiceTypes {
		if st == serviceType {
			return true
		}
	}
	return false
}

// WorksOn reports whether the agent is not marked absent on date.
func (a Agent) WorksOn(date string) bool {
	for _, d := range a.Absences {
		if d == date {
			return false
		}
	}
	return true
}
