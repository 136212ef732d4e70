package models

// StatsReport rolls up the ledger for one organization over a date range.
type StatsReport struct {
	OrganizationID   string                    `json:"organizationId"`
	StartDate        string                    `json:"startDate"`
	EndDate          string                    `json:"endDate"`
	Total            int                       `json:"total"`
	ByStatus         map[AppointmentStatus]int `json:"byStatus"`
	ByServiceType    map[string]int            `json:"byServiceType"`
	ByAgent          map[string]int            `json:"byAgent"` // unassigned appointments are counted under UnassignedAgentKey
	NoShowRate       float64                   `json:"noShowRate"`
	CompletionRate   float64                   `json:"completionRate"`
	CancellationRate float64                   `json:"cancellationRate"`
}

// UnassignedAgentKey buckets appointments with no agent in StatsReport.ByAgent.
const UnassignedAgentKey = "unassigned"
