package scheduling

import "civicdesk/models"

// AggregateStats rolls appointments up into a report. Rates are fractions of
// the total and are zero for an empty range.
func AggregateStats(organizationID, startDate, endDate string, appointments []models.Appointment) models.StatsReport {
	report := models.StatsReport{
		OrganizationID: organizationID,
		StartDate:      startDate,
		EndDate:        endDate,
		ByStatus:       make(map[models.AppointmentStatus]int, len(models.AllStatuses)),
		ByServiceType:  map[string]int{},
		ByAgent:        map[string]int{},
	}
	for _, s := range models.AllStatuses {
		report.ByStatus[s] = 0
	}

	for _, apt := range appointments {
		report.Total++
		report.ByStatus[apt.Status]++
		report.ByServiceType[apt.ServiceType]++
		agent := apt.AgentID
		if agent == "" {
			agent = models.UnassignedAgentKey
		}
		report.ByAgent[agent]++
	}

	if report.Total > 0 {
		total := float64(report.Total)
		report.NoShowRate = float64(report.ByStatus[models.StatusNoShow]) / total
		report.CompletionRate = float64(report.ByStatus[models.StatusCompleted]) / total
		report.CancellationRate = float64(report.ByStatus[models.StatusCancelled]) / total
	}
	return report
}
