// Package seed loads the demo organization used by STORAGE_DRIVER=memory
// deployments and local walkthroughs.
package seed

import (
	"context"
	"fmt"
	"time"

	agentRepo "civicdesk/database/repository/agent"
	organizationRepo "civicdesk/database/repository/organization"
	"civicdesk/models"
)

// DemoOrganizationID is the organization created by Demo.
const DemoOrganizationID = "mairie-demo"

// DemoServiceType is the single service offered by the demo organization.
const DemoServiceType = "CNI"

// Demo saves a town hall open 08:00-16:00 Monday to Friday, offering
// CNI appointments of 30 minutes plus a 5 minute buffer, three per agent
// per slot, staffed by two agents.
func Demo(ctx context.Context, orgs organizationRepo.OrganizationRepository, agents agentRepo.AgentRepository) error {
	hours := models.DayHours{Open: 8 * 60, Close: 16 * 60}
	cal := &models.WorkingCalendar{
		OrganizationID: DemoOrganizationID,
		Weekly: map[time.Weekday]models.DayHours{
			time.Monday:    hours,
			time.Tuesday:   hours,
			time.Wednesday: hours,
			time.Thursday:  hours,
			time.Friday:    hours,
		},
	}
	if err := orgs.SaveCalendar(ctx, cal); err != nil {
		return fmt.Errorf("seed calendar: %w", err)
	}

	cfg := &models.ServiceConfig{
		OrganizationID:       DemoOrganizationID,
		ServiceType:          DemoServiceType,
		DurationMinutes:      30,
		BufferMinutes:        5,
		MaxConcurrentPerSlot: 3,
		AutoAssign:           true,
		IsActive:             true,
	}
	if err := orgs.SaveServiceConfig(ctx, cfg); err != nil {
		return fmt.Errorf("seed service config: %w", err)
	}

	for i, name := range []string{"Agent A", "Agent B"} {
		agent := &models.Agent{
			ID:                   fmt.Sprintf("agent-%c", 'a'+i),
			OrganizationID:       DemoOrganizationID,
			Name:                 name,
			IsActive:             true,
			EligibleServiceTypes: []string{DemoServiceType},
			Rank:                 i,
		}
		if err := agents.SaveAgent(ctx, agent); err != nil {
			return fmt.Errorf("seed agent %s: %w", agent.ID, err)
		}
	}
	return nil
}
