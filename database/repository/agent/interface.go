// File: database/repository/agent/interface.go
package agentRepo

import (
	"context"

	"civicdesk/models"
)

// AgentRepository is the agent directory used by the scheduler.
type AgentRepository interface {
	// ListEligible returns agents of the organization who can serve
	// serviceType and are not absent on date, ordered by rank then id.
	// A non-empty agentID narrows the result to that agent.
	ListEligible(ctx context.Context, organizationID, serviceType, date, agentID string) ([]models.Agent, error)
	SaveAgent(ctx context.Context, agent *models.Agent) error
}
