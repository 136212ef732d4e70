package scheduling

import "civicdesk/models"

// SlotUsage is the count of active (non-cancelled) appointments in one slot.
type SlotUsage struct {
	Total   int
	ByAgent map[string]int
}

// UsageBySlot tallies active appointments per slot key.
func UsageBySlot(appointments []models.Appointment) map[models.SlotKey]SlotUsage {
	usage := make(map[models.SlotKey]SlotUsage)
	for _, apt := range appointments {
		if !apt.IsActive() {
			continue
		}
		key := apt.SlotKey()
		u := usage[key]
		if u.ByAgent == nil {
			u.ByAgent = map[string]int{}
		}
		u.Total++
		if apt.AgentID != "" {
			u.ByAgent[apt.AgentID]++
		}
		usage[key] = u
	}
	return usage
}

// Evaluate checks a slot against the whole eligible pool. The first agent in
// list order below maxPerAgent becomes the candidate.
func Evaluate(usage SlotUsage, agents []models.Agent, maxPerAgent int) models.Capacity {
	if len(agents) == 0 || usage.Total >= len(agents)*maxPerAgent {
		return models.Capacity{}
	}
	for _, a := range agents {
		booked := usage.ByAgent[a.ID]
		if booked < maxPerAgent {
			return models.Capacity{
				Available:         true,
				CandidateAgentID:  a.ID,
				RemainingCapacity: maxPerAgent - booked,
			}
		}
	}
	// ByAgent never sums past Total, so only inconsistent usage reaches here.
	return models.Capacity{}
}

// EvaluateAgent checks a slot against one agent's own bookings only.
func EvaluateAgent(usage SlotUsage, agentID string, maxPerAgent int) models.Capacity {
	booked := usage.ByAgent[agentID]
	if booked >= maxPerAgent {
		return models.Capacity{}
	}
	return models.Capacity{Available: true, CandidateAgentID: agentID, RemainingCapacity: maxPerAgent - booked}
}
