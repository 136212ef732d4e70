package scheduling

import (
	"sort"

	"civicdesk/models"
)

// LoadMap counts active appointments per agent over one day. Values are
// never mutated in place; Increment returns the next state.
type LoadMap map[string]int

// Increment returns a copy of m with agentID's load raised by one.
func (m LoadMap) Increment(agentID string) LoadMap {
	next := make(LoadMap, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	next[agentID]++
	return next
}

// DayLoad computes the starting load of every agent from assigned, active
// appointments.
func DayLoad(appointments []models.Appointment) LoadMap {
	load := LoadMap{}
	for _, apt := range appointments {
		if apt.AgentID != "" && apt.IsActive() {
			load[apt.AgentID]++
		}
	}
	return load
}

// BalanceInput is everything a balancing pass needs, loaded up front.
type BalanceInput struct {
	Appointments []models.Appointment
	Pools        map[string][]models.Agent // eligible agents per service type, in directory order
	MaxPerSlot   map[string]int            // maxConcurrentPerSlot per service type
}

// Assignment pairs an appointment with the agent chosen for it.
type Assignment struct {
	Appointment models.Appointment
	AgentID     string
}

// BalancePlan is the outcome of PlanAssignments.
type BalancePlan struct {
	Assignments []Assignment
	Skipped     []string // appointments left unassigned because every eligible agent was full
	Load        LoadMap  // final per-agent load
}

type slotAgent struct {
	slot  models.SlotKey
	agent string
}

// NeedsAgent reports whether the balancer should assign apt.
func NeedsAgent(apt models.Appointment) bool {
	return apt.AgentID == "" && (apt.Status == models.StatusScheduled || apt.Status == models.StatusConfirmed)
}

// PlanAssignments hands each unassigned appointment, oldest first, to the
// eligible agent with the lowest running load whose same-slot count is
// still below the service maximum. Ties go to the earlier agent in the pool.
func PlanAssignments(in BalanceInput) BalancePlan {
	load := DayLoad(in.Appointments)
	slotLoad := map[slotAgent]int{}
	var pending []models.Appointment
	for _, apt := range in.Appointments {
		if apt.AgentID != "" && apt.IsActive() {
			slotLoad[slotAgent{slot: apt.SlotKey(), agent: apt.AgentID}]++
		}
		if NeedsAgent(apt) {
			pending = append(pending, apt)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})

	plan := BalancePlan{}
	for _, apt := range pending {
		maxPerSlot := in.MaxPerSlot[apt.ServiceType]
		chosen := ""
		for _, agent := range in.Pools[apt.ServiceType] {
			if slotLoad[slotAgent{slot: apt.SlotKey(), agent: agent.ID}] >= maxPerSlot {
				continue
			}
			if chosen == "" || load[agent.ID] < load[chosen] {
				chosen = agent.ID
			}
		}
		if chosen == "" {
			plan.Skipped = append(plan.Skipped, apt.ID)
			continue
		}
		load = load.Increment(chosen)
		slotLoad[slotAgent{slot: apt.SlotKey(), agent: chosen}]++
		plan.Assignments = append(plan.Assignments, Assignment{Appointment: apt, AgentID: chosen})
	}
	plan.Load = load
	return plan
}
