package scheduling

import (
	"fmt"
	"testing"
	"time"

	"civicdesk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

func pending(id string, slotStart int, createdOffset int) models.Appointment {
	return models.Appointment{
		ID:             id,
		ServiceType:    "CNI",
		OrganizationID: testOrg,
		Date:           testDate,
		SlotStart:      slotStart,
		SlotEnd:        slotStart + 35,
		Status:         models.StatusScheduled,
		CreatedAt:      base.Add(time.Duration(createdOffset) * time.Minute),
	}
}

func TestLoadMap_IncrementDoesNotAlias(t *testing.T) {
	before := LoadMap{"a": 1}
	after := before.Increment("a").Increment("b")

	assert.Equal(t, LoadMap{"a": 1}, before)
	assert.Equal(t, LoadMap{"a": 2, "b": 1}, after)
}

func TestPlanAssignments_EvensOutEqualLoad(t *testing.T) {
	for _, tc := range []struct{ n, m int }{{4, 2}, {7, 3}, {10, 4}, {3, 3}, {25, 6}} {
		t.Run(fmt.Sprintf("%d appointments over %d agents", tc.n, tc.m), func(t *testing.T) {
			var ids []string
			for i := 0; i < tc.m; i++ {
				ids = append(ids, fmt.Sprintf("agent-%d", i))
			}
			var day []models.Appointment
			for i := 0; i < tc.n; i++ {
				// spread over slots so the per-slot maximum never binds
				day = append(day, pending(fmt.Sprintf("apt-%02d", i), 480+35*(i%13), i))
			}
			plan := PlanAssignments(BalanceInput{
				Appointments: day,
				Pools:        map[string][]models.Agent{"CNI": agents(ids...)},
				MaxPerSlot:   map[string]int{"CNI": tc.n},
			})

			require.Len(t, plan.Assignments, tc.n)
			assert.Empty(t, plan.Skipped)
			minLoad, maxLoad := tc.n, 0
			for _, id := range ids {
				l := plan.Load[id]
				if l < minLoad {
					minLoad = l
				}
				if l > maxLoad {
					maxLoad = l
				}
			}
			assert.LessOrEqual(t, maxLoad-minLoad, 1)
		})
	}
}

func TestPlanAssignments_UsesRunningCount(t *testing.T) {
	day := []models.Appointment{
		pending("p1", 480, 1),
		pending("p2", 515, 2),
		pending("p3", 550, 3),
	}
	// agent-b starts one appointment ahead.
	busy := pending("done", 585, 0)
	busy.AgentID = "agent-b"
	day = append(day, busy)

	plan := PlanAssignments(BalanceInput{
		Appointments: day,
		Pools:        map[string][]models.Agent{"CNI": agents("agent-a", "agent-b")},
		MaxPerSlot:   map[string]int{"CNI": 3},
	})

	var got []string
	for _, a := range plan.Assignments {
		got = append(got, a.Appointment.ID+"="+a.AgentID)
	}
	// a (0<1), then tie 1=1 goes to list order, then b.
	assert.Equal(t, []string{"p1=agent-a", "p2=agent-a", "p3=agent-b"}, got)
	assert.Equal(t, LoadMap{"agent-a": 2, "agent-b": 2}, plan.Load)
}

func TestPlanAssignments_ProcessesOldestFirst(t *testing.T) {
	day := []models.Appointment{pending("late", 480, 10), pending("early", 515, 1)}
	plan := PlanAssignments(BalanceInput{
		Appointments: day,
		Pools:        map[string][]models.Agent{"CNI": agents("agent-a", "agent-b")},
		MaxPerSlot:   map[string]int{"CNI": 1},
	})

	require.Len(t, plan.Assignments, 2)
	assert.Equal(t, "early", plan.Assignments[0].Appointment.ID)
	assert.Equal(t, "agent-a", plan.Assignments[0].AgentID)
	assert.Equal(t, "agent-b", plan.Assignments[1].AgentID)
}

func TestPlanAssignments_RespectsPerSlotMaximum(t *testing.T) {
	day := []models.Appointment{
		pending("p1", 480, 1),
		pending("p2", 480, 2),
		pending("p3", 480, 3),
	}
	held := pending("held", 480, 0)
	held.AgentID = "agent-a"
	cancelled := pending("gone", 480, 0)
	cancelled.AgentID = "agent-b"
	cancelled.Status = models.StatusCancelled
	day = append(day, held, cancelled)

	plan := PlanAssignments(BalanceInput{
		Appointments: day,
		Pools:        map[string][]models.Agent{"CNI": agents("agent-a", "agent-b")},
		MaxPerSlot:   map[string]int{"CNI": 1},
	})

	require.Len(t, plan.Assignments, 1)
	assert.Equal(t, "p1", plan.Assignments[0].Appointment.ID)
	assert.Equal(t, "agent-b", plan.Assignments[0].AgentID)
	assert.Equal(t, []string{"p2", "p3"}, plan.Skipped)
}

func TestPlanAssignments_IgnoresSettledAndUnknownServices(t *testing.T) {
	done := pending("done", 480, 0)
	done.Status = models.StatusCompleted
	orphan := pending("orphan", 515, 1)
	orphan.ServiceType = "PASSPORT"

	plan := PlanAssignments(BalanceInput{
		Appointments: []models.Appointment{done, orphan},
		Pools:        map[string][]models.Agent{"CNI": agents("agent-a")},
		MaxPerSlot:   map[string]int{"CNI": 1},
	})

	assert.Empty(t, plan.Assignments)
	assert.Equal(t, []string{"orphan"}, plan.Skipped)
}
