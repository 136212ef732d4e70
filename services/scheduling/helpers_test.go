package scheduling

import (
	"context"
	"testing"
	"time"

	memoryRepo "civicdesk/database/repository/memory"
	"civicdesk/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testOrg  = "mairie-01"
	testDate = "2025-03-10" // a Monday
)

// weekdayHours is 08:00-16:00 Monday to Friday with no breaks.
func weekdayHours() map[time.Weekday]models.DayHours {
	hours := models.DayHours{Open: 8 * 60, Close: 16 * 60}
	return map[time.Weekday]models.DayHours{
		time.Monday:    hours,
		time.Tuesday:   hours,
		time.Wednesday: hours,
		time.Thursday:  hours,
		time.Friday:    hours,
	}
}

type fixture struct {
	store  *memoryRepo.Store
	engine *DefaultSchedulingEngine
}

type fixtureOption func(*models.ServiceConfig, *[]models.Agent)

func withMaxPerSlot(n int) fixtureOption {
	return func(cfg *models.ServiceConfig, _ *[]models.Agent) { cfg.MaxConcurrentPerSlot = n }
}

func withAgents(ids ...string) fixtureOption {
	return func(_ *models.ServiceConfig, agents *[]models.Agent) {
		*agents = nil
		for i, id := range ids {
			*agents = append(*agents, models.Agent{
				ID:                   id,
				OrganizationID:       testOrg,
				Name:                 id,
				IsActive:             true,
				EligibleServiceTypes: []string{"CNI"},
				Rank:                 i,
			})
		}
	}
}

func withoutAutoAssign() fixtureOption {
	return func(cfg *models.ServiceConfig, _ *[]models.Agent) { cfg.AutoAssign = false }
}

func withSpecificAgent() fixtureOption {
	return func(cfg *models.ServiceConfig, _ *[]models.Agent) { cfg.RequiresSpecificAgent = true }
}

// newFixture seeds the reference organization: CNI, 30 min + 5 min buffer,
// three concurrent bookings per agent, two agents.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memoryRepo.NewStore()

	cfg := models.ServiceConfig{
		OrganizationID:       testOrg,
		ServiceType:          "CNI",
		DurationMinutes:      30,
		BufferMinutes:        5,
		MaxConcurrentPerSlot: 3,
		AutoAssign:           true,
		IsActive:             true,
	}
	var agents []models.Agent
	withAgents("agent-1", "agent-2")(&cfg, &agents)
	for _, opt := range opts {
		opt(&cfg, &agents)
	}

	require.NoError(t, store.SaveServiceConfig(ctx, &cfg))
	require.NoError(t, store.SaveCalendar(ctx, &models.WorkingCalendar{
		OrganizationID: testOrg,
		Weekly:         weekdayHours(),
		Holidays:       []string{"2025-07-14"},
	}))
	for i := range agents {
		require.NoError(t, store.SaveAgent(ctx, &agents[i]))
	}

	engine := NewSchedulingEngine(store, store, store, zap.NewNop())
	engine.Now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return &fixture{store: store, engine: engine}
}

func (f *fixture) book(t *testing.T, citizen string, slotStart int, agentID string) (*models.Appointment, error) {
	t.Helper()
	return f.engine.BookSlot(context.Background(), models.BookingRequest{
		CitizenID:      citizen,
		ServiceType:    "CNI",
		OrganizationID: testOrg,
		Date:           testDate,
		SlotStart:      slotStart,
		AgentID:        agentID,
	})
}
