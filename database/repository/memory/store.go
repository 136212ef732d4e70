// File: database/repository/memory/store.go
package memoryRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	agentRepo "civicdesk/database/repository/agent"
	appointmentRepo "civicdesk/database/repository/appointment"
	organizationRepo "civicdesk/database/repository/organization"
	"civicdesk/models"
)

var (
	_ organizationRepo.OrganizationRepository = (*Store)(nil)
	_ agentRepo.AgentRepository               = (*Store)(nil)
	_ appointmentRepo.AppointmentRepository   = (*Store)(nil)
)

type dayKey struct {
	organizationID string
	date           string
}

// Store keeps every repository in process memory. Slot transactions are
// serialized by a mutex per slot key; a day's slot transactions share a
// read lock that the optimizer takes exclusively.
type Store struct {
	mu           sync.RWMutex
	services     map[string]models.ServiceConfig
	calendars    map[string]models.WorkingCalendar
	agents       map[string]models.Agent
	appointments map[string]models.Appointment

	locksMu    sync.Mutex
	slotLocks  map[models.SlotKey]*sync.Mutex
	dayLocks   map[dayKey]*sync.RWMutex
	optimizing map[dayKey]bool
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		services:     map[string]models.ServiceConfig{},
		calendars:    map[string]models.WorkingCalendar{},
		agents:       map[string]models.Agent{},
		appointments: map[string]models.Appointment{},
		slotLocks:    map[models.SlotKey]*sync.Mutex{},
		dayLocks:     map[dayKey]*sync.RWMutex{},
		optimizing:   map[dayKey]bool{},
	}
}

func serviceID(organizationID, serviceType string) string {
	return organizationID + "/" + serviceType
}

// GetServiceConfig implements organizationRepo.ServiceConfigRepository.
func (s *Store) GetServiceConfig(_ context.Context, organizationID, serviceType string) (*models.ServiceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.services[serviceID(organizationID, serviceType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no service %s", models.ErrServiceUnavailable, organizationID, serviceType)
	}
	return &cfg, nil
}

// SaveServiceConfig implements organizationRepo.ServiceConfigRepository.
func (s *Store) SaveServiceConfig(_ context.Context, cfg *models.ServiceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.services[serviceID(cfg.OrganizationID, cfg.ServiceType)] = *cfg
	s.mu.Unlock()
	return nil
}

// GetCalendar implements organizationRepo.CalendarRepository.
func (s *Store) GetCalendar(_ context.Context, organizationID string) (*models.WorkingCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cal, ok := s.calendars[organizationID]
	if !ok {
		return nil, fmt.Errorf("%w: organization %s", models.ErrScheduleNotConfigured, organizationID)
	}
	return copyCalendar(cal), nil
}

// SaveCalendar implements organizationRepo.CalendarRepository.
func (s *Store) SaveCalendar(_ context.Context, cal *models.WorkingCalendar) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	cal.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.calendars[cal.OrganizationID] = *copyCalendar(*cal)
	s.mu.Unlock()
	return nil
}

func copyCalendar(cal models.WorkingCalendar) *models.WorkingCalendar {
	out := cal
	out.Weekly = make(map[time.Weekday]models.DayHours, len(cal.Weekly))
	for wd, h := range cal.Weekly {
		h.Breaks = append([]models.Interval(nil), h.Breaks...)
		out.Weekly[wd] = h
	}
	out.Holidays = append([]string(nil), cal.Holidays...)
	return &out
}

// ListEligible implements agentRepo.AgentRepository.
func (s *Store) ListEligible(_ context.Context, organizationID, serviceType, date, agentID string) ([]models.Agent, error) {
	s.mu.RLock()
	candidates := make([]models.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if a.OrganizationID == organizationID {
			candidates = append(candidates, a)
		}
	}
	s.mu.RUnlock()
	return agentRepo.FilterEligible(candidates, serviceType, date, agentID), nil
}

// SaveAgent implements agentRepo.AgentRepository.
func (s *Store) SaveAgent(_ context.Context, agent *models.Agent) error {
	if agent.ID == "" || agent.OrganizationID == "" {
		return fmt.Errorf("%w: agent id and organization are required", models.ErrInvalidRequest)
	}
	agent.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.agents[agent.ID] = *agent
	s.mu.Unlock()
	return nil
}

func sortByCreation(list []models.Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
