package memoryRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	appointmentRepo "civicdesk/database/repository/appointment"
	"civicdesk/models"
)

func (s *Store) slotLock(key models.SlotKey) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.slotLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.slotLocks[key] = m
	}
	return m
}

func (s *Store) dayLock(k dayKey) *sync.RWMutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.dayLocks[k]
	if !ok {
		m = &sync.RWMutex{}
		s.dayLocks[k] = m
	}
	return m
}

// WithSlotTransaction implements appointmentRepo.AppointmentRepository.
// Writes are staged and applied only when fn succeeds.
func (s *Store) WithSlotTransaction(ctx context.Context, key models.SlotKey, fn func(ctx context.Context, ledger appointmentRepo.SlotLedger) error) error {
	day := s.dayLock(dayKey{organizationID: key.OrganizationID, date: key.Date})
	day.RLock()
	defer day.RUnlock()

	slot := s.slotLock(key)
	slot.Lock()
	defer slot.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransient, err)
	}
	tx := &slotTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.mu.Lock()
	for _, apt := range tx.staged {
		s.appointments[apt.ID] = apt
	}
	s.mu.Unlock()
	return nil
}

type slotTx struct {
	store  *Store
	staged []models.Appointment
}

func (tx *slotTx) CountActive(_ context.Context, key models.SlotKey, agentID string) (int, error) {
	matches := func(a models.Appointment) bool {
		return a.SlotKey() == key && a.IsActive() && (agentID == "" || a.AgentID == agentID)
	}
	n := 0
	tx.store.mu.RLock()
	for _, a := range tx.store.appointments {
		if matches(a) {
			n++
		}
	}
	tx.store.mu.RUnlock()
	for _, a := range tx.staged {
		if matches(a) {
			n++
		}
	}
	return n, nil
}

func (tx *slotTx) Create(_ context.Context, apt *models.Appointment) error {
	tx.store.mu.RLock()
	_, exists := tx.store.appointments[apt.ID]
	tx.store.mu.RUnlock()
	if exists {
		return fmt.Errorf("appointment %s already exists", apt.ID)
	}
	tx.staged = append(tx.staged, *apt)
	return nil
}

// WithDayLock implements appointmentRepo.AppointmentRepository. It waits for
// in-flight slot transactions of the day to finish and blocks new ones.
func (s *Store) WithDayLock(ctx context.Context, organizationID, date string, fn func(ctx context.Context, ledger appointmentRepo.DayLedger) error) error {
	k := dayKey{organizationID: organizationID, date: date}
	s.locksMu.Lock()
	if s.optimizing[k] {
		s.locksMu.Unlock()
		return fmt.Errorf("%w: %s on %s", models.ErrOptimizationInProgress, organizationID, date)
	}
	s.optimizing[k] = true
	s.locksMu.Unlock()
	defer func() {
		s.locksMu.Lock()
		delete(s.optimizing, k)
		s.locksMu.Unlock()
	}()

	day := s.dayLock(k)
	day.Lock()
	defer day.Unlock()

	tx := &dayTx{store: s, assignments: map[string]string{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	for id, agentID := range tx.assignments {
		apt := s.appointments[id]
		apt.AgentID = agentID
		apt.UpdatedAt = now
		s.appointments[id] = apt
	}
	s.mu.Unlock()
	return nil
}

type dayTx struct {
	store       *Store
	assignments map[string]string
}

func (tx *dayTx) ListDay(ctx context.Context, organizationID, date string) ([]models.Appointment, error) {
	list, err := tx.store.ListDay(ctx, organizationID, date)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if agentID, ok := tx.assignments[list[i].ID]; ok {
			list[i].AgentID = agentID
		}
	}
	return list, nil
}

func (tx *dayTx) UpdateAgent(_ context.Context, apt models.Appointment, agentID string) error {
	tx.store.mu.RLock()
	current, ok := tx.store.appointments[apt.ID]
	tx.store.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrAppointmentNotFound, apt.ID)
	}
	if _, staged := tx.assignments[apt.ID]; staged || current.AgentID != "" || !current.IsActive() {
		return fmt.Errorf("%w: appointment %s is no longer unassigned", models.ErrSlotConflict, apt.ID)
	}
	tx.assignments[apt.ID] = agentID
	return nil
}

// ListDay implements appointmentRepo.AppointmentRepository.
func (s *Store) ListDay(_ context.Context, organizationID, date string) ([]models.Appointment, error) {
	return s.collect(func(a models.Appointment) bool {
		return a.OrganizationID == organizationID && a.Date == date
	}, sortByCreation), nil
}

// GetByID implements appointmentRepo.AppointmentRepository.
func (s *Store) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	apt, ok := s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAppointmentNotFound, id)
	}
	return &apt, nil
}

// ListByCitizen implements appointmentRepo.AppointmentRepository.
func (s *Store) ListByCitizen(_ context.Context, citizenID string) ([]models.Appointment, error) {
	return s.collect(func(a models.Appointment) bool { return a.CitizenID == citizenID }, func(list []models.Appointment) {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Date != list[j].Date {
				return list[i].Date > list[j].Date
			}
			return list[i].SlotStart > list[j].SlotStart
		})
	}), nil
}

// Query implements appointmentRepo.AppointmentRepository.
func (s *Store) Query(_ context.Context, organizationID, startDate, endDate string) ([]models.Appointment, error) {
	return s.collect(func(a models.Appointment) bool {
		return a.OrganizationID == organizationID && a.Date >= startDate && a.Date <= endDate
	}, func(list []models.Appointment) {
		sortByCreation(list)
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Date != list[j].Date {
				return list[i].Date < list[j].Date
			}
			return list[i].SlotStart < list[j].SlotStart
		})
	}), nil
}

// UpdateStatus implements appointmentRepo.AppointmentRepository.
func (s *Store) UpdateStatus(_ context.Context, id string, from, to models.AppointmentStatus) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apt, ok := s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAppointmentNotFound, id)
	}
	if apt.Status != from {
		return nil, fmt.Errorf("%w: appointment %s is %s, not %s", models.ErrInvalidTransition, id, apt.Status, from)
	}
	apt.Status = to
	apt.UpdatedAt = time.Now().UTC()
	s.appointments[id] = apt
	return &apt, nil
}

// ListOrganizationsWithUnassigned implements appointmentRepo.AppointmentRepository.
func (s *Store) ListOrganizationsWithUnassigned(_ context.Context, date string) ([]string, error) {
	s.mu.RLock()
	seen := map[string]bool{}
	for _, a := range s.appointments {
		pending := a.Status == models.StatusScheduled || a.Status == models.StatusConfirmed
		if a.Date == date && a.AgentID == "" && pending {
			seen[a.OrganizationID] = true
		}
	}
	s.mu.RUnlock()
	orgs := make([]string, 0, len(seen))
	for org := range seen {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)
	return orgs, nil
}

func (s *Store) collect(keep func(models.Appointment) bool, order func([]models.Appointment)) []models.Appointment {
	s.mu.RLock()
	out := []models.Appointment{}
	for _, a := range s.appointments {
		if keep(a) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	order(out)
	return out
}
