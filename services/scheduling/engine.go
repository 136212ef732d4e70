package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	agentRepo "civicdesk/database/repository/agent"
	appointmentRepo "civicdesk/database/repository/appointment"
	organizationRepo "civicdesk/database/repository/organization"
	"civicdesk/metrics"
	"civicdesk/models"
	"civicdesk/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SchedulingEngine is the appointment scheduling surface used by handlers
// and background jobs.
type SchedulingEngine interface {
	// FindAvailableSlots lists the slots of date that can still take a booking.
	FindAvailableSlots(ctx context.Context, serviceType, organizationID, date, agentID string) ([]models.TimeSlot, error)
	// BookSlot books the slot starting at req.SlotStart or fails with models.ErrSlotConflict.
	BookSlot(ctx context.Context, req models.BookingRequest) (*models.Appointment, error)
	OptimizeSchedule(ctx context.Context, organizationID, date string) (*models.OptimizeResult, error)
	OptimizePendingDay(ctx context.Context, date string) ([]models.OptimizeResult, error)
	GetSchedulingStats(ctx context.Context, organizationID, startDate, endDate string) (*models.StatsReport, error)
	UpdateAppointmentStatus(ctx context.Context, id string, to models.AppointmentStatus) (*models.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListCitizenAppointments(ctx context.Context, citizenID string) ([]models.Appointment, error)
}

// ReminderScheduler queues a reminder for a booked appointment.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, apt models.Appointment, fireAt time.Time) error
}

// NopReminders discards reminders.
type NopReminders struct{}

// ScheduleReminder implements ReminderScheduler.
func (NopReminders) ScheduleReminder(context.Context, models.Appointment, time.Time) error {
	return nil
}

// DefaultSchedulingEngine implements SchedulingEngine over injected repositories.
type DefaultSchedulingEngine struct {
	Organizations organizationRepo.OrganizationRepository
	Agents        agentRepo.AgentRepository
	Appointments  appointmentRepo.AppointmentRepository
	Reminders     ReminderScheduler
	Logger        *zap.Logger
	Location      *time.Location   // default zone for calendars without a timezone
	ReminderLead  time.Duration    // how long before slot start a reminder fires; 0 disables
	Now           func() time.Time // overridable clock

	// RejectPastSlots hides slots that have already started and refuses to
	// book them with models.ErrSlotInPast.
	RejectPastSlots bool
}

// NewSchedulingEngine wires an engine with UTC, no reminders and the wall clock.
func NewSchedulingEngine(
	orgs organizationRepo.OrganizationRepository,
	agents agentRepo.AgentRepository,
	appointments appointmentRepo.AppointmentRepository,
	logger *zap.Logger,
) *DefaultSchedulingEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultSchedulingEngine{
		Organizations: orgs,
		Agents:        agents,
		Appointments:  appointments,
		Reminders:     NopReminders{},
		Logger:        logger,
		Location:      time.UTC,
		Now:           time.Now,
	}
}

func (e *DefaultSchedulingEngine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *DefaultSchedulingEngine) location() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

// dayPlan is everything needed to evaluate one service on one date.
type dayPlan struct {
	config   models.ServiceConfig
	slots    []models.TimeSlot
	pool     []models.Agent
	location *time.Location // the organization's zone
}

func (e *DefaultSchedulingEngine) planDay(ctx context.Context, serviceType, organizationID, date, agentID string) (*dayPlan, error) {
	cfg, err := e.Organizations.GetServiceConfig(ctx, organizationID, serviceType)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive {
		return nil, fmt.Errorf("%w: %s is disabled at %s", models.ErrServiceUnavailable, serviceType, organizationID)
	}
	cal, err := e.Organizations.GetCalendar(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	day, err := ResolveDay(*cal, date)
	if err != nil {
		return nil, err
	}
	if day.Closed {
		return nil, fmt.Errorf("%w: %s on %s", models.ErrOrganizationClosed, organizationID, date)
	}

	pool, err := e.Agents.ListEligible(ctx, organizationID, serviceType, date, "")
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no eligible agent for %s at %s", models.ErrNoAgentsAvailable, serviceType, organizationID)
	}
	if agentID != "" && !containsAgent(pool, agentID) {
		return nil, fmt.Errorf("%w: agent %s cannot serve %s on %s", models.ErrNoAgentsAvailable, agentID, serviceType, date)
	}

	return &dayPlan{
		config:   *cfg,
		slots:    BuildSlots(day, cfg.SlotLength()),
		pool:     pool,
		location: e.calendarLocation(*cal),
	}, nil
}

func containsAgent(pool []models.Agent, agentID string) bool {
	for _, a := range pool {
		if a.ID == agentID {
			return true
		}
	}
	return false
}

// evaluate applies the capacity rules for an optional requested agent.
func (p *dayPlan) evaluate(usage SlotUsage, agentID string) models.Capacity {
	maxPerAgent := p.config.MaxConcurrentPerSlot
	switch {
	case agentID == "":
		return Evaluate(usage, p.pool, maxPerAgent)
	case p.config.RequiresSpecificAgent:
		return EvaluateAgent(usage, agentID, maxPerAgent)
	case usage.Total >= len(p.pool)*maxPerAgent:
		return models.Capacity{}
	default:
		return EvaluateAgent(usage, agentID, maxPerAgent)
	}
}

// calendarLocation is the calendar's own zone, or the engine default.
func (e *DefaultSchedulingEngine) calendarLocation(cal models.WorkingCalendar) *time.Location {
	if cal.Timezone == "" {
		return e.location()
	}
	loc, err := time.LoadLocation(cal.Timezone)
	if err != nil {
		e.Logger.Warn("calendar timezone not loadable, using default",
			zap.String("organizationId", cal.OrganizationID), zap.String("timezone", cal.Timezone), zap.Error(err))
		return e.location()
	}
	return loc
}

// slotStarted reports whether the slot's start is not after now in the
// organization's zone. It is always false unless RejectPastSlots is set.
func (e *DefaultSchedulingEngine) slotStarted(plan *dayPlan, date string, start int) bool {
	if !e.RejectPastSlots {
		return false
	}
	at, err := utils.SlotInstant(date, start, plan.location)
	return err == nil && !at.After(e.now())
}

// FindAvailableSlots returns the bookable slots of date, in ascending order.
// With RejectPastSlots, slots that have already started are not offered.
func (e *DefaultSchedulingEngine) FindAvailableSlots(ctx context.Context, serviceType, organizationID, date, agentID string) ([]models.TimeSlot, error) {
	started := time.Now()
	defer func() { metrics.SlotQueryDuration.Observe(time.Since(started).Seconds()) }()

	plan, err := e.planDay(ctx, serviceType, organizationID, date, agentID)
	if err != nil {
		return nil, err
	}
	appointments, err := e.Appointments.ListDay(ctx, organizationID, date)
	if err != nil {
		return nil, err
	}
	usage := UsageBySlot(appointments)

	available := []models.TimeSlot{}
	for _, slot := range plan.slots {
		if e.slotStarted(plan, date, slot.Start) {
			continue
		}
		key := models.SlotKey{OrganizationID: organizationID, Date: date, SlotStart: slot.Start, SlotEnd: slot.End}
		capacity := plan.evaluate(usage[key], agentID)
		if !capacity.Available {
			continue
		}
		slot.RemainingCapacity = capacity.RemainingCapacity
		slot.CandidateAgentID = capacity.CandidateAgentID
		slot.StartTime = utils.FormatMinutes(slot.Start)
		slot.EndTime = utils.FormatMinutes(slot.End)
		available = append(available, slot)
	}
	return available, nil
}

func validateBooking(req models.BookingRequest) error {
	var missing []string
	if req.CitizenID == "" {
		missing = append(missing, "citizenId")
	}
	if req.ServiceType == "" {
		missing = append(missing, "serviceType")
	}
	if req.OrganizationID == "" {
		missing = append(missing, "organizationId")
	}
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", models.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if req.SlotStart < 0 || req.SlotStart >= models.MinutesPerDay {
		return fmt.Errorf("%w: slotStart %d outside the day", models.ErrInvalidRequest, req.SlotStart)
	}
	return nil
}

// slotUsage reads the slot's counts through the transaction's ledger.
func slotUsage(ctx context.Context, ledger appointmentRepo.SlotLedger, key models.SlotKey, agents []models.Agent) (SlotUsage, error) {
	total, err := ledger.CountActive(ctx, key, "")
	if err != nil {
		return SlotUsage{}, err
	}
	usage := SlotUsage{Total: total, ByAgent: make(map[string]int, len(agents))}
	for _, a := range agents {
		n, err := ledger.CountActive(ctx, key, a.ID)
		if err != nil {
			return SlotUsage{}, err
		}
		usage.ByAgent[a.ID] = n
	}
	return usage, nil
}

// BookSlot re-evaluates capacity and creates the appointment in one slot
// transaction, so concurrent bookings can never overfill the slot.
func (e *DefaultSchedulingEngine) BookSlot(ctx context.Context, req models.BookingRequest) (apt *models.Appointment, err error) {
	defer func() { metrics.BookingsTotal.WithLabelValues(metrics.BookingResult(err)).Inc() }()

	if err := validateBooking(req); err != nil {
		return nil, err
	}
	plan, err := e.planDay(ctx, req.ServiceType, req.OrganizationID, req.Date, req.AgentID)
	if err != nil {
		return nil, err
	}
	slot, ok := FindSlot(plan.slots, req.SlotStart)
	if !ok {
		return nil, fmt.Errorf("%w: no %s slot starts at %s on %s",
			models.ErrSlotNotFound, req.ServiceType, utils.FormatMinutes(req.SlotStart), req.Date)
	}
	if e.slotStarted(plan, req.Date, slot.Start) {
		return nil, fmt.Errorf("%w: slot %s on %s has already started",
			models.ErrSlotInPast, utils.FormatMinutes(slot.Start), req.Date)
	}

	key := models.SlotKey{OrganizationID: req.OrganizationID, Date: req.Date, SlotStart: slot.Start, SlotEnd: slot.End}
	now := e.now().UTC()
	candidate := &models.Appointment{
		ID:                uuid.New().String(),
		AppointmentNumber: NewAppointmentNumber(req.Date),
		ServiceType:       req.ServiceType,
		OrganizationID:    req.OrganizationID,
		CitizenID:         req.CitizenID,
		Date:              req.Date,
		SlotStart:         slot.Start,
		SlotEnd:           slot.End,
		Status:            models.StatusScheduled,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	counted := plan.pool
	if req.AgentID != "" {
		counted = []models.Agent{{ID: req.AgentID}}
	}
	err = e.Appointments.WithSlotTransaction(ctx, key, func(ctx context.Context, ledger appointmentRepo.SlotLedger) error {
		usage, err := slotUsage(ctx, ledger, key, counted)
		if err != nil {
			return err
		}
		capacity := plan.evaluate(usage, req.AgentID)
		if !capacity.Available {
			return fmt.Errorf("%w: %s %s at %s is full",
				models.ErrSlotConflict, req.OrganizationID, req.Date, utils.FormatMinutes(slot.Start))
		}
		switch {
		case req.AgentID != "":
			candidate.AgentID = req.AgentID
		case plan.config.AutoAssign:
			candidate.AgentID = capacity.CandidateAgentID
		default:
			candidate.AgentID = ""
		}
		return ledger.Create(ctx, candidate)
	})
	if err != nil {
		if errors.Is(err, models.ErrSlotConflict) {
			e.Logger.Info("booking rejected, slot full",
				zap.String("organizationId", req.OrganizationID),
				zap.String("date", req.Date),
				zap.Int("slotStart", slot.Start))
		}
		return nil, err
	}

	e.Logger.Info("appointment booked",
		zap.String("appointmentId", candidate.ID),
		zap.String("appointmentNumber", candidate.AppointmentNumber),
		zap.String("organizationId", candidate.OrganizationID),
		zap.String("date", candidate.Date),
		zap.Int("slotStart", candidate.SlotStart),
		zap.String("agentId", candidate.AgentID))

	e.scheduleReminder(ctx, *candidate, plan.location)
	return candidate, nil
}

// scheduleReminder never fails the booking; problems are logged.
func (e *DefaultSchedulingEngine) scheduleReminder(ctx context.Context, apt models.Appointment, loc *time.Location) {
	if e.Reminders == nil || e.ReminderLead <= 0 {
		return
	}
	start, err := utils.SlotInstant(apt.Date, apt.SlotStart, loc)
	if err != nil {
		return
	}
	fireAt := start.Add(-e.ReminderLead)
	if !fireAt.After(e.now()) {
		metrics.RemindersEnqueuedTotal.WithLabelValues("skipped").Inc()
		return
	}
	if err := e.Reminders.ScheduleReminder(ctx, apt, fireAt); err != nil {
		metrics.RemindersEnqueuedTotal.WithLabelValues("error").Inc()
		e.Logger.Warn("failed to schedule reminder",
			zap.String("appointmentId", apt.ID), zap.Error(err))
		return
	}
	metrics.RemindersEnqueuedTotal.WithLabelValues("ok").Inc()
}

// OptimizeSchedule assigns an agent to every pending unassigned appointment
// of the day, as the single writer for (organizationID, date).
func (e *DefaultSchedulingEngine) OptimizeSchedule(ctx context.Context, organizationID, date string) (*models.OptimizeResult, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organizationId is required", models.ErrInvalidRequest)
	}
	if _, err := utils.ParseDate(date, e.location()); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}

	result := &models.OptimizeResult{OrganizationID: organizationID, Date: date}
	err := e.Appointments.WithDayLock(ctx, organizationID, date, func(ctx context.Context, ledger appointmentRepo.DayLedger) error {
		day, err := ledger.ListDay(ctx, organizationID, date)
		if err != nil {
			return err
		}
		in := BalanceInput{
			Appointments: day,
			Pools:        map[string][]models.Agent{},
			MaxPerSlot:   map[string]int{},
		}
		for _, apt := range day {
			if !NeedsAgent(apt) {
				continue
			}
			if _, seen := in.Pools[apt.ServiceType]; seen {
				continue
			}
			pool, maxPerSlot, err := e.servicePool(ctx, organizationID, apt.ServiceType, date)
			if err != nil {
				return err
			}
			in.Pools[apt.ServiceType] = pool
			in.MaxPerSlot[apt.ServiceType] = maxPerSlot
		}

		plan := PlanAssignments(in)
		for _, a := range plan.Assignments {
			if err := ledger.UpdateAgent(ctx, a.Appointment, a.AgentID); err != nil {
				return err
			}
		}
		result.Assigned = len(plan.Assignments)
		result.Skipped = len(plan.Skipped)
		result.SkippedIDs = plan.Skipped
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OptimizerAssignedTotal.Add(float64(result.Assigned))
	metrics.OptimizerSkippedTotal.Add(float64(result.Skipped))
	e.Logger.Info("schedule optimized",
		zap.String("organizationId", organizationID),
		zap.String("date", date),
		zap.Int("assigned", result.Assigned),
		zap.Int("skipped", result.Skipped))
	if result.Skipped > 0 {
		e.Logger.Warn("appointments left unassigned, every eligible agent is full",
			zap.String("organizationId", organizationID),
			zap.String("date", date),
			zap.Strings("appointmentIds", result.SkippedIDs))
	}
	return result, nil
}

// servicePool loads the eligible agents of a service. A service that no
// longer exists yields an empty pool so its appointments are reported as skipped.
func (e *DefaultSchedulingEngine) servicePool(ctx context.Context, organizationID, serviceType, date string) ([]models.Agent, int, error) {
	cfg, err := e.Organizations.GetServiceConfig(ctx, organizationID, serviceType)
	if errors.Is(err, models.ErrServiceUnavailable) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	pool, err := e.Agents.ListEligible(ctx, organizationID, serviceType, date, "")
	if err != nil {
		return nil, 0, err
	}
	return pool, cfg.MaxConcurrentPerSlot, nil
}

// OptimizePendingDay optimizes every organization that has unassigned
// appointments on date. Organizations already being optimized are skipped.
func (e *DefaultSchedulingEngine) OptimizePendingDay(ctx context.Context, date string) ([]models.OptimizeResult, error) {
	orgs, err := e.Appointments.ListOrganizationsWithUnassigned(ctx, date)
	if err != nil {
		return nil, err
	}
	results := make([]models.OptimizeResult, 0, len(orgs))
	var errs []error
	for _, org := range orgs {
		res, err := e.OptimizeSchedule(ctx, org, date)
		switch {
		case errors.Is(err, models.ErrOptimizationInProgress):
			e.Logger.Info("optimization already running, skipping", zap.String("organizationId", org), zap.String("date", date))
		case err != nil:
			errs = append(errs, fmt.Errorf("optimize %s: %w", org, err))
		default:
			results = append(results, *res)
		}
	}
	return results, errors.Join(errs...)
}

// GetSchedulingStats aggregates the organization's appointments between two
// dates inclusive.
func (e *DefaultSchedulingEngine) GetSchedulingStats(ctx context.Context, organizationID, startDate, endDate string) (*models.StatsReport, error) {
	start, err := utils.ParseDate(startDate, e.location())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	end, err := utils.ParseDate(endDate, e.location())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: endDate %s is before startDate %s", models.ErrInvalidRequest, endDate, startDate)
	}
	appointments, err := e.Appointments.Query(ctx, organizationID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	report := AggregateStats(organizationID, startDate, endDate, appointments)
	return &report, nil
}

// UpdateAppointmentStatus applies one lifecycle transition.
func (e *DefaultSchedulingEngine) UpdateAppointmentStatus(ctx context.Context, id string, to models.AppointmentStatus) (*models.Appointment, error) {
	current, err := e.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(current.Status, to); err != nil {
		return nil, err
	}
	updated, err := e.Appointments.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		return nil, err
	}
	e.Logger.Info("appointment status changed",
		zap.String("appointmentId", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)))
	return updated, nil
}

// GetAppointment returns one appointment.
func (e *DefaultSchedulingEngine) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	return e.Appointments.GetByID(ctx, id)
}

// ListCitizenAppointments returns a citizen's appointments, newest first.
func (e *DefaultSchedulingEngine) ListCitizenAppointments(ctx context.Context, citizenID string) ([]models.Appointment, error) {
	if citizenID == "" {
		return nil, fmt.Errorf("%w: citizenId is required", models.ErrInvalidRequest)
	}
	return e.Appointments.ListByCitizen(ctx, citizenID)
}
