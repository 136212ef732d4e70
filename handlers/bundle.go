package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Scheduling endpoints
	FindAvailableSlotsHandler gin.HandlerFunc
	BookSlotHandler           gin.HandlerFunc
	GetAppointmentHandler     gin.HandlerFunc
	ListMyAppointmentsHandler gin.HandlerFunc
	CancelAppointmentHandler  gin.HandlerFunc
	UpdateStatusHandler       gin.HandlerFunc

	// Back-office endpoints
	OptimizeScheduleHandler    gin.HandlerFunc
	SchedulingStatsHandler     gin.HandlerFunc
	UpsertServiceConfigHandler gin.HandlerFunc
	UpsertCalendarHandler      gin.HandlerFunc
	UpsertAgentHandler         gin.HandlerFunc
}

// NewHandlerBundle wires the scheduling and admin handlers into a bundle.
func NewHandlerBundle(sh *SchedulingHandler, ah *AdminHandler) *HandlerBundle {
	return &HandlerBundle{
		FindAvailableSlotsHandler: sh.FindAvailableSlots,
		BookSlotHandler:           sh.BookSlot,
		GetAppointmentHandler:     sh.GetAppointment,
		ListMyAppointmentsHandler: sh.ListMyAppointments,
		CancelAppointmentHandler:  sh.CancelAppointment,
		UpdateStatusHandler:       sh.UpdateStatus,

		OptimizeScheduleHandler:    sh.OptimizeSchedule,
		SchedulingStatsHandler:     sh.GetSchedulingStats,
		UpsertServiceConfigHandler: ah.UpsertServiceConfigHandler,
		UpsertCalendarHandler:      ah.UpsertCalendarHandler,
		UpsertAgentHandler:         ah.UpsertAgentHandler,
	}
}
