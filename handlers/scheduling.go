package handlers

import (
	"net/http"

	"civicdesk/middleware"
	"civicdesk/models"
	"civicdesk/services/scheduling"
	"civicdesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SchedulingHandler exposes the scheduling engine over HTTP.
type SchedulingHandler struct {
	Engine scheduling.SchedulingEngine
}

// FindAvailableSlots handles GET .../organizations/:orgID/services/:serviceType/slots.
func (h *SchedulingHandler) FindAvailableSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		badRequest(c, "query parameter 'date' (YYYY-MM-DD) is required")
		return
	}
	slots, err := h.Engine.FindAvailableSlots(c.Request.Context(), c.Param("serviceType"), c.Param("orgID"), date, c.Query("agentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "slots": slots})
}

// BookSlot handles POST /appointments. The citizen is taken from the token.
func (h *SchedulingHandler) BookSlot(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid booking request: "+err.Error())
		return
	}
	req.CitizenID = c.GetString(middleware.CtxSubject)

	apt, err := h.Engine.BookSlot(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("booking accepted", zap.String("appointmentId", apt.ID))
	c.JSON(http.StatusCreated, appointmentView(*apt))
}

// GetAppointment handles GET /appointments/:id.
func (h *SchedulingHandler) GetAppointment(c *gin.Context) {
	apt, ok := h.loadVisible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, appointmentView(*apt))
}

// ListMyAppointments handles GET /appointments/mine.
func (h *SchedulingHandler) ListMyAppointments(c *gin.Context) {
	list, err := h.Engine.ListCitizenAppointments(c.Request.Context(), c.GetString(middleware.CtxSubject))
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]gin.H, 0, len(list))
	for _, apt := range list {
		views = append(views, appointmentView(apt))
	}
	c.JSON(http.StatusOK, gin.H{"appointments": views})
}

// CancelAppointment handles POST /appointments/:id/cancel.
func (h *SchedulingHandler) CancelAppointment(c *gin.Context) {
	if _, ok := h.loadVisible(c); !ok {
		return
	}
	h.transition(c, c.Param("id"), models.StatusCancelled)
}

// UpdateStatus handles PATCH /appointments/:id/status.
func (h *SchedulingHandler) UpdateStatus(c *gin.Context) {
	var body struct {
		Status models.AppointmentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "body must be {\"status\": \"<STATUS>\"}")
		return
	}
	if _, ok := h.loadVisible(c); !ok {
		return
	}
	h.transition(c, c.Param("id"), body.Status)
}

func (h *SchedulingHandler) transition(c *gin.Context, id string, to models.AppointmentStatus) {
	apt, err := h.Engine.UpdateAppointmentStatus(c.Request.Context(), id, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointmentView(*apt))
}

// loadVisible fetches :id and enforces that citizens see only their own
// appointments and agents only their organization's.
func (h *SchedulingHandler) loadVisible(c *gin.Context) (*models.Appointment, bool) {
	apt, err := h.Engine.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	role := c.GetString(middleware.CtxRole)
	switch {
	case role == utils.RoleCitizen && apt.CitizenID != c.GetString(middleware.CtxSubject),
		role == utils.RoleAgent && apt.OrganizationID != c.GetString(middleware.CtxOrganizationID):
		// Reported as missing so ids cannot be probed.
		utils.JSONError(c, http.StatusNotFound, "appointment_not_found", "appointment not found", false)
		return nil, false
	}
	return apt, true
}

// OptimizeSchedule handles POST /admin/.../organizations/:orgID/optimize.
func (h *SchedulingHandler) OptimizeSchedule(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		badRequest(c, "query parameter 'date' (YYYY-MM-DD) is required")
		return
	}
	result, err := h.Engine.OptimizeSchedule(c.Request.Context(), c.Param("orgID"), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSchedulingStats handles GET /admin/.../organizations/:orgID/stats.
func (h *SchedulingHandler) GetSchedulingStats(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		badRequest(c, "query parameters 'start' and 'end' (YYYY-MM-DD) are required")
		return
	}
	report, err := h.Engine.GetSchedulingStats(c.Request.Context(), c.Param("orgID"), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// appointmentView adds wall-clock times to the stored appointment.
func appointmentView(apt models.Appointment) gin.H {
	return gin.H{
		"id":                apt.ID,
		"appointmentNumber": apt.AppointmentNumber,
		"serviceType":       apt.ServiceType,
		"organizationId":    apt.OrganizationID,
		"citizenId":         apt.CitizenID,
		"agentId":           apt.AgentID,
		"date":              apt.Date,
		"slotStart":         apt.SlotStart,
		"slotEnd":           apt.SlotEnd,
		"startTime":         utils.FormatMinutes(apt.SlotStart),
		"endTime":           utils.FormatMinutes(apt.SlotEnd),
		"status":            apt.Status,
		"notes":             apt.Notes,
		"createdAt":         apt.CreatedAt,
	}
}
