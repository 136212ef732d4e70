package handlers

import (
	"errors"
	"net/http"

	"civicdesk/models"
	"civicdesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{models.ErrSlotConflict, http.StatusConflict, "slot_conflict"},
	{models.ErrTransient, http.StatusServiceUnavailable, "temporarily_unavailable"},
	{models.ErrOptimizationInProgress, http.StatusConflict, "optimization_in_progress"},
	{models.ErrServiceUnavailable, http.StatusNotFound, "service_unavailable"},
	{models.ErrScheduleNotConfigured, http.StatusNotFound, "schedule_not_configured"},
	{models.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
	{models.ErrOrganizationClosed, http.StatusUnprocessableEntity, "organization_closed"},
	{models.ErrNoAgentsAvailable, http.StatusConflict, "no_agents_available"},
	{models.ErrSlotNotFound, http.StatusBadRequest, "slot_not_found"},
	{models.ErrSlotInPast, http.StatusUnprocessableEntity, "slot_in_past"},
	{models.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{models.ErrInvalidConfig, http.StatusBadRequest, "invalid_config"},
	{models.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
}

// respondError maps a service error onto the JSON error contract.
func respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			utils.JSONError(c, m.status, m.code, err.Error(), models.IsRetryable(err))
			return
		}
	}
	getLogger(c).Error("unhandled service error", zap.Error(err), zap.String("path", c.FullPath()))
	c.AbortWithStatusJSON(http.StatusInternalServerError, utils.ErrorResponse{
		Error:   "internal_error",
		Message: "An unexpected error occurred. Please try again later.",
	})
}

func badRequest(c *gin.Context, message string) {
	utils.JSONError(c, http.StatusBadRequest, "invalid_request", message, false)
}
