package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	agentRepo "civicdesk/database/repository/agent"
	organizationRepo "civicdesk/database/repository/organization"
	"civicdesk/models"
	"civicdesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler maintains organization configuration and the agent directory.
type AdminHandler struct {
	Organizations organizationRepo.OrganizationRepository
	Agents        agentRepo.AgentRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(orgs organizationRepo.OrganizationRepository, agents agentRepo.AgentRepository) *AdminHandler {
	return &AdminHandler{Organizations: orgs, Agents: agents}
}

// UpsertServiceConfigHandler handles PUT /api/admin/organizations/:orgID/services/:serviceType.
func (h *AdminHandler) UpsertServiceConfigHandler(c *gin.Context) {
	var cfg models.ServiceConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, "invalid service config: "+err.Error())
		return
	}
	cfg.OrganizationID = c.Param("orgID")
	cfg.ServiceType = c.Param("serviceType")
	if err := h.Organizations.SaveServiceConfig(c.Request.Context(), &cfg); err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("service config saved",
		zap.String("organizationId", cfg.OrganizationID), zap.String("serviceType", cfg.ServiceType))
	c.JSON(http.StatusOK, cfg)
}

type breakRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

type dayHoursRequest struct {
	Open   string         `json:"open" binding:"required"`
	Close  string         `json:"close" binding:"required"`
	Breaks []breakRequest `json:"breaks"`
}

// calendarRequest is the admin-facing calendar shape: weekday names and
// "HH:MM" clock times.
type calendarRequest struct {
	Timezone string                     `json:"timezone"`
	Weekly   map[string]dayHoursRequest `json:"weekly" binding:"required"`
	Holidays []string                   `json:"holidays"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (r calendarRequest) toCalendar(organizationID string) (*models.WorkingCalendar, error) {
	cal := &models.WorkingCalendar{
		OrganizationID: organizationID,
		Timezone:       r.Timezone,
		Weekly:         make(map[time.Weekday]models.DayHours, len(r.Weekly)),
		Holidays:       r.Holidays,
	}
	for name, day := range r.Weekly {
		wd, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		open, err := utils.ParseClock(day.Open)
		if err != nil {
			return nil, fmt.Errorf("%s open: %w", name, err)
		}
		closing, err := utils.ParseClock(day.Close)
		if err != nil {
			return nil, fmt.Errorf("%s close: %w", name, err)
		}
		hours := models.DayHours{Open: open, Close: closing}
		for _, b := range day.Breaks {
			start, err := utils.ParseClock(b.Start)
			if err != nil {
				return nil, fmt.Errorf("%s break: %w", name, err)
			}
			end, err := utils.ParseClock(b.End)
			if err != nil {
				return nil, fmt.Errorf("%s break: %w", name, err)
			}
			hours.Breaks = append(hours.Breaks, models.Interval{Start: start, End: end})
		}
		cal.Weekly[wd] = hours
	}
	return cal, nil
}

// UpsertCalendarHandler handles PUT /api/admin/organizations/:orgID/calendar.
func (h *AdminHandler) UpsertCalendarHandler(c *gin.Context) {
	var req calendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid calendar: "+err.Error())
		return
	}
	cal, err := req.toCalendar(c.Param("orgID"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.Organizations.SaveCalendar(c.Request.Context(), cal); err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("calendar saved", zap.String("organizationId", cal.OrganizationID), zap.Int("openDays", len(cal.Weekly)))
	c.JSON(http.StatusOK, cal)
}

// UpsertAgentHandler handles PUT /api/admin/organizations/:orgID/agents/:agentID.
func (h *AdminHandler) UpsertAgentHandler(c *gin.Context) {
	var agent models.Agent
	if err := c.ShouldBindJSON(&agent); err != nil {
		badRequest(c, "invalid agent: "+err.Error())
		return
	}
	agent.ID = c.Param("agentID")
	agent.OrganizationID = c.Param("orgID")
	if err := h.Agents.SaveAgent(c.Request.Context(), &agent); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}
