package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	memoryRepo "civicdesk/database/repository/memory"
	"civicdesk/handlers"
	"civicdesk/models"
	"civicdesk/seed"
	"civicdesk/services/scheduling"
	"civicdesk/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const demoDate = "2025-03-10" // a Monday

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *memoryRepo.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memoryRepo.NewStore()
	require.NoError(t, seed.Demo(context.Background(), store, store))

	engine := scheduling.NewSchedulingEngine(store, store, store, zap.NewNop())
	engine.Now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

	r := gin.New()
	bundle := handlers.NewHandlerBundle(&handlers.SchedulingHandler{Engine: engine}, handlers.NewAdminHandler(store, store))
	RegisterRoutes(r, bundle)
	return &testServer{router: r, store: store}
}

func bearer(t *testing.T, subject, role, org string) string {
	t.Helper()
	tok, err := utils.GenerateToken(subject, role, org, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func slotsPath(date string) string {
	return fmt.Sprintf("/api/scheduling/organizations/%s/services/%s/slots?date=%s", seed.DemoOrganizationID, seed.DemoServiceType, date)
}

func bookingBody(start int) gin.H {
	return gin.H{
		"serviceType":    seed.DemoServiceType,
		"organizationId": seed.DemoOrganizationID,
		"date":           demoDate,
		"slotStart":      start,
	}
}

func TestFindSlotsIsPublic(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, slotsPath(demoDate), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Slots []models.TimeSlot `json:"slots"`
	}](t, w)
	require.NotEmpty(t, resp.Slots)
	assert.Equal(t, 8*60, resp.Slots[0].Start)
	assert.Equal(t, "08:00", resp.Slots[0].StartTime)
	assert.Equal(t, "08:35", resp.Slots[0].EndTime)
	assert.Equal(t, 3, resp.Slots[0].RemainingCapacity)
	assert.Equal(t, "agent-a", resp.Slots[0].CandidateAgentID)
}

func TestFindSlotsErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/scheduling/organizations/mairie-demo/services/CNI/slots", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 2025-03-09 is a Sunday.
	w = s.do(http.MethodGet, slotsPath("2025-03-09"), "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "organization_closed", decode[utils.ErrorResponse](t, w).Error)

	w = s.do(http.MethodGet, "/api/scheduling/organizations/mairie-demo/services/PASSPORT/slots?date="+demoDate, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "service_unavailable", decode[utils.ErrorResponse](t, w).Error)

	w = s.do(http.MethodGet, "/api/scheduling/organizations/nowhere/services/CNI/slots?date="+demoDate, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingFillsSlotThenConflicts(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 6; i++ {
		tok := bearer(t, fmt.Sprintf("citizen-%d", i), utils.RoleCitizen, "")
		w := s.do(http.MethodPost, "/api/scheduling/appointments", tok, bookingBody(8*60))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		apt := decode[map[string]any](t, w)
		assert.Equal(t, fmt.Sprintf("citizen-%d", i), apt["citizenId"])
		assert.Equal(t, "08:00", apt["startTime"])
		assert.Equal(t, string(models.StatusScheduled), apt["status"])
	}

	w := s.do(http.MethodPost, "/api/scheduling/appointments", bearer(t, "citizen-7", utils.RoleCitizen, ""), bookingBody(8*60))
	require.Equal(t, http.StatusConflict, w.Code)
	errResp := decode[utils.ErrorResponse](t, w)
	assert.Equal(t, "slot_conflict", errResp.Error)
	assert.True(t, errResp.Retryable)

	w = s.do(http.MethodGet, slotsPath(demoDate), "", nil)
	resp := decode[struct {
		Slots []models.TimeSlot `json:"slots"`
	}](t, w)
	assert.NotEqual(t, 8*60, resp.Slots[0].Start, "a full slot is no longer offered")
}

func TestBookingRequiresCitizenToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/scheduling/appointments", "", bookingBody(8*60))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/scheduling/appointments", bearer(t, "agent-a", utils.RoleAgent, seed.DemoOrganizationID), bookingBody(8*60))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/scheduling/appointments", bearer(t, "c1", utils.RoleCitizen, ""), gin.H{"date": demoDate})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/scheduling/appointments", bearer(t, "c1", utils.RoleCitizen, ""), bookingBody(8*60+10))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "slot_not_found", decode[utils.ErrorResponse](t, w).Error)
}

func bookOne(t *testing.T, s *testServer, citizen string) string {
	t.Helper()
	w := s.do(http.MethodPost, "/api/scheduling/appointments", bearer(t, citizen, utils.RoleCitizen, ""), bookingBody(9*60+10))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](t, w)["id"].(string)
}

func TestAppointmentVisibility(t *testing.T) {
	s := newTestServer(t)
	id := bookOne(t, s, "citizen-1")

	w := s.do(http.MethodGet, "/api/scheduling/appointments/"+id, bearer(t, "citizen-1", utils.RoleCitizen, ""), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/scheduling/appointments/"+id, bearer(t, "citizen-2", utils.RoleCitizen, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/scheduling/appointments/"+id, bearer(t, "agent-x", utils.RoleAgent, "other-org"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/scheduling/appointments/missing", bearer(t, "admin", utils.RoleAdmin, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "appointment_not_found", decode[utils.ErrorResponse](t, w).Error)

	w = s.do(http.MethodGet, "/api/scheduling/appointments/mine", bearer(t, "citizen-1", utils.RoleCitizen, ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[struct {
		Appointments []map[string]any `json:"appointments"`
	}](t, w)
	require.Len(t, mine.Appointments, 1)
	assert.Equal(t, id, mine.Appointments[0]["id"])
}

func TestStatusTransitions(t *testing.T) {
	s := newTestServer(t)
	id := bookOne(t, s, "citizen-1")
	agent := bearer(t, "agent-a", utils.RoleAgent, seed.DemoOrganizationID)

	w := s.do(http.MethodPatch, "/api/scheduling/appointments/"+id+"/status", bearer(t, "citizen-1", utils.RoleCitizen, ""), gin.H{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/api/scheduling/appointments/"+id+"/status", agent, gin.H{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CONFIRMED", decode[map[string]any](t, w)["status"])

	w = s.do(http.MethodPatch, "/api/scheduling/appointments/"+id+"/status", agent, gin.H{"status": "COMPLETED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decode[utils.ErrorResponse](t, w).Error)

	w = s.do(http.MethodPost, "/api/scheduling/appointments/"+id+"/cancel", bearer(t, "citizen-1", utils.RoleCitizen, ""), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CANCELLED", decode[map[string]any](t, w)["status"])

	w = s.do(http.MethodPost, "/api/scheduling/appointments/"+id+"/cancel", bearer(t, "citizen-1", utils.RoleCitizen, ""), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOptimizeAndStats(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	cfg, err := s.store.GetServiceConfig(ctx, seed.DemoOrganizationID, seed.DemoServiceType)
	require.NoError(t, err)
	cfg.AutoAssign = false
	require.NoError(t, s.store.SaveServiceConfig(ctx, cfg))
	bookOne(t, s, "citizen-1")
	bookOne(t, s, "citizen-2")

	admin := bearer(t, "root", utils.RoleAdmin, "")
	optimizePath := "/api/admin/scheduling/organizations/" + seed.DemoOrganizationID + "/optimize?date=" + demoDate

	w := s.do(http.MethodPost, optimizePath, bearer(t, "agent-a", utils.RoleAgent, seed.DemoOrganizationID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, optimizePath, admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[models.OptimizeResult](t, w)
	assert.Equal(t, 2, result.Assigned)
	assert.Zero(t, result.Skipped)

	statsPath := "/api/admin/scheduling/organizations/" + seed.DemoOrganizationID + "/stats?start=2025-03-01&end=2025-03-31"
	w = s.do(http.MethodGet, statsPath, bearer(t, "agent-a", utils.RoleAgent, seed.DemoOrganizationID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[models.StatsReport](t, w)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.ByAgent["agent-a"])
	assert.Equal(t, 1, report.ByAgent["agent-b"])

	w = s.do(http.MethodGet, statsPath, bearer(t, "agent-x", utils.RoleAgent, "other-org"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/admin/scheduling/organizations/"+seed.DemoOrganizationID+"/stats?start=2025-03-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminDirectoryMaintenance(t *testing.T) {
	s := newTestServer(t)
	admin := bearer(t, "root", utils.RoleAdmin, "")
	base := "/api/admin/organizations/mairie-02"

	w := s.do(http.MethodPut, base+"/calendar", admin, gin.H{
		"weekly": gin.H{
			"tuesday": gin.H{"open": "09:00", "close": "12:00", "breaks": []gin.H{{"start": "10:00", "end": "10:30"}}},
		},
		"holidays": []string{"2025-03-18"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, base+"/services/PASSPORT", admin, gin.H{
		"durationMinutes": 20, "bufferMinutes": 0, "maxConcurrentPerSlot": 1, "autoAssign": true, "isActive": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, base+"/agents/guichet-1", admin, gin.H{
		"name": "Guichet 1", "isActive": true, "eligibleServiceTypes": []string{"PASSPORT"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/scheduling/organizations/mairie-02/services/PASSPORT/slots?date=2025-03-11", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Slots []models.TimeSlot `json:"slots"`
	}](t, w)
	starts := make([]string, 0, len(resp.Slots))
	for _, slot := range resp.Slots {
		starts = append(starts, slot.StartTime)
	}
	assert.Equal(t, []string{"09:00", "09:20", "09:40", "10:30", "10:50", "11:10", "11:30"}, starts)

	w = s.do(http.MethodGet, "/api/scheduling/organizations/mairie-02/services/PASSPORT/slots?date=2025-03-18", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminRejectsInvalidConfig(t *testing.T) {
	s := newTestServer(t)
	admin := bearer(t, "root", utils.RoleAdmin, "")

	w := s.do(http.MethodPut, "/api/admin/organizations/mairie-02/services/PASSPORT", admin, gin.H{
		"durationMinutes": 0, "maxConcurrentPerSlot": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_config", decode[utils.ErrorResponse](t, w).Error)

	w = s.do(http.MethodPut, "/api/admin/organizations/mairie-02/calendar", admin, gin.H{
		"weekly": gin.H{"monday": gin.H{"open": "12:00", "close": "09:00"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/admin/organizations/mairie-02/calendar", admin, gin.H{
		"weekly": gin.H{"someday": gin.H{"open": "09:00", "close": "12:00"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/admin/organizations/mairie-02/calendar", admin, gin.H{
		"timezone": "Mars/Olympus_Mons",
		"weekly":   gin.H{"monday": gin.H{"open": "09:00", "close": "12:00"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_config", decode[utils.ErrorResponse](t, w).Error)

	w = s.do(http.MethodPut, "/api/admin/organizations/mairie-02/calendar", bearer(t, "agent-a", utils.RoleAgent, "mairie-02"), gin.H{
		"weekly": gin.H{"monday": gin.H{"open": "09:00", "close": "12:00"}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOpsRoutes(t *testing.T) {
	s := newTestServer(t)
	utils.CheckHealth(context.Background(), nil, nil)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.do(http.MethodGet, slotsPath(demoDate), "", nil)
	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scheduling_slot_query_duration_seconds")
}
