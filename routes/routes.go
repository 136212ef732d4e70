package routes

import (
	"net/http"
	"time"

	"civicdesk/handlers"
	"civicdesk/metrics"
	"civicdesk/middleware"
	"civicdesk/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterSchedulingRoutes registers citizen and counter-facing scheduling endpoints.
func RegisterSchedulingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/scheduling")
	{
		// Slot browsing works with or without a token.
		api.GET("/organizations/:orgID/services/:serviceType/slots",
			middleware.JWTAuthMiddleware(true), hb.FindAvailableSlotsHandler)

		protected := api.Group("/appointments")
		protected.Use(middleware.JWTAuthMiddleware(false))
		protected.POST("", middleware.RequireRoles(utils.RoleCitizen), hb.BookSlotHandler)
		protected.GET("/mine", middleware.RequireRoles(utils.RoleCitizen), hb.ListMyAppointmentsHandler)
		protected.GET("/:id", hb.GetAppointmentHandler)
		protected.POST("/:id/cancel", middleware.RequireRoles(utils.RoleCitizen, utils.RoleAgent, utils.RoleAdmin), hb.CancelAppointmentHandler)
		protected.PATCH("/:id/status", middleware.RequireRoles(utils.RoleAgent, utils.RoleAdmin), hb.UpdateStatusHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for back-office operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(false))
	{
		sched := adminGroup.Group("/scheduling/organizations/:orgID")
		sched.POST("/optimize", middleware.RequireRoles(utils.RoleAdmin), hb.OptimizeScheduleHandler)
		sched.GET("/stats", middleware.RequireRoles(utils.RoleAgent, utils.RoleAdmin), middleware.RequireOrganizationScope(), hb.SchedulingStatsHandler)

		orgs := adminGroup.Group("/organizations/:orgID")
		orgs.Use(middleware.RequireRoles(utils.RoleAdmin))
		orgs.PUT("/services/:serviceType", hb.UpsertServiceConfigHandler)
		orgs.PUT("/calendar", hb.UpsertCalendarHandler)
		orgs.PUT("/agents/:agentID", hb.UpsertAgentHandler)
	}
}

// RegisterOpsRoutes registers the health-check and metrics endpoints.
func RegisterOpsRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "message": "civicdesk scheduling"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterSchedulingRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	RegisterOpsRoutes(r)
}
