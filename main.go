package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"civicdesk/config"
	"civicdesk/cron"
	"civicdesk/database"
	agentRepo "civicdesk/database/repository/agent"
	appointmentRepo "civicdesk/database/repository/appointment"
	memoryRepo "civicdesk/database/repository/memory"
	organizationRepo "civicdesk/database/repository/organization"
	"civicdesk/handlers"
	"civicdesk/middleware"
	"civicdesk/routes"
	"civicdesk/seed"
	"civicdesk/services/notification"
	"civicdesk/services/scheduling"
	"civicdesk/services/tasks"
	"civicdesk/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
)

type storage struct {
	orgs         organizationRepo.OrganizationRepository
	agents       agentRepo.AgentRepository
	appointments appointmentRepo.AppointmentRepository
	mongoClient  *mongo.Client
	redisClients []*redis.Client
}

func openStorage(ctx context.Context) storage {
	logger := utils.GetLogger()
	if config.UseMemoryStore() {
		logger.Warn("main: using in-memory storage; data is lost on restart")
		store := memoryRepo.NewStore()
		return storage{orgs: store, agents: store, appointments: store}
	}

	database.InitDB()
	db := database.DB()
	orgs := organizationRepo.NewMongoOrganizationRepo(db)
	agents := agentRepo.NewMongoAgentRepo(db)
	appointments := appointmentRepo.NewMongoAppointmentRepo(db, logger)

	if err := orgs.EnsureIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: organization indexes: %v", err)
	}
	if err := agents.EnsureIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: agent indexes: %v", err)
	}
	if err := appointments.EnsureIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: appointment indexes: %v", err)
	}

	cache := utils.GetCacheClient()
	ttl := time.Duration(config.AppConfig.ConfigCacheTTLSeconds) * time.Second
	return storage{
		orgs:         organizationRepo.NewCachedRepo(orgs, cache, ttl),
		agents:       agents,
		appointments: appointments,
		mongoClient:  database.MongoClient,
		redisClients: []*redis.Client{cache},
	}
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store := openStorage(ctx)
	loc := utils.LoadLocation(config.AppConfig.Timezone)

	engine := scheduling.NewSchedulingEngine(store.orgs, store.agents, store.appointments, logger)
	engine.Location = loc
	engine.ReminderLead = time.Duration(config.AppConfig.ReminderLeadMinutes) * time.Minute
	engine.RejectPastSlots = config.AppConfig.RejectPastSlots

	// Background jobs need Redis, which memory mode runs without.
	var (
		worker    *asynq.Server
		scheduler *asynq.Scheduler
		client    *asynq.Client
	)
	if !config.UseMemoryStore() {
		client = asynq.NewClient(utils.QueueRedisOpt())
		engine.Reminders = &tasks.AsynqReminderScheduler{Client: client}
		worker = cron.InitWorker(engine, notification.NewLogNotifier(logger), loc)

		var err error
		scheduler, err = cron.InitOptimizeScheduler(config.AppConfig.OptimizeCron, loc)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
	}

	if config.AppConfig.SeedDemoData {
		if err := seed.Demo(ctx, store.orgs, store.agents); err != nil {
			logger.Sugar().Fatalf("main: failed to seed demo data: %v", err)
		}
		logger.Sugar().Infof("main: demo organization %q seeded", seed.DemoOrganizationID)
	}

	utils.StartHealthMonitor(ctx, store.redisClients, store.mongoClient)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware())

	schedulingHandler := &handlers.SchedulingHandler{Engine: engine}
	adminHandler := handlers.NewAdminHandler(store.orgs, store.agents)
	routes.RegisterRoutes(router, handlers.NewHandlerBundle(schedulingHandler, adminHandler))

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if worker != nil {
		worker.Shutdown()
	}
	if client != nil {
		_ = client.Close()
	}
	if database.MongoClient != nil {
		_ = database.MongoClient.Disconnect(shutdownCtx)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
