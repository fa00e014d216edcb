package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/config"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/database"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/handlers"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/middleware"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/repositories"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/scheduler"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/services"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/pkg/logger"
	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.Logger.Level, cfg.Logger.Format)

	// Connect to database and apply migrations
	db, err := database.NewSQLiteDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	// Initialize repositories
	nodeRepo := repositories.NewNodeRepository(db)
	snapshotRepo := repositories.NewSnapshotRepository(db)
	historyRepo := repositories.NewHistoryRepository(db)

	// Initialize services
	directory := services.NewDirectoryClient(
		cfg.Refresh.SeedIPs,
		cfg.Refresh.RPCPort,
		cfg.Refresh.RPCTimeout,
		appLogger,
	)
	prober := services.NewLatencyProber(cfg.Refresh.ProbeTimeout, appLogger)
	geo := services.NewGeoService(cfg.Refresh.GeoAPIURL, appLogger)
	credits := services.NewCreditsService(cfg.Refresh.CreditsAPIURL, appLogger)

	refreshMonitor := services.NewRefreshMonitor(
		directory, prober, geo,
		nodeRepo, snapshotRepo, historyRepo,
		appLogger,
	)

	// Initialize scheduler
	cronScheduler := scheduler.NewCronScheduler(refreshMonitor, cfg.Refresh.Interval, appLogger)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	// Initialize HTTP handlers
	podsHandler := handlers.NewPodsHandler(nodeRepo, snapshotRepo, historyRepo, credits, appLogger)
	healthHandler := handlers.NewHealthHandler(db, appLogger, version)

	// Setup Gin router
	if cfg.Logger.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(appLogger))
	router.Use(middleware.Recovery(appLogger))
	router.Use(middleware.NewRateLimiter(120, time.Minute, appLogger).Middleware())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// API routes
	router.GET("/pods", podsHandler.GetPods)
	router.GET("/node/:id", podsHandler.GetNode)
	router.GET("/node/:id/history", podsHandler.GetNodeHistory)
	router.GET("/history", podsHandler.GetFleetHistory)
	router.GET("/credits", podsHandler.GetCredits)
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Start server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		appLogger.WithField("addr", serverAddr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
