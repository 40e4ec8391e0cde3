// Package main provides the entry point for the report backfill worker. It
// runs the sweep loop alongside a small HTTP surface for health checks and
// operational control (status, pause/resume, manual trigger).
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"talentapp/internal/config"
	"talentapp/internal/database"
	"talentapp/internal/handlers"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	"talentapp/internal/version"
	"talentapp/internal/worker"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// fatalIfErr logs the error with context and panics with a consistent message
func fatalIfErr(ctx context.Context, logger *observability.Logger, msg string, err error, fields map[string]interface{}) {
	logger.Error(ctx, msg, err, fields)
	panic(msg + ": " + err.Error())
}

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Setup observability (tracing/metrics/logging)
	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "talentapp-worker")
	if err != nil {
		panic("Failed to initialize observability: " + err.Error())
	}
	defer func() {
		if sdkTP, ok := tp.(*sdktrace.TracerProvider); ok {
			if err := sdkTP.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
	}()

	logger.Info(ctx, "Starting report worker service", map[string]interface{}{
		"port":       cfg.Worker.HealthPort(),
		"interval":   cfg.Worker.SweepInterval().String(),
		"batch_size": cfg.Worker.SweepBatchSize(),
		"logLevel":   cfg.Server.LogLevel,
		"debug":      cfg.Server.Debug,
	})

	// Initialize database connection without running migrations (migrations
	// are managed by the server and the adm CLI)
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		fatalIfErr(ctx, logger, "Failed to initialize database", err, map[string]interface{}{"db_url": cfg.Database.URL})
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database", map[string]interface{}{"error": err.Error()})
		}
	}()

	// Build the service graph the report builder depends on
	userService := services.NewUserService(db, logger)
	clientService := services.NewClientService(db, logger)
	assessmentService := services.NewAssessmentService(db, logger)
	benchmarkService := services.NewBenchmarkService(db, logger)
	libraryService := services.NewFeedbackLibraryService(db, logger)
	assignmentService := services.NewAssignmentService(db, logger)
	scoreService := services.NewScoreService(db, logger)
	answerService := services.NewAnswerService(db, logger)
	qualitativeService := services.NewQualitativeFeedbackService(assignmentService, answerService, logger)
	feedbackService := services.NewFeedbackAssignmentService(libraryService, logger)
	exportService := services.NewExportNotifierService(cfg, logger)
	emailService := services.CreateEmailService(cfg, logger)
	reportService := services.NewReportService(db,
		assignmentService, assessmentService, scoreService, feedbackService,
		qualitativeService, benchmarkService, userService, clientService,
		exportService, emailService, cfg, logger)

	workerInstance := worker.NewWorker(assignmentService, reportService, "default", cfg, logger)
	go workerInstance.Start(ctx)

	router := newWorkerRouter(cfg, db, workerInstance, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Worker.HealthPort(),
		Handler: router,
	}

	// Start the health server in a goroutine
	go func() {
		logger.Info(ctx, "Worker health server starting", map[string]interface{}{"port": cfg.Worker.HealthPort()})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatalIfErr(ctx, logger, "Failed to start worker health server", err, map[string]interface{}{"port": cfg.Worker.HealthPort()})
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Worker shutting down", map[string]interface{}{"service": "worker"})

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, config.WorkerShutdownTimeout)
	defer shutdownCancel()

	// Stop the sweep loop first so no build is in flight when the DB closes
	if err := workerInstance.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Warning: failed to shutdown worker", map[string]interface{}{"error": err.Error(), "service": "worker"})
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatalIfErr(ctx, logger, "Worker health server forced to shutdown", err, map[string]interface{}{"service": "worker"})
	}

	logger.Info(ctx, "Worker exited", map[string]interface{}{"service": "worker"})
}

// newWorkerRouter builds the worker's operational HTTP surface: health and
// version probes plus sweep control endpoints.
func newWorkerRouter(cfg *config.Config, db *sql.DB, w *worker.Worker, logger *observability.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// HTTP request logging through the observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		if statusCode >= 500 {
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		} else if statusCode >= 400 {
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		} else {
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	router.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "worker"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "worker"})
	})

	// OpenTelemetry middleware for HTTP tracing with automatic error attributes
	router.Use(observability.GinMiddlewareWithErrorHandling("talentapp-worker"))

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "worker",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  w.GetStatus(),
				"history": w.GetHistory(),
			})
		})

		v1.POST("/trigger", func(c *gin.Context) {
			w.TriggerManualRun()
			c.JSON(http.StatusAccepted, gin.H{"triggered": true})
		})

		v1.POST("/pause", func(c *gin.Context) {
			w.Pause(c.Request.Context())
			c.JSON(http.StatusOK, w.GetStatus())
		})

		v1.POST("/resume", func(c *gin.Context) {
			w.Resume(c.Request.Context())
			c.JSON(http.StatusOK, w.GetStatus())
		})
	}

	// Automatic route listing at root path
	routeListing := handlers.NewRouteListingHandler("Talent Worker")
	routeListing.CollectRoutes(router)

	router.GET("/", func(c *gin.Context) {
		if c.Query("json") == "true" {
			routeListing.GetRouteListingJSON(c)
		} else {
			routeListing.GetRouteListingPage(c)
		}
	})

	return router
}
