// Package main provides a CLI tool for running a single report sweep, or for
// building the report of one specific assignment. It is the cron-friendly
// alternative to the long-running worker daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"talentapp/internal/config"
	"talentapp/internal/database"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	"talentapp/internal/worker"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	ctx := context.Background()
	// Define command line flags
	var (
		assignment = flag.Int("assignment", 0, "Build the report for this assignment ID only (optional)")
		batch      = flag.Int("batch", 0, "Override the sweep batch size (optional)")
		help       = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	if *help {
		printUsage()
		return
	}

	if *assignment < 0 {
		fmt.Fprintln(os.Stderr, "Error: --assignment must be a positive ID")
		os.Exit(1)
	}
	if *batch < 0 {
		fmt.Fprintln(os.Stderr, "Error: --batch must be positive")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *batch > 0 {
		cfg.Worker.BatchSize = *batch
	}

	// Setup observability (tracing/metrics/logging)
	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "talentapp-cli-worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if sdkTP, ok := tp.(*sdktrace.TracerProvider); ok {
			if err := sdkTP.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(context.TODO()); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	logger.Info(ctx, "Starting report CLI worker", map[string]interface{}{
		"assignment": *assignment,
		"batch_size": cfg.Worker.SweepBatchSize(),
	})

	// Initialize database manager with logger
	dbManager := database.NewManager(logger)

	// Initialize database connection without running migrations; the server
	// and the adm CLI own the schema
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{"db_url": cfg.Database.URL})
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error()})
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

	// Create context with timeout
	ctx, cancel := context.WithTimeout(ctx, config.CLIWorkerTimeout)
	defer cancel()

	if *assignment > 0 {
		buildOne(ctx, reportService, *assignment)
		return
	}

	runSweep(ctx, assignmentService, reportService, cfg, logger)
}

// buildOne builds the report for a single assignment. When a report already
// exists it is replaced, so this doubles as a rebuild after library or
// benchmark changes.
func buildOne(ctx context.Context, reportService services.ReportServiceInterface, assignmentID int) {
	fmt.Printf("=== CLI Worker Configuration ===\n")
	fmt.Printf("Mode: single assignment\n")
	fmt.Printf("Assignment: %d\n", assignmentID)
	fmt.Printf("================================\n\n")

	fmt.Printf("Building report...\n")
	startTime := time.Now()

	report, err := reportService.BuildReport(ctx, assignmentID)

	duration := time.Since(startTime)

	if err != nil {
		fmt.Printf("\nReport build failed after %v\n", duration)
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nReport build completed in %v\n", duration)
	fmt.Printf("Result: report %d (%s) for assignment %d, user %d\n",
		report.ID, report.Kind, report.AssignmentID, report.UserID)
}

// runSweep performs one backfill sweep over completed assignments that have
// no report yet, then exits with the run's status.
func runSweep(ctx context.Context, assignments services.AssignmentServiceInterface, reports services.ReportServiceInterface, cfg *config.Config, logger *observability.Logger) {
	fmt.Printf("=== CLI Worker Configuration ===\n")
	fmt.Printf("Mode: sweep\n")
	fmt.Printf("Batch size: %d\n", cfg.Worker.SweepBatchSize())
	fmt.Printf("================================\n\n")

	workerInstance := worker.NewWorker(assignments, reports, "cli", cfg, logger)

	fmt.Printf("Starting report sweep...\n")
	startTime := time.Now()

	record := workerInstance.RunOnce(ctx)

	duration := time.Since(startTime)

	if record.Status != "Success" {
		fmt.Printf("\nReport sweep failed after %v\n", duration)
		fmt.Printf("Details: %s\n", record.Details)
		os.Exit(1)
	}

	fmt.Printf("\nReport sweep completed in %v\n", duration)
	fmt.Printf("Result: %s\n", record.Details)
}

func printUsage() {
	fmt.Printf("Usage: cli-worker [flags]\n")
	fmt.Printf("Flags:\n")
	fmt.Printf("  -assignment int\tBuild the report for this assignment only; replaces an existing report\n")
	fmt.Printf("  -batch int\tOverride the sweep batch size\n")
	fmt.Printf("  -help\tShow this help message\n\n")

	fmt.Printf("Without flags a single sweep runs: every completed assignment that has\n")
	fmt.Printf("no report yet gets one, up to the configured batch size.\n")
}
