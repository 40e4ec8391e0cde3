// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"talentapp/internal/config"
	"talentapp/internal/database"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	contextutils "talentapp/internal/utils"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetClientService() (services.ClientServiceInterface, error)
	GetAssessmentService() (services.AssessmentServiceInterface, error)
	GetBenchmarkService() (services.BenchmarkServiceInterface, error)
	GetFeedbackLibraryService() (services.FeedbackLibraryServiceInterface, error)
	GetAssignmentService() (services.AssignmentServiceInterface, error)
	GetScoreService() (services.ScoreServiceInterface, error)
	GetAnswerService() (services.AnswerServiceInterface, error)
	GetSurveyService() (services.SurveyServiceInterface, error)
	GetQualitativeFeedbackService() (services.QualitativeFeedbackServiceInterface, error)
	GetReportService() (services.ReportServiceInterface, error)
	GetImportService() (services.ImportServiceInterface, error)
	GetEmailService() (services.EmailServiceInterface, error)
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	EnsureAdminUser(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	sc.initializeServices(ctx)

	if err := sc.startupServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}

	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user directory service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, "user")
}

// GetClientService returns the client service
func (sc *ServiceContainer) GetClientService() (services.ClientServiceInterface, error) {
	return GetServiceAs[services.ClientServiceInterface](sc, "client")
}

// GetAssessmentService returns the assessment service
func (sc *ServiceContainer) GetAssessmentService() (services.AssessmentServiceInterface, error) {
	return GetServiceAs[services.AssessmentServiceInterface](sc, "assessment")
}

// GetBenchmarkService returns the benchmark service
func (sc *ServiceContainer) GetBenchmarkService() (services.BenchmarkServiceInterface, error) {
	return GetServiceAs[services.BenchmarkServiceInterface](sc, "benchmark")
}

// GetFeedbackLibraryService returns the feedback library service
func (sc *ServiceContainer) GetFeedbackLibraryService() (services.FeedbackLibraryServiceInterface, error) {
	return GetServiceAs[services.FeedbackLibraryServiceInterface](sc, "feedback_library")
}

// GetAssignmentService returns the assignment service
func (sc *ServiceContainer) GetAssignmentService() (services.AssignmentServiceInterface, error) {
	return GetServiceAs[services.AssignmentServiceInterface](sc, "assignment")
}

// GetScoreService returns the dimension score service
func (sc *ServiceContainer) GetScoreService() (services.ScoreServiceInterface, error) {
	return GetServiceAs[services.ScoreServiceInterface](sc, "score")
}

// GetAnswerService returns the free text answer service
func (sc *ServiceContainer) GetAnswerService() (services.AnswerServiceInterface, error) {
	return GetServiceAs[services.AnswerServiceInterface](sc, "answer")
}

// GetSurveyService returns the survey aggregation service
func (sc *ServiceContainer) GetSurveyService() (services.SurveyServiceInterface, error) {
	return GetServiceAs[services.SurveyServiceInterface](sc, "survey")
}

// GetQualitativeFeedbackService returns the 360 qualitative aggregation service
func (sc *ServiceContainer) GetQualitativeFeedbackService() (services.QualitativeFeedbackServiceInterface, error) {
	return GetServiceAs[services.QualitativeFeedbackServiceInterface](sc, "qualitative")
}

// GetReportService returns the report builder service
func (sc *ServiceContainer) GetReportService() (services.ReportServiceInterface, error) {
	return GetServiceAs[services.ReportServiceInterface](sc, "report")
}

// GetImportService returns the bulk import service
func (sc *ServiceContainer) GetImportService() (services.ImportServiceInterface, error) {
	return GetServiceAs[services.ImportServiceInterface](sc, "import")
}

// GetEmailService returns the email service
func (sc *ServiceContainer) GetEmailService() (services.EmailServiceInterface, error) {
	return GetServiceAs[services.EmailServiceInterface](sc, "email")
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// startupServices starts all services that implement the Lifecycle interface
func (sc *ServiceContainer) startupServices(ctx context.Context) error {
	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Startup(context.Context) error }); ok {
			sc.logger.Info(ctx, "Starting service", map[string]interface{}{"service": name})
			if err := lifecycleService.Startup(ctx); err != nil {
				return contextutils.WrapErrorf(err, "failed to startup service %s", name)
			}
			sc.logger.Info(ctx, "Service started successfully", map[string]interface{}{"service": name})
		}
	}
	return nil
}

// cleanup handles shutdown of all services
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error

	for name := range sc.services {
		if lifecycleService, ok := sc.services[name].(interface{ Shutdown(context.Context) error }); ok {
			sc.logger.Info(ctx, "Shutting down service", map[string]interface{}{"service": name})
			if err := lifecycleService.Shutdown(ctx); err != nil {
				sc.logger.Error(ctx, "Failed to shutdown service", err, map[string]interface{}{"service": name})
				errors = append(errors, contextutils.WrapErrorf(err, "service %s shutdown failed", name))
			}
		}
	}

	// Shutdown in reverse order of initialization
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(_ context.Context) {
	// Store-backed services with no service dependencies
	userService := services.NewUserService(sc.db, sc.logger)
	sc.services["user"] = userService

	clientService := services.NewClientService(sc.db, sc.logger)
	sc.services["client"] = clientService

	assessmentService := services.NewAssessmentService(sc.db, sc.logger)
	sc.services["assessment"] = assessmentService

	benchmarkService := services.NewBenchmarkService(sc.db, sc.logger)
	sc.services["benchmark"] = benchmarkService

	libraryService := services.NewFeedbackLibraryService(sc.db, sc.logger)
	sc.services["feedback_library"] = libraryService

	assignmentService := services.NewAssignmentService(sc.db, sc.logger)
	sc.services["assignment"] = assignmentService

	scoreService := services.NewScoreService(sc.db, sc.logger)
	sc.services["score"] = scoreService

	answerService := services.NewAnswerService(sc.db, sc.logger)
	sc.services["answer"] = answerService

	// Aggregation services composed from the stores above
	surveyService := services.NewSurveyService(sc.db, assignmentService, sc.cfg, sc.logger)
	sc.services["survey"] = surveyService

	qualitativeService := services.NewQualitativeFeedbackService(assignmentService, answerService, sc.logger)
	sc.services["qualitative"] = qualitativeService

	feedbackService := services.NewFeedbackAssignmentService(libraryService, sc.logger)
	sc.services["feedback_assignment"] = feedbackService

	exportService := services.NewExportNotifierService(sc.cfg, sc.logger)
	sc.services["export"] = exportService

	emailService := services.CreateEmailService(sc.cfg, sc.logger)
	sc.services["email"] = emailService

	// Report builder sits on top of everything else
	reportService := services.NewReportService(
		sc.db,
		assignmentService,
		assessmentService,
		scoreService,
		feedbackService,
		qualitativeService,
		benchmarkService,
		userService,
		clientService,
		exportService,
		emailService,
		sc.cfg,
		sc.logger,
	)
	sc.services["report"] = reportService

	importStore := services.NewImportStore(sc.db, userService, assignmentService)
	importService := services.NewImportService(importStore, userService, assessmentService, emailService, sc.cfg, sc.logger)
	sc.services["import"] = importService
}

// EnsureAdminUser seeds or refreshes the configured admin account. A
// deployment without admin credentials configured skips seeding.
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	if sc.cfg.Server.AdminEmail == "" || sc.cfg.Server.AdminPassword == "" {
		sc.logger.Warn(ctx, "Admin credentials not configured, skipping admin user seeding", nil)
		return nil
	}

	userService, err := sc.GetUserService()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user service")
	}

	return userService.EnsureAdminUser(ctx, sc.cfg.Server.AdminEmail, sc.cfg.Server.AdminName, sc.cfg.Server.AdminPassword)
}
