package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"talentapp/internal/config"
	"talentapp/internal/middleware"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	"talentapp/internal/version"
)

// NewRouter wires middleware, handlers and the full route table for the
// administration API.
func NewRouter(
	cfg *config.Config,
	db *sql.DB,
	userService services.UserServiceInterface,
	clientService services.ClientServiceInterface,
	assessmentService services.AssessmentServiceInterface,
	benchmarkService services.BenchmarkServiceInterface,
	libraryService services.FeedbackLibraryServiceInterface,
	assignmentService services.AssignmentServiceInterface,
	scoreService services.ScoreServiceInterface,
	answerService services.AnswerServiceInterface,
	surveyService services.SurveyServiceInterface,
	qualitativeService services.QualitativeFeedbackServiceInterface,
	reportService services.ReportServiceInterface,
	importService services.ImportServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger, nil))

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

		if statusCode >= 400 {
			if c.Writer.Size() > 0 {
				fields["http.response_size"] = c.Writer.Size()
			}
			if statusCode >= 500 {
				fields["http.error_type"] = "server_error"
			} else {
				fields["http.error_type"] = "client_error"
			}
		}

		if statusCode >= 500 {
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		} else if statusCode >= 400 {
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		} else {
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before tracing middleware)
	router.GET("/health", func(c *gin.Context) {
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "backend"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "backend"})
	})

	// OpenTelemetry middleware for HTTP tracing, context propagation and
	// automatic error attributes
	router.Use(observability.GinMiddlewareWithErrorHandling("talentapp-backend"))

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	// Import payloads are validated against the JSON schema before binding.
	schemaLoader, err := middleware.LoadDefaultSchemas()
	if err != nil {
		logger.Warn(context.Background(), "Failed to load request schemas, schema checks disabled", map[string]interface{}{
			"error": err.Error(),
		})
		schemaLoader = middleware.NewSchemaLoader()
	}

	clientHandler := NewClientHandler(clientService, surveyService, cfg, logger)
	assessmentHandler := NewAssessmentHandler(assessmentService, benchmarkService, libraryService, cfg, logger)
	userHandler := NewUserHandler(userService, qualitativeService, cfg, logger)
	assignmentHandler := NewAssignmentHandler(assignmentService, scoreService, answerService, reportService, cfg, logger)
	importHandler := NewImportHandler(importService, cfg, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "backend",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		clients := v1.Group("/clients")
		{
			clients.GET("", clientHandler.GetClients)
			clients.POST("", clientHandler.CreateClient)
			clients.GET("/:id", clientHandler.GetClient)
			clients.PUT("/:id", clientHandler.UpdateClient)
			clients.DELETE("/:id", clientHandler.DeleteClient)
			clients.GET("/:id/surveys", clientHandler.GetClientSurveys)
			clients.GET("/:id/completions", clientHandler.GetClientCompletions)
			clients.GET("/:id/groups", clientHandler.GetClientGroups)
			clients.POST("/:id/groups", clientHandler.CreateGroup)
		}

		v1.PUT("/groups/:id", clientHandler.UpdateGroup)
		v1.DELETE("/groups/:id", clientHandler.DeleteGroup)

		industries := v1.Group("/industries")
		{
			industries.GET("", clientHandler.GetIndustries)
			industries.POST("", clientHandler.CreateIndustry)
			industries.PUT("/:id", clientHandler.UpdateIndustry)
			industries.DELETE("/:id", clientHandler.DeleteIndustry)
		}

		users := v1.Group("/users")
		{
			users.GET("", userHandler.GetUsers)
			users.POST("", userHandler.CreateUser)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
			users.PUT("/:id/password", userHandler.UpdateUserPassword)
			users.GET("/:id/feedback360", userHandler.GetUserFeedback360)
		}

		assessments := v1.Group("/assessments")
		{
			assessments.GET("", assessmentHandler.GetAssessments)
			assessments.POST("", assessmentHandler.CreateAssessment)
			assessments.GET("/:id", assessmentHandler.GetAssessment)
			assessments.PUT("/:id", assessmentHandler.UpdateAssessment)
			assessments.DELETE("/:id", assessmentHandler.DeleteAssessment)
			assessments.GET("/:id/dimensions", assessmentHandler.GetDimensions)
			assessments.POST("/:id/dimensions", assessmentHandler.CreateDimension)
			assessments.GET("/:id/fields", assessmentHandler.GetFields)
			assessments.POST("/:id/fields", assessmentHandler.CreateField)
			assessments.GET("/:id/benchmarks", assessmentHandler.GetBenchmarks)
			assessments.POST("/:id/benchmarks", assessmentHandler.CreateBenchmark)
			assessments.GET("/:id/library", assessmentHandler.GetLibraryEntries)
			assessments.POST("/:id/library", assessmentHandler.CreateLibraryEntry)
		}

		v1.DELETE("/benchmarks/:id", assessmentHandler.DeleteBenchmark)
		v1.PUT("/library/:id", assessmentHandler.UpdateLibraryEntry)
		v1.DELETE("/library/:id", assessmentHandler.DeleteLibraryEntry)

		assignments := v1.Group("/assignments")
		{
			assignments.POST("", assignmentHandler.CreateAssignment)
			assignments.GET("/:id", assignmentHandler.GetAssignment)
			assignments.POST("/:id/scores", assignmentHandler.SubmitScores)
			assignments.POST("/:id/answers", assignmentHandler.SubmitAnswers)
			assignments.POST("/:id/complete", assignmentHandler.CompleteAssignment)
			assignments.POST("/:id/report", assignmentHandler.BuildReport)
			assignments.GET("/:id/report", assignmentHandler.GetReport)
		}

		v1.POST("/imports", middleware.ImportValidationMiddleware(schemaLoader, logger), importHandler.ApplyImport)
	}

	// Automatic route listing at root path
	routeListing := NewRouteListingHandler("Talent Backend")
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
