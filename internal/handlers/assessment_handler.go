package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	contextutils "talentapp/internal/utils"
)

// AssessmentHandler handles assessment definition endpoints: the assessment
// itself plus its dimensions, form fields, benchmarks and feedback library.
type AssessmentHandler struct {
	assessmentService services.AssessmentServiceInterface
	benchmarkService  services.BenchmarkServiceInterface
	libraryService    services.FeedbackLibraryServiceInterface
	config            *config.Config
	logger            *observability.Logger
}

// NewAssessmentHandler creates an AssessmentHandler.
func NewAssessmentHandler(assessmentService services.AssessmentServiceInterface, benchmarkService services.BenchmarkServiceInterface, libraryService services.FeedbackLibraryServiceInterface, cfg *config.Config, logger *observability.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: assessmentService,
		benchmarkService:  benchmarkService,
		libraryService:    libraryService,
		config:            cfg,
		logger:            logger,
	}
}

// AssessmentRequest represents an assessment create or update payload.
type AssessmentRequest struct {
	Title string `json:"title" binding:"required"`
	Kind  string `json:"kind" binding:"required"`
}

// GetAssessments handles GET /v1/assessments.
func (h *AssessmentHandler) GetAssessments(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_assessments")
	defer observability.FinishSpan(span, nil)

	page, pageSize := ParsePagination(c)

	assessments, total, err := h.assessmentService.GetAssessmentsPaginated(ctx, page, pageSize)
	if err != nil {
		h.logger.Error(ctx, "list assessments failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": assessments, "total": total, "page": page, "page_size": pageSize})
}

// CreateAssessment handles POST /v1/assessments.
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_assessment")
	defer observability.FinishSpan(span, nil)

	var req AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}
	if req.Kind != models.AssessmentKindLibrary && req.Kind != models.AssessmentKind360 {
		HandleValidationError(c, "kind", req.Kind, "must be 'library' or '360'")
		return
	}

	created, err := h.assessmentService.CreateAssessment(ctx, &models.Assessment{Title: req.Title, Kind: req.Kind})
	if err != nil {
		h.logger.Error(ctx, "create assessment failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetAssessment handles GET /v1/assessments/:id.
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_assessment")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	assessment, err := h.assessmentService.GetAssessmentByID(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// UpdateAssessment handles PUT /v1/assessments/:id.
func (h *AssessmentHandler) UpdateAssessment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_assessment")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}
	if req.Kind != models.AssessmentKindLibrary && req.Kind != models.AssessmentKind360 {
		HandleValidationError(c, "kind", req.Kind, "must be 'library' or '360'")
		return
	}

	updated, err := h.assessmentService.UpdateAssessment(ctx, &models.Assessment{ID: id, Title: req.Title, Kind: req.Kind})
	if err != nil {
		h.logger.Error(ctx, "update assessment failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteAssessment handles DELETE /v1/assessments/:id.
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_assessment")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	if err := h.assessmentService.DeleteAssessment(ctx, id); err != nil {
		h.logger.Error(ctx, "delete assessment failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DimensionRequest represents a dimension create payload.
type DimensionRequest struct {
	Name     string `json:"name" binding:"required"`
	Position int    `json:"position"`
}

// GetDimensions handles GET /v1/assessments/:id/dimensions.
func (h *AssessmentHandler) GetDimensions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_dimensions")
	defer observability.FinishSpan(span, nil)

	assessmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	dimensions, err := h.assessmentService.GetDimensions(ctx, assessmentID)
	if err != nil {
		h.logger.Error(ctx, "list dimensions failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dimensions)
}

// CreateDimension handles POST /v1/assessments/:id/dimensions.
func (h *AssessmentHandler) CreateDimension(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_dimension")
	defer observability.FinishSpan(span, nil)

	assessmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req DimensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	created, err := h.assessmentService.CreateDimension(ctx, &models.Dimension{
		AssessmentID: assessmentID,
		Name:         req.Name,
		Position:     req.Position,
	})
	if err != nil {
		h.logger.Error(ctx, "create dimension failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// FieldRequest represents a form field create payload. DimensionID stays nil
// for general fields not tied to a scoring category.
type FieldRequest struct {
	DimensionID *int   `json:"dimension_id"`
	Type        string `json:"type" binding:"required"`
	Label       string `json:"label" binding:"required"`
	Position    int    `json:"position"`
}

// GetFields handles GET /v1/assessments/:id/fields.
func (h *AssessmentHandler) GetFields(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_fields")
	defer observability.FinishSpan(span, nil)

	assessmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	fields, err := h.assessmentService.GetFields(ctx, assessmentID)
	if err != nil {
		h.logger.Error(ctx, "list fields failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, fields)
}

// CreateField handles POST /v1/assessments/:id/fields.
func (h *AssessmentHandler) CreateField(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_field")
	defer observability.FinishSpan(span, nil)

	assessmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}
	if req.Type != models.FieldTypeTextInput && req.Type != models.FieldTypeScale {
		HandleValidationError(c, "type", req.Type, "must be 'text_input' or 'scale'")
		return
	}

	field := &models.Field{
		AssessmentID: assessmentID,
		Type:         req.Type,
		Label:        req.Label,
		Position:     req.Position,
	}
	if req.DimensionID != nil {
		field.DimensionID = sql.NullInt32{Int32: int32(*req.DimensionID), Valid: true}
	}

	created, err := h.assessmentService.CreateField(ctx, field)
	if err != nil {
		h.logger.Error(ctx, "create field failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// BenchmarkRequest represents a benchmark create payload.
type BenchmarkRequest struct {
	IndustryID  int     `json:"industry_id" binding:"required"`
	DimensionID int     `json:"dimension_id" binding:"required"`
	Value       float64 `json:"value"`
}

// GetBenchmarks handles GET /v1/assessments/:id/benchmarks.
func (h *AssessmentHandler) GetBenchmarks(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_benchmarks")
	defer observability.FinishSpan(span, nil)

	assessmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	benchmarks, err := h.benchmarkService.GetBenchmarksForAssessment(ctx, assessmentID)
	if err != nil {
		h.logger.Error(ctx, "list benchmarks failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, benchmarks)
}

// CreateBenchmark handles POST /v1/assessments/:id/benchmarks.
func (h *AssessmentHandler) CreateBenchmark(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_benchmark")
	defer observability.FinishSpan(span, nil)

	assessmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req BenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	created, err := h.benchmarkService.CreateBenchmark(ctx, &models.Benchmark{
		AssessmentID: assessmentID,
		IndustryID:   req.IndustryID,
		DimensionID:  req.DimensionID,
		Value:        req.Value,
	})
	if err != nil {
		h.logger.Error(ctx, "create benchmark failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// DeleteBenchmark handles DELETE /v1/benchmarks/:id.
func (h *AssessmentHandler) DeleteBenchmark(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_benchmark")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	if err := h.benchmarkService.DeleteBenchmark(ctx, id); err != nil {
		h.logger.Error(ctx, "delete benchmark failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// LibraryEntryRequest represents a feedback library entry create or update
// payload. Nil score bounds are unbounded on that side.
type LibraryEntryRequest struct {
	DimensionID int      `json:"dimension_id" binding:"required"`
	Type        string   `json:"type" binding:"required"`
	MinScore    *float64 `json:"min_score"`
	MaxScore    *float64 `json:"max_score"`
	Content     string   `json:"content" binding:"required"`
}

func (r *LibraryEntryRequest) toModel() *models.FeedbackLibraryEntry {
	entry := &models.FeedbackLibraryEntry{
		DimensionID: r.DimensionID,
		Type:        r.Type,
		Content:     r.Content,
	}
	if r.MinScore != nil {
		entry.MinScore = sql.NullFloat64{Float64: *r.MinScore, Valid: true}
	}
	if r.MaxScore != nil {
		entry.MaxScore = sql.NullFloat64{Float64: *r.MaxScore, Valid: true}
	}
	return entry
}

// GetLibraryEntries handles GET /v1/assessments/:id/library.
func (h *AssessmentHandler) GetLibraryEntries(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_library_entries")
	defer observability.FinishSpan(span, nil)

	assessmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	entries, err := h.libraryService.GetEntriesForAssessment(ctx, assessmentID)
	if err != nil {
		h.logger.Error(ctx, "list library entries failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// CreateLibraryEntry handles POST /v1/assessments/:id/library.
func (h *AssessmentHandler) CreateLibraryEntry(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_library_entry")
	defer observability.FinishSpan(span, nil)

	assessmentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req LibraryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}
	if req.Type != models.FeedbackTypeOverall && req.Type != models.FeedbackTypeSpecific {
		HandleValidationError(c, "type", req.Type, "must be 'overall' or 'specific'")
		return
	}

	entry := req.toModel()
	entry.AssessmentID = assessmentID

	created, err := h.libraryService.CreateEntry(ctx, entry)
	if err != nil {
		h.logger.Error(ctx, "create library entry failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateLibraryEntry handles PUT /v1/library/:id.
func (h *AssessmentHandler) UpdateLibraryEntry(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_library_entry")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req LibraryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}
	if req.Type != models.FeedbackTypeOverall && req.Type != models.FeedbackTypeSpecific {
		HandleValidationError(c, "type", req.Type, "must be 'overall' or 'specific'")
		return
	}

	entry := req.toModel()
	entry.ID = id

	updated, err := h.libraryService.UpdateEntry(ctx, entry)
	if err != nil {
		h.logger.Error(ctx, "update library entry failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteLibraryEntry handles DELETE /v1/library/:id.
func (h *AssessmentHandler) DeleteLibraryEntry(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_library_entry")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	if err := h.libraryService.DeleteEntry(ctx, id); err != nil {
		h.logger.Error(ctx, "delete library entry failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
