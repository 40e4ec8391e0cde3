package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	contextutils "talentapp/internal/utils"
)

// AssignmentHandler handles assignment lifecycle endpoints: creation, result
// submission, completion and the per-assignment report.
type AssignmentHandler struct {
	assignmentService services.AssignmentServiceInterface
	scoreService      services.ScoreServiceInterface
	answerService     services.AnswerServiceInterface
	reportService     services.ReportServiceInterface
	config            *config.Config
	logger            *observability.Logger
}

// NewAssignmentHandler creates an AssignmentHandler.
func NewAssignmentHandler(assignmentService services.AssignmentServiceInterface, scoreService services.ScoreServiceInterface, answerService services.AnswerServiceInterface, reportService services.ReportServiceInterface, cfg *config.Config, logger *observability.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
		scoreService:      scoreService,
		answerService:     answerService,
		reportService:     reportService,
		config:            cfg,
		logger:            logger,
	}
}

// AssignmentRequest represents an assignment create payload. TargetID is set
// on 360 rater assignments; SurveyID groups assignments into one campaign.
type AssignmentRequest struct {
	UserID       int    `json:"user_id" binding:"required"`
	AssessmentID int    `json:"assessment_id" binding:"required"`
	SurveyID     string `json:"survey_id"`
	TargetID     *int   `json:"target_id"`
}

// CreateAssignment handles POST /v1/assignments.
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_assignment")
	defer observability.FinishSpan(span, nil)

	var req AssignmentRequest
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

	assignment := &models.Assignment{
		UserID:       req.UserID,
		AssessmentID: req.AssessmentID,
	}
	if req.SurveyID != "" {
		assignment.SurveyID = sql.NullString{String: req.SurveyID, Valid: true}
	}
	if req.TargetID != nil {
		assignment.TargetID = sql.NullInt32{Int32: int32(*req.TargetID), Valid: true}
	}

	created, err := h.assignmentService.CreateAssignment(ctx, assignment)
	if err != nil {
		h.logger.Error(ctx, "create assignment failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetAssignment handles GET /v1/assignments/:id.
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_assignment")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	assignment, err := h.assignmentService.GetAssignmentByID(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// ScoreInput is one dimension score in a submission. A nil dimension id is
// the assessment-level roll-up score.
type ScoreInput struct {
	DimensionID *int    `json:"dimension_id"`
	Score       float64 `json:"score"`
}

// ScoresRequest represents a score submission payload.
type ScoresRequest struct {
	Scores []ScoreInput `json:"scores" binding:"required"`
}

// SubmitScores handles POST /v1/assignments/:id/scores.
func (h *AssignmentHandler) SubmitScores(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_scores")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req ScoresRequest
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
	if len(req.Scores) == 0 {
		HandleValidationError(c, "scores", "", "at least one score is required")
		return
	}

	// Resolve the assignment first so an unknown id is a 404, not a
	// foreign key failure.
	if _, err := h.assignmentService.GetAssignmentByID(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}

	scores := make([]models.DimensionScore, len(req.Scores))
	for i, input := range req.Scores {
		scores[i] = models.DimensionScore{AssignmentID: id, Score: input.Score}
		if input.DimensionID != nil {
			scores[i].DimensionID = sql.NullInt32{Int32: int32(*input.DimensionID), Valid: true}
		}
	}

	if err := h.scoreService.CreateScores(ctx, id, scores); err != nil {
		h.logger.Error(ctx, "submit scores failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AnswerInput is one free-text answer in a submission.
type AnswerInput struct {
	FieldID int    `json:"field_id" binding:"required"`
	Value   string `json:"value" binding:"required"`
}

// AnswersRequest represents a free-text answer submission payload.
type AnswersRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required"`
}

// SubmitAnswers handles POST /v1/assignments/:id/answers.
func (h *AssignmentHandler) SubmitAnswers(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_answers")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req AnswersRequest
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
	if len(req.Answers) == 0 {
		HandleValidationError(c, "answers", "", "at least one answer is required")
		return
	}

	if _, err := h.assignmentService.GetAssignmentByID(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}

	answers := make([]models.TextAnswer, len(req.Answers))
	for i, input := range req.Answers {
		answers[i] = models.TextAnswer{AssignmentID: id, FieldID: input.FieldID, Value: input.Value}
	}

	if err := h.answerService.CreateTextAnswers(ctx, answers); err != nil {
		h.logger.Error(ctx, "submit answers failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CompleteAssignment handles POST /v1/assignments/:id/complete. The
// assignment is marked completed first, then the report is built inline. A
// build failure does not undo completion: the sweep worker picks the
// assignment up later, so the response carries report_error instead of
// failing the whole request.
func (h *AssignmentHandler) CompleteAssignment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "complete_assignment")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	if err := h.assignmentService.MarkCompleted(ctx, id); err != nil {
		h.logger.Error(ctx, "mark assignment completed failed", err, nil)
		HandleAppError(c, err)
		return
	}

	report, err := h.reportService.BuildReport(ctx, id)
	if err != nil {
		h.logger.Error(ctx, "inline report build failed", err, map[string]interface{}{
			"assignment_id": id,
		})
		reportError := "report build failed, the sweep worker will retry"
		if errors.Is(err, contextutils.ErrReportSchemaMissing) {
			reportError = contextutils.MsgReportSchemaMissing
		}
		c.JSON(http.StatusOK, gin.H{"completed": true, "report": nil, "report_error": reportError})
		return
	}

	c.JSON(http.StatusOK, gin.H{"completed": true, "report": report})
}

// BuildReport handles POST /v1/assignments/:id/report. Rebuilding an
// existing report replaces its content in place.
func (h *AssignmentHandler) BuildReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "build_report")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	report, err := h.reportService.RebuildReport(ctx, id)
	if err != nil {
		h.logger.Error(ctx, "report build failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetReport handles GET /v1/assignments/:id/report.
func (h *AssignmentHandler) GetReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_report")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	report, err := h.reportService.GetReport(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
