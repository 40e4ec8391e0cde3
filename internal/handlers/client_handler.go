package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	contextutils "talentapp/internal/utils"
)

// SurveySummaryResponse decorates a survey summary with its completion
// bucket for dashboard display.
type SurveySummaryResponse struct {
	SurveyID             string    `json:"survey_id"`
	AssessmentID         int       `json:"assessment_id"`
	AssessmentTitle      string    `json:"assessment_title"`
	FirstCreatedAt       time.Time `json:"first_created_at"`
	TotalAssignments     int       `json:"total_assignments"`
	CompletedAssignments int       `json:"completed_assignments"`
	Completion           string    `json:"completion"`
}

// convertSurveySummaryToResponse converts a SurveySummary to its response form
func convertSurveySummaryToResponse(s models.SurveySummary) SurveySummaryResponse {
	return SurveySummaryResponse{
		SurveyID:             s.SurveyID,
		AssessmentID:         s.AssessmentID,
		AssessmentTitle:      s.AssessmentTitle,
		FirstCreatedAt:       s.FirstCreatedAt,
		TotalAssignments:     s.TotalAssignments,
		CompletedAssignments: s.CompletedAssignments,
		Completion:           services.CompletionBucket(s.CompletedAssignments, s.TotalAssignments),
	}
}

// ClientHandler handles client, group and industry endpoints plus the
// per-client survey dashboard.
type ClientHandler struct {
	clientService services.ClientServiceInterface
	surveyService services.SurveyServiceInterface
	config        *config.Config
	logger        *observability.Logger
}

// NewClientHandler creates a ClientHandler.
func NewClientHandler(clientService services.ClientServiceInterface, surveyService services.SurveyServiceInterface, cfg *config.Config, logger *observability.Logger) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		surveyService: surveyService,
		config:        cfg,
		logger:        logger,
	}
}

// ClientRequest represents a client create or update payload.
type ClientRequest struct {
	Name         string `json:"name" binding:"required"`
	IndustryID   *int   `json:"industry_id"`
	ContactEmail string `json:"contact_email"`
}

func (r *ClientRequest) toModel() *models.Client {
	client := &models.Client{
		Name:         r.Name,
		ContactEmail: r.ContactEmail,
	}
	if r.IndustryID != nil {
		client.IndustryID = sql.NullInt32{Int32: int32(*r.IndustryID), Valid: true}
	}
	return client
}

// GetClients handles GET /v1/clients.
func (h *ClientHandler) GetClients(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_clients")
	defer observability.FinishSpan(span, nil)

	page, pageSize := ParsePagination(c)

	clients, total, err := h.clientService.GetClientsPaginated(ctx, page, pageSize)
	if err != nil {
		h.logger.Error(ctx, "list clients failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": clients, "total": total, "page": page, "page_size": pageSize})
}

// CreateClient handles POST /v1/clients.
func (h *ClientHandler) CreateClient(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_client")
	defer observability.FinishSpan(span, nil)

	var req ClientRequest
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

	created, err := h.clientService.CreateClient(ctx, req.toModel())
	if err != nil {
		h.logger.Error(ctx, "create client failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetClient handles GET /v1/clients/:id.
func (h *ClientHandler) GetClient(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_client")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	client, err := h.clientService.GetClientByID(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, client)
}

// UpdateClient handles PUT /v1/clients/:id.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_client")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req ClientRequest
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

	client := req.toModel()
	client.ID = id

	updated, err := h.clientService.UpdateClient(ctx, client)
	if err != nil {
		h.logger.Error(ctx, "update client failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteClient handles DELETE /v1/clients/:id.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_client")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	if err := h.clientService.DeleteClient(ctx, id); err != nil {
		h.logger.Error(ctx, "delete client failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetClientSurveys handles GET /v1/clients/:id/surveys.
func (h *ClientHandler) GetClientSurveys(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_client_surveys")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var assessmentID *int
	if raw := c.Query("assessment_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			HandleValidationError(c, "assessment_id", raw, "must be an integer")
			return
		}
		assessmentID = &parsed
	}

	summaries, err := h.surveyService.GetClientSurveys(ctx, id, assessmentID)
	if err != nil {
		h.logger.Error(ctx, "list client surveys failed", err, nil)
		HandleAppError(c, err)
		return
	}

	items := make([]SurveySummaryResponse, len(summaries))
	for i, summary := range summaries {
		items[i] = convertSurveySummaryToResponse(summary)
	}

	c.JSON(http.StatusOK, items)
}

// GetClientCompletions handles GET /v1/clients/:id/completions. Missing
// range params default to the last 30 days ending today.
func (h *ClientHandler) GetClientCompletions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_client_completions")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			HandleValidationError(c, "to", raw, "must be YYYY-MM-DD")
			return
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -29)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			HandleValidationError(c, "from", raw, "must be YYYY-MM-DD")
			return
		}
		from = parsed
	}

	timeline, err := h.surveyService.CompletionsByDay(ctx, id,
		openapi_types.Date{Time: from}, openapi_types.Date{Time: to})
	if err != nil {
		h.logger.Error(ctx, "completions timeline failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, timeline)
}

// GroupRequest represents a group create or update payload.
type GroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// GetClientGroups handles GET /v1/clients/:id/groups.
func (h *ClientHandler) GetClientGroups(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_client_groups")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	groups, err := h.clientService.GetGroupsForClient(ctx, id)
	if err != nil {
		h.logger.Error(ctx, "list groups failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

// CreateGroup handles POST /v1/clients/:id/groups.
func (h *ClientHandler) CreateGroup(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_group")
	defer observability.FinishSpan(span, nil)

	clientID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req GroupRequest
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

	created, err := h.clientService.CreateGroup(ctx, &models.Group{ClientID: clientID, Name: req.Name})
	if err != nil {
		h.logger.Error(ctx, "create group failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateGroup handles PUT /v1/groups/:id.
func (h *ClientHandler) UpdateGroup(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_group")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req GroupRequest
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

	updated, err := h.clientService.UpdateGroup(ctx, &models.Group{ID: id, Name: req.Name})
	if err != nil {
		h.logger.Error(ctx, "update group failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteGroup handles DELETE /v1/groups/:id.
func (h *ClientHandler) DeleteGroup(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_group")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	if err := h.clientService.DeleteGroup(ctx, id); err != nil {
		h.logger.Error(ctx, "delete group failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// IndustryRequest represents an industry create or update payload.
type IndustryRequest struct {
	Name string `json:"name" binding:"required"`
}

// GetIndustries handles GET /v1/industries.
func (h *ClientHandler) GetIndustries(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_industries")
	defer observability.FinishSpan(span, nil)

	industries, err := h.clientService.GetIndustries(ctx)
	if err != nil {
		h.logger.Error(ctx, "list industries failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, industries)
}

// CreateIndustry handles POST /v1/industries.
func (h *ClientHandler) CreateIndustry(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_industry")
	defer observability.FinishSpan(span, nil)

	var req IndustryRequest
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

	created, err := h.clientService.CreateIndustry(ctx, &models.Industry{Name: req.Name})
	if err != nil {
		h.logger.Error(ctx, "create industry failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateIndustry handles PUT /v1/industries/:id.
func (h *ClientHandler) UpdateIndustry(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_industry")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req IndustryRequest
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

	updated, err := h.clientService.UpdateIndustry(ctx, &models.Industry{ID: id, Name: req.Name})
	if err != nil {
		h.logger.Error(ctx, "update industry failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteIndustry handles DELETE /v1/industries/:id.
func (h *ClientHandler) DeleteIndustry(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_industry")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	if err := h.clientService.DeleteIndustry(ctx, id); err != nil {
		h.logger.Error(ctx, "delete industry failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
