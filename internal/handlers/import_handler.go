package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	"talentapp/internal/services"
	contextutils "talentapp/internal/utils"
)

// ImportHandler handles bulk roster imports.
type ImportHandler struct {
	importService services.ImportServiceInterface
	config        *config.Config
	logger        *observability.Logger
}

// NewImportHandler creates an ImportHandler.
func NewImportHandler(importService services.ImportServiceInterface, cfg *config.Config, logger *observability.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		config:        cfg,
		logger:        logger,
	}
}

// ApplyImport handles POST /v1/imports. The payload shape is checked by the
// import schema middleware before it reaches this handler; row-level rules
// (unknown targets, row limits) are enforced by the service.
func (h *ImportHandler) ApplyImport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "apply_import")
	defer observability.FinishSpan(span, nil)

	var req models.ImportRequest
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
	if req.ClientID <= 0 {
		HandleValidationError(c, "client_id", req.ClientID, "must be a positive integer")
		return
	}
	if req.AssessmentID <= 0 {
		HandleValidationError(c, "assessment_id", req.AssessmentID, "must be a positive integer")
		return
	}

	result, err := h.importService.ApplyImport(ctx, &req)
	if err != nil {
		h.logger.Error(ctx, "import failed", err, map[string]interface{}{
			"client_id":     req.ClientID,
			"assessment_id": req.AssessmentID,
			"rows":          len(req.Rows),
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
