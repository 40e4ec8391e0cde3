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

// UserHandler handles the user directory and the per-user 360 feedback view.
type UserHandler struct {
	userService        services.UserServiceInterface
	qualitativeService services.QualitativeFeedbackServiceInterface
	config             *config.Config
	logger             *observability.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(userService services.UserServiceInterface, qualitativeService services.QualitativeFeedbackServiceInterface, cfg *config.Config, logger *observability.Logger) *UserHandler {
	return &UserHandler{
		userService:        userService,
		qualitativeService: qualitativeService,
		config:             cfg,
		logger:             logger,
	}
}

// UserRequest represents a user create or update payload. Password is only
// honored on create; updates go through the password endpoint.
type UserRequest struct {
	ClientID *int   `json:"client_id"`
	GroupID  *int   `json:"group_id"`
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Password string `json:"password"`
}

func (r *UserRequest) toModel() *models.User {
	user := &models.User{
		Email: r.Email,
		Name:  r.Name,
		Role:  r.Role,
	}
	if r.ClientID != nil {
		user.ClientID = sql.NullInt32{Int32: int32(*r.ClientID), Valid: true}
	}
	if r.GroupID != nil {
		user.GroupID = sql.NullInt32{Int32: int32(*r.GroupID), Valid: true}
	}
	return user
}

// GetUsers handles GET /v1/users.
func (h *UserHandler) GetUsers(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_users")
	defer observability.FinishSpan(span, nil)

	page, pageSize := ParsePagination(c)

	users, total, err := h.userService.GetUsersPaginated(ctx, page, pageSize)
	if err != nil {
		h.logger.Error(ctx, "list users failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": users, "total": total, "page": page, "page_size": pageSize})
}

// CreateUser handles POST /v1/users.
func (h *UserHandler) CreateUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_user")
	defer observability.FinishSpan(span, nil)

	var req UserRequest
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

	created, err := h.userService.CreateUser(ctx, req.toModel(), req.Password)
	if err != nil {
		h.logger.Error(ctx, "create user failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetUser handles GET /v1/users/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_user")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	user, err := h.userService.GetUserByID(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser handles PUT /v1/users/:id.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_user")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req UserRequest
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

	user := req.toModel()
	user.ID = id

	updated, err := h.userService.UpdateUser(ctx, user)
	if err != nil {
		h.logger.Error(ctx, "update user failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// PasswordRequest represents a password change payload.
type PasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// UpdateUserPassword handles PUT /v1/users/:id/password.
func (h *UserHandler) UpdateUserPassword(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_user_password")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	var req PasswordRequest
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

	if err := h.userService.UpdateUserPassword(ctx, id, req.Password); err != nil {
		h.logger.Error(ctx, "update user password failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteUser handles DELETE /v1/users/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_user")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	if err := h.userService.DeleteUser(ctx, id); err != nil {
		h.logger.Error(ctx, "delete user failed", err, nil)
		HandleAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUserFeedback360 handles GET /v1/users/:id/feedback360. It returns the
// user's qualitative 360 feedback grouped by dimension, aggregated from all
// completed assignments that target them. An empty array means no raters
// have completed yet.
func (h *UserHandler) GetUserFeedback360(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_user_feedback360")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	if _, err := h.userService.GetUserByID(ctx, id); err != nil {
		HandleAppError(c, err)
		return
	}

	feedback, err := h.qualitativeService.Aggregate360Feedback(ctx, id)
	if err != nil {
		h.logger.Error(ctx, "aggregate 360 feedback failed", err, nil)
		HandleAppError(c, err)
		return
	}
	if feedback == nil {
		feedback = []models.DimensionFeedback{}
	}

	c.JSON(http.StatusOK, feedback)
}
