package services

import (
	"context"
	"database/sql"
	"time"

	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AssessmentServiceInterface defines assessment catalog operations
type AssessmentServiceInterface interface {
	GetAssessmentsPaginated(ctx context.Context, page, pageSize int) ([]models.Assessment, int, error)
	GetAssessmentByID(ctx context.Context, id int) (*models.Assessment, error)
	CreateAssessment(ctx context.Context, assessment *models.Assessment) (*models.Assessment, error)
	UpdateAssessment(ctx context.Context, assessment *models.Assessment) (*models.Assessment, error)
	DeleteAssessment(ctx context.Context, id int) error
	GetDimensions(ctx context.Context, assessmentID int) ([]models.Dimension, error)
	CreateDimension(ctx context.Context, dimension *models.Dimension) (*models.Dimension, error)
	GetFields(ctx context.Context, assessmentID int) ([]models.Field, error)
	CreateField(ctx context.Context, field *models.Field) (*models.Field, error)
}

// AssessmentService manages the assessment catalog: the assessments
// themselves plus their dimensions and answerable fields.
type AssessmentService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAssessmentService creates a new AssessmentService instance
func NewAssessmentService(db *sql.DB, logger *observability.Logger) *AssessmentService {
	if db == nil {
		panic("NewAssessmentService: db is nil")
	}
	if logger == nil {
		panic("NewAssessmentService: logger is nil")
	}
	return &AssessmentService{db: db, logger: logger}
}

func validAssessmentKind(kind string) bool {
	return kind == models.AssessmentKindLibrary || kind == models.AssessmentKind360
}

func validFieldType(fieldType string) bool {
	return fieldType == models.FieldTypeTextInput || fieldType == models.FieldTypeScale
}

// GetAssessmentsPaginated returns one page of assessments plus the total count
func (s *AssessmentService) GetAssessmentsPaginated(ctx context.Context, page, pageSize int) (result0 []models.Assessment, result1 int, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "get_assessments_paginated",
		observability.AttributePage(page),
		observability.AttributePageSize(pageSize),
	)
	defer observability.FinishSpan(span, &err)

	var total int
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count assessments")
	}

	offset := (page - 1) * pageSize
	query := `SELECT id, title, kind, created_at, updated_at
	          FROM assessments
	          ORDER BY id
	          LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to query assessments")
	}
	defer func() {
		_ = rows.Close()
	}()

	assessments := []models.Assessment{}
	for rows.Next() {
		var assessment models.Assessment
		if err := rows.Scan(&assessment.ID, &assessment.Title, &assessment.Kind, &assessment.CreatedAt, &assessment.UpdatedAt); err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan assessment")
		}
		assessments = append(assessments, assessment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to iterate assessments")
	}

	span.SetAttributes(attribute.Int("assessments.count", len(assessments)))
	return assessments, total, nil
}

// GetAssessmentByID returns one assessment or ErrRecordNotFound
func (s *AssessmentService) GetAssessmentByID(ctx context.Context, id int) (result0 *models.Assessment, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "get_assessment_by_id",
		observability.AttributeAssessmentID(id),
	)
	defer observability.FinishSpan(span, &err)

	var assessment models.Assessment
	query := `SELECT id, title, kind, created_at, updated_at FROM assessments WHERE id = $1`
	err = s.db.QueryRowContext(ctx, query, id).Scan(&assessment.ID, &assessment.Title, &assessment.Kind, &assessment.CreatedAt, &assessment.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get assessment")
	}
	return &assessment, nil
}

// CreateAssessment inserts a new assessment after checking its kind
func (s *AssessmentService) CreateAssessment(ctx context.Context, assessment *models.Assessment) (result0 *models.Assessment, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "create_assessment",
		attribute.String("assessment.kind", assessment.Kind),
	)
	defer observability.FinishSpan(span, &err)

	if assessment.Title == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "assessment title is required")
	}
	if !validAssessmentKind(assessment.Kind) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown assessment kind %q", assessment.Kind)
	}

	now := time.Now()
	query := `INSERT INTO assessments (title, kind, created_at, updated_at)
	          VALUES ($1, $2, $3, $3)
	          RETURNING id, created_at, updated_at`
	err = s.db.QueryRowContext(ctx, query, assessment.Title, assessment.Kind, now).
		Scan(&assessment.ID, &assessment.CreatedAt, &assessment.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create assessment")
	}
	return assessment, nil
}

// UpdateAssessment updates the title and kind of an existing assessment
func (s *AssessmentService) UpdateAssessment(ctx context.Context, assessment *models.Assessment) (result0 *models.Assessment, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "update_assessment",
		observability.AttributeAssessmentID(assessment.ID),
	)
	defer observability.FinishSpan(span, &err)

	if assessment.Title == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "assessment title is required")
	}
	if !validAssessmentKind(assessment.Kind) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown assessment kind %q", assessment.Kind)
	}

	query := `UPDATE assessments SET title = $1, kind = $2, updated_at = $3 WHERE id = $4`
	result, err := s.db.ExecContext(ctx, query, assessment.Title, assessment.Kind, time.Now(), assessment.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update assessment")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return nil, contextutils.ErrRecordNotFound
	}
	return s.GetAssessmentByID(ctx, assessment.ID)
}

// DeleteAssessment removes an assessment by id
func (s *AssessmentService) DeleteAssessment(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "delete_assessment",
		observability.AttributeAssessmentID(id),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete assessment")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}

// GetDimensions returns an assessment's dimensions ordered by position
func (s *AssessmentService) GetDimensions(ctx context.Context, assessmentID int) (result0 []models.Dimension, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "get_dimensions",
		observability.AttributeAssessmentID(assessmentID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT id, assessment_id, name, position
	          FROM dimensions
	          WHERE assessment_id = $1
	          ORDER BY position, id`
	rows, err := s.db.QueryContext(ctx, query, assessmentID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query dimensions")
	}
	defer func() {
		_ = rows.Close()
	}()

	dimensions := []models.Dimension{}
	for rows.Next() {
		var dimension models.Dimension
		if err := rows.Scan(&dimension.ID, &dimension.AssessmentID, &dimension.Name, &dimension.Position); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan dimension")
		}
		dimensions = append(dimensions, dimension)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate dimensions")
	}

	span.SetAttributes(attribute.Int("dimensions.count", len(dimensions)))
	return dimensions, nil
}

// CreateDimension inserts a new dimension for an assessment
func (s *AssessmentService) CreateDimension(ctx context.Context, dimension *models.Dimension) (result0 *models.Dimension, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "create_dimension",
		observability.AttributeAssessmentID(dimension.AssessmentID),
	)
	defer observability.FinishSpan(span, &err)

	if dimension.Name == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "dimension name is required")
	}

	query := `INSERT INTO dimensions (assessment_id, name, position)
	          VALUES ($1, $2, $3)
	          RETURNING id`
	err = s.db.QueryRowContext(ctx, query, dimension.AssessmentID, dimension.Name, dimension.Position).Scan(&dimension.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create dimension")
	}
	return dimension, nil
}

// GetFields returns an assessment's fields ordered by position
func (s *AssessmentService) GetFields(ctx context.Context, assessmentID int) (result0 []models.Field, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "get_fields",
		observability.AttributeAssessmentID(assessmentID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT id, assessment_id, dimension_id, type, label, position
	          FROM fields
	          WHERE assessment_id = $1
	          ORDER BY position, id`
	rows, err := s.db.QueryContext(ctx, query, assessmentID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query fields")
	}
	defer func() {
		_ = rows.Close()
	}()

	fields := []models.Field{}
	for rows.Next() {
		var field models.Field
		if err := rows.Scan(&field.ID, &field.AssessmentID, &field.DimensionID, &field.Type, &field.Label, &field.Position); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan field")
		}
		fields = append(fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate fields")
	}

	span.SetAttributes(attribute.Int("fields.count", len(fields)))
	return fields, nil
}

// CreateField inserts a new field for an assessment
func (s *AssessmentService) CreateField(ctx context.Context, field *models.Field) (result0 *models.Field, err error) {
	ctx, span := observability.TraceAssessmentFunction(ctx, "create_field",
		observability.AttributeAssessmentID(field.AssessmentID),
		attribute.String("field.type", field.Type),
	)
	defer observability.FinishSpan(span, &err)

	if field.Label == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "field label is required")
	}
	if !validFieldType(field.Type) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown field type %q", field.Type)
	}

	query := `INSERT INTO fields (assessment_id, dimension_id, type, label, position)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	err = s.db.QueryRowContext(ctx, query, field.AssessmentID, field.DimensionID, field.Type, field.Label, field.Position).Scan(&field.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create field")
	}
	return field, nil
}
