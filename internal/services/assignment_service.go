// Package services provides business logic services for the talent assessment application.
package services

import (
	"context"
	"database/sql"
	"time"

	"talentapp/internal/database"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AssignmentServiceInterface defines the assignment store operations
type AssignmentServiceInterface interface {
	GetAssignmentsForClient(ctx context.Context, clientID int) ([]models.Assignment, error)
	GetCompletedAssignmentsByTarget(ctx context.Context, targetID int) ([]models.Assignment, error)
	GetAssignmentByID(ctx context.Context, id int) (*models.Assignment, error)
	CreateAssignment(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error)
	MarkCompleted(ctx context.Context, id int) error
	GetCompletedWithoutReport(ctx context.Context, limit int) ([]models.Assignment, error)
}

// AssignmentService provides access to assessment assignments
type AssignmentService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAssignmentService creates a new AssignmentService instance
func NewAssignmentService(db *sql.DB, logger *observability.Logger) *AssignmentService {
	if db == nil {
		panic("NewAssignmentService: db is nil")
	}
	if logger == nil {
		panic("NewAssignmentService: logger is nil")
	}
	return &AssignmentService{db: db, logger: logger}
}

const assignmentSelectFields = `id, user_id, assessment_id, survey_id, target_id, completed, completed_at, created_at`

// GetAssignmentsForClient returns every assignment belonging to the client's
// users, in stable id order. The survey aggregation consumes this set whole.
func (s *AssignmentService) GetAssignmentsForClient(ctx context.Context, clientID int) (result0 []models.Assignment, err error) {
	ctx, span := observability.TraceAssignmentFunction(ctx, "get_assignments_for_client",
		observability.AttributeClientID(clientID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT a.id, a.user_id, a.assessment_id, a.survey_id, a.target_id, a.completed, a.completed_at, a.created_at
	          FROM assignments a
	          JOIN users u ON u.id = a.user_id
	          WHERE u.client_id = $1
	          ORDER BY a.id`

	rows, err := s.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query client assignments")
	}
	defer func() {
		_ = rows.Close()
	}()

	assignments := []models.Assignment{}
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.AssessmentID, &a.SurveyID, &a.TargetID, &a.Completed, &a.CompletedAt, &a.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan assignment")
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate client assignments")
	}

	span.SetAttributes(attribute.Int("assignments.count", len(assignments)))
	return assignments, nil
}

// GetCompletedAssignmentsByTarget returns the completed assignments rating
// one subject. Pending raters are excluded so their answers never leak into
// a 360 report.
func (s *AssignmentService) GetCompletedAssignmentsByTarget(ctx context.Context, targetID int) (result0 []models.Assignment, err error) {
	ctx, span := observability.TraceAssignmentFunction(ctx, "get_completed_assignments_by_target",
		observability.AttributeTargetID(targetID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + assignmentSelectFields + `
	          FROM assignments
	          WHERE target_id = $1 AND completed = TRUE
	          ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, targetID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query assignments by target")
	}
	defer func() {
		_ = rows.Close()
	}()

	assignments := []models.Assignment{}
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.AssessmentID, &a.SurveyID, &a.TargetID, &a.Completed, &a.CompletedAt, &a.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan assignment")
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate target assignments")
	}

	span.SetAttributes(attribute.Int("assignments.count", len(assignments)))
	return assignments, nil
}

// GetAssignmentByID returns one assignment or ErrAssignmentNotFound
func (s *AssignmentService) GetAssignmentByID(ctx context.Context, id int) (result0 *models.Assignment, err error) {
	ctx, span := observability.TraceAssignmentFunction(ctx, "get_assignment_by_id",
		observability.AttributeAssignmentID(id),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + assignmentSelectFields + ` FROM assignments WHERE id = $1`

	var a models.Assignment
	err = s.db.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.UserID, &a.AssessmentID, &a.SurveyID, &a.TargetID, &a.Completed, &a.CompletedAt, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, contextutils.ErrAssignmentNotFound
		}
		return nil, contextutils.WrapError(err, "failed to get assignment")
	}
	return &a, nil
}

// CreateAssignment inserts a new assignment row
func (s *AssignmentService) CreateAssignment(ctx context.Context, assignment *models.Assignment) (result0 *models.Assignment, err error) {
	ctx, span := observability.TraceAssignmentFunction(ctx, "create_assignment",
		observability.AttributeUserID(assignment.UserID),
		observability.AttributeAssessmentID(assignment.AssessmentID),
	)
	defer observability.FinishSpan(span, &err)

	return s.createAssignment(ctx, s.db, assignment)
}

// createAssignment inserts via q, which is either the pooled handle or an
// open transaction (bulk imports run inside one).
func (s *AssignmentService) createAssignment(ctx context.Context, q rowQueryer, assignment *models.Assignment) (*models.Assignment, error) {
	query := `INSERT INTO assignments (user_id, assessment_id, survey_id, target_id, completed, created_at)
	          VALUES ($1, $2, $3, $4, FALSE, $5)
	          RETURNING id, created_at`

	err := q.QueryRowContext(ctx, query,
		assignment.UserID,
		assignment.AssessmentID,
		assignment.SurveyID,
		assignment.TargetID,
		time.Now(),
	).Scan(&assignment.ID, &assignment.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert assignment")
	}

	return assignment, nil
}

// MarkCompleted flags an assignment as completed. The completion timestamp is
// set once; re-completing an already completed assignment keeps the original.
func (s *AssignmentService) MarkCompleted(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceAssignmentFunction(ctx, "mark_assignment_completed",
		observability.AttributeAssignmentID(id),
	)
	defer observability.FinishSpan(span, &err)

	query := `UPDATE assignments
	          SET completed = TRUE, completed_at = COALESCE(completed_at, $2)
	          WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return contextutils.WrapError(err, "failed to mark assignment completed")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrAssignmentNotFound, "assignment %d", id)
	}

	return nil
}

// GetCompletedWithoutReport returns up to limit completed assignments that
// have no report row yet, oldest completion first. The worker sweep feeds
// each of these to the report builder. A missing reports table is surfaced
// as the schema-missing error so the operator knows to run migrations.
func (s *AssignmentService) GetCompletedWithoutReport(ctx context.Context, limit int) (result0 []models.Assignment, err error) {
	ctx, span := observability.TraceAssignmentFunction(ctx, "get_completed_without_report",
		observability.AttributeLimit(limit),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT a.id, a.user_id, a.assessment_id, a.survey_id, a.target_id, a.completed, a.completed_at, a.created_at
	          FROM assignments a
	          LEFT JOIN reports r ON r.assignment_id = a.id
	          WHERE a.completed = TRUE AND r.id IS NULL
	          ORDER BY a.completed_at
	          LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		if database.IsUndefinedTable(err) {
			return nil, contextutils.WrapError(contextutils.ErrReportSchemaMissing, "failed to query assignments without report")
		}
		return nil, contextutils.WrapError(err, "failed to query assignments without report")
	}
	defer func() {
		_ = rows.Close()
	}()

	assignments := []models.Assignment{}
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.AssessmentID, &a.SurveyID, &a.TargetID, &a.Completed, &a.CompletedAt, &a.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan assignment")
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate assignments without report")
	}

	span.SetAttributes(attribute.Int("assignments.count", len(assignments)))
	return assignments, nil
}
