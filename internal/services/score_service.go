package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ScoreServiceInterface defines the dimension score store operations
type ScoreServiceInterface interface {
	GetScoresForAssignment(ctx context.Context, assignmentID int) ([]models.DimensionScore, error)
	CreateScores(ctx context.Context, assignmentID int, scores []models.DimensionScore) error
}

// ScoreService provides access to per-dimension aggregate scores
type ScoreService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewScoreService creates a new ScoreService instance
func NewScoreService(db *sql.DB, logger *observability.Logger) *ScoreService {
	if db == nil {
		panic("NewScoreService: db is nil")
	}
	if logger == nil {
		panic("NewScoreService: logger is nil")
	}
	return &ScoreService{db: db, logger: logger}
}

// GetScoresForAssignment returns an assignment's dimension scores ordered by
// dimension position. Roll-up rows (null dimension) sort last.
func (s *ScoreService) GetScoresForAssignment(ctx context.Context, assignmentID int) (result0 []models.DimensionScore, err error) {
	ctx, span := observability.TraceScoreFunction(ctx, "get_scores_for_assignment",
		observability.AttributeAssignmentID(assignmentID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT s.id, s.assignment_id, s.dimension_id, s.score
	          FROM dimension_scores s
	          LEFT JOIN dimensions d ON d.id = s.dimension_id
	          WHERE s.assignment_id = $1
	          ORDER BY d.position NULLS LAST, s.id`

	rows, err := s.db.QueryContext(ctx, query, assignmentID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query dimension scores")
	}
	defer func() {
		_ = rows.Close()
	}()

	scores := []models.DimensionScore{}
	for rows.Next() {
		var score models.DimensionScore
		if err := rows.Scan(&score.ID, &score.AssignmentID, &score.DimensionID, &score.Score); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan dimension score")
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate dimension scores")
	}

	span.SetAttributes(attribute.Int("scores.count", len(scores)))
	return scores, nil
}

// CreateScores bulk-inserts dimension scores for one assignment. Used by the
// import surface; the single statement keeps the batch atomic.
func (s *ScoreService) CreateScores(ctx context.Context, assignmentID int, scores []models.DimensionScore) (err error) {
	ctx, span := observability.TraceScoreFunction(ctx, "create_scores",
		observability.AttributeAssignmentID(assignmentID),
		attribute.Int("scores.count", len(scores)),
	)
	defer observability.FinishSpan(span, &err)

	if len(scores) == 0 {
		return nil
	}

	values := make([]string, 0, len(scores))
	args := make([]interface{}, 0, len(scores)*3)
	idx := 1
	for _, score := range scores {
		values = append(values, fmt.Sprintf("($%d, $%d, $%d)", idx, idx+1, idx+2))
		args = append(args, assignmentID, score.DimensionID, score.Score)
		idx += 3
	}

	query := fmt.Sprintf(
		"INSERT INTO dimension_scores (assignment_id, dimension_id, score) VALUES %s",
		strings.Join(values, ", "),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return contextutils.WrapError(err, "failed to insert dimension scores")
	}

	return nil
}
