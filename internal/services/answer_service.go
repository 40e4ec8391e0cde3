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

// AnswerServiceInterface defines free-text answer store operations
type AnswerServiceInterface interface {
	GetTextAnswersForAssignments(ctx context.Context, assignmentIDs []int) ([]models.TextAnswer, error)
	CreateTextAnswers(ctx context.Context, answers []models.TextAnswer) error
}

// AnswerService provides access to submitted free-text answers
type AnswerService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAnswerService creates a new AnswerService instance
func NewAnswerService(db *sql.DB, logger *observability.Logger) *AnswerService {
	if db == nil {
		panic("NewAnswerService: db is nil")
	}
	if logger == nil {
		panic("NewAnswerService: logger is nil")
	}
	return &AnswerService{db: db, logger: logger}
}

// GetTextAnswersForAssignments returns the answers to text_input fields across
// the given assignments, with each answer carrying the dimension of its field.
// Rows come back ordered by answer id so aggregation output is stable. An
// empty id set returns an empty slice without touching the database.
func (s *AnswerService) GetTextAnswersForAssignments(ctx context.Context, assignmentIDs []int) (result0 []models.TextAnswer, err error) {
	ctx, span := observability.TraceAnswerFunction(ctx, "get_text_answers_for_assignments",
		attribute.Int("assignments.count", len(assignmentIDs)),
	)
	defer observability.FinishSpan(span, &err)

	answers := []models.TextAnswer{}
	if len(assignmentIDs) == 0 {
		return answers, nil
	}

	placeholders := make([]string, len(assignmentIDs))
	args := make([]interface{}, 0, len(assignmentIDs)+1)
	for i, id := range assignmentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	args = append(args, models.FieldTypeTextInput)

	query := fmt.Sprintf(`SELECT ta.id, ta.assignment_id, ta.field_id, f.dimension_id, ta.value
	                      FROM text_answers ta
	                      JOIN fields f ON ta.field_id = f.id
	                      WHERE ta.assignment_id IN (%s) AND f.type = $%d
	                      ORDER BY ta.id`, strings.Join(placeholders, ","), len(assignmentIDs)+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query text answers")
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var answer models.TextAnswer
		if err := rows.Scan(&answer.ID, &answer.AssignmentID, &answer.FieldID, &answer.DimensionID, &answer.Value); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan text answer")
		}
		answers = append(answers, answer)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate text answers")
	}

	span.SetAttributes(attribute.Int("answers.count", len(answers)))
	return answers, nil
}

// CreateTextAnswers inserts the given answers in one statement. Dimension ids
// are not stored here, they live on the field row.
func (s *AnswerService) CreateTextAnswers(ctx context.Context, answers []models.TextAnswer) (err error) {
	ctx, span := observability.TraceAnswerFunction(ctx, "create_text_answers",
		attribute.Int("answers.count", len(answers)),
	)
	defer observability.FinishSpan(span, &err)

	if len(answers) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(answers))
	valueArgs := make([]interface{}, 0, len(answers)*3)
	for i := range answers {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3))
		valueArgs = append(valueArgs, answers[i].AssignmentID, answers[i].FieldID, answers[i].Value)
	}

	query := fmt.Sprintf("INSERT INTO text_answers (assignment_id, field_id, value) VALUES %s", strings.Join(valueStrings, ", "))
	if _, err := s.db.ExecContext(ctx, query, valueArgs...); err != nil {
		return contextutils.WrapError(err, "failed to insert text answers")
	}

	return nil
}
