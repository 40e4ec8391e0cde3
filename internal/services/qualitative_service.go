package services

import (
	"context"
	"database/sql"
	"strings"

	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// QualitativeFeedbackServiceInterface defines 360 free-text aggregation
type QualitativeFeedbackServiceInterface interface {
	Aggregate360Feedback(ctx context.Context, targetID int) ([]models.DimensionFeedback, error)
}

// QualitativeFeedbackService collects the free-text answers every completed
// rater assignment gave about one subject and folds them into one blob per
// dimension. Rater identity is discarded on purpose.
type QualitativeFeedbackService struct {
	assignments AssignmentServiceInterface
	answers     AnswerServiceInterface
	logger      *observability.Logger
}

// NewQualitativeFeedbackService creates a new QualitativeFeedbackService instance
func NewQualitativeFeedbackService(assignments AssignmentServiceInterface, answers AnswerServiceInterface, logger *observability.Logger) *QualitativeFeedbackService {
	if assignments == nil {
		panic("NewQualitativeFeedbackService: assignments is nil")
	}
	if answers == nil {
		panic("NewQualitativeFeedbackService: answers is nil")
	}
	if logger == nil {
		panic("NewQualitativeFeedbackService: logger is nil")
	}
	return &QualitativeFeedbackService{assignments: assignments, answers: answers, logger: logger}
}

// Group360Feedback folds text answers into one DimensionFeedback per distinct
// dimension, null dimension included as its own "general" group. Groups appear
// in first-seen order and each group's responses are joined with a blank line,
// both following the order of the input slice.
func Group360Feedback(answers []models.TextAnswer) []models.DimensionFeedback {
	type group struct {
		dimensionID *int
		parts       []string
	}

	index := make(map[sql.NullInt32]int)
	groups := []group{}
	for i := range answers {
		key := sql.NullInt32{}
		if answers[i].DimensionID.Valid {
			key = sql.NullInt32{Int32: answers[i].DimensionID.Int32, Valid: true}
		}
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			var dimensionID *int
			if key.Valid {
				id := int(key.Int32)
				dimensionID = &id
			}
			groups = append(groups, group{dimensionID: dimensionID})
		}
		groups[pos].parts = append(groups[pos].parts, answers[i].Value)
	}

	result := make([]models.DimensionFeedback, len(groups))
	for i := range groups {
		result[i] = models.DimensionFeedback{
			DimensionID: groups[i].dimensionID,
			Feedback:    strings.Join(groups[i].parts, "\n\n"),
		}
	}
	return result
}

// Aggregate360Feedback returns the grouped free-text feedback written about
// one subject across all completed assignments targeting them. A subject
// nobody has reviewed yet yields an empty slice.
func (s *QualitativeFeedbackService) Aggregate360Feedback(ctx context.Context, targetID int) (result0 []models.DimensionFeedback, err error) {
	ctx, span := observability.TraceQualitativeFunction(ctx, "aggregate_360_feedback",
		observability.AttributeTargetID(targetID),
	)
	defer observability.FinishSpan(span, &err)

	assignments, err := s.assignments.GetCompletedAssignmentsByTarget(ctx, targetID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to fetch completed assignments for target %d", targetID)
	}
	if len(assignments) == 0 {
		return []models.DimensionFeedback{}, nil
	}

	assignmentIDs := make([]int, len(assignments))
	for i := range assignments {
		assignmentIDs[i] = assignments[i].ID
	}

	answers, err := s.answers.GetTextAnswersForAssignments(ctx, assignmentIDs)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to fetch text answers for target %d", targetID)
	}

	feedback := Group360Feedback(answers)
	span.SetAttributes(attribute.Int("dimensions.count", len(feedback)))
	return feedback, nil
}
