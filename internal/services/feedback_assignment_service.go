package services

import (
	"context"
	"math/rand"

	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Selector picks one entry from a non-empty pool of eligible feedback
// entries. The selection is the only designed non-determinism in report
// computation, so it is injected: production draws uniformly from math/rand,
// tests substitute deterministic selectors and assert membership.
type Selector func(pool []models.FeedbackLibraryEntry) models.FeedbackLibraryEntry

// RandomSelector returns the production Selector, a uniform draw over the pool
func RandomSelector() Selector {
	return func(pool []models.FeedbackLibraryEntry) models.FeedbackLibraryEntry {
		return pool[rand.Intn(len(pool))]
	}
}

// EligibleEntries filters a pool to the entries whose score window contains
// the given score. Order is preserved.
func EligibleEntries(entries []models.FeedbackLibraryEntry, score float64) []models.FeedbackLibraryEntry {
	eligible := make([]models.FeedbackLibraryEntry, 0, len(entries))
	for i := range entries {
		if entries[i].Matches(score) {
			eligible = append(eligible, entries[i])
		}
	}
	return eligible
}

// FeedbackAssignmentServiceInterface defines the feedback matching engine
type FeedbackAssignmentServiceInterface interface {
	AssignFeedback(ctx context.Context, assessmentID int, scores []models.DimensionScore) ([]models.ReportFeedbackAssignment, error)
}

// FeedbackAssignmentService matches an assignment's dimension scores against
// the feedback library: per dimension, at most one overall entry (when the
// score falls in its window) and exactly one randomly chosen specific entry
// from the eligible pool. Re-running may pick a different specific text;
// callers needing stability persist the result.
type FeedbackAssignmentService struct {
	library  FeedbackLibraryServiceInterface
	selector Selector
	logger   *observability.Logger
}

// NewFeedbackAssignmentService creates the engine with the production selector
func NewFeedbackAssignmentService(library FeedbackLibraryServiceInterface, logger *observability.Logger) *FeedbackAssignmentService {
	return NewFeedbackAssignmentServiceWithSelector(library, RandomSelector(), logger)
}

// NewFeedbackAssignmentServiceWithSelector creates the engine with an
// injected selector
func NewFeedbackAssignmentServiceWithSelector(library FeedbackLibraryServiceInterface, selector Selector, logger *observability.Logger) *FeedbackAssignmentService {
	if library == nil {
		panic("NewFeedbackAssignmentService: library is nil")
	}
	if selector == nil {
		panic("NewFeedbackAssignmentService: selector is nil")
	}
	if logger == nil {
		panic("NewFeedbackAssignmentService: logger is nil")
	}
	return &FeedbackAssignmentService{library: library, selector: selector, logger: logger}
}

// AssignFeedback produces the feedback assignments for one assignment's
// scores. Scores with a null dimension id (roll-up rows) are skipped; no
// scores at all yields an empty list, not an error. Library fetch errors
// abort the computation and propagate.
func (s *FeedbackAssignmentService) AssignFeedback(ctx context.Context, assessmentID int, scores []models.DimensionScore) (result0 []models.ReportFeedbackAssignment, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "assign_feedback",
		observability.AttributeAssessmentID(assessmentID),
		attribute.Int("scores.count", len(scores)),
	)
	defer observability.FinishSpan(span, &err)

	assignments := []models.ReportFeedbackAssignment{}

	for i := range scores {
		score := &scores[i]
		if !score.DimensionID.Valid {
			continue
		}
		dimensionID := int(score.DimensionID.Int32)

		overall, err := s.library.GetOverallEntry(ctx, assessmentID, dimensionID)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to fetch overall entry for dimension %d", dimensionID)
		}
		if overall != nil && overall.Matches(score.Score) {
			assignments = append(assignments, models.ReportFeedbackAssignment{
				DimensionID:     dimensionID,
				FeedbackID:      overall.ID,
				FeedbackContent: overall.Content,
				Type:            models.FeedbackTypeOverall,
			})
		}

		pool, err := s.library.GetSpecificEntries(ctx, assessmentID, dimensionID)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to fetch specific entries for dimension %d", dimensionID)
		}
		eligible := EligibleEntries(pool, score.Score)
		if len(eligible) == 0 {
			continue
		}

		chosen := s.selector(eligible)
		assignments = append(assignments, models.ReportFeedbackAssignment{
			DimensionID:     dimensionID,
			FeedbackID:      chosen.ID,
			FeedbackContent: chosen.Content,
			Type:            models.FeedbackTypeSpecific,
		})
	}

	span.SetAttributes(attribute.Int("assignments.count", len(assignments)))
	return assignments, nil
}
