package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.opentelemetry.io/otel/attribute"
)

// Completion buckets classify a survey's completion ratio for dashboard display.
const (
	CompletionBucketComplete = "complete"
	CompletionBucketHigh     = "high"
	CompletionBucketLow      = "low"
)

// SurveyServiceInterface defines the survey dashboard operations
type SurveyServiceInterface interface {
	GetClientSurveys(ctx context.Context, clientID int, assessmentID *int) ([]models.SurveySummary, error)
	CompletionsByDay(ctx context.Context, clientID int, from, to openapi_types.Date) ([]DayCompletion, error)
}

// DayCompletion is one day in a client's completion timeline. Days with no
// completions are zero-filled so charts render a continuous series.
type DayCompletion struct {
	Date      openapi_types.Date `json:"date"`
	Completed int                `json:"completed"`
}

// surveyKey is the composite grouping key for survey aggregation. A survey id
// is only unique within one assessment's namespace.
type surveyKey struct {
	surveyID     string
	assessmentID int
}

// AggregateSurveys groups raw assignment rows into survey summaries: one row
// per (survey id, assessment id), counting totals and completions. The first
// created-at is the minimum across the group, so late-arriving assignments in
// the same administration do not shift the displayed date. Rows without a
// survey id are excluded entirely; a non-null empty string counts as no
// survey id, since it names no administration. Output is ordered by first created-at
// descending. Pure transform; assessment titles are resolved by the caller.
func AggregateSurveys(assignments []models.Assignment, filterAssessmentID *int) []models.SurveySummary {
	groups := make(map[surveyKey]*models.SurveySummary)

	for i := range assignments {
		a := &assignments[i]
		if !a.SurveyID.Valid || a.SurveyID.String == "" {
			continue
		}
		if filterAssessmentID != nil && a.AssessmentID != *filterAssessmentID {
			continue
		}

		key := surveyKey{surveyID: a.SurveyID.String, assessmentID: a.AssessmentID}
		summary, ok := groups[key]
		if !ok {
			summary = &models.SurveySummary{
				SurveyID:       a.SurveyID.String,
				AssessmentID:   a.AssessmentID,
				FirstCreatedAt: a.CreatedAt,
			}
			groups[key] = summary
		}

		summary.TotalAssignments++
		if a.Completed {
			summary.CompletedAssignments++
		}
		if a.CreatedAt.Before(summary.FirstCreatedAt) {
			summary.FirstCreatedAt = a.CreatedAt
		}
	}

	summaries := make([]models.SurveySummary, 0, len(groups))
	for _, s := range groups {
		summaries = append(summaries, *s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].FirstCreatedAt.Equal(summaries[j].FirstCreatedAt) {
			return summaries[i].FirstCreatedAt.After(summaries[j].FirstCreatedAt)
		}
		if summaries[i].SurveyID != summaries[j].SurveyID {
			return summaries[i].SurveyID < summaries[j].SurveyID
		}
		return summaries[i].AssessmentID < summaries[j].AssessmentID
	})

	return summaries
}

// CompletionBucket classifies a completion ratio: complete only when every
// assignment is done (and there is at least one), high at 50% and above,
// low below. The ratio is rounded to whole percent before comparison.
func CompletionBucket(completed, total int) string {
	if total <= 0 {
		return CompletionBucketLow
	}
	if completed == total {
		return CompletionBucketComplete
	}
	ratio := math.Round(100 * float64(completed) / float64(total))
	if ratio >= 50 {
		return CompletionBucketHigh
	}
	return CompletionBucketLow
}

// SurveyService serves the survey dashboard for clients
type SurveyService struct {
	db          *sql.DB
	assignments AssignmentServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewSurveyService creates a new SurveyService instance
func NewSurveyService(db *sql.DB, assignments AssignmentServiceInterface, cfg *config.Config, logger *observability.Logger) *SurveyService {
	if db == nil {
		panic("NewSurveyService: db is nil")
	}
	if logger == nil {
		panic("NewSurveyService: logger is nil")
	}
	return &SurveyService{db: db, assignments: assignments, cfg: cfg, logger: logger}
}

// GetClientSurveys returns the survey summaries for one client, optionally
// filtered to a single assessment, newest administration first.
func (s *SurveyService) GetClientSurveys(ctx context.Context, clientID int, assessmentID *int) (result0 []models.SurveySummary, err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "get_client_surveys",
		observability.AttributeClientID(clientID),
	)
	defer observability.FinishSpan(span, &err)

	assignments, err := s.assignments.GetAssignmentsForClient(ctx, clientID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to fetch assignments for survey summaries")
	}

	summaries := AggregateSurveys(assignments, assessmentID)
	if err := s.resolveAssessmentTitles(ctx, summaries); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("surveys.count", len(summaries)))
	return summaries, nil
}

// resolveAssessmentTitles fills in AssessmentTitle on each summary in place
func (s *SurveyService) resolveAssessmentTitles(ctx context.Context, summaries []models.SurveySummary) (err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "resolve_assessment_titles")
	defer observability.FinishSpan(span, &err)

	if len(summaries) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var ids []int
	for i := range summaries {
		if !seen[summaries[i].AssessmentID] {
			seen[summaries[i].AssessmentID] = true
			ids = append(ids, summaries[i].AssessmentID)
		}
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf("SELECT id, title FROM assessments WHERE id IN (%s)", strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return contextutils.WrapError(err, "failed to query assessment titles")
	}
	defer func() {
		_ = rows.Close()
	}()

	titles := make(map[int]string, len(ids))
	for rows.Next() {
		var id int
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return contextutils.WrapError(err, "failed to scan assessment title")
		}
		titles[id] = title
	}
	if err := rows.Err(); err != nil {
		return contextutils.WrapError(err, "failed to iterate assessment titles")
	}

	for i := range summaries {
		summaries[i].AssessmentTitle = titles[summaries[i].AssessmentID]
	}
	return nil
}

// CompletionsByDay returns the per-day completed assignment counts for one
// client between two dates inclusive. The window is clamped to the configured
// maximum range; days without completions appear with a zero count.
func (s *SurveyService) CompletionsByDay(ctx context.Context, clientID int, from, to openapi_types.Date) (result0 []DayCompletion, err error) {
	ctx, span := observability.TraceSurveyFunction(ctx, "completions_by_day",
		observability.AttributeClientID(clientID),
	)
	defer observability.FinishSpan(span, &err)

	maxDays := config.DefaultCompletionRangeDays
	if s.cfg != nil {
		maxDays = s.cfg.CompletionRangeDays()
	}

	start, end, err := contextutils.ClampDayRange(from.Time, to.Time, maxDays)
	if err != nil {
		return nil, err
	}

	query := `SELECT DATE(a.completed_at AT TIME ZONE 'UTC') AS day, COUNT(*)
	          FROM assignments a
	          JOIN users u ON u.id = a.user_id
	          WHERE u.client_id = $1
	            AND a.completed = TRUE
	            AND a.completed_at >= $2
	            AND a.completed_at < $3
	          GROUP BY day
	          ORDER BY day`

	rows, err := s.db.QueryContext(ctx, query, clientID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query completions by day")
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan completion count")
		}
		counts[day.Format("2006-01-02")] = count
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate completion counts")
	}

	days := contextutils.DaysBetween(start, end)
	timeline := make([]DayCompletion, 0, len(days))
	for _, day := range days {
		timeline = append(timeline, DayCompletion{
			Date:      openapi_types.Date{Time: day},
			Completed: counts[day.Format("2006-01-02")],
		})
	}

	span.SetAttributes(attribute.Int("timeline.days", len(timeline)))
	return timeline, nil
}
