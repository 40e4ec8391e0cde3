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

// FeedbackLibraryServiceInterface defines the feedback library store operations
type FeedbackLibraryServiceInterface interface {
	GetOverallEntry(ctx context.Context, assessmentID, dimensionID int) (*models.FeedbackLibraryEntry, error)
	GetSpecificEntries(ctx context.Context, assessmentID, dimensionID int) ([]models.FeedbackLibraryEntry, error)
	GetEntriesForAssessment(ctx context.Context, assessmentID int) ([]models.FeedbackLibraryEntry, error)
	GetEntryByID(ctx context.Context, id int) (*models.FeedbackLibraryEntry, error)
	CreateEntry(ctx context.Context, entry *models.FeedbackLibraryEntry) (*models.FeedbackLibraryEntry, error)
	UpdateEntry(ctx context.Context, entry *models.FeedbackLibraryEntry) (*models.FeedbackLibraryEntry, error)
	DeleteEntry(ctx context.Context, id int) error
	ReplaceLibrary(ctx context.Context, assessmentID int, entries []models.FeedbackLibraryEntry) error
}

// FeedbackLibraryService provides access to the reusable feedback catalog
type FeedbackLibraryService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewFeedbackLibraryService creates a new FeedbackLibraryService instance
func NewFeedbackLibraryService(db *sql.DB, logger *observability.Logger) *FeedbackLibraryService {
	if db == nil {
		panic("NewFeedbackLibraryService: db is nil")
	}
	if logger == nil {
		panic("NewFeedbackLibraryService: logger is nil")
	}
	return &FeedbackLibraryService{db: db, logger: logger}
}

const feedbackLibrarySelectFields = `id, assessment_id, dimension_id, type, min_score, max_score, content, created_at, updated_at`

// GetOverallEntry returns the overall entry for (assessment, dimension), or
// nil when none exists. The catalog is expected to hold at most one; the
// lookup orders by id and takes the first row, so a duplicated overall entry
// resolves to the oldest one rather than erroring.
func (s *FeedbackLibraryService) GetOverallEntry(ctx context.Context, assessmentID, dimensionID int) (result0 *models.FeedbackLibraryEntry, err error) {
	ctx, span := observability.TraceLibraryFunction(ctx, "get_overall_entry",
		observability.AttributeAssessmentID(assessmentID),
		observability.AttributeDimensionID(dimensionID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + feedbackLibrarySelectFields + `
	          FROM feedback_library
	          WHERE assessment_id = $1 AND dimension_id = $2 AND type = $3
	          ORDER BY id
	          LIMIT 1`

	var entry models.FeedbackLibraryEntry
	err = s.db.QueryRowContext(ctx, query, assessmentID, dimensionID, models.FeedbackTypeOverall).
		Scan(&entry.ID, &entry.AssessmentID, &entry.DimensionID, &entry.Type, &entry.MinScore, &entry.MaxScore, &entry.Content, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, contextutils.WrapError(err, "failed to get overall feedback entry")
	}

	return &entry, nil
}

// GetSpecificEntries returns all specific entries for (assessment, dimension)
// in id order. An empty pool is a valid state, not an error.
func (s *FeedbackLibraryService) GetSpecificEntries(ctx context.Context, assessmentID, dimensionID int) (result0 []models.FeedbackLibraryEntry, err error) {
	ctx, span := observability.TraceLibraryFunction(ctx, "get_specific_entries",
		observability.AttributeAssessmentID(assessmentID),
		observability.AttributeDimensionID(dimensionID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + feedbackLibrarySelectFields + `
	          FROM feedback_library
	          WHERE assessment_id = $1 AND dimension_id = $2 AND type = $3
	          ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, assessmentID, dimensionID, models.FeedbackTypeSpecific)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query specific feedback entries")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := []models.FeedbackLibraryEntry{}
	for rows.Next() {
		var entry models.FeedbackLibraryEntry
		if err := rows.Scan(&entry.ID, &entry.AssessmentID, &entry.DimensionID, &entry.Type, &entry.MinScore, &entry.MaxScore, &entry.Content, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan feedback entry")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate feedback entries")
	}

	span.SetAttributes(attribute.Int("entries.count", len(entries)))
	return entries, nil
}

// GetEntriesForAssessment returns an assessment's whole catalog, grouped by
// dimension then id, for the admin library view.
func (s *FeedbackLibraryService) GetEntriesForAssessment(ctx context.Context, assessmentID int) (result0 []models.FeedbackLibraryEntry, err error) {
	ctx, span := observability.TraceLibraryFunction(ctx, "get_entries_for_assessment",
		observability.AttributeAssessmentID(assessmentID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + feedbackLibrarySelectFields + `
	          FROM feedback_library
	          WHERE assessment_id = $1
	          ORDER BY dimension_id, id`

	rows, err := s.db.QueryContext(ctx, query, assessmentID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query feedback library")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := []models.FeedbackLibraryEntry{}
	for rows.Next() {
		var entry models.FeedbackLibraryEntry
		if err := rows.Scan(&entry.ID, &entry.AssessmentID, &entry.DimensionID, &entry.Type, &entry.MinScore, &entry.MaxScore, &entry.Content, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan feedback entry")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate feedback library")
	}

	span.SetAttributes(attribute.Int("entries.count", len(entries)))
	return entries, nil
}

// GetEntryByID returns one library entry or ErrRecordNotFound
func (s *FeedbackLibraryService) GetEntryByID(ctx context.Context, id int) (result0 *models.FeedbackLibraryEntry, err error) {
	ctx, span := observability.TraceLibraryFunction(ctx, "get_entry_by_id", attribute.Int("entry.id", id))
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + feedbackLibrarySelectFields + ` FROM feedback_library WHERE id = $1`

	var entry models.FeedbackLibraryEntry
	err = s.db.QueryRowContext(ctx, query, id).
		Scan(&entry.ID, &entry.AssessmentID, &entry.DimensionID, &entry.Type, &entry.MinScore, &entry.MaxScore, &entry.Content, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, contextutils.ErrRecordNotFound
		}
		return nil, contextutils.WrapError(err, "failed to get feedback entry")
	}

	return &entry, nil
}

// CreateEntry inserts a new library entry
func (s *FeedbackLibraryService) CreateEntry(ctx context.Context, entry *models.FeedbackLibraryEntry) (result0 *models.FeedbackLibraryEntry, err error) {
	ctx, span := observability.TraceLibraryFunction(ctx, "create_entry",
		observability.AttributeAssessmentID(entry.AssessmentID),
		observability.AttributeDimensionID(entry.DimensionID),
		attribute.String("entry.type", entry.Type),
	)
	defer observability.FinishSpan(span, &err)

	now := time.Now()
	query := `INSERT INTO feedback_library (assessment_id, dimension_id, type, min_score, max_score, content, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	          RETURNING id, created_at, updated_at`

	err = s.db.QueryRowContext(ctx, query,
		entry.AssessmentID, entry.DimensionID, entry.Type, entry.MinScore, entry.MaxScore, entry.Content, now,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert feedback entry")
	}

	return entry, nil
}

// UpdateEntry updates an existing library entry by its id
func (s *FeedbackLibraryService) UpdateEntry(ctx context.Context, entry *models.FeedbackLibraryEntry) (result0 *models.FeedbackLibraryEntry, err error) {
	ctx, span := observability.TraceLibraryFunction(ctx, "update_entry", attribute.Int("entry.id", entry.ID))
	defer observability.FinishSpan(span, &err)

	query := `UPDATE feedback_library
	          SET dimension_id = $2, type = $3, min_score = $4, max_score = $5, content = $6, updated_at = $7
	          WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.DimensionID, entry.Type, entry.MinScore, entry.MaxScore, entry.Content, time.Now(),
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update feedback entry")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "feedback entry %d", entry.ID)
	}

	return s.GetEntryByID(ctx, entry.ID)
}

// DeleteEntry deletes one library entry by id
func (s *FeedbackLibraryService) DeleteEntry(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceLibraryFunction(ctx, "delete_entry", attribute.Int("entry.id", id))
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM feedback_library WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete feedback entry")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "feedback entry %d", id)
	}

	return nil
}

// ReplaceLibrary swaps an assessment's whole catalog for the given entries in
// one transaction. Catalog loads from the adm CLI go through here so a failed
// load never leaves the library half-replaced.
func (s *FeedbackLibraryService) ReplaceLibrary(ctx context.Context, assessmentID int, entries []models.FeedbackLibraryEntry) (err error) {
	ctx, span := observability.TraceLibraryFunction(ctx, "replace_library",
		observability.AttributeAssessmentID(assessmentID),
		attribute.Int("entries.count", len(entries)),
	)
	defer observability.FinishSpan(span, &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Error(ctx, "Failed to rollback library replace", rollbackErr, map[string]interface{}{
					"assessment_id": assessmentID,
				})
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM feedback_library WHERE assessment_id = $1`, assessmentID); err != nil {
		return contextutils.WrapError(err, "failed to clear feedback library")
	}

	insertQuery := `INSERT INTO feedback_library (assessment_id, dimension_id, type, min_score, max_score, content, created_at, updated_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	now := time.Now()
	for i := range entries {
		entry := &entries[i]
		if _, err = tx.ExecContext(ctx, insertQuery,
			assessmentID, entry.DimensionID, entry.Type, entry.MinScore, entry.MaxScore, entry.Content, now,
		); err != nil {
			return contextutils.WrapError(err, "failed to insert feedback entry")
		}
	}

	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(err, "failed to commit library replace")
	}

	s.logger.Info(ctx, "Feedback library replaced", map[string]interface{}{
		"assessment_id": assessmentID,
		"entries":       len(entries),
	})

	return nil
}
