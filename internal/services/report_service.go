package services

import (
	"context"
	"database/sql"
	"time"

	"talentapp/internal/config"
	"talentapp/internal/database"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"
)

// ReportServiceInterface defines report computation, persistence and retrieval
type ReportServiceInterface interface {
	BuildReport(ctx context.Context, assignmentID int) (*models.Report, error)
	RebuildReport(ctx context.Context, assignmentID int) (*models.Report, error)
	GetReport(ctx context.Context, assignmentID int) (*models.Report, error)
}

// reportSelectFields is the standard set of fields for report queries
const reportSelectFields = "id, assignment_id, assessment_id, user_id, kind, content, created_at, updated_at"

// ReportService computes report content for completed assignments and stores
// it as one JSONB document per assignment. Rebuilding replaces the stored
// content in place, so the latest build always wins.
type ReportService struct {
	db          *sql.DB
	assignments AssignmentServiceInterface
	assessments AssessmentServiceInterface
	scores      ScoreServiceInterface
	feedback    FeedbackAssignmentServiceInterface
	qualitative QualitativeFeedbackServiceInterface
	benchmarks  BenchmarkServiceInterface
	users       UserServiceInterface
	clients     ClientServiceInterface
	exporter    ExportNotifierServiceInterface
	email       EmailServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewReportService creates a new ReportService instance
func NewReportService(
	db *sql.DB,
	assignments AssignmentServiceInterface,
	assessments AssessmentServiceInterface,
	scores ScoreServiceInterface,
	feedback FeedbackAssignmentServiceInterface,
	qualitative QualitativeFeedbackServiceInterface,
	benchmarks BenchmarkServiceInterface,
	users UserServiceInterface,
	clients ClientServiceInterface,
	exporter ExportNotifierServiceInterface,
	email EmailServiceInterface,
	cfg *config.Config,
	logger *observability.Logger,
) *ReportService {
	return &ReportService{
		db:          db,
		assignments: assignments,
		assessments: assessments,
		scores:      scores,
		feedback:    feedback,
		qualitative: qualitative,
		benchmarks:  benchmarks,
		users:       users,
		clients:     clients,
		exporter:    exporter,
		email:       email,
		cfg:         cfg,
		logger:      logger,
	}
}

// BuildReport computes and persists the report for a completed assignment.
// Library assessments get feedback entries plus industry benchmarks; 360
// assessments get the qualitative groups for the assignment's target.
func (s *ReportService) BuildReport(ctx context.Context, assignmentID int) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "build_report",
		observability.AttributeAssignmentID(assignmentID),
	)
	defer observability.FinishSpan(span, &err)

	assignment, err := s.assignments.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !assignment.Completed {
		return nil, contextutils.WrapErrorf(contextutils.ErrAssignmentNotCompleted, "assignment %d", assignmentID)
	}

	assessment, err := s.assessments.GetAssessmentByID(ctx, assignment.AssessmentID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttributeReportKind(assessment.Kind))

	report := &models.Report{
		AssignmentID: assignment.ID,
		AssessmentID: assessment.ID,
		UserID:       assignment.UserID,
		Kind:         assessment.Kind,
		Content:      models.ReportContent{Kind: assessment.Kind},
	}

	if assessment.Is360() {
		err = s.build360Content(ctx, assignment, report)
	} else {
		err = s.buildLibraryContent(ctx, assignment, assessment, report)
	}
	if err != nil {
		return nil, err
	}

	stored, err := s.upsertReport(ctx, report)
	if err != nil {
		return nil, err
	}

	s.notifyReportReady(ctx, stored, assessment)

	return stored, nil
}

// RebuildReport recomputes a report from current data. Same path as the
// first build; the upsert replaces whatever was stored before.
func (s *ReportService) RebuildReport(ctx context.Context, assignmentID int) (*models.Report, error) {
	return s.BuildReport(ctx, assignmentID)
}

// GetReport returns the persisted report for an assignment
func (s *ReportService) GetReport(ctx context.Context, assignmentID int) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "get_report",
		observability.AttributeAssignmentID(assignmentID),
	)
	defer observability.FinishSpan(span, &err)

	var report models.Report
	var content string
	err = s.db.QueryRowContext(ctx, `
		SELECT `+reportSelectFields+`
		FROM reports
		WHERE assignment_id = $1
	`, assignmentID).Scan(
		&report.ID,
		&report.AssignmentID,
		&report.AssessmentID,
		&report.UserID,
		&report.Kind,
		&content,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, contextutils.WrapErrorf(contextutils.ErrReportNotFound, "assignment %d", assignmentID)
		}
		if database.IsUndefinedTable(err) {
			return nil, contextutils.ErrReportSchemaMissing
		}
		s.logger.Error(ctx, "Failed to get report", err, map[string]interface{}{"assignment_id": assignmentID})
		return nil, contextutils.WrapErrorf(err, "failed to get report for assignment %d", assignmentID)
	}

	if err = report.UnmarshalContentFromJSON(content); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to unmarshal report content for assignment %d", assignmentID)
	}

	span.SetAttributes(observability.AttributeReportKind(report.Kind))
	return &report, nil
}

// build360Content fills in the qualitative groups for the assignment's
// target. The subject of a 360 report is the rated target rather than the
// respondent, so the report's user id is switched to the target.
func (s *ReportService) build360Content(ctx context.Context, assignment *models.Assignment, report *models.Report) error {
	if !assignment.TargetID.Valid {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "360 assignment %d has no target", assignment.ID)
	}
	targetID := int(assignment.TargetID.Int32)

	qualitative, err := s.qualitative.Aggregate360Feedback(ctx, targetID)
	if err != nil {
		return err
	}

	report.UserID = targetID
	report.Content.Qualitative = qualitative
	return nil
}

// buildLibraryContent computes feedback entries from the assignment's scores
// and attaches the subject's industry benchmarks when they exist.
func (s *ReportService) buildLibraryContent(ctx context.Context, assignment *models.Assignment, assessment *models.Assessment, report *models.Report) error {
	scores, err := s.scores.GetScoresForAssignment(ctx, assignment.ID)
	if err != nil {
		return err
	}

	feedback, err := s.feedback.AssignFeedback(ctx, assessment.ID, scores)
	if err != nil {
		return err
	}
	report.Content.Feedback = feedback

	benchmarks, err := s.benchmarksForSubject(ctx, assignment.UserID, assessment.ID)
	if err != nil {
		return err
	}
	report.Content.Benchmarks = benchmarks
	return nil
}

// benchmarksForSubject resolves the subject's client industry and returns the
// matching benchmark values. Users without a client, and clients without an
// industry, get no benchmarks rather than an error.
func (s *ReportService) benchmarksForSubject(ctx context.Context, userID, assessmentID int) ([]models.ReportBenchmark, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.ClientID.Valid {
		return nil, nil
	}

	client, err := s.clients.GetClientByID(ctx, int(user.ClientID.Int32))
	if err != nil {
		return nil, err
	}
	if !client.IndustryID.Valid {
		return nil, nil
	}

	rows, err := s.benchmarks.GetBenchmarks(ctx, assessmentID, int(client.IndustryID.Int32))
	if err != nil {
		return nil, err
	}

	benchmarks := make([]models.ReportBenchmark, 0, len(rows))
	for _, row := range rows {
		benchmarks = append(benchmarks, models.ReportBenchmark{DimensionID: row.DimensionID, Value: row.Value})
	}
	return benchmarks, nil
}

// upsertReport stores the computed report, replacing any previous build for
// the same assignment
func (s *ReportService) upsertReport(ctx context.Context, report *models.Report) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "upsert_report",
		observability.AttributeAssignmentID(report.AssignmentID),
		observability.AttributeReportKind(report.Kind),
	)
	defer observability.FinishSpan(span, &err)

	content, err := report.MarshalContentToJSON()
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to marshal report content for assignment %d", report.AssignmentID)
	}

	now := time.Now()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO reports (assignment_id, assessment_id, user_id, kind, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (assignment_id) DO UPDATE SET
			assessment_id = EXCLUDED.assessment_id,
			user_id = EXCLUDED.user_id,
			kind = EXCLUDED.kind,
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`, report.AssignmentID, report.AssessmentID, report.UserID, report.Kind, content, now).
		Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		if database.IsUndefinedTable(err) {
			return nil, contextutils.ErrReportSchemaMissing
		}
		s.logger.Error(ctx, "Failed to store report", err, map[string]interface{}{
			"assignment_id": report.AssignmentID,
		})
		return nil, contextutils.WrapErrorf(err, "failed to store report for assignment %d", report.AssignmentID)
	}

	s.logger.Info(ctx, "Report stored", map[string]interface{}{
		"report_id":     report.ID,
		"assignment_id": report.AssignmentID,
		"kind":          report.Kind,
	})

	return report, nil
}

// notifyReportReady fires the downstream notifications for a freshly stored
// report. Failures are logged and swallowed: the report itself is already
// persisted and retrievable.
func (s *ReportService) notifyReportReady(ctx context.Context, report *models.Report, assessment *models.Assessment) {
	if err := s.exporter.NotifyReportReady(ctx, report); err != nil {
		s.logger.Warn(ctx, "Export notification failed", map[string]interface{}{
			"report_id":     report.ID,
			"assignment_id": report.AssignmentID,
			"error":         err.Error(),
		})
	}

	s.sendReportNotice(ctx, report, assessment)
}

// sendReportNotice emails the subject's client contact that the report is
// ready. Subjects without a client, or clients without a contact address,
// are skipped quietly.
func (s *ReportService) sendReportNotice(ctx context.Context, report *models.Report, assessment *models.Assessment) {
	if !s.email.IsEnabled() {
		return
	}

	subject, err := s.users.GetUserByID(ctx, report.UserID)
	if err != nil {
		s.logger.Warn(ctx, "Report notice skipped: subject lookup failed", map[string]interface{}{
			"report_id": report.ID,
			"user_id":   report.UserID,
			"error":     err.Error(),
		})
		return
	}
	if !subject.ClientID.Valid {
		return
	}

	client, err := s.clients.GetClientByID(ctx, int(subject.ClientID.Int32))
	if err != nil {
		s.logger.Warn(ctx, "Report notice skipped: client lookup failed", map[string]interface{}{
			"report_id": report.ID,
			"client_id": subject.ClientID.Int32,
			"error":     err.Error(),
		})
		return
	}
	if client.ContactEmail == "" {
		return
	}

	if err := s.email.SendReportReadyNotice(ctx, client.ContactEmail, subject.Name, assessment.Title); err != nil {
		s.logger.Warn(ctx, "Report notice email failed", map[string]interface{}{
			"report_id": report.ID,
			"to":        client.ContactEmail,
			"error":     err.Error(),
		})
	}
}
