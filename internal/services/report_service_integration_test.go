//go:build integration
// +build integration

package services

import (
	"context"
	"database/sql"
	"testing"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIntegrationReportService wires a ReportService against the real test
// database. The exporter stays disabled; emails go to the in-memory test
// implementation so assertions can inspect them.
func newIntegrationReportService(db *sql.DB) (*ReportService, *TestEmailService) {
	cfg := &config.Config{IsTest: true}
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	assignments := NewAssignmentService(db, logger)
	assessments := NewAssessmentService(db, logger)
	scores := NewScoreService(db, logger)
	library := NewFeedbackLibraryService(db, logger)
	engine := NewFeedbackAssignmentService(library, logger)
	answers := NewAnswerService(db, logger)
	qualitative := NewQualitativeFeedbackService(assignments, answers, logger)
	benchmarks := NewBenchmarkService(db, logger)
	users := NewUserService(db, logger)
	clients := NewClientService(db, logger)
	exporter := NewExportNotifierService(cfg, logger)
	email := NewTestEmailService(cfg, logger)

	svc := NewReportService(db, assignments, assessments, scores, engine, qualitative,
		benchmarks, users, clients, exporter, email, cfg, logger)
	return svc, email
}

type libraryReportFixture struct {
	industryID   int
	clientID     int
	userID       int
	assessmentID int
	dimensionID  int
	assignmentID int
	overallID    int
}

// insertLibraryReportFixture stands up one completed library assignment with
// a score of 72, an unbounded overall entry, one specific entry inside the
// score window and one outside, and a single industry benchmark.
func insertLibraryReportFixture(t *testing.T, db *sql.DB) libraryReportFixture {
	t.Helper()
	var f libraryReportFixture

	require.NoError(t, db.QueryRow(
		`INSERT INTO industries (name) VALUES ('Software') RETURNING id`,
	).Scan(&f.industryID))
	require.NoError(t, db.QueryRow(
		`INSERT INTO clients (name, industry_id, contact_email, created_at, updated_at)
		 VALUES ('Acme', $1, 'people-ops@acme.test', NOW(), NOW()) RETURNING id`,
		f.industryID,
	).Scan(&f.clientID))
	require.NoError(t, db.QueryRow(
		`INSERT INTO users (client_id, email, name, role, created_at, updated_at)
		 VALUES ($1, 'jordan@acme.test', 'Jordan Blake', 'participant', NOW(), NOW()) RETURNING id`,
		f.clientID,
	).Scan(&f.userID))
	require.NoError(t, db.QueryRow(
		`INSERT INTO assessments (title, kind, created_at, updated_at)
		 VALUES ('Leadership', 'library', NOW(), NOW()) RETURNING id`,
	).Scan(&f.assessmentID))
	require.NoError(t, db.QueryRow(
		`INSERT INTO dimensions (assessment_id, name, position) VALUES ($1, 'Delegation', 1) RETURNING id`,
		f.assessmentID,
	).Scan(&f.dimensionID))

	require.NoError(t, db.QueryRow(
		`INSERT INTO feedback_library (assessment_id, dimension_id, type, min_score, max_score, content, created_at, updated_at)
		 VALUES ($1, $2, 'overall', NULL, NULL, 'Solid overall', NOW(), NOW()) RETURNING id`,
		f.assessmentID, f.dimensionID,
	).Scan(&f.overallID))
	_, err := db.Exec(
		`INSERT INTO feedback_library (assessment_id, dimension_id, type, min_score, max_score, content, created_at, updated_at)
		 VALUES ($1, $2, 'specific', 60, 80, 'Keep delegating', NOW(), NOW()),
		        ($1, $2, 'specific', 0, 59, 'Focus on basics', NOW(), NOW())`,
		f.assessmentID, f.dimensionID,
	)
	require.NoError(t, err)

	_, err = db.Exec(
		`INSERT INTO benchmarks (assessment_id, industry_id, dimension_id, value, created_at)
		 VALUES ($1, $2, $3, 64.5, NOW())`,
		f.assessmentID, f.industryID, f.dimensionID,
	)
	require.NoError(t, err)

	require.NoError(t, db.QueryRow(
		`INSERT INTO assignments (user_id, assessment_id, completed, completed_at, created_at)
		 VALUES ($1, $2, TRUE, NOW(), NOW()) RETURNING id`,
		f.userID, f.assessmentID,
	).Scan(&f.assignmentID))
	_, err = db.Exec(
		`INSERT INTO dimension_scores (assignment_id, dimension_id, score) VALUES ($1, $2, 72)`,
		f.assignmentID, f.dimensionID,
	)
	require.NoError(t, err)

	return f
}

func TestReportService_Integration_BuildLibraryReport(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()

	f := insertLibraryReportFixture(t, db)
	svc, email := newIntegrationReportService(db)

	report, err := svc.BuildReport(context.Background(), f.assignmentID)
	require.NoError(t, err)

	assert.Greater(t, report.ID, 0)
	assert.Equal(t, f.assignmentID, report.AssignmentID)
	assert.Equal(t, f.userID, report.UserID)
	assert.Equal(t, models.AssessmentKindLibrary, report.Kind)

	// Score 72 matches the unbounded overall entry and exactly one specific
	// window, so the engine output is deterministic here.
	require.Len(t, report.Content.Feedback, 2)
	assert.Equal(t, models.FeedbackTypeOverall, report.Content.Feedback[0].Type)
	assert.Equal(t, "Solid overall", report.Content.Feedback[0].FeedbackContent)
	assert.Equal(t, models.FeedbackTypeSpecific, report.Content.Feedback[1].Type)
	assert.Equal(t, "Keep delegating", report.Content.Feedback[1].FeedbackContent)

	require.Len(t, report.Content.Benchmarks, 1)
	assert.Equal(t, f.dimensionID, report.Content.Benchmarks[0].DimensionID)
	assert.Equal(t, 64.5, report.Content.Benchmarks[0].Value)

	stored, err := svc.GetReport(context.Background(), f.assignmentID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, stored.ID)
	assert.Equal(t, report.Content, stored.Content)

	// The client contact is notified once the report is persisted.
	sent := email.SentEmails()
	require.Len(t, sent, 1)
	assert.Equal(t, "people-ops@acme.test", sent[0].To)
}

func TestReportService_Integration_Build360Report(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()

	var clientID int
	require.NoError(t, db.QueryRow(
		`INSERT INTO clients (name, contact_email, created_at, updated_at)
		 VALUES ('Acme', 'people-ops@acme.test', NOW(), NOW()) RETURNING id`,
	).Scan(&clientID))

	insertUser := func(email, name string) int {
		var id int
		require.NoError(t, db.QueryRow(
			`INSERT INTO users (client_id, email, name, role, created_at, updated_at)
			 VALUES ($1, $2, $3, 'participant', NOW(), NOW()) RETURNING id`,
			clientID, email, name,
		).Scan(&id))
		return id
	}
	subjectID := insertUser("riley@acme.test", "Riley Chen")
	raterOneID := insertUser("sam@acme.test", "Sam Ortiz")
	raterTwoID := insertUser("alex@acme.test", "Alex Kim")

	var assessmentID int
	require.NoError(t, db.QueryRow(
		`INSERT INTO assessments (title, kind, created_at, updated_at)
		 VALUES ('Peer Review', '360', NOW(), NOW()) RETURNING id`,
	).Scan(&assessmentID))
	var dimensionID int
	require.NoError(t, db.QueryRow(
		`INSERT INTO dimensions (assessment_id, name, position) VALUES ($1, 'Communication', 1) RETURNING id`,
		assessmentID,
	).Scan(&dimensionID))

	var dimFieldID, generalFieldID int
	require.NoError(t, db.QueryRow(
		`INSERT INTO fields (assessment_id, dimension_id, type, label, position)
		 VALUES ($1, $2, 'text_input', 'Communication strengths', 1) RETURNING id`,
		assessmentID, dimensionID,
	).Scan(&dimFieldID))
	require.NoError(t, db.QueryRow(
		`INSERT INTO fields (assessment_id, dimension_id, type, label, position)
		 VALUES ($1, NULL, 'text_input', 'Anything else', 2) RETURNING id`,
		assessmentID,
	).Scan(&generalFieldID))

	insertAssignment := func(raterID int) int {
		var id int
		require.NoError(t, db.QueryRow(
			`INSERT INTO assignments (user_id, assessment_id, target_id, completed, completed_at, created_at)
			 VALUES ($1, $2, $3, TRUE, NOW(), NOW()) RETURNING id`,
			raterID, assessmentID, subjectID,
		).Scan(&id))
		return id
	}
	assignmentOne := insertAssignment(raterOneID)
	assignmentTwo := insertAssignment(raterTwoID)

	_, err := db.Exec(
		`INSERT INTO text_answers (assignment_id, field_id, value) VALUES
		 ($1, $3, 'Clear writer'),
		 ($1, $4, 'Always on time'),
		 ($2, $3, 'Great listener')`,
		assignmentOne, assignmentTwo, dimFieldID, generalFieldID,
	)
	require.NoError(t, err)

	svc, _ := newIntegrationReportService(db)

	report, err := svc.BuildReport(context.Background(), assignmentOne)
	require.NoError(t, err)

	assert.Equal(t, models.AssessmentKind360, report.Kind)
	assert.Equal(t, subjectID, report.UserID, "report subject should be the rated target")
	assert.Empty(t, report.Content.Feedback)

	require.Len(t, report.Content.Qualitative, 2)
	require.NotNil(t, report.Content.Qualitative[0].DimensionID)
	assert.Equal(t, dimensionID, *report.Content.Qualitative[0].DimensionID)
	assert.Equal(t, "Clear writer\n\nGreat listener", report.Content.Qualitative[0].Feedback)
	assert.Nil(t, report.Content.Qualitative[1].DimensionID)
	assert.Equal(t, "Always on time", report.Content.Qualitative[1].Feedback)

	stored, err := svc.GetReport(context.Background(), assignmentOne)
	require.NoError(t, err)
	assert.Equal(t, report.Content, stored.Content)
}

func TestReportService_Integration_RebuildReplacesContent(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()

	f := insertLibraryReportFixture(t, db)
	svc, _ := newIntegrationReportService(db)

	first, err := svc.BuildReport(context.Background(), f.assignmentID)
	require.NoError(t, err)
	assert.Equal(t, "Solid overall", first.Content.Feedback[0].FeedbackContent)

	_, err = db.Exec(`UPDATE feedback_library SET content = 'Rewritten overall' WHERE id = $1`, f.overallID)
	require.NoError(t, err)

	second, err := svc.RebuildReport(context.Background(), f.assignmentID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "rebuild should reuse the same report row")
	assert.Equal(t, "Rewritten overall", second.Content.Feedback[0].FeedbackContent)

	stored, err := svc.GetReport(context.Background(), f.assignmentID)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten overall", stored.Content.Feedback[0].FeedbackContent)
}

func TestReportService_Integration_MissingReportsTable(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()

	f := insertLibraryReportFixture(t, db)
	svc, _ := newIntegrationReportService(db)

	_, err := db.Exec(`ALTER TABLE reports RENAME TO reports_hidden`)
	require.NoError(t, err)
	defer func() {
		_, _ = db.Exec(`ALTER TABLE reports_hidden RENAME TO reports`)
	}()

	_, err = svc.BuildReport(context.Background(), f.assignmentID)
	assert.ErrorIs(t, err, contextutils.ErrReportSchemaMissing)
	assert.Contains(t, err.Error(), "apply database migrations")

	_, err = svc.GetReport(context.Background(), f.assignmentID)
	assert.ErrorIs(t, err, contextutils.ErrReportSchemaMissing)
}

func TestReportService_Integration_GetReportNotFound(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()

	f := insertLibraryReportFixture(t, db)
	svc, _ := newIntegrationReportService(db)

	_, err := svc.GetReport(context.Background(), f.assignmentID)
	assert.ErrorIs(t, err, contextutils.ErrReportNotFound)
}
