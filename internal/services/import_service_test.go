package services

import (
	"context"
	"fmt"
	"testing"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockUserDirectory backs the import tests with an in-memory user registry.
type mockUserDirectory struct {
	byEmail   map[string]*models.User
	nextID    int
	passwords []string
}

func newMockUserDirectory() *mockUserDirectory {
	return &mockUserDirectory{byEmail: map[string]*models.User{}}
}

func (m *mockUserDirectory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[contextutils.NormalizeEmail(email)]; ok {
		return u, nil
	}
	return nil, nil
}

func (m *mockUserDirectory) CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error) {
	m.nextID++
	user.ID = m.nextID
	m.byEmail[contextutils.NormalizeEmail(user.Email)] = user
	m.passwords = append(m.passwords, password)
	return user, nil
}

// The rest are not needed for these tests.
func (m *mockUserDirectory) GetUsersPaginated(ctx context.Context, page, pageSize int) ([]models.User, int, error) {
	return nil, 0, nil
}
func (m *mockUserDirectory) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return nil, nil
}
func (m *mockUserDirectory) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	return nil, nil
}
func (m *mockUserDirectory) UpdateUserPassword(ctx context.Context, id int, password string) error {
	return nil
}
func (m *mockUserDirectory) DeleteUser(ctx context.Context, id int) error { return nil }
func (m *mockUserDirectory) EnsureAdminUser(ctx context.Context, email, name, password string) error {
	return nil
}

// mockAssignmentRecorder holds the assignments a committed import produced.
type mockAssignmentRecorder struct {
	created []*models.Assignment
}

// mockImportStore hands out transactions that buffer writes and publish them
// to the directory and recorder only on Commit, mirroring how the batch is
// invisible until the database transaction lands.
type mockImportStore struct {
	users       *mockUserDirectory
	assignments *mockAssignmentRecorder

	failAssignmentAt int // fail the Nth CreateAssignment of a transaction, 0 = never
	committed        bool
	rolledBack       bool
}

func (m *mockImportStore) BeginImportTx(ctx context.Context) (ImportTx, error) {
	return &mockImportTx{store: m}, nil
}

type mockImportTx struct {
	store       *mockImportStore
	users       []*models.User
	passwords   []string
	assignments []*models.Assignment
}

func (t *mockImportTx) CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error) {
	t.store.users.nextID++
	user.ID = t.store.users.nextID
	t.users = append(t.users, user)
	t.passwords = append(t.passwords, password)
	return user, nil
}

func (t *mockImportTx) CreateAssignment(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	if n := t.store.failAssignmentAt; n > 0 && len(t.assignments)+1 == n {
		return nil, assert.AnError
	}
	assignment.ID = len(t.assignments) + 1
	t.assignments = append(t.assignments, assignment)
	return assignment, nil
}

func (t *mockImportTx) Commit() error {
	for _, u := range t.users {
		t.store.users.byEmail[contextutils.NormalizeEmail(u.Email)] = u
	}
	t.store.users.passwords = append(t.store.users.passwords, t.passwords...)
	t.store.assignments.created = append(t.store.assignments.created, t.assignments...)
	t.store.committed = true
	return nil
}

func (t *mockImportTx) Rollback() error {
	t.store.rolledBack = true
	return nil
}

type importTestDeps struct {
	store       *mockImportStore
	users       *mockUserDirectory
	assignments *mockAssignmentRecorder
	assessments *mockAssessments
	email       *mockEmailSink
}

func newImportTestService() (*ImportService, *importTestDeps) {
	deps := &importTestDeps{
		users:       newMockUserDirectory(),
		assignments: &mockAssignmentRecorder{},
		assessments: &mockAssessments{byID: map[int]*models.Assessment{
			5: {ID: 5, Title: "Leadership", Kind: models.AssessmentKindLibrary},
		}},
		email: &mockEmailSink{enabled: true},
	}
	deps.store = &mockImportStore{users: deps.users, assignments: deps.assignments}
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	svc := NewImportService(deps.store, deps.users, deps.assessments, deps.email, &config.Config{}, logger)
	return svc, deps
}

func TestApplyImport_CreatesUsersAndAssignments(t *testing.T) {
	svc, deps := newImportTestService()

	result, err := svc.ApplyImport(context.Background(), &models.ImportRequest{
		ClientID:     4,
		AssessmentID: 5,
		SurveyID:     "apx-1",
		Rows: []models.ImportRow{
			{Email: "Jordan@acme.test", Name: "Jordan Blake"},
			{Email: "riley@acme.test", Name: "Riley Chen"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.UsersCreated)
	assert.Equal(t, 0, result.UsersExisting)
	assert.Equal(t, 2, result.AssignmentsCreated)
	assert.Equal(t, 2, result.InvitationsSent)
	assert.True(t, deps.store.committed)

	require.Len(t, deps.assignments.created, 2)
	for _, a := range deps.assignments.created {
		assert.True(t, a.SurveyID.Valid)
		assert.Equal(t, "apx-1", a.SurveyID.String)
		assert.Equal(t, 5, a.AssessmentID)
		assert.False(t, a.TargetID.Valid)
	}

	created, err := deps.users.GetUserByEmail(context.Background(), "jordan@acme.test")
	require.NoError(t, err)
	require.NotNil(t, created, "email should be matched after normalization")
	assert.Equal(t, models.RoleParticipant, created.Role)
	assert.True(t, created.ClientID.Valid)
	assert.Equal(t, int32(4), created.ClientID.Int32)

	require.Len(t, deps.users.passwords, 2)
	for _, password := range deps.users.passwords {
		assert.Len(t, password, 32)
	}
	assert.ElementsMatch(t, []string{"jordan@acme.test", "riley@acme.test"}, deps.email.invitations)
}

func TestApplyImport_ReusesExistingUsers(t *testing.T) {
	svc, deps := newImportTestService()
	deps.users.byEmail["jordan@acme.test"] = &models.User{ID: 17, Email: "jordan@acme.test", Name: "Jordan Blake"}

	result, err := svc.ApplyImport(context.Background(), &models.ImportRequest{
		ClientID:     4,
		AssessmentID: 5,
		SurveyID:     "apx-2",
		Rows:         []models.ImportRow{{Email: "jordan@acme.test", Name: "Jordan Blake"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.UsersCreated)
	assert.Equal(t, 1, result.UsersExisting)
	require.Len(t, deps.assignments.created, 1)
	assert.Equal(t, 17, deps.assignments.created[0].UserID)
	assert.Empty(t, deps.users.passwords)
}

func TestApplyImport_Resolves360TargetsAcrossRows(t *testing.T) {
	svc, deps := newImportTestService()

	// The rater row comes before the subject row on purpose: targets must
	// resolve regardless of row order.
	result, err := svc.ApplyImport(context.Background(), &models.ImportRequest{
		ClientID:     4,
		AssessmentID: 5,
		SurveyID:     "apx-3",
		Rows: []models.ImportRow{
			{Email: "sam@acme.test", Name: "Sam Ortiz", TargetEmail: "Riley@acme.test"},
			{Email: "riley@acme.test", Name: "Riley Chen"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.AssignmentsCreated)

	subject, err := deps.users.GetUserByEmail(context.Background(), "riley@acme.test")
	require.NoError(t, err)
	require.NotNil(t, subject)

	raterAssignment := deps.assignments.created[0]
	require.True(t, raterAssignment.TargetID.Valid)
	assert.Equal(t, int32(subject.ID), raterAssignment.TargetID.Int32)
}

func TestApplyImport_TargetFromDirectory(t *testing.T) {
	svc, deps := newImportTestService()
	deps.users.byEmail["riley@acme.test"] = &models.User{ID: 33, Email: "riley@acme.test", Name: "Riley Chen"}

	_, err := svc.ApplyImport(context.Background(), &models.ImportRequest{
		ClientID:     4,
		AssessmentID: 5,
		SurveyID:     "apx-4",
		Rows: []models.ImportRow{
			{Email: "sam@acme.test", Name: "Sam Ortiz", TargetEmail: "riley@acme.test"},
		},
	})
	require.NoError(t, err)

	require.True(t, deps.assignments.created[0].TargetID.Valid)
	assert.Equal(t, int32(33), deps.assignments.created[0].TargetID.Int32)
}

func TestApplyImport_UnknownTargetFails(t *testing.T) {
	svc, deps := newImportTestService()

	_, err := svc.ApplyImport(context.Background(), &models.ImportRequest{
		ClientID:     4,
		AssessmentID: 5,
		SurveyID:     "apx-5",
		Rows: []models.ImportRow{
			{Email: "sam@acme.test", Name: "Sam Ortiz", TargetEmail: "nobody@acme.test"},
		},
	})

	assert.ErrorIs(t, err, contextutils.ErrInvalidInput)
	assert.Empty(t, deps.assignments.created)
	assert.True(t, deps.store.rolledBack)
}

func TestApplyImport_MidBatchFailureRollsBack(t *testing.T) {
	svc, deps := newImportTestService()
	deps.store.failAssignmentAt = 2

	_, err := svc.ApplyImport(context.Background(), &models.ImportRequest{
		ClientID:     4,
		AssessmentID: 5,
		SurveyID:     "apx-11",
		Rows: []models.ImportRow{
			{Email: "jordan@acme.test", Name: "Jordan Blake"},
			{Email: "riley@acme.test", Name: "Riley Chen"},
		},
	})
	require.Error(t, err)

	assert.True(t, deps.store.rolledBack)
	assert.False(t, deps.store.committed)
	assert.Empty(t, deps.assignments.created, "a failing row must leave no assignments behind")
	assert.Empty(t, deps.users.byEmail, "rolled-back users must not land in the directory")
	assert.Empty(t, deps.email.invitations, "invitations only go out after commit")
}

func TestApplyImport_RejectsBadRequests(t *testing.T) {
	svc, _ := newImportTestService()
	ctx := context.Background()

	_, err := svc.ApplyImport(ctx, &models.ImportRequest{ClientID: 4, AssessmentID: 5, SurveyID: "apx-6"})
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput, "empty rows")

	_, err = svc.ApplyImport(ctx, &models.ImportRequest{
		ClientID: 4, AssessmentID: 5, SurveyID: "  ",
		Rows: []models.ImportRow{{Email: "sam@acme.test", Name: "Sam Ortiz"}},
	})
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput, "blank survey id")

	rows := make([]models.ImportRow, config.MaxImportRows+1)
	for i := range rows {
		rows[i] = models.ImportRow{Email: fmt.Sprintf("u%d@acme.test", i), Name: "U"}
	}
	_, err = svc.ApplyImport(ctx, &models.ImportRequest{ClientID: 4, AssessmentID: 5, SurveyID: "apx-7", Rows: rows})
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput, "too many rows")
}

func TestApplyImport_UnknownAssessmentFails(t *testing.T) {
	svc, _ := newImportTestService()

	_, err := svc.ApplyImport(context.Background(), &models.ImportRequest{
		ClientID:     4,
		AssessmentID: 99,
		SurveyID:     "apx-8",
		Rows:         []models.ImportRow{{Email: "sam@acme.test", Name: "Sam Ortiz"}},
	})

	assert.ErrorIs(t, err, contextutils.ErrRecordNotFound)
}

func TestApplyImport_InvitationFailureDoesNotFailImport(t *testing.T) {
	svc, deps := newImportTestService()
	deps.email.inviteErr = assert.AnError

	result, err := svc.ApplyImport(context.Background(), &models.ImportRequest{
		ClientID:     4,
		AssessmentID: 5,
		SurveyID:     "apx-9",
		Rows:         []models.ImportRow{{Email: "sam@acme.test", Name: "Sam Ortiz"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.AssignmentsCreated)
	assert.Equal(t, 0, result.InvitationsSent)
}

func TestApplyImport_DuplicateEmailsInviteOnce(t *testing.T) {
	svc, deps := newImportTestService()
	deps.users.byEmail["riley@acme.test"] = &models.User{ID: 33, Email: "riley@acme.test"}
	deps.users.byEmail["alex@acme.test"] = &models.User{ID: 34, Email: "alex@acme.test"}

	// Sam rates two colleagues: two assignments, one user, one invitation.
	result, err := svc.ApplyImport(context.Background(), &models.ImportRequest{
		ClientID:     4,
		AssessmentID: 5,
		SurveyID:     "apx-10",
		Rows: []models.ImportRow{
			{Email: "sam@acme.test", Name: "Sam Ortiz", TargetEmail: "riley@acme.test"},
			{Email: "sam@acme.test", Name: "Sam Ortiz", TargetEmail: "alex@acme.test"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.UsersCreated)
	assert.Equal(t, 2, result.AssignmentsCreated)
	assert.Equal(t, 1, result.InvitationsSent)
	assert.Equal(t, []string{"sam@acme.test"}, deps.email.invitations)
}

func TestRandomPassword(t *testing.T) {
	first, err := randomPassword()
	require.NoError(t, err)
	second, err := randomPassword()
	require.NoError(t, err)

	assert.Len(t, first, 32)
	assert.NotEqual(t, first, second)
}
