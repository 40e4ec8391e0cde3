package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"strings"

	"talentapp/internal/config"
	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ImportServiceInterface defines bulk enrollment of respondents
type ImportServiceInterface interface {
	ApplyImport(ctx context.Context, req *models.ImportRequest) (*models.ImportResult, error)
}

// rowQueryer is the slice of *sql.DB and *sql.Tx the insert helpers need.
type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ImportTx is one open import transaction. The user and assignment inserts
// of a batch land together on Commit or not at all on Rollback.
type ImportTx interface {
	CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error)
	CreateAssignment(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error)
	Commit() error
	Rollback() error
}

// ImportTxBeginner opens import transactions.
type ImportTxBeginner interface {
	BeginImportTx(ctx context.Context) (ImportTx, error)
}

// ImportStore opens import transactions over the shared database handle,
// delegating the actual inserts to the user and assignment services.
type ImportStore struct {
	db          *sql.DB
	users       *UserService
	assignments *AssignmentService
}

// NewImportStore creates a new ImportStore instance
func NewImportStore(db *sql.DB, users *UserService, assignments *AssignmentService) *ImportStore {
	return &ImportStore{db: db, users: users, assignments: assignments}
}

// BeginImportTx starts a database transaction for one import batch.
func (s *ImportStore) BeginImportTx(ctx context.Context) (ImportTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin import transaction")
	}
	return &sqlImportTx{tx: tx, store: s}, nil
}

type sqlImportTx struct {
	tx    *sql.Tx
	store *ImportStore
}

func (t *sqlImportTx) CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error) {
	return t.store.users.createUser(ctx, t.tx, user, password)
}

func (t *sqlImportTx) CreateAssignment(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	return t.store.assignments.createAssignment(ctx, t.tx, assignment)
}

func (t *sqlImportTx) Commit() error   { return t.tx.Commit() }
func (t *sqlImportTx) Rollback() error { return t.tx.Rollback() }

// ImportService turns validated upload rows into users and assignments.
// Structural validation of the upload file happens in the external tooling;
// this service only enforces referential integrity and row limits.
type ImportService struct {
	store       ImportTxBeginner
	users       UserServiceInterface
	assessments AssessmentServiceInterface
	email       EmailServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewImportService creates a new ImportService instance
func NewImportService(store ImportTxBeginner, users UserServiceInterface, assessments AssessmentServiceInterface, email EmailServiceInterface, cfg *config.Config, logger *observability.Logger) *ImportService {
	return &ImportService{
		store:       store,
		users:       users,
		assessments: assessments,
		email:       email,
		cfg:         cfg,
		logger:      logger,
	}
}

// ApplyImport creates the users and assignments described by one upload.
// Every row becomes an assignment sharing the request's survey id; users are
// matched by normalized email and created with a random password when
// missing. All inserts run in one transaction, so a failing row leaves no
// partial batch behind. Invitation emails go out only after the commit; they
// are best effort and never fail the import.
func (s *ImportService) ApplyImport(ctx context.Context, req *models.ImportRequest) (result0 *models.ImportResult, err error) {
	ctx, span := observability.TraceImportFunction(ctx, "apply_import",
		observability.AttributeClientID(req.ClientID),
		observability.AttributeAssessmentID(req.AssessmentID),
		attribute.Int("import.rows", len(req.Rows)),
	)
	defer observability.FinishSpan(span, &err)

	if len(req.Rows) == 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "import has no rows")
	}
	if len(req.Rows) > config.MaxImportRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "import exceeds %d rows", config.MaxImportRows)
	}
	if strings.TrimSpace(req.SurveyID) == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "survey id is required")
	}

	assessment, err := s.assessments.GetAssessmentByID(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{}

	tx, err := s.store.BeginImportTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				s.logger.Error(ctx, "Failed to rollback import", rollbackErr, map[string]interface{}{
					"client_id": req.ClientID,
					"survey_id": req.SurveyID,
				})
			}
		}
	}()

	// First pass: resolve or create every user so 360 targets can reference
	// users introduced by later rows.
	usersByEmail := make(map[string]*models.User, len(req.Rows))
	for _, row := range req.Rows {
		email := contextutils.NormalizeEmail(row.Email)
		if _, seen := usersByEmail[email]; seen {
			continue
		}
		user, err := s.resolveUser(ctx, tx, req.ClientID, email, row, result)
		if err != nil {
			return nil, err
		}
		usersByEmail[email] = user
	}

	// Second pass: one assignment per row, all under the same survey id.
	invited := make(map[int]bool, len(req.Rows))
	var invitees []*models.User
	for _, row := range req.Rows {
		user := usersByEmail[contextutils.NormalizeEmail(row.Email)]

		assignment := &models.Assignment{
			UserID:       user.ID,
			AssessmentID: req.AssessmentID,
			SurveyID:     sql.NullString{String: req.SurveyID, Valid: true},
		}
		if row.TargetEmail != "" {
			target, err := s.resolveTarget(ctx, usersByEmail, row.TargetEmail)
			if err != nil {
				return nil, err
			}
			assignment.TargetID = sql.NullInt32{Int32: int32(target.ID), Valid: true}
		}

		if _, err = tx.CreateAssignment(ctx, assignment); err != nil {
			return nil, err
		}
		result.AssignmentsCreated++

		if !invited[user.ID] {
			invited[user.ID] = true
			invitees = append(invitees, user)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit import")
	}

	// Invitations go out only once the batch is durable.
	for _, user := range invitees {
		if inviteErr := s.email.SendAssignmentInvitation(ctx, user, assessment.Title); inviteErr != nil {
			s.logger.Warn(ctx, "Invitation email failed", map[string]interface{}{
				"user_id": user.ID,
				"error":   inviteErr.Error(),
			})
			continue
		}
		if s.email.IsEnabled() {
			result.InvitationsSent++
		}
	}

	s.logger.Info(ctx, "Import applied", map[string]interface{}{
		"client_id":           req.ClientID,
		"assessment_id":       req.AssessmentID,
		"survey_id":           req.SurveyID,
		"users_created":       result.UsersCreated,
		"assignments_created": result.AssignmentsCreated,
	})
	span.SetAttributes(
		attribute.Int("import.users.created", result.UsersCreated),
		attribute.Int("import.assignments.created", result.AssignmentsCreated),
	)

	return result, nil
}

// resolveUser finds an existing user by email or creates one under the
// import's client with a throwaway random password. Creation happens inside
// the batch transaction; lookups read committed state.
func (s *ImportService) resolveUser(ctx context.Context, tx ImportTx, clientID int, email string, row models.ImportRow, result *models.ImportResult) (*models.User, error) {
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		result.UsersExisting++
		return existing, nil
	}

	password, err := randomPassword()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ClientID: sql.NullInt32{Int32: int32(clientID), Valid: true},
		Email:    email,
		Name:     row.Name,
		Role:     models.RoleParticipant,
	}
	if row.GroupID != nil {
		user.GroupID = sql.NullInt32{Int32: int32(*row.GroupID), Valid: true}
	}

	created, err := tx.CreateUser(ctx, user, password)
	if err != nil {
		return nil, err
	}
	result.UsersCreated++
	return created, nil
}

// resolveTarget maps a 360 row's target email to a user, preferring users
// handled by this import before consulting the directory.
func (s *ImportService) resolveTarget(ctx context.Context, usersByEmail map[string]*models.User, targetEmail string) (*models.User, error) {
	email := contextutils.NormalizeEmail(targetEmail)
	if user, ok := usersByEmail[email]; ok {
		return user, nil
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "target %s not found", email)
	}
	return user, nil
}

// randomPassword returns a throwaway credential for imported users.
func randomPassword() (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", contextutils.WrapError(err, "failed to generate random password")
	}
	return hex.EncodeToString(randomBytes), nil
}
