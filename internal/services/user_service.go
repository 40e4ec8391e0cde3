package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"talentapp/internal/models"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines user directory operations
type UserServiceInterface interface {
	GetUsersPaginated(ctx context.Context, page, pageSize int) ([]models.User, int, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id int, password string) error
	DeleteUser(ctx context.Context, id int) error
	EnsureAdminUser(ctx context.Context, email, name, password string) error
}

// UserService manages the people in the system, both staff admins and
// client participants.
type UserService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewUserService creates a new UserService instance
func NewUserService(db *sql.DB, logger *observability.Logger) *UserService {
	if db == nil {
		panic("NewUserService: db is nil")
	}
	if logger == nil {
		panic("NewUserService: logger is nil")
	}
	return &UserService{db: db, logger: logger}
}

const userSelectFields = `id, client_id, group_id, email, name, role, password_hash, created_at, updated_at`

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	// PostgreSQL error code 23505 is for unique constraint violations
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

func validRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleParticipant
}

// getUserByQuery runs a single-row user query and returns nil when no row
// matches
func (s *UserService) getUserByQuery(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.ClientID, &user.GroupID, &user.Email, &user.Name, &user.Role,
		&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsersPaginated returns one page of users ordered by email plus the
// total count
func (s *UserService) GetUsersPaginated(ctx context.Context, page, pageSize int) (result0 []models.User, result1 int, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_users_paginated",
		observability.AttributePage(page),
		observability.AttributePageSize(pageSize),
	)
	defer observability.FinishSpan(span, &err)

	var total int
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count users")
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY email LIMIT $1 OFFSET $2", userSelectFields)
	rows, err := s.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to query users")
	}
	defer func() {
		_ = rows.Close()
	}()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.ClientID, &user.GroupID, &user.Email, &user.Name, &user.Role,
			&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan user")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to iterate users")
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, total, nil
}

// GetUserByID returns one user or ErrRecordNotFound
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userSelectFields)
	user, err := s.getUserByQuery(ctx, query, id)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user")
	}
	if user == nil {
		return nil, contextutils.ErrRecordNotFound
	}
	return user, nil
}

// GetUserByEmail returns the user with the given email, or nil when no such
// user exists. Lookup normalizes the email first.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_email")
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userSelectFields)
	user, err := s.getUserByQuery(ctx, query, contextutils.NormalizeEmail(email))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user by email")
	}
	return user, nil
}

// CreateUser inserts a new user with a bcrypt-hashed password. Email must be
// valid and unique; a duplicate maps to ErrRecordExists.
func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user",
		attribute.String("user.role", user.Role),
	)
	defer observability.FinishSpan(span, &err)

	return s.createUser(ctx, s.db, user, password)
}

// createUser validates and inserts via q, which is either the pooled handle
// or an open transaction (bulk imports run inside one).
func (s *UserService) createUser(ctx context.Context, q rowQueryer, user *models.User, password string) (*models.User, error) {
	if !contextutils.IsValidEmail(user.Email) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid email %q", user.Email)
	}
	if user.Name == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "user name is required")
	}
	if !validRole(user.Role) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown role %q", user.Role)
	}
	if password == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "password is required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to hash password")
	}

	now := time.Now()
	query := `INSERT INTO users (client_id, group_id, email, name, role, password_hash, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	          RETURNING id, created_at, updated_at`
	err = q.QueryRowContext(ctx, query,
		user.ClientID, user.GroupID, contextutils.NormalizeEmail(user.Email), user.Name, user.Role,
		string(hashedPassword), now,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "user with email %q already exists", user.Email)
		}
		return nil, contextutils.WrapError(err, "failed to create user")
	}

	user.Email = contextutils.NormalizeEmail(user.Email)
	user.PasswordHash = sql.NullString{String: string(hashedPassword), Valid: true}
	return user, nil
}

// UpdateUser updates a user's directory fields. The password is not touched
// here, see UpdateUserPassword.
func (s *UserService) UpdateUser(ctx context.Context, user *models.User) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user",
		observability.AttributeUserID(user.ID),
	)
	defer observability.FinishSpan(span, &err)

	if !contextutils.IsValidEmail(user.Email) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid email %q", user.Email)
	}
	if user.Name == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "user name is required")
	}
	if !validRole(user.Role) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown role %q", user.Role)
	}

	query := `UPDATE users SET client_id = $1, group_id = $2, email = $3, name = $4, role = $5, updated_at = $6 WHERE id = $7`
	result, err := s.db.ExecContext(ctx, query,
		user.ClientID, user.GroupID, contextutils.NormalizeEmail(user.Email), user.Name, user.Role,
		time.Now(), user.ID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "user with email %q already exists", user.Email)
		}
		return nil, contextutils.WrapError(err, "failed to update user")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return nil, contextutils.ErrRecordNotFound
	}
	return s.GetUserByID(ctx, user.ID)
}

// UpdateUserPassword replaces a user's password hash
func (s *UserService) UpdateUserPassword(ctx context.Context, id int, password string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user_password",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	if password == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "password is required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}

	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, string(hashedPassword), time.Now(), id)
	if err != nil {
		return contextutils.WrapError(err, "failed to update password")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}

// DeleteUser removes a user by id
func (s *UserService) DeleteUser(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "delete_user",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete user")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}

// EnsureAdminUser creates the staff admin account on startup if it does not
// exist, and refreshes its password when the configured one has changed.
func (s *UserService) EnsureAdminUser(ctx context.Context, email, name, password string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ensure_admin_user")
	defer observability.FinishSpan(span, &err)

	if email == "" {
		return contextutils.ErrorWithContextf("admin email cannot be empty")
	}
	if password == "" {
		return contextutils.ErrorWithContextf("admin password cannot be empty")
	}

	existing, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return contextutils.WrapError(err, "failed to check if admin user exists")
	}

	if existing != nil {
		if existing.PasswordHash.Valid {
			if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash.String), []byte(password)) == nil {
				s.logger.Info(ctx, "Admin user already exists with current password", map[string]interface{}{"email": existing.Email})
				return nil
			}
		}

		if err := s.UpdateUserPassword(ctx, existing.ID, password); err != nil {
			return contextutils.WrapError(err, "failed to refresh admin password")
		}
		s.logger.Info(ctx, "Updated admin user password", map[string]interface{}{"email": existing.Email})
		return nil
	}

	admin := &models.User{Email: email, Name: name, Role: models.RoleAdmin}
	if _, err := s.CreateUser(ctx, admin, password); err != nil {
		return contextutils.WrapError(err, "failed to create admin user")
	}
	s.logger.Info(ctx, "Created admin user", map[string]interface{}{"email": admin.Email})
	return nil
}
