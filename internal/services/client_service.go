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

// ClientServiceInterface defines client directory operations
type ClientServiceInterface interface {
	GetClientsPaginated(ctx context.Context, page, pageSize int) ([]models.Client, int, error)
	GetClientByID(ctx context.Context, id int) (*models.Client, error)
	CreateClient(ctx context.Context, client *models.Client) (*models.Client, error)
	UpdateClient(ctx context.Context, client *models.Client) (*models.Client, error)
	DeleteClient(ctx context.Context, id int) error
	GetGroupsForClient(ctx context.Context, clientID int) ([]models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) (*models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) (*models.Group, error)
	DeleteGroup(ctx context.Context, id int) error
	GetIndustries(ctx context.Context) ([]models.Industry, error)
	CreateIndustry(ctx context.Context, industry *models.Industry) (*models.Industry, error)
	UpdateIndustry(ctx context.Context, industry *models.Industry) (*models.Industry, error)
	DeleteIndustry(ctx context.Context, id int) error
}

// ClientService manages the client directory: the client organizations,
// their participant groups, and the industry reference list.
type ClientService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewClientService creates a new ClientService instance
func NewClientService(db *sql.DB, logger *observability.Logger) *ClientService {
	if db == nil {
		panic("NewClientService: db is nil")
	}
	if logger == nil {
		panic("NewClientService: logger is nil")
	}
	return &ClientService{db: db, logger: logger}
}

const clientSelectFields = `id, name, industry_id, contact_email, created_at, updated_at`

// GetClientsPaginated returns one page of clients plus the total count
func (s *ClientService) GetClientsPaginated(ctx context.Context, page, pageSize int) (result0 []models.Client, result1 int, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "get_clients_paginated",
		observability.AttributePage(page),
		observability.AttributePageSize(pageSize),
	)
	defer observability.FinishSpan(span, &err)

	var total int
	if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients").Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count clients")
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + clientSelectFields + `
	          FROM clients
	          ORDER BY name, id
	          LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to query clients")
	}
	defer func() {
		_ = rows.Close()
	}()

	clients := []models.Client{}
	for rows.Next() {
		var client models.Client
		if err := rows.Scan(&client.ID, &client.Name, &client.IndustryID, &client.ContactEmail, &client.CreatedAt, &client.UpdatedAt); err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan client")
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to iterate clients")
	}

	span.SetAttributes(attribute.Int("clients.count", len(clients)))
	return clients, total, nil
}

// GetClientByID returns one client or ErrRecordNotFound
func (s *ClientService) GetClientByID(ctx context.Context, id int) (result0 *models.Client, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "get_client_by_id",
		observability.AttributeClientID(id),
	)
	defer observability.FinishSpan(span, &err)

	var client models.Client
	query := `SELECT ` + clientSelectFields + ` FROM clients WHERE id = $1`
	err = s.db.QueryRowContext(ctx, query, id).
		Scan(&client.ID, &client.Name, &client.IndustryID, &client.ContactEmail, &client.CreatedAt, &client.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get client")
	}
	return &client, nil
}

// CreateClient inserts a new client
func (s *ClientService) CreateClient(ctx context.Context, client *models.Client) (result0 *models.Client, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "create_client")
	defer observability.FinishSpan(span, &err)

	if client.Name == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "client name is required")
	}

	now := time.Now()
	query := `INSERT INTO clients (name, industry_id, contact_email, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $4)
	          RETURNING id, created_at, updated_at`
	err = s.db.QueryRowContext(ctx, query, client.Name, client.IndustryID, client.ContactEmail, now).
		Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create client")
	}
	return client, nil
}

// UpdateClient updates an existing client's fields
func (s *ClientService) UpdateClient(ctx context.Context, client *models.Client) (result0 *models.Client, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "update_client",
		observability.AttributeClientID(client.ID),
	)
	defer observability.FinishSpan(span, &err)

	if client.Name == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "client name is required")
	}

	query := `UPDATE clients SET name = $1, industry_id = $2, contact_email = $3, updated_at = $4 WHERE id = $5`
	result, err := s.db.ExecContext(ctx, query, client.Name, client.IndustryID, client.ContactEmail, time.Now(), client.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update client")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return nil, contextutils.ErrRecordNotFound
	}
	return s.GetClientByID(ctx, client.ID)
}

// DeleteClient removes a client by id
func (s *ClientService) DeleteClient(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceClientFunction(ctx, "delete_client",
		observability.AttributeClientID(id),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete client")
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

// GetGroupsForClient returns a client's groups ordered by name
func (s *ClientService) GetGroupsForClient(ctx context.Context, clientID int) (result0 []models.Group, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "get_groups_for_client",
		observability.AttributeClientID(clientID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT id, client_id, name, created_at
	          FROM groups
	          WHERE client_id = $1
	          ORDER BY name, id`
	rows, err := s.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query groups")
	}
	defer func() {
		_ = rows.Close()
	}()

	groups := []models.Group{}
	for rows.Next() {
		var group models.Group
		if err := rows.Scan(&group.ID, &group.ClientID, &group.Name, &group.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan group")
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate groups")
	}

	span.SetAttributes(attribute.Int("groups.count", len(groups)))
	return groups, nil
}

// CreateGroup inserts a new group under a client
func (s *ClientService) CreateGroup(ctx context.Context, group *models.Group) (result0 *models.Group, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "create_group",
		observability.AttributeClientID(group.ClientID),
	)
	defer observability.FinishSpan(span, &err)

	if group.Name == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "group name is required")
	}

	query := `INSERT INTO groups (client_id, name, created_at)
	          VALUES ($1, $2, $3)
	          RETURNING id, created_at`
	err = s.db.QueryRowContext(ctx, query, group.ClientID, group.Name, time.Now()).
		Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create group")
	}
	return group, nil
}

// UpdateGroup renames an existing group
func (s *ClientService) UpdateGroup(ctx context.Context, group *models.Group) (result0 *models.Group, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "update_group",
		attribute.Int("group.id", group.ID),
	)
	defer observability.FinishSpan(span, &err)

	if group.Name == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "group name is required")
	}

	result, err := s.db.ExecContext(ctx, `UPDATE groups SET name = $1 WHERE id = $2`, group.Name, group.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update group")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return nil, contextutils.ErrRecordNotFound
	}

	var updated models.Group
	err = s.db.QueryRowContext(ctx, `SELECT id, client_id, name, created_at FROM groups WHERE id = $1`, group.ID).
		Scan(&updated.ID, &updated.ClientID, &updated.Name, &updated.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to reload group")
	}
	return &updated, nil
}

// DeleteGroup removes a group by id
func (s *ClientService) DeleteGroup(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceClientFunction(ctx, "delete_group",
		attribute.Int("group.id", id),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete group")
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

// GetIndustries returns the full industry list ordered by name
func (s *ClientService) GetIndustries(ctx context.Context) (result0 []models.Industry, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "get_industries")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM industries ORDER BY name, id`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query industries")
	}
	defer func() {
		_ = rows.Close()
	}()

	industries := []models.Industry{}
	for rows.Next() {
		var industry models.Industry
		if err := rows.Scan(&industry.ID, &industry.Name); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan industry")
		}
		industries = append(industries, industry)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate industries")
	}

	span.SetAttributes(attribute.Int("industries.count", len(industries)))
	return industries, nil
}

// CreateIndustry inserts a new industry
func (s *ClientService) CreateIndustry(ctx context.Context, industry *models.Industry) (result0 *models.Industry, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "create_industry")
	defer observability.FinishSpan(span, &err)

	if industry.Name == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "industry name is required")
	}

	err = s.db.QueryRowContext(ctx, `INSERT INTO industries (name) VALUES ($1) RETURNING id`, industry.Name).
		Scan(&industry.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create industry")
	}
	return industry, nil
}

// UpdateIndustry renames an existing industry
func (s *ClientService) UpdateIndustry(ctx context.Context, industry *models.Industry) (result0 *models.Industry, err error) {
	ctx, span := observability.TraceClientFunction(ctx, "update_industry",
		attribute.Int("industry.id", industry.ID),
	)
	defer observability.FinishSpan(span, &err)

	if industry.Name == "" {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "industry name is required")
	}

	result, err := s.db.ExecContext(ctx, `UPDATE industries SET name = $1 WHERE id = $2`, industry.Name, industry.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update industry")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return nil, contextutils.ErrRecordNotFound
	}
	return industry, nil
}

// DeleteIndustry removes an industry by id
func (s *ClientService) DeleteIndustry(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceClientFunction(ctx, "delete_industry",
		attribute.Int("industry.id", id),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `DELETE FROM industries WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete industry")
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
