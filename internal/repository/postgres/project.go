package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
)

// Имена ограничений из миграции, по которым различаются нарушения целостности
const (
	constraintInviteCode    = "projects_invite_code_key"
	constraintMemberProject = "project_members_project_id_fkey"
)

// ProjectRepository реализует repository.ProjectRepository для PostgreSQL
type ProjectRepository struct {
	base
}

// NewProjectRepository создает новый экземпляр ProjectRepository
func NewProjectRepository(db *pgxpool.Pool, timeout time.Duration) *ProjectRepository {
	return &ProjectRepository{base: newBase(db, timeout)}
}

// Create создает проект вместе с начальным списком участников
func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if project.ID == "" {
		project.ID = uuid.NewString()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return mapError(err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore error as it will fail if transaction was committed
	}()

	query := `
		INSERT INTO projects (id, title, description, status, admin_id, invite_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		project.ID, project.Title, project.Description, project.Status, project.AdminID, project.InviteCode,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if pgErr, ok := asPgError(err, codeUniqueViolation); ok {
			if pgErr.ConstraintName == constraintInviteCode {
				return domain.ErrInviteCodeTaken
			}
			return domain.ErrConflict
		}
		if _, ok := asPgError(err, codeForeignKeyViolation); ok { // admin_id
			return domain.ErrUserNotFound
		}
		return mapError(err)
	}

	memberQuery := `
		INSERT INTO project_members (project_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	for _, memberID := range project.TeamMembers {
		if _, err := tx.Exec(ctx, memberQuery, project.ID, memberID); err != nil {
			if _, ok := asPgError(err, codeForeignKeyViolation); ok {
				return domain.ErrUserNotFound
			}
			return mapError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}

	if project.TeamMembers == nil {
		project.TeamMembers = []string{}
	}
	return nil
}

// GetByID получает проект со списком участников
func (r *ProjectRepository) GetByID(ctx context.Context, projectID string) (*domain.Project, error) {
	if _, err := uuid.Parse(projectID); err != nil {
		return nil, domain.ErrProjectNotFound
	}
	return r.getOne(ctx, `WHERE id = $1`, projectID)
}

// GetByInviteCode получает проект по коду приглашения
func (r *ProjectRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Project, error) {
	return r.getOne(ctx, `WHERE invite_code = $1`, code)
}

func (r *ProjectRepository) getOne(ctx context.Context, where, arg string) (*domain.Project, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, title, description, status, admin_id, invite_code, created_at, updated_at
		FROM projects
	` + where

	var project domain.Project
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&project.ID,
		&project.Title,
		&project.Description,
		&project.Status,
		&project.AdminID,
		&project.InviteCode,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, mapError(err)
	}

	members, err := r.members(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	project.TeamMembers = members

	return &project, nil
}

// members возвращает участников проекта в порядке вступления
func (r *ProjectRepository) members(ctx context.Context, projectID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM project_members
		WHERE project_id = $1
		ORDER BY joined_at, user_id
	`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, userID)
	}

	return members, mapError(rows.Err())
}

// ListForUser возвращает проекты, где пользователь администратор или участник
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Project, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []*domain.Project{}, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT p.id, p.title, p.description, p.status, p.admin_id, p.invite_code, p.created_at, p.updated_at,
		       COALESCE(array_agg(pm.user_id ORDER BY pm.joined_at, pm.user_id)
		                FILTER (WHERE pm.user_id IS NOT NULL), '{}')::text[]
		FROM projects p
		LEFT JOIN project_members pm ON pm.project_id = p.id
		WHERE p.admin_id = $1
		   OR EXISTS (SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.user_id = $1)
		GROUP BY p.id
		ORDER BY p.created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	projects := []*domain.Project{}
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(
			&project.ID,
			&project.Title,
			&project.Description,
			&project.Status,
			&project.AdminID,
			&project.InviteCode,
			&project.CreatedAt,
			&project.UpdatedAt,
			&project.TeamMembers,
		); err != nil {
			return nil, err
		}
		projects = append(projects, &project)
	}

	return projects, mapError(rows.Err())
}

// Update сохраняет название, описание и статус проекта
func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE projects
		SET title = $1, description = $2, status = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query, project.Title, project.Description, project.Status, project.ID).Scan(&project.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrProjectNotFound
		}
		return mapError(err)
	}

	return nil
}

// Delete удаляет проект; задачи и участники удаляются каскадно
func (r *ProjectRepository) Delete(ctx context.Context, projectID string) error {
	if _, err := uuid.Parse(projectID); err != nil {
		return domain.ErrProjectNotFound
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return mapError(err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}

	return nil
}

// AddMember атомарно добавляет участника; повторная вставка ничего не меняет
func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO project_members (project_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query, projectID, userID)
	if err != nil {
		if pgErr, ok := asPgError(err, codeForeignKeyViolation); ok {
			if pgErr.ConstraintName == constraintMemberProject {
				return domain.ErrProjectNotFound
			}
			return domain.ErrUserNotFound
		}
		return mapError(err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrAlreadyMember
	}

	return nil
}

// RemoveMember удаляет участника из проекта
func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`

	_, err := r.db.Exec(ctx, query, projectID, userID)
	return mapError(err)
}
