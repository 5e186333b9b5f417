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

const taskColumns = `id, project_id, title, description, priority, status, assigned_to::text, created_by, due_date, created_at, updated_at`

// TaskRepository реализует repository.TaskRepository для PostgreSQL
type TaskRepository struct {
	base
}

// NewTaskRepository создает новый экземпляр TaskRepository
func NewTaskRepository(db *pgxpool.Pool, timeout time.Duration) *TaskRepository {
	return &TaskRepository{base: newBase(db, timeout)}
}

// scanTask читает одну строку с колонками taskColumns
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&task.AssignedTo,
		&task.CreatedBy,
		&task.DueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Create создает новую задачу
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	query := `
		INSERT INTO tasks (id, project_id, title, description, priority, status, assigned_to, created_by, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		task.ID, task.ProjectID, task.Title, task.Description, task.Priority, task.Status,
		task.AssignedTo, task.CreatedBy, task.DueDate,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if pgErr, ok := asPgError(err, codeForeignKeyViolation); ok {
			if pgErr.ConstraintName == "tasks_project_id_fkey" {
				return domain.ErrProjectNotFound
			}
			return domain.ErrUserNotFound
		}
		return mapError(err)
	}

	return nil
}

// GetByID получает задачу по ID
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, domain.ErrTaskNotFound
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRow(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, mapError(err)
	}

	return task, nil
}

// ListByProject возвращает все задачи проекта
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, projectID)
}

// ListAssigned возвращает задачи, назначенные пользователю
func (r *TaskRepository) ListAssigned(ctx context.Context, userID string) ([]*domain.Task, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []*domain.Task{}, nil
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to = $1 ORDER BY due_date NULLS LAST, created_at, id`
	return r.list(ctx, query, userID)
}

func (r *TaskRepository) list(ctx context.Context, query, arg string) ([]*domain.Task, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	// Return empty array instead of nil if no tasks found
	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, mapError(rows.Err())
}

// Update сохраняет все изменяемые поля задачи
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE tasks
		SET title = $1, description = $2, priority = $3, status = $4,
		    assigned_to = $5, due_date = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		task.Title, task.Description, task.Priority, task.Status, task.AssignedTo, task.DueDate, task.ID,
	).Scan(&task.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		if _, ok := asPgError(err, codeForeignKeyViolation); ok {
			return domain.ErrUserNotFound
		}
		return mapError(err)
	}

	return nil
}

// UpdateStatus меняет только статус задачи
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus) (*domain.Task, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE tasks
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + taskColumns

	task, err := scanTask(r.db.QueryRow(ctx, query, status, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, mapError(err)
	}

	return task, nil
}

// Delete удаляет задачу
func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return mapError(err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}

	return nil
}
