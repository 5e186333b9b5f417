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

// UserRepository реализует repository.UserRepository для PostgreSQL
type UserRepository struct {
	base
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(db *pgxpool.Pool, timeout time.Duration) *UserRepository {
	return &UserRepository{base: newBase(db, timeout)}
}

// Create создает пользователя; уникальность субъекта и email обеспечивают индексы
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleStandard
	}
	if err := user.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, subject, name, email, role)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, user.ID, user.Subject, user.Name, user.Email, user.Role).Scan(&user.CreatedAt)
	if err != nil {
		if _, ok := asPgError(err, codeUniqueViolation); ok {
			return domain.ErrUserExists
		}
		return mapError(err)
	}

	return nil
}

// GetByID получает пользователя по внутреннему ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.getOne(ctx, `WHERE id = $1`, userID)
}

// GetBySubject получает пользователя по внешнему субъекту
func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE subject = $1`, subject)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg string) (*domain.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, subject, name, COALESCE(email, ''), role, created_at
		FROM users
	` + where

	var user domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Subject,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, mapError(err)
	}

	return &user, nil
}
