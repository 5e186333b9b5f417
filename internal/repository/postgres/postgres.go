package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository"
)

var (
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.ProjectRepository = (*ProjectRepository)(nil)
	_ repository.TaskRepository    = (*TaskRepository)(nil)
)

// Коды ошибок PostgreSQL, которые обрабатываются явно
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// DefaultQueryTimeout используется, если таймаут запроса не задан
const DefaultQueryTimeout = 5 * time.Second

// base содержит общие для репозиториев пул соединений и таймаут запроса
type base struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func newBase(db *pgxpool.Pool, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return base{db: db, timeout: timeout}
}

// withTimeout ограничивает время выполнения одного обращения к БД
func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// asPgError извлекает ошибку PostgreSQL с указанным кодом
func asPgError(err error, code string) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr, true
	}
	return nil, false
}

// mapError отделяет повторяемые ошибки (таймаут, обрыв соединения) от остальных
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var connErr *pgconn.ConnectError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err),
		errors.As(err, &connErr):
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	return err
}
