package repository

import (
	"context"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
)

// UserRepository определяет методы для работы с данными пользователей
type UserRepository interface {
	// Create создает пользователя; при занятом субъекте или email возвращает domain.ErrUserExists
	Create(ctx context.Context, user *domain.User) error

	// GetByID получает пользователя по внутреннему ID
	GetByID(ctx context.Context, userID string) (*domain.User, error)

	// GetBySubject получает пользователя по внешнему субъекту
	GetBySubject(ctx context.Context, subject string) (*domain.User, error)
}

// ProjectRepository определяет методы для работы с данными проектов
type ProjectRepository interface {
	// Create создает проект; при занятом коде приглашения возвращает domain.ErrInviteCodeTaken
	Create(ctx context.Context, project *domain.Project) error

	// GetByID получает проект со списком участников
	GetByID(ctx context.Context, projectID string) (*domain.Project, error)

	// GetByInviteCode получает проект по коду приглашения
	GetByInviteCode(ctx context.Context, code string) (*domain.Project, error)

	// ListForUser возвращает проекты, где пользователь администратор или участник
	ListForUser(ctx context.Context, userID string) ([]*domain.Project, error)

	// Update сохраняет изменяемые поля проекта (администратор и код приглашения неизменны)
	Update(ctx context.Context, project *domain.Project) error

	// Delete удаляет проект вместе с задачами
	Delete(ctx context.Context, projectID string) error

	// AddMember атомарно добавляет участника, если его еще нет (иначе domain.ErrAlreadyMember)
	AddMember(ctx context.Context, projectID, userID string) error

	// RemoveMember удаляет участника из проекта (идемпотентная операция)
	RemoveMember(ctx context.Context, projectID, userID string) error
}

// TaskRepository определяет методы для работы с данными задач
type TaskRepository interface {
	// Create создает новую задачу
	Create(ctx context.Context, task *domain.Task) error

	// GetByID получает задачу по ID
	GetByID(ctx context.Context, taskID string) (*domain.Task, error)

	// ListByProject возвращает все задачи проекта
	ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error)

	// ListAssigned возвращает задачи, назначенные пользователю
	ListAssigned(ctx context.Context, userID string) ([]*domain.Task, error)

	// Update сохраняет все изменяемые поля задачи
	Update(ctx context.Context, task *domain.Task) error

	// UpdateStatus меняет только статус задачи и возвращает обновленную запись
	UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus) (*domain.Task, error)

	// Delete удаляет задачу
	Delete(ctx context.Context, taskID string) error
}
