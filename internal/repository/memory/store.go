// Package memory реализует репозитории в памяти процесса.
// Используется для локального запуска (DB_DRIVER=memory) и в модульных тестах.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository"
)

var (
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.ProjectRepository = (*ProjectRepository)(nil)
	_ repository.TaskRepository    = (*TaskRepository)(nil)
)

// Store хранит пользователей, проекты и задачи под одним мьютексом,
// повторяя ограничения уникальности схемы PostgreSQL
type Store struct {
	mu       sync.RWMutex
	users    map[string]*domain.User    // id -> user
	subjects map[string]string          // subject -> id
	emails   map[string]string          // email -> id
	projects map[string]*domain.Project // id -> project
	codes    map[string]string          // invite code -> project id
	tasks    map[string]*domain.Task    // id -> task
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		subjects: make(map[string]string),
		emails:   make(map[string]string),
		projects: make(map[string]*domain.Project),
		codes:    make(map[string]string),
		tasks:    make(map[string]*domain.Task),
	}
}

// Users возвращает store как repository.UserRepository
func (s *Store) Users() *UserRepository { return &UserRepository{s} }

// Projects возвращает store как repository.ProjectRepository
func (s *Store) Projects() *ProjectRepository { return &ProjectRepository{s} }

// Tasks возвращает store как repository.TaskRepository
func (s *Store) Tasks() *TaskRepository { return &TaskRepository{s} }

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyProject(p *domain.Project) *domain.Project {
	c := *p
	c.TeamMembers = append([]string{}, p.TeamMembers...)
	return &c
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		c.AssignedTo = &assignee
	}
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return &c
}

// UserRepository реализует repository.UserRepository в памяти
type UserRepository struct{ s *Store }

// Create создает пользователя, проверяя уникальность субъекта и email
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user.Role == "" {
		user.Role = domain.RoleStandard
	}
	if err := user.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.subjects[user.Subject]; ok {
		return domain.ErrUserExists
	}
	if user.Email != "" {
		if _, ok := r.s.emails[user.Email]; ok {
			return domain.ErrUserExists
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()

	r.s.users[user.ID] = copyUser(user)
	r.s.subjects[user.Subject] = user.ID
	if user.Email != "" {
		r.s.emails[user.Email] = user.ID
	}
	return nil
}

// GetByID получает пользователя по внутреннему ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(user), nil
}

// GetBySubject получает пользователя по внешнему субъекту
func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.subjects[subject]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(r.s.users[id]), nil
}

// ProjectRepository реализует repository.ProjectRepository в памяти
type ProjectRepository struct{ s *Store }

// Create создает проект, проверяя уникальность кода приглашения
func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[project.AdminID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := r.s.codes[project.InviteCode]; ok {
		return domain.ErrInviteCodeTaken
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if _, ok := r.s.projects[project.ID]; ok {
		return domain.ErrConflict
	}

	members := []string{}
	for _, memberID := range project.TeamMembers {
		if _, ok := r.s.users[memberID]; !ok {
			return domain.ErrUserNotFound
		}
		if !contains(members, memberID) {
			members = append(members, memberID)
		}
	}
	project.TeamMembers = members

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	r.s.projects[project.ID] = copyProject(project)
	r.s.codes[project.InviteCode] = project.ID
	return nil
}

// GetByID получает проект со списком участников
func (r *ProjectRepository) GetByID(ctx context.Context, projectID string) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	project, ok := r.s.projects[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return copyProject(project), nil
}

// GetByInviteCode получает проект по коду приглашения
func (r *ProjectRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.codes[code]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return copyProject(r.s.projects[id]), nil
}

// ListForUser возвращает проекты, где пользователь администратор или участник
func (r *ProjectRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	projects := []*domain.Project{}
	for _, project := range r.s.projects {
		if project.IsAdmin(userID) || project.IsMember(userID) {
			projects = append(projects, copyProject(project))
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

// Update сохраняет название, описание и статус проекта
func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.projects[project.ID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	stored.Title = project.Title
	stored.Description = project.Description
	stored.Status = project.Status
	stored.UpdatedAt = time.Now().UTC()
	project.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete удаляет проект вместе с задачами
func (r *ProjectRepository) Delete(ctx context.Context, projectID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	project, ok := r.s.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	delete(r.s.codes, project.InviteCode)
	delete(r.s.projects, projectID)
	for id, task := range r.s.tasks {
		if task.ProjectID == projectID {
			delete(r.s.tasks, id)
		}
	}
	return nil
}

// AddMember атомарно добавляет участника, если его еще нет
func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	project, ok := r.s.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	if _, ok := r.s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	if contains(project.TeamMembers, userID) {
		return domain.ErrAlreadyMember
	}
	project.TeamMembers = append(project.TeamMembers, userID)
	return nil
}

// RemoveMember удаляет участника из проекта
func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	project, ok := r.s.projects[projectID]
	if !ok {
		return nil
	}
	members := project.TeamMembers[:0]
	for _, member := range project.TeamMembers {
		if member != userID {
			members = append(members, member)
		}
	}
	project.TeamMembers = members
	return nil
}

// TaskRepository реализует repository.TaskRepository в памяти
type TaskRepository struct{ s *Store }

// Create создает новую задачу
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[task.ProjectID]; !ok {
		return domain.ErrProjectNotFound
	}
	if err := r.checkUsers(task); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.s.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *TaskRepository) checkUsers(task *domain.Task) error {
	if _, ok := r.s.users[task.CreatedBy]; !ok {
		return domain.ErrUserNotFound
	}
	if task.AssignedTo != nil {
		if _, ok := r.s.users[*task.AssignedTo]; !ok {
			return domain.ErrUserNotFound
		}
	}
	return nil
}

// GetByID получает задачу по ID
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	task, ok := r.s.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return copyTask(task), nil
}

// ListByProject возвращает все задачи проекта
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool { return t.ProjectID == projectID }, byCreated), nil
}

// ListAssigned возвращает задачи, назначенные пользователю
func (r *TaskRepository) ListAssigned(ctx context.Context, userID string) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool { return t.IsAssignedTo(userID) }, byDueDate), nil
}

func (r *TaskRepository) filter(keep func(*domain.Task) bool, less func(a, b *domain.Task) bool) []*domain.Task {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tasks := []*domain.Task{}
	for _, task := range r.s.tasks {
		if keep(task) {
			tasks = append(tasks, copyTask(task))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
	return tasks
}

// byCreated повторяет ORDER BY created_at, id
func byCreated(a, b *domain.Task) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// byDueDate повторяет ORDER BY due_date NULLS LAST, created_at, id
func byDueDate(a, b *domain.Task) bool {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return byCreated(a, b)
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	case !a.DueDate.Equal(*b.DueDate):
		return a.DueDate.Before(*b.DueDate)
	default:
		return byCreated(a, b)
	}
}

// Update сохраняет все изменяемые поля задачи
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tasks[task.ID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if err := r.checkUsers(task); err != nil {
		return err
	}

	updated := copyTask(task)
	updated.ProjectID = stored.ProjectID
	updated.CreatedBy = stored.CreatedBy
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	r.s.tasks[task.ID] = updated
	task.UpdatedAt = updated.UpdatedAt
	return nil
}

// UpdateStatus меняет только статус задачи
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	task, ok := r.s.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	return copyTask(task), nil
}

// Delete удаляет задачу
func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[taskID]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.s.tasks, taskID)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
