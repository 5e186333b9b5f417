package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository"
)

// NewTask holds the fields supplied when creating a task
type NewTask struct {
	Title       string
	Description string
	Priority    domain.TaskPriority
	Status      domain.TaskStatus // defaults to pending
	AssignedTo  *string
	DueDate     *time.Time
}

// TaskService handles business logic for tasks and announces every
// committed change to the project's room
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	broadcaster Broadcaster
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	broadcaster Broadcaster,
) *TaskService {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		broadcaster: broadcaster,
	}
}

// Create creates a task in the project (admin only)
func (s *TaskService) Create(ctx context.Context, projectID, principalID string, input NewTask) (*domain.Task, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := Authorize(project, principalID, ActionCreateTask, nil).Err(); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.TaskPending
	}

	task := &domain.Task{
		ProjectID:   project.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Status:      status,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   principalID,
		DueDate:     input.DueDate,
	}
	if task.AssignedTo != nil && *task.AssignedTo == "" {
		task.AssignedTo = nil
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := checkAssignee(project, task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.Announce(project.ID, domain.NewTaskEvent(domain.TaskCreated, task))
	return task, nil
}

// ListByProject returns the project's tasks to anyone who may view the project
func (s *TaskService) ListByProject(ctx context.Context, projectID, principalID string) ([]*domain.Task, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := Authorize(project, principalID, ActionViewProject, nil).Err(); err != nil {
		return nil, err
	}

	return s.taskRepo.ListByProject(ctx, projectID)
}

// ListAssigned returns the tasks assigned to the principal
func (s *TaskService) ListAssigned(ctx context.Context, principalID string) ([]*domain.Task, error) {
	return s.taskRepo.ListAssigned(ctx, principalID)
}

// UpdateStatus changes a task's status (admin or assignee)
func (s *TaskService) UpdateStatus(ctx context.Context, taskID, principalID string, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid task status %q", domain.ErrValidation, status)
	}

	task, project, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := Authorize(project, principalID, ActionChangeTaskStatus, task).Err(); err != nil {
		return nil, err
	}

	updated, err := s.taskRepo.UpdateStatus(ctx, taskID, status)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Announce(project.ID, domain.NewTaskEvent(domain.TaskStatusChanged, updated))
	return updated, nil
}

// Update changes any task field (admin only)
func (s *TaskService) Update(ctx context.Context, taskID, principalID string, update domain.TaskUpdate) (*domain.Task, error) {
	task, project, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := Authorize(project, principalID, ActionEditTask, task).Err(); err != nil {
		return nil, err
	}

	if err := update.Apply(task); err != nil {
		return nil, err
	}
	if update.AssignedTo != nil {
		if err := checkAssignee(project, task); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.Announce(project.ID, domain.NewTaskEvent(domain.TaskUpdated, task))
	return task, nil
}

// Delete removes a task (admin only)
func (s *TaskService) Delete(ctx context.Context, taskID, principalID string) error {
	task, project, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}

	if err := Authorize(project, principalID, ActionDeleteTask, task).Err(); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return err
	}

	s.broadcaster.Announce(project.ID, domain.NewTaskEvent(domain.TaskDeleted, task))
	return nil
}

// load fetches a task together with its owning project
func (s *TaskService) load(ctx context.Context, taskID string) (*domain.Task, *domain.Project, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	project, err := s.projectRepo.GetByID(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	return task, project, nil
}

// checkAssignee rejects assignees that are neither the admin nor a member
func checkAssignee(project *domain.Project, task *domain.Task) error {
	if task.AssignedTo == nil {
		return nil
	}
	if !project.CanBeAssigned(*task.AssignedTo) {
		return fmt.Errorf("%w: assignee must be a project member", domain.ErrValidation)
	}
	return nil
}
