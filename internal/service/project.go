package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository"
)

// ProjectService handles business logic for projects and membership
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	invites     *InviteRegistry
	broadcaster Broadcaster
}

// NewProjectService creates a new ProjectService
func NewProjectService(
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	invites *InviteRegistry,
	broadcaster Broadcaster,
) *ProjectService {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		invites:     invites,
		broadcaster: broadcaster,
	}
}

// Create creates a project administered by adminID and issues its invite code
func (s *ProjectService) Create(ctx context.Context, adminID, title, description string) (*domain.Project, error) {
	if adminID == "" {
		return nil, fmt.Errorf("%w: project must have an admin", domain.ErrValidation)
	}

	// The admin must resolve to a stored user before anything is written
	if _, err := s.userRepo.GetByID(ctx, adminID); err != nil {
		return nil, err
	}

	draft := &domain.Project{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      domain.ProjectTodo,
		AdminID:     adminID,
		TeamMembers: []string{},
	}

	return s.invites.Issue(ctx, draft)
}

// Get returns a project the principal may view
func (s *ProjectService) Get(ctx context.Context, projectID, principalID string) (*domain.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := Authorize(project, principalID, ActionViewProject, nil).Err(); err != nil {
		return nil, err
	}

	return project, nil
}

// AuthorizeView checks that the principal may receive the project's live events
func (s *ProjectService) AuthorizeView(ctx context.Context, projectID, principalID string) error {
	_, err := s.Get(ctx, projectID, principalID)
	return err
}

// List returns projects where the principal is admin or member
func (s *ProjectService) List(ctx context.Context, principalID string) ([]*domain.Project, error) {
	return s.projectRepo.ListForUser(ctx, principalID)
}

// Update changes title, description or status (admin only)
func (s *ProjectService) Update(ctx context.Context, projectID, principalID string, update domain.ProjectUpdate) (*domain.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := Authorize(project, principalID, ActionEditProject, nil).Err(); err != nil {
		return nil, err
	}

	if err := update.Apply(project); err != nil {
		return nil, err
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// Delete removes the project with its tasks and closes its room (admin only)
func (s *ProjectService) Delete(ctx context.Context, projectID, principalID string) error {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return err
	}

	if err := Authorize(project, principalID, ActionDeleteProject, nil).Err(); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return err
	}

	s.broadcaster.CloseRoom(projectID)
	return nil
}

// RemoveMember drops a member and evicts their live connections (admin only)
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, principalID, memberID string) (*domain.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := Authorize(project, principalID, ActionRemoveMember, nil).Err(); err != nil {
		return nil, err
	}

	if project.IsAdmin(memberID) {
		return nil, fmt.Errorf("%w: the admin cannot be removed", domain.ErrValidation)
	}

	if err := s.projectRepo.RemoveMember(ctx, projectID, memberID); err != nil {
		return nil, err
	}

	s.broadcaster.Evict(projectID, memberID)

	return s.projectRepo.GetByID(ctx, projectID)
}

// Join redeems an invite code for the principal
func (s *ProjectService) Join(ctx context.Context, code, principalID string) (*domain.Project, RedeemOutcome, error) {
	return s.invites.Redeem(ctx, code, principalID)
}
