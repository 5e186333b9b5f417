package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/identity"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/repository/memory"
)

// recordingBroadcaster captures every call the services make
type recordingBroadcaster struct {
	mu      sync.Mutex
	events  []domain.TaskEvent
	evicted []string
	closed  []string
}

func (b *recordingBroadcaster) Announce(projectID string, event domain.TaskEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) Evict(projectID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evicted = append(b.evicted, projectID+"/"+userID)
}

func (b *recordingBroadcaster) CloseRoom(projectID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, projectID)
}

func (b *recordingBroadcaster) Events() []domain.TaskEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.TaskEvent(nil), b.events...)
}

type fixture struct {
	store       *memory.Store
	resolver    *IdentityResolver
	invites     *InviteRegistry
	projects    *ProjectService
	tasks       *TaskService
	broadcaster *recordingBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	broadcaster := &recordingBroadcaster{}
	invites := NewInviteRegistry(store.Projects(), 0)

	return &fixture{
		store:       store,
		resolver:    NewIdentityResolver(store.Users(), nil),
		invites:     invites,
		projects:    NewProjectService(store.Projects(), store.Users(), invites, broadcaster),
		tasks:       NewTaskService(store.Tasks(), store.Projects(), broadcaster),
		broadcaster: broadcaster,
	}
}

// user resolves a principal the way the auth middleware does
func (f *fixture) user(t *testing.T, subject string) *domain.User {
	t.Helper()

	user, err := f.resolver.Resolve(context.Background(), &identity.Claims{Subject: subject, Name: subject})
	require.NoError(t, err)
	return user
}

func (f *fixture) project(t *testing.T, admin *domain.User, title string) *domain.Project {
	t.Helper()

	project, err := f.projects.Create(context.Background(), admin.ID, title, title+" board")
	require.NoError(t, err)
	return project
}
