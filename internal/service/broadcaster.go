package service

import "github.com/Mandalorian7773/Task-Board-Pro/internal/domain"

// Broadcaster fans out committed task changes to live project rooms
type Broadcaster interface {
	// Announce publishes an event to the project's room. It must be called
	// once per persisted task mutation, after the store returned success.
	Announce(projectID string, event domain.TaskEvent)

	// Evict removes every connection of userID from the project's room
	Evict(projectID, userID string)

	// CloseRoom removes every connection from the project's room
	CloseRoom(projectID string)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Announce(string, domain.TaskEvent) {}
func (noopBroadcaster) Evict(string, string)              {}
func (noopBroadcaster) CloseRoom(string)                  {}
