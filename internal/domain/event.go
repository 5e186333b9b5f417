package domain

import "time"

// TaskEventType представляет тип изменения задачи
type TaskEventType string

// Типы событий задачи, рассылаемые в комнату проекта
const (
	TaskCreated       TaskEventType = "task.created"
	TaskUpdated       TaskEventType = "task.updated"
	TaskStatusChanged TaskEventType = "task.status_changed"
	TaskDeleted       TaskEventType = "task.deleted"
)

// TaskEvent представляет событие об изменении задачи после успешного сохранения
type TaskEvent struct {
	Type       TaskEventType `json:"type"`
	ProjectID  string        `json:"project_id"`
	Task       *Task         `json:"task"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewTaskEvent создает событие для задачи
func NewTaskEvent(eventType TaskEventType, task *Task) TaskEvent {
	return TaskEvent{
		Type:       eventType,
		ProjectID:  task.ProjectID,
		Task:       task,
		OccurredAt: time.Now().UTC(),
	}
}
