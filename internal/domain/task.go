package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskPriority представляет приоритет задачи
type TaskPriority string

// Возможные приоритеты задачи
const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid проверяет, что приоритет входит в допустимый набор
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TaskStatus представляет статус задачи (словарь отличается от статуса проекта)
type TaskStatus string

// Возможные статусы задачи
const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid проверяет, что статус задачи входит в допустимый набор
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Task представляет задачу внутри проекта
type Task struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	AssignedTo  *string      `json:"assigned_to,omitempty"`
	CreatedBy   string       `json:"created_by"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TaskUpdate содержит изменяемые администратором поля задачи
type TaskUpdate struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	AssignedTo  *string       `json:"assigned_to,omitempty"` // Пустая строка снимает исполнителя
	DueDate     *time.Time    `json:"due_date,omitempty"`
}

// Validate проверяет задачу перед сохранением
func (t *Task) Validate() error {
	if t.ProjectID == "" {
		return fmt.Errorf("%w: project is required", ErrValidation)
	}
	if t.CreatedBy == "" {
		return fmt.Errorf("%w: task must have a creator", ErrValidation)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, t.Priority)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: invalid task status %q", ErrValidation, t.Status)
	}
	return nil
}

// Apply применяет изменения к задаче и проверяет результат
func (u TaskUpdate) Apply(t *Task) error {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.AssignedTo != nil {
		if *u.AssignedTo == "" {
			t.AssignedTo = nil
		} else {
			assignee := *u.AssignedTo
			t.AssignedTo = &assignee
		}
	}
	if u.DueDate != nil {
		due := *u.DueDate
		t.DueDate = &due
	}
	return t.Validate()
}

// IsAssignedTo проверяет, назначена ли задача пользователю
func (t *Task) IsAssignedTo(userID string) bool {
	return userID != "" && t.AssignedTo != nil && *t.AssignedTo == userID
}
