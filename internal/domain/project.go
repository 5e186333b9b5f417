package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProjectStatus представляет статус проекта
type ProjectStatus string

// Возможные статусы проекта
const (
	ProjectTodo       ProjectStatus = "todo"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectDone       ProjectStatus = "done"
)

// Valid проверяет, что статус проекта входит в допустимый набор
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectTodo, ProjectInProgress, ProjectDone:
		return true
	}
	return false
}

// Project представляет проект с администратором и участниками
type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	AdminID     string        `json:"admin_id"`
	TeamMembers []string      `json:"team_members"` // Администратор сюда не входит
	InviteCode  string        `json:"invite_code"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ProjectUpdate содержит изменяемые поля проекта (nil означает "не менять")
type ProjectUpdate struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
}

// Validate проверяет проект перед сохранением
func (p *Project) Validate() error {
	if p.AdminID == "" {
		return fmt.Errorf("%w: project must have an admin", ErrValidation)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: invalid project status %q", ErrValidation, p.Status)
	}
	return nil
}

// Apply применяет изменения к проекту и проверяет результат
func (u ProjectUpdate) Apply(p *Project) error {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	return p.Validate()
}

// IsAdmin проверяет, является ли пользователь администратором проекта
func (p *Project) IsAdmin(userID string) bool {
	return userID != "" && p.AdminID == userID
}

// IsMember проверяет, входит ли пользователь в список участников проекта
func (p *Project) IsMember(userID string) bool {
	if userID == "" {
		return false
	}
	for _, member := range p.TeamMembers {
		if member == userID {
			return true
		}
	}
	return false
}

// CanBeAssigned проверяет, может ли пользователь быть исполнителем задачи проекта
func (p *Project) CanBeAssigned(userID string) bool {
	return p.IsAdmin(userID) || p.IsMember(userID)
}
