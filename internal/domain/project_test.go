package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProject() *Project {
	return &Project{
		Title:       "Board",
		Description: "Team board",
		Status:      ProjectTodo,
		AdminID:     "admin",
		TeamMembers: []string{"member"},
	}
}

func TestProject_Validate(t *testing.T) {
	require.NoError(t, validProject().Validate())

	tests := []struct {
		name   string
		mutate func(p *Project)
	}{
		{"missing admin", func(p *Project) { p.AdminID = "" }},
		{"blank title", func(p *Project) { p.Title = "   " }},
		{"missing description", func(p *Project) { p.Description = "" }},
		{"unknown status", func(p *Project) { p.Status = "archived" }},
		{"task status on project", func(p *Project) { p.Status = ProjectStatus(TaskCompleted) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProject()
			tt.mutate(p)
			assert.ErrorIs(t, p.Validate(), ErrValidation)
		})
	}
}

func TestProject_Roles(t *testing.T) {
	p := validProject()

	assert.True(t, p.IsAdmin("admin"))
	assert.False(t, p.IsMember("admin"), "admin is not stored among team members")
	assert.True(t, p.CanBeAssigned("admin"))

	assert.True(t, p.IsMember("member"))
	assert.True(t, p.CanBeAssigned("member"))

	assert.False(t, p.CanBeAssigned("stranger"))
	assert.False(t, p.IsAdmin(""))
	assert.False(t, p.IsMember(""))
}

func TestProjectUpdate_Apply(t *testing.T) {
	p := validProject()
	title := "Renamed"
	status := ProjectDone

	require.NoError(t, ProjectUpdate{Title: &title, Status: &status}.Apply(p))
	assert.Equal(t, "Renamed", p.Title)
	assert.Equal(t, "Team board", p.Description)
	assert.Equal(t, ProjectDone, p.Status)

	bad := ProjectStatus("pending")
	assert.ErrorIs(t, ProjectUpdate{Status: &bad}.Apply(p), ErrValidation)
}
