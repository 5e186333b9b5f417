package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/middleware"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/service"
)

// ProjectHandler обрабатывает эндпоинты проектов
type ProjectHandler struct {
	projectService *service.ProjectService
}

// NewProjectHandler создает новый ProjectHandler
func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// CreateProjectRequest представляет тело запроса для создания проекта
type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateProject обрабатывает POST /projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	// Администратором становится автор запроса
	project, err := h.projectService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Title, req.Description)
	respond(w, r, http.StatusCreated, project, err)
}

// ListProjects обрабатывает GET /projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	respond(w, r, http.StatusOK, projects, err)
}

// GetProject обрабатывает GET /projects/{projectID}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.projectService.Get(r.Context(), chi.URLParam(r, "projectID"), middleware.GetUserIDFromContext(r.Context()))
	respond(w, r, http.StatusOK, project, err)
}

// UpdateProject обрабатывает PUT /projects/{projectID}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req domain.ProjectUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	project, err := h.projectService.Update(r.Context(), chi.URLParam(r, "projectID"), middleware.GetUserIDFromContext(r.Context()), req)
	respond(w, r, http.StatusOK, project, err)
}

// DeleteProject обрабатывает DELETE /projects/{projectID}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	err := h.projectService.Delete(r.Context(), chi.URLParam(r, "projectID"), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondNoContent(w, r)
}

// RemoveMember обрабатывает DELETE /projects/{projectID}/members/{memberID}
func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	project, err := h.projectService.RemoveMember(
		r.Context(),
		chi.URLParam(r, "projectID"),
		middleware.GetUserIDFromContext(r.Context()),
		chi.URLParam(r, "memberID"),
	)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, project)
}

// JoinProjectRequest представляет тело запроса на вступление по коду приглашения
type JoinProjectRequest struct {
	InviteCode string `json:"invite_code"`
}

// JoinProjectResponse представляет ответ на вступление в проект
type JoinProjectResponse struct {
	Status  service.RedeemOutcome `json:"status"`
	Project *domain.Project       `json:"project"`
}

// JoinProject обрабатывает POST /projects/join.
// Повторное вступление не считается ошибкой и возвращает status=already_member.
func (h *ProjectHandler) JoinProject(w http.ResponseWriter, r *http.Request) {
	var req JoinProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	project, outcome, err := h.projectService.Join(r.Context(), req.InviteCode, middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, JoinProjectResponse{
		Status:  outcome,
		Project: project,
	})
}
