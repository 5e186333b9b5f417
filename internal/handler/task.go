package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/middleware"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/service"
)

// TaskHandler обрабатывает эндпоинты задач
type TaskHandler struct {
	taskService *service.TaskService
}

// NewTaskHandler создает новый TaskHandler
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// CreateTaskRequest представляет тело запроса для создания задачи
type CreateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    domain.TaskPriority `json:"priority"`
	Status      domain.TaskStatus   `json:"status,omitempty"`
	AssignedTo  *string             `json:"assigned_to,omitempty"`
	DueDate     *time.Time          `json:"due_date,omitempty"`
}

// CreateTask обрабатывает POST /projects/{projectID}/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	task, err := h.taskService.Create(r.Context(), chi.URLParam(r, "projectID"), middleware.GetUserIDFromContext(r.Context()), service.NewTask{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, task)
}

// ListProjectTasks обрабатывает GET /projects/{projectID}/tasks
func (h *TaskHandler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListByProject(r.Context(), chi.URLParam(r, "projectID"), middleware.GetUserIDFromContext(r.Context()))
	respond(w, r, http.StatusOK, tasks, err)
}

// ListAssigned обрабатывает GET /tasks/assigned
func (h *TaskHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListAssigned(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	respond(w, r, http.StatusOK, tasks, err)
}

// UpdateTaskStatusRequest представляет тело запроса для смены статуса задачи
type UpdateTaskStatusRequest struct {
	Status domain.TaskStatus `json:"status"`
}

// UpdateTaskStatus обрабатывает PATCH /tasks/{taskID}/status
func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	task, err := h.taskService.UpdateStatus(r.Context(), chi.URLParam(r, "taskID"), middleware.GetUserIDFromContext(r.Context()), req.Status)
	respond(w, r, http.StatusOK, task, err)
}

// UpdateTask обрабатывает PUT /tasks/{taskID}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req domain.TaskUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}

	task, err := h.taskService.Update(r.Context(), chi.URLParam(r, "taskID"), middleware.GetUserIDFromContext(r.Context()), req)
	respond(w, r, http.StatusOK, task, err)
}

// DeleteTask обрабатывает DELETE /tasks/{taskID}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	err := h.taskService.Delete(r.Context(), chi.URLParam(r, "taskID"), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondNoContent(w, r)
}
