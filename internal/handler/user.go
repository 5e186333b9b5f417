package handler

import (
	"net/http"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/middleware"
)

// UserHandler обрабатывает эндпоинты текущего пользователя
type UserHandler struct{}

// NewUserHandler создает новый UserHandler
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me обрабатывает GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetPrincipalFromContext(r.Context())
	if user == nil {
		RespondWithError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, user)
}
