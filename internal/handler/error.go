package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail содержит код и описание ошибки
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithError отправляет ответ с ошибкой
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// HandleError преобразует доменные ошибки в HTTP ответы.
// Причина отказа в доступе не раскрывается сверх категории.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.MapErrorToCode(err)
	if domain.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}

	switch code {
	case domain.CodeBadRequest:
		RespondWithError(w, r, http.StatusBadRequest, string(code), validationMessage(err))
	case domain.CodeUnauthorized:
		RespondWithError(w, r, http.StatusUnauthorized, string(code), "unauthorized")
	case domain.CodeForbidden:
		RespondWithError(w, r, http.StatusForbidden, string(code), "forbidden")
	case domain.CodeNotFound:
		RespondWithError(w, r, http.StatusNotFound, string(code), "resource not found")
	case domain.CodeConflict:
		RespondWithError(w, r, http.StatusConflict, string(code), "conflict")
	case domain.CodeUnavailable:
		RespondWithError(w, r, http.StatusServiceUnavailable, string(code), "storage unavailable, retry later")
	default:
		RespondWithError(w, r, http.StatusInternalServerError, string(code), "internal server error")
	}
}

// validationMessage возвращает текст ошибки валидации без внутренних деталей
func validationMessage(err error) string {
	if errors.Is(err, domain.ErrValidation) {
		return err.Error()
	}
	return "invalid request"
}
