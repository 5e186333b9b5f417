package handler

import (
	"net/http"

	"github.com/go-chi/render"
)

// RespondWithJSON отправляет JSON ответ с указанным статус кодом
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	render.Status(r, statusCode)
	render.JSON(w, r, data)
}

// RespondNoContent завершает запрос на удаление без тела ответа
func RespondNoContent(w http.ResponseWriter, r *http.Request) {
	render.NoContent(w, r)
}

// respond отправляет результат сервиса или преобразованную ошибку
func respond(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}, err error) {
	if err != nil {
		HandleError(w, r, err)
		return
	}
	RespondWithJSON(w, r, statusCode, data)
}
