package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
)

// maxBodyBytes ограничивает размер тела запроса
const maxBodyBytes = 1 << 20

// decodeJSON читает тело запроса, отклоняя неизвестные поля
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	return nil
}
