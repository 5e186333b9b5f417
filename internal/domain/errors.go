package domain

import "errors"

// Доменные ошибки
var (
	// ErrNotFound возвращается когда ресурс не найден
	ErrNotFound = errors.New("resource not found")

	// ErrUserNotFound возвращается когда пользователь не найден
	ErrUserNotFound = errors.New("user not found")

	// ErrProjectNotFound возвращается когда проект не найден
	ErrProjectNotFound = errors.New("project not found")

	// ErrTaskNotFound возвращается когда задача не найдена
	ErrTaskNotFound = errors.New("task not found")

	// ErrForbidden возвращается когда действие запрещено политикой доступа
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyMember возвращается при повторном вступлении в проект
	ErrAlreadyMember = errors.New("already a member of this project")

	// ErrConflict возвращается при нарушении уникальности, которое нельзя разрешить повтором
	ErrConflict = errors.New("conflict")

	// ErrUserExists возвращается при вставке пользователя с уже занятым субъектом или email
	ErrUserExists = errors.New("user already exists")

	// ErrInviteCodeTaken возвращается когда сгенерированный код приглашения уже занят
	ErrInviteCodeTaken = errors.New("invite code already taken")

	// ErrValidation возвращается при некорректных входных данных
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable возвращается при таймауте или недоступности хранилища (можно повторить)
	ErrUnavailable = errors.New("storage unavailable")

	// ErrUnauthorized возвращается при неудачной аутентификации
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken возвращается когда токен не прошел проверку
	ErrInvalidToken = errors.New("invalid token")
)

// ErrorCode представляет коды ошибок API
type ErrorCode string

// Коды ошибок API
const (
	CodeBadRequest   ErrorCode = "BAD_REQUEST"    // Некорректный запрос
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"   // Не пройдена аутентификация
	CodeForbidden    ErrorCode = "FORBIDDEN"      // Недостаточно прав
	CodeNotFound     ErrorCode = "NOT_FOUND"      // Ресурс не найден
	CodeConflict     ErrorCode = "CONFLICT"       // Конфликт уникальности
	CodeUnavailable  ErrorCode = "UNAVAILABLE"    // Хранилище недоступно, можно повторить
	CodeInternal     ErrorCode = "INTERNAL_ERROR" // Внутренняя ошибка
)

// IsNotFound проверяет, относится ли ошибка к семейству "не найдено"
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProjectNotFound) || errors.Is(err, ErrTaskNotFound)
}

// IsRetryable проверяет, можно ли повторить операцию позже
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// MapErrorToCode преобразует доменные ошибки в коды ошибок API
func MapErrorToCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case IsNotFound(err):
		return CodeNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrUserExists),
		errors.Is(err, ErrInviteCodeTaken), errors.Is(err, ErrAlreadyMember):
		return CodeConflict
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
