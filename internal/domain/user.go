package domain

import (
	"fmt"
	"strings"
	"time"
)

// UserRole представляет уровень полномочий пользователя
type UserRole string

// Возможные роли пользователя
const (
	RoleStandard UserRole = "standard"
	RoleElevated UserRole = "elevated"
)

// Valid проверяет, что роль входит в допустимый набор
func (r UserRole) Valid() bool {
	return r == RoleStandard || r == RoleElevated
}

// User представляет внутреннюю учетную запись, связанную с внешним субъектом
type User struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate проверяет обязательные поля перед сохранением
func (u *User) Validate() error {
	if strings.TrimSpace(u.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: invalid user role %q", ErrValidation, u.Role)
	}
	return nil
}
