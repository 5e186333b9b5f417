package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/identity"
	"github.com/Mandalorian7773/Task-Board-Pro/internal/service"
)

// ContextKey это кастомный тип для ключей контекста
type ContextKey string

const (
	// PrincipalKey ключ контекста для внутреннего пользователя запроса
	PrincipalKey ContextKey = "principal"
)

// accessTokenParam позволяет передать токен в query, т.к. браузер не может
// выставить заголовок Authorization при открытии WebSocket
const accessTokenParam = "access_token"

// AuthMiddleware проверяет bearer-токен и сопоставляет его с внутренним пользователем
func AuthMiddleware(verifier identity.Verifier, resolver *service.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := tokenFromRequest(r)
			if !ok {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"missing or malformed authorization header"}}`, http.StatusUnauthorized)
				return
			}

			// Проверка токена выполняется до обращения к хранилищу
			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":{"code":"UNAUTHORIZED","message":"invalid or expired token"}}`, http.StatusUnauthorized)
				return
			}

			user, err := resolver.Resolve(r.Context(), claims)
			if err != nil {
				switch {
				case domain.IsRetryable(err):
					w.Header().Set("Retry-After", "1")
					http.Error(w, `{"error":{"code":"UNAVAILABLE","message":"storage unavailable"}}`, http.StatusServiceUnavailable)
				case errors.Is(err, domain.ErrConflict):
					http.Error(w, `{"error":{"code":"CONFLICT","message":"identity conflicts with an existing user"}}`, http.StatusConflict)
				default:
					http.Error(w, `{"error":{"code":"INTERNAL_ERROR","message":"failed to resolve user"}}`, http.StatusInternalServerError)
				}
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenFromRequest извлекает токен из заголовка Authorization или параметра access_token
func tokenFromRequest(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get(accessTokenParam)
		return token, token != ""
	}

	// Проверяем формат Bearer
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

// GetPrincipalFromContext извлекает пользователя из контекста
func GetPrincipalFromContext(ctx context.Context) *domain.User {
	user, ok := ctx.Value(PrincipalKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserIDFromContext извлекает ID пользователя из контекста
func GetUserIDFromContext(ctx context.Context) string {
	if user := GetPrincipalFromContext(ctx); user != nil {
		return user.ID
	}
	return ""
}
