package auth

import (
	"context"
	"net/http"

	"github.com/xela07ax/ragbase/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator — интерфейс проверки bearer-токена сессии.
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

// Типизированные ключи контекста (избегаем коллизий).
type ctxKey string

const (
	ctxKeyUserID ctxKey = "user_id"
	ctxKeyBearer ctxKey = "bearer_token"
)

// NewMiddleware проверяет Authorization и прокидывает в контекст ID
// пользователя и сырой bearer — он нужен дальше для проксирования
// в сервис ингестии без повторной аутентификации.
func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxKeyBearer, trimBearer(authHeader))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized отвечает JSON-телом: контракт API — JSON на всех
// эндпоинтах, включая отказ в доступе (http.Error шлёт text/plain).
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error": "Unauthorized - Please log in"}`))
}

func trimBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return header
}

// UserID безопасно достаёт ID пользователя в любом месте кода.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return id
	}
	return ""
}

// BearerToken возвращает сырой токен текущей сессии (без префикса).
func BearerToken(ctx context.Context) string {
	if t, ok := ctx.Value(ctxKeyBearer).(string); ok {
		return t
	}
	return ""
}

// WithIdentity кладёт идентичность в контекст напрямую (для тестов).
func WithIdentity(ctx context.Context, userID, bearer string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUserID, userID)
	return context.WithValue(ctx, ctxKeyBearer, bearer)
}
