package domain

import "github.com/golang-jwt/jwt/v5"

// CustomClaims — полезная нагрузка bearer-токена сессии.
// Выпуском токенов занимается внешняя auth-система; здесь только проверка.
type CustomClaims struct {
	UserID string          `json:"user_id"`
	Scopes map[string]bool `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}
