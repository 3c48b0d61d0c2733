// Package auth проверяет access-токены, выпущенные сервисом аутентификации.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

var ErrInvalidToken = errors.New("auth: токен невалиден")

// Claims - данные пользователя из access токена.
type Claims struct {
	UserID uuid.UUID
	Role   valueobject.Role
}

func (c Claims) IsAdmin() bool {
	return c.Role == valueobject.RoleAdmin
}

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue выпускает access токен. Используется сервисом аутентификации и в тестах.
func (m *TokenManager) Issue(userID uuid.UUID, role valueobject.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAccess извлекает userID и роль из access токена.
func (m *TokenManager) ParseAccess(raw string) (Claims, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	userID, err := uuid.Parse(sub)
	if err != nil || userID == uuid.Nil {
		return Claims{}, ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	r := valueobject.Role(role)
	if !r.IsValid() {
		return Claims{}, ErrInvalidToken
	}

	return Claims{UserID: userID, Role: r}, nil
}
