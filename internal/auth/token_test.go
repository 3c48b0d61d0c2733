package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	userID := uuid.New()

	raw, err := m.Issue(userID, valueobject.RoleFinder)
	require.NoError(t, err)

	claims, err := m.ParseAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, valueobject.RoleFinder, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	raw, err := NewTokenManager("other", time.Minute).Issue(uuid.New(), valueobject.RoleClient)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Minute).ParseAccess(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsUnknownRole(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "superuser",
		"exp":  time.Now().Add(time.Minute).Unix(),
	})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Minute).ParseAccess(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "client",
		"exp":  time.Now().Add(-time.Minute).Unix(),
	})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Minute).ParseAccess(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
