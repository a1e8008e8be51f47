package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/config"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/errors"
)

func testManager(expiry time.Duration) *Manager {
	return NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: expiry,
		Issuer:       "civil-registry",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := testManager(15 * time.Minute)

	token, err := m.GenerateToken(&UserInfo{ID: 7, Name: "Ana Reyes", Role: "registrar"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "Ana Reyes", claims.Name)
	assert.Equal(t, "registrar", claims.Role)
	assert.Equal(t, "civil-registry", claims.Issuer)
	assert.Equal(t, "7", claims.Subject)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := testManager(-time.Minute)

	token, err := m.GenerateToken(&UserInfo{ID: 7, Name: "Ana Reyes"})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TOKEN_EXPIRED", appErr.Code)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	m := testManager(15 * time.Minute)
	other := NewManager(&config.JWTConfig{Secret: "other-secret", AccessExpiry: 15 * time.Minute})

	token, err := other.GenerateToken(&UserInfo{ID: 7, Name: "Ana Reyes"})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TOKEN_INVALID", appErr.Code)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	m := testManager(15 * time.Minute)

	_, err := m.ValidateAccessToken("not-a-token")
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TOKEN_INVALID", appErr.Code)
}
