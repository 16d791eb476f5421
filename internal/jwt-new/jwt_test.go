package security_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/grocery-shop/internal/domain/models"
	security "github.com/linemk/grocery-shop/internal/jwt-new"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken_ContainsSubjectAndRole(t *testing.T) {
	user := &models.User{ID: 42, Email: "manager@example.com", Role: models.RoleManager}

	tokenStr, err := security.NewToken(user, time.Hour, "secret")
	require.NoError(t, err)

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "42", claims["sub"])
	assert.Equal(t, models.RoleManager, claims["role"])
}

func TestNewToken_EmptySecret(t *testing.T) {
	_, err := security.NewToken(&models.User{ID: 1}, time.Hour, "")
	assert.ErrorIs(t, err, security.ErrEmptySecret)
}
