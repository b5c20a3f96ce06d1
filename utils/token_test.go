package authUtils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	tokenString, err := GenerateToken("user-123", models.RoleModerator)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "moderator", claims["role"])
	assert.NotNil(t, claims["exp"])
}

func TestGenerateTokenMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := GenerateToken("user-123", models.RoleUser)
	assert.Error(t, err)
}
